package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lox/rikiki/internal/game"
)

// styles used by the table output
type styles struct {
	Header    lipgloss.Style
	SubHeader lipgloss.Style
	Column    lipgloss.Style
	Winner    lipgloss.Style
	Positive  lipgloss.Style
	Negative  lipgloss.Style
	Muted     lipgloss.Style
}

// newStyles builds the palette for one output. Colours are dropped when the
// output is not a terminal.
func newStyles(lr *lipgloss.Renderer) *styles {
	return &styles{
		Header: lr.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 2).
			Bold(true),
		SubHeader: lr.NewStyle().
			Foreground(lipgloss.Color("#04B575")).
			Bold(true),
		Column: lr.NewStyle().
			Foreground(lipgloss.Color("#74B9FF")).
			Bold(true),
		Winner: lr.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true),
		Positive: lr.NewStyle().
			Foreground(lipgloss.Color("#04B575")),
		Negative: lr.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")),
		Muted: lr.NewStyle().
			Foreground(lipgloss.Color("#626262")),
	}
}

type renderer struct {
	w  io.Writer
	st *styles
}

func newRenderer(w io.Writer) *renderer {
	return &renderer{w: w, st: newStyles(lipgloss.NewRenderer(w))}
}

func (r *renderer) println(s string) {
	fmt.Fprintln(r.w, s)
}

// table writes rows under headers with every column padded to its widest
// cell. Cells may already be styled.
func (r *renderer) table(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	line := func(cells []string, style *lipgloss.Style) string {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			if style != nil {
				cell = style.Render(cell)
			}
			parts[i] = cell + strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		}
		return strings.TrimRight(strings.Join(parts, "  "), " ")
	}

	r.println(line(headers, &r.st.Column))
	for _, row := range rows {
		r.println(line(row, nil))
	}
}

func (r *renderer) points(v int) string {
	s := strconv.Itoa(v)
	switch {
	case v > 0:
		return r.st.Positive.Render(s)
	case v < 0:
		return r.st.Negative.Render(s)
	default:
		return s
	}
}

func (r *renderer) players(players []game.Player) {
	if len(players) == 0 {
		r.println(r.st.Muted.Render("No players yet"))
		return
	}
	rows := make([][]string, 0, len(players))
	for _, p := range players {
		rows = append(rows, []string{p.Name, p.ID, p.CreatedAt.Local().Format("2006-01-02")})
	}
	r.table([]string{"NAME", "ID", "ADDED"}, rows)
}

func (r *renderer) games(games []*game.Game, names map[string]string) {
	if len(games) == 0 {
		r.println(r.st.Muted.Render("No games"))
		return
	}
	rows := make([][]string, 0, len(games))
	for _, g := range games {
		seated := make([]string, 0, len(g.Participants))
		for _, id := range g.PlayerIDs() {
			seated = append(seated, displayName(names, id))
		}
		rows = append(rows, []string{
			g.ID,
			string(g.Status),
			fmt.Sprintf("%d/%d", g.CurrentRound, g.MaxRounds),
			strings.Join(seated, ", "),
			g.CreatedAt.Local().Format("2006-01-02 15:04"),
		})
	}
	r.table([]string{"ID", "STATUS", "ROUND", "PLAYERS", "CREATED"}, rows)
}

// view prints a game's header, the current round in play order and the
// score sheet of every round.
func (r *renderer) view(v *game.GameView) {
	g := v.Game
	r.println(r.st.Header.Render(fmt.Sprintf("Game %s", g.ID)))
	r.println(fmt.Sprintf("%s • %s deck • forced conflict %s • round %d of %d",
		g.Status, g.Deck, onOff(g.ForceConflict), g.CurrentRound, g.MaxRounds))

	names := make(map[string]string, len(v.Players))
	for _, p := range v.Players {
		names[p.ID] = p.Name
	}

	if v.Current != nil {
		order := make([]string, len(v.PlayOrder))
		for i, p := range v.PlayOrder {
			order[i] = p.Name
		}
		r.println("")
		r.println(r.st.SubHeader.Render(fmt.Sprintf("Round %d: %d cards, %s deals", v.Current.Number, v.Current.Cards, v.Dealer.Name)))
		r.println("Play order: " + strings.Join(order, " → "))
	}

	if len(g.Rounds) == 0 {
		return
	}
	headers := []string{"ROUND", "CARDS"}
	for _, id := range g.PlayerIDs() {
		headers = append(headers, displayName(names, id))
	}
	rows := make([][]string, 0, len(g.Rounds)+1)
	for i := range g.Rounds {
		rd := &g.Rounds[i]
		row := []string{strconv.Itoa(rd.Number), strconv.Itoa(rd.Cards)}
		for _, id := range g.PlayerIDs() {
			row = append(row, r.cell(rd.Result(id)))
		}
		rows = append(rows, row)
	}
	total := []string{"TOTAL", ""}
	totals := g.Totals()
	for _, id := range g.PlayerIDs() {
		total = append(total, r.points(totals[id]))
	}
	rows = append(rows, total)

	r.println("")
	r.table(headers, rows)
}

// cell renders guess/hits (points) for one player in one round.
func (r *renderer) cell(res *game.RoundResult) string {
	switch {
	case res == nil:
		return r.st.Muted.Render("-")
	case res.Hits == nil:
		return fmt.Sprintf("%d/?", res.Guess)
	case res.Points == nil:
		return fmt.Sprintf("%d/%d", res.Guess, *res.Hits)
	default:
		return fmt.Sprintf("%d/%d (%s)", res.Guess, *res.Hits, r.points(*res.Points))
	}
}

func (r *renderer) summary(s *game.Summary) {
	r.println(r.st.Header.Render(fmt.Sprintf("Summary %s", s.GameID)))
	r.println(fmt.Sprintf("%s • %d of %d rounds played • %d players",
		s.Status, s.CompletedRounds, s.MaxRounds, s.TotalPlayers))
	if s.Duration > 0 {
		r.println(fmt.Sprintf("Duration: %s", s.Duration.Round(time.Second)))
	}
	r.println("")

	rows := make([][]string, 0, len(s.Standings))
	for _, st := range s.Standings {
		name := st.Name
		if s.Winner != nil && st.PlayerID == s.Winner.PlayerID {
			name = r.st.Winner.Render(name)
		}
		rows = append(rows, []string{
			strconv.Itoa(st.Rank),
			name,
			r.points(st.TotalPoints),
			fmt.Sprintf("%d/%d", st.CorrectGuesses, st.ScoredRounds),
			fmt.Sprintf("%.0f%%", st.Accuracy*100),
			fmt.Sprintf("%.1f", st.AvgPointsPerRound),
		})
	}
	r.table([]string{"#", "PLAYER", "POINTS", "CORRECT", "ACCURACY", "AVG"}, rows)

	if s.Winner != nil && s.CompletedRounds > 0 {
		r.println("")
		r.println(fmt.Sprintf("Winner: %s with %d points (spread %d)",
			r.st.Winner.Render(s.Winner.Name), s.Winner.TotalPoints, s.PointSpread))
	}
}

func displayName(names map[string]string, id string) string {
	if name, ok := names[id]; ok {
		return name
	}
	return id
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
