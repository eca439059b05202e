package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/lox/rikiki/internal/game"
	"github.com/lox/rikiki/internal/rules"
)

type playerRequest struct {
	Name string `json:"name" binding:"required"`
}

type createGameRequest struct {
	PlayerIDs     []string `json:"player_ids" binding:"required,min=2"`
	Deck          string   `json:"deck"`
	ForceConflict *bool    `json:"force_conflict"`
}

type guessesRequest struct {
	Guesses map[string]int `json:"guesses" binding:"required"`
}

type resultsRequest struct {
	Hits map[string]int `json:"hits" binding:"required"`
}

type editRequest struct {
	Edits []game.Edit `json:"edits" binding:"required,min=1"`
}

func (s *Server) listPlayers(c *gin.Context) {
	players, err := s.engine.ListPlayers(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	if players == nil {
		players = []game.Player{}
	}
	c.JSON(http.StatusOK, gin.H{"players": players})
}

func (s *Server) createPlayer(c *gin.Context) {
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	p, err := s.engine.CreatePlayer(c.Request.Context(), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (s *Server) getPlayer(c *gin.Context) {
	p, err := s.engine.GetPlayer(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) renamePlayer(c *gin.Context) {
	var req playerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	p, err := s.engine.RenamePlayer(c.Request.Context(), c.Param("id"), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) deletePlayer(c *gin.Context) {
	if err := s.engine.DeletePlayer(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// parseGameFilter reads ?status= and ?player=. The status "history" selects
// every finished game.
func parseGameFilter(c *gin.Context) (game.GameFilter, error) {
	filter := game.GameFilter{PlayerID: c.Query("player")}
	for _, raw := range c.QueryArray("status") {
		for _, name := range strings.Split(raw, ",") {
			name = strings.TrimSpace(name)
			if name == "" {
				continue
			}
			if name == "history" {
				filter.Statuses = append(filter.Statuses, game.StatusCompleted, game.StatusEndedEarly)
				continue
			}
			st, err := game.ParseStatus(name)
			if err != nil {
				return game.GameFilter{}, err
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}
	return filter, nil
}

func (s *Server) listGames(c *gin.Context) {
	filter, err := parseGameFilter(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	games, err := s.engine.ListGames(c.Request.Context(), filter)
	if err != nil {
		s.fail(c, err)
		return
	}
	if games == nil {
		games = []*game.Game{}
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

func (s *Server) createGame(c *gin.Context) {
	var req createGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}

	deck := s.defaults.Deck
	if req.Deck != "" {
		parsed, err := rules.ParseDeckSize(req.Deck)
		if err != nil {
			s.fail(c, game.Wrap(game.CodeInvalidConfiguration, err))
			return
		}
		deck = parsed
	}
	forceConflict := s.defaults.ForceConflict
	if req.ForceConflict != nil {
		forceConflict = *req.ForceConflict
	}

	g, err := s.engine.CreateGame(c.Request.Context(), game.NewGame{
		PlayerIDs:     req.PlayerIDs,
		Deck:          deck,
		ForceConflict: forceConflict,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, g)
}

func (s *Server) viewGame(c *gin.Context) {
	v, err := s.engine.View(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func (s *Server) deleteGame(c *gin.Context) {
	if err := s.engine.DeleteGame(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func roundParam(c *gin.Context) (int, error) {
	n, err := strconv.Atoi(c.Param("round"))
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid round %q", c.Param("round"))
	}
	return n, nil
}

func (s *Server) submitGuesses(c *gin.Context) {
	round, err := roundParam(c)
	if err != nil {
		s.badRequest(c, err)
		return
	}
	var req guessesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	g, err := s.engine.SubmitGuesses(c.Request.Context(), c.Param("id"), round, req.Guesses)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) submitResults(c *gin.Context) {
	round, err := roundParam(c)
	if err != nil {
		s.badRequest(c, err)
		return
	}
	var req resultsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	g, err := s.engine.SubmitResults(c.Request.Context(), c.Param("id"), round, req.Hits)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) endGame(c *gin.Context) {
	g, err := s.engine.ForceEndGame(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) editGame(c *gin.Context) {
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.badRequest(c, err)
		return
	}
	g, err := s.engine.EditHistorical(c.Request.Context(), c.Param("id"), req.Edits)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) recomputeTotals(c *gin.Context) {
	g, err := s.engine.RecomputeTotals(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

func (s *Server) summary(c *gin.Context) {
	sum, err := s.engine.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (s *Server) backfill(c *gin.Context) {
	n, err := s.engine.BackfillTimestamps(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": n})
}

func (s *Server) subscribe(c *gin.Context) {
	id := c.Param("id")
	if s.hub == nil {
		s.fail(c, game.Errorf(game.CodeNotFound, "live feed is not enabled"))
		return
	}
	if _, err := s.engine.GetGame(c.Request.Context(), id); err != nil {
		s.fail(c, err)
		return
	}
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already replied
		s.logger.Warn().Err(err).Str("game_id", id).Msg("Failed to upgrade connection")
		return
	}
	s.hub.serve(c.Request.Context(), id, conn)
}
