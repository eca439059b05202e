package main

import (
	"context"
	"fmt"
)

type PlayerCmd struct {
	Add    PlayerAddCmd    `cmd:"" help:"Add a player"`
	Rename PlayerRenameCmd `cmd:"" help:"Rename a player"`
	Rm     PlayerRmCmd     `cmd:"" help:"Remove a player who has no games"`
	Ls     PlayerLsCmd     `cmd:"" default:"1" help:"List players"`
}

type PlayerAddCmd struct {
	Name string `arg:"" help:"Nickname"`
}

func (c *PlayerAddCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.engine.CreatePlayer(ctx, c.Name)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added %s (%s)\n", p.Name, p.ID)
	return nil
}

type PlayerRenameCmd struct {
	Player string `arg:"" help:"Player name or id"`
	Name   string `arg:"" help:"New nickname"`
}

func (c *PlayerRenameCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.resolvePlayer(ctx, c.Player)
	if err != nil {
		return err
	}
	old := p.Name
	if p, err = a.engine.RenamePlayer(ctx, p.ID, c.Name); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Renamed %s to %s\n", old, p.Name)
	return nil
}

type PlayerRmCmd struct {
	Player string `arg:"" help:"Player name or id"`
}

func (c *PlayerRmCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	p, err := a.resolvePlayer(ctx, c.Player)
	if err != nil {
		return err
	}
	if err := a.engine.DeletePlayer(ctx, p.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed %s\n", p.Name)
	return nil
}

type PlayerLsCmd struct{}

func (c *PlayerLsCmd) Run(g *Globals) error {
	ctx := context.Background()
	a, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	players, err := a.engine.ListPlayers(ctx)
	if err != nil {
		return err
	}
	newRenderer(a.out).players(players)
	return nil
}
