package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Ludeme/Ludii-sub005/engine"
	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
	"github.com/rs/zerolog"
)

// protocol speaks the line-based umpire protocol on stdin/stdout. The
// umpire sits on the other end of the pipe and reports what the player is
// allowed to know:
//
//	newgame white|black
//	go
//	legal <uci> <capture> <check1> <check2> <tries>
//	illegal <uci>
//	opponent <square|-> <check1> <check2> <tries>
//	dump
//	quit
type protocol struct {
	cfg    engine.Config
	tables *gm.Tables
	log    zerolog.Logger
	out    io.Writer
	player *engine.Player
}

func newProtocol(cfg engine.Config, out io.Writer, log zerolog.Logger) *protocol {
	return &protocol{cfg: cfg, tables: gm.NewTables(), log: log, out: out}
}

// run reads commands until quit or the end of input.
func (p *protocol) run(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		tokens := strings.Fields(scanner.Text())
		if len(tokens) == 0 { // ignore blank lines
			continue
		}
		quit, err := p.handle(ctx, tokens)
		if err != nil {
			p.log.Debug().Err(err).Str("line", scanner.Text()).Msg("command failed")
			fmt.Fprintln(p.out, "info string", err)
		}
		if quit {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return scanner.Err()
}

var errNoGame = errors.New("no game, send newgame first")

func (p *protocol) handle(ctx context.Context, tokens []string) (bool, error) {
	cmd, args := strings.ToLower(tokens[0]), tokens[1:]
	if cmd == "quit" {
		return true, nil
	}
	if cmd == "newgame" {
		return false, p.newGame(args)
	}
	if p.player == nil {
		return false, errNoGame
	}
	switch cmd {
	case "go":
		m, v, err := p.player.BestMove(ctx)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(p.out, "info value %.4f nodes %d\n", v, p.player.Searcher().Stats().Nodes.Load())
		fmt.Fprintln(p.out, "bestmove", m)
	case "legal":
		ev, err := parseLegal(args)
		if err != nil {
			return false, err
		}
		return false, p.apply(ev)
	case "illegal":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: illegal <move>")
		}
		m, err := gm.ParseMove(args[0], gm.Empty)
		if err != nil {
			return false, err
		}
		return false, p.apply(engine.IllegalMove{Move: m})
	case "opponent":
		ev, err := parseOpponent(args)
		if err != nil {
			return false, err
		}
		return false, p.apply(ev)
	case "dump":
		fmt.Fprint(p.out, p.player.Board())
	default:
		return false, fmt.Errorf("unknown command: %s", cmd)
	}
	return false, nil
}

func (p *protocol) newGame(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: newgame white|black")
	}
	side, err := gm.ParseColor(args[0])
	if err != nil {
		return err
	}
	p.player = engine.NewPlayer(p.cfg, p.tables, engine.GameConfiguration{Side: side}, p.log)
	fmt.Fprintln(p.out, "ok")
	return nil
}

func (p *protocol) apply(ev engine.Event) error {
	if err := p.player.Handle(ev); err != nil {
		return err
	}
	fmt.Fprintln(p.out, "ok")
	return nil
}

func parseLegal(args []string) (engine.LegalMove, error) {
	if len(args) != 5 {
		return engine.LegalMove{}, fmt.Errorf("usage: legal <move> <capture> <check1> <check2> <tries>")
	}
	m, err := gm.ParseMove(args[0], gm.Empty)
	if err != nil {
		return engine.LegalMove{}, err
	}
	capture, err := gm.ParseCaptureKind(args[1])
	if err != nil {
		return engine.LegalMove{}, err
	}
	checks, tries, err := parseChecksAndTries(args[2:])
	if err != nil {
		return engine.LegalMove{}, err
	}
	return engine.LegalMove{Move: m, Capture: capture, Checks: checks, PawnTries: tries}, nil
}

func parseOpponent(args []string) (engine.OpponentMove, error) {
	if len(args) != 4 {
		return engine.OpponentMove{}, fmt.Errorf("usage: opponent <square|-> <check1> <check2> <tries>")
	}
	sq := gm.NoSquare
	if args[0] != "-" {
		s, err := gm.ParseSquare(args[0])
		if err != nil {
			return engine.OpponentMove{}, err
		}
		sq = s
	}
	checks, tries, err := parseChecksAndTries(args[1:])
	if err != nil {
		return engine.OpponentMove{}, err
	}
	return engine.OpponentMove{CaptureSquare: sq, Checks: checks, PawnTries: tries}, nil
}

func parseChecksAndTries(args []string) (gm.CheckRecord, int, error) {
	c1, err := gm.ParseCheckType(args[0])
	if err != nil {
		return gm.CheckRecord{}, 0, err
	}
	c2, err := gm.ParseCheckType(args[1])
	if err != nil {
		return gm.CheckRecord{}, 0, err
	}
	tries, err := strconv.Atoi(args[2])
	if err != nil || tries < 0 {
		return gm.CheckRecord{}, 0, fmt.Errorf("malformed pawn tries %q", args[2])
	}
	return gm.NewCheckRecord(c1, c2), tries, nil
}
