package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ludeme/Ludii-sub005/engine"
	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
	"github.com/Ludeme/Ludii-sub005/umpire"
	chess "github.com/garlicgarrison/go-chess"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"lukechampine.com/frand"
)

// selfPlay plays the engine against itself under the umpire.
type selfPlay struct {
	cfg         engine.Config
	tables      *gm.Tables
	log         zerolog.Logger
	maxPlies    int
	maxAttempts int
}

// gameRecord summarises one finished game.
type gameRecord struct {
	ID      uuid.UUID
	Outcome umpire.Outcome
	// Winner is only meaningful after a checkmate.
	Winner    gm.Color
	Plies     int
	Illegal   [2]int
	Resets    [2]int
	Fallbacks int
	PGN       string
}

func newSelfPlay(cfg engine.Config, log zerolog.Logger) *selfPlay {
	return &selfPlay{
		cfg:         cfg,
		tables:      gm.NewTables(),
		log:         log,
		maxPlies:    300,
		maxAttempts: 64,
	}
}

// play runs one game to its end or to the ply limit.
func (sp *selfPlay) play(ctx context.Context) (*gameRecord, error) {
	rec := &gameRecord{ID: uuid.New()}
	log := sp.log.With().Str("game", rec.ID.String()).Logger()
	ump := umpire.New(sp.tables, log)
	var players [2]*engine.Player
	for _, c := range []gm.Color{gm.White, gm.Black} {
		players[c] = engine.NewPlayer(sp.cfg, sp.tables, engine.GameConfiguration{Side: c}, log)
	}

	game := chess.NewGame()
	game.AddTagPair("Event", "Kriegspiel self-play")
	game.AddTagPair("Site", rec.ID.String())
	game.AddTagPair("Date", time.Now().Format("2006.01.02"))
	game.AddTagPair("White", "kriegspiel")
	game.AddTagPair("Black", "kriegspiel")

	for rec.Plies < sp.maxPlies {
		if err := ctx.Err(); err != nil {
			return rec, err
		}
		side := ump.ToMove()
		mover, other := players[side], players[side.Other()]

		a, err := sp.turn(ctx, ump, mover, rec, side)
		if err != nil {
			return rec, err
		}
		if err := mover.Handle(engine.LegalMove{Move: a.Move, Capture: a.Capture, Checks: a.Checks, PawnTries: a.PawnTries}); err != nil {
			log.Warn().Err(err).Str("side", side.String()).Msg("own move rejected by belief")
		}
		if err := other.Handle(engine.OpponentMove{CaptureSquare: a.CaptureSquare, Checks: a.Checks, PawnTries: a.PawnTries}); err != nil {
			log.Warn().Err(err).Str("side", side.Other().String()).Msg("opponent move rejected by belief")
		}
		if err := record(game, a.Move); err != nil {
			return rec, err
		}
		rec.Plies++
		if a.Outcome != umpire.Ongoing {
			rec.Outcome = a.Outcome
			rec.Winner = side
			break
		}
	}
	if rec.Outcome == umpire.Ongoing {
		rec.Outcome = umpire.Draw
	}
	for c, p := range players {
		rec.Resets[c] = p.Resets()
	}
	rec.PGN = game.String()
	log.Info().Str("outcome", rec.Outcome.String()).Int("plies", rec.Plies).
		Ints("illegal", rec.Illegal[:]).Ints("resets", rec.Resets[:]).Int("fallbacks", rec.Fallbacks).Msg("game over")
	return rec, nil
}

// turn lets the mover try moves until the umpire accepts one. After too
// many rejections a random legal move is played for it.
func (sp *selfPlay) turn(ctx context.Context, ump *umpire.Umpire, mover *engine.Player, rec *gameRecord, side gm.Color) (umpire.Announcement, error) {
	for attempt := 0; attempt < sp.maxAttempts; attempt++ {
		m, _, err := mover.BestMove(ctx)
		if errors.Is(err, engine.ErrNoMoves) {
			break
		}
		if err != nil {
			return umpire.Announcement{}, err
		}
		a, err := ump.Try(m)
		if err != nil {
			return umpire.Announcement{}, err
		}
		if a.Legal {
			return a, nil
		}
		rec.Illegal[side]++
		if err := mover.Handle(engine.IllegalMove{Move: m}); err != nil {
			sp.log.Warn().Err(err).Str("move", m.String()).Msg("illegal move rejected by belief")
		}
	}

	legal := ump.Legal()
	if len(legal) == 0 {
		return umpire.Announcement{}, fmt.Errorf("no legal move for %s at ply %d", side, ump.Plies())
	}
	rec.Fallbacks++
	m := legal[frand.Intn(len(legal))]
	sp.log.Debug().Str("side", side.String()).Str("move", m.String()).Msg("falling back to a random legal move")
	return ump.Try(m)
}

func record(game *chess.Game, m gm.Move) error {
	mv, err := chess.UCINotation{}.Decode(game.Position(), m.String())
	if err != nil {
		return fmt.Errorf("record %s: %w", m, err)
	}
	if err := game.Move(mv); err != nil {
		return fmt.Errorf("record %s: %w", m, err)
	}
	return nil
}
