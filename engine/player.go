package engine

import (
	"context"
	"errors"
	"fmt"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
	"github.com/rs/zerolog"
)

// Player drives one side of a game: it feeds umpire events into the belief
// and asks the searcher for moves. A Player is used from one goroutine.
type Player struct {
	cfg    Config
	log    zerolog.Logger
	board  *ProbabilityBoard
	search *Searcher

	// pending is the move we last proposed, used to recover the mover kind
	// of umpire events that only carry squares.
	pending gm.Move
	resets  int
}

// NewPlayer sets up a player for the side in gc.
func NewPlayer(cfg Config, t *gm.Tables, gc GameConfiguration, log zerolog.Logger) *Player {
	log = log.With().Str("side", gc.Side.String()).Logger()
	return &Player{
		cfg:     cfg,
		log:     log,
		board:   NewProbabilityBoard(cfg, t, gc.Side, log),
		search:  NewSearcher(cfg, log),
		pending: gm.NullMove,
	}
}

func (p *Player) Board() *ProbabilityBoard { return p.board }
func (p *Player) Searcher() *Searcher      { return p.search }

// Resets counts how often the belief fell back to the uniform prior.
func (p *Player) Resets() int { return p.resets }

// BestMove proposes the next move to attempt.
func (p *Player) BestMove(ctx context.Context) (gm.Move, float64, error) {
	m, v, err := p.search.BestMove(ctx, p.board)
	if err != nil {
		return gm.NullMove, 0, err
	}
	p.pending = m
	return m, v, nil
}

// Handle applies an umpire event. An event that contradicts the belief
// leaves the board as it was before the event, resets it to the uniform
// prior and is applied again; if it still cannot be applied the error is
// returned.
func (p *Player) Handle(ev Event) error {
	saved := p.board.Clone()
	err := p.apply(ev)
	if err == nil || !errors.Is(err, ErrRedistribution) {
		return err
	}
	p.board = saved
	p.log.Warn().Err(err).Str("event", ev.String()).Msg("event contradicts belief, resetting")
	p.resets++
	if rerr := p.board.ResetToUniformPrior(); rerr != nil {
		return fmt.Errorf("reset after %v: %w", err, rerr)
	}
	saved = p.board.Clone()
	if err := p.apply(ev); err != nil {
		p.board = saved
		if il, ok := ev.(IllegalMove); ok {
			// Only the inference failed; keep the ban.
			p.board.bans[p.withKind(il.Move).Key()] = p.cfg.BanPlies
			return nil
		}
		return Wrapf(err, "after reset")
	}
	return nil
}

func (p *Player) apply(ev Event) error {
	switch e := ev.(type) {
	case IllegalMove:
		m := p.withKind(e.Move)
		p.search.Orderer().Rejected(m)
		return p.board.UpdateAfterIllegalMove(m)
	case LegalMove:
		m := p.withKind(e.Move)
		p.search.Orderer().Accepted(m, e.Capture != gm.NoCapture)
		p.pending = gm.NullMove
		return p.board.EvolveAfterLegalMove(m, e.Capture, e.Checks, e.PawnTries)
	case OpponentMove:
		return p.board.EvolveAfterOpponentMove(e.CaptureSquare, e.Checks, e.PawnTries)
	default:
		return fmt.Errorf("%w: unknown event %T", ErrInvalidMoveRequest, ev)
	}
}

// withKind fills in the mover of m from our placement when the event came
// from a source that does not know piece kinds.
func (p *Player) withKind(m gm.Move) gm.Move {
	if m.Piece != gm.Empty {
		return m
	}
	if p.pending.From == m.From && p.pending.To == m.To {
		m.Piece = p.pending.Piece
		return m
	}
	m.Piece = p.board.Friendly(m.From)
	return m
}
