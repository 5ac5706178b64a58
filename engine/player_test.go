package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
	"github.com/rs/zerolog"
)

func newTestPlayer(side gm.Color) *Player {
	return NewPlayer(testSearchConfig(), testTables, GameConfiguration{Side: side}, zerolog.Nop())
}

func TestPlayerFollowsGame(t *testing.T) {
	p := newTestPlayer(gm.White)
	m, _, err := p.BestMove(context.Background())
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	// Umpire events carry squares only.
	bare := gm.NewMove(m.From, m.To, gm.Empty)
	if err := p.Handle(LegalMove{Move: bare}); err != nil {
		t.Fatalf("legal: %v", err)
	}
	if p.Board().Friendly(m.To) != m.Piece || p.Board().Friendly(m.From) != gm.Empty {
		t.Fatalf("mover kind not recovered for %s", m)
	}
	if err := p.Handle(OpponentMove{CaptureSquare: gm.NoSquare}); err != nil {
		t.Fatalf("opponent: %v", err)
	}
	if p.Board().Ply() != 2 {
		t.Fatalf("ply %d", p.Board().Ply())
	}
	if err := p.Board().CheckInvariants(1e-3); err != nil {
		t.Fatalf("invariants: %v", err)
	}
	if p.Resets() != 0 {
		t.Fatalf("consistent game should not reset")
	}
}

func TestPlayerResetsOnContradiction(t *testing.T) {
	p := newTestPlayer(gm.White)
	// e3 is certainly empty, so an unpinned push there cannot be illegal.
	ev := IllegalMove{Move: move(t, "e2e3", gm.Empty)}
	if err := p.Handle(ev); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if p.Resets() != 1 {
		t.Fatalf("resets %d", p.Resets())
	}
	if !p.Board().Banned(move(t, "e2e3", gm.Pawn)) {
		t.Fatalf("rejected move should stay banned")
	}
	if p.Board().Dist(at(t, "e3"))[gm.Empty] >= 1 {
		t.Fatalf("uniform prior should spread mass over e3")
	}
	if err := p.Board().CheckInvariants(1e-3); err != nil {
		t.Fatalf("invariants after reset: %v", err)
	}
}

func TestPlayerRejectsInvalidMoves(t *testing.T) {
	p := newTestPlayer(gm.Black)
	err := p.Handle(LegalMove{Move: move(t, "e2e4", gm.Empty)})
	if !errors.Is(err, ErrInvalidMoveRequest) {
		t.Fatalf("moving from an empty square should be invalid, got %v", err)
	}
	if p.Resets() != 0 {
		t.Fatalf("an invalid request is not a contradiction")
	}
}

func TestEventStrings(t *testing.T) {
	m := move(t, "e2e4", gm.Pawn)
	tests := []struct {
		ev   Event
		want string
	}{
		{IllegalMove{Move: m}, "illegal e2e4"},
		{LegalMove{Move: m, PawnTries: 2}, "legal e2e4"},
		{OpponentMove{CaptureSquare: gm.NoSquare}, "opponent capture=-"},
		{OpponentMove{CaptureSquare: at(t, "d5"), PawnTries: 1}, "capture=d5"},
	}
	for _, tt := range tests {
		if got := tt.ev.String(); !strings.Contains(got, tt.want) {
			t.Errorf("%q does not contain %q", got, tt.want)
		}
	}
}
