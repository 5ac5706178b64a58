package main

import (
	"context"
	"strings"
	"testing"

	"github.com/Ludeme/Ludii-sub005/umpire"
	"github.com/rs/zerolog"
)

func TestSelfPlayShortGame(t *testing.T) {
	sp := newSelfPlay(testConfig(), zerolog.Nop())
	sp.maxPlies = 4
	rec, err := sp.play(context.Background())
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if rec.Plies != 4 || rec.Outcome != umpire.Draw {
		t.Fatalf("plies %d outcome %s", rec.Plies, rec.Outcome)
	}
	if !strings.Contains(rec.PGN, rec.ID.String()) {
		t.Fatalf("game id missing from PGN:\n%s", rec.PGN)
	}
	if !strings.Contains(rec.PGN, "1.") || !strings.Contains(rec.PGN, "2.") {
		t.Fatalf("moves missing from PGN:\n%s", rec.PGN)
	}
}

func TestSelfPlayFallsBackToRandomMoves(t *testing.T) {
	sp := newSelfPlay(testConfig(), zerolog.Nop())
	sp.maxPlies = 6
	sp.maxAttempts = 0
	rec, err := sp.play(context.Background())
	if err != nil {
		t.Fatalf("play: %v", err)
	}
	if rec.Fallbacks != rec.Plies || rec.Illegal != [2]int{} {
		t.Fatalf("fallbacks %d for %d plies, illegal %v", rec.Fallbacks, rec.Plies, rec.Illegal)
	}
}

func TestSelfPlayCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newSelfPlay(testConfig(), zerolog.Nop()).play(ctx); err == nil {
		t.Fatalf("cancelled game should stop")
	}
}
