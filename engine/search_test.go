package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
	"github.com/rs/zerolog"
)

func testSearchConfig() Config {
	cfg := DefaultConfig()
	cfg.SearchDepth = 1
	cfg.Workers = 2
	cfg.MoveTime = 5 * time.Second
	cfg.RandomTieBreak = false
	return cfg
}

func contains(moves []gm.Move, m gm.Move) bool {
	for _, c := range moves {
		if c.Equal(m) && c.Promotion == m.Promotion {
			return true
		}
	}
	return false
}

func TestBestMoveFromStart(t *testing.T) {
	cfg := testSearchConfig()
	pb := NewProbabilityBoard(cfg, testTables, gm.White, zerolog.Nop())
	sr := NewSearcher(cfg, zerolog.Nop())
	m, v, err := sr.BestMove(context.Background(), pb)
	if err != nil {
		t.Fatalf("BestMove: %v", err)
	}
	if !contains(pb.PseudoLegalMoves(), m) {
		t.Fatalf("%s is not a candidate move", m)
	}
	if sr.Stats().Nodes.Load() == 0 {
		t.Fatalf("no nodes searched")
	}
	tree := sr.Tree()
	if tree == nil || len(tree.Children) != 20 {
		t.Fatalf("expected 20 root children")
	}
	if tree.Propagated != v {
		t.Fatalf("root value %f, returned %f", tree.Propagated, v)
	}
	if pb.Friendly(m.From) != m.Piece {
		t.Fatalf("search changed the board")
	}
}

func TestBestMoveRespectsBans(t *testing.T) {
	cfg := testSearchConfig()
	pb := NewProbabilityBoard(cfg, testTables, gm.White, zerolog.Nop())
	sr := NewSearcher(cfg, zerolog.Nop())
	first, _, err := sr.BestMove(context.Background(), pb)
	if err != nil {
		t.Fatal(err)
	}
	pb.bans[first.Key()] = 1
	second, _, err := sr.BestMove(context.Background(), pb)
	if err != nil {
		t.Fatal(err)
	}
	if second.Equal(first) {
		t.Fatalf("banned move %s proposed again", first)
	}
}

func TestBestMoveCancelledStillAnswers(t *testing.T) {
	cfg := testSearchConfig()
	pb := NewProbabilityBoard(cfg, testTables, gm.White, zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m, _, err := NewSearcher(cfg, zerolog.Nop()).BestMove(ctx, pb)
	if err != nil {
		t.Fatalf("cancelled search should fall back to ordering, got %v", err)
	}
	if !contains(pb.PseudoLegalMoves(), m) {
		t.Fatalf("fallback %s is not a candidate", m)
	}
}

func TestBestMoveWithoutPieces(t *testing.T) {
	cfg := testSearchConfig()
	pb := NewProbabilityBoard(cfg, testTables, gm.White, zerolog.Nop())
	pb.friendly.Fill(gm.Empty)
	if _, _, err := NewSearcher(cfg, zerolog.Nop()).BestMove(context.Background(), pb); !errors.Is(err, ErrNoMoves) {
		t.Fatalf("expected ErrNoMoves, got %v", err)
	}
}

func TestExpectWeighsRejection(t *testing.T) {
	cfg := testSearchConfig()
	s := startState(t)
	tc := NewTurnContext(cfg, s)
	sr := NewSearcher(cfg, zerolog.Nop())
	static := Evaluate(s, tc)
	m := move(t, "e2e4", gm.Pawn)

	sure, child, err := sr.expect(context.Background(), s, tc, nil, static, m, 1, 1, 0)
	if err != nil || child == nil {
		t.Fatalf("expect: %v", err)
	}
	never, _, err := sr.expect(context.Background(), s, tc, nil, static, m, 0, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	// e3 and e4 are known empty, so a rejection teaches nothing.
	if never != static-IllegalPenalty {
		t.Fatalf("a move that is never accepted is worth %f, want %f", never, static-IllegalPenalty)
	}
	half, _, _ := sr.expect(context.Background(), s, tc, nil, static, m, 0.5, 1, 0)
	if !approx(half, (sure+never)/2, 1e-9) {
		t.Fatalf("expectation not linear in acceptance: %f vs %f", half, (sure+never)/2)
	}
}

func TestMoveOrdererHistory(t *testing.T) {
	o := NewMoveOrderer()
	s := startState(t)
	a, b := move(t, "a2a3", gm.Pawn), move(t, "h2h3", gm.Pawn)
	o.Accepted(a, false)
	o.Rejected(b)
	ordered := o.Order(s, []gm.Move{b, a}, []float64{1, 1}, 1)
	if !ordered[0].move.Equal(a) {
		t.Fatalf("accepted move should be tried first")
	}
	o.Killer(b, 1)
	ordered = o.Order(s, []gm.Move{a, b}, []float64{1, 1}, 1)
	if !ordered[0].move.Equal(b) {
		t.Fatalf("killer should outrank history")
	}
}

func TestExpectValuesRejectedSnapshot(t *testing.T) {
	cfg := testSearchConfig()
	s := startState(t)
	s.set(at(t, "e3"), Uncertain(MaskOf(gm.Knight, gm.Empty)))
	tc := NewTurnContext(cfg, s)
	sr := NewSearcher(cfg, zerolog.Nop())
	m := move(t, "e2e3", gm.Pawn)

	rejected, err := s.EvolveAfterIllegalMove(m)
	if err != nil {
		t.Fatalf("illegal e2e3: %v", err)
	}
	if rejected.MayBeEmpty(at(t, "e3")) {
		t.Fatalf("a rejected push should prove e3 occupied")
	}
	never, _, err := sr.expect(context.Background(), s, tc, nil, Evaluate(s, tc), m, 0, 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if want := Evaluate(rejected, tc) - IllegalPenalty; !approx(never, want, 1e-12) {
		t.Fatalf("rejection worth %f, want %f", never, want)
	}
}

func TestCaptureOutcomesFollowField(t *testing.T) {
	s := startState(t)
	field := &gm.Grid[gm.Dist]{}
	d5 := at(t, "d5")
	field.Set(d5, gm.Dist{gm.Pawn: 0.25, gm.Knight: 0.25, gm.Empty: 0.5})
	s.set(d5, Uncertain(MaskOf(gm.Pawn, gm.Knight, gm.Empty)))

	got := captureOutcomes(s, field, move(t, "d4d5", gm.Pawn))
	want := map[gm.CaptureKind]float64{gm.PawnCapture: 0.25, gm.PieceCapture: 0.25, gm.NoCapture: 0.5}
	if len(got) != len(want) {
		t.Fatalf("outcomes %+v", got)
	}
	for _, o := range got {
		if !approx(o.weight, want[o.capture], 1e-12) {
			t.Fatalf("%s weighted %f, want %f", o.capture, o.weight, want[o.capture])
		}
	}
	for _, o := range captureOutcomes(s, field, move(t, "e4d5", gm.Pawn)) {
		if o.capture == gm.NoCapture {
			t.Fatalf("a pawn capture attempt cannot be a quiet move")
		}
	}
	if got := captureOutcomes(s, nil, move(t, "e2e4", gm.Pawn)); len(got) != 1 || got[0].capture != gm.NoCapture {
		t.Fatalf("known empty square without a field: %+v", got)
	}
}

func TestBestMoveStartsWithEmptyCache(t *testing.T) {
	cfg := testSearchConfig()
	pb := NewProbabilityBoard(cfg, testTables, gm.White, zerolog.Nop())
	sr := NewSearcher(cfg, zerolog.Nop())
	const stale = 0xDEADBEEF
	sr.tt.Store(stale, 1, gm.NullMove, 1e9)
	if _, _, err := sr.BestMove(context.Background(), pb); err != nil {
		t.Fatal(err)
	}
	if _, ok := sr.tt.Probe(stale, 1); ok {
		t.Fatalf("entries from an earlier turn survived")
	}
}
