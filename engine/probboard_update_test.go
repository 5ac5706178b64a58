package engine

import (
	"errors"
	"testing"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
	"github.com/Ludeme/Ludii-sub005/umpire"
	"github.com/rs/zerolog"
	"lukechampine.com/frand"
)

var halfKnight = gm.Dist{gm.Knight: 0.5, gm.Empty: 0.5}

func TestOwnPawnTries(t *testing.T) {
	tests := []struct {
		name  string
		rook  bool
		check bool
		learn bool
	}{
		{"free pawn", false, false, true},
		{"pinned pawn", true, false, false},
		{"in check", false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := blankBoard(gm.White)
			pb.placeOwn(at(t, "e1"), gm.King)
			pb.placeOwn(at(t, "e3"), gm.Pawn)
			pb.placeEnemy(at(t, "a8"), gm.Certain(gm.King))
			pb.placeEnemy(at(t, "d4"), halfKnight)
			pb.placeEnemy(at(t, "b8"), halfKnight)
			if tt.rook {
				pb.placeEnemy(at(t, "e8"), gm.Certain(gm.Rook))
			}
			if tt.check {
				pb.checks = gm.NewCheckRecord(gm.KnightCheck, gm.NoCheck)
			}
			if err := pb.applyOwnPawnTries(0); err != nil {
				t.Fatalf("tries: %v", err)
			}
			d4, b8 := pb.Prob(at(t, "d4"), gm.Knight), pb.Prob(at(t, "b8"), gm.Knight)
			if tt.learn {
				if d4 != 0 || !approx(b8, 1, 1e-6) {
					t.Fatalf("knight d4 %f b8 %f", d4, b8)
				}
				return
			}
			if d4 != 0.5 || b8 != 0.5 {
				t.Fatalf("nothing should be learned, knight d4 %f b8 %f", d4, b8)
			}
		})
	}
}

func TestEnemyPawnTries(t *testing.T) {
	halfPawn := gm.Dist{gm.Pawn: 0.5, gm.Empty: 0.5}
	tests := []struct {
		name  string
		rook  bool
		given bool
		learn bool
	}{
		{"free pawn", false, false, true},
		{"pawn pinned to its king", true, false, false},
		{"after a check", false, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := blankBoard(gm.White)
			pb.placeOwn(at(t, "h1"), gm.King)
			pb.placeOwn(at(t, "e4"), gm.Knight)
			if tt.rook {
				pb.placeOwn(at(t, "d1"), gm.Rook)
			}
			pb.placeEnemy(at(t, "d8"), gm.Certain(gm.King))
			pb.placeEnemy(at(t, "d5"), halfPawn)
			pb.placeEnemy(at(t, "c7"), halfPawn)
			if tt.given {
				pb.given = gm.NewCheckRecord(gm.KnightCheck, gm.NoCheck)
			}
			if err := pb.applyEnemyPawnTries(0); err != nil {
				t.Fatalf("tries: %v", err)
			}
			d5 := pb.Prob(at(t, "d5"), gm.Pawn)
			if tt.learn != (d5 == 0) {
				t.Fatalf("pawn on d5 %f, learned %v", d5, tt.learn)
			}
		})
	}
}

// 1.e4 d5 2.Bb5+ leaves black no legal pawn capture, yet the d5 pawn still
// attacks e4.
func TestZeroTriesAfterCheckKeepPawns(t *testing.T) {
	cfg := DefaultConfig()
	u := umpire.New(testTables, zerolog.Nop())
	boards := [2]*ProbabilityBoard{
		NewProbabilityBoard(cfg, testTables, gm.White, zerolog.Nop()),
		NewProbabilityBoard(cfg, testTables, gm.Black, zerolog.Nop()),
	}
	for _, str := range []string{"e2e4", "d7d5", "f1b5"} {
		mover := u.ToMove()
		m, err := gm.ParseMove(str, gm.Empty)
		if err != nil {
			t.Fatal(err)
		}
		a, err := u.Try(m)
		if err != nil || !a.Legal {
			t.Fatalf("%s: %v", str, err)
		}
		if err := boards[mover].EvolveAfterLegalMove(a.Move, a.Capture, a.Checks, a.PawnTries); err != nil {
			t.Fatalf("%s mover: %v", str, err)
		}
		if err := boards[mover.Other()].EvolveAfterOpponentMove(a.CaptureSquare, a.Checks, a.PawnTries); err != nil {
			t.Fatalf("%s opponent: %v", str, err)
		}
	}
	if p := boards[gm.White].Prob(at(t, "d5"), gm.Pawn); p <= 0 {
		t.Fatalf("white dropped the d5 pawn")
	}
	if p := boards[gm.Black].Prob(at(t, "e4"), gm.Pawn); p <= 0 {
		t.Fatalf("black dropped the e4 pawn")
	}
}

func TestCheckEvidence(t *testing.T) {
	halfRook := gm.Dist{gm.Rook: 0.5, gm.Empty: 0.5}
	halfBishop := gm.Dist{gm.Bishop: 0.5, gm.Empty: 0.5}
	type mass struct {
		sq   string
		kind gm.Piece
		want float64
	}
	tests := []struct {
		name    string
		enemy   map[string]gm.Dist
		check   func(king gm.Square) gm.CheckType
		want    []mass
		wantErr error
	}{
		{
			name:  "file",
			enemy: map[string]gm.Dist{"e8": halfRook, "a3": halfRook},
			check: func(gm.Square) gm.CheckType { return gm.FileCheck },
			want:  []mass{{"e8", gm.Rook, 1}, {"a3", gm.Rook, 0}},
		},
		{
			name: "knight",
			enemy: map[string]gm.Dist{
				"d3": {gm.Knight: 0.25, gm.Empty: 0.75},
				"g6": {gm.Knight: 0.75, gm.Empty: 0.25},
			},
			check: func(gm.Square) gm.CheckType { return gm.KnightCheck },
			want:  []mass{{"d3", gm.Knight, 1}, {"g6", gm.Knight, 0}},
		},
		{
			name:  "diagonal",
			enemy: map[string]gm.Dist{"h4": halfBishop, "a6": halfBishop},
			check: func(king gm.Square) gm.CheckType { return gm.DiagonalCheckType(king, gm.NorthEast) },
			want:  []mass{{"h4", gm.Bishop, 1}, {"a6", gm.Bishop, 0}},
		},
		{
			name:    "no attacker",
			enemy:   map[string]gm.Dist{"a3": halfRook, "b3": halfRook},
			check:   func(gm.Square) gm.CheckType { return gm.FileCheck },
			wantErr: ErrNoAttacker,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pb := blankBoard(gm.White)
			king := at(t, "e1")
			pb.placeOwn(king, gm.King)
			pb.placeEnemy(at(t, "a8"), gm.Certain(gm.King))
			for sq, d := range tt.enemy {
				pb.placeEnemy(at(t, sq), d)
			}
			err := pb.applyCheckEvidence(gm.NewCheckRecord(tt.check(king), gm.NoCheck))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("evidence: %v", err)
			}
			for _, w := range tt.want {
				if got := pb.Prob(at(t, w.sq), w.kind); !approx(got, w.want, 1e-3) {
					t.Errorf("%s %s = %f, want %f", w.kind, w.sq, got, w.want)
				}
				if w.want > 0 && !pb.checks.Candidates.Has(at(t, w.sq)) {
					t.Errorf("%s missing from the candidates", w.sq)
				}
			}
			if err := pb.CheckInvariants(1e-3); err != nil {
				t.Fatal(err)
			}
		})
	}
}

func TestGivenDiscoveredCheck(t *testing.T) {
	setup := func() *ProbabilityBoard {
		pb := blankBoard(gm.White)
		pb.placeOwn(at(t, "h1"), gm.King)
		pb.placeOwn(at(t, "e1"), gm.Rook)
		pb.placeOwn(at(t, "c5"), gm.Knight)
		for _, sq := range []string{"e6", "e7", "e8", "d7"} {
			pb.placeEnemy(at(t, sq), gm.Dist{gm.King: 0.25, gm.Empty: 0.75})
		}
		return pb
	}
	m := move(t, "e4c5", gm.Knight)

	pb := setup()
	if err := pb.applyGivenChecks(m, gm.NewCheckRecord(gm.FileCheck, gm.NoCheck)); err != nil {
		t.Fatalf("discovered file check: %v", err)
	}
	if p := pb.Prob(at(t, "d7"), gm.King); p != 0 {
		t.Fatalf("king kept on d7: %f", p)
	}
	for _, sq := range []string{"e6", "e7", "e8"} {
		if p := pb.Prob(at(t, sq), gm.King); !approx(p, 1.0/3, 1e-3) {
			t.Errorf("king on %s = %f", sq, p)
		}
	}

	err := setup().applyGivenChecks(m, gm.NewCheckRecord(gm.RankCheck, gm.NoCheck))
	if !errors.Is(err, ErrNoKingCandidate) {
		t.Fatalf("expected ErrNoKingCandidate, got %v", err)
	}
}

func TestMoveProbabilityScalesPinnedPieces(t *testing.T) {
	tests := []struct {
		piece gm.Piece
		move  string
		want  float64
	}{
		{gm.Knight, "e2c3", 0.5},
		{gm.Rook, "e2e5", 1},
		{gm.Rook, "e2d2", 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.move, func(t *testing.T) {
			pb := blankBoard(gm.White)
			pb.placeOwn(at(t, "e1"), gm.King)
			pb.placeOwn(at(t, "e2"), tt.piece)
			pb.placeEnemy(at(t, "a8"), gm.Certain(gm.King))
			pb.placeEnemy(at(t, "e8"), gm.Dist{gm.Rook: 0.5, gm.Empty: 0.5})
			if got := pb.MoveProbability(move(t, tt.move, tt.piece)); !approx(got, tt.want, 1e-9) {
				t.Fatalf("got %f, want %f", got, tt.want)
			}
		})
	}
}

// TestRandomGamesStayConsistent replays umpire games of random legal moves
// into both beliefs and the mover's snapshot. Every announcement comes from
// a real position, so no update may fail.
func TestRandomGamesStayConsistent(t *testing.T) {
	const games, plies = 4, 40
	cfg := DefaultConfig()
	rng := frand.NewCustom(make([]byte, 32), 32, 12)
	for g := 0; g < games; g++ {
		u := umpire.New(testTables, zerolog.Nop())
		boards := [2]*ProbabilityBoard{
			NewProbabilityBoard(cfg, testTables, gm.White, zerolog.Nop()),
			NewProbabilityBoard(cfg, testTables, gm.Black, zerolog.Nop()),
		}
		for ply := 0; ply < plies; ply++ {
			legal := u.Legal()
			if len(legal) == 0 {
				break
			}
			mover := u.ToMove()
			a, err := u.Try(legal[rng.Intn(len(legal))])
			if err != nil {
				t.Fatal(err)
			}
			where := func(stage string) string {
				return u.FEN() + " after " + a.Move.String() + " (" + stage + ")"
			}
			if _, err := NewCompactState(boards[mover]).EvolveAfterMove(a.Move, a.Capture, a.Checks, a.PawnTries); err != nil {
				t.Fatalf("game %d %s: %v", g, where("snapshot"), err)
			}
			if err := boards[mover].EvolveAfterLegalMove(a.Move, a.Capture, a.Checks, a.PawnTries); err != nil {
				t.Fatalf("game %d %s: %v", g, where("mover"), err)
			}
			if err := boards[mover.Other()].EvolveAfterOpponentMove(a.CaptureSquare, a.Checks, a.PawnTries); err != nil {
				t.Fatalf("game %d %s: %v", g, where("opponent"), err)
			}
			for _, b := range boards {
				if err := b.CheckInvariants(1e-3); err != nil {
					t.Fatalf("game %d %s: %v", g, where(b.Side().String()), err)
				}
			}
			if a.Outcome != umpire.Ongoing {
				break
			}
		}
	}
}
