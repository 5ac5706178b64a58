package engine

import (
	"errors"
	"testing"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
	"github.com/google/go-cmp/cmp"
)

// blankState is a hand-assembled snapshot: every square known empty.
func blankState(side gm.Color) *CompactState {
	s := &CompactState{t: testTables, geom: gm.NewCheckGeometry(testTables), side: side}
	for sq := range s.squares {
		s.squares[sq] = Uncertain(EmptyOnly)
	}
	s.hdr.king = gm.NoSquare
	s.hdr.doublePush = gm.NoSquare
	s.rehash()
	return s
}

func (s *CompactState) place(sq gm.Square, p gm.Piece) {
	s.SetFriendlyPiece(sq, p)
	if p == gm.King {
		s.hdr.king = sq
	}
}

func startState(t *testing.T) *CompactState {
	t.Helper()
	return NewCompactState(newTestBoard(gm.White))
}

func TestPieceMask(t *testing.T) {
	m := MaskOf(gm.Pawn, gm.Empty)
	if !m.Has(gm.Pawn) || !m.Has(gm.Empty) || m.Has(gm.King) {
		t.Fatalf("mask %07b", m)
	}
	if m.Pieces() != MaskOf(gm.Pawn) {
		t.Fatalf("Pieces kept Empty: %07b", m.Pieces())
	}
	f := Friendly(gm.Rook)
	if !f.IsFriendly() || f.Kind() != gm.Rook || f.Mask() != 0 {
		t.Fatalf("friendly state %08b", f)
	}
	u := Uncertain(AllKinds)
	if u.IsFriendly() || u.Kind() != gm.Empty || u.Mask() != AllKinds {
		t.Fatalf("uncertain state %08b", u)
	}
}

func TestNewCompactStateFromStart(t *testing.T) {
	s := startState(t)
	if s.FriendlyPiece(at(t, "d1")) != gm.Queen || !s.IsFriendlyPiece(at(t, "h2")) {
		t.Fatalf("own pieces not copied")
	}
	if s.State(at(t, "e8")) != Uncertain(MaskOf(gm.King)) {
		t.Fatalf("e8 mask %07b", s.State(at(t, "e8")).Mask())
	}
	if s.State(at(t, "e4")) != Uncertain(EmptyOnly) {
		t.Fatalf("e4 should be known empty")
	}
	if s.KingCandidates() != gm.Bitboard(1)<<at(t, "e8") {
		t.Fatalf("king candidates %v", s.KingCandidates().Squares())
	}
	if n := len(s.Moves()); n != 20 {
		t.Fatalf("expected 20 moves, got %d", n)
	}
	if s.TotalAge() != 0 || s.EnemyMaterial(gm.Pawn) != 8 || s.OwnCount(gm.Knight) != 2 {
		t.Fatalf("header not copied")
	}
}

func TestTransitionsLeaveReceiverUntouched(t *testing.T) {
	s := startState(t)
	before := *s
	child, err := s.EvolveAfterMove(move(t, "e2e4", gm.Pawn), gm.NoCapture, gm.CheckRecord{}, 0)
	if err != nil {
		t.Fatalf("e2e4: %v", err)
	}
	if diff := cmp.Diff(before.squares, s.squares); diff != "" {
		t.Fatalf("receiver changed (-before +after):\n%s", diff)
	}
	if s.hash != before.hash || s.hdr != before.hdr {
		t.Fatalf("receiver header or hash changed")
	}
	if child.FriendlyPiece(at(t, "e4")) != gm.Pawn || child.IsFriendlyPiece(at(t, "e2")) {
		t.Fatalf("move not applied")
	}
	if child.Ply() != s.Ply()+1 {
		t.Fatalf("ply not advanced")
	}
}

func TestIncrementalBookkeeping(t *testing.T) {
	s := startState(t)
	steps := []func(*CompactState) (*CompactState, error){
		func(c *CompactState) (*CompactState, error) {
			return c.EvolveAfterMove(move(t, "e2e4", gm.Pawn), gm.NoCapture, gm.CheckRecord{}, 0)
		},
		func(c *CompactState) (*CompactState, error) {
			return c.EvolveAfterOpponentMove(gm.NoSquare, gm.CheckRecord{}, 1)
		},
		func(c *CompactState) (*CompactState, error) {
			return c.EvolveAfterMove(move(t, "g1f3", gm.Knight), gm.NoCapture, gm.CheckRecord{}, 1)
		},
		func(c *CompactState) (*CompactState, error) {
			return c.EvolveAfterOpponentMove(gm.NoSquare, gm.CheckRecord{}, 1)
		},
		func(c *CompactState) (*CompactState, error) {
			return c.EvolveAfterIllegalMove(move(t, "f1b5", gm.Bishop))
		},
	}
	for i, step := range steps {
		next, err := step(s)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		s = next

		fresh := *s
		fresh.rehash()
		if fresh.hash != s.hash {
			t.Fatalf("step %d: incremental hash %x, recomputed %x", i, s.hash, fresh.hash)
		}
		fresh.RecomputeAge()
		if fresh.totalAge != s.totalAge {
			t.Fatalf("step %d: totalAge %d, recomputed %d", i, s.totalAge, fresh.totalAge)
		}
	}
	if s.TotalAge() == 0 {
		t.Fatalf("two opponent moves should age some squares")
	}
}

func TestOnlyOpponentMovesWidenMasks(t *testing.T) {
	s0 := startState(t)
	s1, err := s0.EvolveAfterMove(move(t, "d2d4", gm.Pawn), gm.NoCapture, gm.CheckRecord{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	s2, err := s1.EvolveAfterOpponentMove(gm.NoSquare, gm.CheckRecord{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	s3, err := s2.EvolveAfterIllegalMove(move(t, "d4d5", gm.Pawn))
	if err != nil {
		t.Fatal(err)
	}
	s4, err := s3.EvolveAfterMove(move(t, "c1f4", gm.Bishop), gm.NoCapture, gm.CheckRecord{}, 0)
	if err != nil {
		t.Fatal(err)
	}

	narrows := func(name string, parent, child *CompactState) {
		for sq := gm.Square(0); sq < 64; sq++ {
			p, c := parent.State(sq), child.State(sq)
			if p.IsFriendly() || c.IsFriendly() {
				continue
			}
			if c.Mask()&^p.Mask() != 0 {
				t.Fatalf("%s widened %s from %07b to %07b", name, sq, p.Mask(), c.Mask())
			}
		}
	}
	narrows("our move", s0, s1)
	narrows("illegal move", s2, s3)
	narrows("our second move", s3, s4)

	if s3.MayBeEmpty(at(t, "d5")) {
		t.Fatalf("rejected push should prove d5 occupied")
	}
	widened := false
	for sq := gm.Square(0); sq < 64; sq++ {
		if s2.State(sq).Mask()&^s1.State(sq).Mask() != 0 {
			widened = true
		}
	}
	if !widened {
		t.Fatalf("opponent move should add possibilities")
	}
}

func TestOpponentCaptureMergesAttackers(t *testing.T) {
	s := blankState(gm.White)
	s.place(at(t, "e1"), gm.King)
	s.place(at(t, "e4"), gm.Pawn)
	s.set(at(t, "d5"), Uncertain(MaskOf(gm.Pawn, gm.Empty)))
	s.set(at(t, "f6"), Uncertain(MaskOf(gm.Knight, gm.Empty)))
	s.set(at(t, "e8"), Uncertain(MaskOf(gm.King)))
	s.hdr.own[gm.Pawn], s.hdr.own[gm.King] = 1, 1

	c, err := s.EvolveAfterOpponentMove(at(t, "e4"), gm.CheckRecord{}, 1)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if got := c.State(at(t, "e4")); got != Uncertain(MaskOf(gm.Pawn, gm.Knight)) {
		t.Fatalf("capturer mask %07b", got.Mask())
	}
	if !c.MayBeEmpty(at(t, "d5")) || !c.MayBeEmpty(at(t, "f6")) {
		t.Fatalf("origins should be allowed to be empty")
	}
	if c.OwnCount(gm.Pawn) != 0 {
		t.Fatalf("pawn not removed")
	}

	lone := blankState(gm.White)
	lone.place(at(t, "e1"), gm.King)
	lone.place(at(t, "a4"), gm.Pawn)
	if _, err := lone.EvolveAfterOpponentMove(at(t, "a4"), gm.CheckRecord{}, 0); !errors.Is(err, ErrNoAttacker) {
		t.Fatalf("capture with no attacker should fail, got %v", err)
	}
}

// Our knight leaves e4 and uncovers the rook on e1; the umpire announces a
// file check that the knight itself cannot give.
func discoveredSetup(t *testing.T) (*CompactState, gm.Move) {
	s := blankState(gm.White)
	s.place(at(t, "h1"), gm.King)
	s.place(at(t, "e1"), gm.Rook)
	s.place(at(t, "c5"), gm.Knight)
	for _, c := range []string{"e6", "e7", "e8", "d7"} {
		s.set(at(t, c), Uncertain(MaskOf(gm.King, gm.Empty)))
	}
	return s, move(t, "e4c5", gm.Knight)
}

func TestUpdateEnemyKingDiscoveredCheck(t *testing.T) {
	s, m := discoveredSetup(t)
	c := s.branch()
	if err := c.UpdateEnemyKing(m, gm.NewCheckRecord(gm.FileCheck, gm.NoCheck)); err != nil {
		t.Fatalf("discovered file check: %v", err)
	}
	want := gm.Bitboard(0)
	for _, sq := range []string{"e6", "e7", "e8"} {
		want.Set(at(t, sq))
	}
	if got := c.KingCandidates(); got != want {
		t.Fatalf("king candidates %v, want %v", got.Squares(), want.Squares())
	}
	if c.Given().Candidates != want {
		t.Fatalf("given candidates %v", c.Given().Candidates.Squares())
	}
	if c.CanContain(at(t, "d7"), gm.King) || !c.MayBeEmpty(at(t, "d7")) {
		t.Fatalf("d7 should lose the king but stay possibly empty")
	}
}

func TestUpdateEnemyKingNoCandidate(t *testing.T) {
	s, m := discoveredSetup(t)
	err := s.branch().UpdateEnemyKing(m, gm.NewCheckRecord(gm.RankCheck, gm.NoCheck))
	if !errors.Is(err, ErrNoKingCandidate) {
		t.Fatalf("expected ErrNoKingCandidate, got %v", err)
	}
	if !errors.Is(err, ErrRedistribution) {
		t.Fatalf("king inference failures are redistribution errors, got %T", err)
	}
}

func TestEstimateMatchesMaterial(t *testing.T) {
	s, err := startState(t).EvolveAfterMove(move(t, "e2e4", gm.Pawn), gm.NoCapture, gm.CheckRecord{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	s, err = s.EvolveAfterOpponentMove(gm.NoSquare, gm.CheckRecord{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	field, err := s.Estimate(DefaultConfig().redistributor())
	if err != nil {
		t.Fatalf("estimate: %v", err)
	}
	var mass gm.Dist
	for sq := gm.Square(0); sq < 64; sq++ {
		d := field.At(sq)
		if !approx(d.Sum(), 1, 1e-6) {
			t.Fatalf("%s sums to %f", sq, d.Sum())
		}
		for k := range d {
			if d[k] > 0 && !s.IsFriendlyPiece(sq) && !s.CanContain(sq, gm.Piece(k)) {
				t.Fatalf("%s got mass for impossible %s", sq, gm.Piece(k))
			}
			mass[k] += d[k]
		}
	}
	for k := gm.Pawn; k < gm.NumPieces; k++ {
		if !approx(mass[k], s.EnemyMaterial(k), 1e-3) {
			t.Fatalf("%s mass %f, material %f", k, mass[k], s.EnemyMaterial(k))
		}
	}
}

func TestMoveProbability(t *testing.T) {
	s := startState(t)
	if p := s.MoveProbability(move(t, "e2e4", gm.Pawn)); p != 1 {
		t.Fatalf("push through known empty squares: %f", p)
	}
	s.set(at(t, "e3"), Uncertain(MaskOf(gm.Knight, gm.Empty)))
	if p := s.MoveProbability(move(t, "e2e4", gm.Pawn)); p <= 0 || p >= 1 {
		t.Fatalf("uncertain path should give a probability in (0,1), got %f", p)
	}
}

func TestHashSeparatesHeaderState(t *testing.T) {
	base := startState(t)
	tests := []struct {
		name   string
		change func(s *CompactState)
	}{
		{"opponent material", func(s *CompactState) { s.hdr.enemy[gm.Knight] = 1.5 }},
		{"ages", func(s *CompactState) { s.setAge(at(t, "e7"), 3) }},
		{"castling", func(s *CompactState) { s.hdr.castle.kingMoved = true }},
		{"double push", func(s *CompactState) { s.hdr.doublePush = at(t, "e4") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base.branch()
			if s.Hash() != base.Hash() {
				t.Fatalf("a plain copy should hash the same")
			}
			tt.change(s)
			if s.squares != base.squares {
				t.Fatalf("setup changed the masks")
			}
			if s.Hash() == base.Hash() {
				t.Fatalf("equal masks with different %s share a key", tt.name)
			}
		})
	}
}

func TestCompactPawnCaptureRemovesTheRightVictim(t *testing.T) {
	tests := []struct {
		name    string
		pawn    string
		victim  string
		kind    gm.Piece
		move    string
		capture gm.CaptureKind
	}{
		{"piece on the diagonal", "e3", "d4", gm.Queen, "e3d4", gm.PieceCapture},
		{"en passant", "e5", "d5", gm.Pawn, "e5d6", gm.PawnCapture},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := blankState(gm.White)
			s.place(at(t, "e1"), gm.King)
			s.place(at(t, tt.pawn), gm.Pawn)
			s.hdr.own[gm.King], s.hdr.own[gm.Pawn] = 1, 1
			s.set(at(t, "e8"), Uncertain(MaskOf(gm.King)))
			s.set(at(t, tt.victim), Uncertain(MaskOf(tt.kind)))
			s.hdr.enemy[gm.King], s.hdr.enemy[tt.kind] = 1, 1

			m := move(t, tt.move, gm.Pawn)
			c, err := s.EvolveAfterMove(m, tt.capture, gm.CheckRecord{}, 0)
			if err != nil {
				t.Fatalf("%s: %v", tt.move, err)
			}
			if c.EnemyMaterial(tt.kind) != 0 {
				t.Fatalf("%s not taken off the material", tt.kind)
			}
			if v := at(t, tt.victim); !c.IsFriendlyPiece(v) && c.State(v) != Uncertain(EmptyOnly) {
				t.Fatalf("victim square %s mask %07b", v, c.State(v).Mask())
			}
			if c.FriendlyPiece(m.To) != gm.Pawn {
				t.Fatalf("pawn did not land on %s", m.To)
			}
		})
	}
}

func TestCompactZeroTriesInference(t *testing.T) {
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
			s := blankState(gm.White)
			s.place(at(t, "e1"), gm.King)
			s.place(at(t, "e3"), gm.Pawn)
			s.hdr.own[gm.King], s.hdr.own[gm.Pawn] = 1, 1
			s.set(at(t, "a8"), Uncertain(MaskOf(gm.King)))
			s.set(at(t, "d4"), Uncertain(MaskOf(gm.Knight, gm.Empty)))
			s.hdr.enemy[gm.King], s.hdr.enemy[gm.Knight] = 1, 1
			if tt.rook {
				s.set(at(t, "e8"), Uncertain(MaskOf(gm.Rook)))
				s.hdr.enemy[gm.Rook] = 1
			}
			var checks gm.CheckRecord
			if tt.check {
				// bishop on b4
				s.set(at(t, "b4"), Uncertain(MaskOf(gm.Bishop, gm.Empty)))
				s.hdr.enemy[gm.Bishop] = 1
				checks = gm.NewCheckRecord(gm.DiagonalCheckType(at(t, "e1"), gm.NorthWest), gm.NoCheck)
			}
			c, err := s.EvolveAfterOpponentMove(gm.NoSquare, checks, 0)
			if err != nil {
				t.Fatalf("opponent move: %v", err)
			}
			if got := c.CanContain(at(t, "d4"), gm.Knight); got == tt.learn {
				t.Fatalf("knight on d4 possible: %v", got)
			}
		})
	}
}
