package kriegmg

import "testing"

func TestPieceCompatible(t *testing.T) {
	tests := []struct {
		check CheckType
		want  []Piece
	}{
		{FileCheck, []Piece{Rook, Queen}},
		{RankCheck, []Piece{Rook, Queen}},
		{LongDiagonalCheck, []Piece{Pawn, Bishop, Queen}},
		{ShortDiagonalCheck, []Piece{Pawn, Bishop, Queen}},
		{KnightCheck, []Piece{Knight}},
		{NoCheck, nil},
	}
	for _, tt := range tests {
		t.Run(tt.check.String(), func(t *testing.T) {
			got := CompatibleKinds(tt.check)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
	if PieceCompatible(King, FileCheck) || PieceCompatible(Empty, KnightCheck) {
		t.Fatalf("kings and empty squares never give check")
	}
}

func TestMoveEqualityIgnoresFlags(t *testing.T) {
	a := NewMove(12, 28, Pawn)
	b := a
	b.Flags = FlagDoublePush
	if !a.Equal(b) || a.Key() != b.Key() {
		t.Fatalf("flags must not take part in equality")
	}
	c := NewMove(12, 28, Queen)
	if a.Equal(c) || a.Key() == c.Key() {
		t.Fatalf("moves of different kinds must differ")
	}
}

func TestParseMove(t *testing.T) {
	m, err := ParseMove("e7e8q", Pawn)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if m.From != 52 || m.To != 60 || m.Promotion != Queen || m.String() != "e7e8q" {
		t.Fatalf("unexpected move %+v", m)
	}
	if _, err := ParseMove("e7e8k", Pawn); err == nil {
		t.Fatalf("expected error for king promotion")
	}
	castle, _ := ParseMove("e1g1", King)
	if !castle.IsCastle() {
		t.Fatalf("expected e1g1 king move to be castling")
	}
}

func TestCheckRecord(t *testing.T) {
	r := NewCheckRecord(NoCheck, KnightCheck)
	if r.Count() != 1 || r.Checks[0] != KnightCheck {
		t.Fatalf("unexpected record %+v", r)
	}
	r = NewCheckRecord(FileCheck, LongDiagonalCheck)
	if r.Count() != 2 || r.String() != "file+long" {
		t.Fatalf("unexpected record %s", r)
	}
	ct, err := ParseCheckType("short")
	if err != nil || ct != ShortDiagonalCheck {
		t.Fatalf("ParseCheckType(short) = %v, %v", ct, err)
	}
}
