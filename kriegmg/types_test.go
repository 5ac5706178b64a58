package kriegmg

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func sq(t *testing.T, str string) Square {
	t.Helper()
	s, err := ParseSquare(str)
	if err != nil {
		t.Fatalf("parse square %q: %v", str, err)
	}
	return s
}

func TestSquareRoundTrip(t *testing.T) {
	for s := Square(0); s < 64; s++ {
		got, err := ParseSquare(s.String())
		if err != nil {
			t.Fatalf("parse %s: %v", s, err)
		}
		if got != s {
			t.Fatalf("round trip of %d gave %d", s, got)
		}
	}
	if sq(t, "a1") != 0 || sq(t, "h8") != 63 || sq(t, "e4") != 28 {
		t.Fatalf("unexpected square layout")
	}
	if sq(t, "-") != NoSquare {
		t.Fatalf("expected '-' to parse as NoSquare")
	}
	for _, bad := range []string{"i1", "a9", "e", "e44"} {
		if _, err := ParseSquare(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestSquareOffset(t *testing.T) {
	if _, ok := sq(t, "h4").Offset(1, 0); ok {
		t.Fatalf("h4 east should leave the board")
	}
	to, ok := sq(t, "b1").Offset(1, 2)
	if !ok || to != sq(t, "c3") {
		t.Fatalf("b1+(1,2) = %s, %v", to, ok)
	}
}

func TestBitboardSquares(t *testing.T) {
	var b Bitboard
	b.Set(sq(t, "h8"))
	b.Set(sq(t, "a1"))
	b.Set(sq(t, "e4"))
	b.Set(NoSquare)
	b.Clear(sq(t, "e4"))
	want := []Square{0, 63}
	if diff := cmp.Diff(want, b.Squares()); diff != "" {
		t.Fatalf("squares mismatch (-want +got):\n%s", diff)
	}
	if b.Count() != 2 {
		t.Fatalf("expected 2 members, got %d", b.Count())
	}
}

func TestColorHelpers(t *testing.T) {
	if White.Other() != Black || Black.Other() != White {
		t.Fatalf("Other is broken")
	}
	if White.PawnRank() != 1 || Black.PawnRank() != 6 || Black.PromotionRank() != 0 {
		t.Fatalf("unexpected ranks")
	}
	if White.EnPassantRank() != 4 || Black.EnPassantRank() != 3 {
		t.Fatalf("unexpected ranks")
	}
	c, err := ParseColor("B")
	if err != nil || c != Black {
		t.Fatalf("ParseColor(B) = %v, %v", c, err)
	}
}
