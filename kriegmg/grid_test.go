package kriegmg

import (
	"math"
	"testing"
)

func TestGridSum(t *testing.T) {
	var g Grid[int]
	g.Fill(2)
	g.Set(0, 10)
	if got := Sum(&g); got != 63*2+10 {
		t.Fatalf("Sum = %d", got)
	}
	*g.Ptr(63) += 5
	if g.AtFR(7, 7) != 7 {
		t.Fatalf("AtFR(7,7) = %d", g.AtFR(7, 7))
	}
}

func TestGridPanicsOffBoard(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for NoSquare")
		}
	}()
	var g Grid[float64]
	g.At(NoSquare)
}

func TestDistNormalize(t *testing.T) {
	d := Dist{Pawn: 0.3, Knight: 0.1, Empty: 0.6}
	n, ok := d.Without(Empty)
	if !ok {
		t.Fatalf("expected mass")
	}
	if math.Abs(n[Pawn]-0.75) > 1e-12 || math.Abs(n.Sum()-1) > 1e-12 {
		t.Fatalf("unexpected normalization %v", n)
	}
	if _, ok := (Dist{}).Normalize(); ok {
		t.Fatalf("empty distribution must not normalize")
	}
	c := Dist{Pawn: -0.1, Empty: 1.2}.Clamp()
	if c[Pawn] != 0 || c[Empty] != 1 {
		t.Fatalf("clamp failed: %v", c)
	}
	if Certain(Rook).Pieces() != 1 {
		t.Fatalf("certain rook should be a piece")
	}
}
