package kriegmg

import (
	"fmt"

	"golang.org/x/exp/constraints"
)

// Grid is a square-indexed container. Accessors panic on squares off the
// board so that indexing bugs surface at the boundary.
type Grid[T any] struct {
	cells [64]T
}

func checkSquare(s Square) {
	if !s.Valid() {
		panic(fmt.Sprintf("kriegmg: square %d off the board", s))
	}
}

// At returns the value stored for s.
func (g *Grid[T]) At(s Square) T {
	checkSquare(s)
	return g.cells[s]
}

// AtFR returns the value stored for the zero-based (file, rank).
func (g *Grid[T]) AtFR(file, rank int) T {
	s := SquareOf(file, rank)
	checkSquare(s)
	return g.cells[s]
}

// Set stores v for s.
func (g *Grid[T]) Set(s Square, v T) {
	checkSquare(s)
	g.cells[s] = v
}

// Ptr exposes the cell for s for in-place updates.
func (g *Grid[T]) Ptr(s Square) *T {
	checkSquare(s)
	return &g.cells[s]
}

// Fill stores v in every cell.
func (g *Grid[T]) Fill(v T) {
	for i := range g.cells {
		g.cells[i] = v
	}
}

// Cells returns a copy of the underlying array.
func (g *Grid[T]) Cells() [64]T { return g.cells }

// Sum adds every cell of a numeric grid.
func Sum[T constraints.Integer | constraints.Float](g *Grid[T]) T {
	var total T
	for _, v := range g.cells {
		total += v
	}
	return total
}

// Dist is a probability distribution over the six piece kinds plus Empty.
type Dist [NumKinds]float64

// Certain returns the distribution that puts all mass on p.
func Certain(p Piece) Dist {
	var d Dist
	d[p] = 1
	return d
}

// Sum adds all seven entries.
func (d Dist) Sum() float64 {
	var s float64
	for _, v := range d {
		s += v
	}
	return s
}

// Pieces is the probability that some piece occupies the square.
func (d Dist) Pieces() float64 {
	var s float64
	for p := Pawn; p < NumPieces; p++ {
		s += d[p]
	}
	return s
}

// Clamp forces every entry into [0, 1].
func (d Dist) Clamp() Dist {
	for i, v := range d {
		switch {
		case v < 0:
			d[i] = 0
		case v > 1:
			d[i] = 1
		}
	}
	return d
}

// Normalize scales the entries to sum to one. It reports false when the
// distribution carries no mass.
func (d Dist) Normalize() (Dist, bool) {
	s := d.Sum()
	if s <= 0 {
		return d, false
	}
	for i := range d {
		d[i] /= s
	}
	return d, true
}

// Without zeroes the listed kinds and renormalizes.
func (d Dist) Without(kinds ...Piece) (Dist, bool) {
	for _, k := range kinds {
		d[k] = 0
	}
	return d.Normalize()
}
