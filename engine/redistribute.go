package engine

import (
	"errors"
	"fmt"
	"math"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
)

var errNoMass = errors.New("no eligible destination mass")

// Redistributor moves probability mass between squares so that every row of
// a field sums to one and every piece column sums to its tracked total. It
// is shared by the probability board and the compact search states.
//
// The fit alternates column scaling with row projection. Scaling is
// multiplicative, so a zero entry stays zero and certain squares stay
// certain: displaced mass only lands where the kind was already possible,
// in proportion to the mass already there. Empty is the slack of each row
// rather than a scaled column.
type Redistributor struct {
	Epsilon    float64
	DriftLimit float64
	MaxPasses  int
}

// Fit adjusts the listed rows of field. The Empty column absorbs whatever
// the piece totals leave over. Rows already certain of one kind are settled:
// they keep their value and their mass is taken off the targets, so the
// scaling only works on rows that can still move.
func (r Redistributor) Fit(op string, field *gm.Grid[gm.Dist], rows gm.Bitboard, totals [gm.NumPieces]float64) error {
	all := rows.Squares()

	var target gm.Dist
	pieces := 0.0
	for k := gm.Pawn; k < gm.NumPieces; k++ {
		target[k] = math.Max(totals[k], 0)
		pieces += target[k]
	}
	target[gm.Empty] = float64(len(all)) - pieces
	if target[gm.Empty] < -r.Epsilon {
		return redistErr(op, gm.NoSquare, gm.Empty,
			fmt.Errorf("%w: %.3f pieces on %d squares", ErrInconsistentEvent, pieces, len(all)))
	}
	target[gm.Empty] = math.Max(target[gm.Empty], 0)

	squares := make([]gm.Square, 0, len(all))
	for _, s := range all {
		d, ok := field.At(s).Clamp().Normalize()
		if !ok {
			return redistErr(op, s, gm.Empty, errNoMass)
		}
		field.Set(s, d)
		if k, settled := settledKind(d); settled {
			target[k] -= 1
			continue
		}
		squares = append(squares, s)
	}
	for k := range target {
		if target[k] < -r.Epsilon {
			return redistErr(op, gm.NoSquare, gm.Piece(k),
				fmt.Errorf("%w: more certain squares than pieces", ErrInconsistentEvent))
		}
		target[k] = math.Max(target[k], 0)
	}
	if len(squares) == 0 {
		for k := range target {
			if target[k] > r.Epsilon {
				return redistErr(op, gm.NoSquare, gm.Piece(k), errNoMass)
			}
		}
		return nil
	}

	// Rows that cannot be empty must be filled by pieces.
	var open gm.Bitboard
	for _, s := range squares {
		if field.At(s)[gm.Empty] > 0 {
			open.Set(s)
		}
	}
	for pass := 0; pass < r.MaxPasses; pass++ {
		mass := columnMass(field, squares)
		var scale gm.Dist
		colDev := 0.0
		for k := gm.Pawn; k < gm.NumPieces; k++ {
			colDev = math.Max(colDev, math.Abs(mass[k]-target[k]))
			switch {
			case target[k] <= r.Epsilon:
				scale[k] = 0
			case mass[k] <= 0:
				return redistErr(op, gm.NoSquare, k, errNoMass)
			default:
				scale[k] = target[k] / mass[k]
			}
		}
		if colDev <= r.Epsilon && rowDeviation(field, squares) <= r.Epsilon {
			return nil
		}
		for _, s := range squares {
			d := field.Ptr(s)
			sum := 0.0
			for k := gm.Pawn; k < gm.NumPieces; k++ {
				d[k] *= scale[k]
				sum += d[k]
			}
			switch {
			case open.Has(s) && sum <= 1:
				d[gm.Empty] = 1 - sum
			case sum <= 0:
				return redistErr(op, s, gm.Empty, errNoMass)
			default:
				for k := gm.Pawn; k < gm.NumPieces; k++ {
					d[k] /= sum
				}
				d[gm.Empty] = 0
			}
			*d = d.Clamp()
		}
	}

	mass := columnMass(field, squares)
	for k := range target {
		if drift := math.Abs(mass[k] - target[k]); drift > r.DriftLimit {
			return redistErr(op, gm.NoSquare, gm.Piece(k),
				fmt.Errorf("%w: column drift %.2e after %d passes", ErrInvariantViolation, drift, r.MaxPasses))
		}
	}
	return nil
}

// Reconcile raises the total of a kind that falls short of the rows certain
// of it by less than one piece. Such shortfalls come from a piece capture
// that was shared among several kinds; the difference is taken off the
// spare mass of the other officers.
func (r Redistributor) Reconcile(field *gm.Grid[gm.Dist], rows gm.Bitboard, totals *[gm.NumPieces]float64) {
	var certain [gm.NumKinds]float64
	for _, s := range rows.Squares() {
		if k, ok := settledKind(field.At(s)); ok {
			certain[k]++
		}
	}
	spare := func(k gm.Piece) float64 { return math.Max(totals[k]-certain[k], 0) }
	for k := gm.Pawn; k < gm.NumPieces; k++ {
		short := certain[k] - totals[k]
		if short <= r.Epsilon || short >= 1-r.Epsilon {
			continue
		}
		totals[k] = certain[k]
		if k == gm.Pawn || k == gm.King {
			continue
		}
		pool := 0.0
		for o := gm.Knight; o < gm.King; o++ {
			if o != k {
				pool += spare(o)
			}
		}
		if pool <= 0 {
			continue
		}
		f := math.Min(short/pool, 1)
		for o := gm.Knight; o < gm.King; o++ {
			if o != k {
				totals[o] -= f * spare(o)
			}
		}
	}
}

// settledKind reports the kind of a row that puts all its mass on one entry.
func settledKind(d gm.Dist) (gm.Piece, bool) {
	kind, n := gm.Empty, 0
	for k, v := range d {
		if v > 0 {
			kind = gm.Piece(k)
			n++
		}
	}
	return kind, n == 1
}

func columnMass(field *gm.Grid[gm.Dist], squares []gm.Square) gm.Dist {
	var mass gm.Dist
	for _, s := range squares {
		d := field.At(s)
		for k := range d {
			mass[k] += d[k]
		}
	}
	return mass
}

func rowDeviation(field *gm.Grid[gm.Dist], squares []gm.Square) float64 {
	dev := 0.0
	for _, s := range squares {
		d := field.At(s)
		dev = math.Max(dev, math.Abs(d.Sum()-1))
	}
	return dev
}
