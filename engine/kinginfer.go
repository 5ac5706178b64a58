package engine

import (
	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
)

// kingVoter infers where the opponent king can stand after one of our moves
// was answered with checks. Each announced check votes for the squares where
// a king would receive exactly that check; a square survives when it
// collects one vote per check.
type kingVoter struct {
	t    *gm.Tables
	geom gm.CheckGeometry
	side gm.Color
	// friendly reports our piece on a square after the move.
	friendly func(gm.Square) gm.Piece
	// passable reports whether a ray may continue past a square.
	passable func(gm.Square) bool
}

// candidates returns the squares compatible with every check in rec.
func (v kingVoter) candidates(m gm.Move, rec gm.CheckRecord) gm.Bitboard {
	var votes [64]uint8
	for _, ct := range rec.Types() {
		set := v.direct(ct, m) | v.discovered(ct, m)
		for _, s := range set.Squares() {
			votes[s]++
		}
	}
	var out gm.Bitboard
	need := uint8(rec.Count())
	for s := range votes {
		if need > 0 && votes[s] >= need && v.friendly(gm.Square(s)) == gm.Empty {
			out.Set(gm.Square(s))
		}
	}
	return out
}

func (v kingVoter) direct(ct gm.CheckType, m gm.Move) gm.Bitboard {
	kind := m.Piece
	if m.IsPromotion() {
		kind = m.Promotion
	}
	set := v.geom.KingCandidates(ct, m.To, kind, v.side, v.passable)
	if m.IsCastle() {
		_, rookTo := castleRookSquares(m)
		set |= v.geom.KingCandidates(ct, rookTo, gm.Rook, v.side, v.passable)
	}
	return set
}

// discovered collects king squares exposed by the vacated origin square to
// one of our sliders behind it.
func (v kingVoter) discovered(ct gm.CheckType, m gm.Move) gm.Bitboard {
	var set gm.Bitboard
	for a := gm.Square(0); a < 64; a++ {
		kind := v.friendly(a)
		if !kind.IsSlider() || a == m.To || !gm.PieceCompatible(kind, ct) {
			continue
		}
		dir, ok := v.t.Direction(a, m.From)
		if !ok || !gm.SlidesAlong(kind, dir) {
			continue
		}
		clear := true
		for _, b := range v.t.Between(a, m.From).Squares() {
			if !v.passable(b) {
				clear = false
				break
			}
		}
		if !clear {
			continue
		}
		for _, s := range v.t.Rays[m.From][dir] {
			if s == m.To {
				break
			}
			if v.geom.Classify(s, a, kind) == ct {
				set.Set(s)
			}
			if !v.passable(s) {
				break
			}
		}
	}
	return set
}

// castleRookSquares returns the rook's origin and destination for a castling move.
func castleRookSquares(m gm.Move) (from, to gm.Square) {
	rank := m.From.Rank()
	if m.To.File() > m.From.File() {
		return gm.SquareOf(7, rank), gm.SquareOf(5, rank)
	}
	return gm.SquareOf(0, rank), gm.SquareOf(3, rank)
}
