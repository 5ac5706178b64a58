package kriegmg

// CheckGeometry maps announced checks onto board lines. It is used both to
// filter our moves while in check and to infer where a king or an attacker
// can stand after a check was announced.
type CheckGeometry struct {
	t *Tables
}

// NewCheckGeometry binds the geometry to a set of movement tables.
func NewCheckGeometry(t *Tables) CheckGeometry { return CheckGeometry{t: t} }

// longIsMain reports whether the a1-h8 parallel is the longer of the two
// diagonals through s. The answer only depends on the quadrant of s.
func longIsMain(s Square) bool { return (s.File() < 4) == (s.Rank() < 4) }

// DiagonalCheckType classifies the diagonal through king that runs in dir.
func DiagonalCheckType(king Square, dir int) CheckType {
	if IsMainDiagonal(dir) == longIsMain(king) {
		return LongDiagonalCheck
	}
	return ShortDiagonalCheck
}

// Classify returns the check a piece of kind p on attacker would give to a
// king on king, ignoring blockers. NoCheck when the geometry does not fit.
func (g CheckGeometry) Classify(king, attacker Square, p Piece) CheckType {
	if p == Knight {
		for _, s := range g.t.Knight[king] {
			if s == attacker {
				return KnightCheck
			}
		}
		return NoCheck
	}
	dir, ok := g.t.Direction(king, attacker)
	if !ok {
		return NoCheck
	}
	switch {
	case IsVertical(dir):
		return FileCheck
	case IsOrthogonal(dir):
		return RankCheck
	}
	return DiagonalCheckType(king, dir)
}

// Directions lists the ray directions, seen from the king, along which a
// check of type ct can originate. Knight checks have none.
func (g CheckGeometry) Directions(ct CheckType, king Square) []int {
	switch ct {
	case FileCheck:
		return []int{North, South}
	case RankCheck:
		return []int{East, West}
	case LongDiagonalCheck, ShortDiagonalCheck:
		main := longIsMain(king)
		if ct == ShortDiagonalCheck {
			main = !main
		}
		if main {
			return []int{NorthEast, SouthWest}
		}
		return []int{NorthWest, SouthEast}
	}
	return nil
}

// Line returns the squares relevant to the check: the rays of the line
// through the king, or the knight squares around it.
func (g CheckGeometry) Line(ct CheckType, king Square) Bitboard {
	var set Bitboard
	if ct == KnightCheck {
		for _, s := range g.t.Knight[king] {
			set.Set(s)
		}
		return set
	}
	for _, dir := range g.Directions(ct, king) {
		for _, s := range g.t.Rays[king][dir] {
			set.Set(s)
		}
	}
	return set
}

// Walk visits the squares of the check line outward from the king. For
// knight checks each knight square is visited with dir -1. Returning false
// from visit ends the current ray.
func (g CheckGeometry) Walk(ct CheckType, king Square, visit func(dir, dist int, s Square) bool) {
	if ct == KnightCheck {
		for _, s := range g.t.Knight[king] {
			visit(-1, 1, s)
		}
		return
	}
	for _, dir := range g.Directions(ct, king) {
		for i, s := range g.t.Rays[king][dir] {
			if !visit(dir, i+1, s) {
				break
			}
		}
	}
}

// KingCandidates collects the squares where a king would receive a check of
// type ct from a piece of kind p and side c standing on attacker. Rays stop
// after the first square for which passable returns false.
func (g CheckGeometry) KingCandidates(ct CheckType, attacker Square, p Piece, c Color, passable func(Square) bool) Bitboard {
	var set Bitboard
	if !PieceCompatible(p, ct) {
		return set
	}
	switch p {
	case Knight:
		for _, s := range g.t.Knight[attacker] {
			set.Set(s)
		}
		return set
	case Pawn:
		for _, s := range g.t.PawnCaptures[c][attacker] {
			if g.Classify(s, attacker, Pawn) == ct {
				set.Set(s)
			}
		}
		return set
	}
	for _, dir := range SlideDirections(p) {
		for _, s := range g.t.Rays[attacker][dir] {
			if g.Classify(s, attacker, p) == ct {
				set.Set(s)
			}
			if !passable(s) {
				break
			}
		}
	}
	return set
}

// CanBreakCheck reports whether m may resolve the checks in rec for a king
// on king. Candidate attacker squares in rec narrow the answer when known.
func (g CheckGeometry) CanBreakCheck(m Move, king Square, rec CheckRecord) bool {
	if !rec.Active() {
		return true
	}
	if m.Piece == King {
		return g.kingEscapes(m.To, king, rec)
	}
	if rec.Count() > 1 {
		return false
	}
	ct := rec.Types()[0]
	if !g.Line(ct, king).Has(m.To) {
		return false
	}
	if rec.Candidates == 0 || rec.Candidates.Has(m.To) {
		return true
	}
	if ct == KnightCheck {
		return false
	}
	for _, c := range rec.Candidates.Squares() {
		if g.t.Between(king, c).Has(m.To) {
			return true
		}
	}
	return false
}

func (g CheckGeometry) kingEscapes(to, king Square, rec CheckRecord) bool {
	if absInt(to.File()-king.File()) > 1 || absInt(to.Rank()-king.Rank()) > 1 {
		return false
	}
	for _, ct := range rec.Types() {
		if ct == KnightCheck || !g.Line(ct, king).Has(to) {
			continue
		}
		// Staying on the line only helps when the step captures the checker.
		if rec.Candidates != 0 && !rec.Candidates.Has(to) {
			return false
		}
	}
	return true
}

// AttackerCandidates collects the squares from which a check of type ct can
// reach a king on king. Rays stop after the first square for which passable
// returns false.
func (g CheckGeometry) AttackerCandidates(ct CheckType, king Square, passable func(Square) bool) Bitboard {
	var set Bitboard
	g.Walk(ct, king, func(_, _ int, s Square) bool {
		set.Set(s)
		return passable(s)
	})
	return set
}

// DiagonalKind classifies the diagonal joining a king on a and a piece on b.
// NoCheck when the squares do not share a diagonal.
func (g CheckGeometry) DiagonalKind(a, b Square) CheckType {
	dir, ok := g.t.Direction(a, b)
	if !ok || IsOrthogonal(dir) {
		return NoCheck
	}
	return DiagonalCheckType(a, dir)
}
