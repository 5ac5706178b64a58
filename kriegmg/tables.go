package kriegmg

// Direction is a (file, rank) step.
type Direction struct{ DF, DR int }

// Ray directions. Orthogonal first, then the a1-h8 diagonal pair and the
// a8-h1 diagonal pair.
const (
	North = iota
	South
	East
	West
	NorthEast
	SouthWest
	NorthWest
	SouthEast
	NumDirections
)

var Directions = [NumDirections]Direction{
	North:     {0, 1},
	South:     {0, -1},
	East:      {1, 0},
	West:      {-1, 0},
	NorthEast: {1, 1},
	SouthWest: {-1, -1},
	NorthWest: {-1, 1},
	SouthEast: {1, -1},
}

var knightJumps = [8]Direction{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}

var (
	rookDirs   = []int{North, South, East, West}
	bishopDirs = []int{NorthEast, SouthWest, NorthWest, SouthEast}
	queenDirs  = []int{North, South, East, West, NorthEast, SouthWest, NorthWest, SouthEast}
)

// IsVertical reports whether the direction runs along a file.
func IsVertical(dir int) bool { return dir == North || dir == South }

// IsOrthogonal reports whether the direction runs along a file or rank.
func IsOrthogonal(dir int) bool { return dir < NorthEast }

// IsMainDiagonal reports whether the direction runs parallel to a1-h8.
func IsMainDiagonal(dir int) bool { return dir == NorthEast || dir == SouthWest }

// Opposite returns the reverse direction.
func Opposite(dir int) int { return dir ^ 1 }

// Tables holds every precomputed movement table. It is built once by
// NewTables and shared read-only by all components.
type Tables struct {
	Knight [64][]Square
	King   [64][]Square
	Rays   [64][NumDirections][]Square

	// PawnPush[c][sq] is the single-step destination, NoSquare on the last rank.
	PawnPush [2][64]Square
	// PawnCaptures[c][sq] are the squares a pawn of side c on sq attacks.
	PawnCaptures [2][64][]Square
	// PawnAttackers[c][sq] are the squares from which a pawn of side c attacks sq.
	PawnAttackers [2][64][]Square

	between [64][64]Bitboard
	dirTo   [64][64]int8

	zobristSquare [64][256]uint64
	zobristExtra  [16]uint64
}

// NewTables computes the movement tables.
func NewTables() *Tables {
	t := &Tables{}
	for s := Square(0); s < 64; s++ {
		for _, j := range knightJumps {
			if to, ok := s.Offset(j.DF, j.DR); ok {
				t.Knight[s] = append(t.Knight[s], to)
			}
		}
		for dir, d := range Directions {
			if to, ok := s.Offset(d.DF, d.DR); ok {
				t.King[s] = append(t.King[s], to)
			}
			for to, ok := s.Offset(d.DF, d.DR); ok; to, ok = to.Offset(d.DF, d.DR) {
				t.Rays[s][dir] = append(t.Rays[s][dir], to)
			}
		}
		for c := White; c <= Black; c++ {
			t.PawnPush[c][s] = NoSquare
			if to, ok := s.Offset(0, c.Forward()); ok {
				t.PawnPush[c][s] = to
			}
			for _, df := range [2]int{-1, 1} {
				if to, ok := s.Offset(df, c.Forward()); ok {
					t.PawnCaptures[c][s] = append(t.PawnCaptures[c][s], to)
				}
				if from, ok := s.Offset(df, -c.Forward()); ok {
					t.PawnAttackers[c][s] = append(t.PawnAttackers[c][s], from)
				}
			}
		}
	}

	for a := Square(0); a < 64; a++ {
		for b := Square(0); b < 64; b++ {
			t.dirTo[a][b] = -1
		}
		for dir := 0; dir < NumDirections; dir++ {
			var path Bitboard
			for _, to := range t.Rays[a][dir] {
				t.dirTo[a][to] = int8(dir)
				t.between[a][to] = path
				path.Set(to)
			}
		}
	}

	t.initZobrist()
	return t
}

// SlideDirections returns the ray directions of a slider, nil otherwise.
func SlideDirections(p Piece) []int {
	switch p {
	case Bishop:
		return bishopDirs
	case Rook:
		return rookDirs
	case Queen:
		return queenDirs
	}
	return nil
}

// Direction reports the ray direction leading from a to b, if they share a line.
func (t *Tables) Direction(a, b Square) (int, bool) {
	if !a.Valid() || !b.Valid() {
		return -1, false
	}
	d := t.dirTo[a][b]
	return int(d), d >= 0
}

// Between returns the squares strictly between a and b on a shared line.
func (t *Tables) Between(a, b Square) Bitboard {
	if !a.Valid() || !b.Valid() {
		return 0
	}
	return t.between[a][b]
}

// Jumps returns the non-sliding targets of a piece: knight jumps, king
// steps, or pawn capture squares for side c.
func (t *Tables) Jumps(p Piece, c Color, s Square) []Square {
	switch p {
	case Knight:
		return t.Knight[s]
	case King:
		return t.King[s]
	case Pawn:
		return t.PawnCaptures[c][s]
	}
	return nil
}

// Attacks reports whether a piece of kind p and side c on from attacks to,
// given a predicate telling which squares block rays.
func (t *Tables) Attacks(p Piece, c Color, from, to Square, blocked func(Square) bool) bool {
	if p.IsSlider() {
		dir, ok := t.Direction(from, to)
		if !ok || !slidesAlong(p, dir) {
			return false
		}
		for _, s := range t.Between(from, to).Squares() {
			if blocked(s) {
				return false
			}
		}
		return true
	}
	for _, s := range t.Jumps(p, c, from) {
		if s == to {
			return true
		}
	}
	return false
}

func slidesAlong(p Piece, dir int) bool {
	switch p {
	case Rook:
		return IsOrthogonal(dir)
	case Bishop:
		return !IsOrthogonal(dir)
	case Queen:
		return true
	}
	return false
}

// SlidesAlong reports whether a slider of kind p moves in direction dir.
func SlidesAlong(p Piece, dir int) bool { return slidesAlong(p, dir) }
