package kriegmg

import (
	"fmt"
	"math/bits"
	"strings"
)

// Color is the side owning a piece.
type Color uint8

const (
	White Color = 0
	Black Color = 1
)

// Other returns the opposing side.
func (c Color) Other() Color { return c ^ 1 }

// Forward is the rank delta of a pawn push for this side.
func (c Color) Forward() int {
	if c == White {
		return 1
	}
	return -1
}

// HomeRank is the rank holding the side's king and rooks at the start.
func (c Color) HomeRank() int {
	if c == White {
		return 0
	}
	return 7
}

// PawnRank is the rank holding the side's pawns at the start.
func (c Color) PawnRank() int {
	if c == White {
		return 1
	}
	return 6
}

// EnPassantRank is the rank the side's pawns capture en passant from.
func (c Color) EnPassantRank() int {
	if c == White {
		return 4
	}
	return 3
}

// PromotionRank is the last rank from the side's point of view.
func (c Color) PromotionRank() int {
	if c == White {
		return 7
	}
	return 0
}

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// ParseColor accepts "white"/"w" and "black"/"b".
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "white", "w":
		return White, nil
	case "black", "b":
		return Black, nil
	}
	return White, fmt.Errorf("unknown color %q", s)
}

// Piece is a colorless piece kind. Empty doubles as "no piece" and is the
// seventh entry of every per-square distribution.
type Piece uint8

const (
	Pawn Piece = iota
	Knight
	Bishop
	Rook
	Queen
	King
	Empty
)

const (
	// NumKinds counts the six pieces plus Empty.
	NumKinds = 7
	// NumPieces counts the six real pieces.
	NumPieces = 6
)

var pieceNames = [NumKinds]string{"Pawn", "Knight", "Bishop", "Rook", "Queen", "King", "Empty"}
var pieceLetters = [NumKinds]byte{'P', 'N', 'B', 'R', 'Q', 'K', '.'}

func (p Piece) String() string {
	if p < NumKinds {
		return pieceNames[p]
	}
	return "Unknown"
}

// Letter returns the upper-case letter of the piece, '.' for Empty.
func (p Piece) Letter() byte {
	if p < NumKinds {
		return pieceLetters[p]
	}
	return '?'
}

// IsSlider reports whether the piece moves along rays.
func (p Piece) IsSlider() bool { return p == Bishop || p == Rook || p == Queen }

// PieceFromLetter maps a (case-insensitive) piece letter to its kind.
func PieceFromLetter(ch byte) (Piece, bool) {
	switch ch {
	case 'p', 'P':
		return Pawn, true
	case 'n', 'N':
		return Knight, true
	case 'b', 'B':
		return Bishop, true
	case 'r', 'R':
		return Rook, true
	case 'q', 'Q':
		return Queen, true
	case 'k', 'K':
		return King, true
	}
	return Empty, false
}

// StartCount is the number of pieces of each kind a side starts with.
var StartCount = [NumPieces]int{Pawn: 8, Knight: 2, Bishop: 2, Rook: 2, Queen: 1, King: 1}

// BackRank is the initial placement of a home rank from file a to h.
var BackRank = [8]Piece{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// Square indexes the board as rank*8+file, a1 = 0 and h8 = 63.
type Square uint8

// NoSquare marks an absent square.
const NoSquare Square = 64

// SquareOf builds a square from zero-based file and rank. Out of range
// coordinates yield NoSquare.
func SquareOf(file, rank int) Square {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare
	}
	return Square(rank*8 + file)
}

func (s Square) File() int   { return int(s) & 7 }
func (s Square) Rank() int   { return int(s) >> 3 }
func (s Square) Valid() bool { return s < 64 }

// Offset moves the square by (df, dr), reporting false when it leaves the board.
func (s Square) Offset(df, dr int) (Square, bool) {
	to := SquareOf(s.File()+df, s.Rank()+dr)
	return to, to != NoSquare
}

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{'a' + byte(s.File()), '1' + byte(s.Rank())})
}

// ParseSquare converts "e4" into a Square. "-" parses as NoSquare.
func ParseSquare(str string) (Square, error) {
	str = strings.TrimSpace(strings.ToLower(str))
	if str == "-" {
		return NoSquare, nil
	}
	if len(str) != 2 || str[0] < 'a' || str[0] > 'h' || str[1] < '1' || str[1] > '8' {
		return NoSquare, fmt.Errorf("invalid square %q", str)
	}
	return SquareOf(int(str[0]-'a'), int(str[1]-'1')), nil
}

// Bitboard is a set of squares.
type Bitboard uint64

func (b Bitboard) Has(s Square) bool { return s.Valid() && b&(1<<s) != 0 }
func (b *Bitboard) Set(s Square) {
	if s.Valid() {
		*b |= 1 << s
	}
}
func (b *Bitboard) Clear(s Square) {
	if s.Valid() {
		*b &^= 1 << s
	}
}
func (b Bitboard) Count() int { return bits.OnesCount64(uint64(b)) }

// Squares lists the members of the set in ascending order.
func (b Bitboard) Squares() []Square {
	out := make([]Square, 0, b.Count())
	for x := uint64(b); x != 0; x &= x - 1 {
		out = append(out, Square(bits.TrailingZeros64(x)))
	}
	return out
}
