package kriegmg

import (
	"fmt"
	"strings"
)

// CheckType is the direction of a check as announced by the umpire.
type CheckType uint8

const (
	NoCheck CheckType = iota
	FileCheck
	RankCheck
	LongDiagonalCheck
	ShortDiagonalCheck
	KnightCheck
)

var checkNames = [...]string{"none", "file", "rank", "long", "short", "knight"}

func (c CheckType) String() string {
	if int(c) < len(checkNames) {
		return checkNames[c]
	}
	return "unknown"
}

// IsDiagonal reports whether the check runs along a diagonal.
func (c CheckType) IsDiagonal() bool { return c == LongDiagonalCheck || c == ShortDiagonalCheck }

// ParseCheckType reads the names produced by String, plus "-" for none.
func ParseCheckType(s string) (CheckType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "-" || s == "" {
		return NoCheck, nil
	}
	for i, name := range checkNames {
		if name == s {
			return CheckType(i), nil
		}
	}
	return NoCheck, fmt.Errorf("unknown check type %q", s)
}

// Pieces able to deliver each check type. Pawns give diagonal checks only
// from an adjacent square; the geometry callers enforce that part.
var compatible = [6][NumPieces]bool{
	FileCheck:          {Rook: true, Queen: true},
	RankCheck:          {Rook: true, Queen: true},
	LongDiagonalCheck:  {Pawn: true, Bishop: true, Queen: true},
	ShortDiagonalCheck: {Pawn: true, Bishop: true, Queen: true},
	KnightCheck:        {Knight: true},
}

// PieceCompatible reports whether a piece of this kind can give the check.
func PieceCompatible(p Piece, c CheckType) bool {
	if p >= NumPieces || int(c) >= len(compatible) {
		return false
	}
	return compatible[c][p]
}

// CompatibleKinds lists the kinds able to give the check.
func CompatibleKinds(c CheckType) []Piece {
	var out []Piece
	for p := Pawn; p < NumPieces; p++ {
		if PieceCompatible(p, c) {
			out = append(out, p)
		}
	}
	return out
}

// CheckRecord holds up to two simultaneous checks and the squares that may
// host the checking pieces.
type CheckRecord struct {
	Checks     [2]CheckType
	Candidates Bitboard
}

// NewCheckRecord packs the announced checks, dropping NoCheck entries.
func NewCheckRecord(c1, c2 CheckType) CheckRecord {
	var r CheckRecord
	n := 0
	for _, c := range [2]CheckType{c1, c2} {
		if c != NoCheck {
			r.Checks[n] = c
			n++
		}
	}
	return r
}

// Count is the number of active checks (0, 1 or 2).
func (r CheckRecord) Count() int {
	n := 0
	for _, c := range r.Checks {
		if c != NoCheck {
			n++
		}
	}
	return n
}

func (r CheckRecord) Active() bool { return r.Count() > 0 }

// Types returns the active checks.
func (r CheckRecord) Types() []CheckType {
	out := make([]CheckType, 0, 2)
	for _, c := range r.Checks {
		if c != NoCheck {
			out = append(out, c)
		}
	}
	return out
}

func (r CheckRecord) String() string {
	if !r.Active() {
		return "none"
	}
	parts := make([]string, 0, 2)
	for _, c := range r.Types() {
		parts = append(parts, c.String())
	}
	return strings.Join(parts, "+")
}

// CaptureKind is the umpire's capture announcement: nothing, a pawn or a piece.
type CaptureKind uint8

const (
	NoCapture CaptureKind = iota
	PawnCapture
	PieceCapture
)

func (c CaptureKind) String() string {
	switch c {
	case PawnCapture:
		return "pawn"
	case PieceCapture:
		return "piece"
	}
	return "none"
}

// ParseCaptureKind reads "none", "pawn" or "piece".
func ParseCaptureKind(s string) (CaptureKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "-", "":
		return NoCapture, nil
	case "pawn":
		return PawnCapture, nil
	case "piece":
		return PieceCapture, nil
	}
	return NoCapture, fmt.Errorf("unknown capture kind %q", s)
}

// MoveFlag carries display hints; it does not take part in equality.
type MoveFlag uint8

const (
	FlagNone       MoveFlag = 0
	FlagCapture    MoveFlag = 1 << 0
	FlagCastle     MoveFlag = 1 << 1
	FlagDoublePush MoveFlag = 1 << 2
)

// Move is an immutable move value.
type Move struct {
	From      Square
	To        Square
	Piece     Piece
	Promotion Piece
	Flags     MoveFlag
}

// NullMove is the zero-information move.
var NullMove = Move{From: NoSquare, To: NoSquare, Piece: Empty, Promotion: Empty}

// NewMove builds a non-promoting move.
func NewMove(from, to Square, p Piece) Move {
	return Move{From: from, To: to, Piece: p, Promotion: Empty}
}

// Equal compares by from, to and piece.
func (m Move) Equal(o Move) bool {
	return m.From == o.From && m.To == o.To && m.Piece == o.Piece
}

// Key is a compact hash of (from, to, piece).
func (m Move) Key() uint16 {
	return uint16(m.From&0x3F) | uint16(m.To&0x3F)<<6 | uint16(m.Piece&0x7)<<12
}

func (m Move) IsNull() bool      { return m.From == NoSquare }
func (m Move) IsPromotion() bool { return m.Promotion != Empty }
func (m Move) IsCastle() bool {
	return m.Piece == King && absInt(m.From.File()-m.To.File()) == 2 && m.From.Rank() == m.To.Rank()
}

// String renders the move in UCI form ("e2e4", "e7e8q").
func (m Move) String() string {
	if m.IsNull() {
		return "0000"
	}
	str := m.From.String() + m.To.String()
	if m.IsPromotion() {
		str += strings.ToLower(string(m.Promotion.Letter()))
	}
	return str
}

// ParseMove reads a UCI move. The mover kind is not part of UCI, so the
// caller supplies it.
func ParseMove(str string, p Piece) (Move, error) {
	str = strings.TrimSpace(strings.ToLower(str))
	if len(str) != 4 && len(str) != 5 {
		return NullMove, fmt.Errorf("invalid move %q", str)
	}
	from, err := ParseSquare(str[0:2])
	if err != nil {
		return NullMove, err
	}
	to, err := ParseSquare(str[2:4])
	if err != nil {
		return NullMove, err
	}
	m := NewMove(from, to, p)
	if len(str) == 5 {
		promo, ok := PieceFromLetter(str[4])
		if !ok || promo == Pawn || promo == King {
			return NullMove, fmt.Errorf("invalid promotion in %q", str)
		}
		m.Promotion = promo
	}
	return m, nil
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
