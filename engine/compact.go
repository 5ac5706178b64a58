package engine

import (
	"math"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
)

// PieceMask is a set of piece kinds, Empty included, one bit per kind.
type PieceMask uint8

const (
	// AllKinds allows every piece kind and Empty.
	AllKinds PieceMask = 1<<gm.NumKinds - 1
	// AnyPiece allows every piece kind but not Empty.
	AnyPiece  PieceMask = AllKinds &^ EmptyOnly
	EmptyOnly PieceMask = 1 << gm.Empty
)

// MaskOf builds a mask from kinds.
func MaskOf(kinds ...gm.Piece) PieceMask {
	var m PieceMask
	for _, k := range kinds {
		m |= 1 << k
	}
	return m
}

func (m PieceMask) Has(k gm.Piece) bool { return m&(1<<k) != 0 }

// Pieces drops the Empty bit.
func (m PieceMask) Pieces() PieceMask { return m &^ EmptyOnly }

// SquareState is the byte-per-square encoding of CompactState. Bit 7 marks
// our own pieces; the low bits then hold the kind. Otherwise the low seven
// bits are the PieceMask of opponent possibilities.
type SquareState uint8

const friendlyFlag SquareState = 0x80

// Friendly encodes our piece of kind p.
func Friendly(p gm.Piece) SquareState { return friendlyFlag | SquareState(p) }

// Uncertain encodes the opponent possibilities of a square.
func Uncertain(m PieceMask) SquareState { return SquareState(m & AllKinds) }

func (s SquareState) IsFriendly() bool { return s&friendlyFlag != 0 }

// Kind is our piece, Empty for uncertain squares.
func (s SquareState) Kind() gm.Piece {
	if !s.IsFriendly() {
		return gm.Empty
	}
	return gm.Piece(s &^ friendlyFlag)
}

// Mask is the possibility set, zero for our own squares.
func (s SquareState) Mask() PieceMask {
	if s.IsFriendly() {
		return 0
	}
	return PieceMask(s)
}

type compactHeader struct {
	own        [gm.NumPieces]int8
	enemy      [gm.NumPieces]float64
	king       gm.Square
	doublePush gm.Square
	checks     gm.CheckRecord
	given      gm.CheckRecord
	pawnTries  int8
	castle     castleRights
	ply        int
}

// CompactState is a byte-per-square snapshot of the belief, used inside the
// search. Transitions never touch the receiver: they return a new snapshot.
type CompactState struct {
	t    *gm.Tables
	geom gm.CheckGeometry
	side gm.Color
	hdr  compactHeader

	squares  [64]SquareState
	age      [64]uint16
	totalAge uint32
	hash     uint64
}

// NewCompactState derives a snapshot from the probability board. Kinds with
// more than Epsilon mass on a square stay possible there.
func NewCompactState(pb *ProbabilityBoard) *CompactState {
	s := &CompactState{t: pb.t, geom: pb.geom, side: pb.side}
	for sq := gm.Square(0); sq < 64; sq++ {
		if p := pb.friendly.At(sq); p != gm.Empty {
			s.squares[sq] = Friendly(p)
			continue
		}
		var m PieceMask
		d := pb.probs.At(sq)
		for k := range d {
			if d[k] > pb.cfg.Epsilon {
				m |= 1 << k
			}
		}
		if m == 0 {
			m = EmptyOnly
		}
		s.squares[sq] = Uncertain(m)
		s.age[sq] = pb.age.At(sq)
		s.totalAge += uint32(s.age[sq])
	}
	for k := gm.Pawn; k < gm.NumPieces; k++ {
		s.hdr.own[k] = int8(pb.own[k])
		s.hdr.enemy[k] = pb.totals[k]
	}
	s.hdr.king = pb.KingSquare()
	s.hdr.doublePush = pb.doublePush
	s.hdr.checks = pb.checks
	s.hdr.given = pb.given
	s.hdr.pawnTries = int8(pb.pawnTries)
	s.hdr.castle = pb.castle
	s.hdr.ply = pb.ply
	s.rehash()
	return s
}

func (s *CompactState) rehash() {
	var raw [64]uint8
	for sq, st := range s.squares {
		raw[sq] = uint8(st)
	}
	s.hash = s.t.HashStates(&raw, 0)
}

// branch copies the state for a transition.
func (s *CompactState) branch() *CompactState {
	c := *s
	return &c
}

func (s *CompactState) set(sq gm.Square, st SquareState) {
	old := s.squares[sq]
	if old == st {
		return
	}
	s.hash ^= s.t.ZobristDelta(sq, uint8(old), uint8(st))
	s.squares[sq] = st
}

// setAge keeps totalAge in step with the matrix.
func (s *CompactState) setAge(sq gm.Square, v uint16) {
	old := s.age[sq]
	if old == v {
		return
	}
	s.totalAge = s.totalAge - uint32(old) + uint32(v)
	s.age[sq] = v
}

// =============================================================================
// PRIMITIVES
// =============================================================================

func (s *CompactState) State(sq gm.Square) SquareState { return s.squares[sq] }

func (s *CompactState) IsFriendlyPiece(sq gm.Square) bool { return s.squares[sq].IsFriendly() }

// FriendlyPiece returns our piece on sq, Empty if none.
func (s *CompactState) FriendlyPiece(sq gm.Square) gm.Piece { return s.squares[sq].Kind() }

// CanContain reports whether the opponent may have a k on sq. For Empty it
// reports whether sq may be empty.
func (s *CompactState) CanContain(sq gm.Square, k gm.Piece) bool { return s.squares[sq].Mask().Has(k) }

func (s *CompactState) MayBeEmpty(sq gm.Square) bool { return s.CanContain(sq, gm.Empty) }

// mayHoldPiece reports whether some opponent piece may stand on sq.
func (s *CompactState) mayHoldPiece(sq gm.Square) bool { return s.squares[sq].Mask().Pieces() != 0 }

// passable reports whether a ray may run through sq.
func (s *CompactState) passable(sq gm.Square) bool { return s.MayBeEmpty(sq) }

func (s *CompactState) SetFriendlyPiece(sq gm.Square, p gm.Piece) {
	s.set(sq, Friendly(p))
	s.setAge(sq, 0)
}

func (s *CompactState) SetPiecePossible(sq gm.Square, k gm.Piece) {
	if s.IsFriendlyPiece(sq) {
		return
	}
	s.set(sq, Uncertain(s.squares[sq].Mask()|1<<k))
}

func (s *CompactState) SetPieceImpossible(sq gm.Square, k gm.Piece) {
	if s.IsFriendlyPiece(sq) {
		return
	}
	m := s.squares[sq].Mask() &^ (1 << k)
	s.set(sq, Uncertain(m))
	if m.Pieces() == 0 {
		s.setAge(sq, 0)
	}
}

// SetUnknown allows every kind and Empty on sq.
func (s *CompactState) SetUnknown(sq gm.Square) { s.set(sq, Uncertain(AllKinds)) }

// SetEmpty marks sq as known empty.
func (s *CompactState) SetEmpty(sq gm.Square) {
	s.set(sq, Uncertain(EmptyOnly))
	s.setAge(sq, 0)
}

// =============================================================================
// ACCESSORS
// =============================================================================

func (s *CompactState) Side() gm.Color           { return s.side }
func (s *CompactState) Ply() int                 { return s.hdr.ply }
func (s *CompactState) KingSquare() gm.Square    { return s.hdr.king }
func (s *CompactState) Checks() gm.CheckRecord   { return s.hdr.checks }
func (s *CompactState) Given() gm.CheckRecord    { return s.hdr.given }
func (s *CompactState) Age(sq gm.Square) uint16  { return s.age[sq] }
func (s *CompactState) TotalAge() uint32         { return s.totalAge }
func (s *CompactState) Squares() [64]SquareState { return s.squares }
func (s *CompactState) Ages() [64]uint16         { return s.age }
func (s *CompactState) OwnCount(k gm.Piece) int  { return int(s.hdr.own[k]) }

// EnemyMaterial is the expected opponent count of kind k.
func (s *CompactState) EnemyMaterial(k gm.Piece) float64 { return s.hdr.enemy[k] }

// Hash is the Zobrist key of the square states with the side to move, the
// check and try announcements, castling rights, ages and the expected
// opponent material folded in.
func (s *CompactState) Hash() uint64 {
	var flags uint16
	if s.side == gm.Black {
		flags |= 1
	}
	flags |= uint16(s.hdr.checks.Count()) << 1
	if s.hdr.pawnTries > 0 {
		flags |= 1 << 3
	}
	cr := s.hdr.castle
	for i, b := range [4]bool{cr.hasCastled, cr.kingMoved, cr.rookMoved[0], cr.rookMoved[1]} {
		if b {
			flags |= 1 << (4 + i)
		}
	}
	h := s.hash ^ s.t.ZobristFlags(flags)
	h ^= gm.Mix64(uint64(s.totalAge) | uint64(s.hdr.doublePush)<<32)
	for k, v := range s.hdr.enemy {
		h ^= gm.Mix64(math.Float64bits(v) + uint64(k)<<56)
	}
	return h
}

// RecomputeAge rebuilds totalAge from the matrix. It is only needed when a
// state was assembled by hand.
func (s *CompactState) RecomputeAge() {
	var total uint32
	for _, a := range s.age {
		total += uint32(a)
	}
	s.totalAge = total
}

// KingCandidates returns the squares where the opponent king may stand.
func (s *CompactState) KingCandidates() gm.Bitboard {
	var b gm.Bitboard
	for sq := gm.Square(0); sq < 64; sq++ {
		if s.CanContain(sq, gm.King) {
			b.Set(sq)
		}
	}
	return b
}

// Estimate turns the possibility masks into a probability field. Every
// allowed kind starts with the same weight, aged squares lean toward being
// occupied, and the Redistributor fits the result to the expected material.
func (s *CompactState) Estimate(r Redistributor) (*gm.Grid[gm.Dist], error) {
	field := &gm.Grid[gm.Dist]{}
	var rows gm.Bitboard
	for sq := gm.Square(0); sq < 64; sq++ {
		st := s.squares[sq]
		if st.IsFriendly() {
			field.Set(sq, gm.Certain(gm.Empty))
			continue
		}
		rows.Set(sq)
		m := st.Mask()
		var d gm.Dist
		lean := 1 + math.Log1p(float64(s.age[sq]))
		for k := gm.Pawn; k < gm.NumKinds; k++ {
			if !m.Has(k) {
				continue
			}
			d[k] = lean
			if k == gm.Empty {
				d[k] = 1
			}
		}
		if n, ok := d.Normalize(); ok {
			d = n
		} else {
			d = gm.Certain(gm.Empty)
		}
		field.Set(sq, d)
	}
	var totals [gm.NumPieces]float64
	copy(totals[:], s.hdr.enemy[:])
	r.Reconcile(field, rows, &totals)
	if err := r.Fit("estimate", field, rows, totals); err != nil {
		return field, err
	}
	return field, nil
}
