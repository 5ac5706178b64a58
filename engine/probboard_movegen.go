package engine

import (
	"fmt"
	"math"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
)

// ValidateMove rejects moves that contradict what we know for certain: the
// mover must be ours and the destination must not hold one of our pieces.
func (pb *ProbabilityBoard) ValidateMove(m gm.Move) error {
	switch {
	case !m.From.Valid() || !m.To.Valid() || m.From == m.To:
		return fmt.Errorf("%w: %s", ErrInvalidMoveRequest, m)
	case m.Piece >= gm.NumPieces:
		return fmt.Errorf("%w: no piece on %s", ErrInvalidMoveRequest, m.From)
	case pb.friendly.At(m.From) != m.Piece:
		return fmt.Errorf("%w: no %s on %s", ErrInvalidMoveRequest, m.Piece, m.From)
	case pb.isFriendly(m.To):
		return fmt.Errorf("%w: %s occupied by our %s", ErrInvalidMoveRequest, m.To, pb.friendly.At(m.To))
	case m.IsPromotion() && (m.Piece != gm.Pawn || m.To.Rank() != pb.side.PromotionRank()):
		return fmt.Errorf("%w: bad promotion %s", ErrInvalidMoveRequest, m)
	}
	return nil
}

// PseudoLegalMoves generates our moves that are consistent with the field,
// the active checks and the ban list.
func (pb *ProbabilityBoard) PseudoLegalMoves() []gm.Move {
	moves := make([]gm.Move, 0, 64)
	king := pb.KingSquare()
	add := func(m gm.Move) {
		if pb.ValidateMove(m) != nil || pb.Banned(m) {
			return
		}
		if king.Valid() && !pb.geom.CanBreakCheck(m, king, pb.checks) {
			return
		}
		moves = append(moves, m)
	}
	for s := gm.Square(0); s < 64; s++ {
		p := pb.friendly.At(s)
		switch {
		case p == gm.Empty:
		case p == gm.Pawn:
			pb.pawnMoves(s, add)
		case p.IsSlider():
			pb.sliderMoves(s, p, add)
		default:
			for _, to := range pb.t.Jumps(p, pb.side, s) {
				if !pb.isFriendly(to) {
					add(gm.NewMove(s, to, p))
				}
			}
			if p == gm.King {
				pb.castleMoves(s, add)
			}
		}
	}
	return moves
}

func (pb *ProbabilityBoard) pawnMoves(s gm.Square, add func(gm.Move)) {
	promote := func(m gm.Move) {
		if m.To.Rank() != pb.side.PromotionRank() {
			add(m)
			return
		}
		for _, p := range [2]gm.Piece{gm.Queen, gm.Knight} {
			m.Promotion = p
			add(m)
		}
	}
	if to := pb.t.PawnPush[pb.side][s]; to.Valid() && !pb.provablyOccupied(to) {
		promote(gm.NewMove(s, to, gm.Pawn))
		if s.Rank() == pb.side.PawnRank() {
			if to2 := pb.t.PawnPush[pb.side][to]; to2.Valid() && !pb.provablyOccupied(to2) {
				m := gm.NewMove(s, to2, gm.Pawn)
				m.Flags = gm.FlagDoublePush
				add(m)
			}
		}
	}
	if pb.pawnTries <= 0 {
		return
	}
	for _, to := range pb.t.PawnCaptures[pb.side][s] {
		if pb.isFriendly(to) || pb.probs.At(to).Pieces() <= pb.cfg.Epsilon {
			continue
		}
		m := gm.NewMove(s, to, gm.Pawn)
		m.Flags = gm.FlagCapture
		promote(m)
	}
}

// sliderMoves walks each ray, carrying the running probability that the
// path so far is open. A ray ends at our own pieces, after a provably
// occupied square, once the path probability falls below MinLegalProb, and
// on files where an opponent pawn provably blocks.
func (pb *ProbabilityBoard) sliderMoves(s gm.Square, p gm.Piece, add func(gm.Move)) {
	for _, dir := range gm.SlideDirections(p) {
		legalProb := 1.0
		for _, to := range pb.t.Rays[s][dir] {
			if pb.isFriendly(to) {
				break
			}
			m := gm.NewMove(s, to, p)
			if pb.probs.At(to).Pieces() > pb.cfg.Epsilon {
				m.Flags = gm.FlagCapture
			}
			add(m)
			if pb.provablyOccupied(to) {
				break
			}
			if gm.IsVertical(dir) && pb.IsEnemyPawnBlocking(s, to) {
				break
			}
			legalProb *= pb.probs.At(to)[gm.Empty]
			if legalProb < pb.cfg.MinLegalProb {
				break
			}
		}
	}
}

// castleMoves offers castling when neither king nor rook has moved, we are
// not in check and no square between them is provably occupied.
func (pb *ProbabilityBoard) castleMoves(king gm.Square, add func(gm.Move)) {
	home := pb.side.HomeRank()
	if pb.castle.hasCastled || pb.castle.kingMoved || pb.checks.Active() || king != gm.SquareOf(4, home) {
		return
	}
	for i, rookFile := range [2]int{0, 7} {
		rook := gm.SquareOf(rookFile, home)
		if pb.castle.rookMoved[i] || pb.friendly.At(rook) != gm.Rook {
			continue
		}
		blocked := false
		for _, b := range pb.t.Between(king, rook).Squares() {
			if pb.provablyOccupied(b) {
				blocked = true
				break
			}
		}
		if blocked {
			continue
		}
		to := gm.SquareOf(2, home)
		if rookFile == 7 {
			to = gm.SquareOf(6, home)
		}
		m := gm.NewMove(king, to, gm.King)
		m.Flags = gm.FlagCastle
		add(m)
	}
}

// IsEnemyPawnBlocking reports whether a vertical ray from origin is provably
// stopped at or before sq: the file holds at least one opponent pawn and no
// pawn mass exists on the file outside the stretch from origin to sq.
func (pb *ProbabilityBoard) IsEnemyPawnBlocking(origin, sq gm.Square) bool {
	if origin.File() != sq.File() || pb.pawnFiles[sq.File()].Min < 1 {
		return false
	}
	o, t := origin.Rank(), sq.Rank()
	between := func(r int) bool {
		if o < t {
			return r > o && r <= t
		}
		return r >= t && r < o
	}
	inside := false
	for r := 0; r < 8; r++ {
		s := gm.SquareOf(sq.File(), r)
		if pb.isFriendly(s) || pb.probs.At(s)[gm.Pawn] <= pb.cfg.Epsilon {
			continue
		}
		if !between(r) {
			return false
		}
		inside = true
	}
	return inside
}

// PinProbability is the chance that our piece on sq shields our king from an
// opponent slider on the same line.
func (pb *ProbabilityBoard) PinProbability(sq gm.Square) float64 {
	king := pb.KingSquare()
	dir, ok := pb.t.Direction(king, sq)
	if !ok {
		return 0
	}
	clear := pb.clearBetween(king, sq)
	if clear <= 0 {
		return 0
	}
	slider := gm.Bishop
	if gm.IsOrthogonal(dir) {
		slider = gm.Rook
	}
	pin, open := 0.0, 1.0
	for _, s := range pb.t.Rays[sq][dir] {
		if pb.isFriendly(s) {
			break
		}
		d := pb.probs.At(s)
		pin += open * (d[gm.Queen] + d[slider])
		open *= d[gm.Empty]
		if open <= pb.cfg.Epsilon {
			break
		}
	}
	return math.Min(clear*pin, 1)
}

// EnemyPinProbability is the chance that an opponent piece on sq is pinned
// to its own king by one of our sliders.
func (pb *ProbabilityBoard) EnemyPinProbability(sq gm.Square) float64 {
	pin := 0.0
	for dir := 0; dir < gm.NumDirections; dir++ {
		open, pinner := 1.0, false
		for _, s := range pb.t.Rays[sq][dir] {
			if p := pb.friendly.At(s); p != gm.Empty {
				pinner = gm.SlidesAlong(p, dir)
				break
			}
			open *= pb.probs.At(s)[gm.Empty]
			if open <= pb.cfg.Epsilon {
				break
			}
		}
		if !pinner || open <= pb.cfg.Epsilon {
			continue
		}
		behind := 1.0
		for _, s := range pb.t.Rays[sq][gm.Opposite(dir)] {
			if pb.isFriendly(s) {
				break
			}
			d := pb.probs.At(s)
			pin += open * behind * d[gm.King]
			behind *= d[gm.Empty]
			if behind <= pb.cfg.Epsilon {
				break
			}
		}
	}
	return math.Min(pin, 1)
}

// MoveProbability estimates the chance that the umpire accepts m: the
// product of the occupancy factors along its path, scaled down when the
// mover may be pinned and leaves the pin line.
func (pb *ProbabilityBoard) MoveProbability(m gm.Move) float64 {
	p := 1.0
	switch {
	case m.IsCastle():
		rookFrom, _ := castleRookSquares(m)
		p *= pb.clearBetween(m.From, rookFrom)
	case m.Piece.IsSlider():
		p *= pb.clearBetween(m.From, m.To)
	case m.Piece == gm.Pawn && m.From.File() == m.To.File():
		p *= pb.clearBetween(m.From, m.To) * pb.emptyProb(m.To)
	case m.Piece == gm.Pawn:
		p *= pb.probs.At(m.To).Pieces()
	}
	if m.Piece != gm.King {
		if pin := pb.PinProbability(m.From); pin > 0 {
			king := pb.KingSquare()
			d1, _ := pb.t.Direction(king, m.From)
			d2, ok := pb.t.Direction(king, m.To)
			if !ok || d1 != d2 {
				p *= 1 - pin
			}
		}
	}
	return math.Min(math.Max(p, 0), 1)
}
