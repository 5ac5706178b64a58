package engine

import (
	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
)

// UpdateEnemyKing prunes the King bit from every square where the opponent
// king would not receive all the checks m gave. Each check votes for the
// squares compatible with it through the moved piece or a slider the move
// uncovered; a square needs one vote per check to survive.
func (s *CompactState) UpdateEnemyKing(m gm.Move, checks gm.CheckRecord) error {
	const op = "update enemy king"
	voter := kingVoter{
		t:        s.t,
		geom:     s.geom,
		side:     s.side,
		friendly: s.FriendlyPiece,
		passable: s.passable,
	}
	cands := voter.candidates(m, checks) & s.KingCandidates()
	if cands == 0 {
		return redistErr(op, m.To, gm.King, ErrNoKingCandidate)
	}
	for sq := gm.Square(0); sq < 64; sq++ {
		if s.CanContain(sq, gm.King) && !cands.Has(sq) {
			if err := s.exclude(op, sq, gm.King); err != nil {
				return err
			}
		}
	}
	checks.Candidates = cands
	s.hdr.given = checks
	return nil
}

// RestrictEnemyKingNoCheck removes the opponent king from every square our
// pieces attack for certain, since our last move gave no check. Slider rays
// only count through squares known to be empty.
func (s *CompactState) RestrictEnemyKingNoCheck() error {
	const op = "restrict enemy king"
	attacked := s.certainAttacks()
	for _, sq := range attacked.Squares() {
		if err := s.exclude(op, sq, gm.King); err != nil {
			return err
		}
	}
	if s.KingCandidates() == 0 {
		return redistErr(op, gm.NoSquare, gm.King, ErrNoKingCandidate)
	}
	return nil
}

// certainAttacks collects the squares our pieces attack whatever the
// opponent's placement is.
func (s *CompactState) certainAttacks() gm.Bitboard {
	var b gm.Bitboard
	for a := gm.Square(0); a < 64; a++ {
		p := s.FriendlyPiece(a)
		if p == gm.Empty {
			continue
		}
		if !p.IsSlider() {
			for _, x := range s.t.Jumps(p, s.side, a) {
				b.Set(x)
			}
			continue
		}
		for _, dir := range gm.SlideDirections(p) {
			for _, x := range s.t.Rays[a][dir] {
				b.Set(x)
				if s.squares[x] != Uncertain(EmptyOnly) {
					break
				}
			}
		}
	}
	return b
}

// restrictKingAttackers applies what any legal move of ours proves: our king
// is not attacked afterwards. Adjacent kings, knights and pawns are removed
// outright; sliders only where the line to our king is known to be open.
func (s *CompactState) restrictKingAttackers(op string) error {
	king := s.hdr.king
	if !king.Valid() {
		return nil
	}
	enemy := s.side.Other()
	for dir := 0; dir < gm.NumDirections; dir++ {
		slider := gm.Bishop
		if gm.IsOrthogonal(dir) {
			slider = gm.Rook
		}
		for i, x := range s.t.Rays[king][dir] {
			if s.IsFriendlyPiece(x) {
				break
			}
			if i == 0 {
				if err := s.exclude(op, x, gm.King); err != nil {
					return err
				}
			}
			for _, k := range [2]gm.Piece{gm.Queen, slider} {
				if err := s.exclude(op, x, k); err != nil {
					return err
				}
			}
			if s.squares[x] != Uncertain(EmptyOnly) {
				break
			}
		}
	}
	for _, x := range s.t.Knight[king] {
		if err := s.exclude(op, x, gm.Knight); err != nil {
			return err
		}
	}
	for _, x := range s.t.PawnAttackers[enemy][king] {
		if err := s.exclude(op, x, gm.Pawn); err != nil {
			return err
		}
	}
	return nil
}
