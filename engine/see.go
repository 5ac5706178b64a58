package engine

import (
	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
)

// ProtectionMatrix counts, per square, how many of our pieces could recapture
// there and which of them is the least valuable.
type ProtectionMatrix struct {
	Count [64]uint8
	Least [64]gm.Piece
}

// Protected reports whether at least one of our pieces covers sq.
func (pm *ProtectionMatrix) Protected(sq gm.Square) bool { return pm.Count[sq] > 0 }

func (pm *ProtectionMatrix) add(sq gm.Square, p gm.Piece) {
	if pm.Count[sq] == 0 || seeOrder[p] < seeOrder[pm.Least[sq]] {
		pm.Least[sq] = p
	}
	pm.Count[sq]++
}

// seeOrder ranks attackers from least to most valuable.
var seeOrder = [gm.NumKinds]int{
	gm.Pawn:   0,
	gm.Knight: 1,
	gm.Bishop: 2,
	gm.Rook:   3,
	gm.Queen:  4,
	gm.King:   5,
	gm.Empty:  6,
}

// ComputeProtectionMatrix projects the capture rays of every one of our
// pieces. Hard rays stop at the first square that may hold anything; soft
// rays also run through uncertain squares that may be empty, which counts
// protection that exists if the opponent is not in the way.
func (s *CompactState) ComputeProtectionMatrix(soft bool) ProtectionMatrix {
	var pm ProtectionMatrix
	for i := range pm.Least {
		pm.Least[i] = gm.Empty
	}
	for a := gm.Square(0); a < 64; a++ {
		p := s.FriendlyPiece(a)
		switch {
		case p == gm.Empty:
		case p == gm.Pawn:
			for _, x := range s.t.PawnCaptures[s.side][a] {
				pm.add(x, p)
			}
		case p.IsSlider():
			for _, dir := range gm.SlideDirections(p) {
				for _, x := range s.t.Rays[a][dir] {
					pm.add(x, p)
					if s.IsFriendlyPiece(x) {
						break
					}
					if st := s.squares[x]; st != Uncertain(EmptyOnly) && (!soft || !st.Mask().Has(gm.Empty)) {
						break
					}
				}
			}
		default:
			for _, x := range s.t.Jumps(p, s.side, a) {
				pm.add(x, p)
			}
		}
	}
	return pm
}

// exchangeLoss estimates what we lose when the opponent takes our piece of
// kind victim on sq with its least valuable possible attacker. The swap
// stops after our recapture, since deeper exchanges depend on pieces we
// cannot see.
func exchangeLoss(values [gm.NumPieces]float64, victim, attacker gm.Piece, pm *ProtectionMatrix, sq gm.Square) float64 {
	gain := values[victim]
	if !pm.Protected(sq) || attacker == gm.Empty || attacker == gm.King {
		return gain
	}
	return max(gain-values[attacker], 0)
}

// leastAttacker returns the cheapest opponent kind that may capture on sq
// given the masks, Empty if none may.
func (s *CompactState) leastAttacker(sq gm.Square) gm.Piece {
	enemy := s.side.Other()
	best := gm.Empty
	consider := func(k gm.Piece) {
		if seeOrder[k] < seeOrder[best] {
			best = k
		}
	}
	for _, x := range s.t.PawnAttackers[enemy][sq] {
		if s.CanContain(x, gm.Pawn) {
			consider(gm.Pawn)
		}
	}
	for _, x := range s.t.Knight[sq] {
		if s.CanContain(x, gm.Knight) {
			consider(gm.Knight)
		}
	}
	for _, x := range s.t.King[sq] {
		if s.CanContain(x, gm.King) {
			consider(gm.King)
		}
	}
	for dir := 0; dir < gm.NumDirections; dir++ {
		slider := gm.Bishop
		if gm.IsOrthogonal(dir) {
			slider = gm.Rook
		}
		for _, x := range s.t.Rays[sq][dir] {
			if s.IsFriendlyPiece(x) {
				break
			}
			if s.CanContain(x, slider) {
				consider(slider)
			}
			if s.CanContain(x, gm.Queen) {
				consider(gm.Queen)
			}
			if !s.MayBeEmpty(x) {
				break
			}
		}
	}
	return best
}
