package engine

import (
	"math"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
)

// =============================================================================
// EVALUATION WEIGHTS
// =============================================================================
var (
	// CheckBonus rewards a move that gave check, per check.
	CheckBonus = 0.35
	// KingHuntWeight rewards narrowing down the opponent king's location.
	KingHuntWeight = 0.25
	// TryWeight rewards having pawn captures available.
	TryWeight = 0.1
	// MobilityWeight rewards the number of moves we can attempt.
	MobilityWeight = 0.01
)

// Evaluate scores a snapshot from our point of view. Material is counted
// for certain on our side and in expectation on the opponent's; each of our
// pieces is discounted by what an exchange on its square would cost times
// how unsafe the square is.
func Evaluate(s *CompactState, tc *TurnContext) float64 {
	score := 0.0
	for k := gm.Pawn; k < gm.King; k++ {
		score += tc.cfg.PieceValues[k] * (float64(s.hdr.own[k]) - s.hdr.enemy[k])
	}

	for sq := gm.Square(0); sq < 64; sq++ {
		p := s.FriendlyPiece(sq)
		if p == gm.Empty || p == gm.King {
			continue
		}
		safety := s.PieceSafety(tc, sq)
		if safety >= 1 {
			continue
		}
		loss := exchangeLoss(tc.cfg.PieceValues, p, s.leastAttacker(sq), &tc.Protection, sq)
		score -= (1 - safety) * loss
	}

	if k := s.hdr.king; k.Valid() {
		score -= 0.1 * s.DangerRating(tc, k)
	}

	if n := s.KingCandidates().Count(); n > 0 {
		score -= KingHuntWeight * math.Log(float64(n))
	}
	score += CheckBonus * float64(s.hdr.given.Count())
	if s.hdr.pawnTries > 0 {
		score += TryWeight * float64(s.hdr.pawnTries)
	}
	score -= tc.cfg.AgeScale * float64(s.totalAge) / 64
	return score
}

// EvaluateMobility adds the mobility term, which needs move generation and
// is only used at the root.
func EvaluateMobility(s *CompactState, tc *TurnContext) float64 {
	return Evaluate(s, tc) + MobilityWeight*float64(len(s.Moves()))
}
