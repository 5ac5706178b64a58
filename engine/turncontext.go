package engine

import (
	"math"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
)

// TurnContext holds the tables derived once per ply and shared by every
// evaluation of that ply. It is read-only after construction, so branches
// evaluated in parallel can share one.
type TurnContext struct {
	cfg  Config
	t    *gm.Tables
	side gm.Color

	// Offsets are the capture offsets of each colour, indexed by colour.
	Offsets    [2]offsetTable
	Protection ProtectionMatrix
	Soft       ProtectionMatrix
	King       gm.Square
	EnemyKing  gm.Bitboard

	OwnMaterial   float64
	EnemyMaterial float64

	// Danger maps a square's age onto [0, 1], rising linearly and saturating
	// at Config.DangerHorizon.
	Danger []float64
	// Risk is the per-kind risk modifier scaled by the material balance.
	Risk [gm.NumPieces]float64
}

// offsetTable lists, per square, the squares a pawn of one colour captures
// from there.
type offsetTable [64][]gm.Square

// NewTurnContext derives the per-ply tables from a snapshot.
func NewTurnContext(cfg Config, s *CompactState) *TurnContext {
	tc := &TurnContext{
		cfg:        cfg,
		t:          s.t,
		side:       s.side,
		Protection: s.ComputeProtectionMatrix(false),
		Soft:       s.ComputeProtectionMatrix(true),
		King:       s.hdr.king,
		EnemyKing:  s.KingCandidates(),
	}
	for c := gm.White; c <= gm.Black; c++ {
		tc.Offsets[c] = s.t.PawnCaptures[c]
	}
	for k := gm.Pawn; k < gm.King; k++ {
		tc.OwnMaterial += float64(s.hdr.own[k]) * cfg.PieceValues[k]
		tc.EnemyMaterial += s.hdr.enemy[k] * cfg.PieceValues[k]
	}

	h := max(cfg.DangerHorizon, 1)
	tc.Danger = make([]float64, h+1)
	for a := range tc.Danger {
		tc.Danger[a] = float64(a) / float64(h)
	}

	ratio := 1.0
	if tc.OwnMaterial > 0 {
		ratio = tc.EnemyMaterial / tc.OwnMaterial
	}
	ratio = math.Min(math.Max(ratio, 0.5), 2)
	for k := range tc.Risk {
		tc.Risk[k] = cfg.RiskModifiers[k] * ratio
	}
	return tc
}

// danger is the curve value for an age.
func (tc *TurnContext) danger(age uint16) float64 {
	if int(age) >= len(tc.Danger) {
		return 1
	}
	return tc.Danger[age]
}

// DangerRating scores how exposed sq is to the opponent. Each square that
// may host an attacker of sq adds a weight that grows with its age; possible
// pawn attackers add a bonus of their own, and the overall age of the board
// adds a baseline.
func (s *CompactState) DangerRating(tc *TurnContext, sq gm.Square) float64 {
	enemy := s.side.Other()
	weight := func(x gm.Square) float64 { return 0.5 + 0.5*tc.danger(s.age[x]) }
	r := 0.0
	for _, x := range s.t.PawnAttackers[enemy][sq] {
		if s.CanContain(x, gm.Pawn) {
			r += weight(x) + tc.cfg.PawnTryBonus
		}
	}
	for _, x := range s.t.Knight[sq] {
		if s.CanContain(x, gm.Knight) {
			r += weight(x)
		}
	}
	for _, x := range s.t.King[sq] {
		if s.CanContain(x, gm.King) {
			r += weight(x)
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
			if s.CanContain(x, slider) || s.CanContain(x, gm.Queen) {
				r += weight(x)
			}
			if !s.MayBeEmpty(x) {
				break
			}
		}
	}
	return r + tc.cfg.AgeScale*float64(s.totalAge)/64
}

// PieceSafety is the chance-like safety of our piece on sq in [0, 1]: one
// for an unthreatened square, falling with danger and the piece's risk
// modifier, and softened by our protection of the square.
func (s *CompactState) PieceSafety(tc *TurnContext, sq gm.Square) float64 {
	p := s.FriendlyPiece(sq)
	if p == gm.Empty || p == gm.King {
		return 1
	}
	threat := s.DangerRating(tc, sq) * tc.Risk[p]
	threat /= 1 + float64(tc.Protection.Count[sq]) + 0.5*float64(tc.Soft.Count[sq]-tc.Protection.Count[sq])
	return 1 - math.Min(threat, 1)
}
