package engine

import (
	"fmt"
	"math"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
)

// =============================================================================
// SQUARE MUTATORS
// =============================================================================
// Each mutator fixes what an observation says about one square and then
// refits the whole field, so surplus or missing mass flows to the other
// uncertain squares in proportion to what they already hold.

func (pb *ProbabilityBoard) requireUncertain(op string, sq gm.Square) error {
	if !sq.Valid() {
		return redistErr(op, sq, gm.NumKinds, ErrInvalidMoveRequest)
	}
	if pb.isFriendly(sq) {
		return redistErr(op, sq, pb.friendly.At(sq), ErrInconsistentEvent)
	}
	return nil
}

// SquareIsEmpty records that sq holds no opponent piece.
func (pb *ProbabilityBoard) SquareIsEmpty(sq gm.Square) error {
	const op = "square is empty"
	if err := pb.requireUncertain(op, sq); err != nil {
		return err
	}
	if pb.probs.At(sq)[gm.Empty] <= 0 {
		return redistErr(op, sq, gm.Empty, ErrInconsistentEvent)
	}
	pb.probs.Set(sq, gm.Certain(gm.Empty))
	return pb.fit(op)
}

// SquareContainsPawn records that sq holds an opponent pawn.
func (pb *ProbabilityBoard) SquareContainsPawn(sq gm.Square) error {
	const op = "square contains pawn"
	if err := pb.requireUncertain(op, sq); err != nil {
		return err
	}
	if pb.probs.At(sq)[gm.Pawn] <= 0 {
		return redistErr(op, sq, gm.Pawn, ErrInconsistentEvent)
	}
	pb.probs.Set(sq, gm.Certain(gm.Pawn))
	return pb.fit(op)
}

// SquareContainsPiece records that sq holds an opponent piece other than a
// pawn, as announced by a "piece" capture. Kings are never captured.
func (pb *ProbabilityBoard) SquareContainsPiece(sq gm.Square) error {
	const op = "square contains piece"
	if err := pb.requireUncertain(op, sq); err != nil {
		return err
	}
	d, ok := pb.probs.At(sq).Without(gm.Empty, gm.Pawn, gm.King)
	if !ok {
		return redistErr(op, sq, gm.Empty, ErrInconsistentEvent)
	}
	pb.probs.Set(sq, d)
	return pb.fit(op)
}

// ExcludePieceFromSquare records that sq cannot hold kind k.
func (pb *ProbabilityBoard) ExcludePieceFromSquare(sq gm.Square, k gm.Piece) error {
	const op = "exclude piece"
	if err := pb.requireUncertain(op, sq); err != nil {
		return err
	}
	d, ok := pb.probs.At(sq).Without(k)
	if !ok {
		return redistErr(op, sq, k, ErrInconsistentEvent)
	}
	pb.probs.Set(sq, d)
	return pb.fit(op)
}

// UpdateEmptyProbability recomputes P(Empty) of sq as the mass the pieces
// leave over. Calling it twice in a row changes nothing.
func (pb *ProbabilityBoard) UpdateEmptyProbability(sq gm.Square) {
	if pb.isFriendly(sq) {
		pb.probs.Set(sq, gm.Certain(gm.Empty))
		return
	}
	d := pb.probs.At(sq).Clamp()
	pieces := d.Pieces()
	if pieces > 1 {
		for k := gm.Pawn; k < gm.NumPieces; k++ {
			d[k] /= pieces
		}
		pieces = 1
	}
	d[gm.Empty] = 1 - pieces
	pb.probs.Set(sq, d.Clamp())
}

// =============================================================================
// CAPTURES
// =============================================================================

type flow struct {
	from, to gm.Square
	kind     gm.Piece
	land     gm.Piece
	w        float64

	// castle flows also carry the rook from rookFrom to rookTo.
	castle           bool
	rookFrom, rookTo gm.Square

	// passant flows take our pawn beside the mover, not on to.
	passant bool
}

// promotionShare weighs the piece an opponent pawn promotes to.
var promotionShare = [gm.NumPieces]float64{gm.Knight: 0.1, gm.Bishop: 0.1, gm.Rook: 0.1, gm.Queen: 0.7}

// enemyFlows lists every plausible single opponent move, weighted by the
// mass of the moving kind and the chance its path is open. With a capture
// square only moves landing there are considered.
func (pb *ProbabilityBoard) enemyFlows(capture gm.Square) []flow {
	enemy := pb.side.Other()
	var flows []flow
	for s := gm.Square(0); s < 64; s++ {
		if pb.isFriendly(s) {
			continue
		}
		d := pb.probs.At(s)
		for k := gm.Pawn; k < gm.NumPieces; k++ {
			if d[k] <= pb.cfg.Epsilon {
				continue
			}
			pb.enemyTargets(s, k, enemy, capture, func(to gm.Square, w float64) {
				if w <= 0 {
					return
				}
				if k != gm.Pawn || to.Rank() != enemy.PromotionRank() {
					flows = append(flows, flow{from: s, to: to, kind: k, land: k, w: d[k] * w})
					return
				}
				for land := gm.Knight; land < gm.King; land++ {
					flows = append(flows, flow{from: s, to: to, kind: k, land: land, w: d[k] * w * promotionShare[land]})
				}
			})
		}
	}
	if capture.Valid() && capture == pb.doublePush {
		flows = append(flows, pb.passantFlows(capture)...)
	}
	if !capture.Valid() {
		flows = append(flows, pb.castleFlows()...)
	}
	return flows
}

// passantFlows are the en passant captures of our pawn on sq, which just
// made a double step.
func (pb *ProbabilityBoard) passantFlows(sq gm.Square) []flow {
	passed := gm.SquareOf(sq.File(), sq.Rank()-pb.side.Forward())
	if pb.isFriendly(passed) {
		return nil
	}
	var flows []flow
	for _, df := range [2]int{-1, 1} {
		from, ok := sq.Offset(df, 0)
		if !ok || pb.isFriendly(from) {
			continue
		}
		if w := pb.probs.At(from)[gm.Pawn] * pb.emptyProb(passed); w > 0 {
			flows = append(flows, flow{from: from, to: passed, kind: gm.Pawn, land: gm.Pawn, w: w, passant: true})
		}
	}
	return flows
}

// castleFlows are the opponent castlings the field still allows. Castling
// rights are not tracked for the opponent; a king and rook on their home
// squares with open squares between them are enough.
func (pb *ProbabilityBoard) castleFlows() []flow {
	enemy := pb.side.Other()
	home := enemy.HomeRank()
	king := gm.SquareOf(4, home)
	if pb.isFriendly(king) || pb.probs.At(king)[gm.King] <= pb.cfg.Epsilon {
		return nil
	}
	var flows []flow
	for _, to := range [2]gm.Square{gm.SquareOf(6, home), gm.SquareOf(2, home)} {
		m := gm.NewMove(king, to, gm.King)
		rookFrom, rookTo := castleRookSquares(m)
		if pb.isFriendly(rookFrom) {
			continue
		}
		w := pb.probs.At(king)[gm.King] * pb.probs.At(rookFrom)[gm.Rook] * pb.clearBetween(king, rookFrom)
		if w > pb.cfg.Epsilon {
			flows = append(flows, flow{from: king, to: to, kind: gm.King, land: gm.King, w: w,
				castle: true, rookFrom: rookFrom, rookTo: rookTo})
		}
	}
	return flows
}

func (pb *ProbabilityBoard) enemyTargets(s gm.Square, k gm.Piece, enemy gm.Color, capture gm.Square, fn func(gm.Square, float64)) {
	switch {
	case k == gm.Pawn:
		if capture.Valid() {
			for _, to := range pb.t.PawnCaptures[enemy][s] {
				if to == capture {
					fn(to, 1)
				}
			}
			return
		}
		to := pb.t.PawnPush[enemy][s]
		if !to.Valid() {
			return
		}
		w := pb.emptyProb(to)
		fn(to, w)
		if s.Rank() == enemy.PawnRank() {
			if to2 := pb.t.PawnPush[enemy][to]; to2.Valid() {
				fn(to2, w*pb.emptyProb(to2))
			}
		}
	case k.IsSlider():
		for _, dir := range gm.SlideDirections(k) {
			clear := 1.0
			for _, to := range pb.t.Rays[s][dir] {
				if to == capture {
					fn(to, clear)
					break
				}
				if pb.isFriendly(to) {
					break
				}
				if !capture.Valid() {
					fn(to, clear*pb.emptyProb(to))
				}
				clear *= pb.emptyProb(to)
				if clear <= pb.cfg.Epsilon {
					break
				}
			}
		}
	default:
		for _, to := range pb.t.Jumps(k, enemy, s) {
			switch {
			case to == capture:
				fn(to, 1)
			case !capture.Valid() && !pb.isFriendly(to):
				fn(to, pb.emptyProb(to))
			}
		}
	}
}

// applyFlows shifts the normalised flow mass from origins to destinations.
func (pb *ProbabilityBoard) applyFlows(flows []flow, total float64) {
	next := pb.probs
	for _, f := range flows {
		q := f.w / total
		src := next.Ptr(f.from)
		q = math.Min(q, src[f.kind])
		src[f.kind] -= q
		src[gm.Empty] += q
		dst := next.Ptr(f.to)
		dst[f.land] += q
		dst[gm.Empty] -= q
		if f.land != f.kind {
			pb.totals[f.kind] -= q
			pb.totals[f.land] += q
		}
		if f.castle {
			r := math.Min(q, next.At(f.rookFrom)[gm.Rook])
			next.Ptr(f.rookFrom)[gm.Rook] -= r
			next.Ptr(f.rookFrom)[gm.Empty] += r
			next.Ptr(f.rookTo)[gm.Rook] += r
			next.Ptr(f.rookTo)[gm.Empty] -= r
		}
	}
	for s := gm.Square(0); s < 64; s++ {
		d := next.Ptr(s)
		if n, ok := d.Clamp().Normalize(); ok {
			*d = n
		} else {
			*d = gm.Certain(gm.Empty)
		}
	}
	pb.probs = next
}

// SquareWasCaptured records that the opponent captured our piece on sq. The
// capturer's identity is attributed across every piece and path that could
// reach sq, weighted by how likely that path was open.
func (pb *ProbabilityBoard) SquareWasCaptured(sq gm.Square) error {
	const op = "square was captured"
	if !sq.Valid() {
		return redistErr(op, sq, gm.NumKinds, ErrInvalidMoveRequest)
	}
	lost := pb.friendly.At(sq)
	if lost == gm.Empty {
		return redistErr(op, sq, gm.Empty, ErrInconsistentEvent)
	}
	flows := pb.enemyFlows(sq)
	total := 0.0
	for _, f := range flows {
		total += f.w
	}
	if total <= 0 {
		return redistErr(op, sq, lost, ErrNoAttacker)
	}

	passant := 0.0
	for _, f := range flows {
		if f.passant {
			passant += f.w / total
		}
	}
	pb.friendly.Set(sq, gm.Empty)
	pb.own[lost]--
	pb.probs.Set(sq, gm.Dist{})
	pb.applyFlows(flows, total)
	if passant > 0 {
		// En passant leaves the square empty.
		d := pb.probs.At(sq)
		for k := gm.Pawn; k < gm.NumPieces; k++ {
			d[k] *= 1 - passant
		}
		d[gm.Empty] = passant
		pb.probs.Set(sq, d)
	}
	pb.trackPawnCapture(flows, total, sq)
	if lost == gm.Rook && sq.Rank() == pb.side.HomeRank() {
		pb.castle.rookLost(sq)
	}
	return pb.fit(op)
}

// trackPawnCapture widens the pawn file bounds when a pawn may have captured
// onto another file.
func (pb *ProbabilityBoard) trackPawnCapture(flows []flow, total float64, sq gm.Square) {
	moved := false
	for _, f := range flows {
		if f.kind != gm.Pawn || f.w/total <= pb.cfg.Epsilon {
			continue
		}
		moved = true
		if b := &pb.pawnFiles[f.from.File()]; b.Min > 0 {
			b.Min--
		}
	}
	if b := &pb.pawnFiles[sq.File()]; moved && b.Max < 8 {
		b.Max++
	}
}

// =============================================================================
// KING SAFETY
// =============================================================================

// UpdateKingSafety applies what a legal, non-checking move of ours proves:
// nothing of the opponent attacks our king, and the opponent king stands on
// no square we attack. Possibilities are cut in proportion to how likely the
// line between the two squares is clear.
func (pb *ProbabilityBoard) UpdateKingSafety() error {
	const op = "update king safety"
	pb.clearKingAttackers()
	if err := pb.excludeKingFromAttacks(op); err != nil {
		return err
	}
	pb.normalizeRows()
	return pb.fit(op)
}

// clearKingAttackers cuts every opponent possibility that would attack our
// king along an open line. Rows are left unnormalised.
func (pb *ProbabilityBoard) clearKingAttackers() {
	king := pb.KingSquare()
	if !king.Valid() {
		return
	}
	enemy := pb.side.Other()
	for dir := 0; dir < gm.NumDirections; dir++ {
		clear := 1.0
		for i, s := range pb.t.Rays[king][dir] {
			if pb.isFriendly(s) {
				break
			}
			d := pb.probs.Ptr(s)
			d[gm.Queen] *= 1 - clear
			if gm.IsOrthogonal(dir) {
				d[gm.Rook] *= 1 - clear
			} else {
				d[gm.Bishop] *= 1 - clear
			}
			if i == 0 {
				d[gm.King] = 0
			}
			clear *= d[gm.Empty]
			if clear <= pb.cfg.Epsilon {
				break
			}
		}
	}
	for _, s := range pb.t.Knight[king] {
		if !pb.isFriendly(s) {
			pb.probs.Ptr(s)[gm.Knight] = 0
		}
	}
	for _, s := range pb.t.PawnAttackers[enemy][king] {
		if !pb.isFriendly(s) {
			pb.probs.Ptr(s)[gm.Pawn] = 0
		}
	}
}

func zeroKind(d gm.Dist, k gm.Piece) gm.Dist {
	d[k] = 0
	return d
}

// excludeKingFromAttacks removes king mass from the squares we attack,
// scaled by the probability that the attacking line is open.
func (pb *ProbabilityBoard) excludeKingFromAttacks(op string) error {
	before := 0.0
	after := 0.0
	var keep [64]float64
	for s := range keep {
		keep[s] = 1
	}
	for a := gm.Square(0); a < 64; a++ {
		p := pb.friendly.At(a)
		if p == gm.Empty {
			continue
		}
		if !p.IsSlider() {
			for _, s := range pb.t.Jumps(p, pb.side, a) {
				keep[s] = 0
			}
			continue
		}
		for _, dir := range gm.SlideDirections(p) {
			clear := 1.0
			for _, s := range pb.t.Rays[a][dir] {
				if pb.isFriendly(s) {
					break
				}
				keep[s] *= 1 - clear
				clear *= pb.probs.At(s)[gm.Empty]
				if clear <= pb.cfg.Epsilon {
					break
				}
			}
		}
	}
	for s := gm.Square(0); s < 64; s++ {
		if pb.isFriendly(s) {
			continue
		}
		d := pb.probs.Ptr(s)
		before += d[gm.King]
		d[gm.King] *= keep[s]
		after += d[gm.King]
	}
	if before > 0 && after <= pb.cfg.Epsilon {
		return redistErr(op, gm.NoSquare, gm.King, ErrNoKingCandidate)
	}
	return nil
}

func (pb *ProbabilityBoard) normalizeRows() {
	for s := gm.Square(0); s < 64; s++ {
		if pb.isFriendly(s) {
			continue
		}
		d := pb.probs.Ptr(s)
		if n, ok := d.Clamp().Normalize(); ok {
			*d = n
		} else {
			*d = gm.Certain(gm.Empty)
		}
	}
}

// =============================================================================
// CHECK EVIDENCE
// =============================================================================

// applyGivenChecks restricts the opponent king to the squares where it
// receives every check our move m announced.
func (pb *ProbabilityBoard) applyGivenChecks(m gm.Move, rec gm.CheckRecord) error {
	const op = "checks given"
	voter := kingVoter{
		t:        pb.t,
		geom:     pb.geom,
		side:     pb.side,
		friendly: pb.friendly.At,
		passable: func(s gm.Square) bool { return !pb.provablyOccupied(s) },
	}
	cands := voter.candidates(m, rec)
	mass := 0.0
	for _, s := range cands.Squares() {
		mass += pb.probs.At(s)[gm.King]
	}
	if mass <= pb.cfg.Epsilon {
		return redistErr(op, m.To, gm.King, ErrNoKingCandidate)
	}
	for s := gm.Square(0); s < 64; s++ {
		if pb.isFriendly(s) {
			continue
		}
		if !cands.Has(s) {
			*pb.probs.Ptr(s) = zeroKind(pb.probs.At(s), gm.King)
		}
	}
	pb.normalizeRows()
	rec.Candidates = cands
	pb.given = rec
	return pb.fit(op)
}

// applyCheckEvidence folds checks announced against us into the field. For
// every square that may host the checker the posterior mixes "the checker is
// here" with the prior; squares between such a checker and our king are
// pulled toward Empty with the same weight.
func (pb *ProbabilityBoard) applyCheckEvidence(rec gm.CheckRecord) error {
	const op = "check evidence"
	king := pb.KingSquare()
	if !king.Valid() {
		return redistErr(op, king, gm.King, ErrInconsistentEvent)
	}
	enemy := pb.side.Other()
	var all gm.Bitboard
	for _, ct := range rec.Types() {
		weights := make(map[gm.Square]float64)
		total := 0.0
		pb.geom.Walk(ct, king, func(dir, dist int, s gm.Square) bool {
			if pb.isFriendly(s) {
				return false
			}
			d := pb.probs.At(s)
			w := 0.0
			for _, k := range gm.CompatibleKinds(ct) {
				if k == gm.Pawn && !pawnAttacks(pb.t, enemy, s, king) {
					continue
				}
				w += d[k]
			}
			w *= pb.clearBetween(king, s)
			if w > 0 {
				weights[s] = w
				total += w
			}
			return dir < 0 || d[gm.Empty] > pb.cfg.Epsilon
		})
		if total <= 0 {
			return redistErr(op, king, gm.NumKinds, fmt.Errorf("%w: %s check", ErrNoAttacker, ct))
		}
		empties := make(map[gm.Square]float64)
		for s, w := range weights {
			r := w / total
			for _, b := range pb.t.Between(king, s).Squares() {
				empties[b] += r
			}
		}
		for s, w := range weights {
			r := w / total
			d := pb.probs.At(s)
			var only gm.Dist
			for _, k := range gm.CompatibleKinds(ct) {
				if k == gm.Pawn && !pawnAttacks(pb.t, enemy, s, king) {
					continue
				}
				only[k] = d[k]
			}
			if n, ok := only.Normalize(); ok {
				pb.mix(s, n, r)
			}
			if r > pb.cfg.Epsilon {
				all.Set(s)
			}
		}
		for b, r := range empties {
			pb.mix(b, gm.Certain(gm.Empty), math.Min(r, 1))
		}
	}
	rec.Candidates = all
	pb.checks = rec
	return pb.fit(op)
}

// clearBetween is the probability that nothing stands between a and b.
func (pb *ProbabilityBoard) clearBetween(a, b gm.Square) float64 {
	p := 1.0
	for _, s := range pb.t.Between(a, b).Squares() {
		p *= pb.emptyProb(s)
	}
	return p
}

func pawnAttacks(t *gm.Tables, c gm.Color, from, to gm.Square) bool {
	for _, s := range t.PawnCaptures[c][from] {
		if s == to {
			return true
		}
	}
	return false
}

// =============================================================================
// PAWN TRIES
// =============================================================================

// applyOwnPawnTries handles the umpire's count of our possible pawn captures.
// Zero tries means every square our pawns attack is empty. The umpire only
// counts legal captures, so nothing is learned in check or from a pawn that
// may be pinned.
func (pb *ProbabilityBoard) applyOwnPawnTries(tries int) error {
	const op = "pawn tries"
	pb.pawnTries = tries
	if tries != 0 || pb.checks.Active() {
		return nil
	}
	changed := false
	for a := gm.Square(0); a < 64; a++ {
		if pb.friendly.At(a) != gm.Pawn || pb.PinProbability(a) > pb.cfg.Epsilon {
			continue
		}
		for _, s := range pb.t.PawnCaptures[pb.side][a] {
			if pb.isFriendly(s) || pb.probs.At(s)[gm.Empty] >= 1 {
				continue
			}
			if pb.probs.At(s)[gm.Empty] <= 0 {
				return redistErr(op, s, gm.Empty, ErrInconsistentEvent)
			}
			pb.probs.Set(s, gm.Certain(gm.Empty))
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return pb.fit(op)
}

// applyEnemyPawnTries handles the opponent's count after our move. Zero tries
// means no opponent pawn attacks any of our pieces, unless our move gave
// check or the pawn may be pinned.
func (pb *ProbabilityBoard) applyEnemyPawnTries(tries int) error {
	const op = "enemy pawn tries"
	pb.enemyTries = tries
	if tries != 0 || pb.given.Active() {
		return nil
	}
	enemy := pb.side.Other()
	changed := false
	for a := gm.Square(0); a < 64; a++ {
		if !pb.isFriendly(a) {
			continue
		}
		for _, s := range pb.t.PawnAttackers[enemy][a] {
			if pb.isFriendly(s) || pb.probs.At(s)[gm.Pawn] <= 0 {
				continue
			}
			if pb.EnemyPinProbability(s) > pb.cfg.Epsilon {
				continue
			}
			d, ok := pb.probs.At(s).Without(gm.Pawn)
			if !ok {
				return redistErr(op, s, gm.Pawn, ErrInconsistentEvent)
			}
			pb.probs.Set(s, d)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return pb.fit(op)
}
