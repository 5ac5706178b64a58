package engine

import (
	"fmt"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
)

// EvolveAfterLegalMove applies our move m after the umpire accepted it.
// capture is the umpire's capture announcement, checks the checks the move
// gave and enemyTries the opponent's pawn tries for its reply.
func (pb *ProbabilityBoard) EvolveAfterLegalMove(m gm.Move, capture gm.CaptureKind, checks gm.CheckRecord, enemyTries int) error {
	const op = "legal move"
	if err := pb.ValidateMove(m); err != nil {
		return err
	}

	// The path was open.
	if m.Piece.IsSlider() || m.Piece == gm.Pawn || m.IsCastle() {
		for _, b := range pb.t.Between(m.From, m.To).Squares() {
			if pb.isFriendly(b) {
				return redistErr(op, b, pb.friendly.At(b), ErrInvalidMoveRequest)
			}
			pb.probs.Set(b, gm.Certain(gm.Empty))
		}
	}

	target := m.To
	if pb.isEnPassant(m, capture) {
		target = gm.SquareOf(m.To.File(), m.From.Rank())
	}
	if err := pb.removeCaptured(op, target, capture); err != nil {
		return err
	}
	pb.probs.Set(m.To, gm.Certain(gm.Empty))

	landed := m.Piece
	if m.IsPromotion() {
		landed = m.Promotion
		pb.own[gm.Pawn]--
		pb.own[landed]++
	}
	pb.friendly.Set(m.From, gm.Empty)
	pb.friendly.Set(m.To, landed)
	pb.doublePush = gm.NoSquare
	if m.Piece == gm.Pawn && (m.To.Rank()-m.From.Rank())*pb.side.Forward() == 2 {
		pb.doublePush = m.To
	}
	pb.castle.update(pb.side, m)
	if m.IsCastle() {
		rookFrom, rookTo := castleRookSquares(m)
		pb.friendly.Set(rookFrom, gm.Empty)
		pb.friendly.Set(rookTo, gm.Rook)
	}
	if err := pb.fit(op); err != nil {
		return err
	}

	if checks.Active() {
		if err := pb.applyGivenChecks(m, checks); err != nil {
			return err
		}
		// Our king is safe after any legal move, but the king exclusion step
		// of UpdateKingSafety would contradict the checks just given.
		pb.clearKingAttackers()
		pb.normalizeRows()
		if err := pb.fit(op); err != nil {
			return err
		}
	} else {
		pb.given = gm.CheckRecord{}
		if err := pb.UpdateKingSafety(); err != nil {
			return err
		}
	}
	if err := pb.applyEnemyPawnTries(enemyTries); err != nil {
		return err
	}

	pb.checks = gm.CheckRecord{}
	pb.tickBans()
	pb.ply++
	pb.log.Debug().Int("ply", pb.ply).Str("move", m.String()).Str("capture", capture.String()).
		Str("checks", checks.String()).Msg("legal move applied")
	return nil
}

// isEnPassant reports whether the pawn capture m can only have taken a pawn
// that stood beside us.
func (pb *ProbabilityBoard) isEnPassant(m gm.Move, capture gm.CaptureKind) bool {
	if capture != gm.PawnCapture || m.Piece != gm.Pawn || m.From.File() == m.To.File() {
		return false
	}
	if m.From.Rank() != pb.side.EnPassantRank() || pb.probs.At(m.To)[gm.Pawn] > pb.cfg.Epsilon {
		return false
	}
	side := gm.SquareOf(m.To.File(), m.From.Rank())
	return !pb.isFriendly(side) && pb.probs.At(side)[gm.Pawn] > pb.cfg.Epsilon
}

func (pb *ProbabilityBoard) removeCaptured(op string, sq gm.Square, capture gm.CaptureKind) error {
	if capture == gm.NoCapture {
		if pb.probs.At(sq)[gm.Empty] <= 0 {
			return redistErr(op, sq, gm.Empty, ErrInconsistentEvent)
		}
		return nil
	}
	d := pb.probs.At(sq)
	switch capture {
	case gm.PawnCapture:
		if d[gm.Pawn] <= 0 {
			return redistErr(op, sq, gm.Pawn, ErrInconsistentEvent)
		}
		pb.totals[gm.Pawn]--
		b := &pb.pawnFiles[sq.File()]
		if b.Min > 0 {
			b.Min--
		}
		if b.Max > 0 {
			b.Max--
		}
	case gm.PieceCapture:
		victim, ok := d.Without(gm.Empty, gm.Pawn, gm.King)
		if !ok {
			return redistErr(op, sq, gm.Empty, ErrInconsistentEvent)
		}
		for k := gm.Knight; k < gm.King; k++ {
			pb.totals[k] -= victim[k]
		}
	}
	for k := gm.Pawn; k < gm.NumPieces; k++ {
		if pb.totals[k] < 0 {
			pb.totals[k] = 0
		}
	}
	pb.probs.Set(sq, gm.Certain(gm.Empty))
	return nil
}

// update clears the castling rights that m gives up.
func (c *castleRights) update(side gm.Color, m gm.Move) {
	if m.Piece == gm.King {
		c.kingMoved = true
		if m.IsCastle() {
			c.hasCastled = true
		}
	}
	if m.Piece == gm.Rook && m.From.Rank() == side.HomeRank() {
		c.rookLost(m.From)
	}
}

func (c *castleRights) rookLost(sq gm.Square) {
	switch sq.File() {
	case 0:
		c.rookMoved[0] = true
	case 7:
		c.rookMoved[1] = true
	}
}

// UpdateAfterIllegalMove records the umpire's rejection of m. The move is
// banned for the configured number of plies. A rejected pawn push of an
// unpinned pawn while not in check proves that its destination is occupied;
// a rejected pawn capture under the same conditions proves it is empty.
func (pb *ProbabilityBoard) UpdateAfterIllegalMove(m gm.Move) error {
	pb.bans[m.Key()] = pb.cfg.BanPlies
	if m.Piece != gm.Pawn || pb.checks.Active() || pb.PinProbability(m.From) > pb.cfg.Epsilon {
		return nil
	}
	if pb.isFriendly(m.To) {
		return redistErr("illegal move", m.To, pb.friendly.At(m.To), ErrInvalidMoveRequest)
	}
	if m.From.File() != m.To.File() {
		if pb.probs.At(m.To)[gm.Empty] >= 1 {
			return nil
		}
		return pb.SquareIsEmpty(m.To)
	}
	if mid := pb.t.Between(m.From, m.To); mid != 0 {
		// Double push: only conclusive once the middle square is known empty.
		s := mid.Squares()[0]
		if pb.probs.At(s)[gm.Empty] < 1 {
			return nil
		}
	}
	if pb.probs.At(m.To)[gm.Empty] <= 0 {
		return nil
	}
	return pb.ExcludePieceFromSquare(m.To, gm.Empty)
}

// EvolveAfterOpponentMove applies the opponent's unseen move. capture is the
// square where one of our pieces was taken, NoSquare otherwise; checks are
// the checks against us and tries our pawn tries for the coming move.
func (pb *ProbabilityBoard) EvolveAfterOpponentMove(capture gm.Square, checks gm.CheckRecord, tries int) error {
	const op = "opponent move"
	if capture.Valid() {
		if err := pb.SquareWasCaptured(capture); err != nil {
			return err
		}
	} else {
		flows := pb.enemyFlows(gm.NoSquare)
		total := 0.0
		for _, f := range flows {
			total += f.w
		}
		if total > 0 {
			pb.applyFlows(flows, total)
			if err := pb.fit(op); err != nil {
				return err
			}
		} else {
			pb.log.Warn().Int("ply", pb.ply).Msg("no plausible opponent move")
		}
	}
	pb.ageSquares()

	pb.checks = gm.CheckRecord{}
	if checks.Active() {
		if err := pb.applyCheckEvidence(checks); err != nil {
			return err
		}
	}
	if err := pb.applyOwnPawnTries(tries); err != nil {
		return err
	}
	pb.doublePush = gm.NoSquare
	pb.tickBans()
	pb.ply++
	pb.log.Debug().Int("ply", pb.ply).Str("capture", capture.String()).Str("checks", checks.String()).
		Int("tries", tries).Msg("opponent move applied")
	return nil
}

func (pb *ProbabilityBoard) ageSquares() {
	for s := gm.Square(0); s < 64; s++ {
		if pb.isFriendly(s) || pb.probs.At(s).Pieces() <= pb.cfg.Epsilon {
			pb.age.Set(s, 0)
			continue
		}
		if a := pb.age.At(s); a < ^uint16(0) {
			pb.age.Set(s, a+1)
		}
	}
}

func (pb *ProbabilityBoard) tickBans() {
	for k, n := range pb.bans {
		if n <= 1 {
			delete(pb.bans, k)
			continue
		}
		pb.bans[k] = n - 1
	}
}

// Banned reports whether m was rejected by the umpire recently.
func (pb *ProbabilityBoard) Banned(m gm.Move) bool {
	_, ok := pb.bans[m.Key()]
	return ok
}

// ResetToUniformPrior forgets where the opponent's pieces are and spreads
// the tracked material evenly over every square we do not occupy. Pawns are
// kept off the first and last rank. It is the fallback after an event that
// contradicted the field.
func (pb *ProbabilityBoard) ResetToUniformPrior() error {
	const op = "reset"
	rows := pb.uncertainRows()
	n := rows.Count()
	if n == 0 {
		return redistErr(op, gm.NoSquare, gm.Empty, ErrInconsistentEvent)
	}
	pawnSquares := 0
	for _, s := range rows.Squares() {
		if r := s.Rank(); r != 0 && r != 7 {
			pawnSquares++
		}
	}
	for _, s := range rows.Squares() {
		var d gm.Dist
		for k := gm.Pawn; k < gm.NumPieces; k++ {
			d[k] = pb.totals[k] / float64(n)
		}
		d[gm.Pawn] = 0
		if r := s.Rank(); r != 0 && r != 7 && pawnSquares > 0 {
			d[gm.Pawn] = pb.totals[gm.Pawn] / float64(pawnSquares)
		}
		d[gm.Empty] = 1 - d.Pieces()
		if d[gm.Empty] < 0 {
			d[gm.Empty] = 0
		}
		nd, _ := d.Normalize()
		pb.probs.Set(s, nd)
		pb.age.Set(s, 0)
	}
	for f := range pb.pawnFiles {
		pb.pawnFiles[f] = PawnBounds{Min: 0, Max: 8}
	}
	pb.checks.Candidates = 0
	if err := pb.fit(op); err != nil {
		return fmt.Errorf("uniform prior: %w", err)
	}
	pb.log.Warn().Int("ply", pb.ply).Msg("belief reset to uniform prior")
	return nil
}
