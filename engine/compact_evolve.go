package engine

import (
	"fmt"
	"math/bits"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
)

// EvolveAfterMove returns the snapshot after our move m was accepted with
// the given capture announcement, checks and opponent pawn tries. The
// receiver is left untouched.
func (s *CompactState) EvolveAfterMove(m gm.Move, capture gm.CaptureKind, checks gm.CheckRecord, enemyTries int) (*CompactState, error) {
	const op = "compact move"
	switch {
	case !m.From.Valid() || !m.To.Valid():
		return nil, fmt.Errorf("%w: %s", ErrInvalidMoveRequest, m)
	case s.FriendlyPiece(m.From) != m.Piece:
		return nil, fmt.Errorf("%w: no %s on %s", ErrInvalidMoveRequest, m.Piece, m.From)
	case s.IsFriendlyPiece(m.To):
		return nil, fmt.Errorf("%w: %s occupied by our %s", ErrInvalidMoveRequest, m.To, s.FriendlyPiece(m.To))
	}
	c := s.branch()

	if m.Piece.IsSlider() || m.Piece == gm.Pawn || m.IsCastle() {
		for _, b := range c.t.Between(m.From, m.To).Squares() {
			if !c.MayBeEmpty(b) {
				return nil, redistErr(op, b, gm.Empty, ErrInconsistentEvent)
			}
			c.SetEmpty(b)
		}
	}

	target := m.To
	if c.isEnPassant(m, capture) {
		target = gm.SquareOf(m.To.File(), m.From.Rank())
	}
	if err := c.removeCaptured(op, target, capture); err != nil {
		return nil, err
	}

	landed := m.Piece
	if m.IsPromotion() {
		landed = m.Promotion
		c.hdr.own[gm.Pawn]--
		c.hdr.own[landed]++
	}
	c.SetEmpty(m.From)
	c.SetFriendlyPiece(m.To, landed)
	c.hdr.doublePush = gm.NoSquare
	if m.Piece == gm.Pawn && (m.To.Rank()-m.From.Rank())*c.side.Forward() == 2 {
		c.hdr.doublePush = m.To
	}
	c.hdr.castle.update(c.side, m)
	if m.IsCastle() {
		rookFrom, rookTo := castleRookSquares(m)
		if !c.MayBeEmpty(rookTo) {
			return nil, redistErr(op, rookTo, gm.Empty, ErrInconsistentEvent)
		}
		c.SetEmpty(rookFrom)
		c.SetFriendlyPiece(rookTo, gm.Rook)
	}
	if m.Piece == gm.King {
		c.hdr.king = m.To
	}

	if err := c.restrictKingAttackers(op); err != nil {
		return nil, err
	}
	if checks.Active() {
		if err := c.UpdateEnemyKing(m, checks); err != nil {
			return nil, err
		}
	} else {
		c.hdr.given = gm.CheckRecord{}
		if err := c.RestrictEnemyKingNoCheck(); err != nil {
			return nil, err
		}
	}
	if enemyTries == 0 && !checks.Active() {
		if err := c.noEnemyPawnTries(op); err != nil {
			return nil, err
		}
	}
	c.hdr.checks = gm.CheckRecord{}
	c.hdr.ply++
	return c, nil
}

// isEnPassant reports whether a pawn capture can only have taken the pawn
// beside m.From.
func (s *CompactState) isEnPassant(m gm.Move, capture gm.CaptureKind) bool {
	if capture != gm.PawnCapture || m.Piece != gm.Pawn || m.From.File() == m.To.File() {
		return false
	}
	if m.From.Rank() != s.side.EnPassantRank() || s.CanContain(m.To, gm.Pawn) {
		return false
	}
	return s.CanContain(gm.SquareOf(m.To.File(), m.From.Rank()), gm.Pawn)
}

// removeCaptured clears sq after our capture and takes the victim off the
// opponent's material. A piece capture is shared evenly among the kinds the
// square could hold.
func (s *CompactState) removeCaptured(op string, sq gm.Square, capture gm.CaptureKind) error {
	mask := s.squares[sq].Mask()
	switch capture {
	case gm.NoCapture:
		if !mask.Has(gm.Empty) {
			return redistErr(op, sq, gm.Empty, ErrInconsistentEvent)
		}
		s.SetEmpty(sq)
		return nil
	case gm.PawnCapture:
		if !mask.Has(gm.Pawn) {
			return redistErr(op, sq, gm.Pawn, ErrInconsistentEvent)
		}
		s.hdr.enemy[gm.Pawn]--
	case gm.PieceCapture:
		victims := mask & MaskOf(gm.Knight, gm.Bishop, gm.Rook, gm.Queen)
		n := bits.OnesCount8(uint8(victims))
		if n == 0 {
			return redistErr(op, sq, gm.Empty, ErrInconsistentEvent)
		}
		for k := gm.Knight; k < gm.King; k++ {
			if victims.Has(k) {
				s.hdr.enemy[k] -= 1 / float64(n)
			}
		}
	}
	s.SetEmpty(sq)
	for k := gm.Pawn; k < gm.King; k++ {
		if s.hdr.enemy[k] > 1e-9 {
			continue
		}
		s.hdr.enemy[k] = 0
		for x := gm.Square(0); x < 64; x++ {
			if s.CanContain(x, k) && s.squares[x].Mask() != 1<<k {
				s.SetPieceImpossible(x, k)
			}
		}
	}
	return nil
}

// exclude clears kind k on sq, failing when nothing would be left.
func (s *CompactState) exclude(op string, sq gm.Square, k gm.Piece) error {
	if !s.CanContain(sq, k) {
		return nil
	}
	if s.squares[sq].Mask() == 1<<k {
		return redistErr(op, sq, k, ErrInconsistentEvent)
	}
	s.SetPieceImpossible(sq, k)
	return nil
}

// noEnemyPawnTries applies a zero pawn-tries announcement for the opponent:
// no opponent pawn that is free to move attacks any of our pieces.
func (s *CompactState) noEnemyPawnTries(op string) error {
	enemy := s.side.Other()
	for a := gm.Square(0); a < 64; a++ {
		if !s.IsFriendlyPiece(a) {
			continue
		}
		for _, p := range s.t.PawnAttackers[enemy][a] {
			if s.enemyMayBePinned(p) {
				continue
			}
			if err := s.exclude(op, p, gm.Pawn); err != nil {
				return err
			}
		}
	}
	return nil
}

// EvolveAfterOpponentMove returns the snapshot after the opponent's unseen
// move. Every possibility the move could have created is OR-merged into the
// masks: a source square may now be empty and a reachable square may now
// hold the mover. This is the only transition that widens masks.
func (s *CompactState) EvolveAfterOpponentMove(captureSq gm.Square, checks gm.CheckRecord, tries int) (*CompactState, error) {
	const op = "compact opponent move"
	c := s.branch()

	if captureSq.Valid() {
		lost := s.FriendlyPiece(captureSq)
		if lost == gm.Empty {
			return nil, redistErr(op, captureSq, gm.Empty, ErrInconsistentEvent)
		}
		var landed PieceMask
		s.eachOpponentMove(captureSq, func(from, _ gm.Square, _, land gm.Piece) {
			landed |= 1 << land
			c.SetPiecePossible(from, gm.Empty)
		})
		if captureSq == s.hdr.doublePush && s.passant(captureSq, c) {
			landed |= EmptyOnly
		}
		if landed == 0 {
			return nil, redistErr(op, captureSq, lost, ErrNoAttacker)
		}
		c.hdr.own[lost]--
		if lost == gm.Rook && captureSq.Rank() == c.side.HomeRank() {
			c.hdr.castle.rookLost(captureSq)
		}
		c.set(captureSq, Uncertain(landed))
	} else {
		s.eachOpponentMove(gm.NoSquare, func(from, to gm.Square, k, land gm.Piece) {
			c.SetPiecePossible(from, gm.Empty)
			c.SetPiecePossible(to, land)
		})
	}

	for sq := gm.Square(0); sq < 64; sq++ {
		switch {
		case c.IsFriendlyPiece(sq):
		case !c.mayHoldPiece(sq):
			c.setAge(sq, 0)
		case c.age[sq] < ^uint16(0):
			c.setAge(sq, c.age[sq]+1)
		}
	}

	c.hdr.checks = gm.CheckRecord{}
	if checks.Active() {
		if err := c.applyCheckEvidence(op, checks); err != nil {
			return nil, err
		}
	}
	c.hdr.doublePush = gm.NoSquare
	c.hdr.pawnTries = int8(tries)
	if tries == 0 && !c.hdr.checks.Active() {
		for a := gm.Square(0); a < 64; a++ {
			if c.FriendlyPiece(a) != gm.Pawn || c.mayBePinned(a) {
				continue
			}
			for _, x := range c.t.PawnCaptures[c.side][a] {
				if c.IsFriendlyPiece(x) {
					continue
				}
				if !c.MayBeEmpty(x) {
					return nil, redistErr(op, x, gm.Empty, ErrInconsistentEvent)
				}
				c.SetEmpty(x)
			}
		}
	}
	c.hdr.ply++
	return c, nil
}

// passant widens c with the en passant captures of our pawn on sq, judged
// on the masks of s. It reports whether any was possible.
func (s *CompactState) passant(sq gm.Square, c *CompactState) bool {
	passed := gm.SquareOf(sq.File(), sq.Rank()-s.side.Forward())
	if !s.MayBeEmpty(passed) {
		return false
	}
	found := false
	for _, df := range [2]int{-1, 1} {
		from, ok := sq.Offset(df, 0)
		if !ok || !s.CanContain(from, gm.Pawn) {
			continue
		}
		c.SetPiecePossible(from, gm.Empty)
		c.SetPiecePossible(passed, gm.Pawn)
		found = true
	}
	return found
}

// eachOpponentMove visits every single opponent move the masks allow. With a
// valid capture square only moves landing there are visited; otherwise only
// quiet moves onto squares that may be empty, castling included.
func (s *CompactState) eachOpponentMove(capture gm.Square, fn func(from, to gm.Square, k, land gm.Piece)) {
	enemy := s.side.Other()
	visit := func(from, to gm.Square, k gm.Piece) {
		if k != gm.Pawn || to.Rank() != enemy.PromotionRank() {
			fn(from, to, k, k)
			return
		}
		for land := gm.Knight; land < gm.King; land++ {
			fn(from, to, k, land)
		}
	}
	if !capture.Valid() {
		s.eachOpponentCastle(fn)
	}
	quiet := func(to gm.Square) bool { return !capture.Valid() && s.MayBeEmpty(to) }
	for from := gm.Square(0); from < 64; from++ {
		mask := s.squares[from].Mask().Pieces()
		if mask == 0 {
			continue
		}
		for k := gm.Pawn; k < gm.NumPieces; k++ {
			if !mask.Has(k) {
				continue
			}
			switch {
			case k == gm.Pawn:
				if capture.Valid() {
					for _, to := range s.t.PawnCaptures[enemy][from] {
						if to == capture {
							visit(from, to, k)
						}
					}
					continue
				}
				to := s.t.PawnPush[enemy][from]
				if !to.Valid() || !quiet(to) {
					continue
				}
				visit(from, to, k)
				if from.Rank() == enemy.PawnRank() {
					if to2 := s.t.PawnPush[enemy][to]; to2.Valid() && quiet(to2) {
						visit(from, to2, k)
					}
				}
			case k.IsSlider():
				for _, dir := range gm.SlideDirections(k) {
					for _, to := range s.t.Rays[from][dir] {
						if to == capture {
							visit(from, to, k)
							break
						}
						if !s.MayBeEmpty(to) {
							break
						}
						if !capture.Valid() {
							visit(from, to, k)
						}
					}
				}
			default:
				for _, to := range s.t.Jumps(k, enemy, from) {
					if to == capture || quiet(to) {
						visit(from, to, k)
					}
				}
			}
		}
	}
}

// eachOpponentCastle visits the king and rook moves of every castling the
// masks allow.
func (s *CompactState) eachOpponentCastle(fn func(from, to gm.Square, k, land gm.Piece)) {
	home := s.side.Other().HomeRank()
	king := gm.SquareOf(4, home)
	if !s.CanContain(king, gm.King) {
		return
	}
	for _, to := range [2]gm.Square{gm.SquareOf(6, home), gm.SquareOf(2, home)} {
		rookFrom, rookTo := castleRookSquares(gm.NewMove(king, to, gm.King))
		if !s.CanContain(rookFrom, gm.Rook) {
			continue
		}
		open := true
		for _, b := range s.t.Between(king, rookFrom).Squares() {
			open = open && s.MayBeEmpty(b)
		}
		if open {
			fn(king, to, gm.King, gm.King)
			fn(rookFrom, rookTo, gm.Rook, gm.Rook)
		}
	}
}

// applyCheckEvidence keeps the checker candidates of each announced check.
// A check with no square able to host a compatible attacker is an error.
func (s *CompactState) applyCheckEvidence(op string, rec gm.CheckRecord) error {
	king := s.hdr.king
	if !king.Valid() {
		return redistErr(op, king, gm.King, ErrInconsistentEvent)
	}
	enemy := s.side.Other()
	var all gm.Bitboard
	for _, ct := range rec.Types() {
		var found gm.Bitboard
		s.geom.Walk(ct, king, func(dir, _ int, x gm.Square) bool {
			if s.IsFriendlyPiece(x) {
				return false
			}
			for _, k := range gm.CompatibleKinds(ct) {
				if k == gm.Pawn && !pawnAttacks(s.t, enemy, x, king) {
					continue
				}
				if s.CanContain(x, k) {
					found.Set(x)
				}
			}
			return dir < 0 || s.MayBeEmpty(x)
		})
		if found == 0 {
			return redistErr(op, king, gm.NumKinds, fmt.Errorf("%w: %s check", ErrNoAttacker, ct))
		}
		all |= found
	}
	rec.Candidates = all
	s.hdr.checks = rec
	return nil
}

// EvolveAfterIllegalMove returns the snapshot after the umpire rejected m.
// A rejected pawn push proves its destination occupied and a rejected pawn
// capture proves it empty, unless the pawn may be pinned or we are in check.
// A rejected slider move whose path has a single square that may hold a
// piece proves that square occupied.
func (s *CompactState) EvolveAfterIllegalMove(m gm.Move) (*CompactState, error) {
	const op = "compact illegal move"
	c := s.branch()
	if c.hdr.checks.Active() || c.mayBePinned(m.From) {
		return c, nil
	}
	switch {
	case m.Piece == gm.Pawn && m.From.File() != m.To.File():
		if !c.MayBeEmpty(m.To) {
			return nil, redistErr(op, m.To, gm.Empty, ErrInconsistentEvent)
		}
		c.SetEmpty(m.To)
	case m.Piece == gm.Pawn:
		path := c.t.Between(m.From, m.To)
		path.Set(m.To)
		if err := c.blockOnly(op, path); err != nil {
			return nil, err
		}
	case m.Piece.IsSlider():
		if err := c.blockOnly(op, c.t.Between(m.From, m.To)); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// blockOnly marks the single square of path that may hold a piece as
// occupied. With several such squares nothing is learned.
func (s *CompactState) blockOnly(op string, path gm.Bitboard) error {
	blocker, n := gm.NoSquare, 0
	for _, x := range path.Squares() {
		if s.IsFriendlyPiece(x) {
			return nil
		}
		if s.mayHoldPiece(x) {
			blocker = x
			n++
		}
	}
	switch n {
	case 0:
		return redistErr(op, gm.NoSquare, gm.Empty, ErrInconsistentEvent)
	case 1:
		return s.exclude(op, blocker, gm.Empty)
	}
	return nil
}

// mayBePinned reports whether an opponent slider may pin our piece on sq to
// our king.
func (s *CompactState) mayBePinned(sq gm.Square) bool {
	king := s.hdr.king
	dir, ok := s.t.Direction(king, sq)
	if !ok {
		return false
	}
	for _, b := range s.t.Between(king, sq).Squares() {
		if !s.passable(b) {
			return false
		}
	}
	slider := gm.Bishop
	if gm.IsOrthogonal(dir) {
		slider = gm.Rook
	}
	for _, x := range s.t.Rays[sq][dir] {
		if s.IsFriendlyPiece(x) {
			return false
		}
		if s.CanContain(x, gm.Queen) || s.CanContain(x, slider) {
			return true
		}
		if !s.passable(x) {
			return false
		}
	}
	return false
}

// enemyMayBePinned reports whether an opponent piece on sq may be pinned to
// its king by one of our sliders.
func (s *CompactState) enemyMayBePinned(sq gm.Square) bool {
	for dir := 0; dir < gm.NumDirections; dir++ {
		pinner := false
		for _, x := range s.t.Rays[sq][dir] {
			if p := s.FriendlyPiece(x); p != gm.Empty {
				pinner = gm.SlidesAlong(p, dir)
				break
			}
			if !s.passable(x) {
				break
			}
		}
		if !pinner {
			continue
		}
		for _, x := range s.t.Rays[sq][gm.Opposite(dir)] {
			if s.CanContain(x, gm.King) {
				return true
			}
			if !s.passable(x) {
				break
			}
		}
	}
	return false
}

// =============================================================================
// MOVE GENERATION
// =============================================================================

// Moves generates our pseudo-legal moves in the snapshot. Rays run through
// squares that may be empty and stop after the first that may hold a piece.
func (s *CompactState) Moves() []gm.Move {
	moves := make([]gm.Move, 0, 48)
	king := s.hdr.king
	add := func(m gm.Move) {
		if king.Valid() && !s.geom.CanBreakCheck(m, king, s.hdr.checks) {
			return
		}
		moves = append(moves, m)
	}
	promote := func(m gm.Move) {
		if m.To.Rank() != s.side.PromotionRank() {
			add(m)
			return
		}
		for _, p := range [2]gm.Piece{gm.Queen, gm.Knight} {
			m.Promotion = p
			add(m)
		}
	}
	for from := gm.Square(0); from < 64; from++ {
		p := s.FriendlyPiece(from)
		switch {
		case p == gm.Empty:
		case p == gm.Pawn:
			if to := s.t.PawnPush[s.side][from]; to.Valid() && s.MayBeEmpty(to) {
				promote(gm.NewMove(from, to, p))
				if from.Rank() == s.side.PawnRank() {
					if to2 := s.t.PawnPush[s.side][to]; to2.Valid() && s.MayBeEmpty(to2) {
						m := gm.NewMove(from, to2, p)
						m.Flags = gm.FlagDoublePush
						add(m)
					}
				}
			}
			if s.hdr.pawnTries <= 0 {
				continue
			}
			for _, to := range s.t.PawnCaptures[s.side][from] {
				if s.squares[to].Mask().Pieces()&^MaskOf(gm.King) != 0 {
					m := gm.NewMove(from, to, p)
					m.Flags = gm.FlagCapture
					promote(m)
				}
			}
		case p.IsSlider():
			for _, dir := range gm.SlideDirections(p) {
				for _, to := range s.t.Rays[from][dir] {
					if s.IsFriendlyPiece(to) {
						break
					}
					m := gm.NewMove(from, to, p)
					if s.mayHoldPiece(to) {
						m.Flags = gm.FlagCapture
					}
					add(m)
					if !s.MayBeEmpty(to) || s.mayHoldPiece(to) {
						break
					}
				}
			}
		default:
			for _, to := range s.t.Jumps(p, s.side, from) {
				if !s.IsFriendlyPiece(to) {
					add(gm.NewMove(from, to, p))
				}
			}
			if p == gm.King {
				s.castleMoves(from, add)
			}
		}
	}
	return moves
}

func (s *CompactState) castleMoves(king gm.Square, add func(gm.Move)) {
	home := s.side.HomeRank()
	cr := s.hdr.castle
	if cr.hasCastled || cr.kingMoved || s.hdr.checks.Active() || king != gm.SquareOf(4, home) {
		return
	}
	for i, rookFile := range [2]int{0, 7} {
		rook := gm.SquareOf(rookFile, home)
		if cr.rookMoved[i] || s.FriendlyPiece(rook) != gm.Rook {
			continue
		}
		open := true
		for _, b := range s.t.Between(king, rook).Squares() {
			if !s.MayBeEmpty(b) {
				open = false
				break
			}
		}
		if !open {
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

// openness estimates the chance that sq is empty from its mask and age.
func (s *CompactState) openness(sq gm.Square) float64 {
	st := s.squares[sq]
	if st.IsFriendly() {
		return 0
	}
	m := st.Mask()
	if !m.Has(gm.Empty) {
		return 0
	}
	n := bits.OnesCount8(uint8(m.Pieces()))
	if n == 0 {
		return 1
	}
	return 1 / (1 + float64(n)*(1+float64(s.age[sq])/8))
}

// MoveProbability estimates the chance that the umpire accepts m in the
// snapshot: the openness of its path, and for pawn captures the chance the
// destination is occupied.
func (s *CompactState) MoveProbability(m gm.Move) float64 {
	p := 1.0
	switch {
	case m.IsCastle():
		rookFrom, _ := castleRookSquares(m)
		for _, b := range s.t.Between(m.From, rookFrom).Squares() {
			p *= s.openness(b)
		}
	case m.Piece.IsSlider() || m.Piece == gm.Pawn:
		for _, b := range s.t.Between(m.From, m.To).Squares() {
			p *= s.openness(b)
		}
		if m.Piece == gm.Pawn {
			if m.From.File() == m.To.File() {
				p *= s.openness(m.To)
			} else {
				p *= 1 - s.openness(m.To)
			}
		}
	}
	if m.Piece != gm.King && s.mayBePinned(m.From) {
		d1, _ := s.t.Direction(s.hdr.king, m.From)
		if d2, ok := s.t.Direction(s.hdr.king, m.To); !ok || d1 != d2 {
			p *= 0.5
		}
	}
	return p
}
