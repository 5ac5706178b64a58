// Package umpire referees a Kriegspiel game. It sees the whole board and
// answers every attempt with the announcements the players are entitled to:
// whether the move was legal, what it captured, the checks it gave and the
// pawn tries of the side to move.
package umpire

import (
	"fmt"
	"math/bits"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
	"github.com/dylhunn/dragontoothmg"
	"github.com/rs/zerolog"
)

// Outcome is the state of the game after a move.
type Outcome uint8

const (
	Ongoing Outcome = iota
	Checkmate
	Stalemate
	// Draw covers the fifty-move rule and bare kings.
	Draw
)

var outcomeNames = [...]string{"ongoing", "checkmate", "stalemate", "draw"}

func (o Outcome) String() string {
	if int(o) < len(outcomeNames) {
		return outcomeNames[o]
	}
	return "unknown"
}

// Announcement is the umpire's answer to one attempt.
type Announcement struct {
	Legal bool
	// Move is the mover-annotated move that was played.
	Move    gm.Move
	Capture gm.CaptureKind
	// CaptureSquare is where the victim stood, NoSquare without a capture.
	CaptureSquare gm.Square
	// Checks are the checks against the side now to move.
	Checks gm.CheckRecord
	// PawnTries counts the pawn captures available to the side now to move.
	PawnTries int
	Outcome   Outcome
}

// StartFEN is the initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// noPromotion is dragontoothmg's promotion piece of ordinary moves.
const noPromotion dragontoothmg.Piece = 0

// Umpire holds the true position.
type Umpire struct {
	board dragontoothmg.Board
	t     *gm.Tables
	geom  gm.CheckGeometry
	log   zerolog.Logger
	plies int
}

// New starts a game from the initial position.
func New(t *gm.Tables, log zerolog.Logger) *Umpire { return NewFromFEN(t, StartFEN, log) }

// NewFromFEN starts a game from an arbitrary position.
func NewFromFEN(t *gm.Tables, fen string, log zerolog.Logger) *Umpire {
	return &Umpire{
		board: dragontoothmg.ParseFen(fen),
		t:     t,
		geom:  gm.NewCheckGeometry(t),
		log:   log,
	}
}

// ToMove is the side whose attempt is expected.
func (u *Umpire) ToMove() gm.Color {
	if u.board.Wtomove {
		return gm.White
	}
	return gm.Black
}

// Plies is the number of moves played.
func (u *Umpire) Plies() int { return u.plies }

// FEN returns the true position.
func (u *Umpire) FEN() string { return u.board.ToFen() }

// PieceAt reports the piece on sq and its colour.
func (u *Umpire) PieceAt(sq gm.Square) (gm.Color, gm.Piece, bool) {
	if p := pieceAt(&u.board.White, sq); p != gm.Empty {
		return gm.White, p, true
	}
	if p := pieceAt(&u.board.Black, sq); p != gm.Empty {
		return gm.Black, p, true
	}
	return gm.White, gm.Empty, false
}

// Opening returns the pawn tries of the side to move, announced before the
// first attempt of each turn.
func (u *Umpire) Opening() int { return u.pawnTries() }

// Try answers an attempt by the side to move. An illegal attempt changes
// nothing; a legal one is played.
func (u *Umpire) Try(m gm.Move) (Announcement, error) {
	if !m.From.Valid() || !m.To.Valid() {
		return Announcement{}, fmt.Errorf("umpire: malformed move %s", m)
	}
	mv, ok := u.find(m)
	if !ok {
		u.log.Debug().Str("move", m.String()).Msg("illegal attempt")
		return Announcement{Legal: false, Move: m, CaptureSquare: gm.NoSquare}, nil
	}

	mover := u.ToMove()
	ours, theirs := u.sides()
	a := Announcement{Legal: true, CaptureSquare: gm.NoSquare}
	a.Move = gm.NewMove(m.From, m.To, pieceAt(ours, m.From))
	a.Move.Promotion = m.Promotion
	if u.isCapture(mv) {
		victim := pieceAt(theirs, m.To)
		a.CaptureSquare = m.To
		if victim == gm.Empty {
			// En passant.
			victim = gm.Pawn
			a.CaptureSquare = gm.SquareOf(m.To.File(), m.From.Rank())
		}
		a.Capture = gm.PieceCapture
		if victim == gm.Pawn {
			a.Capture = gm.PawnCapture
		}
	}

	u.board.Apply(mv)
	u.plies++
	a.Checks = u.checks()
	a.PawnTries = u.pawnTries()
	a.Outcome = u.outcome(a.Checks.Active())
	u.log.Debug().Str("side", mover.String()).Str("move", a.Move.String()).Str("capture", a.Capture.String()).
		Str("checks", a.Checks.String()).Int("tries", a.PawnTries).Str("outcome", a.Outcome.String()).Msg("move played")
	return a, nil
}

// Legal lists the legal moves of the side to move, annotated with movers.
func (u *Umpire) Legal() []gm.Move {
	ours, _ := u.sides()
	moves := u.board.GenerateLegalMoves()
	out := make([]gm.Move, 0, len(moves))
	for i := range moves {
		mv := &moves[i]
		from, to := gm.Square(mv.From()), gm.Square(mv.To())
		m := gm.NewMove(from, to, pieceAt(ours, from))
		if p := mv.Promote(); p != noPromotion {
			m.Promotion = fromDragon(p)
		}
		out = append(out, m)
	}
	return out
}

func (u *Umpire) find(m gm.Move) (dragontoothmg.Move, bool) {
	promo := noPromotion
	if m.IsPromotion() {
		promo = toDragon(m.Promotion)
	}
	for _, mv := range u.board.GenerateLegalMoves() {
		if gm.Square(mv.From()) == m.From && gm.Square(mv.To()) == m.To && mv.Promote() == promo {
			return mv, true
		}
	}
	return 0, false
}

func (u *Umpire) sides() (ours, theirs *dragontoothmg.Bitboards) {
	if u.board.Wtomove {
		return &u.board.White, &u.board.Black
	}
	return &u.board.Black, &u.board.White
}

// checks classifies every piece giving check to the side to move.
func (u *Umpire) checks() gm.CheckRecord {
	ours, theirs := u.sides()
	king := gm.Square(bits.TrailingZeros64(ours.Kings))
	all := u.board.White.All | u.board.Black.All
	attacker := u.ToMove().Other()

	var types []gm.CheckType
	var where gm.Bitboard
	add := func(set uint64, p gm.Piece) {
		for set != 0 {
			sq := gm.Square(bits.TrailingZeros64(set))
			set &= set - 1
			types = append(types, u.geom.Classify(king, sq, p))
			where.Set(sq)
		}
	}
	var knights, pawns uint64
	for _, s := range u.t.Knight[king] {
		knights |= 1 << s
	}
	for _, s := range u.t.PawnAttackers[attacker][king] {
		pawns |= 1 << s
	}
	add(knights&theirs.Knights, gm.Knight)
	add(pawns&theirs.Pawns, gm.Pawn)
	diag := dragontoothmg.CalculateBishopMoveBitboard(uint8(king), all)
	orth := dragontoothmg.CalculateRookMoveBitboard(uint8(king), all)
	add(diag&theirs.Bishops, gm.Bishop)
	add(orth&theirs.Rooks, gm.Rook)
	add((diag|orth)&theirs.Queens, gm.Queen)

	var rec gm.CheckRecord
	switch len(types) {
	case 0:
		return rec
	case 1:
		rec = gm.NewCheckRecord(types[0], gm.NoCheck)
	default:
		rec = gm.NewCheckRecord(types[0], types[1])
	}
	rec.Candidates = where
	return rec
}

// pawnTries counts the legal pawn captures of the side to move. A capture
// that promotes counts once, whatever the promotion piece.
func (u *Umpire) pawnTries() int {
	ours, _ := u.sides()
	seen := make(map[[2]uint8]struct{})
	for _, mv := range u.board.GenerateLegalMoves() {
		if ours.Pawns&(1<<mv.From()) == 0 {
			continue
		}
		if u.isCapture(mv) {
			seen[[2]uint8{mv.From(), mv.To()}] = struct{}{}
		}
	}
	return len(seen)
}

// isCapture also covers en passant, which lands on an empty square.
func (u *Umpire) isCapture(mv dragontoothmg.Move) bool {
	if dragontoothmg.IsCapture(mv, &u.board) {
		return true
	}
	ours, _ := u.sides()
	return ours.Pawns&(1<<mv.From()) != 0 && mv.From()%8 != mv.To()%8
}

func (u *Umpire) outcome(inCheck bool) Outcome {
	if len(u.board.GenerateLegalMoves()) == 0 {
		if inCheck {
			return Checkmate
		}
		return Stalemate
	}
	if u.board.Halfmoveclock >= 100 {
		return Draw
	}
	w, b := u.board.White, u.board.Black
	if w.All == w.Kings && b.All == b.Kings {
		return Draw
	}
	return Ongoing
}

func pieceAt(bb *dragontoothmg.Bitboards, sq gm.Square) gm.Piece {
	mask := uint64(1) << sq
	switch {
	case bb.Pawns&mask != 0:
		return gm.Pawn
	case bb.Knights&mask != 0:
		return gm.Knight
	case bb.Bishops&mask != 0:
		return gm.Bishop
	case bb.Rooks&mask != 0:
		return gm.Rook
	case bb.Queens&mask != 0:
		return gm.Queen
	case bb.Kings&mask != 0:
		return gm.King
	}
	return gm.Empty
}

// dragontoothmg numbers pieces from Pawn = 1.
func fromDragon(p dragontoothmg.Piece) gm.Piece { return gm.Piece(p - 1) }
func toDragon(p gm.Piece) dragontoothmg.Piece   { return dragontoothmg.Piece(p + 1) }
