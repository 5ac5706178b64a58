package engine

import (
	"fmt"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
)

// Event is an umpire announcement addressed to one player.
type Event interface {
	fmt.Stringer
	event()
}

// IllegalMove reports that our attempted move was rejected.
type IllegalMove struct {
	Move gm.Move
}

// LegalMove reports that our move was played. Capture is what it took,
// Checks the checks it gave and PawnTries the opponent's pawn tries for its
// reply.
type LegalMove struct {
	Move      gm.Move
	Capture   gm.CaptureKind
	Checks    gm.CheckRecord
	PawnTries int
}

// OpponentMove reports that the opponent moved. CaptureSquare is where it
// took one of our pieces, NoSquare if it took nothing.
type OpponentMove struct {
	CaptureSquare gm.Square
	Checks        gm.CheckRecord
	PawnTries     int
}

// GameConfiguration is consumed once, at setup.
type GameConfiguration struct {
	Side gm.Color
}

func (IllegalMove) event()  {}
func (LegalMove) event()    {}
func (OpponentMove) event() {}

func (e IllegalMove) String() string { return "illegal " + e.Move.String() }

func (e LegalMove) String() string {
	return fmt.Sprintf("legal %s capture=%s checks=%s tries=%d", e.Move, e.Capture, e.Checks, e.PawnTries)
}

func (e OpponentMove) String() string {
	sq := "-"
	if e.CaptureSquare.Valid() {
		sq = e.CaptureSquare.String()
	}
	return fmt.Sprintf("opponent capture=%s checks=%s tries=%d", sq, e.Checks, e.PawnTries)
}
