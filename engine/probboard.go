package engine

import (
	"fmt"
	"math"
	"strings"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
	"github.com/rs/zerolog"
)

// PawnBounds bounds the number of opponent pawns left on a file.
type PawnBounds struct {
	Min, Max int8
}

type castleRights struct {
	hasCastled bool
	kingMoved  bool
	// rookMoved[0] is the a-file rook, rookMoved[1] the h-file rook.
	rookMoved [2]bool
}

// ProbabilityBoard is the believed game state of one side. Every square
// carries a distribution over the opponent's piece kinds plus Empty; our own
// pieces are tracked exactly and their squares carry Empty = 1.
//
// A ProbabilityBoard is not safe for concurrent use. Search works on
// CompactState snapshots derived from it.
type ProbabilityBoard struct {
	cfg    Config
	t      *gm.Tables
	geom   gm.CheckGeometry
	redist Redistributor
	log    zerolog.Logger

	side      gm.Color
	probs     gm.Grid[gm.Dist]
	friendly  gm.Grid[gm.Piece]
	age       gm.Grid[uint16]
	totals    [gm.NumPieces]float64
	pawnFiles [8]PawnBounds
	own       [gm.NumPieces]int

	// checks are the checks against us, given holds those our last move gave.
	checks     gm.CheckRecord
	given      gm.CheckRecord
	pawnTries  int
	enemyTries int
	bans       map[uint16]int
	castle     castleRights
	ply        int

	// doublePush is our pawn that made a double step last move, exposed to
	// en passant. NoSquare otherwise.
	doublePush gm.Square
}

// NewProbabilityBoard sets up the initial position for side. The opponent's
// army starts on its canonical squares with certainty.
func NewProbabilityBoard(cfg Config, t *gm.Tables, side gm.Color, log zerolog.Logger) *ProbabilityBoard {
	pb := &ProbabilityBoard{
		cfg:        cfg,
		t:          t,
		geom:       gm.NewCheckGeometry(t),
		redist:     cfg.redistributor(),
		log:        log,
		side:       side,
		bans:       make(map[uint16]int),
		doublePush: gm.NoSquare,
	}
	pb.probs.Fill(gm.Certain(gm.Empty))
	pb.friendly.Fill(gm.Empty)
	enemy := side.Other()
	for file := 0; file < 8; file++ {
		pb.friendly.Set(gm.SquareOf(file, side.HomeRank()), gm.BackRank[file])
		pb.friendly.Set(gm.SquareOf(file, side.PawnRank()), gm.Pawn)
		pb.probs.Set(gm.SquareOf(file, enemy.HomeRank()), gm.Certain(gm.BackRank[file]))
		pb.probs.Set(gm.SquareOf(file, enemy.PawnRank()), gm.Certain(gm.Pawn))
		pb.pawnFiles[file] = PawnBounds{Min: 1, Max: 1}
	}
	for k := gm.Pawn; k < gm.NumPieces; k++ {
		pb.totals[k] = float64(gm.StartCount[k])
		pb.own[k] = gm.StartCount[k]
	}
	return pb
}

// Clone returns an independent copy.
func (pb *ProbabilityBoard) Clone() *ProbabilityBoard {
	c := *pb
	c.bans = make(map[uint16]int, len(pb.bans))
	for k, v := range pb.bans {
		c.bans[k] = v
	}
	return &c
}

func (pb *ProbabilityBoard) Side() gm.Color         { return pb.side }
func (pb *ProbabilityBoard) Tables() *gm.Tables     { return pb.t }
func (pb *ProbabilityBoard) Config() Config         { return pb.cfg }
func (pb *ProbabilityBoard) Ply() int               { return pb.ply }
func (pb *ProbabilityBoard) Checks() gm.CheckRecord { return pb.checks }

// Dist returns the opponent distribution of sq.
func (pb *ProbabilityBoard) Dist(sq gm.Square) gm.Dist { return pb.probs.At(sq) }

// Prob is the probability that sq holds an opponent piece of kind k, or is
// empty for k == Empty.
func (pb *ProbabilityBoard) Prob(sq gm.Square, k gm.Piece) float64 { return pb.probs.At(sq)[k] }

// Friendly returns our piece on sq, Empty if none.
func (pb *ProbabilityBoard) Friendly(sq gm.Square) gm.Piece { return pb.friendly.At(sq) }

func (pb *ProbabilityBoard) isFriendly(sq gm.Square) bool { return pb.friendly.At(sq) != gm.Empty }

// Totals returns the tracked opponent material per kind.
func (pb *ProbabilityBoard) Totals() [gm.NumPieces]float64 { return pb.totals }

// OwnCount returns how many pieces of kind k we still have.
func (pb *ProbabilityBoard) OwnCount(k gm.Piece) int { return pb.own[k] }

// PawnFile returns the opponent pawn bounds of a file.
func (pb *ProbabilityBoard) PawnFile(file int) PawnBounds { return pb.pawnFiles[file] }

// Age is the number of opponent moves sq has spent possibly occupied.
func (pb *ProbabilityBoard) Age(sq gm.Square) uint16 { return pb.age.At(sq) }

// PawnTries is the number of pawn captures the umpire says we can try.
func (pb *ProbabilityBoard) PawnTries() int { return pb.pawnTries }

// OccupiedProbability is 1 on our squares and 1 - P(Empty) elsewhere.
func (pb *ProbabilityBoard) OccupiedProbability(sq gm.Square) float64 {
	if pb.isFriendly(sq) {
		return 1
	}
	return 1 - pb.probs.At(sq)[gm.Empty]
}

// emptyProb is the chance that a piece can pass through sq. Our own pieces
// always block.
func (pb *ProbabilityBoard) emptyProb(sq gm.Square) float64 {
	if pb.isFriendly(sq) {
		return 0
	}
	return pb.probs.At(sq)[gm.Empty]
}

// provablyOccupied reports whether sq certainly holds a piece.
func (pb *ProbabilityBoard) provablyOccupied(sq gm.Square) bool {
	return pb.isFriendly(sq) || pb.probs.At(sq)[gm.Empty] <= pb.cfg.Epsilon
}

// KingSquare returns the square of our king.
func (pb *ProbabilityBoard) KingSquare() gm.Square {
	for s := gm.Square(0); s < 64; s++ {
		if pb.friendly.At(s) == gm.King {
			return s
		}
	}
	return gm.NoSquare
}

func (pb *ProbabilityBoard) uncertainRows() gm.Bitboard {
	var rows gm.Bitboard
	for s := gm.Square(0); s < 64; s++ {
		if !pb.isFriendly(s) {
			rows.Set(s)
		}
	}
	return rows
}

// fit restores both invariants after a local change.
func (pb *ProbabilityBoard) fit(op string) error {
	for s := gm.Square(0); s < 64; s++ {
		if pb.isFriendly(s) {
			pb.probs.Set(s, gm.Certain(gm.Empty))
		}
	}
	rows := pb.uncertainRows()
	pb.redist.Reconcile(&pb.probs, rows, &pb.totals)
	return pb.redist.Fit(op, &pb.probs, rows, pb.totals)
}

// setKindMass sets d[k] = v on sq and rescales the other entries so the row
// still sums to one.
func (pb *ProbabilityBoard) setKindMass(sq gm.Square, k gm.Piece, v float64) {
	d := pb.probs.At(sq)
	rest := 1 - d[k]
	v = math.Min(math.Max(v, 0), 1)
	if rest <= 0 {
		d = gm.Dist{}
		d[k] = v
		d[gm.Empty] += 1 - v
	} else {
		f := (1 - v) / rest
		for i := range d {
			d[i] *= f
		}
		d[k] = v
	}
	pb.probs.Set(sq, d.Clamp())
}

// mix blends the distribution of sq toward target with weight w.
func (pb *ProbabilityBoard) mix(sq gm.Square, target gm.Dist, w float64) {
	if w <= 0 {
		return
	}
	d := pb.probs.At(sq)
	for i := range d {
		d[i] = (1-w)*d[i] + w*target[i]
	}
	pb.probs.Set(sq, d.Clamp())
}

// CheckInvariants verifies the per-square and per-kind sums against tol.
func (pb *ProbabilityBoard) CheckInvariants(tol float64) error {
	var mass [gm.NumPieces]float64
	for s := gm.Square(0); s < 64; s++ {
		d := pb.probs.At(s)
		if math.Abs(d.Sum()-1) > tol {
			return fmt.Errorf("%w: square %s sums to %.9f", ErrInvariantViolation, s, d.Sum())
		}
		for k, v := range d {
			if v < -tol || v > 1+tol {
				return fmt.Errorf("%w: square %s has P(%s) = %g", ErrInvariantViolation, s, gm.Piece(k), v)
			}
		}
		if pb.isFriendly(s) {
			continue
		}
		for k := gm.Pawn; k < gm.NumPieces; k++ {
			mass[k] += d[k]
		}
	}
	for k := gm.Pawn; k < gm.NumPieces; k++ {
		if math.Abs(mass[k]-pb.totals[k]) > tol {
			return fmt.Errorf("%w: %s mass %.6f, tracked %.6f", ErrInvariantViolation, k, mass[k], pb.totals[k])
		}
	}
	return nil
}

// String renders our pieces in upper case and, elsewhere, the most likely
// opponent kind with the occupancy percentage.
func (pb *ProbabilityBoard) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "side %s, ply %d, checks %s, tries %d\n", pb.side, pb.ply, pb.checks, pb.pawnTries)
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d ", rank+1)
		for file := 0; file < 8; file++ {
			s := gm.SquareOf(file, rank)
			if p := pb.friendly.At(s); p != gm.Empty {
				fmt.Fprintf(&sb, " [%c] ", p.Letter())
				continue
			}
			d := pb.probs.At(s)
			best := gm.Empty
			for k := gm.Pawn; k < gm.NumPieces; k++ {
				if d[k] > 0 && (best == gm.Empty || d[k] > d[best]) {
					best = k
				}
			}
			occ := int(math.Round(100 * (1 - d[gm.Empty])))
			if best == gm.Empty {
				sb.WriteString("  .  ")
				continue
			}
			fmt.Fprintf(&sb, " %c%3d", best.Letter()+('a'-'A'), occ)
		}
		sb.WriteByte('\n')
	}
	sb.WriteString("   ")
	for file := 0; file < 8; file++ {
		fmt.Fprintf(&sb, "  %c  ", 'a'+file)
	}
	sb.WriteString("\ntotals")
	for k := gm.Pawn; k < gm.NumPieces; k++ {
		fmt.Fprintf(&sb, " %c=%.2f", k.Letter(), pb.totals[k])
	}
	sb.WriteByte('\n')
	return sb.String()
}
