package engine

import (
	"sort"
	"sync"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
)

type scoredMove struct {
	move  gm.Move
	prob  float64
	score int
}

/*
	Move ordering offsets!
	- Promotions first, they are rare and large.
	- Then likely captures, ranked by the most valuable victim the square may hold.
	- Killers from sibling subtrees.
	- The rest by history: what the umpire accepted or rejected earlier in the game.
*/
const (
	promotionOffset = 20000
	captureOffset   = 15000
	killerOffset    = 2000
)

// victimOrder ranks the most valuable victim first; kings are never captured.
var victimOrder = [...]gm.Piece{gm.Queen, gm.Rook, gm.Bishop, gm.Knight, gm.Pawn}

// MoveOrderer scores candidate moves. The history table is fed from umpire
// outcomes and outlives a single search; killers are per search.
type MoveOrderer struct {
	mu      sync.Mutex
	history [64][64]int
	killers KillerStruct
}

func NewMoveOrderer() *MoveOrderer {
	o := &MoveOrderer{}
	o.killers.ClearKillers()
	return o
}

// Accepted credits a move the umpire let through; captured marks that it
// captured something.
func (o *MoveOrderer) Accepted(m gm.Move, captured bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	bonus := 8
	if captured {
		bonus = 32
	}
	o.bump(m, bonus)
}

// Rejected penalises a move the umpire refused.
func (o *MoveOrderer) Rejected(m gm.Move) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.bump(m, -16)
}

func (o *MoveOrderer) bump(m gm.Move, v int) {
	h := &o.history[m.From][m.To]
	*h += v
	// Keep the table bounded so old outcomes fade.
	if *h > 1000 || *h < -1000 {
		for i := range o.history {
			for j := range o.history[i] {
				o.history[i][j] /= 2
			}
		}
	}
}

// Killer records m as best at ply.
func (o *MoveOrderer) Killer(m gm.Move, ply int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.killers.InsertKiller(m, ply)
}

func (o *MoveOrderer) reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.killers.ClearKillers()
}

// Order scores moves and sorts them best first. probs are the acceptance
// estimates for each move, in the same order.
func (o *MoveOrderer) Order(s *CompactState, moves []gm.Move, probs []float64, ply int) []scoredMove {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]scoredMove, len(moves))
	for i, m := range moves {
		score := 0
		switch {
		case m.IsPromotion():
			score = promotionOffset + int(m.Promotion)
		case m.Flags&gm.FlagCapture != 0 && s.mayHoldPiece(m.To):
			score = captureOffset
			for r, k := range victimOrder {
				if s.CanContain(m.To, k) {
					score += 100 * (len(victimOrder) - r)
					break
				}
			}
			score -= int(m.Piece)
		case ply <= MaxDepth && (m.Equal(o.killers.KillerMoves[ply][0]) || m.Equal(o.killers.KillerMoves[ply][1])):
			score = killerOffset
		default:
			score = o.history[m.From][m.To]
		}
		score += int(100 * probs[i])
		out[i] = scoredMove{move: m, prob: probs[i], score: score}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}
