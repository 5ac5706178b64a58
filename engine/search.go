package engine

import (
	"context"
	"errors"
	"fmt"
	"math"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"lukechampine.com/frand"
)

// =============================================================================
// SEARCH CONSTANTS
// =============================================================================
const (
	// MaxDepth bounds Config.SearchDepth and the killer table.
	MaxDepth = 8
	// InnerBreadth is how many ordered moves inner nodes expand.
	InnerBreadth = 12
	// IllegalPenalty is charged for an attempt the umpire rejects.
	IllegalPenalty = 0.01
	// tieTolerance treats root values this close as equal.
	tieTolerance = 1e-6
)

// ErrNoMoves is returned when no move can be attempted.
var ErrNoMoves = errors.New("no candidate moves")

// Searcher picks the move to attempt next. It searches an expectimax tree
// over umpire outcomes: every attempt is accepted with its estimated
// probability, leading to the snapshot after the move and one unseen
// opponent reply, or rejected, leaving the position unchanged.
type Searcher struct {
	cfg    Config
	log    zerolog.Logger
	redist Redistributor
	tt     *TransTable
	order  *MoveOrderer
	stats  SearchStats
	tree   *Node
}

// NewSearcher builds a searcher with its own cache and move history.
func NewSearcher(cfg Config, log zerolog.Logger) *Searcher {
	return &Searcher{
		cfg:    cfg,
		log:    log,
		redist: cfg.redistributor(),
		tt:     NewTransTable(TTSize),
		order:  NewMoveOrderer(),
	}
}

func (sr *Searcher) Orderer() *MoveOrderer { return sr.order }
func (sr *Searcher) Stats() *SearchStats   { return &sr.stats }

// Tree returns the root of the last search, nil before the first.
func (sr *Searcher) Tree() *Node { return sr.tree }

type rootResult struct {
	move  gm.Move
	prob  float64
	state *CompactState
	value float64
	done  bool
}

// BestMove searches the belief in pb and returns the move to attempt with
// its expected value. The board is only read: every branch works on its
// own snapshot, so the root moves are searched in parallel.
func (sr *Searcher) BestMove(ctx context.Context, pb *ProbabilityBoard) (gm.Move, float64, error) {
	sr.stats.reset()
	sr.order.reset()
	// Values depend on the turn context, so nothing carries over.
	sr.tt.Clear()
	budget := NewBudget(sr.cfg.MoveTime)
	ctx, cancel := budget.Context(ctx)
	defer cancel()

	root := NewCompactState(pb)
	tc := NewTurnContext(sr.cfg, root)
	moves := pb.PseudoLegalMoves()
	if len(moves) == 0 {
		return gm.NullMove, 0, ErrNoMoves
	}
	probs := make([]float64, len(moves))
	for i, m := range moves {
		probs[i] = pb.MoveProbability(m)
	}
	ordered := sr.order.Order(root, moves, probs, 0)

	static := Evaluate(root, tc)
	field := pb.probs
	results := make([]rootResult, len(ordered))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(sr.cfg.Workers, 1))
	for i, sm := range ordered {
		i, sm := i, sm
		results[i] = rootResult{move: sm.move, prob: sm.prob, value: static}
		g.Go(func() error {
			v, child, err := sr.expect(gctx, root, tc, &field, static, sm.move, sm.prob, sr.cfg.SearchDepth, 0)
			if err != nil {
				sr.stats.BudgetCutoffs.Add(1)
				return nil
			}
			results[i].value, results[i].state, results[i].done = v, child, true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return gm.NullMove, 0, err
	}
	if budget.TimeStatus() {
		sr.log.Debug().Uint64("cutoffs", sr.stats.BudgetCutoffs.Load()).Msg("move time exhausted")
	}

	tree := NewRoot(root, static)
	best := -1
	for i, r := range results {
		if !r.done {
			continue
		}
		n := tree.AddChild(r.state, r.move, r.prob, static)
		if r.state != nil {
			n.Value = EvaluateMobility(r.state, tc)
			n.MinValue = min(tree.MinValue, n.Value)
		}
		n.Propagated = r.value
		if best < 0 || r.value > results[best].value {
			best = i
		}
	}
	tree.SortChildren()
	sr.tree = tree

	if best < 0 {
		// The budget ran out before any branch finished: fall back to ordering.
		sr.log.Warn().Int("moves", len(ordered)).Msg("search budget exhausted before any root move finished")
		return ordered[0].move, static, nil
	}
	pick := best
	if sr.cfg.RandomTieBreak {
		var ties []int
		for i, r := range results {
			if r.done && math.Abs(r.value-results[best].value) <= tieTolerance {
				ties = append(ties, i)
			}
		}
		pick = ties[frand.Intn(len(ties))]
	}
	tree.Propagated = results[pick].value

	sr.log.Debug().Str("move", results[pick].move.String()).Float64("value", results[pick].value).
		Int("candidates", len(ordered)).Dur("elapsed", budget.Elapsed()).Msg("best move")
	sr.stats.dump(sr.log)
	return results[pick].move, results[pick].value, nil
}

// outcome is one umpire answer to an accepted attempt.
type outcome struct {
	capture gm.CaptureKind
	weight  float64
}

// captureOutcomes splits an accepted attempt of m by what stands on m.To.
// field is the expected occupancy of s; without one the masks decide.
func captureOutcomes(s *CompactState, field *gm.Grid[gm.Dist], m gm.Move) []outcome {
	diagonal := m.Piece == gm.Pawn && m.From.File() != m.To.File()
	if field != nil {
		d := field.At(m.To)
		out := []outcome{
			{gm.PawnCapture, d[gm.Pawn]},
			{gm.PieceCapture, d[gm.Knight] + d[gm.Bishop] + d[gm.Rook] + d[gm.Queen]},
		}
		if !diagonal {
			out = append(out, outcome{gm.NoCapture, d[gm.Empty]})
		}
		return out
	}
	if !s.mayHoldPiece(m.To) {
		return []outcome{{gm.NoCapture, 1}}
	}
	pc := 1 - s.openness(m.To)
	kind := gm.PawnCapture
	if s.squares[m.To].Mask()&MaskOf(gm.Knight, gm.Bishop, gm.Rook, gm.Queen) != 0 {
		kind = gm.PieceCapture
	}
	if diagonal {
		return []outcome{{kind, 1}}
	}
	return []outcome{{gm.NoCapture, 1 - pc}, {kind, pc}}
}

// expect values attempting m in s. parent is the static value of s. A
// rejected attempt is valued on the snapshot the rejection leaves behind,
// or on parent when the rejection teaches nothing. It also returns the
// snapshot after the move, nil when every accepted outcome was
// inconsistent.
func (sr *Searcher) expect(ctx context.Context, s *CompactState, tc *TurnContext, field *gm.Grid[gm.Dist], parent float64, m gm.Move, prob float64, depth, ply int) (float64, *CompactState, error) {
	sr.stats.Nodes.Add(1)
	if err := ctx.Err(); err != nil {
		return parent, nil, err
	}
	illegal := parent - IllegalPenalty
	if prob < 1 {
		if rejected, err := s.EvolveAfterIllegalMove(m); err == nil {
			illegal = Evaluate(rejected, tc) - IllegalPenalty
		}
	}

	legal, weight := 0.0, 0.0
	var first *CompactState
	for _, o := range captureOutcomes(s, field, m) {
		if o.weight <= 0 {
			continue
		}
		child, err := s.EvolveAfterMove(m, o.capture, gm.CheckRecord{}, 1)
		switch {
		case errors.Is(err, ErrNoKingCandidate):
			// Every square left for the opponent king is attacked: the move
			// can only be answered with a check announcement.
			sr.stats.CheckOutcomes.Add(1)
			legal += o.weight * (parent + CheckBonus)
			weight += o.weight
			continue
		case err != nil:
			sr.stats.Inconsistent.Add(1)
			continue
		}
		if o.capture != gm.NoCapture {
			sr.stats.CaptureOutcome.Add(1)
		}
		if first == nil {
			first = child
		}
		v, err := sr.reply(ctx, child, tc, depth, ply)
		if err != nil {
			return parent, nil, err
		}
		legal += o.weight * v
		weight += o.weight
	}
	if weight <= 0 {
		return illegal, nil, nil
	}
	legal /= weight
	return prob*legal + (1-prob)*illegal, first, nil
}

// reply values a snapshot after our move by letting the opponent make one
// unseen move and searching on.
func (sr *Searcher) reply(ctx context.Context, child *CompactState, tc *TurnContext, depth, ply int) (float64, error) {
	next, err := child.EvolveAfterOpponentMove(gm.NoSquare, gm.CheckRecord{}, 1)
	if err != nil {
		sr.stats.Inconsistent.Add(1)
		return Evaluate(child, tc), nil
	}
	return sr.value(ctx, next, tc, depth-1, ply+1)
}

// value is the best expected value over our attempts in s.
func (sr *Searcher) value(ctx context.Context, s *CompactState, tc *TurnContext, depth, ply int) (float64, error) {
	static := Evaluate(s, tc)
	if depth <= 0 || ply >= MaxDepth {
		return static, nil
	}
	hash := s.Hash()
	if e, ok := sr.tt.Probe(hash, int8(depth)); ok {
		sr.stats.TTHits.Add(1)
		return e.Value, nil
	}

	moves := s.Moves()
	if len(moves) == 0 {
		return static, nil
	}
	probs := make([]float64, len(moves))
	kept := moves[:0]
	keptProbs := probs[:0]
	for _, m := range moves {
		p := s.MoveProbability(m)
		if p < sr.cfg.MinLegalProb {
			sr.stats.LowProbPrunes.Add(1)
			continue
		}
		kept = append(kept, m)
		keptProbs = append(keptProbs, p)
	}
	if len(kept) == 0 {
		return static, nil
	}
	ordered := sr.order.Order(s, kept, keptProbs, ply)
	if len(ordered) > InnerBreadth {
		ordered = ordered[:InnerBreadth]
	}
	field, err := s.Estimate(sr.redist)
	if err != nil {
		sr.stats.Inconsistent.Add(1)
		field = nil
	}

	best := math.Inf(-1)
	bestMove := gm.NullMove
	for _, sm := range ordered {
		v, _, err := sr.expect(ctx, s, tc, field, static, sm.move, sm.prob, depth, ply)
		if err != nil {
			return static, err
		}
		if v > best {
			best, bestMove = v, sm.move
		}
	}
	sr.order.Killer(bestMove, ply)
	sr.tt.Store(hash, int8(depth), bestMove, best)
	return best, nil
}

// String summarises the last search for diagnostics.
func (sr *Searcher) String() string {
	if sr.tree == nil {
		return "no search"
	}
	return fmt.Sprintf("nodes %d, tree %d\n%s", sr.stats.Nodes.Load(), sr.tree.Size(), sr.tree)
}
