package engine

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// SearchStats collects counts for each search mechanism. Root workers add to
// the same counters.
type SearchStats struct {
	Nodes          atomic.Uint64
	TTHits         atomic.Uint64
	Inconsistent   atomic.Uint64
	CheckOutcomes  atomic.Uint64
	LowProbPrunes  atomic.Uint64
	BudgetCutoffs  atomic.Uint64
	CaptureOutcome atomic.Uint64
}

func (st *SearchStats) reset() {
	st.Nodes.Store(0)
	st.TTHits.Store(0)
	st.Inconsistent.Store(0)
	st.CheckOutcomes.Store(0)
	st.LowProbPrunes.Store(0)
	st.BudgetCutoffs.Store(0)
	st.CaptureOutcome.Store(0)
}

// dump logs the statistics once the current search finishes.
func (st *SearchStats) dump(log zerolog.Logger) {
	log.Debug().
		Uint64("nodes", st.Nodes.Load()).
		Uint64("tt_hits", st.TTHits.Load()).
		Uint64("inconsistent", st.Inconsistent.Load()).
		Uint64("check_outcomes", st.CheckOutcomes.Load()).
		Uint64("capture_outcomes", st.CaptureOutcome.Load()).
		Uint64("low_prob_prunes", st.LowProbPrunes.Load()).
		Uint64("budget_cutoffs", st.BudgetCutoffs.Load()).
		Msg("search statistics")
}
