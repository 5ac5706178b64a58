package engine

import (
	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
)

// KillerStruct remembers, per ply, the two most recent moves that were best
// in a sibling subtree.
type KillerStruct struct {
	KillerMoves [MaxDepth + 1][2]gm.Move
}

func (k *KillerStruct) InsertKiller(move gm.Move, ply int) {
	if ply > MaxDepth {
		return
	}
	if !move.Equal(k.KillerMoves[ply][0]) {
		k.KillerMoves[ply][1] = k.KillerMoves[ply][0]
		k.KillerMoves[ply][0] = move
	}
}

// Clear the killer moves table.
func (k *KillerStruct) ClearKillers() {
	for ply := 0; ply < MaxDepth+1; ply++ {
		k.KillerMoves[ply][0] = gm.NullMove
		k.KillerMoves[ply][1] = gm.NullMove
	}
}
