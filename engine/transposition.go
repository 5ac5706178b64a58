package engine

import (
	"sync"
	"unsafe"

	gm "github.com/Ludeme/Ludii-sub005/kriegmg"
)

const (
	// In MB
	TTSize      = 16
	clusterSize = 4
)

// TransTable caches backed-up values of snapshots by Zobrist key. Root
// workers share one table, so every access takes the lock.
type TransTable struct {
	mu           sync.Mutex
	entries      []TTEntry
	clusterCount uint64
}

type TTEntry struct {
	Hash  uint64
	Depth int8
	Move  gm.Move
	Value float64
}

// NewTransTable allocates a table of roughly sizeMB megabytes.
func NewTransTable(sizeMB int) *TransTable {
	tt := &TransTable{}
	tt.init(sizeMB)
	return tt
}

func (tt *TransTable) init(sizeMB int) {
	entrySize := uint64(unsafe.Sizeof(TTEntry{}))
	if sizeMB <= 0 {
		sizeMB = 1
	}
	totalBytes := uint64(sizeMB) * 1024 * 1024
	clusterCount := totalBytes / (entrySize * clusterSize)
	if clusterCount == 0 {
		clusterCount = 1
	}
	tt.clusterCount = clusterCount
	tt.entries = make([]TTEntry, clusterCount*clusterSize)
}

// Clear empties the table.
func (tt *TransTable) Clear() {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	for i := range tt.entries {
		tt.entries[i] = TTEntry{}
	}
}

// Probe returns the value stored for hash when it was searched at least as
// deep as depth.
func (tt *TransTable) Probe(hash uint64, depth int8) (TTEntry, bool) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	base := int(hash%tt.clusterCount) * clusterSize
	for i := 0; i < clusterSize; i++ {
		e := tt.entries[base+i]
		if e.Hash == hash && e.Depth >= depth {
			return e, true
		}
	}
	return TTEntry{}, false
}

/*
Replacement: update the matching entry, else fill an empty slot, else evict
the shallowest entry of the cluster.
*/
func (tt *TransTable) Store(hash uint64, depth int8, move gm.Move, value float64) {
	tt.mu.Lock()
	defer tt.mu.Unlock()
	base := int(hash%tt.clusterCount) * clusterSize
	target := -1

	for i := 0; i < clusterSize; i++ {
		if tt.entries[base+i].Hash == hash {
			target = base + i
			break
		}
	}
	if target == -1 {
		for i := 0; i < clusterSize; i++ {
			if tt.entries[base+i].Hash == 0 {
				target = base + i
				break
			}
		}
	}
	if target == -1 {
		target = base
		for i := 1; i < clusterSize; i++ {
			if tt.entries[base+i].Depth < tt.entries[target].Depth {
				target = base + i
			}
		}
	}
	if e := &tt.entries[target]; e.Hash == hash && e.Depth > depth {
		return
	}
	tt.entries[target] = TTEntry{Hash: hash, Depth: depth, Move: move, Value: value}
}
