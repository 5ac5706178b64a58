package kriegmg

import "math/rand"

func (t *Tables) initZobrist() {
	// Fixed seed: keys stay the same from run to run.
	rnd := rand.New(rand.NewSource(0xC0DE))

	for sq := 0; sq < 64; sq++ {
		for st := 0; st < 256; st++ {
			t.zobristSquare[sq][st] = rnd.Uint64()
		}
	}
	for i := range t.zobristExtra {
		t.zobristExtra[i] = rnd.Uint64()
	}
}

// HashStates computes the Zobrist key of a byte-per-square board. flags is
// folded in bit by bit (castling state, side, ...); only its low 16 bits count.
func (t *Tables) HashStates(states *[64]uint8, flags uint16) uint64 {
	var key uint64
	for sq, st := range states {
		key ^= t.zobristSquare[sq][st]
	}
	return key ^ t.ZobristFlags(flags)
}

// ZobristDelta is the key change of replacing old by new on sq.
func (t *Tables) ZobristDelta(sq Square, old, new uint8) uint64 {
	return t.zobristSquare[sq][old] ^ t.zobristSquare[sq][new]
}

// ZobristFlags is the part of HashStates contributed by flags.
func (t *Tables) ZobristFlags(flags uint16) uint64 {
	var key uint64
	for i := 0; i < 16; i++ {
		if flags&(1<<i) != 0 {
			key ^= t.zobristExtra[i]
		}
	}
	return key
}

// Mix64 scrambles x into a well spread key (the splitmix64 finaliser). It
// folds values too wide for the flag keys into a hash.
func Mix64(x uint64) uint64 {
	x += 0x9E3779B97F4A7C15
	x = (x ^ x>>30) * 0xBF58476D1CE4E5B9
	x = (x ^ x>>27) * 0x94D049BB133111EB
	return x ^ x>>31
}
