package digest

import (
	"hash/fnv"
	"math/bits"
	"strings"
)

// fingerprint computes a 64-bit simhash of update content: FNV-64a over
// lower-cased word tokens with bit-vector accumulation. Empty content
// fingerprints to 0.
func fingerprint(text string) uint64 {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return 0
	}

	var vector [64]int
	for _, word := range words {
		h := fnv.New64a()
		h.Write([]byte(word))
		hash := h.Sum64()

		for i := 0; i < 64; i++ {
			if hash&(1<<uint(i)) != 0 {
				vector[i]++
			} else {
				vector[i]--
			}
		}
	}

	var fp uint64
	for i := 0; i < 64; i++ {
		if vector[i] > 0 {
			fp |= 1 << uint(i)
		}
	}
	return fp
}

// distance is the Hamming distance between two fingerprints.
func distance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
