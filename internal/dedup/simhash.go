// Package dedup detects candidate URLs whose path and query are nearly
// identical to ones already seen, using 64-bit simhash fingerprints.
package dedup

import (
	"math/bits"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

// shingleWidth is the number of characters per simhash feature.
const shingleWidth = 4

// Fingerprint is a 64-bit locality-sensitive hash.
type Fingerprint uint64

// Distance returns the Hamming distance between two fingerprints.
func (f Fingerprint) Distance(other Fingerprint) int {
	return bits.OnesCount64(uint64(f ^ other))
}

// Simhash fingerprints s. Only word characters contribute, lower-cased,
// as overlapping shingles of shingleWidth characters; strings shorter than
// that form a single feature.
func Simhash(s string) Fingerprint {
	features := shingles(normalize(s))

	var weights [64]int
	for feature, count := range features {
		h := xxhash.Sum64String(feature)
		for i := 0; i < 64; i++ {
			if h&(1<<uint(i)) != 0 {
				weights[i] += count
			} else {
				weights[i] -= count
			}
		}
	}

	var fp uint64
	for i, w := range weights {
		if w > 0 {
			fp |= 1 << uint(i)
		}
	}
	return Fingerprint(fp)
}

func normalize(s string) []rune {
	out := make([]rune, 0, len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			out = append(out, r)
		}
	}
	return out
}

func shingles(runes []rune) map[string]int {
	features := make(map[string]int)
	if len(runes) <= shingleWidth {
		features[string(runes)]++
		return features
	}
	for i := 0; i+shingleWidth <= len(runes); i++ {
		features[string(runes[i:i+shingleWidth])]++
	}
	return features
}
