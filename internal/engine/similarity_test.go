package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarityRatio(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"fever", "fever", 1},
		{"fever", "", 0},
		{"abc", "xyz", 0},
		// 2*5 matching chars / 11 total
		{"feverr", "fever", 10.0 / 11.0},
		{"fevr", "fever", 8.0 / 9.0},
	}
	for _, tc := range cases {
		assert.InDelta(t, tc.want, similarity(tc.a, tc.b), 1e-9, "similarity(%q, %q)", tc.a, tc.b)
	}
}

func TestSimilarityIsSymmetricEnoughForMatching(t *testing.T) {
	// Ratcliff/Obershelp is not strictly symmetric in pathological cases,
	// but for the short word-vs-phrase comparisons we do it must agree on
	// the cutoff decision.
	pairs := [][2]string{
		{"cough", "caugh"},
		{"headache", "headach"},
		{"chils", "chills"},
	}
	for _, p := range pairs {
		a := similarity(p[0], p[1])
		b := similarity(p[1], p[0])
		assert.Equal(t, a >= fuzzyCutoff, b >= fuzzyCutoff, "%v", p)
	}
}

func TestLongestCommonSubstring(t *testing.T) {
	ai, bi, size := longestCommonSubstring("stomach", "stomach pain")
	assert.Equal(t, 0, ai)
	assert.Equal(t, 0, bi)
	assert.Equal(t, 7, size)

	_, _, size = longestCommonSubstring("abc", "xyz")
	assert.Equal(t, 0, size)
}
