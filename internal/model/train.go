package model

import (
	"fmt"
	"math/rand"
	"sort"
)

// FitConfig controls forest fitting.  The zero value is not usable; start
// from DefaultFitConfig.
type FitConfig struct {
	Trees    int
	MaxDepth int
	Seed     int64
}

// DefaultFitConfig mirrors the offline training setup: 300 trees, fixed
// seed so refitting the same CSV yields the same artifact.
func DefaultFitConfig() FitConfig {
	return FitConfig{Trees: 300, MaxDepth: 16, Seed: 42}
}

// Fit trains a random forest on a one-hot feature matrix.  Labels must be
// indices into labelNames.  Bootstrap sampling and feature subsampling are
// driven by the seeded source, so fitting is deterministic.
func Fit(features []string, labelNames []string, x [][]float64, y []int, cfg FitConfig) (*Forest, error) {
	if len(x) == 0 {
		return nil, fmt.Errorf("no training rows")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("feature rows (%d) and labels (%d) differ", len(x), len(y))
	}
	for i, row := range x {
		if len(row) != len(features) {
			return nil, fmt.Errorf("row %d has %d values, want %d", i, len(row), len(features))
		}
	}
	if cfg.Trees <= 0 || cfg.MaxDepth <= 0 {
		return nil, fmt.Errorf("invalid fit config: %+v", cfg)
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	f := &Forest{
		Features: append([]string(nil), features...),
		Labels:   append([]string(nil), labelNames...),
		Trees:    make([]Tree, cfg.Trees),
	}
	for t := 0; t < cfg.Trees; t++ {
		idx := make([]int, len(x))
		for i := range idx {
			idx[i] = rng.Intn(len(x))
		}
		b := &treeBuilder{
			x:         x,
			y:         y,
			nClasses:  len(labelNames),
			maxDepth:  cfg.MaxDepth,
			nFeatures: len(features),
			rng:       rng,
		}
		b.grow(idx, 0)
		f.Trees[t] = Tree{Nodes: b.nodes}
	}
	return f, nil
}

type treeBuilder struct {
	x         [][]float64
	y         []int
	nClasses  int
	maxDepth  int
	nFeatures int
	rng       *rand.Rand
	nodes     []Node
}

// grow builds the subtree for the given sample indices and returns its node
// index.  Splits are chosen by Gini impurity over a random sqrt-sized
// feature subset, the usual random-forest recipe.
func (b *treeBuilder) grow(idx []int, depth int) int {
	counts := make([]float64, b.nClasses)
	for _, i := range idx {
		counts[b.y[i]]++
	}
	if depth >= b.maxDepth || isPure(counts) || len(idx) < 2 {
		return b.leaf(counts)
	}

	feature, threshold, ok := b.bestSplit(idx, counts)
	if !ok {
		return b.leaf(counts)
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return b.leaf(counts)
	}

	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: feature, Threshold: threshold})
	l := b.grow(left, depth+1)
	r := b.grow(right, depth+1)
	b.nodes[self].Left = l
	b.nodes[self].Right = r
	return self
}

func (b *treeBuilder) leaf(counts []float64) int {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	dist := make([]float64, len(counts))
	if total > 0 {
		for i, c := range counts {
			dist[i] = c / total
		}
	}
	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{Feature: -1, Dist: dist})
	return self
}

func (b *treeBuilder) bestSplit(idx []int, counts []float64) (int, float64, bool) {
	parent := gini(counts)
	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	for _, feature := range b.featureSubset() {
		values := make([]float64, 0, len(idx))
		for _, i := range idx {
			values = append(values, b.x[i][feature])
		}
		sort.Float64s(values)
		for v := 0; v < len(values)-1; v++ {
			if values[v] == values[v+1] {
				continue
			}
			threshold := (values[v] + values[v+1]) / 2
			lc := make([]float64, b.nClasses)
			rc := make([]float64, b.nClasses)
			var ln, rn float64
			for _, i := range idx {
				if b.x[i][feature] <= threshold {
					lc[b.y[i]]++
					ln++
				} else {
					rc[b.y[i]]++
					rn++
				}
			}
			n := ln + rn
			gain := parent - (ln/n)*gini(lc) - (rn/n)*gini(rc)
			if gain > bestGain {
				bestGain = gain
				bestFeature = feature
				bestThreshold = threshold
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

// featureSubset picks ceil(sqrt(n)) distinct feature indices.
func (b *treeBuilder) featureSubset() []int {
	k := 1
	for k*k < b.nFeatures {
		k++
	}
	perm := b.rng.Perm(b.nFeatures)
	sub := perm[:k]
	sort.Ints(sub)
	return sub
}

func isPure(counts []float64) bool {
	seen := false
	for _, c := range counts {
		if c > 0 {
			if seen {
				return false
			}
			seen = true
		}
	}
	return true
}

func gini(counts []float64) float64 {
	total := 0.0
	for _, c := range counts {
		total += c
	}
	if total == 0 {
		return 0
	}
	g := 1.0
	for _, c := range counts {
		p := c / total
		g -= p * p
	}
	return g
}
