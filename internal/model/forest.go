package model

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// Node is one decision node in a fitted tree.  Leaves have Feature == -1 and
// carry the class probability distribution observed at that leaf.  Interior
// nodes route samples left when x[Feature] <= Threshold.
type Node struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Dist      []float64
}

// Tree is a fitted decision tree stored as a flat node slice.  Node 0 is the
// root.
type Tree struct {
	Nodes []Node
}

func (t *Tree) predict(x []float64) []float64 {
	i := 0
	for {
		n := &t.Nodes[i]
		if n.Feature < 0 {
			return n.Dist
		}
		if x[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Forest is a fitted random forest together with the exact feature column
// order and label order it was trained on.  Both orders are part of the
// artifact: a vector encoded in any other order produces garbage.
//
// A Forest is immutable after fitting or loading and safe for concurrent
// PredictProba calls.
type Forest struct {
	Features []string
	Labels   []string
	Trees    []Tree
}

// PredictProba returns the probability distribution over Labels for the
// given feature vector, averaged over all trees.
func (f *Forest) PredictProba(x []float64) ([]float64, error) {
	if len(x) != len(f.Features) {
		return nil, fmt.Errorf("feature vector has %d values, forest expects %d", len(x), len(f.Features))
	}
	if len(f.Trees) == 0 {
		return nil, fmt.Errorf("forest has no trees")
	}
	proba := make([]float64, len(f.Labels))
	for i := range f.Trees {
		dist := f.Trees[i].predict(x)
		for j, p := range dist {
			proba[j] += p
		}
	}
	for j := range proba {
		proba[j] /= float64(len(f.Trees))
	}
	return proba, nil
}

// Save serialises the forest with gob.
func (f *Forest) Save(w io.Writer) error {
	return gob.NewEncoder(w).Encode(f)
}

// Load reads a gob-encoded forest.
func Load(r io.Reader) (*Forest, error) {
	var f Forest
	if err := gob.NewDecoder(r).Decode(&f); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	if len(f.Features) == 0 || len(f.Labels) == 0 || len(f.Trees) == 0 {
		return nil, fmt.Errorf("model artifact is incomplete")
	}
	return &f, nil
}

// LoadFile loads a forest artifact from disk.  A missing or corrupt artifact
// is fatal for the caller: the service cannot classify without it.
func LoadFile(path string) (*Forest, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model %s: %w", path, err)
	}
	defer fh.Close()
	return Load(fh)
}
