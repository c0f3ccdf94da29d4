package engine

import (
	"fmt"
	"log/slog"
	"math"
	"sync/atomic"

	"triage-chatbot/internal/model"
)

// Prediction is the outcome of one classifier call.  Confidence is a
// percentage in [0,100] rounded to two decimals; Distribution is the full
// probability vector in label-encoder order for collaborators that want to
// show alternatives.
type Prediction struct {
	Label        string    `json:"label"`
	Confidence   float64   `json:"confidence"`
	Distribution []float64 `json:"distribution,omitempty"`
}

// Classifier adapts the trained forest to symptom sets.  It owns the
// symptom-to-column encoding and guarantees at construction time that the
// vocabulary order matches the forest's training feature order; a mismatch
// would not fail at predict time, it would silently misclassify.
type Classifier struct {
	forest  *model.Forest
	vocab   *Vocabulary
	dropped atomic.Int64
}

// NewClassifier verifies feature alignment and wraps the forest.
func NewClassifier(forest *model.Forest, vocab *Vocabulary) (*Classifier, error) {
	if vocab.Len() != len(forest.Features) {
		return nil, fmt.Errorf("vocabulary has %d symptoms, forest trained on %d features", vocab.Len(), len(forest.Features))
	}
	for i, feature := range forest.Features {
		if idx, ok := vocab.Index(feature); !ok || idx != i {
			return nil, fmt.Errorf("feature order mismatch at column %d: forest has %q", i, feature)
		}
	}
	return &Classifier{forest: forest, vocab: vocab}, nil
}

// Labels returns the condition names in label-encoder order.
func (c *Classifier) Labels() []string {
	return append([]string(nil), c.forest.Labels...)
}

// Predict encodes the symptom set as a one-hot vector and classifies it.
// Identifiers outside the vocabulary contribute nothing to the vector; they
// are logged and counted because a growing drop count means the synonym
// table or the callers have drifted from the trained feature set.  An empty
// set is still classified — the emptiness check belongs to the session
// layer.
func (c *Classifier) Predict(symptoms []string) (Prediction, error) {
	vector := make([]float64, c.vocab.Len())
	for _, s := range symptoms {
		i, ok := c.vocab.Index(s)
		if !ok {
			c.dropped.Add(1)
			slog.Warn("ignoring unknown symptom", "symptom", s)
			continue
		}
		vector[i] = 1
	}

	dist, err := c.forest.PredictProba(vector)
	if err != nil {
		return Prediction{}, fmt.Errorf("classify: %w", err)
	}

	best := 0
	for i, p := range dist {
		if p > dist[best] {
			best = i
		}
	}
	return Prediction{
		Label:        c.forest.Labels[best],
		Confidence:   math.Round(dist[best]*10000) / 100,
		Distribution: dist,
	}, nil
}

// DroppedUnknown reports how many unknown identifiers Predict has ignored
// since construction.
func (c *Classifier) DroppedUnknown() int64 {
	return c.dropped.Load()
}
