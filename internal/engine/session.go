package engine

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"triage-chatbot/internal/data"
	"triage-chatbot/internal/model"
)

// State is the position of a session in the diagnosis conversation.
type State string

const (
	// StateAwaitingSymptoms accepts free-text symptom descriptions.
	StateAwaitingSymptoms State = "awaiting_symptoms"
	// StateAwaitingGuidedAnswers accepts yes/no answers for the pending
	// follow-up candidates.
	StateAwaitingGuidedAnswers State = "awaiting_guided_answers"
	// StateComplete is terminal until an explicit reset.
	StateComplete State = "complete"
)

// Session is one diagnosis attempt.  The symptom set only ever grows within
// a session; transitions are one-directional and enforced by the Engine
// seams.  Sessions are not safe for concurrent use — one conversation drives
// one session.
type Session struct {
	ID         string
	State      State
	Symptoms   []string
	Initial    *Prediction
	Candidates []string
	Final      *Prediction
	CreatedAt  time.Time
}

// NewSession returns a fresh session in AwaitingSymptoms.
func NewSession(id string) *Session {
	return &Session{ID: id, State: StateAwaitingSymptoms, CreatedAt: time.Now()}
}

// Engine bundles the immutable inference context: vocabulary, extractor,
// classifier, reference profiles and enrichment tables.  It is constructed
// once at startup and shared by all sessions; every method is safe for
// concurrent use across distinct sessions.
type Engine struct {
	vocab      *Vocabulary
	extractor  *Extractor
	classifier *Classifier
	profiles   map[string][]string
	ref        *data.Reference
}

// New wires an engine from the trained forest, the training dataset (for
// guided-question profiles) and the reference tables.  The dataset columns
// must match the forest features exactly; anything else means the artifact
// and the CSV are from different exports and the process must not start.
func New(forest *model.Forest, dataset *data.Dataset, ref *data.Reference) (*Engine, error) {
	if len(dataset.Columns) != len(forest.Features) {
		return nil, fmt.Errorf("dataset has %d symptom columns, model trained on %d", len(dataset.Columns), len(forest.Features))
	}
	for i, col := range dataset.Columns {
		if forest.Features[i] != col {
			return nil, fmt.Errorf("column %d: dataset has %q, model has %q", i, col, forest.Features[i])
		}
	}

	vocab, err := NewVocabulary(forest.Features, SynonymsFor(forest.Features))
	if err != nil {
		return nil, fmt.Errorf("build vocabulary: %w", err)
	}
	classifier, err := NewClassifier(forest, vocab)
	if err != nil {
		return nil, err
	}
	if ref == nil {
		ref = &data.Reference{}
	}
	return &Engine{
		vocab:      vocab,
		extractor:  NewExtractor(vocab),
		classifier: classifier,
		profiles:   dataset.Profiles(),
		ref:        ref,
	}, nil
}

// Vocabulary exposes the immutable symptom vocabulary.
func (e *Engine) Vocabulary() *Vocabulary { return e.vocab }

// Classifier exposes the classifier adapter.
func (e *Engine) Classifier() *Classifier { return e.classifier }

// Intake is the outcome of a successful symptom-text submission.
type Intake struct {
	Detected   []string
	Initial    Prediction
	Candidates []string
}

// SubmitSymptomText runs extraction and the initial prediction for a
// session in AwaitingSymptoms.  On success the session holds the detected
// symptoms, the initial prediction and the guided candidates, and moves to
// AwaitingGuidedAnswers.  If nothing extractable is found the session is
// left untouched and ErrNoSymptomsDetected is returned so the caller can
// re-prompt.
func (e *Engine) SubmitSymptomText(s *Session, text string) (*Intake, error) {
	if s.State != StateAwaitingSymptoms {
		return nil, fmt.Errorf("%w: submit symptoms in %s", ErrInvalidStateTransition, s.State)
	}
	detected := e.extractor.Extract(text)
	if len(detected) == 0 {
		return nil, ErrNoSymptomsDetected
	}

	initial, err := e.classifier.Predict(detected)
	if err != nil {
		return nil, err
	}
	candidates := e.selectFollowUps(initial.Label, detected)

	s.Symptoms = detected
	s.Initial = &initial
	s.Candidates = candidates
	s.State = StateAwaitingGuidedAnswers
	return &Intake{Detected: detected, Initial: initial, Candidates: candidates}, nil
}

// GuidedCandidates returns the pending follow-up symptoms, possibly empty.
func (e *Engine) GuidedCandidates(s *Session) ([]string, error) {
	if s.State != StateAwaitingGuidedAnswers {
		return nil, fmt.Errorf("%w: read candidates in %s", ErrInvalidStateTransition, s.State)
	}
	return append([]string(nil), s.Candidates...), nil
}

// SubmitGuidedAnswers unions the confirmed candidates into the symptom set,
// runs the final prediction and completes the session.  Confirmed ids that
// were never offered as candidates are ignored; previously detected
// symptoms are never removed.  An empty confirmed slice is the degenerate
// form of the same transition and is how a session with no candidates
// reaches Complete.
func (e *Engine) SubmitGuidedAnswers(s *Session, confirmed []string) (Prediction, error) {
	if s.State != StateAwaitingGuidedAnswers {
		return Prediction{}, fmt.Errorf("%w: submit answers in %s", ErrInvalidStateTransition, s.State)
	}

	offered := make(map[string]bool, len(s.Candidates))
	for _, c := range s.Candidates {
		offered[c] = true
	}
	have := make(map[string]bool, len(s.Symptoms))
	for _, c := range s.Symptoms {
		have[c] = true
	}
	for _, c := range confirmed {
		if offered[c] && !have[c] {
			s.Symptoms = append(s.Symptoms, c)
			have[c] = true
		}
	}
	sort.Strings(s.Symptoms)

	final, err := e.classifier.Predict(s.Symptoms)
	if err != nil {
		return Prediction{}, err
	}
	s.Final = &final
	s.Candidates = nil
	s.State = StateComplete
	return final, nil
}

// Reset discards all session-scoped diagnosis state and returns the session
// to a fresh AwaitingSymptoms.  Identity (the id, and whatever auth context
// the surrounding layer keeps) survives.
func (e *Engine) Reset(s *Session) {
	s.State = StateAwaitingSymptoms
	s.Symptoms = nil
	s.Initial = nil
	s.Candidates = nil
	s.Final = nil
}

// Describe returns the reference description for a condition.
func (e *Engine) Describe(label string) (string, bool) {
	d, ok := e.ref.Descriptions[label]
	return d, ok
}

// Precautions returns the suggested precautions for a condition.  The
// result is a copy; the backing reference table is immutable for the life
// of the engine.
func (e *Engine) Precautions(label string) []string {
	p, ok := e.ref.Precautions[label]
	if !ok {
		return nil
	}
	return append([]string(nil), p...)
}

// severeThreshold is the mean severity weight above which the advisory
// recommends seeing a doctor rather than relying on precautions.
const severeThreshold = 4.0

// Advisory grades the final symptom set by mean severity weight.  Symptoms
// without a configured weight are skipped; with no weights at all the
// advisory is empty.
func (e *Engine) Advisory(symptoms []string) string {
	total, n := 0, 0
	for _, s := range symptoms {
		if w, ok := e.ref.Severity[s]; ok {
			total += w
			n++
		}
	}
	if n == 0 {
		return ""
	}
	if float64(total)/float64(n) >= severeThreshold {
		return "Your symptoms look serious. Please consult a doctor promptly."
	}
	return "Take the suggested precautions and consult a doctor if symptoms persist."
}

// DisplayName renders a canonical identifier for humans.
func DisplayName(id string) string {
	return strings.ReplaceAll(id, "_", " ")
}
