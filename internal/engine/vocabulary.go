package engine

import (
	"fmt"
	"strings"
)

// Vocabulary is the fixed ordered set of canonical symptom identifiers plus
// a synonym table mapping informal phrases to them.  The identifier order is
// the classifier's feature column order and must never be reordered after
// construction; vector encoding depends on it.  A Vocabulary is immutable
// and safe for concurrent use.
type Vocabulary struct {
	symptoms []string
	spaced   []string
	index    map[string]int
	synonyms map[string]string
}

// NewVocabulary builds a vocabulary from the classifier feature columns and
// a synonym table.  Every synonym must map to a known symptom; anything else
// is a configuration bug and fails construction.
func NewVocabulary(symptoms []string, synonyms map[string]string) (*Vocabulary, error) {
	if len(symptoms) == 0 {
		return nil, fmt.Errorf("vocabulary needs at least one symptom")
	}
	v := &Vocabulary{
		symptoms: append([]string(nil), symptoms...),
		spaced:   make([]string, len(symptoms)),
		index:    make(map[string]int, len(symptoms)),
		synonyms: make(map[string]string, len(synonyms)),
	}
	for i, s := range v.symptoms {
		if _, dup := v.index[s]; dup {
			return nil, fmt.Errorf("duplicate symptom %q", s)
		}
		v.index[s] = i
		v.spaced[i] = strings.ReplaceAll(s, "_", " ")
	}
	for phrase, target := range synonyms {
		if _, ok := v.index[target]; !ok {
			return nil, fmt.Errorf("synonym %q maps to unknown symptom %q", phrase, target)
		}
		v.synonyms[strings.ToLower(phrase)] = target
	}
	return v, nil
}

// Len returns the number of known symptoms (the classifier vector length).
func (v *Vocabulary) Len() int { return len(v.symptoms) }

// Symptoms returns the canonical identifiers in feature column order.
func (v *Vocabulary) Symptoms() []string {
	return append([]string(nil), v.symptoms...)
}

// Index returns the feature column index of a canonical identifier.
func (v *Vocabulary) Index(id string) (int, bool) {
	i, ok := v.index[id]
	return i, ok
}

// Resolve maps a phrase to a canonical identifier.  Exact lookups (canonical
// form, space form, synonym) win over fuzzy matching; the fuzzy fallback
// accepts the single best candidate at or above the similarity cutoff.
func (v *Vocabulary) Resolve(phrase string) (string, bool) {
	p := strings.ToLower(strings.TrimSpace(phrase))
	if p == "" {
		return "", false
	}
	if _, ok := v.index[p]; ok {
		return p, true
	}
	underscored := strings.ReplaceAll(p, " ", "_")
	if _, ok := v.index[underscored]; ok {
		return underscored, true
	}
	if target, ok := v.synonyms[p]; ok {
		return target, true
	}
	if i, ok := v.closest(p); ok {
		return v.symptoms[i], true
	}
	return "", false
}

// closest returns the index of the space-form symptom most similar to word,
// provided the ratio clears fuzzyCutoff.  Ties keep the earlier column.
func (v *Vocabulary) closest(word string) (int, bool) {
	best := -1
	bestRatio := 0.0
	for i, candidate := range v.spaced {
		r := similarity(word, candidate)
		if r >= fuzzyCutoff && r > bestRatio {
			best, bestRatio = i, r
		}
	}
	return best, best >= 0
}

// DefaultSynonyms maps common informal phrasings (including a few frequent
// misspellings and transliterations) to canonical identifiers.
var DefaultSynonyms = map[string]string{
	"stomach ache":        "stomach_pain",
	"belly pain":          "stomach_pain",
	"tummy pain":          "stomach_pain",
	"abdominal pain":      "stomach_pain",
	"belly ache":          "stomach_pain",
	"gastric pain":        "stomach_pain",
	"body ache":           "muscle_pain",
	"muscle ache":         "muscle_pain",
	"head ache":           "headache",
	"head pain":           "headache",
	"migraine":            "headache",
	"chest pain":          "chest_pain",
	"feaver":              "fever",
	"loose motion":        "diarrhea",
	"motions":             "diarrhea",
	"khansi":              "cough",
	"throat pain":         "sore_throat",
	"runny nose":          "chills",
	"sneezing":            "chills",
	"shortness of breath": "breathlessness",
	"skin rash":           "skin_rash",
	"itchy":               "itching",
	"tiredness":           "fatigue",
	"vomiting":            "vomit",
	"nausea":              "nausea",
	"dizzy":               "dizziness",
	"sad":                 "depression",
	"anxiety":             "anxiety",
}

// SynonymsFor filters DefaultSynonyms down to targets the vocabulary
// actually knows.  The training CSV decides the feature columns, so a
// deployment with a reduced dataset silently drops the unusable entries.
func SynonymsFor(symptoms []string) map[string]string {
	known := make(map[string]bool, len(symptoms))
	for _, s := range symptoms {
		known[s] = true
	}
	out := make(map[string]string)
	for phrase, target := range DefaultSynonyms {
		if known[target] {
			out[phrase] = target
		}
	}
	return out
}
