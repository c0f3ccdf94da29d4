package engine

import (
	"regexp"
	"sort"
	"strings"
)

var wordPattern = regexp.MustCompile(`[0-9A-Za-z_]+`)

// Extractor converts free-form English text into canonical symptom
// identifiers.  It is a pure function of the text and the vocabulary: no
// I/O, no state, no errors.  Translation of non-English input happens
// upstream; the extractor never sees raw foreign text.
type Extractor struct {
	vocab *Vocabulary
}

// NewExtractor wraps a vocabulary.
func NewExtractor(vocab *Vocabulary) *Extractor {
	return &Extractor{vocab: vocab}
}

// Extract runs three passes over the normalized text and unions the hits:
//
//  1. synonym phrases found as substrings,
//  2. known symptoms (space form) found as substrings,
//  3. per-word fuzzy matches against the space-form symptoms.
//
// The result is de-duplicated and sorted for stable display.  Empty or
// unrecognizable input yields an empty set; deciding that this is a failure
// belongs to the session layer, not here.
func (e *Extractor) Extract(text string) []string {
	normalized := strings.ToLower(strings.ReplaceAll(text, "-", " "))
	found := make(map[string]bool)

	for phrase, target := range e.vocab.synonyms {
		if strings.Contains(normalized, phrase) {
			found[target] = true
		}
	}

	for i, spaced := range e.vocab.spaced {
		if strings.Contains(normalized, spaced) {
			found[e.vocab.symptoms[i]] = true
		}
	}

	for _, word := range wordPattern.FindAllString(normalized, -1) {
		if i, ok := e.vocab.closest(word); ok {
			found[e.vocab.symptoms[i]] = true
		}
	}

	out := make([]string, 0, len(found))
	for s := range found {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}
