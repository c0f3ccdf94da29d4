package engine

// MaxFollowUps caps the guided questions asked after the initial prediction.
const MaxFollowUps = 8

// selectFollowUps picks the guided-question candidates for a predicted
// condition: its reference profile (the symptoms of the first training row
// carrying that label) minus everything already known, in vocabulary column
// order, capped at MaxFollowUps.  An unknown label or an exhausted profile
// yields an empty slice, which is a valid terminal state — the session then
// goes straight to the final prediction.
func (e *Engine) selectFollowUps(label string, known []string) []string {
	profile, ok := e.profiles[label]
	if !ok {
		return nil
	}
	have := make(map[string]bool, len(known))
	for _, s := range known {
		have[s] = true
	}
	inProfile := make(map[string]bool, len(profile))
	for _, s := range profile {
		inProfile[s] = true
	}

	var out []string
	// Iterate the vocabulary, not the profile, so question order follows
	// the column order regardless of how the profile was stored.
	for _, s := range e.vocab.symptoms {
		if inProfile[s] && !have[s] {
			out = append(out, s)
			if len(out) == MaxFollowUps {
				break
			}
		}
	}
	return out
}
