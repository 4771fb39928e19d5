package pile

// Export internal state for testing. This file is only compiled during tests.

// entryState reports the validation state of the index entry for h, and
// whether an entry exists at all. It lets tests observe the Unvalidated ->
// Validated / Unvalidated -> Invalid transition directly instead of
// inferring it from repeated Get calls.
func (p *Pile) entryState(h Digest) (state validationState, ok bool) {
	entry := p.index.lookup(h)
	if entry == nil {
		return 0, false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	return entry.state, true
}
