package domain

// Range is the flat, ordered list of expected words for a session.
// Indices are contiguous 0..n-1 across page and sura boundaries.
type Range struct {
	From  Position
	To    Position
	Words []ExpectedWord
}

// Len returns the number of expected words
func (r *Range) Len() int {
	return len(r.Words)
}

// Empty reports whether the range holds no recitable words
func (r *Range) Empty() bool {
	return len(r.Words) == 0
}

// PageForIndex returns the page of the expected word at i
func (r *Range) PageForIndex(i int) (int, bool) {
	if i < 0 || i >= len(r.Words) {
		return 0, false
	}
	return r.Words[i].Page, true
}

// FirstPage returns the page holding the first word, or 0 for an empty range
func (r *Range) FirstPage() int {
	if r.Empty() {
		return 0
	}
	return r.Words[0].Page
}

// Normalized returns the normalized text of every word, in order
func (r *Range) Normalized() []string {
	out := make([]string, len(r.Words))
	for i, w := range r.Words {
		out[i] = w.Normalized
	}
	return out
}
