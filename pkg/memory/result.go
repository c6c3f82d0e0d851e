package memory

import "github.com/papercomputeco/mnemo/pkg/namespace"

// Entry is a caller-visible key/value pair.
type Entry = namespace.Entry

// RememberResult reports a stored value.
type RememberResult struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// RecallResult reports a lookup. Found is false when nothing is stored under
// Key; that is an ordinary outcome, not an error.
type RecallResult struct {
	Key   string `json:"key"`
	Value string `json:"value,omitempty"`
	Found bool   `json:"found"`
}

// ForgetResult reports a removal. Forgotten is false when nothing was stored.
type ForgetResult struct {
	Key       string `json:"key"`
	Forgotten bool   `json:"forgotten"`
}

// ListResult holds every entry visible in the namespace, in no particular
// order.
type ListResult struct {
	Entries []Entry `json:"entries"`
}

// Count returns the number of entries.
func (r *ListResult) Count() int {
	return len(r.Entries)
}
