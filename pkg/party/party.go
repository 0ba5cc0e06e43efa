// Package party provides the participant identifier type shared by the
// threshold signer, the dealer, and the recovery session.
package party

import "sort"

// ID identifies a single participant (a Dealer recipient, a threshold-signing
// party, or a Recovery Host). It is opaque to the crypto layer: the owner
// alias from the manifest is a convenient choice, but any unique string works.
type ID string

// IDSlice is a sortable collection of IDs, used whenever a deterministic
// party ordering is required (§4.E: "parties MUST be placed at fixed
// indices for the duration of a session").
type IDSlice []ID

func (s IDSlice) Len() int           { return len(s) }
func (s IDSlice) Less(i, j int) bool { return s[i] < s[j] }
func (s IDSlice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// Sorted returns a sorted copy of s.
func (s IDSlice) Sorted() IDSlice {
	out := make(IDSlice, len(s))
	copy(out, s)
	sort.Sort(out)
	return out
}

// Contains reports whether id appears in s.
func (s IDSlice) Contains(id ID) bool {
	for _, x := range s {
		if x == id {
			return true
		}
	}
	return false
}

// Index returns the position of id within a sorted view of s, used to
// assign the fixed per-session indices required by §4.E. It returns -1 if
// id is absent.
func (s IDSlice) Index(id ID) int {
	sorted := s.Sorted()
	for i, x := range sorted {
		if x == id {
			return i
		}
	}
	return -1
}
