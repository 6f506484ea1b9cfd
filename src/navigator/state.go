package navigator

import (
	"strings"

	"portalctl/src/listing"
)

// Breadcrumb is one clickable segment of the current path.
type Breadcrumb struct {
	Label string
	Path  string
}

const rootLabel = "Root"

// Breadcrumbs splits path into root-to-leaf prefixes. The first crumb is
// always Root at "/".
func Breadcrumbs(path string) []Breadcrumb {
	crumbs := []Breadcrumb{{Label: rootLabel, Path: "/"}}
	prefix := ""
	for _, seg := range strings.Split(listing.Clean(path), "/") {
		if seg == "" {
			continue
		}
		prefix += "/" + seg
		crumbs = append(crumbs, Breadcrumb{Label: seg, Path: prefix})
	}
	return crumbs
}

// State is a snapshot of what the navigator shows. It is never mutated in
// place; transitions return a new value.
type State struct {
	Path    string
	Crumbs  []Breadcrumb
	Entries []listing.Entry
	Loading bool
	Err     error

	seq uint64
}

func initialState() State {
	return State{Path: "/", Crumbs: Breadcrumbs("/")}
}

// navigated moves to path and starts loading it under token seq.
func (s State) navigated(path string, seq uint64) State {
	path = listing.Clean(path)
	return State{
		Path:    path,
		Crumbs:  Breadcrumbs(path),
		Loading: true,
		seq:     seq,
	}
}

// loading restarts the listing of the current path under token seq. The
// previous entries stay visible until the new ones arrive.
func (s State) loading(seq uint64) State {
	s.Loading = true
	s.Err = nil
	s.seq = seq
	return s
}

// applied installs a listing result. ok is false when the result belongs to
// an older request or another path, in which case s is returned unchanged.
func (s State) applied(path string, seq uint64, entries []listing.Entry, err error) (State, bool) {
	if seq != s.seq || path != s.Path {
		return s, false
	}
	s.Loading = false
	s.Err = err
	if err == nil {
		s.Entries = entries
	}
	return s, true
}

func (s State) clone() State {
	s.Crumbs = append([]Breadcrumb(nil), s.Crumbs...)
	s.Entries = append([]listing.Entry(nil), s.Entries...)
	return s
}

// Find returns the entry called name in the current listing.
func (s State) Find(name string) (listing.Entry, bool) {
	for _, e := range s.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return listing.Entry{}, false
}
