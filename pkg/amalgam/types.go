package amalgam

import (
	"path/filepath"
)

// Fragment is a single unit of source text, addressed by folder and file name.
type Fragment struct {
	Folder string // Folder containing the fragment; nested includes resolve against it.
	Name   string // File name of the fragment.
}

// Path returns the full path of the fragment.
func (f Fragment) Path() string {
	return filepath.Join(f.Folder, f.Name)
}

// Key returns the dedup key of the fragment.
func (f Fragment) Key() string {
	return filepath.Base(f.Name)
}

// Included records the basenames of fragments already inlined during a run.
// Keys are kept in insertion order.
type Included struct {
	seen  map[string]struct{}
	order []string
}

// NewIncluded returns an empty ledger.
func NewIncluded() *Included {
	return &Included{seen: make(map[string]struct{})}
}

// Add records key and reports whether it was new.
func (in *Included) Add(key string) bool {
	if _, ok := in.seen[key]; ok {
		return false
	}
	in.seen[key] = struct{}{}
	in.order = append(in.order, key)
	return true
}

// Has reports whether key was already recorded.
func (in *Included) Has(key string) bool {
	_, ok := in.seen[key]
	return ok
}

// Len returns the number of recorded keys.
func (in *Included) Len() int {
	return len(in.order)
}

// Keys returns the recorded keys in the order they were added.
func (in *Included) Keys() []string {
	out := make([]string, len(in.order))
	copy(out, in.order)
	return out
}

// State is the running state of one merge, threaded through the traversal.
type State struct {
	Included   *Included // Dedup ledger.
	PragmaOnce int       // Number of `#pragma once` lines seen so far.
	Fragments  int       // Number of fragments opened.
	Duplicates int       // Number of include lines dropped as already inlined.
}

// NewState creates the state for a fresh run.
func NewState() *State {
	return &State{Included: NewIncluded()}
}

// Visit describes one inlined fragment in visitation order.
type Visit struct {
	Fragment Fragment
	Key      string
	Depth    int
	Parent   string // Key of the including fragment, empty for the entry.
}

// Report summarises a finished merge.
type Report struct {
	Visits       []Visit
	Duplicates   int
	Passthrough  int
	PragmaOnce   int
	LinesWritten int
}

// Folders returns the distinct folders of all visited fragments.
func (r *Report) Folders() []string {
	seen := make(map[string]bool)
	var folders []string
	for _, v := range r.Visits {
		if !seen[v.Fragment.Folder] {
			seen[v.Fragment.Folder] = true
			folders = append(folders, v.Fragment.Folder)
		}
	}
	return folders
}
