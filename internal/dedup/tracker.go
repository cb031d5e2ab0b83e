// Package dedup decides which detected slates get their image persisted.
// One Tracker instance is shared by every scan worker in the process; all
// persistence decisions route through it so once-per-folder semantics hold
// across parallel workers.
package dedup

import "sync"

// Mode selects the persistence policy.
type Mode int

const (
	// AlwaysPersist writes an image for every accepted detection.
	AlwaysPersist Mode = iota
	// OncePerFolder writes at most one image per source folder. Detections
	// are still recorded in metadata either way; the policy only governs
	// which images reach disk.
	OncePerFolder
)

// Tracker remembers which folders already had a slate persisted during the
// current run. State lives for one run and is discarded afterwards.
type Tracker struct {
	mode Mode

	mu   sync.Mutex
	seen map[string]struct{}
}

func NewTracker(mode Mode) *Tracker {
	return &Tracker{mode: mode, seen: make(map[string]struct{})}
}

// ShouldPersist reports whether the next slate from folder should be written
// to disk, recording the folder as asked. Folders are recorded regardless of
// mode so switching modes mid-run cannot double-persist.
func (t *Tracker) ShouldPersist(folder string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, asked := t.seen[folder]
	t.seen[folder] = struct{}{}

	if t.mode == AlwaysPersist {
		return true
	}
	return !asked
}

// FoldersAsked returns how many distinct folders have been asked so far.
func (t *Tracker) FoldersAsked() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.seen)
}
