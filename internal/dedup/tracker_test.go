package dedup

import (
	"sync"
	"testing"
)

func TestShouldPersist_AlwaysMode(t *testing.T) {
	tr := NewTracker(AlwaysPersist)

	for i := 0; i < 3; i++ {
		if !tr.ShouldPersist("/media/proj-a") {
			t.Fatalf("always-persist denied write %d", i)
		}
	}
	if got := tr.FoldersAsked(); got != 1 {
		t.Errorf("FoldersAsked = %d, want 1", got)
	}
}

func TestShouldPersist_OncePerFolder(t *testing.T) {
	tr := NewTracker(OncePerFolder)

	if !tr.ShouldPersist("/media/proj-a") {
		t.Fatal("first detection in a folder must persist")
	}
	if tr.ShouldPersist("/media/proj-a") {
		t.Error("second detection in the same folder must not persist")
	}
	if !tr.ShouldPersist("/media/proj-b") {
		t.Error("first detection in a different folder must persist")
	}
	if got := tr.FoldersAsked(); got != 2 {
		t.Errorf("FoldersAsked = %d, want 2", got)
	}
}

func TestShouldPersist_ConcurrentSingleWinner(t *testing.T) {
	tr := NewTracker(OncePerFolder)

	const workers = 32
	var wg sync.WaitGroup
	results := make(chan bool, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- tr.ShouldPersist("/media/shared")
		}()
	}
	wg.Wait()
	close(results)

	persisted := 0
	for ok := range results {
		if ok {
			persisted++
		}
	}
	if persisted != 1 {
		t.Fatalf("%d concurrent winners for one folder, want exactly 1", persisted)
	}
}
