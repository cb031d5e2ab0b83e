package runner

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ramaral11/slatescan/internal/dedup"
	"github.com/ramaral11/slatescan/internal/discover"
	"github.com/ramaral11/slatescan/internal/scanner"
	"github.com/ramaral11/slatescan/internal/slate"
	"github.com/ramaral11/slatescan/internal/video"
)

// fakeSource serves synthetic frames tagged with a per-video byte so a
// scripted classifier can tell videos apart by pixel content alone.
type fakeSource struct {
	tag        byte
	frameCount int
	pos        int
}

func (s *fakeSource) Metadata() video.Metadata {
	return video.Metadata{Width: 4, Height: 4, FrameRate: 30, FrameCount: s.frameCount}
}

func (s *fakeSource) Seek(frame int) error {
	s.pos = frame
	return nil
}

func (s *fakeSource) ReadFrame() (*video.Frame, error) {
	if s.pos >= s.frameCount {
		return nil, io.EOF
	}
	pix := make([]byte, 4*4*3)
	pix[0] = s.tag
	f := &video.Frame{Index: s.pos, Width: 4, Height: 4, Pix: pix}
	s.pos++
	return f, nil
}

func (s *fakeSource) Close() error { return nil }

// tagKey identifies one scripted detection: which video (by tag) and which
// frame index scores.
type tagKey struct {
	tag   byte
	index int
}

type scriptedClassifier struct {
	scores map[tagKey]float64
	panics bool
}

func (c *scriptedClassifier) Classify(f *video.Frame) slate.Result {
	if c.panics {
		panic("classifier exploded")
	}
	conf, ok := c.scores[tagKey{tag: f.Pix[0], index: f.Index}]
	if !ok {
		return slate.Result{}
	}
	return slate.Result{IsSlate: true, Confidence: conf}
}

type countingSaver struct {
	mu    sync.Mutex
	saved []string
	err   error
}

func (s *countingSaver) Save(f *video.Frame, filename string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.saved = append(s.saved, filename)
	return nil
}

func (s *countingSaver) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.saved)
}

// openTagged maps each input path to a fresh tagged source.
func openTagged(tags map[string]byte) OpenFunc {
	return func(ctx context.Context, path string) (video.Source, error) {
		tag, ok := tags[path]
		if !ok {
			return nil, errors.New("no such file")
		}
		return &fakeSource{tag: tag, frameCount: 300}, nil
	}
}

func testFiles(paths ...string) []discover.File {
	files := make([]discover.File, 0, len(paths))
	for _, p := range paths {
		files = append(files, discover.File{
			AbsPath: "/media/" + p,
			RelPath: p,
			Folder:  "/media/" + p[:strings.IndexByte(p, '/')],
		})
	}
	return files
}

func newTestPool(open OpenFunc, cls scanner.Classifier, saver *countingSaver, mode dedup.Mode) *Pool {
	return &Pool{
		Open:       open,
		Classifier: cls,
		Saver:      saver,
		Tracker:    dedup.NewTracker(mode),
		Options:    scanner.Options{FramesToCheck: 60, Threshold: 0.8, TargetFrame: 20},
		Workers:    2,
	}
}

func resultByPath(t *testing.T, results []Result, path string) Result {
	t.Helper()
	for _, r := range results {
		if r.VideoPath == path {
			return r
		}
	}
	t.Fatalf("no result for %s in %+v", path, results)
	return Result{}
}

func TestRun_OneResultPerVideo(t *testing.T) {
	files := testFiles("a/slate.mp4", "a/plain.mp4", "b/late.mp4")
	open := openTagged(map[string]byte{
		"/media/a/slate.mp4": 1,
		"/media/a/plain.mp4": 2,
		"/media/b/late.mp4":  3,
	})
	cls := &scriptedClassifier{scores: map[tagKey]float64{
		{tag: 1, index: 20}: 0.9,
		{tag: 3, index: 45}: 0.81,
	}}
	saver := &countingSaver{}

	pool := newTestPool(open, cls, saver, dedup.AlwaysPersist)
	results := pool.Run(context.Background(), files)

	if len(results) != len(files) {
		t.Fatalf("got %d results, want %d", len(results), len(files))
	}

	hit := resultByPath(t, results, "a/slate.mp4")
	if !hit.SlateFound || hit.FrameNumber != 20 || hit.Confidence != 0.9 {
		t.Errorf("probe detection = %+v", hit)
	}
	if hit.PNGFilename == "" {
		t.Error("probe detection has no persisted image")
	}

	late := resultByPath(t, results, "b/late.mp4")
	if !late.SlateFound || late.FrameNumber != 45 {
		t.Errorf("fallback detection = %+v", late)
	}

	miss := resultByPath(t, results, "a/plain.mp4")
	if miss.SlateFound || miss.Error != "" {
		t.Errorf("clean miss = %+v", miss)
	}
	if miss.FrameNumber != -1 {
		t.Errorf("miss frame number = %d, want -1", miss.FrameNumber)
	}

	if saver.count() != 2 {
		t.Errorf("saved %d images, want 2", saver.count())
	}
}

func TestRun_OpenFailureBecomesErrorResult(t *testing.T) {
	files := testFiles("a/broken.mp4", "a/fine.mp4")
	open := openTagged(map[string]byte{"/media/a/fine.mp4": 1})
	cls := &scriptedClassifier{scores: map[tagKey]float64{{tag: 1, index: 20}: 0.9}}

	pool := newTestPool(open, cls, &countingSaver{}, dedup.AlwaysPersist)
	results := pool.Run(context.Background(), files)

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	broken := resultByPath(t, results, "a/broken.mp4")
	if broken.SlateFound {
		t.Error("unopenable video reported a slate")
	}
	if !strings.HasPrefix(broken.Error, "failed to open video file:") {
		t.Errorf("open failure error = %q", broken.Error)
	}
	fine := resultByPath(t, results, "a/fine.mp4")
	if !fine.SlateFound {
		t.Errorf("healthy video result = %+v", fine)
	}
}

func TestRun_WorkerPanicIsContained(t *testing.T) {
	files := testFiles("a/boom.mp4")
	open := openTagged(map[string]byte{"/media/a/boom.mp4": 1})
	cls := &scriptedClassifier{panics: true}

	pool := newTestPool(open, cls, &countingSaver{}, dedup.AlwaysPersist)
	results := pool.Run(context.Background(), files)

	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].SlateFound {
		t.Error("panicked scan reported a slate")
	}
	if !strings.HasPrefix(results[0].Error, "worker panic:") {
		t.Errorf("panic result error = %q", results[0].Error)
	}
}

func TestRun_OncePerFolderPersistsOneImage(t *testing.T) {
	files := testFiles("a/one.mp4", "a/two.mp4")
	open := openTagged(map[string]byte{
		"/media/a/one.mp4": 1,
		"/media/a/two.mp4": 2,
	})
	cls := &scriptedClassifier{scores: map[tagKey]float64{
		{tag: 1, index: 20}: 0.9,
		{tag: 2, index: 20}: 0.9,
	}}
	saver := &countingSaver{}

	pool := newTestPool(open, cls, saver, dedup.OncePerFolder)
	results := pool.Run(context.Background(), files)

	persisted := 0
	for _, r := range results {
		if !r.SlateFound {
			t.Errorf("detection missing for %s: %+v", r.VideoPath, r)
		}
		if r.PNGFilename != "" {
			persisted++
		}
	}
	if persisted != 1 {
		t.Errorf("%d results carry an image, want 1", persisted)
	}
	if saver.count() != 1 {
		t.Errorf("saved %d images, want 1", saver.count())
	}
}

func TestRun_AlwaysPersistSavesBoth(t *testing.T) {
	files := testFiles("a/one.mp4", "a/two.mp4")
	open := openTagged(map[string]byte{
		"/media/a/one.mp4": 1,
		"/media/a/two.mp4": 2,
	})
	cls := &scriptedClassifier{scores: map[tagKey]float64{
		{tag: 1, index: 20}: 0.9,
		{tag: 2, index: 20}: 0.9,
	}}
	saver := &countingSaver{}

	pool := newTestPool(open, cls, saver, dedup.AlwaysPersist)
	pool.Run(context.Background(), files)

	if saver.count() != 2 {
		t.Fatalf("saved %d images, want 2", saver.count())
	}
	saver.mu.Lock()
	defer saver.mu.Unlock()
	if saver.saved[0] == saver.saved[1] {
		t.Errorf("both images share filename %q", saver.saved[0])
	}
}

func TestRun_SaveFailureKeepsDetection(t *testing.T) {
	files := testFiles("a/one.mp4")
	open := openTagged(map[string]byte{"/media/a/one.mp4": 1})
	cls := &scriptedClassifier{scores: map[tagKey]float64{{tag: 1, index: 20}: 0.9}}
	saver := &countingSaver{err: errors.New("disk full")}

	pool := newTestPool(open, cls, saver, dedup.AlwaysPersist)
	results := pool.Run(context.Background(), files)

	r := results[0]
	if !r.SlateFound {
		t.Error("save failure dropped the detection")
	}
	if r.PNGFilename != "" {
		t.Errorf("failed save still recorded filename %q", r.PNGFilename)
	}
	if !strings.HasPrefix(r.Error, "failed to save slate image:") {
		t.Errorf("save failure error = %q", r.Error)
	}
}

func TestRun_ProgressObservesEveryCompletion(t *testing.T) {
	files := testFiles("a/one.mp4", "a/two.mp4", "b/three.mp4")
	open := openTagged(map[string]byte{
		"/media/a/one.mp4":   1,
		"/media/a/two.mp4":   2,
		"/media/b/three.mp4": 3,
	})

	pool := newTestPool(open, &scriptedClassifier{}, &countingSaver{}, dedup.AlwaysPersist)
	var calls []int
	pool.OnProgress = func(done, total int, r Result) {
		if total != 3 {
			t.Errorf("progress total = %d, want 3", total)
		}
		calls = append(calls, done)
	}

	pool.Run(context.Background(), files)
	if len(calls) != 3 || calls[len(calls)-1] != 3 {
		t.Errorf("progress calls = %v, want done counts ending at 3", calls)
	}
}

func TestRun_NoFiles(t *testing.T) {
	pool := newTestPool(openTagged(nil), &scriptedClassifier{}, &countingSaver{}, dedup.AlwaysPersist)
	if results := pool.Run(context.Background(), nil); len(results) != 0 {
		t.Fatalf("got %d results for empty input", len(results))
	}
}

func TestRun_VideoTimeout(t *testing.T) {
	files := testFiles("a/stuck.mp4")
	open := func(ctx context.Context, path string) (video.Source, error) {
		// Simulate a decoder that never produces output within the deadline.
		<-ctx.Done()
		return nil, ctx.Err()
	}

	pool := newTestPool(open, &scriptedClassifier{}, &countingSaver{}, dedup.AlwaysPersist)
	pool.VideoTimeout = 20 * time.Millisecond

	done := make(chan []Result, 1)
	go func() { done <- pool.Run(context.Background(), files) }()

	select {
	case results := <-done:
		if len(results) != 1 || results[0].Error == "" {
			t.Fatalf("results = %+v, want one timed-out error result", results)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish; per-video timeout not applied")
	}
}

func TestRun_CancelledContextStillYieldsDispatchedResults(t *testing.T) {
	files := testFiles("a/one.mp4")
	open := openTagged(map[string]byte{"/media/a/one.mp4": 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := newTestPool(open, &scriptedClassifier{}, &countingSaver{}, dedup.AlwaysPersist)
	results := pool.Run(ctx, files)

	// Either the job never dispatched (no results) or it dispatched and its
	// result carries the cancellation; the run must not hang either way.
	for _, r := range results {
		if r.Error == "" && r.SlateFound {
			t.Errorf("cancelled run produced a detection: %+v", r)
		}
	}
}
