package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/ramaral11/slatescan/internal/runner"
)

// progressReporter renders a progress bar over completed videos when stdout
// is a terminal, and stays silent otherwise so piped output remains clean.
type progressReporter struct {
	bar *progressbar.ProgressBar
}

func newProgressReporter(w io.Writer, total int) *progressReporter {
	f, ok := w.(*os.File)
	if !ok || !isatty.IsTerminal(f.Fd()) {
		return &progressReporter{}
	}

	bar := progressbar.NewOptions(total,
		progressbar.OptionSetDescription("Scanning videos"),
		progressbar.OptionSetWriter(w),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
	return &progressReporter{bar: bar}
}

func (p *progressReporter) onVideoDone(done, total int, r runner.Result) {
	if p.bar != nil {
		p.bar.Add(1)
	}
}

func (p *progressReporter) finish() {
	if p.bar != nil {
		p.bar.Finish()
	}
}
