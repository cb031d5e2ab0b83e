package main

import (
	"fmt"
	"io"

	"github.com/ramaral11/slatescan/internal/report"
)

// printSummary writes the human-readable end-of-run report: totals, errors,
// and a table of detections.
func printSummary(w io.Writer, meta report.RunMetadata) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total videos scanned: %d\n", meta.TotalVideosScanned)
	fmt.Fprintf(w, "Slates found:         %d\n", meta.SlatesFound)
	fmt.Fprintf(w, "Output folder:        %s\n", meta.OutputFolder)

	errs := 0
	for _, v := range meta.Videos {
		if v.Error != "" {
			errs++
		}
	}
	if errs > 0 {
		fmt.Fprintf(w, "Videos with errors:   %d\n", errs)
	}

	if meta.SlatesFound == 0 {
		return
	}

	rows := make([][]string, 0, meta.SlatesFound)
	for _, v := range meta.Videos {
		if !v.SlateFound {
			continue
		}
		persisted := v.PNGFilename
		if persisted == "" {
			persisted = "-"
		}
		rows = append(rows, []string{
			v.VideoPath,
			fmt.Sprintf("%d", v.FrameNumber),
			fmt.Sprintf("%.2f", v.Confidence),
			persisted,
		})
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, renderTable(
		[]string{"Video", "Frame", "Confidence", "Image"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
	))
}
