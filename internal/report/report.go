// Package report turns collected per-video results into the two output
// artifacts: the full metadata record and the filename-to-slate mapping.
// Both are written atomically, once, after all per-video work completes.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ramaral11/slatescan/internal/runner"
)

const (
	MetadataFilename = "slate_metadata.json"
	MappingFilename  = "slate_mapping.json"
)

// RunMetadata is the full record of one run.
type RunMetadata struct {
	ScanDate           string          `json:"scan_date"`
	InputFolder        string          `json:"input_folder"`
	OutputFolder       string          `json:"output_folder"`
	TotalVideosScanned int             `json:"total_videos_scanned"`
	SlatesFound        int             `json:"slates_found"`
	Videos             []runner.Result `json:"videos"`
}

// MappingEntry describes one persisted image in the mapping table.
type MappingEntry struct {
	VideoPath   string  `json:"video_path"`
	FrameNumber int     `json:"frame_number"`
	Timestamp   float64 `json:"timestamp"`
	Confidence  float64 `json:"confidence"`
}

// MappingTable maps persisted image filenames to their source slates. Every
// entry corresponds to exactly one result with a slate found and an image on
// disk.
type MappingTable map[string]MappingEntry

// Aggregate builds both artifacts from the collected results. Videos are
// stable-sorted by path so repeated aggregation of the same results is
// byte-identical apart from scan_date.
func Aggregate(results []runner.Result, inputFolder, outputFolder string, now time.Time) (RunMetadata, MappingTable) {
	videos := make([]runner.Result, len(results))
	copy(videos, results)
	sort.SliceStable(videos, func(i, j int) bool { return videos[i].VideoPath < videos[j].VideoPath })

	slates := 0
	mapping := make(MappingTable)
	for _, r := range videos {
		if !r.SlateFound {
			continue
		}
		slates++
		if r.PNGFilename == "" {
			continue
		}
		mapping[r.PNGFilename] = MappingEntry{
			VideoPath:   r.VideoPath,
			FrameNumber: r.FrameNumber,
			Timestamp:   r.Timestamp,
			Confidence:  r.Confidence,
		}
	}

	meta := RunMetadata{
		ScanDate:           now.Format(time.RFC3339),
		InputFolder:        inputFolder,
		OutputFolder:       outputFolder,
		TotalVideosScanned: len(videos),
		SlatesFound:        slates,
		Videos:             videos,
	}
	return meta, mapping
}

// Write persists both artifacts into dir.
func Write(dir string, meta RunMetadata, mapping MappingTable) error {
	if err := writeJSONAtomic(filepath.Join(dir, MetadataFilename), meta); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := writeJSONAtomic(filepath.Join(dir, MappingFilename), mapping); err != nil {
		return fmt.Errorf("write mapping: %w", err)
	}
	return nil
}

// writeJSONAtomic writes v as indented JSON via a temp file and rename, so
// readers never observe a partially written artifact.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
