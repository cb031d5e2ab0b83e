// Package discover finds the video files a run will scan.
package discover

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// VideoExtensions is the fixed allow-list of container extensions, matched
// case-insensitively.
var VideoExtensions = map[string]bool{
	".mp4": true, ".mxf": true, ".mov": true, ".avi": true,
	".mkv": true, ".wmv": true, ".flv": true, ".webm": true,
	".m4v": true, ".mpg": true, ".mpeg": true, ".3gp": true,
	".f4v": true, ".ogv": true, ".vob": true, ".ts": true,
	".m2ts": true, ".mts": true,
}

// File is one discovered video. Folder is the absolute directory holding the
// file; the dedup tracker keys on it.
type File struct {
	AbsPath string
	RelPath string
	Folder  string
}

// IsVideoFile reports whether filename carries an allow-listed extension.
func IsVideoFile(filename string) bool {
	return VideoExtensions[strings.ToLower(filepath.Ext(filename))]
}

// Videos walks root recursively and returns every video file, deduplicated
// and sorted by relative path so runs are deterministic. A missing or
// unreadable root is an error; the caller treats it as fatal.
func Videos(root string) ([]File, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve input folder: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("input folder: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path %s is not a directory", root)
	}

	seen := make(map[string]struct{})
	var files []File
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return nil
		}
		if !IsVideoFile(d.Name()) {
			return nil
		}
		if _, dup := seen[path]; dup {
			return nil
		}
		seen[path] = struct{}{}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, File{
			AbsPath: path,
			RelPath: rel,
			Folder:  filepath.Dir(path),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
	return files, nil
}
