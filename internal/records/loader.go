package records

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// IgnoreFile is the optional per-directory exclusion list honored by
// the loader, using .gitignore pattern syntax.
const IgnoreFile = ".brandlensignore"

// Default patterns to ignore (in addition to the ignore file).
var defaultIgnorePatterns = []string{
	".git/",
	".brandlens/",
	"node_modules/",
	".DS_Store",
	"Thumbs.db",
}

// LoadDir walks a directory of exported record files and returns every
// record found, in lexical file order. A file may contain either a
// single record object or an array of records.
//
// Entries matched by the default ignore patterns or by a
// .brandlensignore file at the root are skipped. Malformed files are
// skipped, not fatal: one bad export must not abort a run.
func LoadDir(root string) ([]AnalysisRecord, error) {
	patterns, err := loadIgnorePatterns(root)
	if err != nil {
		return nil, fmt.Errorf("loading ignore patterns: %w", err)
	}

	allPatterns := make([]gitignore.Pattern, 0, len(defaultIgnorePatterns)+len(patterns))
	for _, p := range defaultIgnorePatterns {
		allPatterns = append(allPatterns, gitignore.ParsePattern(p, nil))
	}
	allPatterns = append(allPatterns, patterns...)
	matcher := gitignore.NewMatcher(allPatterns)

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		relPath, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			if relPath != "." && matcher.Match(splitPath(relPath), true) {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.ToLower(filepath.Ext(d.Name())) != ".json" {
			return nil
		}
		if matcher.Match(splitPath(relPath), false) {
			return nil
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	// WalkDir is lexical, but sort anyway so callers never depend on
	// filesystem ordering.
	sort.Strings(files)

	var recs []AnalysisRecord
	for _, path := range files {
		fileRecs, err := LoadFile(path)
		if err != nil {
			continue
		}
		recs = append(recs, fileRecs...)
	}

	return recs, nil
}

// LoadFile reads a single record export. The file may hold one record
// object or an array of records.
func LoadFile(path string) ([]AnalysisRecord, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	var recs []AnalysisRecord
	if err := json.Unmarshal(content, &recs); err == nil {
		return recs, nil
	}

	var rec AnalysisRecord
	if err := json.Unmarshal(content, &rec); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return []AnalysisRecord{rec}, nil
}

// loadIgnorePatterns loads .brandlensignore patterns from the root.
func loadIgnorePatterns(root string) ([]gitignore.Pattern, error) {
	ignorePath := filepath.Join(root, IgnoreFile)

	if _, err := os.Stat(ignorePath); os.IsNotExist(err) {
		return nil, nil
	}

	content, err := os.ReadFile(ignorePath)
	if err != nil {
		return nil, err
	}

	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}

	return patterns, nil
}

// splitPath splits a relative path into its components for matching.
func splitPath(relPath string) []string {
	return strings.Split(relPath, string(filepath.Separator))
}
