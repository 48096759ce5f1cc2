// Package corpus finds the input files of a coverage run.
package corpus

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"
)

// ignoreFiles are read from the corpus root, in order.
var ignoreFiles = []string{".gitignore", ".coverignore"}

// Files returns the regular files under root, sorted. Dot entries,
// symlinks and paths matched by the root's ignore files are skipped.
// Returned paths are root joined with the relative path.
func Files(root string) ([]string, error) {
	gi := loadIgnore(root)

	var results []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil // skip unreadable entries
		}

		name := d.Name()
		if d.IsDir() {
			if path != root && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return nil
		}
		if gi != nil && gi.MatchesPath(filepath.ToSlash(rel)) {
			return nil
		}
		results = append(results, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("corpus: walk %s: %w", root, err)
	}

	sort.Strings(results)
	return results, nil
}

// Expand replaces every directory in paths with its Files, keeping the
// order of the arguments. Plain files are kept as given.
func Expand(paths []string) ([]string, error) {
	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("corpus: %w", err)
		}
		if !info.IsDir() {
			out = append(out, p)
			continue
		}
		files, err := Files(p)
		if err != nil {
			return nil, err
		}
		out = append(out, files...)
	}
	return out, nil
}

// loadIgnore merges the patterns of the root's ignore files. It returns nil
// when there are none.
func loadIgnore(root string) *ignore.GitIgnore {
	var lines []string
	for _, name := range ignoreFiles {
		f, err := os.Open(filepath.Join(root, name))
		if err != nil {
			continue
		}
		sc := bufio.NewScanner(f)
		for sc.Scan() {
			lines = append(lines, sc.Text())
		}
		f.Close()
	}
	if len(lines) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(lines...)
}
