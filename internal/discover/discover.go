// Package discover finds the documents that make up a compilation.
package discover

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"hotdelta/internal/syntax"
)

var skipDirs = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	".vs":          {},
	".hotdelta":    {},
	"node_modules": {},
	"bin":          {},
	"obj":          {},
}

// Files returns the documents under the given sources, relative to root
// with forward slashes, sorted. Sources may be directories or files. Paths
// matched by root/.gitignore or by an exclude pattern are skipped.
func Files(root string, sources []string, exclude []string) ([]string, error) {
	gi := matcher(root, exclude)
	seen := make(map[string]struct{})
	var results []string

	add := func(path string) {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return
		}
		rel = filepath.ToSlash(rel)
		if _, dup := seen[rel]; dup {
			return
		}
		if gi.MatchesPath(rel) || !syntax.Supported(rel) {
			return
		}
		seen[rel] = struct{}{}
		results = append(results, rel)
	}

	for _, src := range sources {
		if !filepath.IsAbs(src) {
			src = filepath.Join(root, src)
		}
		info, err := os.Stat(src)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(src)
			continue
		}
		err = filepath.WalkDir(src, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return nil // skip unreadable entries
			}
			name := d.Name()
			if d.IsDir() {
				if path == src {
					return nil
				}
				if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				if rel, err := filepath.Rel(root, path); err == nil && gi.MatchesPath(filepath.ToSlash(rel)+"/") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasPrefix(name, ".") || d.Type()&os.ModeSymlink != 0 {
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(results)
	return results, nil
}

// matcher combines root/.gitignore with extra patterns.
func matcher(root string, extra []string) *ignore.GitIgnore {
	var lines []string
	if data, err := os.ReadFile(filepath.Join(root, ".gitignore")); err == nil {
		lines = append(lines, strings.Split(string(data), "\n")...)
	}
	lines = append(lines, extra...)
	return ignore.CompileIgnoreLines(lines...)
}
