package repo

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// File is a regular file found by Walk.
type File struct {
	Path    string
	RelPath string
	Size    int64
}

// WalkOptions filters the files Walk reports.
type WalkOptions struct {
	// IgnoreDirs are directory names or slash-separated relative path prefixes
	// (globs allowed) that are not descended into.
	IgnoreDirs []string
	// MaxFileBytes skips larger files; 0 means no limit.
	MaxFileBytes int64
	// Extensions is an allow-list such as ".go" or "md"; empty allows all.
	Extensions []string
}

// Walk calls fn for each regular file under root in lexical order, skipping
// ignored directories, symlinks, empty files and files over the size limit.
// An error returned by fn stops the walk and is returned.
func Walk(root string, opts WalkOptions, fn func(File) error) error {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	allowed := extensionSet(opts.Extensions)

	return filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == absRoot {
				return err
			}
			return nil // unreadable entry, keep walking
		}
		rel, _ := filepath.Rel(absRoot, path)
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if path != absRoot && matchesIgnore(d.Name(), rel, opts.IgnoreDirs) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if len(allowed) > 0 && !allowed[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		if info.Size() == 0 || (opts.MaxFileBytes > 0 && info.Size() > opts.MaxFileBytes) {
			return nil
		}
		return fn(File{Path: path, RelPath: rel, Size: info.Size()})
	})
}

func extensionSet(exts []string) map[string]bool {
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		set[e] = true
	}
	return set
}

// matchesIgnore checks a directory name or relative path against the ignore patterns.
func matchesIgnore(name, relPath string, patterns []string) bool {
	for _, p := range patterns {
		if name == p {
			return true
		}
		if relPath == p || strings.HasPrefix(relPath, p+"/") {
			return true
		}
		if matched, _ := filepath.Match(p, relPath); matched {
			return true
		}
		if matched, _ := filepath.Match(p, name); matched {
			return true
		}
	}
	return false
}
