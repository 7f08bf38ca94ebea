package fsutil

import (
	"path"
	"path/filepath"
	"strings"
)

// CleanRelPath takes a user path like "", ".", "/a/b", "a//b", and returns a
// safe, slash-based, no-leading-slash relative path ("" means root).
func CleanRelPath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" || p == "." || p == "/" {
		return ""
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p) // force absolute for stable cleaning
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// Confine resolves rel against rootAbs and returns the cleaned absolute path.
// A result that would land outside rootAbs yields rootAbs itself, so callers
// never see an error here: an escape attempt looks like a request for root.
func Confine(rootAbs, rel string) string {
	root := filepath.Clean(rootAbs)
	if strings.Contains(rel, "\x00") {
		return root
	}
	abs := filepath.Join(root, filepath.FromSlash(rel))
	if !Within(root, abs) {
		return root
	}
	return abs
}

// Within reports whether abs is root or lies beneath it. The prefix check is
// separator-guarded: "/data2" is not within "/data".
func Within(root, abs string) bool {
	root = filepath.Clean(root)
	abs = filepath.Clean(abs)
	if abs == root {
		return true
	}
	guard := root
	if !strings.HasSuffix(guard, string(filepath.Separator)) {
		guard += string(filepath.Separator)
	}
	return strings.HasPrefix(abs, guard)
}

// RelToRoot is the inverse of Confine: it returns the slash-separated path of
// abs relative to root, "" for root itself.
func RelToRoot(root, abs string) string {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(abs))
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return ""
	}
	return filepath.ToSlash(rel)
}
