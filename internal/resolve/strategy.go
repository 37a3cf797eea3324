package resolve

import (
	"os"
	"path/filepath"
)

// Strategy is one way of locating the server directory
type Strategy interface {
	Name() string
	Locate() (string, bool)
}

// OverrideStrategy returns an explicitly configured directory when it exists
type OverrideStrategy struct {
	Dir string
}

func (s OverrideStrategy) Name() string { return "override" }

func (s OverrideStrategy) Locate() (string, bool) {
	if isDir(s.Dir) {
		return s.Dir, true
	}
	return "", false
}

// BundleResourcesStrategy finds the server inside a packaged application
// bundle: <bundle>/Contents/MacOS/<exe> -> <bundle>/Contents/Resources/<Resource>.
type BundleResourcesStrategy struct {
	Executable string
	Resource   string
}

func (s BundleResourcesStrategy) Name() string { return "bundle-resources" }

func (s BundleResourcesStrategy) Locate() (string, bool) {
	contents := filepath.Dir(filepath.Dir(s.Executable))
	dir := filepath.Join(contents, "Resources", s.Resource)
	if isDir(dir) {
		return dir, true
	}
	return "", false
}

// AncestorWalkStrategy walks up from Start, at most MaxDepth levels, looking
// for <ancestor>/<Subpath>/<Entry>. Start itself is the first level.
type AncestorWalkStrategy struct {
	Start    string
	Subpath  string
	Entry    string
	MaxDepth int
}

func (s AncestorWalkStrategy) Name() string { return "ancestor-walk" }

func (s AncestorWalkStrategy) Locate() (string, bool) {
	dir := s.Start
	for level := 0; level < s.MaxDepth; level++ {
		candidate := filepath.Join(dir, s.Subpath)
		if isFile(filepath.Join(candidate, s.Entry)) {
			return candidate, true
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false
}

func isDir(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
