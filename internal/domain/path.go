package domain

import "strings"

// Diff path prefixes emitted by common version control tooling.
const (
	PathPrefixGitSource      = "a/"
	PathPrefixGitDestination = "b/"
)

// NormalizePath normalizes a file path by removing VCS diff prefixes and
// ensuring forward-slash separators.
func NormalizePath(path string) string {
	path = strings.ReplaceAll(path, "\\", "/")

	for _, p := range []string{PathPrefixGitSource, PathPrefixGitDestination} {
		path = strings.TrimPrefix(path, p)
	}

	return strings.TrimPrefix(path, "/")
}

// skipDirs are directory names excluded from recursive enumeration.
var skipDirs = map[string]bool{
	".git":         true,
	"vendor":       true,
	"node_modules": true,
	"testdata":     true,
	"__pycache__":  true,
	".venv":        true,
	"venv":         true,
	".idea":        true,
}

// SkipDir reports whether a directory should be excluded from source
// file enumeration.
func SkipDir(name string) bool {
	if skipDirs[name] {
		return true
	}
	return strings.HasPrefix(name, ".") && name != "."
}

// IsSourceFile reports whether path matches one of the configured source
// extensions (e.g. ".go").
func IsSourceFile(path string, extensions []string) bool {
	for _, ext := range extensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
