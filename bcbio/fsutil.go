package bcbio

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/log"
)

// fileExists reports whether path refers to an existing non-empty regular
// file. Zero-length artifacts are treated as missing, matching the
// behavior of pipelines that touch placeholder files on failure.
func fileExists(path string) bool {
	if path == "" {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular() && fi.Size() > 0
}

func dirExists(path string) bool {
	if path == "" {
		return false
	}
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// firstExisting returns the first candidate that exists as a non-empty
// file, or "" when none do. Misses are reported at debug level so a
// failed lookup can be traced through the whole cascade.
func firstExisting(candidates ...string) string {
	for _, path := range candidates {
		if fileExists(path) {
			log.Debug.Printf("found %s", path)
			return path
		}
		log.Debug.Printf("not found: %s", path)
	}
	return ""
}

// existingFile returns path if it is a non-empty file, else "".
func existingFile(path string) string {
	if fileExists(path) {
		return path
	}
	return ""
}

// addSuffix inserts a dot-separated suffix before the file extension:
// addSuffix("a/vardict.tsv", "PASS") returns "a/vardict.PASS.tsv".
func addSuffix(path, suffix string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + "." + suffix + ext
}

// absJoin joins elems and makes the result absolute relative to the
// process working directory.
func absJoin(elems ...string) string {
	path, err := filepath.Abs(filepath.Join(elems...))
	if err != nil {
		return filepath.Join(elems...)
	}
	return path
}
