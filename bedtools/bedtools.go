// Package bedtools wraps the bedtools executable: discovery of the
// binary (a bundled copy first, then $PATH) and context-aware
// invocation of the subcommands the toolkit shells out to.
package bedtools

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
	"v.io/x/lib/lookpath"
)

// ErrNotFound means no bedtools executable could be located.
var ErrNotFound = errors.New("bedtools executable not found")

// Tool is a located bedtools executable.
type Tool struct {
	path string
}

// Find locates a bedtools executable. When bundleDir is non-empty,
// `<bundleDir>/bin/bedtools` is preferred; otherwise (or when the
// bundled copy is missing) $PATH is searched.
func Find(bundleDir string) (*Tool, error) {
	if bundleDir != "" {
		bundled := filepath.Join(bundleDir, "bin", "bedtools")
		if fi, err := os.Stat(bundled); err == nil && fi.Mode().IsRegular() && fi.Mode()&0111 != 0 {
			return &Tool{path: bundled}, nil
		}
		log.Debug.Printf("no bundled bedtools under %s, falling back to $PATH", bundleDir)
	}
	env := map[string]string{"PATH": os.Getenv("PATH")}
	path, err := lookpath.Look(env, "bedtools")
	if err != nil {
		return nil, errors.Wrapf(ErrNotFound, "not bundled%s and not on $PATH",
			bundledNote(bundleDir))
	}
	if bundleDir != "" {
		log.Error.Printf("using bedtools from $PATH: %s", path)
	}
	return &Tool{path: path}, nil
}

func bundledNote(bundleDir string) string {
	if bundleDir == "" {
		return ""
	}
	return " under " + bundleDir
}

// Path returns the executable path.
func (t *Tool) Path() string {
	return t.path
}

// Version returns the `bedtools --version` string.
func (t *Tool) Version(ctx context.Context) (string, error) {
	out, err := t.Output(ctx, "--version")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Run invokes bedtools with the given arguments, passing stderr
// through.
func (t *Tool) Run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, t.path, args...)
	cmd.Stderr = os.Stderr
	log.Debug.Printf("running %s %s", t.path, strings.Join(args, " "))
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "bedtools %s", strings.Join(args, " "))
	}
	return nil
}

// Output invokes bedtools and returns its stdout.
func (t *Tool) Output(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, t.path, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	log.Debug.Printf("running %s %s", t.path, strings.Join(args, " "))
	out, err := cmd.Output()
	if err != nil {
		return nil, errors.Wrapf(err, "bedtools %s: %s",
			strings.Join(args, " "), strings.TrimSpace(stderr.String()))
	}
	return out, nil
}

// RunToFile invokes bedtools and writes its stdout to outPath.
func (t *Tool) RunToFile(ctx context.Context, outPath string, args ...string) error {
	out, err := t.Output(ctx, args...)
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, out, 0644); err != nil {
		return errors.Wrapf(err, "write %s", outPath)
	}
	return nil
}

// Sort runs `bedtools sort -i bedPath`, writing the result to outPath.
func (t *Tool) Sort(ctx context.Context, bedPath, outPath string) error {
	return t.RunToFile(ctx, outPath, "sort", "-i", bedPath)
}

// Merge runs `bedtools merge -i bedPath`, writing the result to
// outPath. The input must be sorted.
func (t *Tool) Merge(ctx context.Context, bedPath, outPath string) error {
	return t.RunToFile(ctx, outPath, "merge", "-i", bedPath)
}

// Intersect runs `bedtools intersect -a aPath -b bPath`, writing the
// result to outPath.
func (t *Tool) Intersect(ctx context.Context, aPath, bPath, outPath string) error {
	return t.RunToFile(ctx, outPath, "intersect", "-a", aPath, "-b", bPath)
}
