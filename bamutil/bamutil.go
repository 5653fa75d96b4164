// Package bamutil verifies that alignment files are usable before
// downstream tools are pointed at them.
package bamutil

import (
	"os"

	"github.com/grailbio/hts/bam"
	"github.com/pkg/errors"
)

// Verify checks that path is a non-empty BAM with a parseable header.
func Verify(path string) error {
	fi, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "stat %s", path)
	}
	if fi.Size() == 0 {
		return errors.Errorf("%s is empty", path)
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer f.Close() // nolint: errcheck
	r, err := bam.NewReader(f, 1)
	if err != nil {
		return errors.Wrapf(err, "read BAM header of %s", path)
	}
	defer r.Close() // nolint: errcheck
	if r.Header() == nil {
		return errors.Errorf("%s has no BAM header", path)
	}
	return nil
}
