package bamutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/hts/bam"
	"github.com/grailbio/hts/sam"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umccr/bcbio-go/bamutil"
)

func writeValidBAM(t *testing.T, path string) {
	t.Helper()
	ref, err := sam.NewReference("chr20", "", "", 64444167, nil, nil)
	require.NoError(t, err)
	header, err := sam.NewHeader(nil, []*sam.Reference{ref})
	require.NoError(t, err)

	f, err := os.Create(path)
	require.NoError(t, err)
	w, err := bam.NewWriter(f, header, 1)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())
}

func TestVerify(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample-ready.bam")
	writeValidBAM(t, path)
	assert.NoError(t, bamutil.Verify(path))
}

func TestVerifyMissing(t *testing.T) {
	err := bamutil.Verify(filepath.Join(t.TempDir(), "nope.bam"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope.bam")
}

func TestVerifyEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.bam")
	require.NoError(t, os.WriteFile(path, nil, 0644))
	err := bamutil.Verify(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestVerifyGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.bam")
	require.NoError(t, os.WriteFile(path, []byte("not a BAM at all"), 0644))
	assert.Error(t, bamutil.Verify(path))
}
