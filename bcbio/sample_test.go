package bcbio

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithExclude(t *testing.T) {
	root := newTestTree(t)

	// Excluding the whole batch drops both samples.
	_, err := Load(root, Options{Silent: true, ExcludeSamples: []string{"syn3"}})
	require.Error(t, err)
	assert.Equal(t, ErrNoSamples, errors.Cause(err))

	// Excluding one sample keeps the other; its batch loses the pair.
	proj, err := Load(root, Options{Silent: true, ExcludeSamples: []string{"syn3-normal"}})
	require.NoError(t, err)
	require.Len(t, proj.Samples, 1)
	assert.Equal(t, "syn3-tumor", proj.Samples[0].Name)
	assert.False(t, proj.BatchByName["syn3"].IsPaired())
}

func TestLoadWithInclude(t *testing.T) {
	root := newTestTree(t)

	// Including the tumor by name pulls its batch mate in too.
	proj, err := Load(root, Options{Silent: true, IncludeSamples: []string{"syn3-tumor"}})
	require.NoError(t, err)
	require.Len(t, proj.Samples, 2)
	assert.True(t, proj.BatchByName["syn3"].IsPaired())

	// Including by batch name works the same way.
	proj, err = Load(root, Options{Silent: true, IncludeSamples: []string{"syn3"}})
	require.NoError(t, err)
	require.Len(t, proj.Samples, 2)

	// An unknown name matches nothing.
	_, err = Load(root, Options{Silent: true, IncludeSamples: []string{"nope"}})
	require.Error(t, err)
	assert.Equal(t, ErrNoSamples, errors.Cause(err))
}

func TestDotsNormalizedToUnderscores(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj", "run")
	cfg := strings.ReplaceAll(testConfigYAML, "syn3-tumor", "syn3.tumor")
	cfg = strings.ReplaceAll(cfg, "syn3-normal", "syn3.normal")
	cfg = strings.ReplaceAll(cfg, "batch: syn3", "batch: syn.3")
	writeTestFile(t, filepath.Join(root, "config", "bcbio.yaml"), cfg)
	writeTestFile(t, filepath.Join(root, "config", "target.bed"), "chr1\t1\t10\tX\n")
	for _, name := range []string{"syn3_tumor", "syn3_normal"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "final", name), 0755))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "final", "2019-01-31_gx01"), 0755))

	proj, err := Load(root, Options{Silent: true})
	require.NoError(t, err)
	require.Len(t, proj.Samples, 2)
	assert.Equal(t, "syn3_normal", proj.Samples[0].Name)
	assert.Equal(t, "syn3_tumor", proj.Samples[1].Name)
	assert.Contains(t, proj.BatchByName, "syn_3")

	// Exclude filters see the normalized spelling.
	_, err = Load(root, Options{Silent: true, ExcludeSamples: []string{"syn.3"}})
	require.Error(t, err)
	assert.Equal(t, ErrNoSamples, errors.Cause(err))
}

func TestMissingSampleDir(t *testing.T) {
	root := newTestTree(t)
	require.NoError(t, os.RemoveAll(filepath.Join(root, "final", "syn3-normal")))

	// Loud mode: a described sample with no directory is an error.
	_, err := Load(root, Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "syn3-normal")

	// Silent mode drops the sample instead.
	proj, err := Load(root, Options{Silent: true})
	require.NoError(t, err)
	require.Len(t, proj.Samples, 1)
	assert.Equal(t, "syn3-tumor", proj.Samples[0].Name)
}

func TestDefaultBatchAndPhenotype(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj", "run")
	writeTestFile(t, filepath.Join(root, "config", "bcbio.yaml"), `details:
- description: solo
  analysis: variant2
  genome_build: hg38
  files: [/data/solo.fq.gz]
  algorithm:
    variantcaller: vardict
`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "final", "solo"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "final", "2019-01-31_project"), 0755))

	proj, err := Load(root, Options{Silent: true})
	require.NoError(t, err)
	require.Len(t, proj.Samples, 1)
	s := proj.Samples[0]
	assert.Equal(t, PhenotypeTumor, s.Phenotype)
	assert.Equal(t, []string{"solo-batch"}, s.BatchNames)
	require.Contains(t, proj.BatchByName, "solo-batch")
	assert.Equal(t, s, proj.BatchByName["solo-batch"].Tumor)
	assert.Equal(t, []string{"vardict"}, s.VariantCallers)
	assert.Equal(t, "vardict", proj.SomaticCaller)
	// No min_allele_fraction configured: the bcbio default of 1% applies.
	assert.InDelta(t, 0.01, s.MinAlleleFraction, 1e-9)
}

func TestNormalOnlyBatchBecomesTumor(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj", "run")
	writeTestFile(t, filepath.Join(root, "config", "bcbio.yaml"), `details:
- description: lonely-normal
  analysis: variant2
  genome_build: hg38
  files: [/data/n.fq.gz]
  metadata:
    batch: b1
    phenotype: normal
  algorithm:
    variantcaller: vardict
`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "final", "lonely-normal"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "final", "2019-01-31_project"), 0755))

	proj, err := Load(root, Options{Silent: true})
	require.NoError(t, err)
	b := proj.BatchByName["b1"]
	require.NotNil(t, b)
	assert.Nil(t, b.Normal)
	require.NotNil(t, b.Tumor)
	assert.Equal(t, PhenotypeTumor, b.Tumor.Phenotype)
}

func TestMultipleBatchesForTumorIsAnError(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj", "run")
	writeTestFile(t, filepath.Join(root, "config", "bcbio.yaml"), `details:
- description: multi
  analysis: variant2
  genome_build: hg38
  files: [/data/m.fq.gz]
  metadata:
    batch: [b1, b2]
    phenotype: tumor
  algorithm:
    variantcaller: vardict
`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "final", "multi"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "final", "2019-01-31_project"), 0755))

	_, err := Load(root, Options{Silent: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple batches")
}

func TestSharedNormalAcrossBatches(t *testing.T) {
	// One normal shared by two tumor batches: legal, and both batches
	// pair with it.
	root := filepath.Join(t.TempDir(), "proj", "run")
	writeTestFile(t, filepath.Join(root, "config", "bcbio.yaml"), `details:
- description: t1
  analysis: variant2
  genome_build: hg38
  files: [/data/t1.fq.gz]
  metadata: {batch: b1, phenotype: tumor}
  algorithm: {variantcaller: vardict}
- description: t2
  analysis: variant2
  genome_build: hg38
  files: [/data/t2.fq.gz]
  metadata: {batch: b2, phenotype: tumor}
  algorithm: {variantcaller: vardict}
- description: n1
  analysis: variant2
  genome_build: hg38
  files: [/data/n1.fq.gz]
  metadata: {batch: [b1, b2], phenotype: normal}
  algorithm: {variantcaller: vardict}
`)
	for _, name := range []string{"t1", "t2", "n1"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "final", name), 0755))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(root, "final", "2019-01-31_project"), 0755))

	proj, err := Load(root, Options{Silent: true})
	require.NoError(t, err)
	require.Len(t, proj.Samples, 3)
	for _, bn := range []string{"b1", "b2"} {
		b := proj.BatchByName[bn]
		require.NotNil(t, b, bn)
		assert.True(t, b.IsPaired(), bn)
		assert.Equal(t, "n1", b.Normal.Name, bn)
	}
}

func TestRNASeqSample(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj", "run")
	writeTestFile(t, filepath.Join(root, "config", "bcbio.yaml"), `details:
- description: rna1
  analysis: RNA-seq
  genome_build: hg38
  files: [/data/rna1.fq.gz]
  algorithm: {}
`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "final", "rna1"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "final", "2019-01-31_project"), 0755))
	writeTestFile(t, filepath.Join(root, "final", "rna1", "rna1-ready.counts"), "GENE1\t10\n")

	proj, err := Load(root, Options{Silent: true})
	require.NoError(t, err)
	require.Len(t, proj.Samples, 1)
	s := proj.Samples[0]
	assert.True(t, s.IsRNASeq)
	assert.True(t, proj.IsRNASeq)
	assert.Equal(t, filepath.Join(root, "final", "rna1", "rna1-ready.counts"), s.CountsPath)
	assert.Empty(t, s.VariantCallers)
}

func TestOldNameUsedForFiles(t *testing.T) {
	root := filepath.Join(t.TempDir(), "proj", "run")
	writeTestFile(t, filepath.Join(root, "config", "bcbio.yaml"), `details:
- description: renamed
  description_original: original
  analysis: variant2
  genome_build: hg38
  files: [/data/o.fq.gz]
  algorithm: {variantcaller: vardict}
`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "final", "renamed"), 0755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "final", "2019-01-31_project"), 0755))
	// bcbio wrote the BAM under the original name.
	writeTestFile(t, filepath.Join(root, "final", "renamed", "original-ready.bam"), "stub")

	proj, err := Load(root, Options{Silent: true})
	require.NoError(t, err)
	require.Len(t, proj.Samples, 1)
	s := proj.Samples[0]
	assert.Equal(t, "renamed", s.Name)
	assert.Equal(t, "original", s.OldName)
	assert.Equal(t, "original", s.FileName())
	assert.Equal(t, filepath.Join(root, "final", "renamed", "original-ready.bam"), s.BamPath)
}
