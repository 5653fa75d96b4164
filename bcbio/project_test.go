package bcbio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigYAML = `fc_name: gx01
upload:
  dir: ../final
details:
- description: syn3-tumor
  analysis: variant2
  genome_build: hg38
  files: [/data/tumor_R1.fq.gz, /data/tumor_R2.fq.gz]
  metadata:
    batch: syn3
    phenotype: tumor
  algorithm:
    variantcaller: [vardict, strelka2]
    ensemble:
      numpass: 2
    variant_regions: target.bed
    min_allele_fraction: 5.0
    mark_duplicates: true
- description: syn3-normal
  analysis: variant2
  genome_build: hg38
  files: [/data/normal_R1.fq.gz, /data/normal_R2.fq.gz]
  metadata:
    batch: syn3
    phenotype: normal
  algorithm:
    variantcaller: [vardict, strelka2]
    ensemble:
      numpass: 2
    variant_regions: target.bed
    min_allele_fraction: 5.0
`

const testSummaryYAML = `samples:
- description: syn3-tumor
  summary:
    metrics:
      Avg_coverage: 90.5
      Total_reads: 1000000
      Usable_pct: 80
- description: syn3-normal
  summary:
    metrics:
      Avg_coverage: 45
      Total_reads: 500000
`

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

// newTestTree builds a minimal bcbio output tree and returns its root
// (the directory holding config/ and final/).
func newTestTree(t *testing.T) string {
	t.Helper()
	root := filepath.Join(t.TempDir(), "Bio_0001_Test", "bcbio_run1")
	writeTestFile(t, filepath.Join(root, "config", "bcbio.yaml"), testConfigYAML)
	writeTestFile(t, filepath.Join(root, "config", "target.bed"),
		"chr21\t100\t2000\tTP53\nchr21\t3000\t4000\tEGFR\n")
	for _, name := range []string{"syn3-tumor", "syn3-normal"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, "final", name), 0755))
	}
	writeTestFile(t, filepath.Join(root, "final", "syn3-tumor", "syn3-tumor-ready.bam"), "stub")
	writeTestFile(t, filepath.Join(root, "final", "syn3-normal", "syn3-normal-ready.bam"), "stub")
	writeTestFile(t, filepath.Join(root, "final", "2019-01-31_gx01", "log", "project-summary.yaml"),
		testSummaryYAML)
	return root
}

func loadTestProject(t *testing.T) *Project {
	t.Helper()
	proj, err := Load(newTestTree(t), Options{Silent: true})
	require.NoError(t, err)
	return proj
}

func TestDetectDirs(t *testing.T) {
	root := newTestTree(t)
	wantConfig := filepath.Join(root, "config")
	wantFinal := filepath.Join(root, "final")

	for _, tt := range []struct {
		input     string
		wantFinal string
	}{
		{root, ""},
		{wantConfig, ""},
		{wantFinal, wantFinal},
		{filepath.Join(wantFinal, "2019-01-31_gx01"), wantFinal},
	} {
		configDir, finalDir, err := DetectDirs(tt.input)
		assert.NoError(t, err, tt.input)
		assert.Equal(t, wantConfig, configDir, tt.input)
		assert.Equal(t, tt.wantFinal, finalDir, tt.input)
	}
}

func TestDetectDirsNotABcbioDir(t *testing.T) {
	_, _, err := DetectDirs(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, ErrNoConfigDir, errors.Cause(err))
}

func TestLoad(t *testing.T) {
	root := newTestTree(t)
	proj, err := Load(root, Options{})
	require.NoError(t, err)

	assert.Equal(t, "Bio_0001_Test_bcbio_run1", proj.Name)
	assert.Equal(t, filepath.Join(root, "config"), proj.ConfigDir)
	assert.Equal(t, filepath.Join(root, "final"), proj.FinalDir)
	assert.Equal(t, filepath.Join(root, "final", "2019-01-31_gx01"), proj.DateDir)
	assert.Equal(t, filepath.Join(proj.DateDir, "log"), proj.LogDir)
	assert.Equal(t, filepath.Join(proj.LogDir, "postproc"), proj.PostprocLogDir)
	assert.Equal(t, filepath.Join(root, "work"), proj.WorkDir)
	assert.Equal(t, filepath.Join(root, "config", "bcbio.yaml"), proj.ConfigPath)

	assert.Equal(t, "hg38", proj.GenomeBuild)
	assert.Equal(t, filepath.Join(root, "config", "target.bed"), proj.VariantRegionsBed)
	assert.Equal(t, proj.VariantRegionsBed, proj.SVRegionsBed)
	assert.Equal(t, proj.VariantRegionsBed, proj.CoverageBed)
	assert.Equal(t, IntervalRegional, proj.CoverageInterval)
	assert.False(t, proj.IsWGS)
	assert.False(t, proj.IsRNASeq)
	assert.InDelta(t, 0.05, proj.MinAlleleFraction, 1e-9)

	require.Len(t, proj.Samples, 2)
	assert.Equal(t, "syn3-normal", proj.Samples[0].Name) // sorted
	assert.Equal(t, "syn3-tumor", proj.Samples[1].Name)

	// Ensemble is configured with two callers, so it leads the list and
	// wins the priority pick.
	assert.Equal(t, []string{"ensemble", "vardict", "strelka2"}, proj.Samples[1].VariantCallers)
	assert.Equal(t, "ensemble", proj.SomaticCaller)
	assert.Equal(t, "ensemble", proj.GermlineCaller)

	require.Contains(t, proj.BatchByName, "syn3")
	b := proj.BatchByName["syn3"]
	assert.True(t, b.IsPaired())
	require.NotNil(t, b.Tumor)
	require.NotNil(t, b.Normal)
	assert.Equal(t, "syn3-tumor", b.Tumor.Name)
	assert.Equal(t, "syn3-normal", b.Normal.Name)
	assert.Equal(t, b.Normal, b.Tumor.NormalMatch)

	tumor := proj.GetSample("syn3-tumor")
	require.NotNil(t, tumor)
	assert.Equal(t, filepath.Join(root, "final", "syn3-tumor", "syn3-tumor-ready.bam"), tumor.BamPath)
	assert.True(t, tumor.IsDedupped())
	assert.False(t, proj.Samples[0].IsDedupped())
}

func TestLoadSummaryMetrics(t *testing.T) {
	proj := loadTestProject(t)
	tumor := proj.GetSample("syn3-tumor")
	require.NotNil(t, tumor)

	depth, ok := tumor.AvgDepth()
	assert.True(t, ok)
	assert.InDelta(t, 90.5, depth, 1e-9)

	reads, ok := tumor.ReadsCount()
	assert.True(t, ok)
	assert.Equal(t, int64(1000000), reads)

	usable, ok := tumor.UsableCount()
	assert.True(t, ok)
	assert.Equal(t, int64(800000), usable)

	normal := proj.GetSample("syn3-normal")
	require.NotNil(t, normal)
	_, ok = normal.UsableCount() // no Usable_pct metric
	assert.False(t, ok)
}

func TestResolveDateDirVariants(t *testing.T) {
	t.Run("fc_date", func(t *testing.T) {
		finalDir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(finalDir, "2020-02-01_run7"), 0755))
		dateDir, err := resolveDateDir(&Config{FCDate: "2020-02-01", FCName: "run7"}, finalDir, true)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(finalDir, "2020-02-01_run7"), dateDir)
	})

	t.Run("fc_date missing dir", func(t *testing.T) {
		_, err := resolveDateDir(&Config{FCDate: "2020-02-01", FCName: "run7"}, t.TempDir(), true)
		require.Error(t, err)
		assert.Equal(t, ErrNoDateStampDir, errors.Cause(err))
	})

	t.Run("bcbio-CWL project dir", func(t *testing.T) {
		finalDir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(finalDir, "project"), 0755))
		dateDir, err := resolveDateDir(&Config{}, finalDir, true)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(finalDir, "project"), dateDir)
	})

	t.Run("newest wins", func(t *testing.T) {
		finalDir := t.TempDir()
		for _, d := range []string{"2019-01-31_gx01", "2020-02-01_gx01"} {
			require.NoError(t, os.MkdirAll(filepath.Join(finalDir, d), 0755))
		}
		dateDir, err := resolveDateDir(&Config{FCName: "gx01"}, finalDir, true)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(finalDir, "2020-02-01_gx01"), dateDir)
	})

	t.Run("ambiguous newest date", func(t *testing.T) {
		finalDir := t.TempDir()
		for _, d := range []string{"2020-02-01_gx01", "2020-02-01_reprocessed_gx01"} {
			require.NoError(t, os.MkdirAll(filepath.Join(finalDir, d), 0755))
		}
		_, err := resolveDateDir(&Config{FCName: "gx01"}, finalDir, true)
		require.Error(t, err)
		assert.Equal(t, ErrAmbiguousDateStamp, errors.Cause(err))
	})

	t.Run("none", func(t *testing.T) {
		_, err := resolveDateDir(&Config{FCName: "gx01"}, t.TempDir(), true)
		require.Error(t, err)
		assert.Equal(t, ErrNoDateStampDir, errors.Cause(err))
	})
}

func TestDeriveProjectName(t *testing.T) {
	assert.Equal(t, "Bio_0031_Heme_bcbio_Dev_0079",
		deriveProjectName("/data/Bio_0031_Heme/bcbio_Dev_0079/final"))
}

func TestConfigRelPath(t *testing.T) {
	proj := loadTestProject(t)
	assert.Equal(t, filepath.Join(proj.ConfigDir, "target.bed"), proj.ConfigRelPath("target.bed"))
	// Nonexistent values come back unchanged.
	assert.Equal(t, "no-such.bed", proj.ConfigRelPath("no-such.bed"))
	assert.Equal(t, "", proj.ConfigRelPath(""))
}

func TestIsSmallTarget(t *testing.T) {
	proj := loadTestProject(t)
	small, err := proj.IsSmallTarget()
	require.NoError(t, err)
	assert.True(t, small)

	genes, err := proj.TargetGenes()
	require.NoError(t, err)
	assert.Equal(t, []string{"TP53", "EGFR"}, genes)
}
