package bcbio

import (
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// Directory and file naming conventions inside a bcbio output tree.
const (
	VarFilterDirName   = "varFilter"
	VarAnnotateDirName = "varAnnotate"
	CNVDirName         = "cnv"
	VarDirName         = "var"
	RawVarDirName      = "raw"
	ReportsDirName     = "reports"
	NGSReportName      = "ngs_report"
	ExpressionDirName  = "expression"

	AnnoVCFSuffix     = ".anno.vcf"
	FiltVCFSuffix     = ".anno.filt.vcf"
	PassFiltVCFSuffix = ".anno.filt." + MutPassSuffix + ".vcf"

	MutFileExt       = "tsv"
	MutPassSuffix    = "PASS"
	MutSingleSuffix  = "single"
	MutPairedSuffix  = "paired"

	Seq2CFileName  = "seq2c.tsv"
	CNVKitFileName = "cnvkit.tsv"

	MultiQCReportName = "report.html"
)

// Sample phenotypes as spelled in bcbio metadata.
const (
	PhenotypeTumor    = "tumor"
	PhenotypeNormal   = "normal"
	PhenotypeGermline = "germline"
)

// CallerPriority orders variant callers from most to least preferred when
// a sample was run with more than one.
var CallerPriority = []string{"ensemble", "strelka2", "vardict", "gatk-haplotype"}

// Coverage interval classes.
const (
	IntervalGenome   = "genome"
	IntervalRegional = "regional"
)

type callerKey struct {
	caller   string
	germline bool
}

// Project is a loaded bcbio run: its directory layout, parsed config,
// samples and batches.
type Project struct {
	ConfigDir      string
	FinalDir       string
	DateDir        string
	LogDir         string
	PostprocLogDir string
	WorkDir        string

	// ConfigPath is the bcbio YAML the run was described by.
	ConfigPath string

	// Postprocessing directories under the datestamp dir.
	VarDir        string
	RawVarDir     string
	ExpressionDir string

	// VersionsPath and ProgramsPath point at data_versions.txt and
	// programs.txt when present, else are empty.
	VersionsPath string
	ProgramsPath string

	Name        string
	GenomeBuild string

	Samples     []*Sample
	BatchByName map[string]*Batch

	SomaticCaller  string
	GermlineCaller string

	VariantRegionsBed string
	SVRegionsBed      string
	CoverageBed       string

	CoverageInterval  string
	MinAlleleFraction float64
	IsRNASeq          bool
	IsWGS             bool

	// Silent suppresses informational logging during loading.
	Silent bool

	samplesByCaller map[callerKey][]*Sample
}

// Options tunes project loading.
type Options struct {
	// Name overrides the project name derived from the directory layout.
	Name string
	// ProcName is the postprocessing log subdirectory under log/.
	// Defaults to "postproc".
	ProcName string
	// ExcludeSamples drops samples or whole batches by name.
	ExcludeSamples []string
	// IncludeSamples restricts loading to the named samples or batches,
	// pulling in batch mates so tumor/normal pairs stay complete.
	IncludeSamples []string
	// Silent suppresses informational logging.
	Silent bool
}

// Load analyzes an existing bcbio output tree. inputDir may be the run
// root, its config directory, the final directory, or a datestamp
// directory inside final.
func Load(inputDir string, opts Options) (*Project, error) {
	p := &Project{
		Silent:          opts.Silent,
		SomaticCaller:   "ensemble",
		GermlineCaller:  "ensemble",
		BatchByName:     make(map[string]*Batch),
		samplesByCaller: make(map[callerKey][]*Sample),
	}
	var err error
	var finalDir string
	p.ConfigDir, finalDir, err = DetectDirs(inputDir)
	if err != nil {
		return nil, err
	}
	cfg, cfgPath, err := LoadConfig(p.ConfigDir)
	if err != nil {
		return nil, err
	}
	p.ConfigPath = cfgPath
	if err := p.setProjectDirs(cfg, finalDir, opts); err != nil {
		return nil, err
	}
	if err := p.setSamples(cfg, opts); err != nil {
		return nil, err
	}
	if err := p.loadSummaryMetrics(); err != nil {
		return nil, err
	}
	p.infof("done loading bcbio project %s", p.Name)
	return p, nil
}

// DetectDirs locates the config and final directories given the run
// root, the config dir, a `*final*` dir, or a datestamp dir. finalDir is
// empty when the input does not pin it down; the final directory is then
// resolved from the config during Load.
func DetectDirs(inputDir string) (configDir, finalDir string, err error) {
	inputDir, err = filepath.Abs(inputDir)
	if err != nil {
		return "", "", err
	}
	base := filepath.Base(inputDir)
	switch {
	// Inside `*final*` (prefixes and postfixes allowed).
	case strings.Contains(base, "final"):
		finalDir = inputDir
		configDir = filepath.Join(filepath.Dir(inputDir), "config")
		if !dirExists(configDir) {
			return "", "", errors.Wrapf(ErrNoConfigDir,
				"input %s looks like a final dir but has no sibling config dir at %s", inputDir, configDir)
		}

	// Inside `config`.
	case base == "config":
		configDir = inputDir

	// In a parent of `config` (the run root).
	case dirExists(filepath.Join(inputDir, "config")):
		configDir = filepath.Join(inputDir, "config")

	// Inside a datestamp dir: `config` lives two levels up.
	case dirExists(absJoin(inputDir, "..", "..", "config")):
		finalDir = filepath.Dir(inputDir)
		configDir = absJoin(inputDir, "..", "..", "config")

	default:
		return "", "", errors.Wrapf(ErrNoConfigDir,
			"%s is not a bcbio config, final or datestamp directory, and no config directory was found at %s or %s",
			inputDir, filepath.Join(inputDir, "config"), absJoin(inputDir, "..", "config"))
	}
	log.Debug.Printf("bcbio config directory: %s", configDir)
	if finalDir != "" {
		log.Debug.Printf("bcbio final directory: %s", finalDir)
	}
	return configDir, finalDir, nil
}

func (p *Project) setProjectDirs(cfg *Config, finalDir string, opts Options) error {
	var err error
	if p.FinalDir, err = resolveFinalDir(cfg, p.ConfigDir, finalDir); err != nil {
		return err
	}
	p.Name = opts.Name
	if p.Name == "" {
		p.Name = deriveProjectName(p.FinalDir)
	}
	p.WorkDir = absJoin(p.FinalDir, "..", "work")
	if p.DateDir, err = resolveDateDir(cfg, p.FinalDir, p.Silent); err != nil {
		return err
	}
	p.LogDir = filepath.Join(p.DateDir, "log")
	proc := opts.ProcName
	if proc == "" {
		proc = "postproc"
	}
	p.PostprocLogDir = filepath.Join(p.LogDir, proc)

	p.VarDir = filepath.Join(p.DateDir, VarDirName)
	p.RawVarDir = filepath.Join(p.VarDir, RawVarDirName)
	p.ExpressionDir = filepath.Join(p.DateDir, ExpressionDirName)

	p.VersionsPath = existingFile(filepath.Join(p.DateDir, "data_versions.txt"))
	p.ProgramsPath = existingFile(filepath.Join(p.DateDir, "programs.txt"))
	return nil
}

// resolveFinalDir returns the final directory: the one detected from the
// input path, the `upload.dir` setting resolved against the config dir,
// or the conventional `final` sibling of config.
func resolveFinalDir(cfg *Config, configDir, detected string) (string, error) {
	if detected != "" {
		return detected, nil
	}
	if cfg.Upload.Dir != "" {
		finalDir := absJoin(configDir, cfg.Upload.Dir)
		if !dirExists(finalDir) {
			return "", errors.Errorf("upload directory %s from the bcbio config does not exist", finalDir)
		}
		return finalDir, nil
	}
	finalDir := absJoin(configDir, "..", "final")
	if !dirExists(finalDir) {
		return "", errors.Errorf(
			"no final directory at %s; if it is not named \"final\", specify it as upload.dir in the bcbio config",
			finalDir)
	}
	return finalDir, nil
}

// deriveProjectName builds a name from the two directory levels above
// final, e.g. .../Bio_0031_DLBCL/bcbio_Dev_0079/final becomes
// Bio_0031_DLBCL_bcbio_Dev_0079.
func deriveProjectName(finalDir string) string {
	rootDir := filepath.Dir(finalDir)
	return filepath.Base(filepath.Dir(rootDir)) + "_" + filepath.Base(rootDir)
}

var dateDirRe = regexp.MustCompile(`^(\d\d\d\d)-([01][0-9])-([0-3][0-9])_`)

// resolveDateDir finds the datestamp directory under final: the
// `{fc_date}_{fc_name}` dir when fc_date is configured, the bcbio-CWL
// `project` dir, or the newest `YYYY-MM-DD_{fc_name}` directory.
func resolveDateDir(cfg *Config, finalDir string, silent bool) (string, error) {
	fcName := cfg.FCName
	if fcName == "" {
		fcName = "project"
	}
	if cfg.FCDate != "" {
		dateDir := filepath.Join(finalDir, cfg.FCDate+"_"+fcName)
		if !dirExists(dateDir) {
			return "", errors.Wrapf(ErrNoDateStampDir,
				"no directory of format {fc_date}_{fc_name} at %s", dateDir)
		}
		return dateDir, nil
	}
	if dirExists(filepath.Join(finalDir, "project")) { // bcbio-CWL layout
		dateDir := filepath.Join(finalDir, "project")
		if !silent {
			log.Printf("using the bcbio-CWL datestamp dir %s", dateDir)
		}
		return dateDir, nil
	}

	entries, err := os.ReadDir(finalDir)
	if err != nil {
		return "", errors.Wrapf(err, "read final dir %s", finalDir)
	}
	var dateDirs []string
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := dateDirRe.FindStringSubmatch(e.Name())
		if m != nil && strings.HasSuffix(e.Name(), "_"+fcName) {
			dateDirs = append(dateDirs, e.Name())
		}
	}
	if len(dateDirs) == 0 {
		return "", errors.Wrapf(ErrNoDateStampDir, "in %s", finalDir)
	}
	// Lexicographic order matches chronological order for the
	// YYYY-MM-DD prefix.
	sort.Strings(dateDirs)
	newest := dateDirs[len(dateDirs)-1]
	newestDate := strings.SplitN(newest, "_", 2)[0]
	var sameDate []string
	for _, d := range dateDirs {
		if strings.HasPrefix(d, newestDate+"_") {
			sameDate = append(sameDate, d)
		}
	}
	if len(sameDate) > 1 {
		return "", errors.Wrapf(ErrAmbiguousDateStamp, "%s in %s",
			strings.Join(sameDate, ", "), finalDir)
	}
	dateDir := filepath.Join(finalDir, newest)
	if !silent {
		log.Printf("using the datestamp dir %s", dateDir)
	}
	return dateDir, nil
}

// ConfigRelPath resolves a config value that may be a path relative to
// the config directory. The value is returned unchanged when nothing
// exists at the resolved location.
func (p *Project) ConfigRelPath(val string) string {
	if val == "" {
		return val
	}
	full := absJoin(p.ConfigDir, val)
	if _, err := os.Stat(full); err == nil {
		return full
	}
	return val
}

func (p *Project) setSamples(cfg *Config, opts Options) error {
	log.Debug.Printf("reading sample details")
	exclude := normalizeNames(opts.ExcludeSamples)
	include := normalizeNames(opts.IncludeSamples)

	// First pass: batches shared with included samples must be pulled in
	// so tumor/normal pairs stay complete.
	extraBatches := make(map[string]bool)
	if len(include) > 0 {
		for i := range cfg.Details {
			name, batchNames := parseSampleIDs(&cfg.Details[i])
			if !contains(include, name) {
				continue
			}
			for _, b := range batchNames {
				if !contains(include, b) && !contains(exclude, b) {
					extraBatches[b] = true
				}
			}
		}
	}

	// Second pass: filtering and sample construction.
	for i := range cfg.Details {
		s, err := loadSample(&cfg.Details[i], p, exclude, include, extraBatches)
		if err != nil {
			return err
		}
		if s != nil {
			p.Samples = append(p.Samples, s)
		}
	}
	if len(p.Samples) == 0 {
		if len(exclude) > 0 {
			return errors.Wrapf(ErrNoSamples,
				"no samples left after excluding %s; check %s for available names",
				strings.Join(exclude, ", "), p.ConfigPath)
		}
		if len(include) > 0 {
			return errors.Wrapf(ErrNoSamples,
				"no batch or sample named %s; check %s for available names",
				strings.Join(include, ", "), p.ConfigPath)
		}
		return errors.Wrapf(ErrNoSamples, "check the bcbio YAML file %s", p.ConfigPath)
	}

	var noBam []string
	for _, s := range p.Samples {
		if s.BamPath == "" {
			noBam = append(noBam, s.Name)
		}
	}
	if len(noBam) > 0 && !p.Silent {
		log.Error.Printf("no BAM files found for %d/%d samples", len(noBam), len(p.Samples))
	}

	sort.Slice(p.Samples, func(i, j int) bool { return p.Samples[i].Name < p.Samples[j].Name })
	var err error
	if p.BatchByName, err = assignBatches(p.Samples, p.Silent); err != nil {
		return err
	}
	p.applySampleConsensus()

	for _, s := range p.Samples {
		for _, caller := range s.VariantCallers {
			key := callerKey{caller, s.Phenotype == PhenotypeGermline}
			p.samplesByCaller[key] = append(p.samplesByCaller[key], s)
		}
	}
	return nil
}

// applySampleConsensus lifts per-sample properties to the project when
// they agree across all samples; disagreements are logged and leave the
// project-level value unset.
func (p *Project) applySampleConsensus() {
	strProp := func(name string, get func(*Sample) string, set func(string)) {
		vals := make(map[string]bool)
		for _, s := range p.Samples {
			vals[get(s)] = true
		}
		if len(vals) > 1 {
			log.Error.Printf("got different %s values across samples in %s", name, p.Name)
			return
		}
		for v := range vals {
			set(v)
		}
	}
	strProp("genome_build", func(s *Sample) string { return s.GenomeBuild }, func(v string) { p.GenomeBuild = v })
	strProp("variant_regions", func(s *Sample) string { return s.VariantRegionsBed }, func(v string) { p.VariantRegionsBed = v })
	strProp("sv_regions", func(s *Sample) string { return s.SVRegionsBed }, func(v string) { p.SVRegionsBed = v })
	strProp("coverage", func(s *Sample) string { return s.CoverageBed }, func(v string) { p.CoverageBed = v })
	strProp("coverage_interval", func(s *Sample) string { return s.CoverageInterval }, func(v string) { p.CoverageInterval = v })

	rna := make(map[bool]bool)
	wgs := make(map[bool]bool)
	maf := make(map[float64]bool)
	for _, s := range p.Samples {
		rna[s.IsRNASeq] = true
		wgs[s.IsWGS] = true
		maf[s.MinAlleleFraction] = true
	}
	if len(rna) == 1 {
		p.IsRNASeq = p.Samples[0].IsRNASeq
	} else {
		log.Error.Printf("got different analysis types (RNA-seq vs not) across samples in %s", p.Name)
	}
	if len(wgs) == 1 {
		p.IsWGS = p.Samples[0].IsWGS
	} else {
		log.Error.Printf("got different coverage intervals (WGS vs not) across samples in %s", p.Name)
	}
	if len(maf) == 1 {
		p.MinAlleleFraction = p.Samples[0].MinAlleleFraction
	} else {
		log.Error.Printf("got different min_allele_fraction values across samples in %s", p.Name)
	}

	if p.IsRNASeq {
		log.Debug.Printf("RNA-seq project")
	} else if p.CoverageInterval != "" {
		log.Debug.Printf("coverage interval: %s", p.CoverageInterval)
	}
}

// loadSummaryMetrics attaches per-sample metrics from
// project-summary.yaml when bcbio wrote one.
func (p *Project) loadSummaryMetrics() error {
	path := p.FindInLog("project-summary.yaml")
	if path == "" {
		return nil
	}
	var summary struct {
		Samples []struct {
			Description string `yaml:"description"`
			Summary     struct {
				Metrics map[string]interface{} `yaml:"metrics"`
			} `yaml:"summary"`
		} `yaml:"samples"`
	}
	if err := readYAML(path, &summary); err != nil {
		return err
	}
	metricsBySample := make(map[string]map[string]interface{})
	for _, s := range summary.Samples {
		metricsBySample[s.Description] = s.Summary.Metrics
	}
	for _, s := range p.Samples {
		name := s.Name
		if s.Phenotype == PhenotypeGermline {
			name = strings.TrimSuffix(name, "-germline")
		}
		if m, ok := metricsBySample[name]; ok {
			s.Metrics = m
		} else {
			log.Debug.Printf("no metrics for sample %s in %s", name, path)
		}
	}
	return nil
}

// SamplesByCaller returns the samples that were run with the given
// variant caller, split by germline status.
func (p *Project) SamplesByCaller(caller string, germline bool) []*Sample {
	return p.samplesByCaller[callerKey{caller, germline}]
}

// GetBatch looks a batch up by name.
func (p *Project) GetBatch(name string) *Batch {
	return p.BatchByName[name]
}

// GetSample looks a sample up by (normalized) name.
func (p *Project) GetSample(name string) *Sample {
	name = normalizeName(name)
	for _, s := range p.Samples {
		if s.Name == name {
			return s
		}
	}
	return nil
}

func (p *Project) infof(format string, args ...interface{}) {
	if !p.Silent {
		log.Printf(format, args...)
	}
}

// normalizeName replaces dots with underscores the way bcbio does when
// it writes sample directories.
func normalizeName(name string) string {
	return strings.ReplaceAll(name, ".", "_")
}

func normalizeNames(names []string) []string {
	var out []string
	for _, n := range names {
		if n != "" {
			out = append(out, normalizeName(n))
		}
	}
	return out
}

func contains(list []string, val string) bool {
	for _, v := range list {
		if v == val {
			return true
		}
	}
	return false
}
