package bcbio

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// Sample is one `details` entry of the bcbio config, resolved against
// the final directory.
type Sample struct {
	project *Project

	// Name is the sample description with dots replaced by underscores,
	// matching the sample directory name under final.
	Name string
	// RawName is the description as written in the YAML.
	RawName string
	// OldName is description_original: set when the sample is symlinked
	// from another project under a changed name.
	OldName string

	// DirPath is the sample directory under final; VarDirPath its var/
	// subdirectory.
	DirPath    string
	VarDirPath string

	Phenotype   string
	BatchNames  []string
	Batch       *Batch
	NormalMatch *Sample

	GenomeBuild       string
	VariantRegionsBed string
	SVRegionsBed      string
	CoverageBed       string

	IsRNASeq          bool
	IsWGS             bool
	CoverageInterval  string
	MinAlleleFraction float64

	VariantCallers []string

	BamPath    string
	CountsPath string

	Info    *SampleInfo
	Metrics map[string]interface{}
}

// FileName is the name bcbio used for this sample's files: the original
// description when the sample was renamed, else the current name.
func (s *Sample) FileName() string {
	if s.OldName != "" {
		return s.OldName
	}
	return s.Name
}

// Project returns the project this sample belongs to.
func (s *Sample) Project() *Project {
	return s.project
}

// parseSampleIDs extracts the normalized sample and batch names from a
// details entry. Batch IDs written as bare numbers come through the
// YAML layer as their literal text.
func parseSampleIDs(info *SampleInfo) (name string, batchNames []string) {
	name = normalizeName(string(info.Description))
	for _, b := range info.Metadata.Batch {
		if b != "" {
			batchNames = append(batchNames, normalizeName(b))
		}
	}
	return name, batchNames
}

// loadSample builds a Sample from a details entry, applying
// include/exclude filtering. It returns (nil, nil) when the entry is
// filtered out or (in silent mode) its directory is missing.
func loadSample(info *SampleInfo, p *Project, exclude, include []string, extraBatches map[string]bool) (*Sample, error) {
	name, batchNames := parseSampleIDs(info)

	if len(exclude) > 0 {
		if contains(exclude, name) {
			p.infof("skipping sample %s", name)
			return nil, nil
		}
		if len(batchNames) > 0 {
			var kept []string
			for _, b := range batchNames {
				if !contains(exclude, b) {
					kept = append(kept, b)
				}
			}
			if len(kept) == 0 {
				p.infof("skipping sample %s with batch info %s", name, strings.Join(batchNames, ", "))
				return nil, nil
			}
			batchNames = kept
		}
	}

	if len(include) > 0 {
		if contains(include, name) {
			p.infof("using sample %s and all samples sharing batches %s", name, strings.Join(batchNames, ", "))
		} else {
			var incl, extra []string
			for _, b := range batchNames {
				if contains(include, b) {
					incl = append(incl, b)
				} else if extraBatches[b] {
					extra = append(extra, b)
				}
			}
			if len(incl) > 0 {
				p.infof("using sample %s with batch info %s", name, strings.Join(batchNames, ", "))
			} else if len(extra) > 0 {
				p.infof("using sample %s as it shares batches %s with included samples", name, strings.Join(extra, ", "))
			}
			incl = append(incl, extra...)
			if len(incl) == 0 {
				return nil, nil
			}
			batchNames = incl
		}
	}

	s := &Sample{project: p, Info: info}
	if info.DescriptionOriginal != "" {
		s.OldName = normalizeName(string(info.DescriptionOriginal))
	}

	s.Phenotype = info.Metadata.Phenotype
	if s.Phenotype == "" {
		s.Phenotype = PhenotypeTumor
	}
	if len(batchNames) == 0 {
		fileName := name
		if s.OldName != "" {
			fileName = s.OldName
		}
		batchNames = []string{fileName + "-batch"}
	}
	if len(batchNames) > 1 && s.Phenotype != PhenotypeNormal {
		return nil, errors.Errorf("multiple batches for non-normal %s sample %s: %s",
			s.Phenotype, name, strings.Join(batchNames, ", "))
	}
	s.BatchNames = batchNames

	s.GenomeBuild = info.GenomeBuild
	s.VariantRegionsBed = p.ConfigRelPath(info.Algorithm.VariantRegions)
	s.SVRegionsBed = firstNonEmpty(p.ConfigRelPath(info.Algorithm.SVRegions), s.VariantRegionsBed)
	s.CoverageBed = firstNonEmpty(p.ConfigRelPath(info.Algorithm.Coverage), s.SVRegionsBed)
	if s.CoverageBed != "" && !fileExists(s.CoverageBed) {
		log.Debug.Printf("coverage bed %s not found", s.CoverageBed)
	}

	s.IsRNASeq = strings.Contains(strings.ToLower(info.Analysis), "rna")
	s.MinAlleleFraction = 0.01
	if info.Algorithm.MinAlleleFraction != nil {
		s.MinAlleleFraction = *info.Algorithm.MinAlleleFraction / 100
	}
	if s.VariantRegionsBed == "" {
		s.CoverageInterval = IntervalGenome
	} else {
		s.CoverageInterval = IntervalRegional
	}
	s.IsWGS = s.CoverageInterval == IntervalGenome

	ok, err := s.setNameAndPaths(name, info.Algorithm.VariantCaller, info.Algorithm.HasEnsemble())
	if err != nil || !ok {
		return nil, err
	}
	return s, nil
}

// setNameAndPaths resolves the sample directory under final and the
// per-sample artifacts. A missing directory is fatal unless the project
// is silent, in which case the sample is dropped.
func (s *Sample) setNameAndPaths(name string, callers *CallerConf, ensemble bool) (bool, error) {
	s.RawName = name
	s.Name = normalizeName(s.RawName)
	s.DirPath = filepath.Join(s.project.FinalDir, s.Name)
	if !dirExists(s.DirPath) {
		if s.project.Silent {
			return false, nil
		}
		return false, errors.Errorf(
			"sample %q from the bcbio YAML has no directory under final (%s); every description in %s "+
				"needs a matching directory in final, or use the exclude option to drop it",
			s.Name, s.project.FinalDir, s.project.ConfigPath)
	}
	s.VarDirPath = filepath.Join(s.DirPath, VarDirName)

	s.BamPath = s.FindBAM()

	if s.IsRNASeq {
		counts := filepath.Join(s.DirPath, s.FileName()+"-ready.counts")
		if fileExists(counts) {
			s.CountsPath = counts
		} else if !s.project.Silent {
			log.Error.Printf("counts for %s not found", s.Name)
		}
		return true, nil
	}
	if callers == nil {
		if !s.project.Silent {
			log.Error.Printf("no variant callers set in config for %s, skipping VCF lookup", s.Name)
		}
		return true, nil
	}
	s.setVariantCallers(callers, ensemble)
	return true, nil
}

// setVariantCallers fixes the caller list for the sample and promotes
// the highest-priority caller to the project-level somatic or germline
// selection.
func (s *Sample) setVariantCallers(conf *CallerConf, ensemble bool) {
	s.VariantCallers = conf.ForPhenotype(s.Phenotype)
	if ensemble && len(s.VariantCallers) > 1 {
		s.VariantCallers = append([]string{"ensemble"}, s.VariantCallers...)
	}
	if len(s.VariantCallers) == 0 {
		return
	}
	pick := s.VariantCallers[0]
	for _, c := range CallerPriority {
		if contains(s.VariantCallers, c) {
			pick = c
			break
		}
	}
	if s.Phenotype != PhenotypeGermline && s.Phenotype != PhenotypeNormal {
		s.project.SomaticCaller = pick
	} else {
		s.project.GermlineCaller = pick
	}
}

// FindBAM resolves the sample's alignment file: `-ready.bam`,
// `-ready.cram` or `-sort.bam` in the sample dir, then the BAM the
// pipeline was started from, resolved against the work dir.
func (s *Sample) FindBAM() string {
	name := s.FileName()
	for _, ext := range []string{"-ready.bam", "-ready.cram", "-sort.bam"} {
		if path := existingFile(filepath.Join(s.DirPath, name+ext)); path != "" {
			return path
		}
	}

	if len(s.Info.Files) > 0 {
		input := s.Info.Files[0]
		if strings.HasSuffix(input, ".bam") {
			log.Debug.Printf("bcbio was run from BAM input")
			if !filepath.IsAbs(input) {
				input = absJoin(s.project.WorkDir, input)
			}
			if fileExists(input) {
				log.Debug.Printf("using BAM file from the input YAML: %s", input)
				return input
			}
			log.Debug.Printf("input BAM for sample %s does not exist: %s", s.Name, input)
		}
	}
	if !s.project.Silent {
		log.Error.Printf("no BAM or CRAM file found for %s", s.Name)
	}
	return ""
}

// Metric returns the first project-summary metric matching any of the
// given names, case-insensitively. "NA" values are skipped.
func (s *Sample) Metric(names ...string) (interface{}, bool) {
	if len(s.Metrics) == 0 {
		return nil, false
	}
	var val interface{}
	found := false
	for k, v := range s.Metrics {
		for _, n := range names {
			if strings.EqualFold(k, n) && v != "NA" {
				val = v
				found = true
			}
		}
	}
	if !found {
		log.Error.Printf("cannot find %s in metrics for %s", strings.Join(names, ", "), s.Name)
	}
	return val, found
}

// AvgDepth returns the average coverage metric.
func (s *Sample) AvgDepth() (float64, bool) {
	v, ok := s.Metric("Avg_coverage", "Avg_coverage_per_region")
	if !ok {
		return 0, false
	}
	return metricFloat(v)
}

// ReadsCount returns the total read count metric.
func (s *Sample) ReadsCount() (int64, bool) {
	v, ok := s.Metric("Total_reads", "Total reads")
	if !ok {
		return 0, false
	}
	f, ok := metricFloat(v)
	return int64(f), ok
}

// UsableCount derives the number of usable reads from the total read
// count and the usable percentage metric.
func (s *Sample) UsableCount() (int64, bool) {
	pct, ok := s.Metric("Usable_pct")
	if !ok {
		return 0, false
	}
	pctF, ok := metricFloat(pct)
	if !ok {
		return 0, false
	}
	reads, ok := s.ReadsCount()
	if !ok {
		return 0, false
	}
	return int64(float64(reads) * pctF / 100), true
}

// IsDedupped reports whether mark_duplicates was enabled for the sample.
func (s *Sample) IsDedupped() bool {
	return s.Info != nil && s.Info.Algorithm.MarkDuplicates
}

func metricFloat(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
