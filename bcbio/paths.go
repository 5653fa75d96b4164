package bcbio

import (
	"path/filepath"
	"strings"

	"github.com/grailbio/base/log"
)

// callerOrDefault substitutes the project-level somatic caller when no
// caller is named explicitly.
func (p *Project) callerOrDefault(caller string) string {
	if caller == "" {
		return p.SomaticCaller
	}
	return caller
}

// FindVCF resolves a batch-level VCF in the datestamp directory tree.
// Candidates are tried in priority order: annotated before plain,
// gzipped before uncompressed, the datestamp dir and var/raw before
// var. caller defaults to the project somatic caller.
func (p *Project) FindVCF(batchName, caller string) string {
	caller = p.callerOrDefault(caller)
	vcfName := batchName + "-" + caller + ".vcf"
	annoName := batchName + "-" + caller + "-annotated.vcf"

	path := firstExisting(
		filepath.Join(p.DateDir, annoName+".gz"),
		filepath.Join(p.RawVarDir, annoName+".gz"),
		filepath.Join(p.DateDir, vcfName+".gz"),
		filepath.Join(p.RawVarDir, vcfName+".gz"),
		filepath.Join(p.DateDir, vcfName),
		filepath.Join(p.RawVarDir, vcfName),
		filepath.Join(p.VarDir, vcfName+".gz"),
		filepath.Join(p.VarDir, vcfName),
	)
	if path == "" && !p.Silent {
		log.Error.Printf("no VCF found for batch %s, caller %s, gzipped or uncompressed, in the datestamp directory",
			batchName, caller)
	}
	return path
}

// findVCFInSampleDir resolves a VCF inside the sample directory, its
// var/ and var/raw/ subdirectories.
func (p *Project) findVCFInSampleDir(s *Sample, caller string, silent bool) string {
	caller = p.callerOrDefault(caller)
	vcfName := s.FileName() + "-" + caller + ".vcf"
	varDir := filepath.Join(s.DirPath, VarDirName)

	path := firstExisting(
		filepath.Join(s.DirPath, vcfName+".gz"),
		filepath.Join(varDir, vcfName+".gz"),
		filepath.Join(varDir, RawVarDirName, vcfName+".gz"),
		filepath.Join(s.DirPath, vcfName),
		filepath.Join(varDir, vcfName),
		filepath.Join(varDir, RawVarDirName, vcfName),
	)
	if path == "" && !silent {
		log.Error.Printf("no VCF found for %s (%s), gzipped or uncompressed, in or outside the var directory; phenotype is %s",
			s.Name, caller, s.Phenotype)
	}
	return path
}

// FindRawVCF resolves the raw variant calls for the sample: the
// batch-level VCF in the datestamp tree first, then the sample-level
// directory.
func (s *Sample) FindRawVCF(caller string) string {
	if s.Batch != nil && s.Phenotype != PhenotypeNormal {
		if path := s.project.FindVCF(s.Batch.Name, caller); path != "" {
			return path
		}
	}
	log.Debug.Printf("no VCF in the datestamp dir, looking at the sample-level dir")
	return s.project.findVCFInSampleDir(s, caller, s.project.Silent || s.Phenotype == PhenotypeNormal)
}

// FindAnnotatedVCF resolves `varAnnotate/<sample>-<caller>.anno.vcf.gz`.
func (s *Sample) FindAnnotatedVCF(caller string) string {
	caller = s.project.callerOrDefault(caller)
	return existingFile(filepath.Join(s.DirPath, VarAnnotateDirName,
		s.Name+"-"+caller+AnnoVCFSuffix+".gz"))
}

// FindFiltVCF resolves the filtered VCF under varFilter, optionally the
// PASS-only variant.
func (s *Sample) FindFiltVCF(caller string, passed bool) string {
	caller = s.project.callerOrDefault(caller)
	ending := FiltVCFSuffix
	if passed {
		ending = PassFiltVCFSuffix
	}
	return existingFile(filepath.Join(s.DirPath, VarFilterDirName, s.Name+"-"+caller+ending+".gz"))
}

// FindMutationFile resolves the per-sample mutations table
// `varFilter/<caller>.tsv`, PASS-filtered by default.
func (s *Sample) FindMutationFile(caller string, passed bool) string {
	caller = s.project.callerOrDefault(caller)
	path := filepath.Join(s.DirPath, VarFilterDirName, caller+"."+MutFileExt)
	if passed {
		path = addSuffix(path, MutPassSuffix)
	}
	return existingFile(path)
}

// FindMutationFiles lists the existing mutation tables (plain, single,
// paired) in the sample's varFilter directory.
func (s *Sample) FindMutationFiles(caller string, passed bool) []string {
	return findMutationFiles(filepath.Join(s.DirPath, VarFilterDirName),
		s.project.callerOrDefault(caller), passed)
}

// FindMutationFiles lists the existing project-level mutation tables in
// the datestamp var directory.
func (p *Project) FindMutationFiles(caller string, passed bool) []string {
	return findMutationFiles(p.VarDir, p.callerOrDefault(caller), passed)
}

func findMutationFiles(baseDir, caller string, passed bool) []string {
	base := filepath.Join(baseDir, caller+"."+MutFileExt)
	candidates := []string{
		base,
		addSuffix(base, MutSingleSuffix),
		addSuffix(base, MutPairedSuffix),
	}
	var out []string
	for _, path := range candidates {
		if passed {
			path = addSuffix(path, MutPassSuffix)
		}
		if fileExists(path) {
			out = append(out, path)
		}
	}
	return out
}

// FindSVVCF resolves the structural-variant VCF from manta or lumpy.
func (s *Sample) FindSVVCF() string {
	return firstNonEmpty(
		s.findCNVFile(s.Name+"-manta.vcf.gz"),
		s.findCNVFile(s.Name+"-lumpy.vcf.gz"))
}

// FindSVPrioritizeTSV resolves the prioritized SV table for the sample
// or its batch.
func (s *Sample) FindSVPrioritizeTSV() string {
	if path := s.findCNVFile(s.Name + "-sv-prioritize.tsv"); path != "" {
		return path
	}
	if s.Batch != nil {
		return s.findCNVFile(s.Batch.Name + "-sv-prioritize.tsv")
	}
	return ""
}

// FindSeq2CCalls resolves Seq2C CNV calls: sample- or batch-named files
// first, then the project-level file under the datestamp cnv dir
// (legacy `Seq2C.tsv` spelling included).
func (s *Sample) FindSeq2CCalls() string {
	if path := s.findSeq2CFile(); path != "" {
		return path
	}
	return firstExisting(
		filepath.Join(s.project.DateDir, CNVDirName, Seq2CFileName),
		filepath.Join(s.project.DateDir, CNVDirName, "Seq2C.tsv"))
}

func (s *Sample) findSeq2CFile() string {
	if path := s.findCNVFile(s.Name + "-seq2c.tsv"); path != "" {
		return path
	}
	if s.Batch != nil {
		return s.findCNVFile(s.Batch.Name + "-seq2c.tsv")
	}
	return ""
}

// FindSeq2CCoverage resolves the Seq2C coverage table, falling back to
// the project-level files (`seq2c-cov.tsv`, legacy `cov.tsv`).
func (s *Sample) FindSeq2CCoverage() string {
	if path := s.findCNVFile(s.Name + "-seq2c-coverage.tsv"); path != "" {
		return path
	}
	if s.Batch != nil {
		if path := s.findCNVFile(s.Batch.Name + "-seq2c-coverage.tsv"); path != "" {
			return path
		}
	}
	return firstExisting(
		filepath.Join(s.project.DateDir, CNVDirName, "seq2c-cov.tsv"),
		filepath.Join(s.project.DateDir, CNVDirName, "cov.tsv"))
}

// FindCNVKitFile resolves the CNVkit copy-number ratios (.cnr) for the
// sample or its batch.
func (s *Sample) FindCNVKitFile() string {
	if path := s.findCNVFile(s.Name + "-cnvkit.cnr"); path != "" {
		return path
	}
	if s.Batch != nil {
		return s.findCNVFile(s.Batch.Name + "-cnvkit.cnr")
	}
	return ""
}

// findCNVFile looks a CNV artifact up in the sample dir and its cnv/
// subdirectory.
func (s *Sample) findCNVFile(name string) string {
	return firstExisting(
		filepath.Join(s.DirPath, name),
		filepath.Join(s.DirPath, CNVDirName, name))
}

// FindCoverageStats resolves `qc/coverage/<sample>_coverage.bed`. For
// germline samples the `-germline` suffix bcbio appends is stripped
// from both the name and the directory.
func (s *Sample) FindCoverageStats() string {
	name := s.Name
	dir := s.DirPath
	if s.Phenotype == PhenotypeGermline {
		name = strings.TrimSuffix(name, "-germline")
		dir = strings.TrimSuffix(dir, "-germline")
	}
	return existingFile(filepath.Join(dir, "qc", "coverage", name+"_coverage.bed"))
}

// FindNGSReport resolves the per-sample NGS report HTML, either under
// the datestamp reports dir or inside the sample dir.
func (s *Sample) FindNGSReport() string {
	return firstExisting(
		filepath.Join(s.project.DateDir, ReportsDirName, s.Name+".html"),
		filepath.Join(s.DirPath, NGSReportName, NGSReportName+".html"))
}

// FindSeq2CFile resolves the project-level Seq2C calls table.
func (p *Project) FindSeq2CFile() string {
	return firstExisting(
		filepath.Join(p.DateDir, CNVDirName, Seq2CFileName),
		filepath.Join(p.DateDir, CNVDirName, "Seq2C.tsv"))
}

// FindSeq2CFiltFile resolves the filtered project-level Seq2C table.
func (p *Project) FindSeq2CFiltFile() string {
	return existingFile(filepath.Join(p.DateDir, CNVDirName, addSuffix(Seq2CFileName, "filt")))
}

// FindSeq2CCoverage resolves the project-level Seq2C coverage table.
func (p *Project) FindSeq2CCoverage() string {
	return existingFile(filepath.Join(p.DateDir, CNVDirName, "seq2c-cov.tsv"))
}

// FindCNVKitFile resolves the project-level CNVkit table.
func (p *Project) FindCNVKitFile() string {
	return existingFile(filepath.Join(p.DateDir, CNVDirName, CNVKitFileName))
}

// FindCNVKitFiltFile resolves the filtered project-level CNVkit table.
func (p *Project) FindCNVKitFiltFile() string {
	return existingFile(filepath.Join(p.DateDir, CNVDirName, addSuffix(CNVKitFileName, "filt")))
}

// CNVCaller selects the CNV caller whose output to use: CNVkit when the
// Seq2C output is missing, or for WGS runs that have CNVkit output.
func (p *Project) CNVCaller() string {
	seq2c := p.FindSeq2CFiltFile()
	cnvkit := p.FindCNVKitFiltFile()
	if seq2c == "" || (cnvkit != "" && p.IsWGS) {
		return "CNVkit"
	}
	return "Seq2C"
}

// FindCNVFiltFile resolves the filtered CNV table of the selected
// caller.
func (p *Project) FindCNVFiltFile() string {
	if p.CNVCaller() == "Seq2C" {
		return p.FindSeq2CFiltFile()
	}
	return p.FindCNVKitFiltFile()
}

// FindMultiQCReport resolves the MultiQC report HTML.
func (p *Project) FindMultiQCReport() string {
	return firstExisting(
		filepath.Join(p.DateDir, MultiQCReportName),
		filepath.Join(p.DateDir, "multiqc_postproc", "multiqc_report.html"))
}

// FindInLog resolves a file in the log directory, falling back to the
// datestamp directory.
func (p *Project) FindInLog(name string) string {
	return firstExisting(
		filepath.Join(p.LogDir, name),
		filepath.Join(p.DateDir, name))
}
