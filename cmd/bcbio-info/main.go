// bcbio-info loads a bcbio output directory and prints what the toolkit
// resolved: project name, genome build, samples, batches, selected
// variant callers and the artifact paths found on disk.
//
// Usage:
//
//	bcbio-info [flags] /path/to/bcbio/project
//
// The path may be the run root, its config directory, the final
// directory, or a datestamp directory inside final.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/umccr/bcbio-go/bamutil"
	"github.com/umccr/bcbio-go/bcbio"
)

var (
	name       = flag.String("name", "", "Override the project name derived from the directory layout")
	exclude    = flag.String("exclude", "", "Comma-separated sample or batch names to skip")
	include    = flag.String("include", "", "Comma-separated sample or batch names to restrict loading to")
	verifyBams = flag.Bool("verify-bams", false, "Check that each sample BAM opens and has a parseable header")
	silent     = flag.Bool("silent", false, "Suppress informational logging while loading")
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] /path/to/bcbio/project\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Flags:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	shutdown := grail.Init()
	defer shutdown()

	if flag.NArg() != 1 {
		log.Fatalf("exactly one positional argument expected (the bcbio project directory); got %d", flag.NArg())
	}
	proj, err := bcbio.Load(flag.Arg(0), bcbio.Options{
		Name:           *name,
		ExcludeSamples: splitNames(*exclude),
		IncludeSamples: splitNames(*include),
		Silent:         *silent,
	})
	if err != nil {
		log.Fatalf("%v", err)
	}

	fmt.Printf("Project:          %s\n", proj.Name)
	fmt.Printf("Config:           %s\n", proj.ConfigPath)
	fmt.Printf("Final dir:        %s\n", proj.FinalDir)
	fmt.Printf("Datestamp dir:    %s\n", proj.DateDir)
	fmt.Printf("Genome build:     %s\n", proj.GenomeBuild)
	fmt.Printf("Coverage:         %s (WGS: %v, RNA-seq: %v)\n",
		proj.CoverageInterval, proj.IsWGS, proj.IsRNASeq)
	fmt.Printf("Somatic caller:   %s\n", proj.SomaticCaller)
	fmt.Printf("Germline caller:  %s\n", proj.GermlineCaller)
	if mqc := proj.FindMultiQCReport(); mqc != "" {
		fmt.Printf("MultiQC report:   %s\n", mqc)
	}

	fmt.Printf("\nBatches (%d):\n", len(proj.BatchByName))
	for _, b := range proj.BatchByName {
		kind := "single"
		if b.IsPaired() {
			kind = "paired"
		} else if b.IsGermline() {
			kind = "germline"
		}
		fmt.Printf("  %-30s %s\n", b.Name, kind)
	}

	fmt.Printf("\nSamples (%d):\n", len(proj.Samples))
	nBadBams := 0
	for _, s := range proj.Samples {
		fmt.Printf("  %s (%s)\n", s.Name, s.Phenotype)
		if s.BamPath != "" {
			fmt.Printf("    bam: %s\n", s.BamPath)
			if *verifyBams {
				if err := bamutil.Verify(s.BamPath); err != nil {
					log.Error.Printf("BAM for %s failed verification: %v", s.Name, err)
					nBadBams++
				}
			}
		}
		if vcf := s.FindRawVCF(""); vcf != "" {
			fmt.Printf("    vcf: %s\n", vcf)
		}
		if cov := s.FindCoverageStats(); cov != "" {
			fmt.Printf("    coverage: %s\n", cov)
		}
	}
	if nBadBams > 0 {
		log.Fatalf("%d BAM file(s) failed verification", nBadBams)
	}
}

func splitNames(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}
