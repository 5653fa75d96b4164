// bcbio-path resolves artifact paths inside a bcbio output directory
// and prints them, one per line, so shell pipelines can consume them:
//
//	bcbio-path vcf --dir /path/to/run --sample syn3-tumor
//	bcbio-path bam --dir /path/to/run --sample syn3-normal
//	bcbio-path cnv --dir /path/to/run
//	bcbio-path coverage --dir /path/to/run --sample syn3-tumor
//
// A lookup that resolves nothing exits non-zero.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/umccr/bcbio-go/bcbio"
)

var (
	projectDir string
	sampleName string
	batchName  string
	caller     string

	rootCmd = &cobra.Command{
		Use:           "bcbio-path",
		Short:         "Resolve artifact paths in a bcbio output directory",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	vcfCmd = &cobra.Command{
		Use:   "vcf",
		Short: "Resolve the raw variant calls for a sample or batch",
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject()
			if err != nil {
				return err
			}
			if batchName != "" {
				return printPath(proj.FindVCF(batchName, caller), "VCF for batch "+batchName)
			}
			s, err := requireSample(proj)
			if err != nil {
				return err
			}
			return printPath(s.FindRawVCF(caller), "VCF for sample "+s.Name)
		},
	}

	bamCmd = &cobra.Command{
		Use:   "bam",
		Short: "Resolve the alignment file for a sample",
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject()
			if err != nil {
				return err
			}
			s, err := requireSample(proj)
			if err != nil {
				return err
			}
			return printPath(s.BamPath, "BAM for sample "+s.Name)
		},
	}

	cnvCmd = &cobra.Command{
		Use:   "cnv",
		Short: "Resolve CNV call files (per-sample with --sample, else project-level)",
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject()
			if err != nil {
				return err
			}
			if sampleName == "" {
				fmt.Printf("caller: %s\n", proj.CNVCaller())
				return printPath(proj.FindCNVFiltFile(), "project-level CNV calls")
			}
			s, err := requireSample(proj)
			if err != nil {
				return err
			}
			path := s.FindSeq2CCalls()
			if path == "" {
				path = s.FindCNVKitFile()
			}
			return printPath(path, "CNV calls for sample "+s.Name)
		},
	}

	coverageCmd = &cobra.Command{
		Use:   "coverage",
		Short: "Resolve the coverage report for a sample",
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject()
			if err != nil {
				return err
			}
			s, err := requireSample(proj)
			if err != nil {
				return err
			}
			return printPath(s.FindCoverageStats(), "coverage stats for sample "+s.Name)
		},
	}
)

func loadProject() (*bcbio.Project, error) {
	return bcbio.Load(projectDir, bcbio.Options{Silent: true})
}

func requireSample(proj *bcbio.Project) (*bcbio.Sample, error) {
	if sampleName == "" {
		return nil, fmt.Errorf("--sample is required")
	}
	s := proj.GetSample(sampleName)
	if s == nil {
		return nil, fmt.Errorf("no sample named %s in project %s", sampleName, proj.Name)
	}
	return s, nil
}

func printPath(path, what string) error {
	if path == "" {
		return fmt.Errorf("no %s found", what)
	}
	fmt.Println(path)
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "d", ".", "bcbio project directory (root, config, final or datestamp dir)")
	rootCmd.PersistentFlags().StringVarP(&sampleName, "sample", "s", "", "sample name")
	rootCmd.PersistentFlags().StringVarP(&batchName, "batch", "b", "", "batch name")
	rootCmd.PersistentFlags().StringVarP(&caller, "caller", "c", "", "variant caller (defaults to the project's priority pick)")
	rootCmd.AddCommand(vcfCmd, bamCmd, cnvCmd, coverageCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
