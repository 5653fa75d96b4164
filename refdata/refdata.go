// Package refdata resolves genome reference files (FASTA indexes,
// canonical transcript lists) for the fixed set of supported genome
// builds, rooted at a reference-data directory.
package refdata

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// SupportedGenomes lists the genome builds the toolkit ships reference
// data for.
var SupportedGenomes = []string{"hg19", "hg19-noalt", "hg38", "hg38-noalt", "hg19-chr20"}

// EnvVar names the environment variable pointing at the reference-data
// directory.
const EnvVar = "BCBIO_REFDATA"

// IsSupported reports whether genome is a supported build.
func IsSupported(genome string) bool {
	for _, g := range SupportedGenomes {
		if g == genome {
			return true
		}
	}
	return false
}

// CheckGenome returns an error naming the supported builds when genome
// is not one of them.
func CheckGenome(genome string) error {
	if !IsSupported(genome) {
		return errors.Errorf("genome %s is not supported; supported genomes: %s",
			genome, strings.Join(SupportedGenomes, ", "))
	}
	return nil
}

// Dir is a reference-data directory accessor.
type Dir struct {
	root string
}

// New returns an accessor rooted at root.
func New(root string) (*Dir, error) {
	if !isDir(root) {
		return nil, errors.Errorf("reference data directory %s does not exist", root)
	}
	return &Dir{root: root}, nil
}

// FromEnv returns an accessor rooted at $BCBIO_REFDATA.
func FromEnv() (*Dir, error) {
	root := os.Getenv(EnvVar)
	if root == "" {
		return nil, errors.Errorf("%s is not set", EnvVar)
	}
	return New(root)
}

// Root returns the reference-data directory.
func (d *Dir) Root() string {
	return d.root
}

// Fai returns the path of the FASTA index for the genome:
// `fai/<genome>.fa.fai`.
func (d *Dir) Fai(genome string) (string, error) {
	if err := CheckGenome(genome); err != nil {
		return "", err
	}
	return filepath.Join(d.root, "fai", genome+".fa.fai"), nil
}

// CanonicalTranscripts returns the path of the canonical transcripts
// list for the genome. Build variants share the base build's list:
// hg38-noalt resolves to canonical_transcripts_hg38.txt.
func (d *Dir) CanonicalTranscripts(genome string) (string, error) {
	if err := CheckGenome(genome); err != nil {
		return "", err
	}
	base := strings.SplitN(genome, "-", 2)[0]
	return filepath.Join(d.root, "canonical_transcripts_"+base+".txt"), nil
}

// CanonicalTranscriptIDs reads the canonical transcript list and
// returns the set of transcript IDs with version suffixes stripped
// (ENST00000619216.1 becomes ENST00000619216).
func (d *Dir) CanonicalTranscriptIDs(genome string) (map[string]bool, error) {
	path, err := d.CanonicalTranscripts(genome)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open canonical transcripts for %s", genome)
	}
	defer f.Close() // nolint: errcheck
	ids := make(map[string]bool)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		id := strings.TrimSpace(scanner.Text())
		if id == "" {
			continue
		}
		ids[strings.SplitN(id, ".", 2)[0]] = true
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return ids, nil
}

// ChromLength is one contig of a genome build.
type ChromLength struct {
	Chrom  string
	Length int64
}

// ChromLengths returns the contigs of the genome in reference order,
// read from the build's FASTA index.
func (d *Dir) ChromLengths(genome string) ([]ChromLength, error) {
	path, err := d.Fai(genome)
	if err != nil {
		return nil, err
	}
	return ChromLengthsFromFai(path)
}

// ChromLengthsFromPath reads contig lengths from either a FASTA index
// (.fai) or a FASTA file (.fa, .fa.gz).
func ChromLengthsFromPath(path string) ([]ChromLength, error) {
	switch {
	case strings.HasSuffix(path, ".fai"):
		log.Debug.Printf("reading genome index %s for chromosome lengths", path)
		return ChromLengthsFromFai(path)
	case strings.HasSuffix(path, ".fa"), strings.HasSuffix(path, ".fasta"),
		strings.HasSuffix(path, ".fa.gz"), strings.HasSuffix(path, ".fasta.gz"):
		log.Debug.Printf("reading genome sequence %s for chromosome lengths", path)
		return ChromLengthsFromFasta(path)
	}
	return nil, errors.Errorf("%s: expected a .fai index or a .fa sequence", path)
}

// ChromLengthsFromFai parses a samtools faidx-style index: one
// tab-separated line per contig, name and length in the first two
// columns.
func ChromLengthsFromFai(path string) ([]ChromLength, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open fai %s", path)
	}
	defer f.Close() // nolint: errcheck
	var out []ChromLength
	scanner := bufio.NewScanner(f)
	nLine := 0
	for scanner.Scan() {
		nLine++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		cols := strings.Fields(line)
		if len(cols) < 2 {
			return nil, errors.Errorf("%s:%d: expected at least 2 columns", path, nLine)
		}
		length, err := strconv.ParseInt(cols[1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d: bad length", path, nLine)
		}
		out = append(out, ChromLength{Chrom: cols[0], Length: length})
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	return out, nil
}

// ChromLengthsFromFasta streams a FASTA file and counts sequence
// lengths. Names are the characters after '>' up to the first space.
func ChromLengthsFromFasta(path string) (out []ChromLength, err error) {
	ctx := vcontext.Background()
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, errors.Wrapf(err, "open fasta %s", path)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(in.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		if reader, err = gzip.NewReader(reader); err != nil {
			return nil, errors.Wrapf(err, "gunzip %s", path)
		}
	}
	scanner := bufio.NewScanner(reader)
	var cur string
	var length int64
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line[0] == '>' {
			if cur != "" {
				out = append(out, ChromLength{Chrom: cur, Length: length})
			}
			cur = strings.SplitN(line[1:], " ", 2)[0]
			length = 0
			continue
		}
		if cur == "" {
			return nil, errors.Errorf("%s: sequence data before the first FASTA header", path)
		}
		length += int64(len(strings.TrimSpace(line)))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	if cur != "" {
		out = append(out, ChromLength{Chrom: cur, Length: length})
	}
	return out, nil
}

// ChromOrder maps contig names to their reference order.
func ChromOrder(lengths []ChromLength) map[string]int {
	order := make(map[string]int, len(lengths))
	for i, c := range lengths {
		order[c.Chrom] = i
	}
	return order
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
