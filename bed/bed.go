// Package bed holds the small subset of BED interval handling the
// toolkit needs: parsing (plain or gzipped), per-chromosome interval
// union, covered-span accounting and gene-name extraction.
package bed

import (
	"bufio"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// Interval is one BED record with 0-based half-open coordinates. Name is
// column 4 when present (typically a gene name in capture BEDs).
type Interval struct {
	Chrom string
	Start int64
	End   int64
	Name  string
}

// Read parses BED records from r. Header lines (track, browser, #) and
// blank lines are skipped.
func Read(r io.Reader) ([]Interval, error) {
	var out []Interval
	scanner := bufio.NewScanner(r)
	nLine := 0
	for scanner.Scan() {
		nLine++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || line[0] == '#' ||
			strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		cols := strings.Split(line, "\t")
		if len(cols) < 3 {
			return nil, errors.Errorf("line %d: expected at least 3 tab-separated columns, got %d", nLine, len(cols))
		}
		start, err := strconv.ParseInt(cols[1], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: bad start", nLine)
		}
		end, err := strconv.ParseInt(cols[2], 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d: bad end", nLine)
		}
		if end < start {
			return nil, errors.Errorf("line %d: end %d before start %d", nLine, end, start)
		}
		iv := Interval{Chrom: cols[0], Start: start, End: end}
		if len(cols) > 3 {
			iv.Name = cols[3]
		}
		out = append(out, iv)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "read BED data")
	}
	return out, nil
}

// ReadPath parses the BED file at path, transparently decompressing
// gzipped input.
func ReadPath(path string) (intervals []Interval, err error) {
	ctx := vcontext.Background()
	var in file.File
	if in, err = file.Open(ctx, path); err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
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
	return Read(reader)
}

// Merge returns the disjoint union of the intervals, sorted by
// chromosome (order of first appearance) then start position. Touching
// intervals are coalesced.
func Merge(intervals []Interval) []Interval {
	byChrom := make(map[string][]Interval)
	var chromOrder []string
	for _, iv := range intervals {
		if _, seen := byChrom[iv.Chrom]; !seen {
			chromOrder = append(chromOrder, iv.Chrom)
		}
		byChrom[iv.Chrom] = append(byChrom[iv.Chrom], iv)
	}
	var out []Interval
	for _, chrom := range chromOrder {
		ivs := byChrom[chrom]
		sort.Slice(ivs, func(i, j int) bool {
			if ivs[i].Start != ivs[j].Start {
				return ivs[i].Start < ivs[j].Start
			}
			return ivs[i].End < ivs[j].End
		})
		cur := ivs[0]
		for _, iv := range ivs[1:] {
			if iv.Start <= cur.End {
				if iv.End > cur.End {
					cur.End = iv.End
				}
				continue
			}
			out = append(out, cur)
			cur = iv
		}
		out = append(out, cur)
	}
	return out
}

// TotalSpan returns the number of bases covered by the union of the
// intervals.
func TotalSpan(intervals []Interval) int64 {
	var span int64
	for _, iv := range Merge(intervals) {
		span += iv.End - iv.Start
	}
	return span
}

// TotalSpanFromPath returns the covered span of the BED file at path.
func TotalSpanFromPath(path string) (int64, error) {
	intervals, err := ReadPath(path)
	if err != nil {
		return 0, err
	}
	return TotalSpan(intervals), nil
}

// GeneNames extracts unique column-4 names in order of first
// appearance. Placeholder names ("." and empty) are skipped.
func GeneNames(intervals []Interval) []string {
	seen := make(map[string]bool)
	var out []string
	for _, iv := range intervals {
		name := iv.Name
		if name == "" || name == "." || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

// GeneNamesFromPath extracts gene names from the BED file at path.
func GeneNamesFromPath(path string) ([]string, error) {
	intervals, err := ReadPath(path)
	if err != nil {
		return nil, err
	}
	return GeneNames(intervals), nil
}
