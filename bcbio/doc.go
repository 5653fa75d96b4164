// Package bcbio locates and interprets the on-disk output of a
// bcbio-nextgen run: it discovers the config/final/datestamp directory
// layout, parses the run YAML, enumerates samples and tumor/normal
// batches, and resolves artifact paths (VCFs, BAMs, coverage reports,
// CNV call files) according to bcbio's naming conventions.
//
// Path resolution is convention knowledge, not computation: each
// artifact type has an ordered list of candidate locations, and the
// first existing non-empty file wins.
package bcbio
