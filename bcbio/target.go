package bcbio

import (
	"github.com/pkg/errors"

	"github.com/umccr/bcbio-go/bed"
)

// SmallTargetSize is the covered-span threshold below which a capture
// target counts as a small panel rather than an exome- or genome-scale
// target.
const SmallTargetSize = 10 * 1000 * 1000

// IsSmallTarget reports whether the project's coverage BED covers less
// than SmallTargetSize bases. WGS projects (no coverage BED) are never
// small targets.
func (p *Project) IsSmallTarget() (bool, error) {
	if p.CoverageBed == "" {
		return false, nil
	}
	span, err := bed.TotalSpanFromPath(p.CoverageBed)
	if err != nil {
		return false, errors.Wrapf(err, "coverage bed %s", p.CoverageBed)
	}
	return span < SmallTargetSize, nil
}

// TargetGenes returns the gene names from the coverage BED when the
// target is a small panel. Exome- and genome-scale projects return nil:
// their BEDs do not enumerate a meaningful gene set.
func (p *Project) TargetGenes() ([]string, error) {
	small, err := p.IsSmallTarget()
	if err != nil || !small {
		return nil, err
	}
	genes, err := bed.GeneNamesFromPath(p.CoverageBed)
	if err != nil {
		return nil, errors.Wrapf(err, "coverage bed %s", p.CoverageBed)
	}
	return genes, nil
}
