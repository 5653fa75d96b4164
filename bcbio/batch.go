package bcbio

import (
	"github.com/grailbio/base/log"
	"github.com/pkg/errors"
)

// Batch groups a tumor sample with its matched normal. Unbatched
// samples get a synthetic single-sample batch named `<sample>-batch`.
type Batch struct {
	Name   string
	Normal *Sample
	Tumor  *Sample
}

// IsPaired reports whether the batch has both a tumor and a normal.
func (b *Batch) IsPaired() bool {
	return b.Normal != nil && b.Tumor != nil
}

// IsGermline reports whether the batch's main sample is germline.
func (b *Batch) IsGermline() bool {
	return b.Tumor != nil && b.Tumor.Phenotype == PhenotypeGermline
}

func (b *Batch) String() string {
	return b.Name
}

// assignBatches wires samples into batches by name. A batch may carry at
// most one normal; a batch holding only a normal is re-typed so the
// normal is treated as the main (tumor) sample.
func assignBatches(samples []*Sample, silent bool) (map[string]*Batch, error) {
	batchByName := make(map[string]*Batch)
	for _, s := range samples {
		for _, bn := range s.BatchNames {
			b := batchByName[bn]
			if b == nil {
				b = &Batch{Name: bn}
				batchByName[bn] = b
			}
			s.Batch = b
			if s.Phenotype == PhenotypeNormal {
				if b.Normal != nil {
					return nil, errors.Errorf("multiple normal samples for batch %s", bn)
				}
				b.Normal = s
			} else {
				b.Tumor = s
			}
		}
	}

	for _, b := range batchByName {
		if b.Normal != nil && b.Tumor == nil {
			if !silent {
				log.Printf("batch %s contains only a normal, treating sample %s as tumor",
					b.Name, b.Normal.Name)
			}
			b.Normal.Phenotype = PhenotypeTumor
			b.Normal.Batch = b
			b.Tumor = b.Normal
			b.Normal = nil
		}
	}

	for _, b := range batchByName {
		if b.Tumor != nil {
			b.Tumor.NormalMatch = b.Normal
		}
	}
	return batchByName, nil
}
