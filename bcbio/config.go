package bcbio

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config mirrors the bcbio run configuration YAML: the file under
// `config/` that carries the `details` section.
type Config struct {
	FCDate  string       `yaml:"fc_date"`
	FCName  string       `yaml:"fc_name"`
	Upload  UploadConfig `yaml:"upload"`
	Details []SampleInfo `yaml:"details"`
}

// UploadConfig is the `upload` section; `dir` points at the final
// directory, possibly relative to the config directory.
type UploadConfig struct {
	Dir string `yaml:"dir"`
}

// SampleInfo is one entry of the `details` section.
type SampleInfo struct {
	Description         Scalar    `yaml:"description"`
	DescriptionOriginal Scalar    `yaml:"description_original"`
	Analysis            string    `yaml:"analysis"`
	GenomeBuild         string    `yaml:"genome_build"`
	Files               Strings   `yaml:"files"`
	Metadata            Metadata  `yaml:"metadata"`
	Algorithm           Algorithm `yaml:"algorithm"`
}

// Metadata is the per-sample `metadata` section.
type Metadata struct {
	Batch     Strings `yaml:"batch"`
	Phenotype string  `yaml:"phenotype"`
}

// Algorithm is the per-sample `algorithm` section. Only the settings the
// toolkit interprets are declared; the rest of the section is ignored.
type Algorithm struct {
	VariantRegions    string      `yaml:"variant_regions"`
	SVRegions         string      `yaml:"sv_regions"`
	Coverage          string      `yaml:"coverage"`
	MinAlleleFraction *float64    `yaml:"min_allele_fraction"`
	VariantCaller     *CallerConf `yaml:"variantcaller"`
	Ensemble          yaml.Node   `yaml:"ensemble"`
	MarkDuplicates    bool        `yaml:"mark_duplicates"`
}

// HasEnsemble reports whether the `ensemble` key is present at all; its
// value does not matter for caller selection.
func (a *Algorithm) HasEnsemble() bool {
	return !a.Ensemble.IsZero()
}

// Scalar is a YAML scalar decoded as its literal text. Sample
// descriptions and batch IDs are occasionally bare numbers in bcbio
// configs, which a plain string field would reject.
type Scalar string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Scalar) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Errorf("line %d: expected a scalar value", node.Line)
	}
	*s = Scalar(node.Value)
	return nil
}

// Strings accepts a YAML scalar or a sequence of scalars, normalizing
// both to a list. bcbio writes batch names and input files either way.
type Strings []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Strings) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Tag == "!!null" || node.Value == "" {
			*s = nil
			return nil
		}
		*s = Strings{node.Value}
	case yaml.SequenceNode:
		out := make(Strings, 0, len(node.Content))
		for _, c := range node.Content {
			if c.Kind != yaml.ScalarNode {
				return errors.Errorf("line %d: expected a sequence of scalars", c.Line)
			}
			if c.Value != "" && c.Tag != "!!null" {
				out = append(out, c.Value)
			}
		}
		*s = out
	default:
		return errors.Errorf("line %d: expected a scalar or a sequence", node.Line)
	}
	return nil
}

// CallerConf is the algorithm.variantcaller setting: a single caller
// name, a list of names, or a germline/somatic mapping.
type CallerConf struct {
	Somatic  Strings
	Germline Strings
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (c *CallerConf) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode {
		var m struct {
			Somatic  Strings `yaml:"somatic"`
			Germline Strings `yaml:"germline"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		c.Somatic, c.Germline = m.Somatic, m.Germline
		return nil
	}
	var list Strings
	if err := node.Decode(&list); err != nil {
		return err
	}
	c.Somatic = list
	return nil
}

// ForPhenotype returns the caller list effective for a sample phenotype:
// the germline list for normal samples when one is configured, the
// somatic list otherwise.
func (c *CallerConf) ForPhenotype(phenotype string) []string {
	if c == nil {
		return nil
	}
	if phenotype == PhenotypeNormal && c.Germline != nil {
		return c.Germline
	}
	return c.Somatic
}

// LoadConfig locates and parses the bcbio run YAML in configDir.
// `*-template.yaml` files and YAMLs without a `details` section are
// skipped; exactly one candidate must remain.
func LoadConfig(configDir string) (*Config, string, error) {
	entries, err := os.ReadDir(configDir)
	if err != nil {
		return nil, "", errors.Wrapf(err, "read config dir %s", configDir)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)

	var allYAMLs, bcbioYAMLs []string
	var configs []*Config
	for _, name := range names {
		if !strings.HasSuffix(name, ".yaml") {
			continue
		}
		path := filepath.Join(configDir, name)
		allYAMLs = append(allYAMLs, path)
		if strings.HasSuffix(name, "-template.yaml") {
			continue
		}
		cfg := new(Config)
		if err := readYAML(path, cfg); err != nil {
			log.Debug.Printf("skipping unparseable YAML %s: %v", path, err)
			continue
		}
		if len(cfg.Details) > 0 {
			bcbioYAMLs = append(bcbioYAMLs, path)
			configs = append(configs, cfg)
		}
	}
	switch len(bcbioYAMLs) {
	case 0:
		return nil, "", errors.Wrapf(ErrNoConfigYAML,
			"config dir %s holds %d YAML file(s), none with a details section", configDir, len(allYAMLs))
	case 1:
		log.Debug.Printf("using bcbio YAML config %s", bcbioYAMLs[0])
		return configs[0], bcbioYAMLs[0], nil
	default:
		return nil, "", errors.Wrapf(ErrMultipleConfigYAML,
			"config dir %s: %s", configDir, strings.Join(bcbioYAMLs, ", "))
	}
}

// readYAML parses the YAML file at path into v. An empty file decodes to
// the zero value.
func readYAML(path string, v interface{}) error {
	ctx := vcontext.Background()
	in, err := file.Open(ctx, path)
	if err != nil {
		return errors.Wrapf(err, "open %s", path)
	}
	defer in.Close(ctx) // nolint: errcheck
	if err := yaml.NewDecoder(in.Reader(ctx)).Decode(v); err != nil && err != io.EOF {
		return errors.Wrapf(err, "parse %s", path)
	}
	return nil
}
