package bcbio

import "github.com/pkg/errors"

// Sentinel errors for the directory/config detection stages. Callers that
// want to branch on a specific failure should test with errors.Cause (or
// errors.Is on newer Go).
var (
	// ErrNoConfigDir means the input directory is not a bcbio config,
	// final or datestamp directory, and no `config` directory could be
	// found next to it.
	ErrNoConfigDir = errors.New("no bcbio config directory found")

	// ErrNoDateStampDir means no `{date}_{fc_name}` directory exists
	// under `final`.
	ErrNoDateStampDir = errors.New("no datestamp directory found")

	// ErrAmbiguousDateStamp means several datestamp directories share the
	// newest date, so none can be selected automatically.
	ErrAmbiguousDateStamp = errors.New("multiple datestamp directories with the same newest date")

	// ErrNoConfigYAML means no YAML file with a `details` section exists
	// in the config directory.
	ErrNoConfigYAML = errors.New("no bcbio YAML with a details section found")

	// ErrMultipleConfigYAML means more than one YAML file with a
	// `details` section exists in the config directory.
	ErrMultipleConfigYAML = errors.New("more than one bcbio YAML found")

	// ErrNoSamples means no sample survived parsing and
	// include/exclude filtering.
	ErrNoSamples = errors.New("no samples or batches parsed from the bcbio config")
)
