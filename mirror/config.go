// Package mirror pulls a cloud storage bucket of scan recordings down into
// the local data directory, so the rest of the pipeline can run offline.
package mirror

import (
	"encoding/json"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	rdkutils "go.viam.com/utils"
)

// Defaults applied by Ensure when the config leaves them unset.
const (
	DefaultWorkers      = 8
	DefaultListPageSize = 1000
)

// Config describes the bucket to mirror and where to put it. Credentials
// normally arrive via environment substitution rather than being written
// into the file.
type Config struct {
	// BaseURL is the storage service root, e.g. https://project.supabase.co.
	BaseURL string `json:"base_url"`
	// Bucket is the storage bucket holding scan sessions.
	Bucket string `json:"bucket"`
	// AnonKey authenticates bucket reads.
	AnonKey string `json:"anon_key"`
	// DataDir is the local mirror root.
	DataDir string `json:"data_dir"`
	// Workers bounds concurrent downloads.
	Workers int `json:"workers,omitempty"`
	// Retries is how many times a failed download is retried before the
	// file is given up on.
	Retries int `json:"retries,omitempty"`
	// ListPageSize bounds one listing request.
	ListPageSize int `json:"list_page_size,omitempty"`
}

// ReadConfig reads a config from the given file, substituting ${VAR}
// environment references first so keys stay out of checked-in files.
func ReadConfig(path string) (*Config, error) {
	buf, err := envsubst.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(buf, &cfg); err != nil {
		return nil, errors.Wrapf(err, "cannot parse mirror config %s", path)
	}
	cfg.Ensure()
	if err := cfg.Validate("mirror"); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Ensure fills in defaults for unset optional fields.
func (c *Config) Ensure() {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.ListPageSize <= 0 {
		c.ListPageSize = DefaultListPageSize
	}
	if c.Retries < 0 {
		c.Retries = 0
	}
}

// Validate ensures all parts of the config are valid.
func (c *Config) Validate(path string) error {
	if c.BaseURL == "" {
		return rdkutils.NewConfigValidationFieldRequiredError(path, "base_url")
	}
	if c.Bucket == "" {
		return rdkutils.NewConfigValidationFieldRequiredError(path, "bucket")
	}
	if c.AnonKey == "" {
		return rdkutils.NewConfigValidationFieldRequiredError(path, "anon_key")
	}
	if c.DataDir == "" {
		return rdkutils.NewConfigValidationFieldRequiredError(path, "data_dir")
	}
	return nil
}
