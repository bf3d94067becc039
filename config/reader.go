package config

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/pointwalk/pointwalk/agents"
	"github.com/pointwalk/pointwalk/logging"
)

// Versioning variables which are replaced by LD flags.
var (
	Version     = ""
	GitRevision = ""
)

// Read reads a config from the given file. Environment variables referenced as ${VAR} are
// substituted before decoding.
func Read(
	ctx context.Context,
	filePath string,
	logger logging.Logger,
) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	return FromReader(ctx, filePath, bytes.NewReader(buf), logger)
}

// isYAML reports whether a config path should be decoded as YAML.
func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// FromReader reads a config from the given reader and specifies
// where, if applicable, the file the reader originated from.
func FromReader(
	ctx context.Context,
	originalPath string,
	r io.Reader,
	logger logging.Logger,
) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// game settings absent from the file keep their defaults, explicit zeros stay zero
	cfg := Config{ConfigFilePath: originalPath, Game: agents.DefaultConfig()}
	if isYAML(originalPath) {
		// YAML is normalized to JSON so both formats share the json field names.
		var raw interface{}
		if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
			return nil, errors.Wrapf(err, "failed to decode Config from yaml")
		}
		if raw == nil {
			raw = map[string]interface{}{}
		}
		buf, err := json.Marshal(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to decode Config from yaml")
		}
		r = bytes.NewReader(buf)
	}
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, errors.Wrapf(err, "failed to decode Config from json")
	}

	if cfg.DataDir == "" && originalPath != "" {
		cfg.DataDir = filepath.Dir(originalPath)
	}
	cfg.ensureDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "failed to validate Config")
	}

	logger.Debugw("config loaded",
		"path", originalPath,
		"datasets", len(cfg.Datasets),
		"initial_dataset", cfg.InitialDataset,
		"perspective", cfg.Perspective)
	return &cfg, nil
}

// Default returns the config used when no config file is given: a single dataset read from path.
func Default(path string) (*Config, error) {
	cfg := Config{}
	if path != "" {
		cfg.Datasets = []DatasetConfig{{Name: filepath.Base(path), Path: path}}
	}
	cfg.ensureDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
