// Package config loads the YAML configuration of the dfencode command.
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dfencode/dfencode/dataset"
	"github.com/dfencode/dfencode/pkg/errors"
	"github.com/dfencode/dfencode/pkg/log"
)

// Scaler names accepted by pipeline.scaler.
const (
	ScalerNone     = "none"
	ScalerStandard = "standard"
	ScalerMinMax   = "minmax"
)

// Config mirrors the YAML document:
//
//	encoder:
//	  return_as_matrix: false
//	input:
//	  column_types: {zip: category}
//	  missing_tokens: ["", "NA"]
//	pipeline:
//	  scaler: standard
//	log:
//	  level: info
//	report:
//	  plot_column: color
//	  plot_path: color.png
type Config struct {
	Encoder struct {
		ReturnAsMatrix bool `yaml:"return_as_matrix"`
	} `yaml:"encoder"`

	Input struct {
		ColumnTypes   map[string]string `yaml:"column_types"`
		MissingTokens []string          `yaml:"missing_tokens"`
	} `yaml:"input"`

	Pipeline struct {
		Scaler string `yaml:"scaler"`
	} `yaml:"pipeline"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`

	Report struct {
		PlotColumn string `yaml:"plot_column"`
		PlotPath   string `yaml:"plot_path"`
	} `yaml:"report"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.Input.MissingTokens = append([]string(nil), dataset.DefaultMissingTokens...)
	cfg.Pipeline.Scaler = ScalerNone
	cfg.Log.Level = "info"
	cfg.Report.PlotPath = "categories.png"
	return cfg
}

// Load reads path over the defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the scaler name, log level and column types.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Pipeline.Scaler) {
	case "", ScalerNone, ScalerStandard, ScalerMinMax:
	default:
		return errors.NewValidationError("pipeline.scaler", "must be one of none, standard, minmax", c.Pipeline.Scaler)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := c.ColumnTypes(); err != nil {
		return err
	}
	return nil
}

// ColumnTypes parses input.column_types.
func (c *Config) ColumnTypes() (map[string]dataset.ColumnType, error) {
	out := make(map[string]dataset.ColumnType, len(c.Input.ColumnTypes))
	for name, raw := range c.Input.ColumnTypes {
		typ, err := dataset.ParseColumnType(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "input.column_types.%s", name)
		}
		out[name] = typ
	}
	return out, nil
}

// ReadOptions returns the dataset.ReadCSV options described by the input section.
func (c *Config) ReadOptions() ([]dataset.ReadOption, error) {
	types, err := c.ColumnTypes()
	if err != nil {
		return nil, err
	}
	opts := []dataset.ReadOption{dataset.WithColumnTypes(types)}
	if c.Input.MissingTokens != nil {
		opts = append(opts, dataset.WithMissingTokens(c.Input.MissingTokens...))
	}
	return opts, nil
}
