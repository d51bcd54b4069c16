// Package config loads fragscope defaults from a YAML file. Command-line flags
// override whatever the file sets.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iafilius/FragScope/src/curvefit"
	"github.com/iafilius/FragScope/src/panels"
	"github.com/iafilius/FragScope/src/progression"
	"github.com/iafilius/FragScope/src/results"
	"github.com/iafilius/FragScope/src/smooth"
)

// DefaultFile is read from the working directory when no --config is given.
const DefaultFile = "fragscope.yaml"

// Progression holds defaults of the progression command.
type Progression struct {
	Step    int    `yaml:"step"`
	Degree  int    `yaml:"degree"`
	Output  string `yaml:"output"`
	DelayMs int    `yaml:"delay_ms"`
}

// IOPS holds defaults of the iops command.
type IOPS struct {
	Columns []string `yaml:"columns"`
}

// Config mirrors the flags of the analysis commands.
type Config struct {
	Iterations   int64       `yaml:"iterations"`
	Degree       int         `yaml:"degree"`
	SmoothWindow int         `yaml:"smooth_window"`
	MarkerScale  float64     `yaml:"marker_scale"`
	ColorBy      string      `yaml:"color_by"`
	Output       string      `yaml:"output"`
	WidthInches  float64     `yaml:"width_inches"`
	RowInches    float64     `yaml:"row_height_inches"`
	LogLevel     string      `yaml:"log_level"`
	Progression  Progression `yaml:"progression"`
	IOPS         IOPS        `yaml:"iops"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		Iterations:   results.DefaultIterationBound,
		Degree:       curvefit.DefaultDegree,
		SmoothWindow: smooth.DefaultWindow,
		MarkerScale:  panels.DefaultMarkerScale,
		ColorBy:      "identity",
		Output:       "figure.png",
		WidthInches:  10,
		RowInches:    4,
		LogLevel:     "info",
		Progression: Progression{
			Step:    progression.DefaultStep,
			Degree:  1,
			Output:  "progression.gif",
			DelayMs: progression.DefaultDelay * 10,
		},
		IOPS: IOPS{Columns: []string{"r/s", "w/s", "%util"}},
	}
}

// Load reads path over the defaults. An empty path tries DefaultFile and
// silently falls back to the defaults when it does not exist.
func Load(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = DefaultFile
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	cfg, err := Decode(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses YAML over the defaults. Unknown keys are rejected.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	switch {
	case c.Degree < 0:
		return fmt.Errorf("degree must be >= 0, got %d", c.Degree)
	case c.SmoothWindow < 1:
		return fmt.Errorf("smooth_window must be >= 1, got %d", c.SmoothWindow)
	case c.MarkerScale <= 0:
		return fmt.Errorf("marker_scale must be > 0, got %g", c.MarkerScale)
	case c.WidthInches <= 0 || c.RowInches <= 0:
		return fmt.Errorf("figure size must be positive, got %gx%g in", c.WidthInches, c.RowInches)
	case c.Progression.Step < 1:
		return fmt.Errorf("progression.step must be >= 1, got %d", c.Progression.Step)
	case c.Progression.Degree < 0:
		return fmt.Errorf("progression.degree must be >= 0, got %d", c.Progression.Degree)
	}
	if _, err := panels.ParseColorBy(c.ColorBy); err != nil {
		return err
	}
	return nil
}
