// SPDX-License-Identifier: MIT

// Package config loads the YAML run file of the irtcalc command.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/katalvlaran/irtcalc/dataset"
	"github.com/katalvlaran/irtcalc/dispatch"
	"github.com/katalvlaran/irtcalc/irt"
	"github.com/katalvlaran/irtcalc/randx"
	"gopkg.in/yaml.v3"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

// RunConfig is the content of a run file.
type RunConfig struct {
	// Questionnaire is a path to a questionnaire YAML file.
	Questionnaire string      `yaml:"questionnaire"`
	Groups        []GroupFile `yaml:"groups"`
	Model         ModelConfig `yaml:"model"`
	Learn         LearnConfig `yaml:"learn"`
	Concurrency   Concurrency `yaml:"concurrency"`
	Checkpoint    Checkpoint  `yaml:"checkpoint"`
	// Output is the path of the YAML result summary; empty means stdout.
	Output      string      `yaml:"output"`
	Postprocess Postprocess `yaml:"postprocess"`

	dir string // directory of the run file
}

// GroupFile names one CSV file of responses.
type GroupFile struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

// ModelConfig mirrors the irt initialization options.
type ModelConfig struct {
	// Traits is the number of latent traits; 0 means one per item.
	Traits         int     `yaml:"traits"`
	ScaleSamples   int     `yaml:"scale_samples"`
	SubjectSamples int     `yaml:"subject_samples"`
	TraitScale     float64 `yaml:"trait_scale"`
	Seed           uint64  `yaml:"seed"`
}

// LearnConfig mirrors irt.LearnConfig.
type LearnConfig struct {
	MinIter     int           `yaml:"min_iter"`
	MinStep     float64       `yaml:"min_step"`
	MaxIter     int           `yaml:"max_iter"`
	MaxDuration time.Duration `yaml:"max_duration"`
}

// Concurrency selects the execution mode of item and group updates.
type Concurrency struct {
	// Mode is "parallel" or "sequential".
	Mode string `yaml:"mode"`
	// PoolSize caps the workers; 0 means one per CPU.
	PoolSize int `yaml:"pool_size"`
}

// Checkpoint enables periodic snapshots.
type Checkpoint struct {
	// Dir is the store directory; empty disables checkpoints.
	Dir string `yaml:"dir"`
	// Every is the iteration interval between snapshots.
	Every int `yaml:"every"`
	// Resume continues the run with this id from its latest snapshot.
	Resume string `yaml:"resume"`
}

// Postprocess selects what happens after learning.
type Postprocess struct {
	Prune       bool `yaml:"prune"`
	Standardize bool `yaml:"standardize"`
}

// Default returns the configuration used for omitted fields.
func Default() RunConfig {
	lc := irt.DefaultLearnConfig()
	return RunConfig{
		Model: ModelConfig{
			ScaleSamples:   irt.DefaultScaleSamples,
			SubjectSamples: irt.DefaultSubjectSamples,
			TraitScale:     irt.DefaultTraitScale,
			Seed:           randx.DefaultSeed,
		},
		Learn: LearnConfig{
			MinIter:     lc.MinIter,
			MinStep:     lc.MinStep,
			MaxIter:     lc.MaxIter,
			MaxDuration: lc.MaxDuration,
		},
		Concurrency: Concurrency{Mode: dispatch.ParallelPool.String()},
		Checkpoint:  Checkpoint{Every: 10},
		Postprocess: Postprocess{Prune: true, Standardize: true},
	}
}

// Load reads and validates the run file at path. Relative file names in
// it are resolved against the directory of path.
func Load(path string) (RunConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return RunConfig{}, err
	}
	defer f.Close()
	c, err := Decode(f)
	if err != nil {
		return RunConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	c.dir = filepath.Dir(path)
	return c, nil
}

// Decode reads a run file on top of Default and validates it.
func Decode(r io.Reader) (RunConfig, error) {
	c := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil && !errors.Is(err, io.EOF) {
		return RunConfig{}, fmt.Errorf("config: decode: %w", err)
	}
	if err := c.Validate(); err != nil {
		return RunConfig{}, err
	}
	return c, nil
}

// Validate checks value ranges.
func (c RunConfig) Validate() error {
	bad := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
	}
	switch {
	case c.Questionnaire == "":
		return bad("questionnaire is required")
	case len(c.Groups) == 0:
		return bad("at least one group is required")
	case c.Model.Traits < 0:
		return bad("model.traits %d < 0", c.Model.Traits)
	case c.Model.ScaleSamples < 1:
		return bad("model.scale_samples %d < 1", c.Model.ScaleSamples)
	case c.Model.SubjectSamples < 2:
		return bad("model.subject_samples %d < 2", c.Model.SubjectSamples)
	case !(c.Model.TraitScale > 0):
		return bad("model.trait_scale %v <= 0", c.Model.TraitScale)
	case c.Learn.MinIter < 0 || c.Learn.MaxIter < 1:
		return bad("learn iterations min %d max %d", c.Learn.MinIter, c.Learn.MaxIter)
	case c.Learn.MaxDuration <= 0:
		return bad("learn.max_duration %v <= 0", c.Learn.MaxDuration)
	case c.Concurrency.PoolSize < 0:
		return bad("concurrency.pool_size %d < 0", c.Concurrency.PoolSize)
	case c.Checkpoint.Every < 1:
		return bad("checkpoint.every %d < 1", c.Checkpoint.Every)
	}
	if _, err := c.ConcurrencyConfig(); err != nil {
		return err
	}
	seen := make(map[string]bool, len(c.Groups))
	for i, g := range c.Groups {
		if g.Name == "" || g.File == "" {
			return bad("group %d needs name and file", i)
		}
		if seen[g.Name] {
			return bad("duplicate group %q", g.Name)
		}
		seen[g.Name] = true
	}
	return nil
}

// ConcurrencyConfig converts the concurrency section.
func (c RunConfig) ConcurrencyConfig() (dispatch.ConcurrencyConfig, error) {
	switch c.Concurrency.Mode {
	case dispatch.ParallelPool.String(), "":
		return dispatch.ConcurrencyConfig{Mode: dispatch.ParallelPool, PoolSize: c.Concurrency.PoolSize}, nil
	case dispatch.Sequential.String():
		return dispatch.ConcurrencyConfig{Mode: dispatch.Sequential}, nil
	}
	return dispatch.ConcurrencyConfig{}, fmt.Errorf("%w: concurrency.mode %q", ErrInvalid, c.Concurrency.Mode)
}

// Options converts the model section to irt options.
func (c RunConfig) Options() []irt.Option {
	cc, _ := c.ConcurrencyConfig()
	opts := []irt.Option{
		irt.WithScaleSamples(c.Model.ScaleSamples),
		irt.WithSubjectSamples(c.Model.SubjectSamples),
		irt.WithTraitScale(c.Model.TraitScale),
		irt.WithSeed(c.Model.Seed),
		irt.WithConcurrency(cc),
	}
	if c.Model.Traits > 0 {
		opts = append(opts, irt.WithTraits(c.Model.Traits))
	}
	return opts
}

// LearnConfig converts the learn section.
func (c RunConfig) LearnConfig() irt.LearnConfig {
	return irt.LearnConfig{
		MinIter:     c.Learn.MinIter,
		MinStep:     c.Learn.MinStep,
		MaxIter:     c.Learn.MaxIter,
		MaxDuration: c.Learn.MaxDuration,
	}
}

// Path resolves a file name of the run file.
func (c RunConfig) Path(name string) string {
	if filepath.IsAbs(name) || c.dir == "" {
		return name
	}
	return filepath.Join(c.dir, name)
}

// LoadDataset reads the questionnaire and every group file.
func (c RunConfig) LoadDataset() (*dataset.Dataset, error) {
	qf, err := os.Open(c.Path(c.Questionnaire))
	if err != nil {
		return nil, err
	}
	defer qf.Close()
	q, err := dataset.ReadQuestionnaire(qf)
	if err != nil {
		return nil, err
	}
	d, err := dataset.New(q)
	if err != nil {
		return nil, err
	}
	for _, gf := range c.Groups {
		g, err := readGroup(c.Path(gf.File), q, gf.Name)
		if err != nil {
			return nil, err
		}
		if err = d.AddGroup(g); err != nil {
			return nil, err
		}
	}
	return d, nil
}

func readGroup(path string, q dataset.Questionnaire, name string) (dataset.Group, error) {
	f, err := os.Open(path)
	if err != nil {
		return dataset.Group{}, err
	}
	defer f.Close()
	return dataset.ReadCSV(f, q, name)
}
