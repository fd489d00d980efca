// SPDX-License-Identifier: MIT

package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/katalvlaran/irtcalc/config"
	"github.com/katalvlaran/irtcalc/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const runYAML = `
questionnaire: q.yaml
groups:
  - name: clinic
    file: clinic.csv
  - name: control
    file: data/control.csv
model:
  traits: 2
  subject_samples: 30
learn:
  min_iter: 5
  max_duration: 30m
concurrency:
  mode: sequential
postprocess:
  standardize: false
`

func TestDecode_AppliesDefaults(t *testing.T) {
	c, err := config.Decode(strings.NewReader(runYAML))
	require.NoError(t, err)
	assert.Equal(t, 2, c.Model.Traits)
	assert.Equal(t, 30, c.Model.SubjectSamples)
	assert.Equal(t, 1, c.Model.ScaleSamples, "default kept")
	assert.Equal(t, 3.0, c.Model.TraitScale)
	assert.Equal(t, 5, c.Learn.MinIter)
	assert.Equal(t, 100, c.Learn.MaxIter)
	assert.Equal(t, 30*time.Minute, c.LearnConfig().MaxDuration)
	assert.True(t, c.Postprocess.Prune)
	assert.False(t, c.Postprocess.Standardize)

	cc, err := c.ConcurrencyConfig()
	require.NoError(t, err)
	assert.Equal(t, dispatch.Sequential, cc.Mode)
	assert.Len(t, c.Options(), 6)
}

func TestDecode_Invalid(t *testing.T) {
	cases := map[string]string{
		"no questionnaire": "groups: [{name: a, file: a.csv}]\n",
		"no groups":        "questionnaire: q.yaml\n",
		"dup group":        "questionnaire: q\ngroups: [{name: a, file: a}, {name: a, file: b}]\n",
		"samples":          "questionnaire: q\ngroups: [{name: a, file: a}]\nmodel: {subject_samples: 1}\n",
		"mode":             "questionnaire: q\ngroups: [{name: a, file: a}]\nconcurrency: {mode: threads}\n",
		"every":            "questionnaire: q\ngroups: [{name: a, file: a}]\ncheckpoint: {every: 0}\n",
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := config.Decode(strings.NewReader(in))
			assert.ErrorIs(t, err, config.ErrInvalid)
		})
	}
	_, err := config.Decode(strings.NewReader("questionnaire: q\nunknown: 1\n"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, config.ErrInvalid)
}

func TestLoad_ReadsDataset(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	write("run.yaml", runYAML)
	write("q.yaml", "items:\n  - {name: a, levels: [lo, hi]}\n  - {name: b, levels: [1, 2, 3]}\n")
	write("clinic.csv", "subject,a,b\ns1,1,3\ns2,2,0\n")
	write("data/control.csv", "a,b\n2,2\n")

	c, err := config.Load(filepath.Join(dir, "run.yaml"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "data", "control.csv"), c.Path("data/control.csv"))

	d, err := c.LoadDataset()
	require.NoError(t, err)
	require.Len(t, d.Groups, 2)
	assert.Equal(t, [][]int{{0, 2}, {1, -1}}, d.Groups[0].Responses)
	assert.Equal(t, [][]int{{1, 1}}, d.Groups[1].Responses)

	_, err = config.Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
