// SPDX-License-Identifier: MIT

package checkpoint_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/katalvlaran/irtcalc/checkpoint"
	"github.com/katalvlaran/irtcalc/dataset"
	"github.com/katalvlaran/irtcalc/dispatch"
	"github.com/katalvlaran/irtcalc/irt"
	"github.com/katalvlaran/irtcalc/randx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func openStore(t *testing.T) *checkpoint.Store {
	t.Helper()
	cfg := checkpoint.InMemoryConfig()
	cfg.Logger = zaptest.NewLogger(t)
	s, err := checkpoint.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, s.Close()) })
	return s
}

func snapshot(seed uint64, hist ...float64) *irt.Snapshot {
	return &irt.Snapshot{
		Seed:        seed,
		NTraits:     1,
		TraitAlpha:  []float64{2.001},
		WithinDF:    12.001,
		WithinScale: [][]float64{{0.25}},
		AmongA:      1.001,
		AmongB:      []float64{0.7},
		Scales: []irt.ScaleState{
			{Item: 0, Eta: [][]float64{{-0.5, 0.5}}, Selector: []float64{1}, Epsilon: 0.2, Seed: 9, Step: 3},
		},
		Groups: []irt.GroupState{{
			Name:      "g",
			Responses: [][]int{{0}, {-1}},
			Theta:     [][][]float64{{{0.1}, {-0.3}}},
			MuLoc:     []float64{0.05},
			MuPrec:    [][]float64{{8}},
			LL:        -3.5,
			Epsilon:   0.3,
			Seed:      4,
			Step:      3,
		}},
		History: hist,
	}
}

func TestStore_SaveLoadList(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	run := checkpoint.NewRunID()

	_, _, err := s.Latest(run)
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)

	for _, it := range []int{10, 2, 100} {
		require.NoError(t, s.Save(ctx, run, it, snapshot(uint64(it), float64(-it))))
	}
	require.NoError(t, s.Save(ctx, "other", 1, snapshot(1)))

	iters, err := s.List(run)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 10, 100}, iters)

	got, it, err := s.Latest(run)
	require.NoError(t, err)
	assert.Equal(t, 100, it)
	assert.Empty(t, cmp.Diff(snapshot(100, -100), got))

	got, err = s.Load(run, 2)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(snapshot(2, -2), got))
	_, err = s.Load(run, 3)
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)

	runs, err := s.Runs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{run, "other"}, runs)

	require.NoError(t, s.Delete(run))
	iters, err = s.List(run)
	require.NoError(t, err)
	assert.Empty(t, iters)
}

// TestStore_FinalKeptApart checks that the post-processed result neither
// replaces nor shows up among the learning snapshots.
func TestStore_FinalKeptApart(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	_, err := s.LoadFinal("r")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)

	require.NoError(t, s.Save(ctx, "r", 5, snapshot(5, -5)))
	require.NoError(t, s.SaveFinal(ctx, "r", snapshot(6, -4)))
	require.NoError(t, s.SaveFinal(ctx, "r2", snapshot(7)))

	iters, err := s.List("r")
	require.NoError(t, err)
	assert.Equal(t, []int{5}, iters)
	got, it, err := s.Latest("r")
	require.NoError(t, err)
	assert.Equal(t, 5, it)
	assert.Empty(t, cmp.Diff(snapshot(5, -5), got), "learning snapshot untouched")

	final, err := s.LoadFinal("r")
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(snapshot(6, -4), final))

	runs, err := s.Runs()
	require.NoError(t, err)
	assert.Equal(t, []string{"r"}, runs)

	require.NoError(t, s.Delete("r"))
	_, err = s.LoadFinal("r")
	assert.ErrorIs(t, err, checkpoint.ErrNotFound)
	_, err = s.LoadFinal("r2")
	assert.NoError(t, err, "deleting r keeps r2")
}

func TestStore_Errors(t *testing.T) {
	s := openStore(t)
	assert.ErrorIs(t, s.Save(context.Background(), "", 1, snapshot(1)), checkpoint.ErrBadRunID)
	_, err := s.List("a/b")
	assert.ErrorIs(t, err, checkpoint.ErrBadRunID)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Save(ctx, "r", 1, snapshot(1)), context.Canceled)

	assert.Error(t, s.Save(context.Background(), "r", 1, snapshot(1, math.NaN())), "NaN is not valid JSON")

	_, err = checkpoint.Open(checkpoint.Config{})
	assert.ErrorIs(t, err, checkpoint.ErrNoPath)
}

func TestStore_PersistsOnDisk(t *testing.T) {
	dir := t.TempDir()
	s, err := checkpoint.Open(checkpoint.DefaultConfig(dir))
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), "run", 5, snapshot(5)))
	require.NoError(t, s.Close())

	s, err = checkpoint.Open(checkpoint.DefaultConfig(dir))
	require.NoError(t, err)
	defer s.Close()
	got, it, err := s.Latest("run")
	require.NoError(t, err)
	assert.Equal(t, 5, it)
	assert.Equal(t, uint64(5), got.Seed)
}

// TestStore_CallbackResumes learns with periodic checkpoints and resumes
// from the last one.
func TestStore_CallbackResumes(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	d, _, err := dataset.Synthesize(dataset.SynthConfig{
		Tau:       [][]float64{{-1, 1}, {0, 2}, {-2, 0}},
		ItemTrait: []int{0, 0, 0},
		GroupMean: [][]float64{{0}, {1}},
		TraitSD:   1.5,
		Subjects:  10,
	}, randx.New(1))
	require.NoError(t, err)
	seq := irt.WithConcurrency(dispatch.ConcurrencyConfig{Mode: dispatch.Sequential})
	m, err := irt.Initialize(ctx, d, irt.WithTraits(1), irt.WithSubjectSamples(4), seq)
	require.NoError(t, err)

	cfg := irt.LearnConfig{MinIter: 3, MinStep: math.Inf(-1), MaxIter: 4, MaxDuration: time.Hour}
	_, _, err = m.Learn(ctx, cfg, s.Callback(ctx, "fit", 2))
	require.NoError(t, err)
	iters, err := s.List("fit")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 4}, iters)

	snap, _, err := s.Latest("fit")
	require.NoError(t, err)
	r, err := irt.Restore(snap, seq)
	require.NoError(t, err)
	assert.Equal(t, m.LogProbHistory(), r.LogProbHistory())

	a, err := m.Adapt(ctx)
	require.NoError(t, err)
	b, err := r.Adapt(ctx)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}
