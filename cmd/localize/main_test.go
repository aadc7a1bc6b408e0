package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pf "github.com/jhoydich/range-localizer"
	"github.com/jhoydich/range-localizer/drivelog"
	"github.com/jhoydich/range-localizer/internal/log"
	"github.com/jhoydich/range-localizer/recorder"
	"github.com/jhoydich/range-localizer/sim"
)

func TestMain(m *testing.M) {
	log.Discard()
	os.Exit(m.Run())
}

func writeTuning(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tuning.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadTuning_FlagsOverrideConfigFile(t *testing.T) {
	path := writeTuning(t, `{"num_particles": 250, "seed": 9, "systematic_resampling": true}`)

	tests := []struct {
		name           string
		args           []string
		wantParticles  int
		wantSeed       uint64
		wantSystematic bool
	}{
		{"file only", []string{"-config", path}, 250, 9, true},
		{"unrelated flags keep file values", []string{"-config", path, "-steps", "5", "-out", ""}, 250, 9, true},
		{"particles", []string{"-config", path, "-particles", "40"}, 40, 9, true},
		{"particles and seed", []string{"-config", path, "-particles", "40", "-seed", "3"}, 40, 3, true},
		{"systematic off", []string{"-config", path, "-systematic=false"}, 250, 9, false},
		{"flag order", []string{"-seed", "3", "-config", path}, 250, 3, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := parseFlags(tt.args)
			require.NoError(t, err)
			tuning, err := loadTuning(o)
			require.NoError(t, err)

			assert.Equal(t, tt.wantParticles, tuning.FilterConfig().NumParticles)
			assert.Equal(t, tt.wantSeed, tuning.GetSeed())
			assert.Equal(t, tt.wantSystematic, tuning.GetSystematicResampling())
		})
	}
}

func TestLoadTuning_DefaultsWithoutConfig(t *testing.T) {
	o, err := parseFlags(nil)
	require.NoError(t, err)
	tuning, err := loadTuning(o)
	require.NoError(t, err)
	assert.Equal(t, pf.DefaultConfig(), tuning.FilterConfig())

	o, err = parseFlags([]string{"-particles", "30"})
	require.NoError(t, err)
	tuning, err = loadTuning(o)
	require.NoError(t, err)
	assert.Equal(t, 30, tuning.FilterConfig().NumParticles)
}

func TestLoadTuning_Errors(t *testing.T) {
	o, err := parseFlags([]string{"-particles", "0"})
	require.NoError(t, err)
	_, err = loadTuning(o)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "num particles")

	o, err = parseFlags([]string{"-config", filepath.Join(t.TempDir(), "missing.json")})
	require.NoError(t, err)
	_, err = loadTuning(o)
	assert.Error(t, err)
}

func TestParseFlags_Errors(t *testing.T) {
	_, err := parseFlags([]string{"extra"})
	assert.Error(t, err)

	_, err = parseFlags([]string{"-particles", "many"})
	assert.Error(t, err)
}

func TestParseFlags_RepeatedMap(t *testing.T) {
	o, err := parseFlags([]string{"-map", "a.log", "-map", "b.log"})
	require.NoError(t, err)
	assert.Equal(t, pathList{"a.log", "b.log"}, o.mapPaths)
}

func newLoopFixture(t *testing.T) (*pf.ParticleFilter, *sim.Source) {
	t.Helper()
	m := pf.FallbackMap()
	filter, err := pf.New(pf.DefaultConfig(), m, pf.NewRand(1))
	require.NoError(t, err)
	src := sim.NewSource(
		sim.DefaultScript(0.032),
		sim.NewAgent(pf.Pose{}, pf.NewRand(2)),
		sim.NewWorld(m, 0.05, pf.NewRand(3)),
	)
	return filter, src
}

func TestLoop_StopsAtLimit(t *testing.T) {
	filter, src := newLoopFixture(t)
	mem := &recorder.Memory{}
	var buf bytes.Buffer
	out := drivelog.NewWriter(&buf, true)

	require.NoError(t, loop(context.Background(), filter, src, mem, out, 5))
	require.NoError(t, out.Flush())

	require.Len(t, mem.Results, 5)
	for i, r := range mem.Results {
		assert.Equal(t, i+1, r.Step)
		assert.InDelta(t, 0.032*float64(i+1), r.Time, 1e-12)
		assert.NotNil(t, r.Truth)
	}

	ticks, err := drivelog.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, ticks, 5)
	assert.Equal(t, 5, ticks[4].Step)
	assert.NotNil(t, ticks[4].Truth)
}

func TestLoop_RunsToEndOfLog(t *testing.T) {
	var buf bytes.Buffer
	w := drivelog.NewWriter(&buf, false)
	for i := 1; i <= 3; i++ {
		require.NoError(t, w.Write(drivelog.Tick{
			Step:    i,
			Command: pf.MotionCommand{Left: 2, Right: 2, DT: 0.032},
			Reading: pf.NewReading(1, 5, 5, 5),
		}))
	}
	require.NoError(t, w.Flush())

	filter, err := pf.New(pf.DefaultConfig(), pf.FallbackMap(), pf.NewRand(1))
	require.NoError(t, err)
	mem := &recorder.Memory{}
	require.NoError(t, loop(context.Background(), filter, drivelog.NewReader(&buf), mem, nil, 0))

	require.Len(t, mem.Results, 3)
	assert.Nil(t, mem.Results[2].Truth)
	assert.Zero(t, mem.Results[2].Error)
}

func TestLoop_StopsWhenCanceled(t *testing.T) {
	filter, src := newLoopFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mem := &recorder.Memory{}
	require.NoError(t, loop(ctx, filter, src, mem, nil, 0))
	assert.Empty(t, mem.Results)
}

func TestRun_Simulation(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "results.txt")
	db := filepath.Join(dir, "runs.db")
	drive := filepath.Join(dir, "drive.csv")

	o, err := parseFlags([]string{
		"-map", filepath.Join(dir, "no-such-scan.log"),
		"-steps", "12",
		"-particles", "50",
		"-out", out,
		"-db", db,
		"-record", drive,
	})
	require.NoError(t, err)
	require.NoError(t, run(context.Background(), o))

	text, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(text), "粒子数量: 50")

	conn, err := recorder.OpenDB(db)
	require.NoError(t, err)
	defer conn.Close()
	runs, err := recorder.ListRuns(conn)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 12, runs[0].Steps)
	assert.Equal(t, "fallback", runs[0].MapSource)

	f, err := os.Open(drive)
	require.NoError(t, err)
	defer f.Close()
	ticks, err := drivelog.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Len(t, ticks, 12)
}
