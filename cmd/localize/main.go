// Command localize runs the range-sensor particle filter over a drive log,
// or over a scripted simulation when no log is given, and writes the
// estimated track.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	pf "github.com/jhoydich/range-localizer"
	"github.com/jhoydich/range-localizer/drivelog"
	"github.com/jhoydich/range-localizer/internal/config"
	"github.com/jhoydich/range-localizer/internal/log"
	"github.com/jhoydich/range-localizer/recorder"
	"github.com/jhoydich/range-localizer/scanlog"
	"github.com/jhoydich/range-localizer/sim"
)

const progressEvery = 50

type pathList []string

func (p *pathList) String() string { return strings.Join(*p, ",") }

func (p *pathList) Set(v string) error {
	*p = append(*p, v)
	return nil
}

type options struct {
	configPath string
	drivePath  string
	recordPath string
	steps      int
	seed       uint64
	particles  int
	systematic bool
	noTruth    bool
	outPath    string
	dbPath     string
	pngPath    string
	htmlPath   string
	logLevel   string
	mapPaths   pathList

	// set holds the names of flags given on the command line; only those
	// override the config file.
	set map[string]bool
}

func parseFlags(args []string) (*options, error) {
	o := &options{set: map[string]bool{}}
	fs := flag.NewFlagSet("localize", flag.ContinueOnError)
	fs.StringVar(&o.configPath, "config", "", "JSON tuning file (defaults are built in)")
	fs.StringVar(&o.drivePath, "drive", "", "drive log to replay; a scripted simulation runs when empty")
	fs.StringVar(&o.recordPath, "record", "", "write the ticks fed to the filter as a drive log")
	fs.IntVar(&o.steps, "steps", 0, "stop after this many steps (0 runs to the end)")
	fs.Uint64Var(&o.seed, "seed", config.DefaultSeed, "random seed")
	fs.IntVar(&o.particles, "particles", 0, "number of particles (overrides the config file)")
	fs.BoolVar(&o.systematic, "systematic", false, "use systematic instead of multinomial resampling")
	fs.BoolVar(&o.noTruth, "no-truth", false, "simulate without a ground-truth device")
	fs.StringVar(&o.outPath, "out", "localization_results.txt", "results file (empty to skip)")
	fs.StringVar(&o.dbPath, "db", "", "SQLite database to record the run into")
	fs.StringVar(&o.pngPath, "png", "", "render the final particles and track to this image")
	fs.StringVar(&o.htmlPath, "html", "", "render an interactive page to this file")
	fs.StringVar(&o.logLevel, "log-level", "info", "debug, info, warn or error")
	fs.Var(&o.mapPaths, "map", "scan log to build the map from (repeatable; first usable wins)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	return o, nil
}

type tickSource interface {
	Next() (drivelog.Tick, error)
}

func main() {
	o, err := parseFlags(os.Args[1:])
	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(2)
	}
	log.Init(o.logLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, o); err != nil {
		log.Error("localize failed", "error", err)
		os.Exit(1)
	}
}

// loadTuning reads the config file, if any, and lets flags given on the
// command line override it.
func loadTuning(o *options) (*config.TuningConfig, error) {
	tuning := config.DefaultTuningConfig()
	if o.configPath != "" {
		var err error
		if tuning, err = config.LoadTuningConfig(o.configPath); err != nil {
			return nil, err
		}
	}

	if o.set["seed"] {
		tuning.Seed = &o.seed
	}
	if o.set["particles"] {
		tuning.NumParticles = &o.particles
	}
	if o.set["systematic"] {
		tuning.SystematicResampling = &o.systematic
	}
	if err := tuning.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return tuning, nil
}

func run(ctx context.Context, o *options) error {
	tuning, err := loadTuning(o)
	if err != nil {
		return err
	}
	cfg := tuning.FilterConfig()

	paths := []string(o.mapPaths)
	if len(paths) == 0 {
		paths = scanlog.DefaultPaths
	}
	m, mapSrc := scanlog.LoadMap(paths...)

	var opts []pf.Option
	if tuning.GetSystematicResampling() {
		opts = append(opts, pf.WithSystematicResampling())
	}
	filter, err := pf.New(cfg, m, pf.NewRand(tuning.GetSeed()), opts...)
	if err != nil {
		return err
	}

	source, closeSource, err := openSource(o, tuning, filter.Map())
	if err != nil {
		return err
	}
	defer closeSource()

	mem := &recorder.Memory{}
	recs := recorder.Multi{mem}
	if o.outPath != "" {
		tr, err := recorder.CreateTextRecorder(o.outPath, cfg.NumParticles)
		if err != nil {
			return err
		}
		recs = append(recs, tr)
	}
	if o.dbPath != "" {
		mapName := mapSrc.Path
		if mapSrc.Fallback {
			mapName = "fallback"
		}
		store, err := recorder.NewSQLiteStore(o.dbPath, recorder.RunMeta{
			Particles: cfg.NumParticles,
			Seed:      tuning.GetSeed(),
			MapSource: mapName,
		})
		if err != nil {
			recs.Close()
			return err
		}
		recs = append(recs, store)
	}

	var driveOut *drivelog.Writer
	if o.recordPath != "" {
		f, err := os.Create(o.recordPath)
		if err != nil {
			recs.Close()
			return fmt.Errorf("failed to create drive log: %w", err)
		}
		defer f.Close()
		driveOut = drivelog.NewWriter(f, true)
	}

	loopErr := loop(ctx, filter, source, recs, driveOut, o.steps)
	if driveOut != nil {
		loopErr = errors.Join(loopErr, driveOut.Flush())
	}
	if err := errors.Join(loopErr, recs.Close()); err != nil {
		return err
	}

	sum := recorder.Summarize(mem.Results)
	log.Info("localization finished",
		"steps", sum.Count,
		"degenerate_resets", filter.DegenerateCount(),
		"final_estimate", filter.LastEstimate())
	if sum.WithTruth > 0 {
		log.Info("localization error",
			"mean", sum.MeanError,
			"max", sum.MaxError,
			"min", sum.MinError)
	}

	return render(o, recorder.Snapshot{
		Map:       filter.Map(),
		Particles: filter.Particles(),
		Results:   mem.Results,
	})
}

func openSource(o *options, tuning *config.TuningConfig, m *pf.Map) (tickSource, func(), error) {
	if o.drivePath != "" {
		f, err := os.Open(o.drivePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open drive log: %w", err)
		}
		log.Info("replaying drive log", "path", o.drivePath)
		return drivelog.NewReader(f), func() { f.Close() }, nil
	}

	// The simulation draws from its own stream so the filter's sequence
	// depends on the seed alone.
	simRand := pf.NewRand(tuning.GetSeed() + 1)
	src := sim.NewSource(
		sim.DefaultScript(tuning.GetControlPeriod()),
		sim.NewAgent(pf.Pose{}, simRand),
		sim.NewWorld(m, tuning.GetSensorNoise(), simRand),
	)
	if o.noTruth {
		src.HideTruth()
	}
	log.Info("running scripted simulation", "control_period", tuning.GetControlPeriod())
	return src, func() {}, nil
}

func loop(ctx context.Context, filter *pf.ParticleFilter, source tickSource, rec recorder.Recorder, driveOut *drivelog.Writer, limit int) error {
	var elapsed float64
	for n := 1; limit == 0 || n <= limit; n++ {
		if err := ctx.Err(); err != nil {
			log.Warn("interrupted", "step", n)
			return nil
		}

		tick, err := source.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		est := filter.Step(tick.Command, tick.Reading)
		elapsed += tick.Command.DT

		result := recorder.NewResult(n, elapsed, est, tick.Truth)
		if err := rec.Record(result); err != nil {
			return err
		}
		if driveOut != nil {
			tick.Step = n
			if err := driveOut.Write(tick); err != nil {
				return err
			}
		}

		if n%progressEvery == 0 {
			args := []any{"step", n, "x", est.X, "y", est.Y, "theta", est.Theta, "ess", filter.EffectiveSampleSize()}
			if tick.Truth != nil {
				args = append(args, "error", result.Error)
			}
			log.Info("progress", args...)
		}
	}
	return nil
}

func render(o *options, snap recorder.Snapshot) error {
	if o.pngPath != "" {
		if err := snap.SavePNG(o.pngPath); err != nil {
			return err
		}
		log.Info("wrote plot", "path", o.pngPath)
	}
	if o.htmlPath != "" {
		f, err := os.Create(o.htmlPath)
		if err != nil {
			return fmt.Errorf("failed to create html file: %w", err)
		}
		if err := snap.WriteHTML(f); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("failed to close html file: %w", err)
		}
		log.Info("wrote page", "path", o.htmlPath)
	}
	return nil
}
