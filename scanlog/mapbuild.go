package scanlog

import (
	"errors"
	"io/fs"
	"math"
	"os"

	pf "github.com/jhoydich/range-localizer"
	"github.com/jhoydich/range-localizer/internal/log"
)

// DefaultNearThreshold is the range below which a scan is taken to have hit
// an obstacle.
const DefaultNearThreshold = 1.0

// DefaultPaths are the locations mapping runs write their scan logs to,
// manual run first.
var DefaultPaths = []string{
	"../mapping_controller/simple_map_data.txt",
	"../mapping_controller_auto/simple_map_data.txt",
}

// BuildMap derives an occupancy map from scan records. Every record's
// position is free space; every range shorter than nearThreshold marks an
// obstacle at the end of that ray.
func BuildMap(records []Record, nearThreshold float64) *pf.Map {
	var obstacles, free []pf.Point
	for _, rec := range records {
		free = append(free, rec.Pose.Point())
		for _, d := range pf.Directions {
			r := rec.Ranges[d]
			if !(r < nearThreshold) {
				continue
			}
			bearing := rec.Pose.Theta + d.Offset()
			obstacles = append(obstacles, pf.Point{
				X: rec.Pose.X + r*math.Cos(bearing),
				Y: rec.Pose.Y + r*math.Sin(bearing),
			})
		}
	}
	return pf.NewMap(obstacles, free)
}

// Source describes where a loaded map came from.
type Source struct {
	Path     string
	Stats    Stats
	Fallback bool
}

// LoadMap tries each path in order and builds the map from the first scan
// log that can be read and yields a non-empty map. When none does, the
// synthetic fallback map is returned. LoadMap never fails.
func LoadMap(paths ...string) (*pf.Map, Source) {
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				log.Warn("cannot open scan log", "path", path, "error", err)
			}
			continue
		}

		records, stats, err := Parse(f)
		f.Close()
		if err != nil {
			log.Warn("scan log read failed", "path", path, "error", err)
			continue
		}

		m := BuildMap(records, DefaultNearThreshold)
		if m.IsEmpty() {
			log.Warn("scan log produced an empty map", "path", path, "header_found", stats.HeaderFound)
			continue
		}

		log.Info("loaded scan log",
			"path", path,
			"records", stats.Records,
			"skipped", stats.Skipped,
			"free_space", m.NumFreeSpace(),
			"obstacles", m.NumObstacles())
		return m, Source{Path: path, Stats: stats}
	}

	log.Warn("no usable scan log, using synthetic map", "tried", paths)
	return pf.FallbackMap(), Source{Fallback: true}
}
