// Command wavemap-bench loads a map/integrator configuration, generates a
// batch of synthetic spherical scans, integrates them into a fresh map, and
// reports basic throughput and occupancy statistics. It exists to exercise
// the core packages end to end the way a developer would from a shell,
// grounded on the cobra+viper CLI idiom used elsewhere in this module's
// dependency set.
package main

import (
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/LorenzoCodeluppi/wavemap/config"
	"github.com/LorenzoCodeluppi/wavemap/integrator"
	"github.com/LorenzoCodeluppi/wavemap/logging"
	"github.com/LorenzoCodeluppi/wavemap/occmap"
	"github.com/LorenzoCodeluppi/wavemap/pointcloud"
	"github.com/LorenzoCodeluppi/wavemap/spatialmath"

	"github.com/golang/geo/r3"
)

const envPrefix = "WAVEMAP_BENCH"

var (
	cfgFile       string
	verbose       bool
	numScans      int
	pointsPerScan int
	scanRange     float64
)

var rootCmd = &cobra.Command{
	Use:   "wavemap-bench",
	Short: "Integrate synthetic scans into a wavelet occupancy map and report stats",
	RunE: func(_ *cobra.Command, _ []string) error {
		return run()
	},
}

func initFlags() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file (map + integrator sections)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug logging")
	rootCmd.Flags().IntVar(&numScans, "scans", 20, "number of synthetic scans to integrate")
	rootCmd.Flags().IntVar(&pointsPerScan, "points-per-scan", 4096, "approximate point count per synthetic scan")
	rootCmd.Flags().Float64Var(&scanRange, "scan-range", 8.0, "radius, in meters, of the synthetic spherical scan")
}

func loadConfig() (config.Config, error) {
	cfg := config.DefaultConfig()
	if cfgFile == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(cfgFile)
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("reading config %q: %w", cfgFile, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %q: %w", cfgFile, err)
	}
	return cfg, nil
}

// syntheticSphereScan returns a grid of local-frame bearings, each carried
// out to rng meters, approximating a spherical room scan.
func syntheticSphereScan(rng float64, n int) []r3.Vector {
	// grid azimuth steps times grid/2 elevation steps gives about n points.
	grid := int(math.Sqrt(float64(2 * n)))
	if grid < 4 {
		grid = 4
	}
	points := make([]r3.Vector, 0, grid*grid)
	for i := 0; i < grid; i++ {
		az := -math.Pi + 2*math.Pi*float64(i)/float64(grid)
		for j := 0; j < grid/2; j++ {
			el := -math.Pi/2 + math.Pi*float64(j)/float64(grid/2)
			points = append(points, r3.Vector{
				X: math.Cos(el) * math.Cos(az) * rng,
				Y: math.Cos(el) * math.Sin(az) * rng,
				Z: math.Sin(el) * rng,
			})
		}
	}
	return points
}

func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.NewProductionLogger("wavemap-bench")
	if verbose {
		logger = logging.NewDevelopmentLogger("wavemap-bench")
	}

	m, err := occmap.New(cfg.Map, logger)
	if err != nil {
		return err
	}
	it, err := integrator.New(m, cfg.Integrator, nil, logger)
	if err != nil {
		return err
	}

	start := time.Now()
	var totalPoints int
	for s := 0; s < numScans; s++ {
		angle := 2 * math.Pi * float64(s) / float64(numScans)
		origin := r3.Vector{X: math.Cos(angle) * 0.5, Y: math.Sin(angle) * 0.5, Z: 0}
		pose := spatialmath.NewPose(origin, spatialmath.Identity().Orientation)

		points := syntheticSphereScan(scanRange, pointsPerScan)
		pc, err := pointcloud.New(pose, points)
		if err != nil {
			logger.Warnw("skipping malformed synthetic scan", "scan", s, "error", err)
			continue
		}
		totalPoints += pc.Size()

		if err := it.IntegratePointcloud(pc); err != nil {
			logger.Warnw("scan integration rejected", "scan", s, "error", err)
		}
	}

	if err := m.Threshold(); err != nil {
		return fmt.Errorf("thresholding map: %w", err)
	}
	if err := m.Prune(); err != nil {
		return fmt.Errorf("pruning map: %w", err)
	}

	elapsed := time.Since(start)
	fmt.Printf("integrated %d scans (%d points) in %s\n", numScans, totalPoints, elapsed)
	fmt.Printf("blocks allocated: %d\n", m.NumBlocks())
	fmt.Printf("points/sec: %.0f\n", float64(totalPoints)/elapsed.Seconds())
	return nil
}

func main() {
	initFlags()
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(strings.TrimSpace(err.Error()))
		os.Exit(1)
	}
}
