// Package config defines the validated configuration records the map and
// integrator factories are constructed from (spec.md §6), plus the bundled
// Config that the ambient CLI collaborator loads (the loading itself lives
// in cmd/wavemap-bench).
package config

import (
	"github.com/LorenzoCodeluppi/wavemap/waveerrors"
)

// MapConfig configures a hashed chunked wavelet octree map.
type MapConfig struct {
	// MinCellWidth is the metric width, in meters, of a leaf (height 0)
	// cell.
	MinCellWidth float64 `mapstructure:"min_cell_width" yaml:"min_cell_width"`
	// TreeHeight is the height of a block's root above the leaf plane.
	TreeHeight int `mapstructure:"tree_height" yaml:"tree_height"`
	// ChunkHeight is the height of each chunk's perfect subtree; it must
	// evenly divide TreeHeight.
	ChunkHeight int `mapstructure:"chunk_height" yaml:"chunk_height"`
	// MinLogOdds and MaxLogOdds saturate every leaf's log-odds value.
	MinLogOdds float64 `mapstructure:"min_log_odds" yaml:"min_log_odds"`
	MaxLogOdds float64 `mapstructure:"max_log_odds" yaml:"max_log_odds"`
}

// DefaultMapConfig returns reasonable defaults for a 3D indoor map: 10cm
// leaves, 64 leaves per block axis (tree_height=6), chunk height 3.
func DefaultMapConfig() MapConfig {
	return MapConfig{
		MinCellWidth: 0.1,
		TreeHeight:   6,
		ChunkHeight:  3,
		MinLogOdds:   -4,
		MaxLogOdds:   4,
	}
}

// Validate reports a *waveerrors.ConfigError for any field outside its
// valid domain, per spec.md §7 "Configuration invalid".
func (c MapConfig) Validate() error {
	if c.MinCellWidth <= 0 {
		return waveerrors.NewConfigError("min_cell_width must be positive, got %g", c.MinCellWidth)
	}
	if c.TreeHeight <= 0 {
		return waveerrors.NewConfigError("tree_height must be positive, got %d", c.TreeHeight)
	}
	if c.ChunkHeight <= 0 {
		return waveerrors.NewConfigError("chunk_height must be positive, got %d", c.ChunkHeight)
	}
	if c.TreeHeight%c.ChunkHeight != 0 {
		return waveerrors.NewConfigError("chunk_height %d must evenly divide tree_height %d", c.ChunkHeight, c.TreeHeight)
	}
	if c.MinLogOdds >= c.MaxLogOdds {
		return waveerrors.NewConfigError("min_log_odds (%g) must be less than max_log_odds (%g)", c.MinLogOdds, c.MaxLogOdds)
	}
	return nil
}

// BlockWidth returns the metric width of one block (2^tree_height leaves).
func (c MapConfig) BlockWidth() float64 {
	return c.MinCellWidth * float64(int64(1)<<c.TreeHeight)
}

// MeasurementModelConfig configures the piecewise beam likelihood used by
// the default BeamModel (spec.md §4.5 "computeUpdateForCell").
type MeasurementModelConfig struct {
	// FreeSpaceLogOdds is the (negative) update applied inside the beam,
	// strictly before the measured range.
	FreeSpaceLogOdds float64 `mapstructure:"free_space_log_odds" yaml:"free_space_log_odds"`
	// OccupiedLogOdds is the (positive) update applied in the thin shell
	// around the measured range.
	OccupiedLogOdds float64 `mapstructure:"occupied_log_odds" yaml:"occupied_log_odds"`
	// SurfaceThickness is the half-width, in meters, of the occupied
	// shell around the measured range.
	SurfaceThickness float64 `mapstructure:"surface_thickness" yaml:"surface_thickness"`
	// AngleSigma is the angular standard deviation, in radians, used to
	// attenuate the update away from the nearest beam.
	AngleSigma float64 `mapstructure:"angle_sigma" yaml:"angle_sigma"`
}

// DefaultMeasurementModelConfig matches the scenario constants named in
// spec.md §8 ("free log-odds -0.4 and occupied +0.85").
func DefaultMeasurementModelConfig() MeasurementModelConfig {
	return MeasurementModelConfig{
		FreeSpaceLogOdds: -0.4,
		OccupiedLogOdds:  0.85,
		SurfaceThickness: 0.1,
		AngleSigma:       0.03,
	}
}

// Validate reports a *waveerrors.ConfigError for any field outside its
// valid domain.
func (c MeasurementModelConfig) Validate() error {
	if c.FreeSpaceLogOdds >= 0 {
		return waveerrors.NewConfigError("free_space_log_odds must be negative, got %g", c.FreeSpaceLogOdds)
	}
	if c.OccupiedLogOdds <= 0 {
		return waveerrors.NewConfigError("occupied_log_odds must be positive, got %g", c.OccupiedLogOdds)
	}
	if c.SurfaceThickness <= 0 {
		return waveerrors.NewConfigError("surface_thickness must be positive, got %g", c.SurfaceThickness)
	}
	if c.AngleSigma <= 0 {
		return waveerrors.NewConfigError("angle_sigma must be positive, got %g", c.AngleSigma)
	}
	return nil
}

// IntegratorConfig configures a coarse-to-fine projective integrator.
type IntegratorConfig struct {
	MeasurementModel MeasurementModelConfig `mapstructure:"measurement_model" yaml:"measurement_model"`
	// AngleThreshold is the beam-cone slack, in radians, the range image
	// intersector allows when matching a projected AABB window to a
	// hierarchical range image level.
	AngleThreshold float64 `mapstructure:"angle_threshold" yaml:"angle_threshold"`
	// RangeDeltaThreshold is the metric slack applied when comparing an
	// AABB's range interval against the measured (min, max) range.
	RangeDeltaThreshold float64 `mapstructure:"range_delta_threshold" yaml:"range_delta_threshold"`
	// MaxRange is the sensor's range cap, in meters: a node whose nearest
	// point lies beyond the measured surface (plus RangeDeltaThreshold) and
	// farther than MaxRange from the sensor is classified "fully unknown".
	MaxRange float64 `mapstructure:"max_range" yaml:"max_range"`
	// ErrorTolerance bounds the beam model's worst-case variation across
	// a node's bounding sphere, as a fraction of the update magnitude,
	// before the integrator must descend rather than apply a coarse
	// update (spec.md §4.5 "isApproximationErrorAcceptable").
	ErrorTolerance float64 `mapstructure:"error_tolerance" yaml:"error_tolerance"`
}

// DefaultIntegratorConfig returns reasonable defaults for a depth-camera
// or spinning-LiDAR sensor model.
func DefaultIntegratorConfig() IntegratorConfig {
	return IntegratorConfig{
		MeasurementModel:    DefaultMeasurementModelConfig(),
		AngleThreshold:      0.01,
		RangeDeltaThreshold: 0.05,
		MaxRange:            30.0,
		ErrorTolerance:      0.1,
	}
}

// Validate reports a *waveerrors.ConfigError for any field outside its
// valid domain.
func (c IntegratorConfig) Validate() error {
	if err := c.MeasurementModel.Validate(); err != nil {
		return err
	}
	if c.AngleThreshold < 0 {
		return waveerrors.NewConfigError("angle_threshold must be non-negative, got %g", c.AngleThreshold)
	}
	if c.RangeDeltaThreshold < 0 {
		return waveerrors.NewConfigError("range_delta_threshold must be non-negative, got %g", c.RangeDeltaThreshold)
	}
	if c.MaxRange <= 0 {
		return waveerrors.NewConfigError("max_range must be positive, got %g", c.MaxRange)
	}
	if c.ErrorTolerance <= 0 {
		return waveerrors.NewConfigError("error_tolerance must be positive, got %g", c.ErrorTolerance)
	}
	return nil
}

// Config bundles everything the ambient CLI collaborator (cmd/wavemap-bench)
// loads from a single file, outside the core's own factory boundary.
type Config struct {
	Map        MapConfig        `mapstructure:"map" yaml:"map"`
	Integrator IntegratorConfig `mapstructure:"integrator" yaml:"integrator"`
}

// DefaultConfig returns the bundled defaults.
func DefaultConfig() Config {
	return Config{Map: DefaultMapConfig(), Integrator: DefaultIntegratorConfig()}
}

// Validate validates both halves of the bundle.
func (c Config) Validate() error {
	if err := c.Map.Validate(); err != nil {
		return err
	}
	return c.Integrator.Validate()
}
