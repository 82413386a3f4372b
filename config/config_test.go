package config

import (
	"testing"

	"go.viam.com/test"
)

func TestDefaultMapConfigIsValid(t *testing.T) {
	test.That(t, DefaultMapConfig().Validate(), test.ShouldBeNil)
}

func TestMapConfigRejectsNonDividingChunkHeight(t *testing.T) {
	c := DefaultMapConfig()
	c.ChunkHeight = 4
	err := c.Validate()
	test.That(t, err, test.ShouldNotBeNil)
}

func TestMapConfigRejectsInvertedLogOddsBounds(t *testing.T) {
	c := DefaultMapConfig()
	c.MinLogOdds, c.MaxLogOdds = 1, -1
	test.That(t, c.Validate(), test.ShouldNotBeNil)
}

func TestMapConfigBlockWidth(t *testing.T) {
	c := MapConfig{MinCellWidth: 0.1, TreeHeight: 6, ChunkHeight: 3, MinLogOdds: -4, MaxLogOdds: 4}
	test.That(t, c.BlockWidth(), test.ShouldAlmostEqual, 6.4, 1e-9)
}

func TestDefaultMeasurementModelConfigIsValid(t *testing.T) {
	test.That(t, DefaultMeasurementModelConfig().Validate(), test.ShouldBeNil)
}

func TestMeasurementModelConfigRejectsPositiveFreeSpaceLogOdds(t *testing.T) {
	c := DefaultMeasurementModelConfig()
	c.FreeSpaceLogOdds = 0.1
	test.That(t, c.Validate(), test.ShouldNotBeNil)
}

func TestDefaultIntegratorConfigIsValid(t *testing.T) {
	test.That(t, DefaultIntegratorConfig().Validate(), test.ShouldBeNil)
}

func TestIntegratorConfigPropagatesMeasurementModelError(t *testing.T) {
	c := DefaultIntegratorConfig()
	c.MeasurementModel.SurfaceThickness = -1
	test.That(t, c.Validate(), test.ShouldNotBeNil)
}

func TestIntegratorConfigRejectsNonPositiveMaxRange(t *testing.T) {
	c := DefaultIntegratorConfig()
	c.MaxRange = 0
	test.That(t, c.Validate(), test.ShouldNotBeNil)
}

func TestDefaultConfigIsValid(t *testing.T) {
	test.That(t, DefaultConfig().Validate(), test.ShouldBeNil)
}
