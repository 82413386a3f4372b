package logging

import (
	"testing"

	"go.viam.com/test"
)

func TestSubloggerNamesNest(t *testing.T) {
	root := NewDevelopmentLogger("wavemap")
	child := root.Sublogger("occmap").(*zapLogger)
	test.That(t, child.name, test.ShouldEqual, "wavemap.occmap")
}

func TestOrNopHandlesNil(t *testing.T) {
	l := OrNop(nil)
	test.That(t, l, test.ShouldNotBeNil)
	l.Infow("no panic expected")
}
