package anpr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentra-video/sentra/models"
)

func TestStubDetector(t *testing.T) {
	dets, err := StubDetector{}.Detect(context.Background(), "/tmp/frame.jpg")
	require.NoError(t, err)
	require.Len(t, dets, 1)
	assert.Greater(t, dets[0].Confidence, 0.9)
	assert.NotZero(t, dets[0].Box.W)
}

func TestStubExtractorDeterministic(t *testing.T) {
	e := StubExtractor{}

	a, err := e.Extract(context.Background(), "/tmp/frame_a.jpg", models.BoundingBox{})
	require.NoError(t, err)
	b, err := e.Extract(context.Background(), "/tmp/frame_a.jpg", models.BoundingBox{})
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := e.Extract(context.Background(), "/tmp/frame_b.jpg", models.BoundingBox{})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^ZZ\d{5}$`, c)
}
