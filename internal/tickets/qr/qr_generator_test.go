package qr

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateProducesPNG(t *testing.T) {
	g := NewQRGenerator()

	data, err := g.Generate("3f0a7c52-91a2-4c1e-9d51-2d0b7f0c9e11")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, defaultSize, img.Bounds().Dx())
}

func TestGenerateRejectsEmptyPayload(t *testing.T) {
	_, err := NewQRGenerator().Generate("")
	assert.Error(t, err)
}
