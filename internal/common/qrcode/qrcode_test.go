package qrcode

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerator(t *testing.T) {
	t.Run("默认参数", func(t *testing.T) {
		g := NewGenerator()
		assert.Equal(t, 256, g.size)
		assert.Equal(t, Medium, g.recoveryLevel)
	})

	t.Run("自定义参数", func(t *testing.T) {
		g := NewGenerator(WithSize(512), WithRecoveryLevel(High))
		assert.Equal(t, 512, g.size)
		assert.Equal(t, High, g.recoveryLevel)
	})

	t.Run("非法尺寸被忽略", func(t *testing.T) {
		g := NewGenerator(WithSize(0))
		assert.Equal(t, 256, g.size)
	})
}

func TestParseRecoveryLevel(t *testing.T) {
	tests := map[string]RecoveryLevel{
		"low":     Low,
		"MEDIUM":  Medium,
		"high":    High,
		"Highest": Highest,
		"unknown": Medium,
		"":        Medium,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseRecoveryLevel(in), in)
	}
}

func TestGenerator_GeneratePNG(t *testing.T) {
	g := NewGenerator(WithSize(200))

	t.Run("生成可解码的 PNG", func(t *testing.T) {
		data, err := g.GeneratePNG("https://booking.example.com/api/v1/reservations/ABCDEF123456")
		require.NoError(t, err)

		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 200, img.Bounds().Dx())
	})

	t.Run("空内容", func(t *testing.T) {
		_, err := g.GeneratePNG("")
		assert.Error(t, err)
	})
}

func TestGenerator_WritePNG(t *testing.T) {
	var buf bytes.Buffer
	err := NewGenerator().WritePNG(&buf, "ABCDEF123456")
	require.NoError(t, err)
	assert.Equal(t, []byte("\x89PNG"), buf.Bytes()[:4])
}
