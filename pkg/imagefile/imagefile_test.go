package imagefile

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.NRGBA{uint8(x * 16), uint8(y * 32), 100, 255})
		}
	}
	return img
}

func TestPNG(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "a.png")
	src := testImage()
	require.NoError(t, Save(src, fn, 0))
	img, err := Load(fn)
	require.NoError(t, err)
	require.Equal(t, src.Bounds(), img.Bounds())
	r, g, b, _ := img.At(3, 5).RGBA()
	require.Equal(t, uint32(48), r>>8)
	require.Equal(t, uint32(160), g>>8)
	require.Equal(t, uint32(100), b>>8)
}

func TestToCImageRGB(t *testing.T) {
	rgb := ToCImageRGB(testImage())
	require.Equal(t, 16, rgb.Width)
	require.Equal(t, 8, rgb.Height)
	p := rgb.Pixels[5*rgb.Stride+3*3:]
	require.Equal(t, []byte{48, 160, 100}, p[:3])
}

func TestIsImage(t *testing.T) {
	require.True(t, IsImage("a.JPG"))
	require.True(t, IsImage("dir/b.webp"))
	require.False(t, IsImage("a.txt"))
	require.False(t, IsImage("jpg"))
}

func TestUnsupported(t *testing.T) {
	require.Error(t, Save(testImage(), filepath.Join(t.TempDir(), "a.bmp"), 0))
}
