// Package imagefile reads and writes the raster formats found in our datasets.
package imagefile

import (
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmharper/cimg/v2"
	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// DefaultQuality is the lossy compression quality used by Save
const DefaultQuality = 95

// Image extensions, in lower case
var Extensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// Returns true if the filename has one of the image extensions that we can read
func IsImage(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, e := range Extensions {
		if e == ext {
			return true
		}
	}
	return false
}

// Load decodes an image file
func Load(filename string) (image.Image, error) {
	img, err := imaging.Open(filename)
	if err == nil {
		return img, nil
	}
	if strings.ToLower(filepath.Ext(filename)) != ".webp" {
		return nil, fmt.Errorf("Failed to decode image %v: %w", filename, err)
	}

	f, ferr := os.Open(filename)
	if ferr != nil {
		return nil, ferr
	}
	defer f.Close()
	img, err = webp.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("Failed to decode webp image %v: %w", filename, err)
	}
	return img, nil
}

// Save encodes img in the format given by the extension of filename
func Save(img image.Image, filename string, quality int) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := Encode(f, img, filepath.Ext(filename), quality); err != nil {
		f.Close()
		os.Remove(filename)
		return err
	}
	return f.Close()
}

// Encode img in the format given by ext (eg ".jpg").
// JPEG goes through libjpeg-turbo, which is much faster than image/jpeg.
func Encode(w io.Writer, img image.Image, ext string, quality int) error {
	if quality <= 0 {
		quality = DefaultQuality
	}
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		b, err := EncodeJPEG(img, quality)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case ".webp":
		return webp.Encode(w, img, &webp.Options{Quality: float32(quality)})
	case ".png":
		return imaging.Encode(w, img, imaging.PNG)
	case ".gif":
		return imaging.Encode(w, img, imaging.GIF)
	}
	return fmt.Errorf("Unsupported image format '%v'", ext)
}

// Encode img as JPEG, returning the compressed bytes
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	if quality <= 0 {
		quality = DefaultQuality
	}
	return cimg.Compress(ToCImageRGB(img), cimg.MakeCompressParams(cimg.Sampling444, quality, 0))
}

// Copy img into a 24-bit RGB cimg image
func ToCImageRGB(img image.Image) *cimg.Image {
	b := img.Bounds()
	dst := cimg.NewImage(b.Dx(), b.Dy(), cimg.PixelFormatRGB)
	nrgba := imaging.Clone(img)
	for y := 0; y < dst.Height; y++ {
		srcLine := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+dst.Width*4]
		dstLine := dst.Pixels[y*dst.Stride : y*dst.Stride+dst.Width*3]
		for x := 0; x < dst.Width; x++ {
			dstLine[x*3] = srcLine[x*4]
			dstLine[x*3+1] = srcLine[x*4+1]
			dstLine[x*3+2] = srcLine[x*4+2]
		}
	}
	return dst
}
