package storage

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ErrNotAnImage is returned when the upload cannot be decoded.
var ErrNotAnImage = errors.New("file is not a supported image")

// CompressOptions mirror what the upload page used to do in the browser.
type CompressOptions struct {
	MaxDimension int
	MaxBytes     int
	MinQuality   int
}

func DefaultCompressOptions() CompressOptions {
	return CompressOptions{
		MaxDimension: 1920,
		MaxBytes:     512 * 1024,
		MinQuality:   40,
	}
}

// CompressImage scales the longest side down to MaxDimension and re-encodes
// as JPEG, lowering quality until the result fits MaxBytes or MinQuality is
// reached. Transparent areas are flattened onto white.
func CompressImage(data []byte, opts CompressOptions) ([]byte, string, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotAnImage, err)
	}

	b := src.Bounds()
	w, h := scaledSize(b.Dx(), b.Dy(), opts.MaxDimension)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Over)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	}

	minQuality := opts.MinQuality
	if minQuality <= 0 {
		minQuality = 40
	}
	var out bytes.Buffer
	for quality := 85; ; quality -= 10 {
		if quality < minQuality {
			quality = minQuality
		}
		out.Reset()
		if err := jpeg.Encode(&out, dst, &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", fmt.Errorf("encode jpeg: %w", err)
		}
		if opts.MaxBytes <= 0 || out.Len() <= opts.MaxBytes || quality == minQuality {
			break
		}
	}
	return out.Bytes(), "image/jpeg", nil
}

func scaledSize(w, h, max int) (int, int) {
	if max <= 0 || (w <= max && h <= max) {
		return w, h
	}
	if w >= h {
		return max, maxInt(1, h*max/w)
	}
	return maxInt(1, w*max/h), max
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
