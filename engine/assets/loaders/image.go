// Package loaders reads textures and compiled shaders from disk into the
// forms the renderer uploads.
package loaders

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"golang.org/x/image/draw"

	"github.com/Fahien/vkr-go/engine/core"
)

// Image is a decoded texture ready for a staging upload: tightly packed
// RGBA, row-major, top-left origin.
type Image struct {
	Pixels []byte
	Width  uint32
	Height uint32
}

// ImageLoader decodes PNG and JPEG files. Images larger than MaxDimension
// on either side are scaled down to fit; zero means no limit.
type ImageLoader struct {
	MaxDimension uint32
}

func (l *ImageLoader) Load(path string) (*Image, error) {
	file, err := os.Open(path)
	if err != nil {
		err = fmt.Errorf("failed to open image %s: %w", path, err)
		core.LogError(err.Error())
		return nil, err
	}
	defer file.Close()

	decoded, format, err := image.Decode(file)
	if err != nil {
		err = fmt.Errorf("failed to decode image %s: %w", path, err)
		core.LogError(err.Error())
		return nil, err
	}

	bounds := decoded.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		err := fmt.Errorf("image %s has a zero dimension", path)
		core.LogError(err.Error())
		return nil, err
	}

	targetW, targetH := width, height
	if l.MaxDimension > 0 {
		targetW, targetH = fitWithin(width, height, int(l.MaxDimension))
	}

	rgba := image.NewRGBA(image.Rect(0, 0, targetW, targetH))
	if targetW == width && targetH == height {
		draw.Draw(rgba, rgba.Bounds(), decoded, bounds.Min, draw.Src)
	} else {
		draw.ApproxBiLinear.Scale(rgba, rgba.Bounds(), decoded, bounds, draw.Src, nil)
		core.LogDebug("scaled %s from %dx%d to %dx%d", path, width, height, targetW, targetH)
	}

	core.LogDebug("loaded %s image %s (%dx%d)", format, path, targetW, targetH)
	return &Image{
		Pixels: rgba.Pix,
		Width:  uint32(targetW),
		Height: uint32(targetH),
	}, nil
}

// fitWithin shrinks a size to fit in a square of the given side, keeping
// the aspect ratio. Sizes already inside come back unchanged.
func fitWithin(width, height, max int) (int, int) {
	if width <= max && height <= max {
		return width, height
	}
	if width >= height {
		scaled := height * max / width
		if scaled < 1 {
			scaled = 1
		}
		return max, scaled
	}
	scaled := width * max / height
	if scaled < 1 {
		scaled = 1
	}
	return scaled, max
}
