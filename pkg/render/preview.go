package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
)

// Mark is a projected vertex to highlight in a preview, in depth buffer
// pixel coordinates (row 0 at the bottom).
type Mark struct {
	X, Y int
	Seen bool
}

// DepthFrame shades a depth buffer into a framebuffer: near surfaces are
// bright, far surfaces dim and uncovered pixels black. The image is flipped
// so the top row comes first. Seen marks are painted red, the rest blue.
func DepthFrame(buf *DepthBuffer, marks []Mark) *Framebuffer {
	fb := NewFramebuffer(buf.Width, buf.Height)
	fb.Clear(ColorBackground)

	near, far, ok := buf.Range()
	span := far - near
	if ok {
		for y := range buf.Height {
			row := buf.Height - 1 - y
			for x := range buf.Width {
				if !buf.Covered(x, y) {
					continue
				}
				d := buf.At(x, y)
				t := 0.0
				if span > 0 {
					t = (d - near) / span
				}
				g := uint8(255 - t*191)
				fb.SetPixel(x, row, color.RGBA{g, g, g, 255})
			}
		}
	}

	for _, m := range marks {
		c := ColorHidden
		if m.Seen {
			c = ColorSeen
		}
		fb.SetPixel(m.X, buf.Height-1-m.Y, c)
	}
	return fb
}

// DepthImage is DepthFrame converted to an image.
func DepthImage(buf *DepthBuffer, marks []Mark) *image.NRGBA {
	return DepthFrame(buf, marks).ToImage()
}

// Upscale enlarges img by an integer factor with nearest-neighbour
// sampling so single-pixel marks stay crisp.
func Upscale(img image.Image, factor int) *image.NRGBA {
	b := img.Bounds()
	if factor < 1 {
		factor = 1
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

// Resize scales the framebuffer to width x height with nearest-neighbour
// sampling.
func (fb *Framebuffer) Resize(width, height int) *Framebuffer {
	if width < 1 || height < 1 {
		return NewFramebuffer(0, 0)
	}
	src := fb.ToImage()
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return FramebufferFromImage(dst)
}

// ErrImageFormat is returned for preview formats other than webp and png.
var ErrImageFormat = errors.New("unsupported image format")

// CheckImageFormat accepts "webp" and "png", with or without a leading dot,
// in any case.
func CheckImageFormat(format string) error {
	switch strings.TrimPrefix(strings.ToLower(format), ".") {
	case "webp", "png":
		return nil
	}
	return fmt.Errorf("%w %q", ErrImageFormat, format)
}

// SaveImage writes img to path, encoding WebP (lossless) for .webp and
// PNG for .png.
func SaveImage(path string, img image.Image) (err error) {
	ext := strings.ToLower(filepath.Ext(path))
	if err := CheckImageFormat(ext); err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("save %s: %w", path, cerr)
		}
	}()

	switch ext {
	case ".webp":
		err = nativewebp.Encode(f, img, nil)
	default:
		err = png.Encode(f, img)
	}
	if err != nil {
		return fmt.Errorf("save %s: encode: %w", path, err)
	}
	return nil
}
