// Package visualization renders volume slices and detection overlays as images.
package visualization

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"skulldetect/internal/models"
	"skulldetect/pkg/detector"
)

// Overlay colors
var (
	anchorColor = color.RGBA{R: 0, G: 220, B: 0, A: 255}
	skullColor  = color.RGBA{R: 230, G: 30, B: 30, A: 255}
	cleanColor  = color.RGBA{R: 40, G: 120, B: 255, A: 255}
)

// Viewer extracts and renders 2D slices of a volume
type Viewer struct {
	volume *models.Volume

	// window is the intensity mapped to white
	window float64
}

// NewViewer creates a viewer whose grey scale spans [0, max intensity]
func NewViewer(volume *models.Volume) *Viewer {
	window := 0.0
	for _, v := range volume.Data {
		if v > window {
			window = v
		}
	}
	return &Viewer{volume: volume, window: window}
}

// gray maps an intensity into the viewer window
func (v *Viewer) gray(value float64) uint8 {
	if v.window <= 0 {
		return 0
	}
	return uint8(math.Max(0, math.Min(255, value/v.window*255)))
}

// ExtractSlice extracts a 2D slice from the volume along the specified axis
func (v *Viewer) ExtractSlice(axis string, position int) (*image.Gray, error) {
	if position < 0 {
		return nil, fmt.Errorf("position must be non-negative")
	}

	vol := v.volume
	var img *image.Gray

	switch axis {
	case "x", "X":
		// Extract slice along YZ plane
		if position >= vol.Width {
			return nil, fmt.Errorf("position %d exceeds width %d", position, vol.Width)
		}
		img = image.NewGray(image.Rect(0, 0, vol.Depth, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for z := 0; z < vol.Depth; z++ {
				img.SetGray(z, y, color.Gray{Y: v.gray(vol.At(position, y, z))})
			}
		}

	case "y", "Y":
		// Extract slice along XZ plane
		if position >= vol.Height {
			return nil, fmt.Errorf("position %d exceeds height %d", position, vol.Height)
		}
		img = image.NewGray(image.Rect(0, 0, vol.Width, vol.Depth))
		for z := 0; z < vol.Depth; z++ {
			for x := 0; x < vol.Width; x++ {
				img.SetGray(x, z, color.Gray{Y: v.gray(vol.At(x, position, z))})
			}
		}

	case "z", "Z":
		// Extract slice along XY plane
		if position >= vol.Depth {
			return nil, fmt.Errorf("position %d exceeds depth %d", position, vol.Depth)
		}
		img = image.NewGray(image.Rect(0, 0, vol.Width, vol.Height))
		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				img.SetGray(x, y, color.Gray{Y: v.gray(vol.At(x, y, position))})
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	return img, nil
}

// RenderDetection draws the analysed layer with each sampled ray colored by
// its verdict (red skull-like, blue clean) and the anchors in green. The
// image is upscaled by factor with nearest-neighbour sampling.
func (v *Viewer) RenderDetection(res *detector.Result, factor int) (image.Image, error) {
	if factor < 1 {
		return nil, fmt.Errorf("scale factor must be positive, got %d", factor)
	}

	layer, err := v.ExtractSlice("z", res.MaxLayer)
	if err != nil {
		return nil, err
	}

	canvas := image.NewRGBA(layer.Bounds())
	for y := 0; y < layer.Bounds().Dy(); y++ {
		for x := 0; x < layer.Bounds().Dx(); x++ {
			g := layer.GrayAt(x, y).Y
			canvas.SetRGBA(x, y, color.RGBA{R: g, G: g, B: g, A: 255})
		}
	}

	for _, dr := range res.Directions {
		c := cleanColor
		if dr.SkullLike {
			c = skullColor
		}
		for _, p := range rayPoints(dr) {
			canvas.SetRGBA(p.X, p.Y, c)
		}
		canvas.SetRGBA(dr.Anchor.X, dr.Anchor.Y, anchorColor)
	}

	b := canvas.Bounds()
	return imaging.Resize(canvas, b.Dx()*factor, b.Dy()*factor, imaging.NearestNeighbor), nil
}

// rayPoints returns the pixels covered by the sampled profile of dr.
func rayPoints(dr detector.DirectionResult) []image.Point {
	dx, dy := 0, 0
	switch dr.Direction {
	case detector.North:
		dy = -1
	case detector.South:
		dy = 1
	case detector.West:
		dx = -1
	case detector.East:
		dx = 1
	}

	points := make([]image.Point, len(dr.Profile))
	for i := range points {
		points[i] = image.Pt(dr.Start.X+i*dx, dr.Start.Y+i*dy)
	}
	return points
}

// SaveImage saves an image as PNG, creating the parent directory
func SaveImage(img image.Image, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0755); err != nil {
		return err
	}
	return imaging.Save(img, filename)
}

// SaveSliceSequence extracts and saves every slice along the specified axis
func (v *Viewer) SaveSliceSequence(axis string, outputDir string) error {
	var maxPos int
	switch axis {
	case "x", "X":
		maxPos = v.volume.Width
	case "y", "Y":
		maxPos = v.volume.Height
	case "z", "Z":
		maxPos = v.volume.Depth
	default:
		return fmt.Errorf("invalid axis: %s (must be x, y, or z)", axis)
	}

	for pos := 0; pos < maxPos; pos++ {
		img, err := v.ExtractSlice(axis, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%03d.png", axis, pos))
		if err := SaveImage(img, filename); err != nil {
			return err
		}
	}

	return nil
}
