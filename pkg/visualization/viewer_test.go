package visualization

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"skulldetect/internal/models"
	"skulldetect/pkg/detector"
	"skulldetect/pkg/phantom"
)

// createLayeredVolume creates a volume where each z slice has a unique value
func createLayeredVolume(width, height, depth int) *models.Volume {
	vol := models.NewVolume(width, height, depth)
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				vol.Set(x, y, z, float64(z*10))
			}
		}
	}
	return vol
}

// TestNewViewer verifies the grey window spans the volume maximum
func TestNewViewer(t *testing.T) {
	vol := createLayeredVolume(10, 10, 5)
	viewer := NewViewer(vol)

	if viewer.window != 40 {
		t.Errorf("Expected window 40, got %f", viewer.window)
	}
	if got := viewer.gray(20); got != 127 {
		t.Errorf("Expected gray 127 for half window, got %d", got)
	}

	empty := NewViewer(models.NewVolume(2, 2, 2))
	if got := empty.gray(5); got != 0 {
		t.Errorf("Expected gray 0 for empty volume, got %d", got)
	}
}

// TestExtractSlice verifies that slices are correctly extracted from the volume
func TestExtractSlice(t *testing.T) {
	width, height, depth := 10, 8, 5
	viewer := NewViewer(createLayeredVolume(width, height, depth))

	// Test extracting Z slices
	for z := 0; z < depth; z++ {
		img, err := viewer.ExtractSlice("z", z)
		if err != nil {
			t.Fatalf("Failed to extract Z slice at position %d: %v", z, err)
		}

		bounds := img.Bounds()
		if bounds.Dx() != width || bounds.Dy() != height {
			t.Errorf("Expected Z slice dimensions %dx%d, got %dx%d",
				width, height, bounds.Dx(), bounds.Dy())
		}

		expected := uint8(float64(z*10) / 40 * 255)
		if got := img.GrayAt(width/2, height/2).Y; got != expected {
			t.Errorf("Expected Z slice value %d at center, got %d", expected, got)
		}
	}

	// Test extracting X slice
	imgX, err := viewer.ExtractSlice("x", width/2)
	if err != nil {
		t.Fatalf("Failed to extract X slice: %v", err)
	}
	if b := imgX.Bounds(); b.Dx() != depth || b.Dy() != height {
		t.Errorf("Expected X slice dimensions %dx%d, got %dx%d", depth, height, b.Dx(), b.Dy())
	}

	// Test extracting Y slice
	imgY, err := viewer.ExtractSlice("y", height/2)
	if err != nil {
		t.Fatalf("Failed to extract Y slice: %v", err)
	}
	if b := imgY.Bounds(); b.Dx() != width || b.Dy() != depth {
		t.Errorf("Expected Y slice dimensions %dx%d, got %dx%d", width, depth, b.Dx(), b.Dy())
	}

	// Test invalid axis
	if _, err := viewer.ExtractSlice("invalid", 0); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}

	// Test out of bounds position
	if _, err := viewer.ExtractSlice("z", depth+1); err == nil {
		t.Error("Expected error for out of bounds position, got nil")
	}
	if _, err := viewer.ExtractSlice("x", -1); err == nil {
		t.Error("Expected error for negative position, got nil")
	}
}

// TestRenderDetection verifies rays and anchors are drawn on the max layer
func TestRenderDetection(t *testing.T) {
	volume, mask, err := phantom.Generate(phantom.DefaultOptions())
	if err != nil {
		t.Fatalf("Failed to generate phantom: %v", err)
	}
	res, err := detector.Detect(volume, mask, detector.DefaultParams())
	if err != nil {
		t.Fatalf("Detection failed: %v", err)
	}

	viewer := NewViewer(volume)
	img, err := viewer.RenderDetection(res, 3)
	if err != nil {
		t.Fatalf("Failed to render detection: %v", err)
	}

	if b := img.Bounds(); b.Dx() != 64*3 || b.Dy() != 64*3 {
		t.Fatalf("Expected 192x192 preview, got %dx%d", b.Dx(), b.Dy())
	}

	north := res.Directions[detector.North]
	anchor := color.RGBAModel.Convert(img.At(north.Anchor.X*3+1, north.Anchor.Y*3+1)).(color.RGBA)
	if anchor != anchorColor {
		t.Errorf("Expected anchor color %v, got %v", anchorColor, anchor)
	}

	// one voxel outward from the anchor lies on the skull-like ray
	ray := color.RGBAModel.Convert(img.At(north.Anchor.X*3+1, (north.Anchor.Y-1)*3+1)).(color.RGBA)
	if ray != skullColor {
		t.Errorf("Expected ray color %v, got %v", skullColor, ray)
	}

	if _, err := viewer.RenderDetection(res, 0); err == nil {
		t.Error("Expected error for zero scale factor, got nil")
	}
}

// TestSaveImage verifies that images can be saved to disk
func TestSaveImage(t *testing.T) {
	viewer := NewViewer(createLayeredVolume(10, 10, 5))

	img, err := viewer.ExtractSlice("z", 0)
	if err != nil {
		t.Fatalf("Failed to extract slice: %v", err)
	}

	filename := filepath.Join(t.TempDir(), "nested", "test_slice.png")
	if err := SaveImage(img, filename); err != nil {
		t.Fatalf("Failed to save slice: %v", err)
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		t.Errorf("Saved file does not exist: %s", filename)
	}
}

// TestSaveSliceSequence verifies that a sequence of slices can be saved
func TestSaveSliceSequence(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping file I/O test in short mode")
	}

	depth := 3
	viewer := NewViewer(createLayeredVolume(5, 5, depth))

	outputDir := filepath.Join(t.TempDir(), "slices")
	if err := viewer.SaveSliceSequence("z", outputDir); err != nil {
		t.Fatalf("Failed to save slice sequence: %v", err)
	}

	for z := 0; z < depth; z++ {
		filename := filepath.Join(outputDir, fmt.Sprintf("slice_z_%03d.png", z))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			t.Errorf("Expected slice file does not exist: %s", filename)
		}
	}

	if err := viewer.SaveSliceSequence("invalid", outputDir); err == nil {
		t.Error("Expected error for invalid axis, got nil")
	}
}
