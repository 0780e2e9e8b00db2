// Package phantom builds synthetic volume/mask pairs with a known answer:
// a square brain mask on one axial layer, optionally framed by a bright ring
// standing in for skull.
package phantom

import (
	"fmt"
	"os"
	"path/filepath"

	"skulldetect/internal/models"
	"skulldetect/pkg/nifti"
)

// Options describes a phantom. Sizes are in voxels.
type Options struct {
	Size  int // in-plane width and height
	Depth int
	Layer int // z index carrying the mask

	Square int // side of the centered mask square
	Ring   int // ring thickness around the square, 0 for none

	Background float64
	Tissue     float64
	RingValue  float64
}

// DefaultOptions returns a 64x64x10 phantom with a 20x20 mask on layer 5
// and a 4 voxel ring of 200 over a background of 10.
func DefaultOptions() Options {
	return Options{
		Size:       64,
		Depth:      10,
		Layer:      5,
		Square:     20,
		Ring:       4,
		Background: 10,
		Tissue:     10,
		RingValue:  200,
	}
}

// Generate builds the volume and mask described by opts.
func Generate(opts Options) (*models.Volume, *models.Volume, error) {
	if opts.Size <= 0 || opts.Depth <= 0 {
		return nil, nil, fmt.Errorf("invalid phantom size %dx%dx%d", opts.Size, opts.Size, opts.Depth)
	}
	if opts.Layer < 0 || opts.Layer >= opts.Depth {
		return nil, nil, fmt.Errorf("layer %d exceeds depth %d", opts.Layer, opts.Depth)
	}
	if opts.Square <= 0 || opts.Square+2*opts.Ring > opts.Size {
		return nil, nil, fmt.Errorf("square %d with ring %d does not fit in %d", opts.Square, opts.Ring, opts.Size)
	}

	volume := models.NewVolume(opts.Size, opts.Size, opts.Depth)
	mask := models.NewVolume(opts.Size, opts.Size, opts.Depth)

	lo := (opts.Size - opts.Square) / 2
	hi := lo + opts.Square
	for z := 0; z < opts.Depth; z++ {
		for y := 0; y < opts.Size; y++ {
			for x := 0; x < opts.Size; x++ {
				inside := x >= lo && x < hi && y >= lo && y < hi
				ring := !inside &&
					x >= lo-opts.Ring && x < hi+opts.Ring &&
					y >= lo-opts.Ring && y < hi+opts.Ring

				switch {
				case inside:
					volume.Set(x, y, z, opts.Tissue)
					if z == opts.Layer {
						mask.Set(x, y, z, 1)
					}
				case ring:
					volume.Set(x, y, z, opts.RingValue)
				default:
					volume.Set(x, y, z, opts.Background)
				}
			}
		}
	}

	return volume, mask, nil
}

// WriteDataset writes one phantom patient per entry of patients into root,
// using the default dataset layout: <root>/<id>/<id>_t1.nii and
// <root>/<id>/<id>_mask.nii.gz. The map value selects whether the ring is drawn.
func WriteDataset(root string, patients map[string]bool, opts Options) error {
	for id, withRing := range patients {
		o := opts
		if !withRing {
			o.Ring = 0
		}
		volume, mask, err := Generate(o)
		if err != nil {
			return fmt.Errorf("failed to generate phantom %s: %w", id, err)
		}

		dir := filepath.Join(root, id)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create patient directory: %w", err)
		}
		if err := nifti.Write(filepath.Join(dir, id+"_t1.nii"), volume); err != nil {
			return err
		}
		if err := nifti.Write(filepath.Join(dir, id+"_mask.nii.gz"), mask); err != nil {
			return err
		}
	}
	return nil
}
