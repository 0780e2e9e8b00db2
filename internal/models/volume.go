package models

import "fmt"

// Volume represents a 3D MRI volume (one channel, or a mask) with axes (x, y, z)
type Volume struct {
	// Data is the 3D volume data as a 1D array, x varying fastest:
	// index = z*Width*Height + y*Width + x
	Data []float64

	// Width is the size of the volume along x in voxels
	Width int

	// Height is the size of the volume along y in voxels
	Height int

	// Depth is the number of axial slices (z)
	Depth int

	// VoxelSize is the physical size of each voxel in mm
	VoxelSize struct {
		X, Y, Z float64
	}
}

// NewVolume allocates a zero-filled volume with unit voxel size
func NewVolume(width, height, depth int) *Volume {
	v := &Volume{
		Data:   make([]float64, width*height*depth),
		Width:  width,
		Height: height,
		Depth:  depth,
	}
	v.VoxelSize.X, v.VoxelSize.Y, v.VoxelSize.Z = 1, 1, 1
	return v
}

// Index returns the flat offset of voxel (x, y, z)
func (v *Volume) Index(x, y, z int) int {
	return z*v.Width*v.Height + y*v.Width + x
}

// At returns the value at (x, y, z). Callers are expected to stay in bounds.
func (v *Volume) At(x, y, z int) float64 {
	return v.Data[v.Index(x, y, z)]
}

// Set stores value at (x, y, z)
func (v *Volume) Set(x, y, z int, value float64) {
	v.Data[v.Index(x, y, z)] = value
}

// Shape returns the dimensions as (width, height, depth)
func (v *Volume) Shape() [3]int {
	return [3]int{v.Width, v.Height, v.Depth}
}

// SameShape reports whether both volumes have identical dimensions
func (v *Volume) SameShape(o *Volume) bool {
	return v.Shape() == o.Shape()
}

// Validate checks that the dimensions are positive and match the data length
func (v *Volume) Validate() error {
	if v.Width <= 0 || v.Height <= 0 || v.Depth <= 0 {
		return fmt.Errorf("invalid volume dimensions %dx%dx%d", v.Width, v.Height, v.Depth)
	}
	if len(v.Data) != v.Width*v.Height*v.Depth {
		return fmt.Errorf("volume data length %d does not match %dx%dx%d",
			len(v.Data), v.Width, v.Height, v.Depth)
	}
	return nil
}

// Slice returns the axial slice at depth z. The slice shares memory with the volume.
func (v *Volume) Slice(z int) (*Slice, error) {
	if z < 0 || z >= v.Depth {
		return nil, fmt.Errorf("slice %d exceeds depth %d", z, v.Depth)
	}
	size := v.Width * v.Height
	return &Slice{
		Data:   v.Data[z*size : (z+1)*size],
		Width:  v.Width,
		Height: v.Height,
		Index:  z,
	}, nil
}
