package models

// Slice is a 2D (x, y) view of a volume at a fixed depth
type Slice struct {
	// Data holds Width*Height values, row-major in y
	Data []float64

	// Width and Height are the in-plane dimensions
	Width, Height int

	// Index is the z position of this slice in its volume
	Index int
}

// At returns the value at (x, y)
func (s *Slice) At(x, y int) float64 {
	return s.Data[y*s.Width+x]
}

// InBounds reports whether (x, y) lies inside the slice
func (s *Slice) InBounds(x, y int) bool {
	return x >= 0 && x < s.Width && y >= 0 && y < s.Height
}
