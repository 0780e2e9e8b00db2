package detector

import "fmt"

// Direction is one of the four compass directions profiles are taken along.
// North and South move along y, West and East along x.
type Direction int

const (
	North Direction = iota
	South
	West
	East
)

// Directions lists every direction in result order [N, S, W, E].
var Directions = [4]Direction{North, South, West, East}

func (d Direction) String() string {
	switch d {
	case North:
		return "north"
	case South:
		return "south"
	case West:
		return "west"
	case East:
		return "east"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

// alongX reports whether the direction varies the x coordinate.
func (d Direction) alongX() bool {
	return d == West || d == East
}

// step is the outward unit step: away from the slice center.
func (d Direction) step() int {
	if d == North || d == West {
		return -1
	}
	return 1
}

// Point is an (x, y) coordinate inside a slice.
type Point struct {
	X, Y int
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// coord returns the component of p that d varies.
func (p Point) coord(d Direction) int {
	if d.alongX() {
		return p.X
	}
	return p.Y
}

// with returns p with the component varied by d replaced by c.
func (p Point) with(d Direction, c int) Point {
	if d.alongX() {
		p.X = c
	} else {
		p.Y = c
	}
	return p
}

// extent is the slice size along the axis d varies.
func extent(d Direction, width, height int) int {
	if d.alongX() {
		return width
	}
	return height
}

// canScan reports whether an outward scan moving by step may visit c.
// Decreasing scans never visit index 0; increasing scans stop at the edge.
func canScan(c, step, size int) bool {
	if step < 0 {
		return c > 0 && c < size
	}
	return c >= 0 && c < size
}
