package format

// Label placement offsets relative to the pointer.
const (
	offsetRight = 10
	offsetAbove = 75
	offsetBelow = 25
	edgeMargin  = 30
)

// Point is a pixel coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Position places a label of the given width next to the pointer, flipping
// to the left near the right edge of the viewport and below the pointer
// near the top.
func Position(pointer Point, labelWidth, viewportWidth float64) Point {
	x := pointer.X + offsetRight
	if pointer.X > viewportWidth-labelWidth-edgeMargin {
		x = pointer.X - labelWidth - offsetRight
	}
	y := pointer.Y - offsetAbove
	if pointer.Y < offsetAbove {
		y = pointer.Y + offsetBelow
	}
	return Point{X: x, Y: y}
}
