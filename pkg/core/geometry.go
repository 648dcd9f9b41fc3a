package core

// Position describes an element's rectangle in screen coordinates.
// Width and Height are never negative; the scanner clamps bad values to zero.
type Position struct {
	Left   int `json:"left" yaml:"left"`
	Top    int `json:"top" yaml:"top"`
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`
}

// Right returns the right edge (Left + Width).
func (p Position) Right() int {
	return p.Left + p.Width
}

// Bottom returns the bottom edge (Top + Height).
func (p Position) Bottom() int {
	return p.Top + p.Height
}

// CenterX returns the horizontal center of the rectangle.
func (p Position) CenterX() int {
	return p.Left + p.Width/2
}

// CenterY returns the vertical center of the rectangle.
func (p Position) CenterY() int {
	return p.Top + p.Height/2
}

// Contains reports whether the point (x, y) lies inside the rectangle.
func (p Position) Contains(x, y int) bool {
	return x >= p.Left && x <= p.Right() && y >= p.Top && y <= p.Bottom()
}

// HorizontallyAligned reports whether p and b sit on the same row: their
// vertical spans overlap by more than minFrac of the smaller span, or the
// vertical center of one falls inside the other's span. Zero-height spans
// are judged by the center rule alone.
func (p Position) HorizontallyAligned(b Position, minFrac float64) bool {
	overlap := min(p.Bottom(), b.Bottom()) - max(p.Top, b.Top)
	smaller := min(p.Height, b.Height)
	if smaller > 0 && float64(overlap) > minFrac*float64(smaller) {
		return true
	}
	return (p.CenterY() >= b.Top && p.CenterY() <= b.Bottom()) ||
		(b.CenterY() >= p.Top && b.CenterY() <= p.Bottom())
}

// VerticallyAligned reports whether p and b sit in the same column: their
// horizontal spans overlap by more than minFrac of the smaller span, or the
// horizontal center of one falls inside the other's span.
func (p Position) VerticallyAligned(b Position, minFrac float64) bool {
	overlap := min(p.Right(), b.Right()) - max(p.Left, b.Left)
	smaller := min(p.Width, b.Width)
	if smaller > 0 && float64(overlap) > minFrac*float64(smaller) {
		return true
	}
	return (p.CenterX() >= b.Left && p.CenterX() <= b.Right()) ||
		(b.CenterX() >= p.Left && b.CenterX() <= p.Right())
}

// RightOf reports whether p lies entirely to the right of b.
func (p Position) RightOf(b Position) bool {
	return p.Left >= b.Right()
}

// Below reports whether p lies entirely below b.
func (p Position) Below(b Position) bool {
	return p.Top >= b.Bottom()
}

// HorizontalGapTo returns the distance from b's right edge to p's left edge.
// Negative when the rectangles overlap on the horizontal axis.
func (p Position) HorizontalGapTo(b Position) int {
	return p.Left - b.Right()
}

// VerticalGapTo returns the distance from b's bottom edge to p's top edge.
func (p Position) VerticalGapTo(b Position) int {
	return p.Top - b.Bottom()
}
