package geom

// Camera describes which part of the world is visible. Center is the world
// position shown in the middle of the screen, Zoom the number of pixels per
// world unit and Angle the rotation of the view in radians.
type Camera struct {
	Center Point
	Zoom   float64
	Angle  float64
}

// DefaultCamera maps world units to pixels with the world origin in the
// top-left corner of a screen of the given size.
func DefaultCamera(s Screen) Camera {
	return Camera{Center: s.Size().Mul(0.5), Zoom: 1}
}

// Matrix returns the world-to-screen transform for a screen of size s:
// center moved to the origin, rotated by -Angle, scaled by Zoom, then moved
// to the middle of the screen.
func (c Camera) Matrix(s Screen) Matrix {
	zoom := c.Zoom
	if zoom == 0 {
		zoom = 1
	}
	half := s.Size().Mul(0.5)
	return Translate(half.X, half.Y).
		Multiply(Scale(zoom, zoom)).
		Multiply(Rotate(-c.Angle)).
		Multiply(Translate(-c.Center.X, -c.Center.Y))
}

// ScreenToWorld maps a pixel position back to world coordinates.
func (c Camera) ScreenToWorld(s Screen, p Point) Point {
	inv, ok := c.Matrix(s).Invert()
	if !ok {
		return p
	}
	return inv.TransformPoint(p)
}

// WorldToScreen maps a world position to pixels.
func (c Camera) WorldToScreen(s Screen, p Point) Point {
	return c.Matrix(s).TransformPoint(p)
}
