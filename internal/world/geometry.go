package world

import "math"

// Vector3 is a world position.
type Vector3 struct {
	X, Y, Z float32
}

func (v Vector3) Sub(o Vector3) Vector3 {
	return Vector3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// DistanceSq returns the squared distance; range checks compare squares.
func (v Vector3) DistanceSq(o Vector3) float32 {
	d := v.Sub(o)
	return d.X*d.X + d.Y*d.Y + d.Z*d.Z
}

// IsInArc reports whether to lies inside the arc (radians) centred on the
// facing of an observer at from with the given orientation.
func IsInArc(from Vector3, orientation float32, to Vector3, arc float64) bool {
	d := to.Sub(from)
	if d.X == 0 && d.Y == 0 {
		return true
	}
	angle := math.Atan2(float64(d.Y), float64(d.X)) - float64(orientation)
	// 正規化到 [-π, π]
	angle = math.Mod(angle+math.Pi, 2*math.Pi)
	if angle < 0 {
		angle += 2 * math.Pi
	}
	angle -= math.Pi
	return math.Abs(angle) <= arc/2
}

// IsInFront uses the half circle in front of the observer.
func IsInFront(from Vector3, orientation float32, to Vector3) bool {
	return IsInArc(from, orientation, to, math.Pi)
}
