// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package xenax

// Limits is a pair of travel bounds in encoder increments.
// A Limits value is only usable for clamping when Left <= Right;
// Validate enforces that before the pair is stored anywhere.
type Limits struct {
	Left  int
	Right int
}

// Validate confirms the left <= right invariant.
func (l Limits) Validate() error {
	if l.Left > l.Right {
		return &LimitError{Left: l.Left, Right: l.Right}
	}
	return nil
}

// Min returns the lowest commandable position.
func (l Limits) Min() int {
	return l.Left
}

// Max returns the highest commandable position.
func (l Limits) Max() int {
	return l.Right
}

// Center returns the midpoint of the travel range, floored when the
// bounds sum to an odd number. It is recomputed from the current
// bounds on every call, never cached.
func (l Limits) Center() int {
	s := l.Left + l.Right
	c := s / 2
	// Integer division truncates toward zero; an odd negative sum
	// must round down instead.
	if s%2 != 0 && s < 0 {
		c--
	}
	return c
}

// Contains reports whether pos lies within the travel range.
func (l Limits) Contains(pos int) bool {
	return l.Left <= pos && pos <= l.Right
}

// PositionName identifies one of the derived travel positions.
type PositionName int

const (
	// PositionMin is the left travel bound.
	PositionMin PositionName = iota
	// PositionCenter is the midpoint of the travel range.
	PositionCenter
	// PositionMax is the right travel bound.
	PositionMax
)

// PositionNames lists the derived positions in left-to-right order.
var PositionNames = []PositionName{PositionMin, PositionCenter, PositionMax}

func (n PositionName) String() string {
	switch n {
	case PositionMin:
		return "min"
	case PositionCenter:
		return "center"
	case PositionMax:
		return "max"
	}
	return "unknown"
}

// Position resolves a named position against the current bounds.
func (l Limits) Position(name PositionName) (int, error) {
	switch name {
	case PositionMin:
		return l.Min(), nil
	case PositionCenter:
		return l.Center(), nil
	case PositionMax:
		return l.Max(), nil
	}
	return 0, &RangeError{Param: "position name", Value: int(name), Min: int(PositionMin), Max: int(PositionMax)}
}

// ValidateSpeed confirms v lies within the controller's speed range.
func ValidateSpeed(v int) error {
	if v < SpeedMin || v > SpeedMax {
		return &RangeError{Param: "speed", Value: v, Min: SpeedMin, Max: SpeedMax}
	}
	return nil
}

// ValidateAcceleration confirms v lies within the controller's acceleration range.
func ValidateAcceleration(v int) error {
	if v < AccelerationMin || v > AccelerationMax {
		return &RangeError{Param: "acceleration", Value: v, Min: AccelerationMin, Max: AccelerationMax}
	}
	return nil
}
