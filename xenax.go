// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

/*
Package xenax provides a client for Jenny Science XENAX single-axis
servo controllers over their ASCII line protocol (TCP or RS-232).
*/
package xenax

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout reports a transaction that received no reply within
	// the deadline. The session stays usable; the next transaction
	// flushes whatever arrives late.
	ErrTimeout = errors.New("xenax: response timeout")
	// ErrConnectionLost reports a mid-session transport failure. The
	// session drops to Disconnected and needs a fresh Connect.
	ErrConnectionLost = errors.New("xenax: connection lost")
)

const (
	// DefaultPort is the controller's well-known TCP service port.
	DefaultPort = 10001

	// SpeedMin is the lowest accepted speed in increments per second.
	SpeedMin = 50
	// SpeedMax is the highest accepted speed in increments per second.
	SpeedMax = 10000000
	// AccelerationMin is the lowest accepted acceleration in increments per second squared.
	AccelerationMin = 100000
	// AccelerationMax is the highest accepted acceleration in increments per second squared.
	AccelerationMax = 10000000

	// DefaultSpeed is applied when no speed is configured.
	DefaultSpeed = 100000
	// DefaultAcceleration is applied when no acceleration is configured.
	DefaultAcceleration = 1000000

	// cmdTerminator ends every request line.
	cmdTerminator = '\r'
	// replyPrompt ends every reply block.
	replyPrompt = '>'
)

// CommandSet is the device command vocabulary. The mnemonics are
// firmware-defined and versioned; the zero value is not usable, start
// from DefaultCommandSet and override as the firmware requires.
// Commands taking a decimal argument are stored as the bare prefix,
// the argument is appended at call time.
type CommandSet struct {
	// Init is the ordered initialization sequence, executed strictly
	// first to last after connecting.
	Init []string

	PowerOn  string
	PowerOff string

	Speed        string
	Acceleration string

	Go           string
	TellPosition string
	JogPositive  string
	JogNegative  string
	StopMotion   string

	Input       string
	SetOutput   string
	ClearOutput string
}

// DefaultCommandSet returns the XENAX Xvi vocabulary.
// The init sequence disables command echo, powers the axis, enables
// event messages for the homing move, homes and disables them again.
func DefaultCommandSet() CommandSet {
	return CommandSet{
		Init:         []string{"ECH0", "PW", "EVT1", "HORM", "EVT0"},
		PowerOn:      "PW",
		PowerOff:     "PQ",
		Speed:        "SP",
		Acceleration: "AC",
		Go:           "G",
		TellPosition: "TP",
		JogPositive:  "JP",
		JogNegative:  "JN",
		StopMotion:   "SM",
		Input:        "TI",
		SetOutput:    "SO",
		ClearOutput:  "CO",
	}
}

// State is the session connection state.
type State int

const (
	// Disconnected sessions own no transport; only Connect is useful.
	Disconnected State = iota
	// Connected sessions have an open transport but have not run the
	// initialization sequence; queries work, motion commands do not.
	Connected
	// Initialized sessions accept the full operation set.
	Initialized
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connected:
		return "connected"
	case Initialized:
		return "initialized"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// RangeError reports a caller-supplied value outside its allowed range.
type RangeError struct {
	Param string
	Value int
	Min   int
	Max   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("xenax: %s '%v' must be between '%v' and '%v'", e.Param, e.Value, e.Min, e.Max)
}

// LimitError reports a limit pair violating left <= right.
type LimitError struct {
	Left  int
	Right int
}

func (e *LimitError) Error() string {
	return fmt.Sprintf("xenax: limit left '%v' must not exceed limit right '%v'", e.Left, e.Right)
}

// ProtocolError reports a reply that does not match the expected shape.
type ProtocolError struct {
	Command  string
	Response string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("xenax: malformed response %q to command %q", e.Response, e.Command)
}

// StateError reports an operation attempted in the wrong session state.
type StateError struct {
	Op       string
	State    State
	Required State
}

func (e *StateError) Error() string {
	return fmt.Sprintf("xenax: %s requires session state '%v', currently '%v'", e.Op, e.Required, e.State)
}
