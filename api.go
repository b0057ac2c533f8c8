// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package xenax

// Client declares the functionality of a controller session regardless
// of the underlying transport stream.
type Client interface {
	// Lifecycle

	// Connect opens the transport and moves the session from
	// Disconnected to Connected. The controller is not ready for
	// motion commands until Initialize has run.
	Connect() error
	// Initialize runs the configured initialization sequence and
	// re-applies speed and acceleration, moving the session from
	// Connected to Initialized. A command failure aborts the sequence
	// and leaves the session Connected.
	Initialize() error
	// Disconnect closes the transport, clears the response cache and
	// moves the session to Disconnected from any state. The state
	// transition is unconditional; the returned error only reports a
	// transport close failure.
	Disconnect() error
	// State returns the current session state.
	State() State

	// Motion

	// Position queries the current axis position in increments.
	Position() (int, error)
	// SetPosition commands an absolute move. It validates the target
	// against the travel limits before any I/O and returns without
	// waiting for motion to complete; poll Position to observe it.
	SetPosition(value int) error
	// JogPositive starts continuous motion towards the right limit.
	// Motion continues until Stop or an absolute move is issued.
	JogPositive() error
	// JogNegative starts continuous motion towards the left limit.
	JogNegative() error
	// Stop ends a jog or an in-flight move.
	Stop() error

	// Parameters

	// Speed returns the configured speed in increments per second.
	Speed() int
	// SetSpeed validates and stores a new speed, and applies it to the
	// device when the session is connected.
	SetSpeed(value int) error
	// Acceleration returns the configured acceleration.
	Acceleration() int
	// SetAcceleration validates and stores a new acceleration, and
	// applies it to the device when the session is connected.
	SetAcceleration(value int) error
	// Limits returns the configured travel limits.
	Limits() Limits
	// SetLimits replaces both travel limits, rejecting left > right.
	SetLimits(left, right int) error
	// SetMinPosition moves the left travel limit, re-validating the
	// pair against the right limit.
	SetMinPosition(value int) error
	// SetMaxPosition moves the right travel limit, re-validating the
	// pair against the left limit.
	SetMaxPosition(value int) error

	// Power and digital I/O

	// PowerOn enables the axis power stage.
	PowerOn() error
	// PowerOff disables the axis power stage.
	PowerOff() error
	// Input reads the state of a digital input pin.
	Input(pin int) (bool, error)
	// SetOutput drives a digital output pin.
	SetOutput(pin int, on bool) error

	// Raw access

	// Exec sends a raw command from the device vocabulary and returns
	// its decoded reply.
	Exec(cmd string) (string, error)
	// Response returns the reply of the most recent successful
	// transaction without any I/O. ok is false until the first
	// transaction completes; Disconnect resets it.
	Response() (response string, ok bool)
}

// Packager specifies the line framing layer.
type Packager interface {
	Encode(cmd string) (request []byte, err error)
	Decode(response []byte) (reply string, err error)
}

// Transporter specifies the transport layer. Send performs one full
// transaction: it discards stale unread bytes, writes the request and
// reads until the reply prompt or the configured timeout.
type Transporter interface {
	Send(request []byte) (response []byte, err error)
}

// Connector exposes the underlying handler capability for open/connect and close the transport channel.
type Connector interface {
	Connect() error
	Close() error
}

// ClientHandler is the interface that groups the Packager, Transporter
// and Connector methods.
type ClientHandler interface {
	Packager
	Transporter
	Connector
}
