// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package xenax

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"
)

// logger is the interface to the required logging functions
type logger interface {
	Printf(format string, v ...interface{})
}

// DefaultInitDelay is the settle time between initialization commands.
// The controller acknowledges HORM before the homing move finishes;
// issuing the next command immediately can interleave with event
// messages from the move.
const DefaultInitDelay = 200 * time.Millisecond

// ClientOption configures a client created by NewClient.
type ClientOption func(*client)

// WithLimits sets the initial travel limits in encoder increments.
func WithLimits(left, right int) ClientOption {
	return func(c *client) {
		c.limits = Limits{Left: left, Right: right}
	}
}

// WithSpeed sets the initial speed in increments per second.
func WithSpeed(value int) ClientOption {
	return func(c *client) {
		c.speed = value
	}
}

// WithAcceleration sets the initial acceleration in increments per second squared.
func WithAcceleration(value int) ClientOption {
	return func(c *client) {
		c.acceleration = value
	}
}

// WithCommandSet replaces the device command vocabulary, e.g. for a
// different firmware generation or a simulated device.
func WithCommandSet(commands CommandSet) ClientOption {
	return func(c *client) {
		c.commands = commands
	}
}

// WithInitDelay sets the settle time between initialization commands.
func WithInitDelay(delay time.Duration) ClientOption {
	return func(c *client) {
		c.initDelay = delay
	}
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(l logger) ClientOption {
	return func(c *client) {
		c.logger = l
	}
}

type client struct {
	packager    Packager
	transporter Transporter
	connector   Connector
	commands    CommandSet
	initDelay   time.Duration
	logger      logger

	mu           sync.Mutex
	state        State
	limits       Limits
	speed        int
	acceleration int
	lastResponse string
	hasResponse  bool
}

// NewClient creates a new controller session with the given backend
// handler. Configured limits, speed and acceleration are validated
// before the session is returned; no I/O happens until Connect.
func NewClient(handler ClientHandler, opts ...ClientOption) (Client, error) {
	c := &client{
		packager:     handler,
		transporter:  handler,
		connector:    handler,
		commands:     DefaultCommandSet(),
		initDelay:    DefaultInitDelay,
		speed:        DefaultSpeed,
		acceleration: DefaultAcceleration,
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.limits.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateSpeed(c.speed); err != nil {
		return nil, err
	}
	if err := ValidateAcceleration(c.acceleration); err != nil {
		return nil, err
	}
	return c, nil
}

// TCPClient creates a session with a default TCP handler and the given
// connect string.
func TCPClient(address string, opts ...ClientOption) (Client, error) {
	return NewClient(NewTCPClientHandler(address), opts...)
}

// SerialClient creates a session with a default serial handler and the
// given port name.
func SerialClient(address string, opts ...ClientOption) (Client, error) {
	return NewClient(NewSerialClientHandler(address), opts...)
}

func (c *client) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != Disconnected {
		return &StateError{Op: "connect", State: c.state, Required: Disconnected}
	}
	if err := c.connector.Connect(); err != nil {
		return fmt.Errorf("xenax: cannot connect controller: %w", err)
	}
	c.state = Connected
	return nil
}

func (c *client) Initialize() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Disconnected {
		return &StateError{Op: "initialize", State: c.state, Required: Connected}
	}
	for _, cmd := range c.commands.Init {
		if _, err := c.exec(cmd); err != nil {
			return fmt.Errorf("xenax: initialization halted at %q: %w", cmd, err)
		}
		if c.initDelay > 0 {
			time.Sleep(c.initDelay)
		}
	}
	// Re-apply motion parameters, the power cycle in the init sequence
	// resets them on the device.
	if _, err := c.exec(c.commands.Speed + strconv.Itoa(c.speed)); err != nil {
		return fmt.Errorf("xenax: initialization halted applying speed: %w", err)
	}
	if _, err := c.exec(c.commands.Acceleration + strconv.Itoa(c.acceleration)); err != nil {
		return fmt.Errorf("xenax: initialization halted applying acceleration: %w", err)
	}
	c.state = Initialized
	return nil
}

func (c *client) Disconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == Initialized {
		// Best effort, the axis should not stay powered unattended.
		if _, err := c.exec(c.commands.PowerOff); err != nil {
			c.logf("xenax: power off on disconnect failed: %v", err)
		}
	}
	err := c.connector.Close()
	c.state = Disconnected
	c.lastResponse = ""
	c.hasResponse = false
	return err
}

func (c *client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *client) Position() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.require("get position", Connected); err != nil {
		return 0, err
	}
	reply, err := c.exec(c.commands.TellPosition)
	if err != nil {
		return 0, err
	}
	value, err := strconv.Atoi(strings.TrimSpace(reply))
	if err != nil {
		return 0, &ProtocolError{Command: c.commands.TellPosition, Response: reply}
	}
	return value, nil
}

func (c *client) SetPosition(value int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.require("set position", Initialized); err != nil {
		return err
	}
	if !c.limits.Contains(value) {
		return &RangeError{Param: "position", Value: value, Min: c.limits.Min(), Max: c.limits.Max()}
	}
	_, err := c.exec(c.commands.Go + strconv.Itoa(value))
	return err
}

func (c *client) JogPositive() error {
	return c.motionCommand("jog positive", c.commands.JogPositive)
}

func (c *client) JogNegative() error {
	return c.motionCommand("jog negative", c.commands.JogNegative)
}

func (c *client) Stop() error {
	return c.motionCommand("stop", c.commands.StopMotion)
}

func (c *client) PowerOn() error {
	return c.motionCommand("power on", c.commands.PowerOn)
}

func (c *client) PowerOff() error {
	return c.motionCommand("power off", c.commands.PowerOff)
}

func (c *client) Speed() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.speed
}

func (c *client) SetSpeed(value int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ValidateSpeed(value); err != nil {
		return err
	}
	c.speed = value
	if c.state == Disconnected {
		// Applied by the next initialization.
		return nil
	}
	_, err := c.exec(c.commands.Speed + strconv.Itoa(value))
	return err
}

func (c *client) Acceleration() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.acceleration
}

func (c *client) SetAcceleration(value int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := ValidateAcceleration(value); err != nil {
		return err
	}
	c.acceleration = value
	if c.state == Disconnected {
		return nil
	}
	_, err := c.exec(c.commands.Acceleration + strconv.Itoa(value))
	return err
}

func (c *client) Limits() Limits {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.limits
}

func (c *client) SetLimits(left, right int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.setLimits(Limits{Left: left, Right: right})
}

func (c *client) SetMinPosition(value int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.setLimits(Limits{Left: value, Right: c.limits.Right})
}

func (c *client) SetMaxPosition(value int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.setLimits(Limits{Left: c.limits.Left, Right: value})
}

// setLimits validates and stores a limit pair. Caller must hold the mutex.
func (c *client) setLimits(limits Limits) error {
	if err := limits.Validate(); err != nil {
		return err
	}
	c.limits = limits
	return nil
}

func (c *client) Input(pin int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.require("read input", Initialized); err != nil {
		return false, err
	}
	cmd := c.commands.Input + strconv.Itoa(pin)
	reply, err := c.exec(cmd)
	if err != nil {
		return false, err
	}
	switch strings.TrimSpace(reply) {
	case "0":
		return false, nil
	case "1":
		return true, nil
	}
	return false, &ProtocolError{Command: cmd, Response: reply}
}

func (c *client) SetOutput(pin int, on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.require("write output", Initialized); err != nil {
		return err
	}
	cmd := c.commands.ClearOutput
	if on {
		cmd = c.commands.SetOutput
	}
	_, err := c.exec(cmd + strconv.Itoa(pin))
	return err
}

func (c *client) Exec(cmd string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.require("exec", Connected); err != nil {
		return "", err
	}
	return c.exec(cmd)
}

func (c *client) Response() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.lastResponse, c.hasResponse
}

// motionCommand issues an argument-less command requiring an
// initialized session.
func (c *client) motionCommand(op, cmd string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.require(op, Initialized); err != nil {
		return err
	}
	_, err := c.exec(cmd)
	return err
}

// require confirms the session has reached at least the given state.
// Caller must hold the mutex.
func (c *client) require(op string, min State) error {
	if c.state < min {
		return &StateError{Op: op, State: c.state, Required: min}
	}
	return nil
}

// exec runs one transaction and caches the decoded reply. A timeout
// leaves the session state untouched, the flush at the start of the
// next transaction resynchronizes the channel. Any other transport
// failure closes the connection and forces the session to
// Disconnected. Caller must hold the mutex.
func (c *client) exec(cmd string) (string, error) {
	request, err := c.packager.Encode(cmd)
	if err != nil {
		return "", err
	}
	raw, err := c.transporter.Send(request)
	if err != nil {
		if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
			return "", fmt.Errorf("%w: command %q: %w", ErrTimeout, cmd, err)
		}
		c.dropConnection()
		return "", fmt.Errorf("%w: command %q: %w", ErrConnectionLost, cmd, err)
	}
	reply, err := c.packager.Decode(raw)
	if err != nil {
		return "", err
	}
	c.lastResponse = reply
	c.hasResponse = true
	return reply, nil
}

// dropConnection tears the session down after a mid-transaction
// transport failure. Caller must hold the mutex.
func (c *client) dropConnection() {
	if err := c.connector.Close(); err != nil {
		c.logf("xenax: closing broken connection: %v", err)
	}
	c.state = Disconnected
	c.lastResponse = ""
	c.hasResponse = false
}

func (c *client) logf(format string, v ...interface{}) {
	if c.logger != nil {
		c.logger.Printf(format, v...)
	}
}
