// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package xenax

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, d *fakeDevice, opts ...ClientOption) Client {
	t.Helper()
	handler := NewTCPClientHandler(d.addr(), WithTimeout(500*time.Millisecond))
	opts = append([]ClientOption{WithInitDelay(0)}, opts...)
	c, err := NewClient(handler, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { c.Disconnect() })
	return c
}

func TestClientLifecycle(t *testing.T) {
	d := newFakeDevice(t)
	c := newTestClient(t, d)

	assert.Equal(t, Disconnected, c.State())
	require.NoError(t, c.Connect())
	assert.Equal(t, Connected, c.State())

	var stateErr *StateError
	require.ErrorAs(t, c.Connect(), &stateErr)

	require.NoError(t, c.Initialize())
	assert.Equal(t, Initialized, c.State())
	assert.Equal(t,
		[]string{"ECH0", "PW", "EVT1", "HORM", "EVT0", "SP100000", "AC1000000"},
		d.commands())
}

func TestClientConnectFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c, err := TCPClient(addr)
	require.NoError(t, err)
	require.Error(t, c.Connect())
	assert.Equal(t, Disconnected, c.State())
}

func TestClientMotionRequiresInitialized(t *testing.T) {
	d := newFakeDevice(t)
	c := newTestClient(t, d, WithLimits(0, 135000))

	require.NoError(t, c.Connect())

	var stateErr *StateError
	require.ErrorAs(t, c.SetPosition(1000), &stateErr)
	assert.Equal(t, Initialized, stateErr.Required)
	require.ErrorAs(t, c.JogPositive(), &stateErr)
	require.ErrorAs(t, c.PowerOn(), &stateErr)
	assert.NotContains(t, d.commands(), "G1000")

	require.NoError(t, c.Initialize())
	require.NoError(t, c.SetPosition(1000))
	assert.Contains(t, d.commands(), "G1000")
}

func TestClientSetPositionValidation(t *testing.T) {
	d := newFakeDevice(t)
	c := newTestClient(t, d, WithLimits(0, 135000))

	require.NoError(t, c.Connect())
	require.NoError(t, c.Initialize())

	center := c.Limits().Center()
	assert.Equal(t, 67500, center)
	require.NoError(t, c.SetPosition(center))

	var rangeErr *RangeError
	require.ErrorAs(t, c.SetPosition(200000), &rangeErr)
	assert.Equal(t, 200000, rangeErr.Value)
	require.ErrorAs(t, c.SetPosition(-1), &rangeErr)

	// Rejected values never reach the wire.
	assert.NotContains(t, d.commands(), "G200000")
	assert.NotContains(t, d.commands(), "G-1")
}

func TestClientPosition(t *testing.T) {
	d := newFakeDevice(t)
	c := newTestClient(t, d)

	require.NoError(t, c.Connect())

	d.setPosition(1234)
	pos, err := c.Position()
	require.NoError(t, err)
	assert.Equal(t, 1234, pos)

	d.reply("TP", "12x4")
	_, err = c.Position()
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)
	assert.Equal(t, "12x4", protoErr.Response)
}

func TestClientResponseCache(t *testing.T) {
	d := newFakeDevice(t)
	c := newTestClient(t, d)

	_, ok := c.Response()
	assert.False(t, ok)

	require.NoError(t, c.Connect())
	d.setPosition(42)
	_, err := c.Position()
	require.NoError(t, err)

	served := len(d.commands())
	first, ok := c.Response()
	require.True(t, ok)
	second, ok := c.Response()
	require.True(t, ok)
	assert.Equal(t, first, second)
	assert.Equal(t, "42", first)
	// Peeking must not trigger transport reads.
	assert.Equal(t, served, len(d.commands()))
}

func TestClientInitializeTimeoutLeavesConnected(t *testing.T) {
	d := newFakeDevice(t)
	c := newTestClient(t, d)

	d.silence("HORM")
	require.NoError(t, c.Connect())

	err := c.Initialize()
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, Connected, c.State())

	// The channel resynchronizes on the next transaction.
	d.restore("HORM")
	require.NoError(t, c.Initialize())
	assert.Equal(t, Initialized, c.State())
}

func TestClientConnectionLost(t *testing.T) {
	d := newFakeDevice(t)
	c := newTestClient(t, d)

	d.dropOn("JP")
	require.NoError(t, c.Connect())
	require.NoError(t, c.Initialize())

	err := c.JogPositive()
	require.ErrorIs(t, err, ErrConnectionLost)
	assert.Equal(t, Disconnected, c.State())
	_, ok := c.Response()
	assert.False(t, ok)
}

func TestClientSpeedAcceleration(t *testing.T) {
	d := newFakeDevice(t)
	c := newTestClient(t, d)

	// Stored while disconnected, applied by initialization.
	require.NoError(t, c.SetSpeed(250000))
	require.NoError(t, c.SetAcceleration(2000000))
	assert.Empty(t, d.commands())

	require.NoError(t, c.Connect())
	require.NoError(t, c.Initialize())
	assert.Contains(t, d.commands(), "SP250000")
	assert.Contains(t, d.commands(), "AC2000000")

	require.NoError(t, c.SetSpeed(300000))
	assert.Equal(t, 300000, c.Speed())
	assert.Contains(t, d.commands(), "SP300000")

	var rangeErr *RangeError
	require.ErrorAs(t, c.SetSpeed(10), &rangeErr)
	assert.Equal(t, 300000, c.Speed())
	require.ErrorAs(t, c.SetAcceleration(AccelerationMax+1), &rangeErr)
	assert.Equal(t, 2000000, c.Acceleration())
}

func TestClientLimitSetters(t *testing.T) {
	d := newFakeDevice(t)
	c := newTestClient(t, d, WithLimits(0, 1000))

	var limitErr *LimitError
	require.ErrorAs(t, c.SetLimits(10, 5), &limitErr)
	assert.Equal(t, Limits{Left: 0, Right: 1000}, c.Limits())

	require.ErrorAs(t, c.SetMinPosition(2000), &limitErr)
	require.NoError(t, c.SetMinPosition(500))
	require.NoError(t, c.SetMaxPosition(1500))
	assert.Equal(t, Limits{Left: 500, Right: 1500}, c.Limits())
	assert.Equal(t, 1000, c.Limits().Center())
}

func TestClientInputOutput(t *testing.T) {
	d := newFakeDevice(t)
	c := newTestClient(t, d)

	require.NoError(t, c.Connect())
	require.NoError(t, c.Initialize())

	d.reply("TI3", "1")
	d.reply("TI4", "0")
	on, err := c.Input(3)
	require.NoError(t, err)
	assert.True(t, on)
	on, err = c.Input(4)
	require.NoError(t, err)
	assert.False(t, on)

	d.reply("TI5", "7")
	_, err = c.Input(5)
	var protoErr *ProtocolError
	require.ErrorAs(t, err, &protoErr)

	require.NoError(t, c.SetOutput(2, true))
	require.NoError(t, c.SetOutput(2, false))
	assert.Contains(t, d.commands(), "SO2")
	assert.Contains(t, d.commands(), "CO2")
}

func TestClientJogPowerStop(t *testing.T) {
	d := newFakeDevice(t)
	c := newTestClient(t, d)

	require.NoError(t, c.Connect())
	require.NoError(t, c.Initialize())

	require.NoError(t, c.JogPositive())
	require.NoError(t, c.JogNegative())
	require.NoError(t, c.Stop())
	require.NoError(t, c.PowerOff())
	require.NoError(t, c.PowerOn())

	cmds := d.commands()
	assert.Contains(t, cmds, "JP")
	assert.Contains(t, cmds, "JN")
	assert.Contains(t, cmds, "SM")
}

func TestClientDisconnect(t *testing.T) {
	d := newFakeDevice(t)
	c := newTestClient(t, d)

	// Never fails on state mismatch.
	require.NoError(t, c.Disconnect())
	assert.Equal(t, Disconnected, c.State())

	require.NoError(t, c.Connect())
	require.NoError(t, c.Initialize())
	require.NoError(t, c.Disconnect())
	assert.Equal(t, Disconnected, c.State())
	// Powered off on the way out, response cache cleared.
	assert.Contains(t, d.commands(), "PQ")
	_, ok := c.Response()
	assert.False(t, ok)

	// Reconnect works after a full teardown.
	require.NoError(t, c.Connect())
	require.NoError(t, c.Initialize())
}

func TestClientExec(t *testing.T) {
	d := newFakeDevice(t)
	c := newTestClient(t, d)

	var stateErr *StateError
	_, err := c.Exec("SV")
	require.ErrorAs(t, err, &stateErr)

	require.NoError(t, c.Connect())
	d.reply("SV", "430")
	reply, err := c.Exec("SV")
	require.NoError(t, err)
	assert.Equal(t, "430", reply)
}

func TestClientConstructorValidation(t *testing.T) {
	handler := NewTCPClientHandler("127.0.0.1:10001")

	_, err := NewClient(handler, WithLimits(5, 1))
	var limitErr *LimitError
	require.ErrorAs(t, err, &limitErr)

	var rangeErr *RangeError
	_, err = NewClient(handler, WithSpeed(1))
	require.ErrorAs(t, err, &rangeErr)
	_, err = NewClient(handler, WithAcceleration(1))
	require.ErrorAs(t, err, &rangeErr)

	c, err := NewClient(handler, WithLimits(0, 135000), WithSpeed(100000))
	require.NoError(t, err)
	assert.Equal(t, Disconnected, c.State())
}
