// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package xenax

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/grid-x/serial"
)

const (
	// Default timeout
	serialTimeout     = 5 * time.Second
	serialIdleTimeout = 60 * time.Second

	// RS-232 service port parameters of the Xvi, fixed by firmware:
	// 115200 baud, 8 data bits, 1 stop bit, no parity, no handshake.
	serialBaudRate = 115200
	serialDataBits = 8
	serialStopBits = 1
	serialParity   = "N"
)

// xviSerialConfig returns the port configuration the controller's
// RS-232 service port expects.
func xviSerialConfig(address string) serial.Config {
	return serial.Config{
		Address:  address,
		BaudRate: serialBaudRate,
		DataBits: serialDataBits,
		StopBits: serialStopBits,
		Parity:   serialParity,
		Timeout:  serialTimeout,
	}
}

// SerialPort is a lazily opened RS-232 connection to the controller's
// service port. The port is opened on first use and closed again after
// IdleTimeout without traffic.
type SerialPort struct {
	// Port configuration. Baud rate, framing and parity default to the
	// controller's fixed service-port parameters.
	serial.Config

	Logger      logger
	IdleTimeout time.Duration

	mu sync.Mutex
	// port is platform-dependent data structure for serial port.
	port         io.ReadWriteCloser
	lastActivity time.Time
	closeTimer   *time.Timer
}

// NewSerialPort returns a port configured for the controller's RS-232
// service port at address, e.g. /dev/ttyUSB0.
func NewSerialPort(address string) *SerialPort {
	return &SerialPort{
		Config:      xviSerialConfig(address),
		IdleTimeout: serialIdleTimeout,
	}
}

// Connect opens the port.
func (p *SerialPort) Connect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.connect()
}

// connect opens the port if it is not open. Caller must hold the mutex.
func (p *SerialPort) connect() error {
	if p.port == nil {
		port, err := serial.Open(&p.Config)
		if err != nil {
			return fmt.Errorf("could not open %s: %w", p.Config.Address, err)
		}
		p.port = port
	}
	return nil
}

// Close closes the port.
func (p *SerialPort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.close()
}

// close closes the port if it is open. Caller must hold the mutex.
func (p *SerialPort) close() (err error) {
	if p.port != nil {
		err = p.port.Close()
		p.port = nil
	}
	return
}

func (p *SerialPort) logf(format string, v ...interface{}) {
	if p.Logger != nil {
		p.Logger.Printf(format, v...)
	}
}

func (p *SerialPort) startCloseTimer() {
	if p.IdleTimeout <= 0 {
		return
	}
	if p.closeTimer == nil {
		p.closeTimer = time.AfterFunc(p.IdleTimeout, p.closeIdle)
	} else {
		p.closeTimer.Reset(p.IdleTimeout)
	}
}

// closeIdle closes the port once lastActivity is IdleTimeout behind.
func (p *SerialPort) closeIdle() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.IdleTimeout <= 0 {
		return
	}
	if idle := time.Since(p.lastActivity); idle >= p.IdleTimeout {
		p.logf("xenax: closing serial port after %v idle", idle)
		p.close()
	}
}
