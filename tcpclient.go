// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package xenax

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"
)

const (
	// tcpMaxLength bounds one reply block including stale segments.
	tcpMaxLength = 1024

	// Default TCP timeouts
	tcpTimeout     = 5 * time.Second
	tcpIdleTimeout = 60 * time.Second
)

// ErrReplyTooLong informs about a reply block exceeding the buffer
// without a terminating prompt.
type ErrReplyTooLong int

func (length ErrReplyTooLong) Error() string {
	return fmt.Sprintf("xenax: reply of '%d' bytes has no prompt within '%v' bytes", length, tcpMaxLength)
}

// DialFunc dials the controller. The context carries the dial timeout.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

func defaultDialFunc(timeout time.Duration) DialFunc {
	dialer := net.Dialer{Timeout: timeout}
	return dialer.DialContext
}

// TCPClientHandler implements Packager, Transporter and Connector.
type TCPClientHandler struct {
	asciiPackager
	tcpTransporter
}

// TCPClientHandlerOption configures a TCPClientHandler.
type TCPClientHandlerOption func(*TCPClientHandler)

// WithDialer lets the handler use a pre-dialed or otherwise custom
// connection instead of dialing the address itself.
func WithDialer(dial DialFunc) TCPClientHandlerOption {
	return func(h *TCPClientHandler) {
		h.Dial = dial
	}
}

// WithTimeout sets the per-transaction read/write deadline.
func WithTimeout(timeout time.Duration) TCPClientHandlerOption {
	return func(h *TCPClientHandler) {
		h.Timeout = timeout
	}
}

// WithIdleTimeout sets how long an unused connection is kept open.
// Zero disables connection caching.
func WithIdleTimeout(timeout time.Duration) TCPClientHandlerOption {
	return func(h *TCPClientHandler) {
		h.IdleTimeout = timeout
	}
}

// WithLogger sets the transmission logger.
func WithLogger(l logger) TCPClientHandlerOption {
	return func(h *TCPClientHandler) {
		h.Logger = l
	}
}

// NewTCPClientHandler allocates a new TCPClientHandler.
func NewTCPClientHandler(address string, opts ...TCPClientHandlerOption) *TCPClientHandler {
	h := &TCPClientHandler{}
	h.Address = address
	h.Timeout = tcpTimeout
	h.IdleTimeout = tcpIdleTimeout
	for _, opt := range opts {
		opt(h)
	}
	if h.Dial == nil {
		h.Dial = defaultDialFunc(h.Timeout)
	}
	return h
}

// tcpTransporter implements Transporter interface.
type tcpTransporter struct {
	// Connect string
	Address string
	// Connect & Read timeout
	Timeout time.Duration
	// Idle timeout to close the connection
	IdleTimeout time.Duration
	// Dial creates the connection
	Dial DialFunc
	// Transmission logger
	Logger logger

	// TCP connection
	mu           sync.Mutex
	conn         net.Conn
	closeTimer   *time.Timer
	lastActivity time.Time
}

// Send performs one transaction: it flushes stale unread bytes, writes
// the request and reads until the reply prompt arrives or the deadline
// elapses.
func (mb *tcpTransporter) Send(request []byte) (response []byte, err error) {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	// Establish a new connection if not connected
	if err = mb.connect(); err != nil {
		return
	}

	// A reply to a previously timed-out request may already sit in the
	// buffer and would be taken for the reply to this request. Flush
	// any unread bytes before sending; the previous request was
	// answered with a timeout error, its reply is of no use anymore.

	// Be aware that this call resets the read deadline.
	if err = mb.flushAll(); err != nil {
		mb.close()
		return
	}

	// Set timer to close when idle
	mb.lastActivity = time.Now()
	mb.startCloseTimer()
	// Set write and read timeout
	var timeout time.Time
	if mb.Timeout > 0 {
		timeout = mb.lastActivity.Add(mb.Timeout)
	}
	if err = mb.conn.SetDeadline(timeout); err != nil {
		return
	}

	// Send data
	mb.logf("xenax: send %q", request)
	if _, err = mb.conn.Write(request); err != nil {
		return
	}

	// Read until the prompt terminates the reply block
	var data [tcpMaxLength]byte
	var length int
	for {
		var n int
		n, err = mb.conn.Read(data[length:])
		if err != nil {
			return nil, err
		}
		length += n
		if length > 0 && data[length-1] == replyPrompt {
			break
		}
		if length >= tcpMaxLength {
			return nil, ErrReplyTooLong(length)
		}
	}
	response = data[:length]
	mb.logf("xenax: recv %q", response)
	return response, nil
}

// Connect establishes a new connection to the address in Address.
// Connect and Close are exported so that multiple requests can be done with one session
func (mb *tcpTransporter) Connect() error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	return mb.connect()
}

func (mb *tcpTransporter) connect() error {
	if mb.conn == nil {
		dial := mb.Dial
		if dial == nil {
			dial = defaultDialFunc(mb.Timeout)
		}
		conn, err := dial(context.Background(), "tcp", mb.Address)
		if err != nil {
			return err
		}
		mb.conn = conn
	}
	return nil
}

func (mb *tcpTransporter) startCloseTimer() {
	if mb.IdleTimeout <= 0 {
		return
	}
	if mb.closeTimer == nil {
		mb.closeTimer = time.AfterFunc(mb.IdleTimeout, mb.closeIdle)
	} else {
		mb.closeTimer.Reset(mb.IdleTimeout)
	}
}

// Close closes current connection.
func (mb *tcpTransporter) Close() error {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	return mb.close()
}

func (mb *tcpTransporter) logf(format string, v ...interface{}) {
	if mb.Logger != nil {
		mb.Logger.Printf(format, v...)
	}
}

// close closes current connection. Caller must hold the mutex before calling this method.
func (mb *tcpTransporter) close() (err error) {
	if mb.conn != nil {
		err = mb.conn.Close()
		mb.conn = nil
	}
	return
}

// closeIdle closes the connection if last activity is passed behind IdleTimeout.
func (mb *tcpTransporter) closeIdle() {
	mb.mu.Lock()
	defer mb.mu.Unlock()

	if mb.IdleTimeout <= 0 {
		return
	}
	if idle := time.Since(mb.lastActivity); idle >= mb.IdleTimeout {
		mb.logf("xenax: closing connection due to idle timeout: %v", idle)
		mb.close()
	}
}

// flushAll implements a non-blocking read flush. Be warned it resets
// the read deadline.
func (mb *tcpTransporter) flushAll() error {
	if err := mb.conn.SetReadDeadline(time.Now()); err != nil {
		return err
	}

	buffer := make([]byte, tcpMaxLength)
	for {
		n, err := mb.conn.Read(buffer)
		if err != nil {
			// The deadline in the past makes a drained buffer surface
			// as a timeout; that is the expected exit.
			if netError, ok := err.(net.Error); ok && netError.Timeout() {
				return nil
			}
			return err
		}
		if n == 0 {
			return nil
		}
		mb.logf("xenax: flushed %d stale bytes", n)
	}
}
