// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package xenax

import (
	"time"
)

// SerialClientHandler implements Packager, Transporter and Connector
// for controllers attached through the RS-232 service port.
type SerialClientHandler struct {
	asciiPackager
	serialTransporter
}

// NewSerialClientHandler allocates and initializes a SerialClientHandler.
func NewSerialClientHandler(address string) *SerialClientHandler {
	handler := &SerialClientHandler{}
	handler.Config = xviSerialConfig(address)
	handler.IdleTimeout = serialIdleTimeout
	return handler
}

// serialTransporter implements Transporter interface.
type serialTransporter struct {
	SerialPort

	// stale is set when a transaction failed after its request was
	// written; the reply may still arrive and must be drained before
	// the next request goes out.
	stale bool
}

// Send performs one transaction on the port: it discards any reply
// block left over from a failed transaction, writes the request and
// reads until the reply prompt arrives or the port timeout elapses.
func (t *serialTransporter) Send(request []byte) (response []byte, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	// Make sure port is connected
	if err = t.connect(); err != nil {
		return
	}
	// Start the timer to close when idle
	t.lastActivity = time.Now()
	t.startCloseTimer()

	if t.stale {
		t.drain()
		t.stale = false
	}

	// Send the request
	t.logf("xenax: send %q", request)
	if _, err = t.port.Write(request); err != nil {
		return
	}

	// Get the response
	var data [tcpMaxLength]byte
	var length int
	for {
		var n int
		n, err = t.port.Read(data[length:])
		if err != nil {
			t.stale = true
			return nil, err
		}
		length += n
		if length > 0 && data[length-1] == replyPrompt {
			break
		}
		if length >= tcpMaxLength {
			t.stale = true
			return nil, ErrReplyTooLong(length)
		}
	}
	response = data[:length]
	t.logf("xenax: recv %q", response)
	return response, nil
}

// drain discards the pending reply of a failed transaction. A serial
// port offers no non-blocking read, so the drain reads with the
// configured port timeout and stops at the first prompt or when
// nothing more arrives.
func (t *serialTransporter) drain() {
	buffer := make([]byte, tcpMaxLength)
	for {
		n, err := t.port.Read(buffer)
		if n > 0 {
			t.logf("xenax: flushed %d stale bytes", n)
		}
		if err != nil {
			return
		}
		if n > 0 && buffer[n-1] == replyPrompt {
			return
		}
	}
}
