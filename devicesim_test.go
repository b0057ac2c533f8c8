// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package xenax

import (
	"bufio"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type deviceAction int

const (
	actReply deviceAction = iota
	actSilent
	actClose
)

// fakeDevice simulates a controller speaking the default dialect: it
// reads CR-terminated commands and answers each with an optional
// payload followed by CR LF and the prompt. Commands can be overridden
// to reply with fixed payloads, stay silent or drop the connection.
type fakeDevice struct {
	ln net.Listener

	mu       sync.Mutex
	position int
	served   []string
	replies  map[string]string
	silent   map[string]bool
	dropping map[string]bool
}

func newFakeDevice(t *testing.T) *fakeDevice {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	d := &fakeDevice{
		ln:       ln,
		replies:  make(map[string]string),
		silent:   make(map[string]bool),
		dropping: make(map[string]bool),
	}
	go d.serve()
	t.Cleanup(func() { ln.Close() })
	return d
}

func (d *fakeDevice) addr() string { return d.ln.Addr().String() }

func (d *fakeDevice) reply(cmd, payload string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.replies[cmd] = payload
}

func (d *fakeDevice) silence(cmd string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.silent[cmd] = true
}

func (d *fakeDevice) dropOn(cmd string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropping[cmd] = true
}

func (d *fakeDevice) restore(cmd string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.replies, cmd)
	delete(d.silent, cmd)
	delete(d.dropping, cmd)
}

func (d *fakeDevice) commands() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.served...)
}

func (d *fakeDevice) setPosition(v int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.position = v
}

func (d *fakeDevice) serve() {
	for {
		conn, err := d.ln.Accept()
		if err != nil {
			return
		}
		go d.handle(conn)
	}
}

func (d *fakeDevice) handle(conn net.Conn) {
	defer conn.Close()
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\r')
		if err != nil {
			return
		}
		payload, action := d.dispatch(strings.TrimSuffix(line, "\r"))
		switch action {
		case actClose:
			return
		case actSilent:
			continue
		}
		if _, err := conn.Write([]byte(payload + "\r\n>")); err != nil {
			return
		}
	}
}

func (d *fakeDevice) dispatch(cmd string) (string, deviceAction) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.served = append(d.served, cmd)
	if d.dropping[cmd] {
		return "", actClose
	}
	if d.silent[cmd] {
		return "", actSilent
	}
	if payload, ok := d.replies[cmd]; ok {
		return payload, actReply
	}
	switch {
	case cmd == "TP":
		return strconv.Itoa(d.position), actReply
	case strings.HasPrefix(cmd, "G"):
		if v, err := strconv.Atoi(cmd[1:]); err == nil {
			d.position = v
		}
		return "", actReply
	}
	return "", actReply
}
