// Copyright 2014 Quoc-Viet Nguyen. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD license. See the LICENSE file for details.

package xenax

import (
	"fmt"
	"strings"
)

// replyCutset are the framing bytes stripped from a decoded reply.
const replyCutset = "> \t\r\n"

// asciiPackager implements the Packager interface for the
// CR-terminated request / prompt-terminated reply line framing.
type asciiPackager struct{}

// Encode appends the request terminator:
//
//	Mnemonic + argument : 1 up to 32 chars
//	Terminator          : 1 char (CR)
func (p *asciiPackager) Encode(cmd string) ([]byte, error) {
	if cmd == "" {
		return nil, fmt.Errorf("xenax: cannot encode empty command")
	}
	if strings.ContainsAny(cmd, "\r\n") {
		return nil, fmt.Errorf("xenax: command %q must not contain line terminators", cmd)
	}
	return append([]byte(cmd), cmdTerminator), nil
}

// Decode extracts the payload from a reply block:
//
//	Payload     : 0 up to n chars
//	End         : CR LF
//	Prompt      : 1 char ('>')
//
// If the block still carries earlier prompt-delimited segments (a
// stale reply that survived the pre-send flush), only the segment
// after the last interior prompt belongs to the current transaction.
func (p *asciiPackager) Decode(raw []byte) (string, error) {
	if len(raw) == 0 {
		return "", fmt.Errorf("xenax: cannot decode empty response")
	}
	s := strings.TrimRight(string(raw), replyCutset)
	if i := strings.LastIndexByte(s, replyPrompt); i >= 0 {
		s = s[i+1:]
	}
	return strings.Trim(s, replyCutset), nil
}
