// Package ipc is the newline-delimited JSON protocol between murmur CLI
// invocations and the running daemon, carried over a unix socket. Every
// connection carries exactly one request and one response.
package ipc

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Commands understood by the daemon.
const (
	CommandStatus  = "status"
	CommandPress   = "press"
	CommandRelease = "release"
	CommandCancel  = "cancel"
	CommandReload  = "reload"
)

const maxMessageBytes = 64 << 10

type Request struct {
	Command string `json:"command"`
}

type Response struct {
	OK      bool   `json:"ok"`
	State   string `json:"state,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Fail builds an error response.
func Fail(state string, err error) Response {
	return Response{OK: false, State: state, Error: err.Error()}
}

// Ok builds a success response.
func Ok(state string, message string) Response {
	return Response{OK: true, State: state, Message: message}
}

var errDecode = errors.New("malformed message")

// readMessage reads one line and decodes it into v. Transport failures and
// malformed payloads are distinguishable through errDecode.
func readMessage(r io.Reader, v any) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 512), maxMessageBytes)
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return err
		}
		return io.EOF
	}
	if err := json.Unmarshal(sc.Bytes(), v); err != nil {
		return fmt.Errorf("%w: %w", errDecode, err)
	}
	return nil
}

// writeMessage encodes v as one line.
func writeMessage(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
