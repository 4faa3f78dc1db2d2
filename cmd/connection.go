// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// Connection provides a common interface for exchanging raw MIDI bytes
// with a device over a MIDI port, a serial line, or a WebSocket bridge.
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// ErrConnectionClosed is returned when reading from a closed connection
var ErrConnectionClosed = fmt.Errorf("connection closed")

// SerialConnection wraps a serial port carrying a DIN-MIDI byte stream
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// WebSocketConnection wraps a WebSocket bridge for byte-level reading
type WebSocketConnection struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}

	// Return buffered data first
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			return 0, err
		}

		// The bridge carries the MIDI stream in binary messages
		if messageType != websocket.BinaryMessage {
			continue
		}

		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// MIDIConnection wraps a pair of MIDI ports. Received messages are
// flattened back into a byte stream; writes must be complete messages.
type MIDIConnection struct {
	drv    *rtmididrv.Driver
	in     drivers.In
	out    drivers.Out
	stop   func()
	queue  chan []byte
	buf    []byte
	offset int
	closed bool
}

func (m *MIDIConnection) Read(p []byte) (int, error) {
	if m.closed {
		return 0, ErrConnectionClosed
	}

	if m.offset < len(m.buf) {
		n := copy(p, m.buf[m.offset:])
		m.offset += n
		return n, nil
	}

	data, ok := <-m.queue
	if !ok {
		m.closed = true
		return 0, ErrConnectionClosed
	}

	m.buf = data
	m.offset = 0
	n := copy(p, m.buf)
	m.offset = n
	return n, nil
}

func (m *MIDIConnection) Write(p []byte) (int, error) {
	if err := m.out.Send(p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (m *MIDIConnection) Close() error {
	if m.stop != nil {
		m.stop()
	}
	if m.in != nil {
		_ = m.in.Close()
	}
	if m.out != nil {
		_ = m.out.Close()
	}
	m.drv.Close()
	return nil
}

// OpenSerialConnection opens a serial port connection
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", portName, err)
	}

	return &SerialConnection{port: port}, nil
}

// OpenMIDIConnection opens the input/output port pair whose names contain
// the given substring.
func OpenMIDIConnection(name string) (Connection, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmidi: %v", err)
	}

	conn := &MIDIConnection{drv: drv, queue: make(chan []byte, 16)}

	ins, err := drv.Ins()
	if err != nil {
		conn.Close()
		return nil, err
	}
	for _, in := range ins {
		if strings.Contains(in.String(), name) {
			conn.in = in
			break
		}
	}
	if conn.in == nil {
		conn.Close()
		return nil, fmt.Errorf("no MIDI input matching %q", name)
	}

	outs, err := drv.Outs()
	if err != nil {
		conn.Close()
		return nil, err
	}
	for _, out := range outs {
		if strings.Contains(out.String(), name) {
			conn.out = out
			break
		}
	}
	if conn.out == nil {
		conn.Close()
		return nil, fmt.Errorf("no MIDI output matching %q", name)
	}

	if err := conn.in.Open(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open %q: %v", conn.in.String(), err)
	}
	if err := conn.out.Open(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("open %q: %v", conn.out.String(), err)
	}

	stop, err := midi.ListenTo(conn.in, func(msg midi.Message, _ int32) {
		data := make([]byte, len(msg))
		copy(data, msg)
		select {
		case conn.queue <- data:
		default:
			// Drop when the reader falls behind, like a UART would.
		}
	}, midi.UseSysEx())
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("listen %q: %v", conn.in.String(), err)
	}

	conn.stop = stop
	return conn, nil
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	return &WebSocketConnection{conn: conn}, nil
}

// GetPassword retrieves the password from the environment or prompts for it
func GetPassword() (string, error) {
	if pw := os.Getenv("V2_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenConnection opens a MIDI, serial, or WebSocket connection based on
// the global flags
func OpenConnection() (Connection, string, error) {
	if midiPortName != "" {
		conn, err := OpenMIDIConnection(midiPortName)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("MIDI: %s", midiPortName), nil
	}

	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := OpenWebSocketConnection(wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if portName != "" {
		conn, err := OpenSerialConnection(portName, baudRate)
		if err != nil {
			return nil, "", err
		}

		return conn, fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil
	}

	return nil, "", fmt.Errorf("one of --midi, --port or --url must be specified")
}
