// © Kay Sievers <kay@versioduo.com>, 2020-2022
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/versioduo/V2Device/pkg/device"
	"github.com/versioduo/V2Device/pkg/sysex"
)

const replyTimeout = 2 * time.Second

// Client exchanges JSON requests and replies with a device over a
// Connection. Incoming bytes are reassembled into system exclusive
// frames in a background goroutine; frames carrying other vendor IDs
// or non-JSON payloads are ignored.
type Client struct {
	conn    Connection
	replies chan map[string]any
	token   *uint32
}

func NewClient(conn Connection) *Client {
	c := &Client{
		conn:    conn,
		replies: make(chan map[string]any, 4),
	}

	go c.readLoop()
	return c
}

func (c *Client) readLoop() {
	collector := sysex.NewCollector()

	buf := make([]byte, 4096)
	for {
		n, err := c.conn.Read(buf)
		if err != nil {
			close(c.replies)
			return
		}

		for _, b := range buf[:n] {
			frame, err := collector.Feed(b)
			if err != nil || frame == nil {
				continue
			}

			reply := decodeReply(frame)
			if reply == nil {
				continue
			}

			select {
			case c.replies <- reply:
			default:
			}
		}
	}
}

// decodeReply unwraps the device namespace from a complete frame.
func decodeReply(frame []byte) map[string]any {
	if len(frame) < 4 || frame[1] != sysex.VendorPrivate {
		return nil
	}

	payload := frame[2 : len(frame)-1]
	if len(payload) < 2 || payload[0] != '{' || payload[len(payload)-1] != '}' {
		return nil
	}

	var envelope map[string]any
	if err := json.Unmarshal(payload, &envelope); err != nil {
		return nil
	}

	body, ok := envelope[device.Namespace].(map[string]any)
	if !ok {
		return nil
	}

	return body
}

// Send transmits a request without waiting for a reply. The device's
// boot token is added when one is known; the caller's map is left
// untouched.
func (c *Client) Send(request map[string]any) error {
	if c.token != nil {
		withToken := make(map[string]any, len(request)+1)
		for key, value := range request {
			withToken[key] = value
		}
		withToken["token"] = *c.token
		request = withToken
	}

	raw, err := json.Marshal(map[string]any{device.Namespace: request})
	if err != nil {
		return err
	}

	escaped, err := sysex.Escape(raw, sysex.MaxMessageSize-3)
	if err != nil {
		return err
	}

	_, err = c.conn.Write(sysex.Frame(escaped))
	return err
}

// Call transmits a request and waits for the next reply.
func (c *Client) Call(request map[string]any) (map[string]any, error) {
	if err := c.Send(request); err != nil {
		return nil, err
	}

	select {
	case reply, ok := <-c.replies:
		if !ok {
			return nil, ErrConnectionClosed
		}

		if token, ok := reply["token"].(float64); ok {
			t := uint32(token)
			c.token = &t
		}

		return reply, nil

	case <-time.After(replyTimeout):
		return nil, fmt.Errorf("no reply from device")
	}
}

// GetAll fetches the device's complete state and caches its boot token
// for subsequent requests.
func (c *Client) GetAll() (map[string]any, error) {
	return c.Call(map[string]any{"method": "getAll"})
}

// Connect opens the connection selected by the global flags and fetches
// the device's state.
func Connect() (*Client, map[string]any, error) {
	conn, desc, err := OpenConnection()
	if err != nil {
		return nil, nil, err
	}

	client := NewClient(conn)

	reply, err := client.GetAll()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("%s: %v", desc, err)
	}

	return client, reply, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}
