// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package broker

import (
	"errors"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/sensormesh/gatewaykit/packets"
)

// connState is the per-connection protocol state.
type connState int

const (
	stateAwaitingConnect connState = iota
	stateConnected
	stateClosed
)

func (s connState) String() string {
	switch s {
	case stateAwaitingConnect:
		return "awaiting_connect"
	case stateConnected:
		return "connected"
	case stateClosed:
		return "closed"
	}
	return "unknown"
}

// errReadTimeout marks a transient read deadline expiry; the read loop
// retries without a state change.
var errReadTimeout = errors.New("read timeout")

// connection owns one accepted socket and runs its protocol state machine.
// A new connection always starts a new instance; there is no reconnection.
type connection struct {
	broker       *Broker
	sock         net.Conn
	logger       *slog.Logger
	state        connState
	lastActivity time.Time
	buf          []byte
}

func newConnection(b *Broker, sock net.Conn) *connection {
	return &connection{
		broker: b,
		sock:   sock,
		logger: b.cfg.Logger.With(slog.String("remote", sock.RemoteAddr().String())),
		state:  stateAwaitingConnect,
		buf:    make([]byte, b.cfg.ReadBufferSize),
	}
}

// serve runs the state machine until the connection reaches stateClosed.
// Failures are isolated here: nothing a single connection does may
// terminate the broker or another connection.
func (c *connection) serve() {
	defer c.close()
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("connection handler panic", slog.Any("panic", r))
		}
	}()

	for c.state != stateClosed {
		switch c.state {
		case stateAwaitingConnect:
			c.awaitConnect()
		case stateConnected:
			c.serveConnected()
		}
	}
}

// read performs one socket read and returns the received chunk. A deadline
// expiry maps to errReadTimeout; a zero-length read maps to io.EOF.
func (c *connection) read() ([]byte, error) {
	if t := c.broker.cfg.ReadTimeout; t > 0 {
		if err := c.sock.SetReadDeadline(time.Now().Add(t)); err != nil {
			return nil, err
		}
	}
	n, err := c.sock.Read(c.buf)
	if err != nil {
		var nerr net.Error
		if errors.As(err, &nerr) && nerr.Timeout() {
			return nil, errReadTimeout
		}
		return nil, err
	}
	if n == 0 {
		return nil, io.EOF
	}
	c.lastActivity = time.Now()
	return c.buf[:n], nil
}

// awaitConnect handles the first packet on a fresh connection. Only a
// CONNECT advances the state; any other first packet leaves the handler
// waiting without acknowledgment.
func (c *connection) awaitConnect() {
	data, err := c.read()
	switch {
	case errors.Is(err, errReadTimeout):
		return
	case err != nil:
		c.logger.Debug("connection closed before CONNECT", slog.String("error", err.Error()))
		c.state = stateClosed
		return
	}

	var fh packets.FixedHeader
	if _, err := fh.Decode(data); err != nil {
		c.logger.Warn("undecodable first packet", slog.String("error", err.Error()))
		return
	}
	if fh.PacketType != packets.ConnectType {
		c.logger.Warn("first packet is not CONNECT, still waiting",
			slog.String("type", packets.PacketNames[fh.PacketType]))
		return
	}

	// Always "connection accepted": no authentication, no session state.
	ack := packets.ConnAck{}
	if err := c.write(ack.Encode()); err != nil {
		c.state = stateClosed
		return
	}
	c.logger.Debug("CONNECT accepted")
	c.state = stateConnected
}

// serveConnected processes one received chunk while connected.
func (c *connection) serveConnected() {
	data, err := c.read()
	switch {
	case errors.Is(err, errReadTimeout):
		return
	case err != nil:
		if !errors.Is(err, io.EOF) && !errors.Is(err, net.ErrClosed) {
			c.logger.Debug("receive failed", slog.String("error", err.Error()))
		}
		c.state = stateClosed
		return
	}

	var fh packets.FixedHeader
	n, err := fh.Decode(data)
	if err != nil {
		c.logger.Warn("dropping undecodable packet", slog.String("error", err.Error()))
		return
	}

	switch fh.PacketType {
	case packets.PublishType:
		c.handlePublish(data[n:], fh)
	case packets.PingReqType:
		resp := packets.PingResp{}
		if err := c.write(resp.Encode()); err != nil {
			c.state = stateClosed
		}
	case packets.DisconnectType:
		c.logger.Debug("DISCONNECT received")
		c.state = stateClosed
	default:
		// Resilient to unrecognized packets: no ack, no disconnect.
		c.logger.Debug("ignoring packet", slog.String("type", packets.PacketNames[fh.PacketType]))
	}
}

// handlePublish records the publish and acknowledges QoS 1. A decode
// failure drops the single packet without acknowledgment; the connection
// stays open. QoS 2 publishes are stored but not acknowledged (no PUBREC
// exchange is implemented).
func (c *connection) handlePublish(body []byte, fh packets.FixedHeader) {
	p, err := packets.DecodePublish(body, fh)
	if err != nil {
		c.logger.Warn("dropping malformed PUBLISH", slog.String("error", err.Error()))
		return
	}

	rec := Record{
		Topic:      p.TopicName,
		Payload:    strings.ToValidUTF8(string(p.Payload), "�"),
		QoS:        fh.QoS,
		Retain:     fh.Retain,
		ReceivedAt: time.Now(),
	}
	c.broker.store.Append(rec)

	c.logger.Debug("PUBLISH recorded",
		slog.String("topic", rec.Topic),
		slog.Int("qos", int(rec.QoS)),
		slog.Bool("retain", rec.Retain),
		slog.Int("payload_len", len(rec.Payload)))

	if fh.QoS == 1 {
		ack := packets.PubAck{ID: p.ID}
		if err := c.write(ack.Encode()); err != nil {
			c.state = stateClosed
		}
	}
}

func (c *connection) write(data []byte) error {
	if _, err := c.sock.Write(data); err != nil {
		c.logger.Debug("write failed", slog.String("error", err.Error()))
		return err
	}
	return nil
}

// close releases the socket and removes the connection from the broker's
// live set. Safe to call when the socket is already closed.
func (c *connection) close() {
	c.state = stateClosed
	c.sock.Close()
	c.broker.removeConn(c)
	c.logger.Debug("client disconnected")
}
