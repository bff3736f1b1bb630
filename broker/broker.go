// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package broker implements a minimal MQTT 3.1.1 broker double used to
// test publishers. It accepts any CONNECT, records every PUBLISH in an
// in-memory store, acknowledges QoS 1, and answers PINGREQ. There is no
// subscription handling, no session state, and no TLS.
package broker

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// ErrAlreadyStarted is returned when Start is called on a running broker.
var ErrAlreadyStarted = errors.New("broker already started")

// Config holds the mock broker configuration.
type Config struct {
	Addr           string
	ReadTimeout    time.Duration
	ReadBufferSize int
	Logger         *slog.Logger
}

// Broker owns the listening socket, the live connection set, and the
// shared record store.
type Broker struct {
	cfg      Config
	store    *Store
	mu       sync.Mutex
	conns    map[*connection]struct{}
	listener net.Listener
	running  atomic.Bool
	wg       sync.WaitGroup
}

// New creates a broker with the given configuration.
func New(cfg Config) *Broker {
	if cfg.Addr == "" {
		cfg.Addr = "0.0.0.0:1883"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 1 * time.Second
	}
	if cfg.ReadBufferSize == 0 {
		cfg.ReadBufferSize = 4096
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Broker{
		cfg:   cfg,
		store: NewStore(),
		conns: make(map[*connection]struct{}),
	}
}

// Start binds the listener and launches the accept loop. It returns once
// the broker is accepting connections.
func (b *Broker) Start() error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}

	listener, err := net.Listen("tcp", b.cfg.Addr)
	if err != nil {
		b.running.Store(false)
		return fmt.Errorf("failed to listen on %s: %w", b.cfg.Addr, err)
	}

	b.mu.Lock()
	b.listener = listener
	b.mu.Unlock()

	b.cfg.Logger.Info("mock MQTT broker started", slog.String("address", listener.Addr().String()))

	b.wg.Add(1)
	go b.acceptLoop(listener)
	return nil
}

// acceptLoop accepts connections and spawns a handler goroutine for each.
// Accept errors are logged and, while running, do not stop the loop.
func (b *Broker) acceptLoop(listener net.Listener) {
	defer b.wg.Done()
	for {
		sock, err := listener.Accept()
		if err != nil {
			if !b.running.Load() {
				return
			}
			b.cfg.Logger.Error("failed to accept connection", slog.String("error", err.Error()))
			continue
		}

		c := newConnection(b, sock)
		b.mu.Lock()
		b.conns[c] = struct{}{}
		b.mu.Unlock()

		b.cfg.Logger.Debug("client connected", slog.String("remote", sock.RemoteAddr().String()))

		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			c.serve()
		}()
	}
}

// Stop closes every live connection and the listener, then waits for the
// handlers to drain. Closing a connection's socket out-of-band forces its
// blocked read to return, driving the handler to its terminal state. Stop
// is idempotent.
func (b *Broker) Stop() error {
	if !b.running.CompareAndSwap(true, false) {
		return nil
	}

	b.mu.Lock()
	for c := range b.conns {
		// Best effort; the handler logs and removes itself.
		c.sock.Close()
	}
	listener := b.listener
	b.listener = nil
	b.mu.Unlock()

	var err error
	if listener != nil {
		err = listener.Close()
	}

	b.wg.Wait()
	b.cfg.Logger.Info("mock MQTT broker stopped")
	return err
}

// Running reports whether the broker is currently accepting connections.
func (b *Broker) Running() bool {
	return b.running.Load()
}

// Addr returns the listener's network address, or nil before Start.
func (b *Broker) Addr() net.Addr {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.listener == nil {
		return nil
	}
	return b.listener.Addr()
}

// Messages returns an ordered snapshot of all publish records received so
// far. Cross-connection interleaving is append order, not causal order.
func (b *Broker) Messages() []Record {
	return b.store.Snapshot()
}

// Clear removes all recorded publishes.
func (b *Broker) Clear() {
	b.store.Clear()
}

// Store exposes the underlying record store.
func (b *Broker) Store() *Store {
	return b.store
}

// removeConn drops a connection from the live set once its handler exits.
func (b *Broker) removeConn(c *connection) {
	b.mu.Lock()
	delete(b.conns, c)
	b.mu.Unlock()
}
