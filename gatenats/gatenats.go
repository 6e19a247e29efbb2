// Package gatenats provides an embedded NATS server with JetStream as a
// pub/sub backend for gate applications.
package gatenats

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/delaneyj/toolbelt/embeddednats"
	"github.com/nats-io/nats.go"
	"github.com/sait-khanh/gate"
)

// NATS implements gate.PubSub using an embedded NATS server with JetStream.
type NATS struct {
	server *embeddednats.Server
	nc     *nats.Conn
	js     nats.JetStreamContext
}

var _ gate.PubSub = (*NATS)(nil)

// New starts an embedded NATS server with JetStream enabled and returns a
// ready-to-use NATS instance. The server stores data in dataDir and shuts
// down when ctx is cancelled.
func New(ctx context.Context, dataDir string) (*NATS, error) {
	ns, err := embeddednats.New(ctx, embeddednats.WithDirectory(dataDir))
	if err != nil {
		return nil, fmt.Errorf("gatenats: start server: %w", err)
	}
	ns.WaitForServer()

	nc, err := ns.Client()
	if err != nil {
		ns.Close()
		return nil, fmt.Errorf("gatenats: connect client: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		ns.Close()
		return nil, fmt.Errorf("gatenats: init jetstream: %w", err)
	}

	return &NATS{server: ns, nc: nc, js: js}, nil
}

// Publish sends data to the given subject using core NATS publish.
// JetStream captures messages automatically if a matching stream exists.
func (n *NATS) Publish(subject string, data []byte) error {
	return n.nc.Publish(subject, data)
}

// Subscribe creates a core NATS subscription for real-time fan-out delivery.
func (n *NATS) Subscribe(subject string, handler func(data []byte)) (gate.Subscription, error) {
	sub, err := n.nc.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, err
	}
	return sub, nil
}

// Close shuts down the client connection and embedded server.
func (n *NATS) Close() error {
	n.nc.Close()
	return n.server.Close()
}

// StreamConfig is the subset of JetStream stream settings gate applications use.
type StreamConfig struct {
	Name     string
	Subjects []string
	MaxMsgs  int64
	MaxAge   time.Duration
}

// EnsureStream creates the stream, or updates it in place when it already exists.
func (n *NATS) EnsureStream(cfg StreamConfig) error {
	sc := &nats.StreamConfig{
		Name:     cfg.Name,
		Subjects: cfg.Subjects,
		MaxMsgs:  cfg.MaxMsgs,
		MaxAge:   cfg.MaxAge,
	}
	_, err := n.js.StreamInfo(cfg.Name)
	switch {
	case errors.Is(err, nats.ErrStreamNotFound):
		if _, err := n.js.AddStream(sc); err != nil {
			return fmt.Errorf("gatenats: add stream %s: %w", cfg.Name, err)
		}
	case err != nil:
		return fmt.Errorf("gatenats: stream info %s: %w", cfg.Name, err)
	default:
		if _, err := n.js.UpdateStream(sc); err != nil {
			return fmt.Errorf("gatenats: update stream %s: %w", cfg.Name, err)
		}
	}
	return nil
}

// Replay returns the newest limit messages retained on subject, oldest
// first. It reads until the consumer reports nothing pending, or until no
// message arrives for a short while.
func (n *NATS) Replay(subject string, limit int) ([][]byte, error) {
	if limit <= 0 {
		return nil, nil
	}
	sub, err := n.js.SubscribeSync(subject, nats.DeliverAll(), nats.AckNone())
	if err != nil {
		return nil, fmt.Errorf("gatenats: replay %s: %w", subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	out := make([][]byte, 0, limit)
	for {
		msg, err := sub.NextMsg(100 * time.Millisecond)
		if errors.Is(err, nats.ErrTimeout) {
			return out, nil
		}
		if err != nil {
			return out, fmt.Errorf("gatenats: replay %s: %w", subject, err)
		}
		if len(out) == limit {
			copy(out, out[1:])
			out = out[:limit-1]
		}
		out = append(out, msg.Data)
		if meta, err := msg.Metadata(); err == nil && meta.NumPending == 0 {
			return out, nil
		}
	}
}
