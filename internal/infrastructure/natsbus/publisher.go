package natsbus

import (
	"context"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher publishes trade events to NATS subjects under a fixed prefix.
type Publisher struct {
	nc     *nats.Conn
	prefix string
}

// Connect dials the NATS server at url.
func Connect(url, prefix string, opts ...nats.Option) (*Publisher, error) {
	opts = append([]nats.Option{
		nats.Name("barterhub"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}, opts...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, err
	}
	return &Publisher{nc: nc, prefix: strings.Trim(prefix, ".")}, nil
}

// Publish sends data on prefix.subject. Delivery is at-most-once.
func (p *Publisher) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.nc.Publish(Subject(p.prefix, subject), data)
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	if p.nc == nil {
		return nil
	}
	err := p.nc.Drain()
	p.nc.Close()
	return err
}

// Subject joins prefix and subject into a NATS subject, replacing characters
// NATS treats as tokens or wildcards.
func Subject(prefix, subject string) string {
	subject = strings.NewReplacer(":", ".", " ", "_", "*", "_", ">", "_").Replace(subject)
	subject = strings.Trim(subject, ".")
	if prefix == "" {
		return subject
	}
	return prefix + "." + subject
}
