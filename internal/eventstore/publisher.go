package eventstore

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/assetbuilder/internal/retry"
)

// Publisher broadcasts finished builds to external consumers.
type Publisher interface {
	Publish(ctx context.Context, msg BuildFinished) error
	Close()
}

// NATSPublisher publishes BuildFinished messages on a core NATS subject.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	retry   retry.Policy
}

// NewNATSPublisher connects to url. Subjects get a ".completed" or ".failed"
// suffix depending on the build status.
func NewNATSPublisher(url, subject string, policy retry.Policy) (*NATSPublisher, error) {
	conn, err := nats.Connect(url, nats.Name("assetbuilder"), nats.Timeout(5*time.Second))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	slog.Info("NATS publisher connected", slog.String("url", url), slog.String("subject", subject))
	return &NATSPublisher{conn: conn, subject: subject, retry: policy}, nil
}

// Subject returns the subject a message is published on.
func (p *NATSPublisher) Subject(msg BuildFinished) string {
	if msg.Status == StatusSucceeded {
		return p.subject + ".completed"
	}
	return p.subject + ".failed"
}

// Publish sends msg, retrying transient failures per the retry policy.
func (p *NATSPublisher) Publish(ctx context.Context, msg BuildFinished) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal build event: %w", err)
	}
	subject := p.Subject(msg)
	return p.retry.Do(ctx, func() error {
		if err := p.conn.Publish(subject, data); err != nil {
			return fmt.Errorf("publish build event: %w", err)
		}
		if err := p.conn.FlushTimeout(5 * time.Second); err != nil {
			return fmt.Errorf("flush build event: %w", err)
		}
		return nil
	})
}

func (p *NATSPublisher) Close() {
	if p != nil && p.conn != nil {
		p.conn.Close()
	}
}
