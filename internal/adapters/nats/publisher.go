// Package nats implements the notification sink: best-effort
// publication of data-updated events to the pub/sub the GUI layer
// subscribes to.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/televault/televault/internal/adapters/config"
	"github.com/televault/televault/internal/domain"
)

// PublisherAdapter publishes DataUpdated events over a NATS
// connection. When no NATS URL is configured the adapter runs
// disabled: publishes become no-ops, since delivery is best-effort by
// contract.
type PublisherAdapter struct {
	nc            *nats.Conn
	subjectPrefix string
	logger        domain.Logger
}

// NewPublisherAdapter connects to the configured NATS server and
// returns the adapter plus a cleanup that drains the connection.
func NewPublisherAdapter(ctx context.Context, cfgProvider config.Provider, appLogger domain.Logger) (*PublisherAdapter, func(), error) {
	appCfg := cfgProvider.Get()
	natsCfg := appCfg.NATS

	if natsCfg.URL == "" {
		appLogger.Warn(ctx, "NATS URL not configured; data-updated notifications disabled")
		return &PublisherAdapter{subjectPrefix: natsCfg.SubjectPrefix, logger: appLogger}, func() {}, nil
	}

	nc, err := nats.Connect(natsCfg.URL,
		nats.Name(fmt.Sprintf("%s-publisher", appCfg.App.ServiceName)),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.ClosedHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS connection closed")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			appLogger.Info(ctx, "NATS reconnected", "url", c.ConnectedUrl())
		}),
		nats.DisconnectErrHandler(func(c *nats.Conn, derr error) {
			if derr != nil {
				appLogger.Warn(ctx, "NATS disconnected", "error", derr.Error())
			}
		}),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to NATS at %s: %w", natsCfg.URL, err)
	}

	appLogger.Info(ctx, "Connected to NATS server", "url", nc.ConnectedUrl())

	adapter := &PublisherAdapter{nc: nc, subjectPrefix: natsCfg.SubjectPrefix, logger: appLogger}
	cleanup := func() {
		if err := nc.Drain(); err != nil {
			appLogger.Warn(context.Background(), "Failed to drain NATS connection", "error", err.Error())
		}
	}
	return adapter, cleanup, nil
}

// PublishDataUpdated emits a {event, key, payload} notification.
// Failures are returned for the caller to log; there is no retry and
// no acknowledgement.
func (p *PublisherAdapter) PublishDataUpdated(ctx context.Context, key string, payload any) error {
	if p.nc == nil {
		return nil
	}
	event := domain.DataUpdated{Event: "data-updated", Key: key, Payload: payload}
	raw, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode data-updated event for %q: %w", key, err)
	}
	subject := fmt.Sprintf("%s.data.updated", p.subjectPrefix)
	if err := p.nc.Publish(subject, raw); err != nil {
		return fmt.Errorf("publish data-updated event for %q: %w", key, err)
	}
	p.logger.Debug(ctx, "Published data-updated event", "key", key, "subject", subject)
	return nil
}
