package events

import (
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"git.home.luguber.info/inful/interleave/internal/foundation/errors"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "interleave.cycles"

// NATSPublisher publishes event messages on a core NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// ConnectNATS dials url.
func ConnectNATS(url string) (*NATSPublisher, error) {
	if url == "" {
		return nil, errors.ConfigError("NATS url is required").Build()
	}
	conn, err := nats.Connect(url,
		nats.Name("interleave"),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("NATS reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, errors.NetworkError("failed to connect to NATS").
			WithCause(err).
			WithContext("url", url).
			Build()
	}
	slog.Info("NATS publisher connected", "url", url)
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) Publish(subject string, data []byte) error {
	return p.conn.Publish(subject, data)
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if err := p.conn.FlushTimeout(2 * time.Second); err != nil {
		p.conn.Close()
		return err
	}
	p.conn.Close()
	return nil
}
