// Package bus fans conversation events out to display integrations:
// the hologram renderer, lip-sync drivers and anything else that
// wants to react to what the oracle hears and says. Core-NATS only;
// display consumers want live events, not replay.
package bus

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/oraclelabs/oracle-voice/internal/config"
	"github.com/oraclelabs/oracle-voice/internal/protocol"
)

// Client wraps the NATS connection with publish helpers for the
// conversation subjects. A nil Client is a no-op publisher, so the
// pipeline runs unchanged with the bus disabled.
type Client struct {
	conn *nats.Conn
	log  *slog.Logger
}

func Connect(ctx context.Context, cfg config.BusConfig, log *slog.Logger) (*Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, errors.New("no NATS servers configured")
	}

	options := []nats.Option{
		nats.Name("oracle-voice"),
		nats.Timeout(time.Duration(cfg.ConnectTimeout) * time.Millisecond),
	}

	if cfg.Username != "" || cfg.Password != "" {
		options = append(options, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}
	if cfg.TLSInsecure {
		options = append(options, nats.Secure(&tls.Config{InsecureSkipVerify: true}))
	}

	url := strings.Join(cfg.Servers, ",")
	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	log.Info("connected to NATS", slog.String("servers", url))

	return &Client{conn: conn, log: log}, nil
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	c.log.Info("closing NATS connection")
	c.conn.Drain()
	c.conn.Close()
}

func (c *Client) Healthy() bool {
	return c != nil && c.conn != nil && c.conn.Status() == nats.CONNECTED
}

func (c *Client) Conn() *nats.Conn {
	return c.conn
}

// PublishTranscript announces a finalized user utterance.
func (c *Client) PublishTranscript(event protocol.TranscriptEvent) {
	c.publish(protocol.SubjectTranscriptFinal, event)
}

// PublishResponse announces an oracle reply. Audio-bearing responses
// go to the audio subject for lip-sync consumers, text-only to the
// text subject.
func (c *Client) PublishResponse(event protocol.ResponseEvent) {
	subject := protocol.SubjectResponseText
	if len(event.PCM) > 0 {
		subject = protocol.SubjectResponseAudio
	}
	c.publish(subject, event)
}

func (c *Client) publish(subject string, event any) {
	if c == nil || c.conn == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		c.log.Error("marshal bus event", slog.String("subject", subject), slog.String("error", err.Error()))
		return
	}
	if err := c.conn.Publish(subject, data); err != nil {
		c.log.Warn("publish bus event", slog.String("subject", subject), slog.String("error", err.Error()))
	}
}
