// Package events publishes post lifecycle notifications for downstream
// consumers (notifications, search indexing).
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	SubjectPostCreated = "post.created"
	SubjectPostDeleted = "post.deleted"
	SubjectPostLiked   = "post.liked"
	SubjectPostUnliked = "post.unliked"
)

// PostEvent is the payload of every post.* message.
type PostEvent struct {
	PostID     string    `json:"post_id"`
	AuthorID   string    `json:"author_id,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	LikesCount int       `json:"likes_count,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher sends events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(subject string, event PostEvent) error
}

// NopPublisher drops every event; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(string, PostEvent) error { return nil }

// natsConn is the part of *nats.Conn the publisher uses.
type natsConn interface {
	Publish(subject string, data []byte) error
	Drain() error
}

// NatsPublisher publishes JSON-encoded events on a NATS connection.
type NatsPublisher struct {
	conn natsConn
	log  *zap.Logger
}

// NewNatsPublisher connects to the NATS server at url.
func NewNatsPublisher(url string, log *zap.Logger) (*NatsPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("journeys-feed"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	log.Info("nats connected", zap.String("url", conn.ConnectedUrl()))
	return &NatsPublisher{conn: conn, log: log}, nil
}

func (p *NatsPublisher) Publish(subject string, event PostEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NatsPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.log.Warn("nats drain failed", zap.Error(err))
	}
}
