package events

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type fakeConn struct {
	subject  string
	data     []byte
	pubErr   error
	drainErr error
	drained  bool
}

func (c *fakeConn) Publish(subject string, data []byte) error {
	c.subject, c.data = subject, data
	return c.pubErr
}

func (c *fakeConn) Drain() error {
	c.drained = true
	return c.drainErr
}

func TestNatsPublisherPublish(t *testing.T) {
	conn := &fakeConn{}
	p := &NatsPublisher{conn: conn, log: zap.NewNop()}
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, p.Publish(SubjectPostLiked, PostEvent{PostID: "p1", UserID: "u1", LikesCount: 2, Timestamp: ts}))
	assert.Equal(t, SubjectPostLiked, conn.subject)

	var got PostEvent
	require.NoError(t, json.Unmarshal(conn.data, &got))
	assert.Equal(t, "p1", got.PostID)
	assert.Equal(t, 2, got.LikesCount)

	conn.pubErr = errors.New("connection closed")
	assert.Error(t, p.Publish(SubjectPostLiked, PostEvent{PostID: "p1"}))
}

func TestNatsPublisherCloseLogsDrainError(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	conn := &fakeConn{drainErr: errors.New("nats: connection closed")}
	p := &NatsPublisher{conn: conn, log: zap.New(core)}

	p.Close()

	assert.True(t, conn.drained)
	entries := logs.FilterMessage("nats drain failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "nats: connection closed", entries[0].ContextMap()["error"])
}
