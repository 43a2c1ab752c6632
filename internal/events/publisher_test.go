package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jerichox/jerichox-security/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	failures int
	calls    int
	subject  string
	last     []byte
}

func (f *fakeConn) Publish(subject string, data []byte) error {
	f.calls++
	f.subject = subject
	if f.calls <= f.failures {
		return errors.New("nats: connection closed")
	}
	f.last = data
	return nil
}

func TestNATSPublisher_Publish(t *testing.T) {
	conn := &fakeConn{}
	p := events.NewNATSPublisher(conn, "", 2, nil)

	evt := events.SyncCompleted{AccountID: "hik_1", Total: 2, DeviceSerials: []string{"A", "B"}, CompletedAt: time.Now().UTC()}
	require.NoError(t, p.Publish(context.Background(), evt))

	assert.Equal(t, events.DefaultSubject, conn.subject)
	var got events.SyncCompleted
	require.NoError(t, json.Unmarshal(conn.last, &got))
	assert.Equal(t, "hik_1", got.AccountID)
	assert.Equal(t, []string{"A", "B"}, got.DeviceSerials)
}

func TestNATSPublisher_Retries(t *testing.T) {
	conn := &fakeConn{failures: 2}
	p := events.NewNATSPublisher(conn, "custom.subject", 2, nil)

	require.NoError(t, p.Publish(context.Background(), events.SyncCompleted{AccountID: "hik_1"}))
	assert.Equal(t, 3, conn.calls)
}

func TestNATSPublisher_GivesUp(t *testing.T) {
	conn := &fakeConn{failures: 10}
	p := events.NewNATSPublisher(conn, "custom.subject", 1, nil)

	err := p.Publish(context.Background(), events.SyncCompleted{AccountID: "hik_1"})
	assert.Error(t, err)
	assert.Equal(t, 2, conn.calls)
}

func TestNATSPublisher_NoBackoffAfterLastAttempt(t *testing.T) {
	conn := &fakeConn{failures: 10}
	p := events.NewNATSPublisher(conn, "custom.subject", 3, nil)

	start := time.Now()
	err := p.Publish(context.Background(), events.SyncCompleted{AccountID: "hik_1"})
	elapsed := time.Since(start)

	assert.Error(t, err)
	assert.Equal(t, 4, conn.calls)
	// Backoff between attempts is 0+100+200ms; a trailing wait would add 300ms.
	assert.Less(t, elapsed, 450*time.Millisecond)
}
