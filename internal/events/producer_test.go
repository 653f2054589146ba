package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stockguardian/guardian-bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.messages = append(f.messages, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestProducer(w *fakeWriter) *Producer {
	return &Producer{writer: w, topic: "test", now: func() time.Time { return fixedNow }}
}

func decode(t *testing.T, msg kafka.Message) Event {
	t.Helper()
	var ev Event
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	return ev
}

func TestProducer_PublishAlert(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w)

	alert := &models.AlertEvent{ID: 7, HoldingID: 3, Level: models.LevelCritical, Title: "AAPL alert (risk threshold)"}
	require.NoError(t, p.PublishAlert(context.Background(), "AAPL", alert))

	require.Len(t, w.messages, 1)
	assert.Equal(t, "AAPL", string(w.messages[0].Key))

	ev := decode(t, w.messages[0])
	assert.Equal(t, TypeAlertFired, ev.Type)
	assert.True(t, ev.Timestamp.Equal(fixedNow))
	_, err := uuid.Parse(ev.ID)
	assert.NoError(t, err)

	var payload AlertPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, "AAPL", payload.Symbol)
	assert.Equal(t, int64(7), payload.Alert.ID)
}

func TestProducer_PublishDailyReport(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w)

	report := &models.DailyReport{ID: 1, UserID: 42, Date: "2024-05-01", Content: "brief"}
	require.NoError(t, p.PublishDailyReport(context.Background(), "me@example.com", report))

	require.Len(t, w.messages, 1)
	assert.Equal(t, "42", string(w.messages[0].Key))

	ev := decode(t, w.messages[0])
	assert.Equal(t, TypeDailyReportCreated, ev.Type)

	var payload ReportPayload
	require.NoError(t, json.Unmarshal(ev.Payload, &payload))
	assert.Equal(t, "me@example.com", payload.Email)
	assert.Equal(t, "2024-05-01", payload.Report.Date)
}

func TestProducer_Send(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w)

	assert.Equal(t, "kafka", p.Name())
	require.NoError(t, p.Send(context.Background(), "[CRITICAL] x"))

	ev := decode(t, w.messages[0])
	assert.Equal(t, TypeNotification, ev.Type)
	assert.JSONEq(t, `{"text":"[CRITICAL] x"}`, string(ev.Payload))
}

func TestProducer_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	p := newTestProducer(w)

	err := p.Send(context.Background(), "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}

func TestProducer_Close(t *testing.T) {
	w := &fakeWriter{}
	p := newTestProducer(w)
	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
