package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type failingPublisher struct{ err error }

func (f failingPublisher) Publish(context.Context, OrderEvent) error { return f.err }

type countingPublisher struct{ n int }

func (c *countingPublisher) Publish(context.Context, OrderEvent) error {
	c.n++
	return nil
}

func sampleEvent() OrderEvent {
	return OrderEvent{
		Type:        OrderCreated,
		OrderID:     "65a000000000000000000001",
		OrderNumber: "ORD-20240131-1f3a9c2e",
		UserID:      "65a000000000000000000002",
		Status:      "pending",
		TotalAmount: 3000,
		OccurredAt:  time.Date(2024, 1, 31, 10, 0, 0, 0, time.UTC),
	}
}

func TestMultiPublishesToEveryPublisherAndJoinsErrors(t *testing.T) {
	first, last := &countingPublisher{}, &countingPublisher{}
	errA, errB := errors.New("broker down"), errors.New("feed closed")

	err := Multi{first, failingPublisher{errA}, failingPublisher{errB}, last}.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)
	assert.Equal(t, 1, first.n)
	assert.Equal(t, 1, last.n)

	assert.NoError(t, Multi{}.Publish(context.Background(), sampleEvent()))
	assert.NoError(t, Nop{}.Publish(context.Background(), sampleEvent()))
}

func TestKafkaPublisherSendsJSONEvent(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got OrderEvent
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.Type != OrderCreated || got.OrderNumber != "ORD-20240131-1f3a9c2e" {
			return errors.New("unexpected event payload " + string(val))
		}
		return nil
	})

	pub := NewKafkaPublisher(producer, "orders", zaptest.NewLogger(t))
	require.NoError(t, pub.Publish(context.Background(), sampleEvent()))
	require.NoError(t, pub.Close())
}

func TestKafkaPublisherReturnsSendError(t *testing.T) {
	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	pub := NewKafkaPublisher(producer, "orders", zaptest.NewLogger(t))
	err := pub.Publish(context.Background(), sampleEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	require.NoError(t, pub.Close())
}

func TestHeaderCarrierCarriesTraceContext(t *testing.T) {
	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	ctx := trace.ContextWithSpanContext(context.Background(), trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	}))

	carrier := make(headerCarrier, 0)
	propagation.TraceContext{}.Inject(ctx, &carrier)

	assert.Equal(t, []string{"traceparent"}, carrier.Keys())
	assert.True(t, strings.Contains(carrier.Get("traceparent"), traceID.String()))

	extracted := trace.SpanContextFromContext(propagation.TraceContext{}.Extract(context.Background(), &carrier))
	assert.Equal(t, traceID, extracted.TraceID())
}

func TestHubPublishWithoutClients(t *testing.T) {
	hub := NewHub(zaptest.NewLogger(t))
	assert.NoError(t, hub.Publish(context.Background(), sampleEvent()))
	assert.Equal(t, 0, hub.Clients())
}

func TestHubDeliversToWebsocketClient(t *testing.T) {
	// Serve logs from its own goroutines after the client leaves.
	hub := NewHub(zap.NewNop())
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(conn)
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, hub.Publish(context.Background(), sampleEvent()))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got OrderEvent
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, OrderCreated, got.Type)
	assert.Equal(t, "ORD-20240131-1f3a9c2e", got.OrderNumber)

	conn.Close()
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

type panickingConn struct {
	closed atomic.Int32
}

func (c *panickingConn) ReadMessage() (int, []byte, error) { panic("read exploded") }
func (c *panickingConn) WriteMessage(int, []byte) error {
	return errors.New("closed")
}
func (c *panickingConn) SetReadLimit(int64)                {}
func (c *panickingConn) SetReadDeadline(time.Time) error   { return nil }
func (c *panickingConn) SetWriteDeadline(time.Time) error  { return nil }
func (c *panickingConn) SetPongHandler(func(string) error) {}
func (c *panickingConn) Close() error                      { c.closed.Add(1); return nil }

func TestHubServeRecoversAndDropsClient(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	hub := NewHub(zap.New(core))
	conn := &panickingConn{}

	require.NotPanics(t, func() { hub.Serve(conn) })

	assert.Zero(t, hub.Clients())
	assert.GreaterOrEqual(t, conn.closed.Load(), int32(1))
	assert.Equal(t, 1, logs.FilterMessage("order feed client panicked").Len())
	require.NoError(t, hub.Publish(context.Background(), OrderEvent{Type: "order.created"}))
}
