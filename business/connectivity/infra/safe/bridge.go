// Package safe talks to a Safe-apps hosting container over a WebSocket bridge.
package safe

import (
	"context"
	"encoding/json"
	"strconv"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/event"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/pooldash/business/connectivity/app"
	"github.com/fd1az/pooldash/business/connectivity/domain"
	"github.com/fd1az/pooldash/internal/apperror"
	"github.com/fd1az/pooldash/internal/logger"
	"github.com/fd1az/pooldash/internal/wsconn"
)

const tracerName = "github.com/fd1az/pooldash/business/connectivity/infra/safe"

// Message ids of the Safe-apps protocol.
const (
	MessageSafeInfo         = "ON_SAFE_INFO"
	MessageSendTransactions = "SEND_TRANSACTIONS"
	MessageTxConfirmation   = "ON_TX_UPDATE"
)

type envelope struct {
	MessageID string          `json:"messageId"`
	RequestID string          `json:"requestId,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
}

type safeInfo struct {
	SafeAddress common.Address `json:"safeAddress"`
	Network     string         `json:"network"`
}

type sendTransactions struct {
	MessageID string       `json:"messageId"`
	RequestID string       `json:"requestId"`
	Data      domain.Batch `json:"data"`
}

// Bridge implements app.Container over a WebSocket.
type Bridge struct {
	ws     *wsconn.Client
	log    logger.LoggerInterface
	tracer trace.Tracer

	feed      event.Feed
	requestID atomic.Uint64
}

var _ app.Container = (*Bridge)(nil)

// NewBridge creates a bridge to the container at url. Call Connect to dial.
func NewBridge(url string, log logger.LoggerInterface) (*Bridge, error) {
	cfg := wsconn.DefaultConfig(url, "safe-bridge")
	cfg.Logger = log

	ws, err := wsconn.New(cfg)
	if err != nil {
		return nil, err
	}

	b := &Bridge{
		ws:     ws,
		log:    log,
		tracer: otel.Tracer(tracerName),
	}
	ws.OnMessage(b.handleMessage)
	ws.OnStateChange(func(state wsconn.State, err error) {
		if err != nil {
			log.Warn(context.Background(), "safe bridge state changed", "state", string(state), "error", err)
			return
		}
		log.Debug(context.Background(), "safe bridge state changed", "state", string(state))
	})

	return b, nil
}

// Connect dials the container.
func (b *Bridge) Connect(ctx context.Context) error {
	return b.ws.Connect(ctx)
}

// SubscribeIdentity delivers every ON_SAFE_INFO notification to ch.
func (b *Bridge) SubscribeIdentity(ch chan<- domain.DelegatedIdentity) event.Subscription {
	return b.feed.Subscribe(ch)
}

// SendTransactions hands batch to the container for co-signing. It returns
// once the message is written; approval happens out of band.
func (b *Bridge) SendTransactions(ctx context.Context, batch domain.Batch) error {
	reqID := strconv.FormatUint(b.requestID.Add(1), 10)

	ctx, span := b.tracer.Start(ctx, "safe.send_transactions",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("request_id", reqID),
			attribute.Int("transactions", len(batch)),
		),
	)
	defer span.End()

	msg := sendTransactions{MessageID: MessageSendTransactions, RequestID: reqID, Data: batch}
	if err := b.ws.SendJSON(ctx, msg); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return apperror.New(apperror.CodeRelayFailed,
			apperror.WithCause(err),
			apperror.WithContext("request "+reqID))
	}

	span.SetStatus(codes.Ok, "handed off")
	return nil
}

func (b *Bridge) handleMessage(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		b.log.Warn(ctx, "malformed container message", "error", err)
		return
	}

	switch env.MessageID {
	case MessageSafeInfo:
		var info safeInfo
		if err := json.Unmarshal(env.Data, &info); err != nil {
			b.log.Warn(ctx, "malformed safe info", "error", err)
			return
		}
		b.feed.Send(domain.DelegatedIdentity{SafeAddress: info.SafeAddress, Network: info.Network})
	case MessageTxConfirmation:
		b.log.Info(ctx, "container transaction update", "request_id", env.RequestID, "data", string(env.Data))
	default:
		b.log.Debug(ctx, "ignoring container message", "message_id", env.MessageID)
	}
}

// Close closes the WebSocket.
func (b *Bridge) Close() error {
	return b.ws.Close()
}

// NoopContainer is used outside a delegated-custody host. It never announces
// an identity and rejects every batch.
type NoopContainer struct{}

var _ app.Container = NoopContainer{}

// SubscribeIdentity returns a subscription that never delivers.
func (NoopContainer) SubscribeIdentity(chan<- domain.DelegatedIdentity) event.Subscription {
	return event.NewSubscription(func(quit <-chan struct{}) error {
		<-quit
		return nil
	})
}

// SendTransactions always fails.
func (NoopContainer) SendTransactions(context.Context, domain.Batch) error {
	return apperror.New(apperror.CodeRelayFailed, apperror.WithContext("no delegated-custody container"))
}

// Close is a no-op.
func (NoopContainer) Close() error { return nil }
