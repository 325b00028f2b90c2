// internal/ledger/publisher.go
package ledger

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Raaghu1804/hackathon-zss/internal/breaker"
	"github.com/Raaghu1804/hackathon-zss/internal/model"
)

// Publisher relays every outbound core event onto the audit topic so an
// external ledger can persist them. Publish failures never propagate back into
// the tick pipeline; the breaker just fast-fails until the broker recovers.
type Publisher struct {
	writer *kafka.Writer
	cb     *breaker.Breaker
	lg     *slog.Logger
}

// New wires a writer against the given brokers. The topic is created by the
// deployment, not by the core.
func New(brokers []string, topic string, lg *slog.Logger) *Publisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}
	l := lg.With(slog.String("component", "ledger"))
	return &Publisher{
		writer: w,
		cb:     breaker.New("kafka", breaker.Config{MaxFailures: 5, ResetTimeout: 15 * time.Second}, lg),
		lg:     l,
	}
}

// Notify implements coord.Notifier. Events are keyed by unit so per-unit
// ordering survives partitioning.
func (p *Publisher) Notify(ev model.Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.lg.Error("marshal event", "type", ev.Type, "error", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err = p.cb.Execute(ctx, func(ctx context.Context) error {
		return p.writer.WriteMessages(ctx, kafka.Message{
			Key:   []byte(ev.Unit),
			Value: body,
		})
	})
	if err != nil {
		p.lg.Warn("audit publish failed", "type", ev.Type, "error", err)
	}
}

// Close flushes and releases the writer.
func (p *Publisher) Close() error { return p.writer.Close() }
