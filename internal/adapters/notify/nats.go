package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"delivery-ops-service/internal/ports"
)

const pushSubjectPrefix = "delivery.push."

type publisher interface {
	Publish(subject string, data []byte) error
}

// ConnectNATS dials the broker shared by the push notifier and the event
// publisher.
func ConnectNATS(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url, nats.Name("delivery-ops-service"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return conn, nil
}

// NATSEvents publishes domain events on the bus.
type NATSEvents struct {
	conn publisher
}

func NewNATSEvents(conn *nats.Conn) *NATSEvents {
	return &NATSEvents{conn: conn}
}

func (p *NATSEvents) Publish(ctx context.Context, topic string, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.conn.Publish(topic, msg)
}

type pushMessage struct {
	Phone  string             `json:"phone"`
	Kind   ports.TemplateKind `json:"kind"`
	Text   string             `json:"text"`
	Params map[string]string  `json:"params,omitempty"`
}

// NATSPush hands push notifications to the mobile push gateway listening on
// delivery.push.<kind>.
type NATSPush struct {
	conn publisher
	log  *slog.Logger
}

func NewNATSPush(conn *nats.Conn, log *slog.Logger) *NATSPush {
	return &NATSPush{conn: conn, log: log}
}

func (p *NATSPush) Notify(ctx context.Context, phone string, kind ports.TemplateKind, params map[string]string) error {
	text, err := Render(kind, params)
	if err != nil {
		return err
	}

	msg, err := json.Marshal(pushMessage{Phone: phone, Kind: kind, Text: text, Params: params})
	if err != nil {
		return fmt.Errorf("encode push: %w", err)
	}

	if err := p.conn.Publish(pushSubjectPrefix+string(kind), msg); err != nil {
		return fmt.Errorf("publish push %s: %w", kind, err)
	}
	return nil
}
