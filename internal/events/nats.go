package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// subjectPrefix namespaces event subjects on NATS.
const subjectPrefix = "parley.events."

// NATSPublisher publishes events on NATS core subjects.
type NATSPublisher struct {
	nc *nats.Conn
}

// NewNATSPublisher connects to NATS.
func NewNATSPublisher(natsURL string) (*NATSPublisher, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name("parley"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{nc: nc}, nil
}

// Publish sends one event envelope to the kind's subject.
func (p *NATSPublisher) Publish(_ context.Context, kind string, payload any) error {
	data, err := json.Marshal(NewEnvelope(kind, payload))
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", kind, err)
	}
	return p.nc.Publish(subjectPrefix+kind, data)
}

// Close drains and closes the NATS connection.
func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}
