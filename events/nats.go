package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	config "github.com/anjiri1684/agency_messaging/configs"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

type NatsPublisher struct {
	js     jetstream.JetStream
	nc     *nats.Conn
	prefix string
}

// NewNatsPublisher connects to NATS and makes sure the messaging stream exists.
func NewNatsPublisher(cfg config.NATSConfig) (*NatsPublisher, error) {
	nc, err := nats.Connect(cfg.URL, nats.Name("agency-messaging"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create jetstream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := js.Stream(ctx, cfg.StreamName); err != nil {
		log.Printf("Stream '%s' not found, attempting to create...", cfg.StreamName)
		_, err = js.CreateStream(ctx, jetstream.StreamConfig{
			Name:        cfg.StreamName,
			Description: "Conversation and message events",
			Subjects:    []string{cfg.SubjectPrefix + ".>"},
			MaxAge:      7 * 24 * time.Hour,
			Storage:     jetstream.FileStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("failed to create stream '%s': %w", cfg.StreamName, err)
		}
		log.Printf("Stream '%s' created successfully", cfg.StreamName)
	}

	return &NatsPublisher{js: js, nc: nc, prefix: cfg.SubjectPrefix}, nil
}

// Subject is <prefix>.<conversation id>.<event type>.
func Subject(prefix string, event Event) string {
	return fmt.Sprintf("%s.%s.%s", prefix, event.ConversationID, event.Type)
}

func (p *NatsPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	subject := Subject(p.prefix, event)
	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event to subject '%s': %w", subject, err)
	}
	return nil
}

func (p *NatsPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
