package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const streamName = "VERIFLOW_DECISIONS"

// JetStream publishes notifications to a stream capturing <prefix>.>.
type JetStream struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect dials NATS and ensures the decisions stream exists.
func Connect(ctx context.Context, url, prefix string) (*JetStream, error) {
	nc, err := nats.Connect(url, nats.Name("veriflow"))
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{strings.TrimSuffix(prefix, ".") + ".>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}
	slog.InfoContext(ctx, "nats connected", "url", url, "stream", streamName)
	return &JetStream{nc: nc, js: js}, nil
}

func (j *JetStream) Publish(ctx context.Context, subject string, data []byte) error {
	if _, err := j.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("nats publish %s: %w", subject, err)
	}
	return nil
}

func (j *JetStream) Close() {
	j.nc.Close()
}
