package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	nanoid "github.com/matoous/go-nanoid/v2"
	"go.uber.org/zap"

	"github.com/arqioly/arqioly/pkg/events"
)

// now is the clock used for timestamps. Times are stored in UTC.
var now = func() time.Time { return time.Now().UTC() }

func newID() string { return uuid.NewString() }

// tokenAlphabet keeps share and invite tokens URL-safe.
const tokenAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Token lengths for public links.
const (
	shareTokenLength  = 16
	inviteTokenLength = 24
)

func newToken(length int) (string, error) {
	token, err := nanoid.Generate(tokenAlphabet, length)
	if err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return token, nil
}

// publish emits an event. Delivery failures are logged and never fail the
// operation that produced the event.
func publish(ctx context.Context, pub events.Publisher, logger *zap.Logger, topic string, event any) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, topic, event); err != nil {
		logger.Warn("Failed to publish event",
			zap.String("topic", topic),
			zap.Error(err))
	}
}

// dedupe returns ids without blanks or repeats, preserving first occurrence.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
