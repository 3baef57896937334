package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"

	"github.com/arqioly/arqioly/pkg/models"
)

func startTestNATS(t *testing.T) string {
	t.Helper()
	opts := &natsserver.Options{Host: "127.0.0.1", Port: -1}
	srv, err := natsserver.NewServer(opts)
	if err != nil {
		t.Fatalf("starting embedded NATS: %v", err)
	}
	srv.Start()
	t.Cleanup(srv.Shutdown)
	if !srv.ReadyForConnections(5 * time.Second) {
		t.Fatal("embedded NATS not ready")
	}
	return srv.ClientURL()
}

func TestPublishers_ImplementPublisher(t *testing.T) {
	var _ Publisher = (*NoopPublisher)(nil)
	var _ Publisher = (*NATSPublisher)(nil)
	var _ Publisher = (*RecordingPublisher)(nil)
}

func TestNoopPublisher(t *testing.T) {
	pub := &NoopPublisher{}
	if err := pub.Publish(context.Background(), TopicPromptSaved, PromptSaved{}); err != nil {
		t.Fatalf("NoopPublisher.Publish returned unexpected error: %v", err)
	}
	if err := pub.Close(); err != nil {
		t.Fatalf("NoopPublisher.Close returned unexpected error: %v", err)
	}
}

func TestNATSPublisher_PublishesWithPrefix(t *testing.T) {
	url := startTestNATS(t)

	pub, err := NewNATSPublisher(url, "arqioly")
	if err != nil {
		t.Fatalf("creating publisher: %v", err)
	}
	defer pub.Close()

	nc, err := nats.Connect(url)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer nc.Close()

	ch := make(chan *nats.Msg, 4)
	sub, err := nc.ChanSubscribe("arqioly.>", ch)
	if err != nil {
		t.Fatalf("subscribing: %v", err)
	}
	defer sub.Unsubscribe() //nolint:errcheck
	if err := nc.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	event := PromptSaved{Prompt: &models.Prompt{ID: "p-1", Title: "Launch tweet"}}
	if err := pub.Publish(context.Background(), TopicPromptSaved, event); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if err := pub.Publish(context.Background(), TopicPromptDeleted, PromptDeleted{PromptID: "p-2"}); err != nil {
		t.Fatalf("Publish error: %v", err)
	}
	if err := pub.conn.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	wantSubjects := []string{"arqioly.prompt.saved", "arqioly.prompt.deleted"}
	for i, want := range wantSubjects {
		select {
		case msg := <-ch:
			if msg.Subject != want {
				t.Errorf("message %d subject = %q, want %q", i, msg.Subject, want)
			}
			if i == 0 {
				var got PromptSaved
				if err := json.Unmarshal(msg.Data, &got); err != nil {
					t.Fatalf("unmarshal: %v", err)
				}
				if got.Prompt.ID != "p-1" {
					t.Errorf("got prompt ID=%q, want %q", got.Prompt.ID, "p-1")
				}
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func TestNATSPublisher_ConnectFailure(t *testing.T) {
	_, err := NewNATSPublisher("nats://127.0.0.1:1", "arqioly", nats.Timeout(200*time.Millisecond))
	if err == nil {
		t.Fatal("expected connection error")
	}
}

func TestRecordingPublisher(t *testing.T) {
	rec := &RecordingPublisher{}
	_ = rec.Publish(context.Background(), TopicShareCreated, ShareChanged{ShareToken: "abc"})
	_ = rec.Publish(context.Background(), TopicShareRevoked, ShareChanged{ShareToken: "abc"})

	topics := rec.Topics()
	if len(topics) != 2 || topics[0] != TopicShareCreated || topics[1] != TopicShareRevoked {
		t.Errorf("unexpected topics %v", topics)
	}
}
