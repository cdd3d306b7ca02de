package service

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"kisaanbot-be/internal/entity"
	"kisaanbot-be/internal/pkg/logger"
)

func waitForFile(t *testing.T, path string) []byte {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if data, err := os.ReadFile(path); err == nil {
			return data
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("dump file never appeared: %s", path)
	return nil
}

func TestAuditServiceWritesDumpFiles(t *testing.T) {
	dir := t.TempDir()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	audit := NewAuditService(pubSub, "session_dumps", dir, nil, logger.NewNoopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := audit.Consume(ctx); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	pub := NewPublisherService(pubSub, "session_dumps")
	session := &entity.Session{
		UserID:    "919812345678",
		SessionID: "abc-123",
		State:     entity.StateProcessingQuery,
		Crop:      "Wheat",
	}
	if err := pub.PublishSessionDump(session, false); err != nil {
		t.Fatalf("PublishSessionDump: %v", err)
	}

	data := waitForFile(t, filepath.Join(dir, "919812345678_abc-123.json"))
	var snapshot entity.Session
	if err := json.Unmarshal(data, &snapshot); err != nil {
		t.Fatalf("dump is not valid JSON: %v", err)
	}
	if snapshot.Crop != "Wheat" {
		t.Errorf("snapshot crop = %q, want Wheat", snapshot.Crop)
	}
}

func TestAuditServiceMarksFailedDumps(t *testing.T) {
	dir := t.TempDir()
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	audit := NewAuditService(pubSub, "session_dumps", dir, nil, logger.NewNoopLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := audit.Consume(ctx); err != nil {
		t.Fatalf("Consume: %v", err)
	}

	pub := NewPublisherService(pubSub, "session_dumps")
	session := &entity.Session{UserID: "u1", SessionID: "s1"}
	if err := pub.PublishSessionDump(session, true); err != nil {
		t.Fatalf("PublishSessionDump: %v", err)
	}

	waitForFile(t, filepath.Join(dir, "u1_s1_failed.json"))
}
