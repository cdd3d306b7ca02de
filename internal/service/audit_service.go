package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"kisaanbot-be/internal/dto"
	"kisaanbot-be/internal/pkg/logger"
	"kisaanbot-be/pkg/events"
	pktNats "kisaanbot-be/pkg/nats"
)

type IAuditService interface {
	Consume(ctx context.Context) error
}

// auditService drains session dump events and writes each one to a JSON file
// named <user>_<session>.json (with a _failed suffix for aborted cycles).
// When a NATS publisher is wired it also mirrors the event onto the bus.
type auditService struct {
	pubSub    *gochannel.GoChannel
	topicName string
	dumpDir   string
	natsPub   *pktNats.Publisher
	log       logger.ILogger
}

func NewAuditService(
	pubSub *gochannel.GoChannel,
	topicName string,
	dumpDir string,
	natsPub *pktNats.Publisher,
	log logger.ILogger,
) IAuditService {
	return &auditService{
		pubSub:    pubSub,
		topicName: topicName,
		dumpDir:   dumpDir,
		natsPub:   natsPub,
		log:       log,
	}
}

func (as *auditService) Consume(ctx context.Context) error {
	messages, err := as.pubSub.Subscribe(ctx, as.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			as.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (as *auditService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.SessionDumpMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		as.log.Error("audit", "failed to unmarshal dump message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	if err := as.writeDump(payload); err != nil {
		as.log.Error("audit", "failed to write session dump", map[string]interface{}{
			"userId": payload.UserID, "error": err.Error(),
		})
		msg.Nack()
		return
	}

	if as.natsPub != nil {
		var snapshot map[string]interface{}
		raw, _ := json.Marshal(payload.Snapshot)
		_ = json.Unmarshal(raw, &snapshot)
		event := events.NewSessionDumped(payload.UserID, payload.SessionID, payload.Failed, snapshot)
		if err := as.natsPub.Publish(ctx, event); err != nil {
			as.log.Warn("audit", "nats mirror failed", map[string]interface{}{"error": err.Error()})
		}
	}

	as.log.Info("audit", "session dumped", map[string]interface{}{
		"userId": payload.UserID, "sessionId": payload.SessionID, "failed": payload.Failed,
	})
	msg.Ack()
}

func (as *auditService) writeDump(payload dto.SessionDumpMessage) error {
	if err := os.MkdirAll(as.dumpDir, 0o755); err != nil {
		return fmt.Errorf("mkdir dump dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s.json", payload.UserID, payload.SessionID)
	if payload.Failed {
		name = fmt.Sprintf("%s_%s_failed.json", payload.UserID, payload.SessionID)
	}

	data, err := json.MarshalIndent(payload.Snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return os.WriteFile(filepath.Join(as.dumpDir, name), data, 0o644)
}
