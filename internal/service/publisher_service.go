package service

import (
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"kisaanbot-be/internal/dto"
	"kisaanbot-be/internal/entity"
)

type IPublisherService interface {
	PublishSessionDump(session *entity.Session, failed bool) error
}

type publisherService struct {
	pubSub    *gochannel.GoChannel
	topicName string
}

func NewPublisherService(pubSub *gochannel.GoChannel, topicName string) IPublisherService {
	return &publisherService{pubSub: pubSub, topicName: topicName}
}

func (p *publisherService) PublishSessionDump(session *entity.Session, failed bool) error {
	payload, err := json.Marshal(dto.SessionDumpMessage{
		UserID:    session.UserID,
		SessionID: session.SessionID,
		Failed:    failed,
		Snapshot:  *session,
	})
	if err != nil {
		return fmt.Errorf("marshal session dump: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	return p.pubSub.Publish(p.topicName, msg)
}
