package service

import (
	"context"
	"encoding/json"
	"fmt"

	"kb-console/internal/pkg/logger"
	"kb-console/internal/view"
	"kb-console/pkg/chat"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
)

const consoleIdMetadata = "console_id"

// TranscriptDelivery pushes rendered events to the sockets of one console.
// Implemented by the WebSocket hub.
type TranscriptDelivery interface {
	Send(ctx context.Context, consoleId string, data []byte)
}

// TranscriptFrame is what a browser receives for one transcript mutation.
type TranscriptFrame struct {
	Seq       uint64       `json:"seq"`
	Op        chat.EventOp `json:"op"`
	SessionId string       `json:"session_id"`
	MessageId string       `json:"message_id,omitempty"`
	HTML      string       `json:"html,omitempty"`
}

type ITranscriptService interface {
	// SinkFor returns the chat.Sink a console's controller emits into.
	SinkFor(consoleId string) chat.Sink
	// Relay consumes published events and hands them to the delivery until
	// ctx is done.
	Relay(ctx context.Context) error
}

type transcriptService struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	topic      string
	delivery   TranscriptDelivery
	logger     logger.ILogger
}

func NewTranscriptService(
	publisher message.Publisher,
	subscriber message.Subscriber,
	topic string,
	delivery TranscriptDelivery,
	log logger.ILogger,
) ITranscriptService {
	return &transcriptService{
		publisher:  publisher,
		subscriber: subscriber,
		topic:      topic,
		delivery:   delivery,
		logger:     log,
	}
}

func (s *transcriptService) SinkFor(consoleId string) chat.Sink {
	return &transcriptSink{consoleId: consoleId, service: s}
}

func (s *transcriptService) Relay(ctx context.Context) error {
	messages, err := s.subscriber.Subscribe(ctx, s.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", s.topic, err)
	}

	go func() {
		for msg := range messages {
			s.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (s *transcriptService) publish(consoleId string, event chat.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("TranscriptService", "Failed to marshal transcript event", map[string]interface{}{"error": err})
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(consoleIdMetadata, consoleId)

	if err := s.publisher.Publish(s.topic, msg); err != nil {
		s.logger.Error("TranscriptService", "Failed to publish transcript event", map[string]interface{}{
			"console_id": consoleId,
			"op":         string(event.Op),
			"error":      err,
		})
	}
}

func (s *transcriptService) processMessage(ctx context.Context, msg *message.Message) {
	consoleId := msg.Metadata.Get(consoleIdMetadata)

	var event chat.Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		s.logger.Error("TranscriptService", "Failed to unmarshal transcript event", map[string]interface{}{"error": err})
		msg.Ack() // malformed, retrying will not help
		return
	}

	frame, err := Frame(event)
	if err != nil {
		s.logger.Error("TranscriptService", "Failed to render transcript event", map[string]interface{}{
			"console_id": consoleId,
			"error":      err,
		})
		msg.Ack()
		return
	}

	data, err := json.Marshal(frame)
	if err != nil {
		msg.Ack()
		return
	}

	s.delivery.Send(ctx, consoleId, data)
	msg.Ack()
}

// Frame renders a transcript event into the form sent over the socket.
func Frame(event chat.Event) (TranscriptFrame, error) {
	frame := TranscriptFrame{
		Seq:       event.Seq,
		Op:        event.Op,
		SessionId: event.SessionId,
		MessageId: event.MessageId,
	}

	switch event.Op {
	case chat.OpAppend:
		if event.Message == nil {
			return frame, fmt.Errorf("append event %d has no message", event.Seq)
		}
		html, err := view.Message(*event.Message)
		if err != nil {
			return frame, err
		}
		frame.MessageId = event.Message.Id
		frame.HTML = string(html)
	case chat.OpReset:
		html, err := view.Messages(event.Messages)
		if err != nil {
			return frame, err
		}
		frame.HTML = string(html)
	case chat.OpRemove:
	default:
		return frame, fmt.Errorf("unknown transcript op %q", event.Op)
	}
	return frame, nil
}

type transcriptSink struct {
	consoleId string
	service   *transcriptService
}

func (s *transcriptSink) Emit(event chat.Event) {
	s.service.publish(s.consoleId, event)
}
