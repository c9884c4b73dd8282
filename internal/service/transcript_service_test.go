package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"kb-console/internal/pkg/logger"
	"kb-console/pkg/chat"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDelivery struct {
	mu     sync.Mutex
	frames map[string][]TranscriptFrame
}

func newRecordingDelivery() *recordingDelivery {
	return &recordingDelivery{frames: map[string][]TranscriptFrame{}}
}

func (d *recordingDelivery) Send(_ context.Context, consoleId string, data []byte) {
	var f TranscriptFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.frames[consoleId] = append(d.frames[consoleId], f)
}

func (d *recordingDelivery) get(consoleId string) []TranscriptFrame {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]TranscriptFrame, len(d.frames[consoleId]))
	copy(out, d.frames[consoleId])
	return out
}

func newTestTranscriptService(t *testing.T, delivery TranscriptDelivery) ITranscriptService {
	t.Helper()
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{BlockPublishUntilSubscriberAck: true},
		watermill.NopLogger{},
	)
	t.Cleanup(func() { _ = pubSub.Close() })

	svc := NewTranscriptService(pubSub, pubSub, "transcript-test", delivery, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, svc.Relay(ctx))
	return svc
}

func TestTranscriptService_RelaysEventsInOrderPerConsole(t *testing.T) {
	delivery := newRecordingDelivery()
	svc := newTestTranscriptService(t, delivery)

	sink := svc.SinkFor("c-1")
	transcript := chat.NewTranscript("default", sink)
	first := transcript.Append(chat.Message{Kind: chat.KindUser, Text: "hello <world>"})
	transcript.Append(chat.Message{Kind: chat.KindReasoning, Text: chat.PlaceholderText, Placeholder: true})
	transcript.Remove(first.Id)

	require.Eventually(t, func() bool { return len(delivery.get("c-1")) == 3 }, time.Second, 10*time.Millisecond)

	frames := delivery.get("c-1")
	assert.Equal(t, []chat.EventOp{chat.OpAppend, chat.OpAppend, chat.OpRemove},
		[]chat.EventOp{frames[0].Op, frames[1].Op, frames[2].Op})
	assert.Equal(t, []uint64{1, 2, 3}, []uint64{frames[0].Seq, frames[1].Seq, frames[2].Seq})
	assert.Equal(t, first.Id, frames[0].MessageId)
	assert.Contains(t, frames[0].HTML, "hello &lt;world&gt;")
	assert.Equal(t, first.Id, frames[2].MessageId)
	assert.Empty(t, delivery.get("c-2"))
}

func TestTranscriptService_ResetCarriesWholeTranscript(t *testing.T) {
	delivery := newRecordingDelivery()
	svc := newTestTranscriptService(t, delivery)

	transcript := chat.NewTranscript("default", svc.SinkFor("c-1"))
	transcript.Reset("s-2", chat.Message{Kind: chat.KindAssistant, Text: "New session started!"})

	require.Eventually(t, func() bool { return len(delivery.get("c-1")) == 1 }, time.Second, 10*time.Millisecond)

	frame := delivery.get("c-1")[0]
	assert.Equal(t, chat.OpReset, frame.Op)
	assert.Equal(t, "s-2", frame.SessionId)
	assert.Contains(t, frame.HTML, "New session started!")
}

func TestFrame_UnknownOp_ShouldError(t *testing.T) {
	_, err := Frame(chat.Event{Op: "patch"})
	assert.Error(t, err)

	_, err = Frame(chat.Event{Op: chat.OpAppend})
	assert.Error(t, err)
}
