package service

import (
	"context"
	"time"

	"kb-console/internal/constant"
	"kb-console/internal/dto"
	"kb-console/internal/pkg/logger"
	"kb-console/internal/repository/memory"
	"kb-console/pkg/chat"
	"kb-console/pkg/events"
	"kb-console/pkg/kbclient"
	"kb-console/pkg/registry"
	"kb-console/pkg/store"
)

type IConsoleService interface {
	// Console returns the console for id, creating it on first use.
	Console(consoleId string) *store.Console

	Upload(ctx context.Context, console *store.Console, input chat.UploadInput) (*chat.UploadResult, error)
	Query(ctx context.Context, console *store.Console, input chat.QueryInput) (*chat.QueryResult, error)
	StartNewSession(ctx context.Context, console *store.Console, sessionId string) string

	LoadFiles(ctx context.Context, console *store.Console, tag string) error
	FilterFiles(console *store.Console, substring string)
	DeleteFiles(ctx context.Context, console *store.Console, tag string, confirmed bool) (*kbclient.MessageResponse, error)

	Health(ctx context.Context) dto.HealthResponse
	// CheckBackend pings the backend once and logs the outcome.
	CheckBackend(ctx context.Context) error
}

type consoleService struct {
	api         kbclient.API
	consoles    *memory.ConsoleRepository
	transcripts ITranscriptService
	publisher   events.Publisher
	scheduler   registry.Scheduler
	reloadDelay time.Duration
	logger      logger.ILogger
}

func NewConsoleService(
	api kbclient.API,
	consoles *memory.ConsoleRepository,
	transcripts ITranscriptService,
	publisher events.Publisher,
	scheduler registry.Scheduler,
	reloadDelay time.Duration,
	log logger.ILogger,
) IConsoleService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &consoleService{
		api:         api,
		consoles:    consoles,
		transcripts: transcripts,
		publisher:   publisher,
		scheduler:   scheduler,
		reloadDelay: reloadDelay,
		logger:      log,
	}
}

func (s *consoleService) Console(consoleId string) *store.Console {
	if console, ok := s.consoles.Get(consoleId); ok {
		return console
	}

	console := &store.Console{
		ID:        consoleId,
		Files:     registry.New(s.api, s.scheduler, s.reloadDelay, s.logger),
		Chat:      chat.NewController(s.api, s.transcripts.SinkFor(consoleId), s.logger),
		CreatedAt: time.Now(),
	}
	stored := s.consoles.GetOrAdd(console)
	if stored == console {
		s.logger.Info("ConsoleService", "Console created", map[string]interface{}{"console_id": consoleId})
	}
	return stored
}

func (s *consoleService) Upload(ctx context.Context, console *store.Console, input chat.UploadInput) (*chat.UploadResult, error) {
	result, err := console.Chat.Upload(ctx, input)
	if err != nil {
		return nil, err
	}

	eventType := events.DocumentUploaded
	if result.Kind == chat.ResultError {
		eventType = events.UploadFailed
	}
	s.emit(ctx, eventType, map[string]interface{}{
		"console_id": console.ID,
		"file_name":  input.FileName,
		"tag":        input.Tag,
		"result":     result.Text,
	})
	return result, nil
}

func (s *consoleService) Query(ctx context.Context, console *store.Console, input chat.QueryInput) (*chat.QueryResult, error) {
	result, err := console.Chat.Query(ctx, input)
	if err != nil {
		return nil, err
	}
	if len(result.Appended) == 0 || result.Stale {
		return result, nil
	}

	data := map[string]interface{}{
		"console_id": console.ID,
		"session_id": console.Chat.SessionId(),
		"tag":        input.Tag,
	}
	if result.Failed {
		data["error"] = result.Err.Error()
		s.emit(ctx, events.QueryFailed, data)
	} else {
		s.emit(ctx, events.QueryAnswered, data)
	}
	return result, nil
}

func (s *consoleService) StartNewSession(ctx context.Context, console *store.Console, sessionId string) string {
	id := console.Chat.StartNewSession(sessionId)
	s.emit(ctx, events.SessionStarted, map[string]interface{}{
		"console_id": console.ID,
		"session_id": id,
	})
	return id
}

func (s *consoleService) LoadFiles(ctx context.Context, console *store.Console, tag string) error {
	return console.Files.Load(ctx, tag)
}

func (s *consoleService) FilterFiles(console *store.Console, substring string) {
	console.Files.ApplyFilter(substring)
}

func (s *consoleService) DeleteFiles(ctx context.Context, console *store.Console, tag string, confirmed bool) (*kbclient.MessageResponse, error) {
	resp, err := console.Files.DeleteByTag(ctx, tag, confirmed)
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.FilesDeleted, map[string]interface{}{
		"console_id": console.ID,
		"tag":        tag,
		"message":    resp.Message,
	})
	return resp, nil
}

func (s *consoleService) Health(ctx context.Context) dto.HealthResponse {
	res := dto.HealthResponse{
		Status:   constant.HealthStatusOK,
		Backend:  constant.BackendReachable,
		Consoles: s.consoles.Count(),
	}

	info, err := s.api.Health(ctx)
	if err != nil {
		res.Status = constant.HealthStatusDegraded
		res.Backend = constant.BackendUnreachable
		res.BackendError = err.Error()
		return res
	}
	res.BackendInfo = info
	return res
}

func (s *consoleService) CheckBackend(ctx context.Context) error {
	info, err := s.api.Health(ctx)
	if err != nil {
		s.logger.Error("ConsoleService", "Backend connection failed", map[string]interface{}{"error": err})
		return err
	}
	s.logger.Info("ConsoleService", "Backend connection OK", map[string]interface{}{"response": info})
	return nil
}

// emit publishes an activity event. Failures are logged and otherwise ignored.
func (s *consoleService) emit(ctx context.Context, eventType string, data map[string]interface{}) {
	if err := s.publisher.Publish(ctx, events.New(eventType, data)); err != nil {
		s.logger.Warn("ConsoleService", "Failed to publish activity event", map[string]interface{}{
			"type":  eventType,
			"error": err.Error(),
		})
	}
}
