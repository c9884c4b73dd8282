// Package chat drives the upload and question/answer cycle against the
// knowledge-base backend and keeps the visible transcript of one browser.
package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"

	"kb-console/internal/pkg/logger"
	"kb-console/pkg/kbclient"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// ErrBusy is returned when the same action is already in flight.
var ErrBusy = errors.New("a request for this action is already in progress")

// ValidationError is a local, pre-flight rejection. No request was sent.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// API is the part of the backend the controller talks to.
type API interface {
	Upload(ctx context.Context, input kbclient.UploadInput) (*kbclient.MessageResponse, error)
	Query(ctx context.Context, params kbclient.QueryParams) (*kbclient.QueryResponse, error)
}

type UploadInput struct {
	FileName string
	Content  io.Reader
	Tag      string
}

type QueryInput struct {
	Question    string
	Tag         string
	StyleNeeded bool
}

type ResultKind string

const (
	ResultSuccess ResultKind = "success"
	ResultError   ResultKind = "error"
)

// UploadResult is the inline message shown under the upload form.
type UploadResult struct {
	Kind ResultKind `json:"kind"`
	Text string     `json:"text"`
}

type UploadForm struct {
	FileName       string
	Tag            string
	Loading        bool
	SubmitDisabled bool
	Result         *UploadResult
}

type QueryForm struct {
	Question       string
	Tag            string
	StyleNeeded    bool
	SubmitDisabled bool
	FocusQuestion  bool
}

// QueryResult lists what one query left in the transcript.
type QueryResult struct {
	Appended []Message
	Failed   bool
	Err      error
	Stale    bool
}

type State struct {
	SessionId string
	Messages  []Message
	Query     QueryForm
	Upload    UploadForm
}

type uploadRequest struct {
	FileName string    `validate:"required"`
	Content  io.Reader `validate:"required"`
	Tag      string    `validate:"required"`
}

var uploadMessages = map[string]string{
	"FileName": "Please select a file",
	"Content":  "Please select a file",
	"Tag":      "Please enter a document tag",
}

type Controller struct {
	mu sync.Mutex

	api        API
	validate   *validator.Validate
	logger     logger.ILogger
	transcript *Transcript

	sessionId   string
	generation  uint64
	cancelQuery context.CancelFunc

	query  QueryForm
	upload UploadForm
}

func NewController(api API, sink Sink, log logger.ILogger) *Controller {
	c := &Controller{
		api:        api,
		validate:   validator.New(),
		logger:     log,
		transcript: NewTranscript(DefaultSessionID, sink),
		sessionId:  DefaultSessionID,
		query:      QueryForm{FocusQuestion: true},
	}
	c.transcript.Reset(DefaultSessionID, Message{Kind: KindAssistant, Text: WelcomeText})
	return c
}

// Upload validates the form locally, then sends the document. Request
// failures end up in the returned result, not in the error.
func (c *Controller) Upload(ctx context.Context, in UploadInput) (*UploadResult, error) {
	tag := strings.TrimSpace(in.Tag)

	if verr := c.validateUpload(in, tag); verr != nil {
		c.mu.Lock()
		if !c.upload.SubmitDisabled {
			// keep what the user typed so the form re-renders as entered
			c.upload.Tag = tag
		}
		c.upload.Result = &UploadResult{Kind: ResultError, Text: verr.Message}
		c.mu.Unlock()
		return nil, verr
	}

	c.mu.Lock()
	if c.upload.SubmitDisabled {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	c.upload.FileName = in.FileName
	c.upload.Tag = tag
	c.upload.Loading = true
	c.upload.SubmitDisabled = true
	c.upload.Result = nil
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.upload.Loading = false
		c.upload.SubmitDisabled = false
		c.mu.Unlock()
	}()

	resp, err := c.api.Upload(ctx, kbclient.UploadInput{
		FileName: in.FileName,
		Content:  in.Content,
		Tag:      tag,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.logger.Error("Chat", "Upload failed", map[string]interface{}{
			"file_name": in.FileName,
			"tag":       tag,
			"error":     err,
		})
		c.upload.Result = &UploadResult{Kind: ResultError, Text: uploadFailedText(err)}
		return c.upload.Result, nil
	}

	c.logger.Info("Chat", "Document uploaded", map[string]interface{}{
		"file_name": in.FileName,
		"tag":       tag,
	})
	c.upload.Result = &UploadResult{Kind: ResultSuccess, Text: "✅ " + resp.Message}
	c.upload.FileName = ""
	c.upload.Tag = ""
	return c.upload.Result, nil
}

func (c *Controller) validateUpload(in UploadInput, tag string) *ValidationError {
	err := c.validate.Struct(uploadRequest{FileName: in.FileName, Content: in.Content, Tag: tag})
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		field := fieldErrs[0].Field()
		return &ValidationError{Field: field, Message: uploadMessages[field]}
	}
	return &ValidationError{Message: err.Error()}
}

// Query asks the backend a question and records the exchange. A blank
// question is ignored. Backend failures become an assistant message; the
// returned error is only ErrBusy.
func (c *Controller) Query(ctx context.Context, in QueryInput) (*QueryResult, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return &QueryResult{}, nil
	}
	tag := strings.TrimSpace(in.Tag)

	c.mu.Lock()
	if c.query.SubmitDisabled {
		c.mu.Unlock()
		return nil, ErrBusy
	}

	user := c.transcript.Append(Message{Kind: KindUser, Text: question})
	placeholder := c.transcript.Append(Message{Kind: KindReasoning, Text: PlaceholderText, Placeholder: true})

	c.query.Question = ""
	c.query.Tag = in.Tag
	c.query.StyleNeeded = in.StyleNeeded
	c.query.SubmitDisabled = true
	c.query.FocusQuestion = false

	queryCtx, cancel := context.WithCancel(ctx)
	c.cancelQuery = cancel
	gen := c.generation
	sessionId := c.sessionId
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.query.SubmitDisabled = false
		c.query.FocusQuestion = true
		if c.generation == gen {
			c.cancelQuery = nil
		}
		c.mu.Unlock()
		cancel()
	}()

	resp, err := c.api.Query(queryCtx, kbclient.QueryParams{
		Question:    question,
		SessionId:   sessionId,
		Tag:         tag,
		StyleNeeded: in.StyleNeeded,
	})

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.generation != gen {
		// a new session started while this request was out
		c.logger.Info("Chat", "Discarding response for superseded session", map[string]interface{}{
			"session_id": sessionId,
		})
		return &QueryResult{Stale: true, Err: err}, nil
	}

	c.transcript.Remove(placeholder.Id)
	result := &QueryResult{Appended: []Message{user}}

	if err != nil {
		c.logger.Error("Chat", "Query failed", map[string]interface{}{
			"session_id": sessionId,
			"error":      err,
		})
		failed := c.transcript.Append(Message{Kind: KindAssistant, Text: queryFailedText(err)})
		result.Appended = append(result.Appended, failed)
		result.Failed = true
		result.Err = err
		return result, nil
	}

	if len(resp.Thoughts) > 0 {
		reasoning := c.transcript.Append(Message{Kind: KindReasoning, Steps: formatSteps(resp.Thoughts)})
		result.Appended = append(result.Appended, reasoning)
	}

	answer := c.transcript.Append(Message{
		Kind:    KindAssistant,
		Text:    answerText(resp),
		Sources: resp.OriginTexts(),
		Answer:  true,
	})
	result.Appended = append(result.Appended, answer)

	c.logger.Info("Chat", "Query answered", map[string]interface{}{
		"session_id": sessionId,
		"thoughts":   len(resp.Thoughts),
		"origins":    len(resp.Origin),
	})
	return result, nil
}

// StartNewSession switches to id, or to a generated id when id is blank,
// and resets the transcript to a greeting. Any query still in flight is
// cancelled and its result discarded. The backend is not contacted.
func (c *Controller) StartNewSession(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		id = "session-" + uuid.NewString()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.sessionId = id
	c.generation++
	if c.cancelQuery != nil {
		c.cancelQuery()
		c.cancelQuery = nil
	}
	c.transcript.Reset(id, Message{Kind: KindAssistant, Text: greetingText(id)})

	c.logger.Info("Chat", "New session started", map[string]interface{}{"session_id": id})
	return id
}

func (c *Controller) SessionId() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionId
}

// Snapshot copies the controller state for rendering.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	upload := c.upload
	if upload.Result != nil {
		r := *upload.Result
		upload.Result = &r
	}
	return State{
		SessionId: c.sessionId,
		Messages:  c.transcript.Messages(),
		Query:     c.query,
		Upload:    upload,
	}
}
