package kbclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// API is the backend surface the console depends on.
type API interface {
	ListFiles(ctx context.Context, tag string) ([]FileRecord, error)
	DeleteByTag(ctx context.Context, tag string) (*MessageResponse, error)
	Upload(ctx context.Context, input UploadInput) (*MessageResponse, error)
	Query(ctx context.Context, params QueryParams) (*QueryResponse, error)
	Health(ctx context.Context) (map[string]interface{}, error)
}

type Client struct {
	BaseURL string
	Client  *http.Client
	tracer  trace.Tracer
}

var _ API = &Client{}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client: &http.Client{
			Timeout: timeout,
		},
		tracer: otel.Tracer("kb-console/kbclient"),
	}
}

func (c *Client) ListFiles(ctx context.Context, tag string) ([]FileRecord, error) {
	ctx, span := c.startSpan(ctx, "ListFiles", attribute.String("kb.tag", tag))
	defer span.End()

	endpoint := c.BaseURL + "/list-files"
	if tag != "" {
		endpoint += "?" + url.Values{"tag": {tag}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("create request: %w", err))
	}

	var files []FileRecord
	if err := c.do(req, "list files", &files); err != nil {
		return nil, failSpan(span, err)
	}
	if files == nil {
		files = []FileRecord{}
	}
	span.SetAttributes(attribute.Int("kb.files", len(files)))
	return files, nil
}

func (c *Client) DeleteByTag(ctx context.Context, tag string) (*MessageResponse, error) {
	ctx, span := c.startSpan(ctx, "DeleteByTag", attribute.String("kb.tag", tag))
	defer span.End()

	endpoint := c.BaseURL + "/delete-file/" + url.PathEscape(tag)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("create request: %w", err))
	}

	var result MessageResponse
	if err := c.do(req, "delete files", &result); err != nil {
		return nil, failSpan(span, err)
	}
	return &result, nil
}

func (c *Client) Upload(ctx context.Context, input UploadInput) (*MessageResponse, error) {
	tag := strings.TrimSpace(input.Tag)
	ctx, span := c.startSpan(ctx, "Upload",
		attribute.String("kb.tag", tag),
		attribute.String("kb.file_name", input.FileName),
	)
	defer span.End()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", input.FileName)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("create form file: %w", err))
	}
	if input.Content != nil {
		if _, err := io.Copy(part, input.Content); err != nil {
			return nil, failSpan(span, fmt.Errorf("copy file content: %w", err))
		}
	}
	if err := writer.WriteField("tag", tag); err != nil {
		return nil, failSpan(span, fmt.Errorf("write tag field: %w", err))
	}
	if err := writer.Close(); err != nil {
		return nil, failSpan(span, fmt.Errorf("close multipart writer: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload-data", &body)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result MessageResponse
	if err := c.do(req, "upload", &result); err != nil {
		return nil, failSpan(span, err)
	}
	return &result, nil
}

func (c *Client) Query(ctx context.Context, params QueryParams) (*QueryResponse, error) {
	ctx, span := c.startSpan(ctx, "Query",
		attribute.String("kb.session_id", params.SessionId),
		attribute.Bool("kb.style_needed", params.StyleNeeded),
	)
	defer span.End()

	values := url.Values{}
	values.Add("question", params.Question)
	values.Add("session_id", params.SessionId)
	if params.Tag != "" {
		values.Add("tag", params.Tag)
	}
	if params.StyleNeeded {
		values.Add("style_needed", "true")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/query?"+values.Encode(), nil)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("create request: %w", err))
	}

	var result QueryResponse
	if err := c.do(req, "query", &result); err != nil {
		return nil, failSpan(span, err)
	}
	span.SetAttributes(
		attribute.Int("kb.thoughts", len(result.Thoughts)),
		attribute.Int("kb.origins", len(result.Origin)),
	)
	return &result, nil
}

func (c *Client) Health(ctx context.Context) (map[string]interface{}, error) {
	ctx, span := c.startSpan(ctx, "Health")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/", nil)
	if err != nil {
		return nil, failSpan(span, fmt.Errorf("create request: %w", err))
	}

	var result map[string]interface{}
	if err := c.do(req, "health check", &result); err != nil {
		return nil, failSpan(span, err)
	}
	return result, nil
}

// do sends req and decodes a 2xx JSON body into out. Non-2xx responses
// become *RequestError with the backend's detail when it sent one.
func (c *Client) do(req *http.Request, op string, out interface{}) error {
	req.Header.Set("Accept", "application/json")

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request failed: %w", op, err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s response: %w", op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestError{
			Op:         op,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Detail:     parseDetail(bodyBytes),
		}
	}

	if out == nil || len(bytes.TrimSpace(bodyBytes)) == 0 {
		return nil
	}
	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return fmt.Errorf("unmarshal %s response: %w", op, err)
	}
	return nil
}

func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	if string(payload.Detail) == "null" {
		return ""
	}
	text, plain := RawText(payload.Detail)
	if !plain {
		// keep structured details on one line
		var buf bytes.Buffer
		if err := json.Compact(&buf, payload.Detail); err == nil {
			text = buf.String()
		}
	}
	return text
}

func (c *Client) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	tracer := c.tracer
	if tracer == nil {
		tracer = otel.Tracer("kb-console/kbclient")
	}
	return tracer.Start(ctx, "kbclient."+op, trace.WithAttributes(attrs...))
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
