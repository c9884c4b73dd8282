package chat

import (
	"encoding/json"
	"errors"
	"fmt"

	"kb-console/pkg/kbclient"
)

const (
	DefaultSessionID = "default"

	PlaceholderText        = "Thinking..."
	ThinkingProcessHeading = "Thinking Process:"
	SourcesHeading         = "📚 Source References:"
	AnswerHeading          = "Answer:"
	NoAnswerText           = "No answer generated."
	UnknownErrorText       = "Unknown error"

	WelcomeText = "Hello! Upload documents with a tag, then ask questions about them."
)

func greetingText(sessionId string) string {
	return fmt.Sprintf("New session started! Session ID: %s. How can I help you today?", sessionId)
}

// formatSteps numbers the backend's thoughts. Plain strings are kept
// verbatim, anything else is shown as indented JSON.
func formatSteps(thoughts []json.RawMessage) []Step {
	steps := make([]Step, 0, len(thoughts))
	for i, raw := range thoughts {
		text, plain := kbclient.RawText(raw)
		steps = append(steps, Step{
			Number:     i + 1,
			Content:    text,
			Structured: !plain,
		})
	}
	return steps
}

func answerText(resp *kbclient.QueryResponse) string {
	if resp == nil || resp.Answer == "" {
		return NoAnswerText
	}
	return resp.Answer
}

// failureDetail picks the backend's detail for HTTP failures and the
// error text for everything else.
func failureDetail(err error) string {
	var reqErr *kbclient.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Detail != "" {
			return reqErr.Detail
		}
		return UnknownErrorText
	}
	return err.Error()
}

func queryFailedText(err error) string {
	return "❌ Query failed: " + failureDetail(err)
}

func uploadFailedText(err error) string {
	return "❌ Upload failed: " + failureDetail(err)
}
