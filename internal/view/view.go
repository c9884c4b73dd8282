// Package view renders console state into HTML. Every function takes a
// snapshot and returns markup; escaping is left to html/template.
package view

import (
	"bytes"
	"fmt"
	"html/template"
	"net/url"

	"kb-console/pkg/chat"
	"kb-console/pkg/kbclient"
	"kb-console/pkg/registry"
)

var templates = template.Must(
	template.New("view").
		Funcs(template.FuncMap{"pathEscape": url.PathEscape}).
		Parse(layoutTemplate + fileListTemplate + filesPanelTemplate + filesPageTemplate +
			messageTemplate + uploadPanelTemplate + consolePageTemplate),
)

type messageView struct {
	Message chat.Message
	Class   string
	Prefix  string
	Emoji   string
}

type filesView struct {
	State  registry.State
	Notice *registry.Notice
}

type consoleView struct {
	ConsoleId  string
	SessionId  string
	Transcript template.HTML
	Query      chat.QueryForm
	Upload     chat.UploadForm
}

type layoutView struct {
	Title   string
	Body    template.HTML
	Scripts []string
}

// FileList projects records to markup. An empty slice renders the explicit
// "no files" state.
func FileList(files []kbclient.FileRecord) (template.HTML, error) {
	return execute("file_list", files)
}

// FilesPanel renders stats, the pending notice and the list (or the load
// error in its place).
func FilesPanel(state registry.State, notice *registry.Notice) (template.HTML, error) {
	return execute("files_panel", filesView{State: state, Notice: notice})
}

func FilesPage(state registry.State, notice *registry.Notice) (template.HTML, error) {
	body, err := execute("files_page", filesView{State: state, Notice: notice})
	if err != nil {
		return "", err
	}
	return execute("layout", layoutView{Title: "Files", Body: body, Scripts: []string{"/static/files.js"}})
}

// Message renders one transcript entry.
func Message(m chat.Message) (template.HTML, error) {
	mv := messageView{Message: m}
	switch m.Kind {
	case chat.KindUser:
		mv.Class, mv.Prefix = "user-message", "You:"
	case chat.KindAssistant:
		mv.Class, mv.Prefix = "bot-message", "Assistant:"
	case chat.KindReasoning:
		mv.Class, mv.Emoji = "thinking-message", "🤔"
	default:
		return "", fmt.Errorf("render message %s: unknown kind %s", m.Id, m.Kind)
	}
	return execute("message", mv)
}

// Messages renders messages back to back, in order.
func Messages(msgs []chat.Message) (template.HTML, error) {
	var buf bytes.Buffer
	for _, m := range msgs {
		html, err := Message(m)
		if err != nil {
			return "", err
		}
		buf.WriteString(string(html))
	}
	return template.HTML(buf.String()), nil
}

func UploadPanel(form chat.UploadForm) (template.HTML, error) {
	return execute("upload_panel", form)
}

func ConsolePage(consoleId string, state chat.State) (template.HTML, error) {
	transcript, err := Messages(state.Messages)
	if err != nil {
		return "", err
	}
	body, err := execute("console_page", consoleView{
		ConsoleId:  consoleId,
		SessionId:  state.SessionId,
		Transcript: transcript,
		Query:      state.Query,
		Upload:     state.Upload,
	})
	if err != nil {
		return "", err
	}
	return execute("layout", layoutView{Title: "Knowledge Base Q&A", Body: body, Scripts: []string{"/static/console.js"}})
}

func execute(name string, data interface{}) (template.HTML, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return template.HTML(buf.String()), nil
}
