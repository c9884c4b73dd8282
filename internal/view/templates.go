package view

const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<link rel="stylesheet" href="/static/console.css">
</head>
<body>
<nav class="top-nav"><a href="/">Q&amp;A</a> · <a href="/files">Files</a></nav>
<main>{{.Body}}</main>
{{range .Scripts}}<script src="{{.}}" defer></script>{{end}}
</body>
</html>{{end}}`

const fileListTemplate = `{{define "file_list"}}{{if not .}}<div class="empty-state">
<h3>No files</h3>
<p>No files match the current filter.</p>
</div>{{else}}<div class="files-grid">{{range .}}
<div class="file-card">
<div class="file-header"><div class="file-info">
<div class="file-name">{{.FileName}}</div>
<div class="file-meta"><span>📅 {{.UploadTime}}</span> <span>🏷️ ID: {{.Id}}</span></div>
{{if .Tag}}<span class="tag-badge">{{.Tag}}</span>{{end}}
</div></div>
{{if .Tag}}<div class="file-actions">
<form method="post" action="/files/delete/{{pathEscape .Tag}}" class="delete-form" data-tag="{{.Tag}}">
<button type="submit" class="btn btn-danger">Delete all files with this tag</button>
</form>
</div>{{end}}
</div>{{end}}
</div>{{end}}{{end}}`

const filesPanelTemplate = `{{define "files_panel"}}<div id="filesPanel">
<div class="stats">
<div class="stat"><span id="totalFiles">{{.State.Stats.TotalFiles}}</span> files</div>
<div class="stat"><span id="totalTags">{{.State.Stats.TotalTags}}</span> tags</div>
<div class="stat"><span id="filteredFiles">{{.State.Stats.Displayed}}</span> shown</div>
</div>
<div id="messageArea">{{with .Notice}}<div class="{{.Kind}}">{{.Text}}</div>{{end}}</div>
<div id="filesContainer">{{if .State.LoadError}}<div class="error">
<strong>Load failed:</strong> {{.State.LoadError}}
<br>Please check the network connection and that the API is reachable.
</div>{{else if .State.Loading}}<div class="loading">Loading file list...</div>{{else}}{{template "file_list" .State.Files}}{{end}}</div>
</div>{{end}}`

const filesPageTemplate = `{{define "files_page"}}<section class="file-manager">
<h1>Uploaded files</h1>
<div class="toolbar">
<input type="text" id="tagFilter" name="q" value="{{.State.Filter}}" placeholder="Filter by tag (Enter searches the server)" autocomplete="off">
<form method="post" action="/files/reload"><button type="submit" class="btn">Reload</button></form>
</div>
{{template "files_panel" .}}
</section>{{end}}`

const messageTemplate = `{{define "message"}}<div class="message {{.Class}}" id="message-{{.Message.Id}}">{{if .Prefix}}<strong>{{.Prefix}}</strong><br>{{end}}{{if .Emoji}}{{.Emoji}} {{end}}
{{- with .Message}}
{{- if .Steps}}<strong>Thinking Process:</strong><br>{{range .Steps}}<div class="thought-step"><strong>Step {{.Number}}:</strong> {{if .Structured}}<pre>{{.Content}}</pre>{{else}}{{.Content}}{{end}}</div>{{end}}
{{- else}}
{{- if .Sources}}<div class="origin-section"><h4>📚 Source References:</h4>{{range .Sources}}<div class="origin-item">{{.}}</div>{{end}}</div>{{end}}
{{- if .Answer}}<strong>Answer:</strong><br>{{end}}<span class="message-text">{{.Text}}</span>
{{- end}}
{{- end}}</div>{{end}}`

const uploadPanelTemplate = `{{define "upload_panel"}}<div id="uploadPanel">
<form id="uploadForm" method="post" action="/upload" enctype="multipart/form-data">
<input type="file" id="fileInput" name="file">
<input type="text" id="tagInput" name="tag" value="{{.Tag}}" placeholder="Document tag">
<button type="submit"{{if .SubmitDisabled}} disabled{{end}}>Upload</button>
</form>
<div id="uploadLoading" class="loading{{if .Loading}} show{{end}}">Uploading...</div>
<div id="uploadResult">{{with .Result}}<div class="{{.Kind}}">{{.Text}}</div>{{end}}</div>
</div>{{end}}`

const consolePageTemplate = `{{define "console_page"}}<section class="upload">
<h2>Upload a document</h2>
{{template "upload_panel" .Upload}}
</section>
<section class="chat" data-console="{{.ConsoleId}}">
<h2>Ask the knowledge base</h2>
<form id="sessionForm" method="post" action="/session">
<input type="text" id="sessionIdInput" name="session_id" value="{{.SessionId}}">
<button type="submit">New session</button>
</form>
<div id="chatMessages">{{.Transcript}}</div>
<form id="queryForm" method="post" action="/query">
<textarea id="questionInput" name="question"{{if .Query.FocusQuestion}} autofocus{{end}}>{{.Query.Question}}</textarea>
<input type="text" id="queryTagInput" name="tag" value="{{.Query.Tag}}" placeholder="Limit to tag (optional)">
<label><input type="checkbox" id="styleCheckbox" name="style_needed" value="true"{{if .Query.StyleNeeded}} checked{{end}}> Styled answer</label>
<button type="submit"{{if .Query.SubmitDisabled}} disabled{{end}}>Ask</button>
</form>
</section>{{end}}`
