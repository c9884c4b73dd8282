package kbclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", 5*time.Second)
}

func TestListFiles_WithoutTag_ShouldHitPlainPath(t *testing.T) {
	var gotPath, gotQuery string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotQuery = r.URL.Path, r.URL.RawQuery
		w.Write([]byte(`[{"id":1,"file_name":"a.pdf","tag":"hr","upload_time":"2024-01-01"},{"id":"x2","file_name":"b.txt","upload_time":"2024-01-02"}]`))
	})

	files, err := c.ListFiles(context.Background(), "")

	require.NoError(t, err)
	assert.Equal(t, "/list-files", gotPath)
	assert.Empty(t, gotQuery)
	require.Len(t, files, 2)
	assert.Equal(t, RecordID("1"), files[0].Id)
	assert.Equal(t, RecordID("x2"), files[1].Id)
	assert.Equal(t, "hr", files[0].Tag)
	assert.Empty(t, files[1].Tag)
}

func TestListFiles_WithTag_ShouldSendTagQuery(t *testing.T) {
	var gotTag string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotTag = r.URL.Query().Get("tag")
		w.Write([]byte(`[]`))
	})

	files, err := c.ListFiles(context.Background(), "q&a reports")

	require.NoError(t, err)
	assert.Equal(t, "q&a reports", gotTag)
	assert.NotNil(t, files)
	assert.Empty(t, files)
}

func TestListFiles_WhenServerFails_ShouldReturnRequestError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"detail":"database offline"}`))
	})

	_, err := c.ListFiles(context.Background(), "")

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusInternalServerError, reqErr.StatusCode)
	assert.Equal(t, "database offline", reqErr.Detail)
	assert.Equal(t, "HTTP 500: Internal Server Error", reqErr.Error())
}

func TestDeleteByTag_ShouldPathEscapeTag(t *testing.T) {
	var gotMethod, gotRawPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotRawPath = r.URL.EscapedPath()
		w.Write([]byte(`{"message":"deleted 3 files"}`))
	})

	res, err := c.DeleteByTag(context.Background(), "a/b c")

	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, gotMethod)
	assert.Equal(t, "/delete-file/a%2Fb%20c", gotRawPath)
	assert.Equal(t, "deleted 3 files", res.Message)
}

func TestUpload_ShouldSendMultipartWithTrimmedTag(t *testing.T) {
	var gotTag, gotName, gotContent string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		gotTag = r.FormValue("tag")
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer f.Close()
		b, _ := io.ReadAll(f)
		gotName, gotContent = hdr.Filename, string(b)
		w.Write([]byte(`{"message":"uploaded"}`))
	})

	res, err := c.Upload(context.Background(), UploadInput{
		FileName: "notes.md",
		Content:  strings.NewReader("# hello"),
		Tag:      "  team  ",
	})

	require.NoError(t, err)
	assert.Equal(t, "uploaded", res.Message)
	assert.Equal(t, "team", gotTag)
	assert.Equal(t, "notes.md", gotName)
	assert.Equal(t, "# hello", gotContent)
}

func TestQuery_ShouldOmitOptionalParams(t *testing.T) {
	var got map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(`{"answer":"42"}`))
	})

	res, err := c.Query(context.Background(), QueryParams{Question: "why?", SessionId: "default"})

	require.NoError(t, err)
	assert.Equal(t, "42", res.Answer)
	assert.Equal(t, []string{"why?"}, got["question"])
	assert.Equal(t, []string{"default"}, got["session_id"])
	assert.NotContains(t, got, "tag")
	assert.NotContains(t, got, "style_needed")
}

func TestQuery_ShouldSendTagAndStyle(t *testing.T) {
	var got map[string][]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.URL.Query()
		w.Write([]byte(`{"answer":"ok","thoughts":["a",{"tool":"search"}],"origin":["src1"]}`))
	})

	res, err := c.Query(context.Background(), QueryParams{Question: "q", SessionId: "s1", Tag: "hr", StyleNeeded: true})

	require.NoError(t, err)
	assert.Equal(t, []string{"hr"}, got["tag"])
	assert.Equal(t, []string{"true"}, got["style_needed"])
	require.Len(t, res.Thoughts, 2)
	text, plain := RawText(res.Thoughts[0])
	assert.True(t, plain)
	assert.Equal(t, "a", text)
	text, plain = RawText(res.Thoughts[1])
	assert.False(t, plain)
	assert.Contains(t, text, `"tool": "search"`)
	assert.Equal(t, []string{"src1"}, res.OriginTexts())
}

func TestQuery_WithNonArrayThoughtsOrOrigin_ShouldKeepAnswer(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "string thoughts", body: `{"answer":"A","thoughts":"single thought"}`},
		{name: "string origin", body: `{"answer":"A","origin":"src1"}`},
		{name: "object thoughts", body: `{"answer":"A","thoughts":{"step":1},"origin":null}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tt.body))
			})

			res, err := c.Query(context.Background(), QueryParams{Question: "q", SessionId: "s"})

			require.NoError(t, err)
			assert.Equal(t, "A", res.Answer)
			assert.Empty(t, res.Thoughts)
			assert.Empty(t, res.OriginTexts())
		})
	}
}

func TestRawText_NullShouldRenderAsJSON(t *testing.T) {
	var res QueryResponse
	require.NoError(t, json.Unmarshal([]byte(`{"answer":"A","thoughts":[null,"b"]}`), &res))
	require.Len(t, res.Thoughts, 2)

	text, plain := RawText(res.Thoughts[0])
	assert.Equal(t, "null", text)
	assert.False(t, plain)

	text, plain = RawText(res.Thoughts[1])
	assert.Equal(t, "b", text)
	assert.True(t, plain)
}

func TestRecordID_NullShouldBeEmpty(t *testing.T) {
	var rec FileRecord
	require.NoError(t, json.Unmarshal([]byte(`{"id":null,"file_name":"a.pdf"}`), &rec))
	assert.Equal(t, RecordID(""), rec.Id)
}

func TestQuery_WhenTransportFails_ShouldWrapError(t *testing.T) {
	c := New("http://127.0.0.1:1", time.Second)

	_, err := c.Query(context.Background(), QueryParams{Question: "q", SessionId: "s"})

	require.Error(t, err)
	var reqErr *RequestError
	assert.False(t, errors.As(err, &reqErr))
	assert.Contains(t, err.Error(), "query request failed")
}

func TestQuery_WhenContextCanceled_ShouldUnwrapToCanceled(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Query(ctx, QueryParams{Question: "q", SessionId: "s"})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestHealth_ShouldDecodeArbitraryJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok", "version": 2})
	})

	res, err := c.Health(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "ok", res["status"])
}

func TestParseDetail(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"string detail", `{"detail":"bad tag"}`, "bad tag"},
		{"structured detail", `{"detail":[{"loc":["query","question"],"msg":"field required"}]}`, `[{"loc":["query","question"],"msg":"field required"}]`},
		{"null detail", `{"detail":null}`, ""},
		{"no detail", `{"error":"x"}`, ""},
		{"not json", `<html>502</html>`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseDetail([]byte(tt.body)))
		})
	}
}
