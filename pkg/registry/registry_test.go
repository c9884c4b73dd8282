package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kb-console/internal/pkg/logger"
	"kb-console/pkg/kbclient"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	mu        sync.Mutex
	files     []kbclient.FileRecord
	listErr   error
	deleteErr error
	listCalls []string
	deleted   []string
}

func (f *fakeAPI) ListFiles(ctx context.Context, tag string) ([]kbclient.FileRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls = append(f.listCalls, tag)
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]kbclient.FileRecord, len(f.files))
	copy(out, f.files)
	return out, nil
}

func (f *fakeAPI) DeleteByTag(ctx context.Context, tag string) (*kbclient.MessageResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deleted = append(f.deleted, tag)
	return &kbclient.MessageResponse{Message: "removed " + tag}, nil
}

func (f *fakeAPI) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listCalls)
}

// manualScheduler records scheduled funcs and runs them on demand.
type manualScheduler struct {
	delays []time.Duration
	funcs  []func()
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) {
	s.delays = append(s.delays, d)
	s.funcs = append(s.funcs, f)
}

func (s *manualScheduler) fire() {
	funcs := s.funcs
	s.funcs = nil
	for _, f := range funcs {
		f()
	}
}

func sampleFiles() []kbclient.FileRecord {
	return []kbclient.FileRecord{
		{Id: "1", FileName: "handbook.pdf", Tag: "HR-Policies", UploadTime: "2024-05-01T10:00:00"},
		{Id: "2", FileName: "leave.docx", Tag: "hr-policies", UploadTime: "2024-05-02T10:00:00"},
		{Id: "3", FileName: "roadmap.md", Tag: "engineering", UploadTime: "2024-05-03T10:00:00"},
		{Id: "4", FileName: "scratch.txt", UploadTime: "2024-05-04T10:00:00"},
	}
}

func newRegistry(api FileAPI, s Scheduler) *Registry {
	return New(api, s, time.Second, logger.NewNop())
}

func TestLoad_ShouldCacheFilesAndDistinctTags(t *testing.T) {
	api := &fakeAPI{files: sampleFiles()}
	r := newRegistry(api, &manualScheduler{})

	require.NoError(t, r.Load(context.Background(), ""))

	st := r.Snapshot()
	assert.True(t, st.Loaded)
	assert.Len(t, st.Files, 4)
	assert.Equal(t, Stats{TotalFiles: 4, TotalTags: 3, Displayed: 4}, st.Stats)
	assert.Empty(t, st.LoadError)

	notice := r.TakeNotice()
	require.NotNil(t, notice)
	assert.Equal(t, NoticeSuccess, notice.Kind)
	assert.Nil(t, r.TakeNotice(), "notice is transient")
}

func TestLoad_ShouldReplaceTagSetWholesale(t *testing.T) {
	api := &fakeAPI{files: sampleFiles()}
	r := newRegistry(api, &manualScheduler{})
	require.NoError(t, r.Load(context.Background(), ""))

	api.files = []kbclient.FileRecord{{Id: "9", FileName: "only.txt", Tag: "solo"}}
	require.NoError(t, r.Load(context.Background(), ""))

	assert.Equal(t, Stats{TotalFiles: 1, TotalTags: 1, Displayed: 1}, r.Stats())
}

func TestLoad_WithServerTag_ShouldPassTagAndReplaceCache(t *testing.T) {
	api := &fakeAPI{files: sampleFiles()[:2]}
	r := newRegistry(api, &manualScheduler{})

	require.NoError(t, r.Load(context.Background(), "hr"))

	assert.Equal(t, []string{"hr"}, api.listCalls)
	assert.Equal(t, 2, r.Stats().TotalFiles)
}

func TestLoad_WhenBackendFails_ShouldKeepCacheAndShowError(t *testing.T) {
	api := &fakeAPI{files: sampleFiles()}
	r := newRegistry(api, &manualScheduler{})
	require.NoError(t, r.Load(context.Background(), ""))
	r.TakeNotice()

	api.listErr = &kbclient.RequestError{StatusCode: 503, Status: "503 Service Unavailable"}
	err := r.Load(context.Background(), "")

	require.Error(t, err)
	st := r.Snapshot()
	assert.Equal(t, "HTTP 503: Service Unavailable", st.LoadError)
	assert.Equal(t, 4, st.Stats.TotalFiles)
	notice := r.TakeNotice()
	require.NotNil(t, notice)
	assert.Equal(t, NoticeError, notice.Kind)
	assert.Contains(t, notice.Text, "503")
	assert.Equal(t, 2, api.calls(), "no automatic retry")
}

func TestApplyFilter_ShouldMatchTagCaseInsensitively(t *testing.T) {
	api := &fakeAPI{files: sampleFiles()}
	r := newRegistry(api, &manualScheduler{})
	require.NoError(t, r.Load(context.Background(), ""))

	r.ApplyFilter("POLIC")

	st := r.Snapshot()
	require.Len(t, st.Files, 2)
	assert.Equal(t, "handbook.pdf", st.Files[0].FileName)
	assert.Equal(t, "leave.docx", st.Files[1].FileName)
	assert.Equal(t, Stats{TotalFiles: 4, TotalTags: 3, Displayed: 2}, st.Stats)
	assert.Equal(t, 1, api.calls(), "local filter never refetches")
}

func TestApplyFilter_UntaggedFilesNeverMatch(t *testing.T) {
	api := &fakeAPI{files: sampleFiles()}
	r := newRegistry(api, &manualScheduler{})
	require.NoError(t, r.Load(context.Background(), ""))

	r.ApplyFilter("scratch")

	assert.Empty(t, r.Snapshot().Files)
}

func TestApplyFilter_ClearingRestoresOriginalListAndStats(t *testing.T) {
	api := &fakeAPI{files: sampleFiles()}
	r := newRegistry(api, &manualScheduler{})
	require.NoError(t, r.Load(context.Background(), ""))
	before := r.Snapshot()

	r.ApplyFilter("eng")
	r.ApplyFilter("")

	after := r.Snapshot()
	assert.Equal(t, before.Files, after.Files)
	assert.Equal(t, before.Stats, after.Stats)
}

func TestDeleteByTag_WithoutConfirmation_ShouldNotCallBackend(t *testing.T) {
	api := &fakeAPI{files: sampleFiles()}
	s := &manualScheduler{}
	r := newRegistry(api, s)

	_, err := r.DeleteByTag(context.Background(), "engineering", false)

	assert.ErrorIs(t, err, ErrConfirmationRequired)
	assert.Empty(t, api.deleted)
	assert.Empty(t, s.funcs)
}

func TestDeleteByTag_OnSuccess_ShouldScheduleExactlyOneDelayedReload(t *testing.T) {
	api := &fakeAPI{files: sampleFiles()}
	s := &manualScheduler{}
	r := newRegistry(api, s)
	require.NoError(t, r.Load(context.Background(), ""))
	r.TakeNotice()

	res, err := r.DeleteByTag(context.Background(), "foo", true)

	require.NoError(t, err)
	assert.Equal(t, "removed foo", res.Message)
	assert.Equal(t, []string{"foo"}, api.deleted)
	notice := r.TakeNotice()
	require.NotNil(t, notice)
	assert.Equal(t, "Deleted: removed foo", notice.Text)

	require.Len(t, s.funcs, 1)
	assert.Equal(t, time.Second, s.delays[0])
	assert.Equal(t, 1, api.calls(), "reload must not happen before the delay")

	s.fire()

	assert.Equal(t, 2, api.calls())
	assert.Equal(t, "", api.listCalls[1])
}

func TestDeleteByTag_OnFailure_ShouldLeaveViewUntouched(t *testing.T) {
	api := &fakeAPI{files: sampleFiles()}
	s := &manualScheduler{}
	r := newRegistry(api, s)
	require.NoError(t, r.Load(context.Background(), ""))
	r.ApplyFilter("hr")
	r.TakeNotice()
	before := r.Snapshot()

	api.deleteErr = errors.New("connection refused")
	_, err := r.DeleteByTag(context.Background(), "hr-policies", true)

	require.Error(t, err)
	assert.Equal(t, before, r.Snapshot())
	assert.Empty(t, s.funcs)
	notice := r.TakeNotice()
	require.NotNil(t, notice)
	assert.Equal(t, NoticeError, notice.Kind)
	assert.Equal(t, "Delete failed: connection refused", notice.Text)
}

func TestDeleteByTag_WithTimerScheduler_ShouldReloadAfterDelay(t *testing.T) {
	api := &fakeAPI{files: sampleFiles()}
	r := New(api, TimerScheduler, 20*time.Millisecond, logger.NewNop())

	_, err := r.DeleteByTag(context.Background(), "foo", true)
	require.NoError(t, err)

	assert.Equal(t, 0, api.calls())
	assert.Eventually(t, func() bool { return api.calls() == 1 }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return api.calls() > 1 }, 60*time.Millisecond, 10*time.Millisecond)
}
