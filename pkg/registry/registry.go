// Package registry keeps the browser-side view of the backend's file records:
// a cached snapshot of the last successful listing, a local tag filter over it,
// and deletion by tag.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"kb-console/internal/pkg/logger"
	"kb-console/pkg/kbclient"
)

var ErrConfirmationRequired = errors.New("deleting by tag requires confirmation")

// FileAPI is the part of the backend the registry talks to.
type FileAPI interface {
	ListFiles(ctx context.Context, tag string) ([]kbclient.FileRecord, error)
	DeleteByTag(ctx context.Context, tag string) (*kbclient.MessageResponse, error)
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) { time.AfterFunc(d, f) }

// TimerScheduler is the production Scheduler backed by time.AfterFunc.
var TimerScheduler Scheduler = timerScheduler{}

type NoticeKind string

const (
	NoticeSuccess NoticeKind = "success"
	NoticeError   NoticeKind = "error"
)

// Notice is a transient status line. It is shown once and then dropped.
type Notice struct {
	Kind NoticeKind
	Text string
}

type Stats struct {
	TotalFiles int
	TotalTags  int
	Displayed  int
}

// State is a render-ready copy of the registry.
type State struct {
	Files     []kbclient.FileRecord
	Stats     Stats
	Filter    string
	LoadError string
	Loaded    bool
	Loading   bool
}

type Registry struct {
	mu sync.Mutex

	api         FileAPI
	scheduler   Scheduler
	reloadDelay time.Duration
	logger      logger.ILogger

	allFiles  []kbclient.FileRecord
	allTags   map[string]struct{}
	displayed []kbclient.FileRecord
	filter    string
	loadErr   string
	loaded    bool
	loading   int
	notice    *Notice
}

func New(api FileAPI, scheduler Scheduler, reloadDelay time.Duration, log logger.ILogger) *Registry {
	if scheduler == nil {
		scheduler = TimerScheduler
	}
	return &Registry{
		api:         api,
		scheduler:   scheduler,
		reloadDelay: reloadDelay,
		logger:      log,
		allFiles:    []kbclient.FileRecord{},
		allTags:     map[string]struct{}{},
		displayed:   []kbclient.FileRecord{},
	}
}

// Load fetches the file list, optionally filtered server-side by tag, and
// replaces the cache wholesale. On failure the cache is left as it was and
// an inline error is shown instead of the list.
func (r *Registry) Load(ctx context.Context, tagFilter string) error {
	r.mu.Lock()
	r.loading++
	r.mu.Unlock()

	files, err := r.api.ListFiles(ctx, tagFilter)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.loading--

	if err != nil {
		r.loadErr = err.Error()
		r.notice = &Notice{Kind: NoticeError, Text: fmt.Sprintf("Load failed: %s", err.Error())}
		r.logger.Error("Registry", "Failed to load file list", map[string]interface{}{
			"tag":   tagFilter,
			"error": err,
		})
		return err
	}

	r.allFiles = files
	r.allTags = distinctTags(files)
	r.filter = ""
	r.displayed = files
	r.loadErr = ""
	r.loaded = true
	r.notice = &Notice{Kind: NoticeSuccess, Text: "File list loaded"}
	r.logger.Info("Registry", "File list loaded", map[string]interface{}{
		"tag":   tagFilter,
		"files": len(files),
		"tags":  len(r.allTags),
	})
	return nil
}

// ApplyFilter narrows the displayed records to those whose tag contains
// substring, case-insensitively. It never refetches.
func (r *Registry) ApplyFilter(substring string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.filter = substring
	r.displayed = filterByTag(r.allFiles, substring)
}

// DeleteByTag removes every record sharing tag. The caller must pass
// confirmed=true; the operation cannot be undone. On success one reload
// is scheduled after the configured delay.
func (r *Registry) DeleteByTag(ctx context.Context, tag string, confirmed bool) (*kbclient.MessageResponse, error) {
	if !confirmed {
		return nil, ErrConfirmationRequired
	}

	result, err := r.api.DeleteByTag(ctx, tag)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.notice = &Notice{Kind: NoticeError, Text: fmt.Sprintf("Delete failed: %s", err.Error())}
		r.logger.Error("Registry", "Failed to delete files by tag", map[string]interface{}{
			"tag":   tag,
			"error": err,
		})
		return nil, err
	}

	r.notice = &Notice{Kind: NoticeSuccess, Text: fmt.Sprintf("Deleted: %s", result.Message)}
	r.logger.Info("Registry", "Files deleted by tag", map[string]interface{}{
		"tag":     tag,
		"message": result.Message,
	})

	r.scheduler.AfterFunc(r.reloadDelay, func() {
		if err := r.Load(context.Background(), ""); err != nil {
			r.logger.Warn("Registry", "Reload after delete failed", map[string]interface{}{"error": err.Error()})
		}
	})

	return result, nil
}

func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statsLocked()
}

func (r *Registry) statsLocked() Stats {
	return Stats{
		TotalFiles: len(r.allFiles),
		TotalTags:  len(r.allTags),
		Displayed:  len(r.displayed),
	}
}

// Snapshot copies the current state for rendering.
func (r *Registry) Snapshot() State {
	r.mu.Lock()
	defer r.mu.Unlock()

	files := make([]kbclient.FileRecord, len(r.displayed))
	copy(files, r.displayed)

	return State{
		Files:     files,
		Stats:     r.statsLocked(),
		Filter:    r.filter,
		LoadError: r.loadErr,
		Loaded:    r.loaded,
		Loading:   r.loading > 0,
	}
}

// Loaded reports whether at least one load has succeeded.
func (r *Registry) Loaded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loaded
}

// TakeNotice returns the pending notice and clears it.
func (r *Registry) TakeNotice() *Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.notice
	r.notice = nil
	return n
}

func distinctTags(files []kbclient.FileRecord) map[string]struct{} {
	tags := make(map[string]struct{})
	for _, f := range files {
		if f.Tag != "" {
			tags[f.Tag] = struct{}{}
		}
	}
	return tags
}

func filterByTag(files []kbclient.FileRecord, substring string) []kbclient.FileRecord {
	if substring == "" {
		return files
	}
	needle := strings.ToLower(substring)
	out := make([]kbclient.FileRecord, 0, len(files))
	for _, f := range files {
		if f.Tag != "" && strings.Contains(strings.ToLower(f.Tag), needle) {
			out = append(out, f)
		}
	}
	return out
}
