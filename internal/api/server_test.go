package api

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"vibecast/internal/pipeline"
	"vibecast/internal/progress"
	"vibecast/internal/tasks"
)

type fakeGenerator struct {
	mu   sync.Mutex
	reqs []pipeline.Request
	run  func(ctx context.Context, req pipeline.Request) (pipeline.Result, error)
}

func (f *fakeGenerator) Run(ctx context.Context, req pipeline.Request) (pipeline.Result, error) {
	f.mu.Lock()
	f.reqs = append(f.reqs, req)
	f.mu.Unlock()
	if f.run != nil {
		return f.run(ctx, req)
	}
	return pipeline.Result{VideoPath: "/out/video.mp4"}, nil
}

type fakeJournal struct {
	records map[string]tasks.Record
}

func (f *fakeJournal) Get(_ context.Context, id string) (tasks.Record, error) {
	record, ok := f.records[id]
	if !ok {
		return tasks.Record{}, tasks.ErrNotFound
	}
	return record, nil
}

func (f *fakeJournal) List(_ context.Context, _ int) ([]tasks.Record, error) {
	var out []tasks.Record
	for _, record := range f.records {
		out = append(out, record)
	}
	return out, nil
}

func newTestServer(t *testing.T) (*Server, *fakeGenerator, *progress.Observer) {
	t.Helper()
	generator := &fakeGenerator{}
	observer := progress.NewObserver(nil)
	server := NewServer(Options{
		Observer:          observer,
		Generator:         generator,
		Journal:           &fakeJournal{records: map[string]tasks.Record{}},
		KeepaliveInterval: 50 * time.Millisecond,
	})
	return server, generator, observer
}

const documentJSON = `{"clusters":[{"cluster_id":"c1","title":"t","dialogues":[
  {"dialogue_id":"d1","speaker":"lisa","text":"hello"}]}]}`

func TestGenerateAcceptsTask(t *testing.T) {
	server, generator, _ := newTestServer(t)

	body := `{"document":` + documentJSON + `,"quality":"fast"}`
	req := httptest.NewRequest(http.MethodPost, "/video/generate", strings.NewReader(body))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp generateResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.TaskID == "" {
		t.Fatal("expected a task id")
	}

	deadline := time.Now().Add(time.Second)
	for {
		generator.mu.Lock()
		count := len(generator.reqs)
		generator.mu.Unlock()
		if count == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("generator was never invoked")
		}
		time.Sleep(5 * time.Millisecond)
	}
	generator.mu.Lock()
	defer generator.mu.Unlock()
	if generator.reqs[0].Quality != "fast" || generator.reqs[0].TaskID != resp.TaskID {
		t.Fatalf("unexpected pipeline request: %+v", generator.reqs[0])
	}
}

func TestGenerateRejectsBadDocument(t *testing.T) {
	server, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/video/generate",
		strings.NewReader(`{"document":{"clusters":[]}}`))
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestStatusFromObserverThenJournal(t *testing.T) {
	generator := &fakeGenerator{}
	observer := progress.NewObserver(nil)
	journal := &fakeJournal{records: map[string]tasks.Record{
		"archived": {ID: "archived", Status: "completed", VideoPath: "/out/old.mp4"},
	}}
	server := NewServer(Options{Observer: observer, Generator: generator, Journal: journal})

	observer.Publish("live", progress.EventTaskStarted, nil)

	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/video/status/live", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("live status: expected 200, got %d", rec.Code)
	}
	var state progress.TaskState
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if state.Status != progress.StatusRunning {
		t.Fatalf("unexpected live status %q", state.Status)
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/video/status/archived", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("archived status: expected 200, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/video/status/absent", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("absent status: expected 404, got %d", rec.Code)
	}
}

func TestProgressStreamsEventsUntilStreamEnd(t *testing.T) {
	server, _, observer := newTestServer(t)

	httpServer := httptest.NewServer(server.Handler())
	defer httpServer.Close()

	resp, err := http.Get(httpServer.URL + "/video/progress/task-1")
	if err != nil {
		t.Fatalf("open stream: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	go func() {
		// Let the subscription land before publishing.
		time.Sleep(50 * time.Millisecond)
		observer.Publish("task-1", progress.EventTaskStarted, nil)
		observer.Publish("task-1", progress.EventTaskCompleted, map[string]any{"video_path": "/out/v.mp4"})
	}()

	scanner := bufio.NewScanner(resp.Body)
	var types []string
	deadline := time.After(5 * time.Second)
	done := make(chan struct{})
	go func() {
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "event: ") {
				types = append(types, strings.TrimPrefix(line, "event: "))
				if strings.Contains(line, "task_completed") {
					close(done)
					return
				}
			}
		}
	}()
	select {
	case <-done:
	case <-deadline:
		t.Fatal("timed out waiting for task_completed on the stream")
	}

	joined := strings.Join(types, ",")
	if !strings.Contains(joined, "connection_established") {
		t.Fatalf("stream must open with connection_established, got %v", types)
	}
	if !strings.Contains(joined, "task_started") || !strings.Contains(joined, "task_completed") {
		t.Fatalf("missing lifecycle events: %v", types)
	}
}

func TestHealthz(t *testing.T) {
	server, _, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	server.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
