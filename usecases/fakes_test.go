package usecases

import (
	"context"
	"sync"

	"iot-monitor/audit"
)

type fakeRecorder struct {
	mu     sync.Mutex
	events []audit.Event
}

func (f *fakeRecorder) Record(_ context.Context, event audit.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
}

func (f *fakeRecorder) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Action)
	}
	return out
}

type fakeDispatcher struct {
	mu  sync.Mutex
	ids []string
}

func (f *fakeDispatcher) Dispatch(jobID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids = append(f.ids, jobID)
}

type fakeArtifacts map[string]bool

func (f fakeArtifacts) Exists(path string) bool { return f[path] }
