// Package tasks tracks running command handlers so they can be cancelled
// together.
package tasks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type Task struct {
	ID     string
	Name   string
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Wait blocks until the task function returns and yields its error.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

type Manager struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

func NewManager() *Manager {
	return &Manager{tasks: make(map[string]*Task)}
}

// Go runs fn in its own goroutine under a cancellable child of parent. The
// task leaves the registry when fn returns.
func (m *Manager) Go(parent context.Context, name string, fn func(ctx context.Context) error) *Task {
	ctx, cancel := context.WithCancel(parent)
	t := &Task{
		ID:     uuid.New().String(),
		Name:   name,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	m.mu.Lock()
	m.tasks[t.ID] = t
	m.mu.Unlock()

	go func() {
		defer close(t.done)
		defer cancel()
		defer m.remove(t.ID)
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("op", "tasks/manager").Msgf("task %s panicked: %v", name, r)
			}
		}()
		t.err = fn(ctx)
	}()
	return t
}

// Run is Go followed by Wait.
func (m *Manager) Run(parent context.Context, name string, fn func(ctx context.Context) error) error {
	return m.Go(parent, name, fn).Wait()
}

func (m *Manager) remove(id string) {
	m.mu.Lock()
	delete(m.tasks, id)
	m.mu.Unlock()
}

// CancelAll cancels every task still registered and reports how many.
func (m *Manager) CancelAll() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.tasks {
		select {
		case <-t.done:
		default:
			t.cancel()
			n++
		}
	}
	log.Info().Str("op", "tasks/manager").Msgf("cancelled %d running task(s)", n)
	return n
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tasks)
}
