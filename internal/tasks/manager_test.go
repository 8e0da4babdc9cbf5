package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoRemovesFinishedTask(t *testing.T) {
	m := NewManager()
	err := m.Run(context.Background(), "quick", func(context.Context) error {
		return errors.New("done")
	})
	assert.EqualError(t, err, "done")
	assert.Equal(t, 0, m.Len())
}

func TestCancelAll(t *testing.T) {
	m := NewManager()
	var started sync.WaitGroup
	var tasks []*Task
	for range 3 {
		started.Add(1)
		tasks = append(tasks, m.Go(context.Background(), "blocking", func(ctx context.Context) error {
			started.Done()
			<-ctx.Done()
			return ctx.Err()
		}))
	}
	started.Wait()
	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 3, m.CancelAll())
	for _, task := range tasks {
		assert.ErrorIs(t, task.Wait(), context.Canceled)
	}
	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, m.CancelAll())
}

func TestPanicIsContained(t *testing.T) {
	m := NewManager()
	task := m.Go(context.Background(), "panics", func(context.Context) error {
		panic("boom")
	})
	assert.NoError(t, task.Wait())
	assert.Equal(t, 0, m.Len())
}
