package output

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgrelay/internal/utils"
)

// DefaultEditInterval spaces out progress edits to stay under chat edit limits.
const DefaultEditInterval = 3 * time.Second

// Editor is the part of the bot identity that maintains a status message.
type Editor interface {
	SendText(ctx context.Context, chat int64, text string) (int, error)
	EditText(ctx context.Context, chat int64, msgID int, text string) error
	DeleteMessage(ctx context.Context, chat int64, msgID int) error
}

// Status is one editable chat message that reflects a running job.
type Status struct {
	mu       sync.Mutex
	ed       Editor
	chat     int64
	id       int
	text     string
	lastEdit time.Time
	interval time.Duration
	now      func() time.Time
}

// NewStatus posts the initial text. A failed post leaves a Status that
// silently drops later updates.
func NewStatus(ctx context.Context, ed Editor, chat int64, text string) *Status {
	s := &Status{ed: ed, chat: chat, text: text, interval: DefaultEditInterval, now: time.Now}
	id, err := ed.SendText(ctx, chat, text)
	if err != nil {
		log.Warn().Str("op", "output/status").Msgf("could not post status message: %v", err)
		return s
	}
	s.id = id
	s.lastEdit = s.now()
	return s
}

// Set replaces the text right away.
func (s *Status) Set(ctx context.Context, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edit(ctx, text)
}

func (s *Status) edit(ctx context.Context, text string) {
	if s.id == 0 || text == s.text {
		return
	}
	if err := s.ed.EditText(ctx, s.chat, s.id, text); err != nil {
		log.Debug().Str("op", "output/status").Msgf("status edit failed: %v", err)
		return
	}
	s.text = text
	s.lastEdit = s.now()
}

// throttled edits only when the interval has passed, or on completion.
func (s *Status) throttled(ctx context.Context, text string, final bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !final && s.now().Sub(s.lastEdit) < s.interval {
		return
	}
	s.edit(ctx, text)
}

// Bytes returns a callback that renders byte progress under label.
func (s *Status) Bytes(ctx context.Context, label string) utils.ProgressFunc {
	start := s.now()
	return func(current, total int64) {
		s.throttled(ctx, ProgressText(label, current, total, s.now().Sub(start)), total > 0 && current >= total)
	}
}

// Percent returns a callback for tools that report 0-100.
func (s *Status) Percent(ctx context.Context, label string) utils.ProgressFunc {
	return func(current, _ int64) {
		s.throttled(ctx, PercentText(label, float64(current)), current >= 100)
	}
}

func (s *Status) Delete(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id == 0 {
		return
	}
	if err := s.ed.DeleteMessage(ctx, s.chat, s.id); err != nil {
		log.Debug().Str("op", "output/status").Msgf("status delete failed: %v", err)
	}
	s.id = 0
}
