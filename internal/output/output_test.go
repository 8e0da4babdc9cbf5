package output

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/tgrelay/internal/telegram/telegramtest"
)

func TestChatBar(t *testing.T) {
	assert.Equal(t, "[░░░░░░░░░░]", ChatBar(0))
	assert.Equal(t, "[▓▓▓▓░░░░░░]", ChatBar(45))
	assert.Equal(t, "[▓▓▓▓▓▓▓▓▓▓]", ChatBar(100))
	assert.Equal(t, "[▓▓▓▓▓▓▓▓▓▓]", ChatBar(250))
}

func TestProgressText(t *testing.T) {
	out := ProgressText("📥 Downloading Progress", 512, 1024, 2*time.Second)
	assert.Contains(t, out, "**📥 Downloading Progress**")
	assert.Contains(t, out, "Percentage: 50.00% | 512 B/1.00 KB")
	assert.Contains(t, out, "Speed: 256 B/s")
	assert.Contains(t, out, "Estimated Time Left: 2 seconds")
}

func TestPercentText(t *testing.T) {
	assert.Equal(t, "**yt-dlp**\n[▓▓▓▓▓░░░░░] 55%", PercentText("yt-dlp", 55))
}

func TestStatusThrottlesEdits(t *testing.T) {
	ctx := context.Background()
	sender := telegramtest.NewSender()
	clock := time.Unix(0, 0)
	s := NewStatus(ctx, sender, 1, "start")
	s.now = func() time.Time { return clock }
	s.lastEdit = clock
	require.Equal(t, []string{"start"}, sender.Texts)

	progress := s.Bytes(ctx, "up")
	progress(10, 100)
	assert.Empty(t, sender.Edits)

	clock = clock.Add(DefaultEditInterval)
	progress(20, 100)
	assert.Len(t, sender.Edits, 1)

	progress(100, 100)
	assert.Len(t, sender.Edits, 2)

	s.Set(ctx, "done")
	s.Set(ctx, "done")
	assert.Len(t, sender.Edits, 3)

	s.Delete(ctx)
	s.Delete(ctx)
	assert.Len(t, sender.Deleted, 1)
}
