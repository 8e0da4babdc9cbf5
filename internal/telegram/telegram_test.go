package telegram

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/tgrelay/internal/utils"
)

func TestParsePostLink(t *testing.T) {
	tests := []struct {
		name string
		link string
		want PostLink
	}{
		{"private", "https://t.me/c/123456/789", PostLink{Chat: "-100123456", MessageID: 789}},
		{"private topic", "https://t.me/c/123456/5/789", PostLink{Chat: "-100123456", Topic: 5, MessageID: 789}},
		{"public", "https://t.me/somechannel/42", PostLink{Chat: "somechannel", MessageID: 42}},
		{"public topic", "https://t.me/somegroup/3/42", PostLink{Chat: "somegroup", Topic: 3, MessageID: 42}},
		{"query stripped", "https://t.me/c/123/77?single", PostLink{Chat: "-100123", MessageID: 77}},
		{"trailing slash", "https://t.me/chan/9/", PostLink{Chat: "chan", MessageID: 9}},
		{"telegram.me", "https://telegram.me/chan/9", PostLink{Chat: "chan", MessageID: 9}},
		{"no scheme", "t.me/c/123/45", PostLink{Chat: "-100123", MessageID: 45}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePostLink(tt.link)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePostLinkInvalid(t *testing.T) {
	for _, link := range []string{
		"https://example.com/c/1/2",
		"https://t.me/chan",
		"https://t.me/chan/abc",
		"https://t.me/c/abc/12",
		"https://t.me/a/1/2/3",
		"https://t.me/chan/0",
	} {
		_, err := ParsePostLink(link)
		assert.Error(t, err, link)
	}
}

func TestIsPostLinkAgreesWithParse(t *testing.T) {
	tests := []struct {
		text string
		want bool
	}{
		{"https://t.me/chan/1", true},
		{"http://t.me/chan/1", true},
		{"t.me/chan/1", true},
		{"https://telegram.me/c/5/6", true},
		{"telegram.me/chan/1", true},
		{"https://www.t.me/chan/1", true},
		{"https://example.com/chan/1", false},
		{"ftp://t.me/chan/1", false},
		{"hello there", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPostLink(tt.text))
			_, err := ParsePostLink(tt.text)
			assert.Equal(t, tt.want, err == nil)
		})
	}
}

func TestPostLinkRoundTrip(t *testing.T) {
	for _, link := range []string{
		"https://t.me/c/123456/789",
		"https://t.me/c/123456/5/789",
		"https://t.me/chan/42",
	} {
		p, err := ParsePostLink(link)
		require.NoError(t, err)
		assert.Equal(t, link, p.String())
	}
}

func TestBelongsToTopic(t *testing.T) {
	assert.True(t, BelongsToTopic(&Message{ID: 10}, 10))
	assert.True(t, BelongsToTopic(&Message{ID: 11, ThreadID: 10}, 10))
	assert.True(t, BelongsToTopic(&Message{ID: 11, ReplyToID: 10}, 10))
	assert.True(t, BelongsToTopic(&Message{ID: 11, ReplyToID: 3, ReplyToTopID: 10}, 10))
	assert.False(t, BelongsToTopic(&Message{ID: 11, ReplyToID: 3}, 10))
	assert.False(t, BelongsToTopic(&Message{ID: 10, Empty: true}, 10))
	assert.False(t, BelongsToTopic(nil, 10))
}

func TestMessageHelpers(t *testing.T) {
	m := &Message{Kind: utils.KindVideo, Caption: "cap"}
	assert.True(t, m.HasMedia())
	assert.True(t, m.HasText())
	assert.Equal(t, "cap", m.Body())

	text := &Message{Text: "hello"}
	assert.False(t, text.HasMedia())
	assert.Equal(t, "hello", text.Body())
	assert.False(t, (&Message{}).HasText())
}

func TestFloodWait(t *testing.T) {
	d, ok := FloodWait(errors.New("rpc error 420: FLOOD_WAIT_12"))
	assert.True(t, ok)
	assert.Equal(t, 12*time.Second, d)

	d, ok = FloodWait(errors.New("FLOOD_PREMIUM_WAIT_7 (caused by upload.saveBigFilePart)"))
	assert.True(t, ok)
	assert.Equal(t, 7*time.Second, d)

	_, ok = FloodWait(errors.New("CHANNEL_PRIVATE"))
	assert.False(t, ok)
	_, ok = FloodWait(nil)
	assert.False(t, ok)
}

func TestIsPeerError(t *testing.T) {
	assert.True(t, IsPeerError(errors.New("rpc error 400: PEER_ID_INVALID")))
	assert.True(t, IsPeerError(errors.New("CHANNEL_PRIVATE")))
	assert.False(t, IsPeerError(errors.New("FLOOD_WAIT_3")))
	assert.False(t, IsPeerError(nil))
}

func TestWithFloodRetry(t *testing.T) {
	var slept []time.Duration
	sleep := func(ctx context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	calls := 0
	err := withFloodRetry(context.Background(), sleep, "test", func() error {
		calls++
		if calls == 1 {
			return errors.New("FLOOD_WAIT_2")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []time.Duration{2 * time.Second}, slept)

	calls = 0
	slept = nil
	err = withFloodRetry(context.Background(), sleep, "test", func() error {
		calls++
		return errors.New("FLOOD_WAIT_1")
	})
	assert.Error(t, err)
	assert.Equal(t, 1+MaxFloodRetries, calls)
	assert.Len(t, slept, MaxFloodRetries)
}

func TestWithFloodRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := withFloodRetry(ctx, sleepCtx, "test", func() error {
		return errors.New("FLOOD_WAIT_30")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
