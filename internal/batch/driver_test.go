package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/tgrelay/internal/telegram"
	"github.com/tanq16/tgrelay/internal/telegram/telegramtest"
	"github.com/tanq16/tgrelay/internal/utils"
)

func photo(id int) *telegram.Message {
	return &telegram.Message{ID: id, Kind: utils.KindPhoto}
}

func newDriver(src *telegramtest.Source, transfer TransferFunc) (*Driver, *[]time.Duration) {
	d := NewDriver(src, transfer)
	var slept []time.Duration
	d.Sleep = func(ctx context.Context, dur time.Duration) error {
		slept = append(slept, dur)
		return ctx.Err()
	}
	return d, &slept
}

func recorder(transferred *[]int) TransferFunc {
	return func(_ context.Context, msg *telegram.Message) error {
		*transferred = append(*transferred, msg.ID)
		return nil
	}
}

func TestInterval(t *testing.T) {
	assert.Equal(t, []int{3, 4, 5}, Interval(3, 5))
	assert.Equal(t, []int{7}, Interval(7, 7))
	assert.Nil(t, Interval(5, 3))
}

func TestRunScenario(t *testing.T) {
	src := telegramtest.NewSource()
	g := &telegram.Message{ID: 102, GroupID: 77, Kind: utils.KindVideo}
	g2 := &telegram.Message{ID: 104, GroupID: 77, Kind: utils.KindPhoto}
	src.Add(photo(100), &telegram.Message{ID: 101, Text: "hello"}, g, g2, photo(105))

	var transferred []int
	d, slept := newDriver(src, recorder(&transferred))
	ids := Interval(100, 105)
	rng := d.Run(context.Background(), utils.BatchRange{ChatRef: "chan", StartID: 100, EndID: 105}, ids)

	assert.Equal(t, 4, rng.Downloaded)
	assert.Equal(t, 2, rng.Skipped)
	assert.Equal(t, 0, rng.Failed)
	assert.Equal(t, len(ids), rng.Downloaded+rng.Skipped+rng.Failed)
	assert.Equal(t, []int{100, 101, 102, 105}, transferred)
	assert.Equal(t, []int{103}, rng.Deleted)
	assert.Equal(t, []int{104}, rng.DuplicateGroup)
	assert.Len(t, *slept, len(ids))
	for _, s := range *slept {
		assert.Equal(t, utils.BatchDelay, s)
	}
}

func TestRunMediaGroupDedup(t *testing.T) {
	src := telegramtest.NewSource()
	src.Add(
		&telegram.Message{ID: 10, GroupID: 5, Kind: utils.KindPhoto},
		&telegram.Message{ID: 11, GroupID: 5, Kind: utils.KindPhoto},
	)
	var transferred []int
	d, _ := newDriver(src, recorder(&transferred))
	rng := d.Run(context.Background(), utils.BatchRange{ChatRef: "c"}, []int{10, 11})
	assert.Equal(t, []int{10}, transferred)
	assert.Equal(t, []int{11}, rng.DuplicateGroup)
	assert.Len(t, rng.ProcessedGroups, 1)
}

func TestRunTopicAndEmpty(t *testing.T) {
	src := telegramtest.NewSource()
	src.Add(
		&telegram.Message{ID: 50, Kind: utils.KindPhoto, ReplyToTopID: 9},
		&telegram.Message{ID: 51, Kind: utils.KindPhoto, ReplyToID: 3},
		&telegram.Message{ID: 52, ThreadID: 9},
	)
	var transferred []int
	d, _ := newDriver(src, recorder(&transferred))
	rng := d.Run(context.Background(), utils.BatchRange{ChatRef: "c", TopicID: 9}, []int{50, 51, 52})
	assert.Equal(t, []int{50}, transferred)
	assert.Equal(t, []int{51}, rng.NotInTopic)
	assert.Equal(t, []int{52}, rng.Empty)
	assert.Equal(t, 2, rng.Skipped)
}

func TestRunFailuresAreRecorded(t *testing.T) {
	src := telegramtest.NewSource()
	src.Add(photo(1), photo(2), photo(3))
	src.FetchErr[3] = errors.New("MSG_ID_INVALID")
	d, _ := newDriver(src, func(_ context.Context, msg *telegram.Message) error {
		if msg.ID == 2 {
			return errors.New("upload failed")
		}
		return nil
	})
	rng := d.Run(context.Background(), utils.BatchRange{ChatRef: "c"}, []int{1, 2, 3})
	assert.Equal(t, 1, rng.Downloaded)
	assert.Equal(t, 1, rng.Failed)
	assert.Equal(t, 1, rng.Skipped)
	assert.Equal(t, []int{2}, rng.FailedIDs)
	assert.Equal(t, []int{3}, rng.Deleted)
	assert.False(t, rng.Cancelled)
}

func TestRunCancellationStopsImmediately(t *testing.T) {
	src := telegramtest.NewSource()
	src.Add(photo(1), photo(2), photo(3), photo(4))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var transferred []int
	d, _ := newDriver(src, func(ctx context.Context, msg *telegram.Message) error {
		if msg.ID == 2 {
			cancel()
			return ctx.Err()
		}
		transferred = append(transferred, msg.ID)
		return nil
	})
	rng := d.Run(ctx, utils.BatchRange{ChatRef: "c"}, []int{1, 2, 3, 4})
	assert.True(t, rng.Cancelled)
	assert.Equal(t, 1, rng.Downloaded)
	assert.Zero(t, rng.Failed)
	assert.Equal(t, []int{1}, transferred)
	assert.Equal(t, []int{1, 2}, src.Fetched)
	assert.Contains(t, Summary(rng), "after downloading `1` posts")
}

func TestRunReportsProgress(t *testing.T) {
	src := telegramtest.NewSource()
	src.Add(photo(1), photo(2))
	d, _ := newDriver(src, func(context.Context, *telegram.Message) error { return nil })
	var seen []int
	d.Progress = func(_ *utils.BatchRange, processed int) { seen = append(seen, processed) }
	d.Run(context.Background(), utils.BatchRange{ChatRef: "c"}, []int{1, 2})
	assert.Equal(t, []int{1, 2}, seen)
}

func TestSummary(t *testing.T) {
	rng := utils.BatchRange{
		TopicID:         9,
		Total:           30,
		Downloaded:      3,
		Skipped:         14,
		Failed:          1,
		Deleted:         []int{4, 5},
		DuplicateGroup:  Interval(10, 21),
		FailedIDs:       []int{8},
		ProcessedGroups: map[int64]struct{}{1: {}},
	}
	out := Summary(rng)
	require.Contains(t, out, "Batch Process Complete")
	assert.Contains(t, out, "**Downloaded** : `3` post(s)")
	assert.Contains(t, out, "**Skipped** : `14`")
	assert.Contains(t, out, "**Failed** : `1` error(s)")
	assert.Contains(t, out, "**Forum Topic**: 9")
	assert.Contains(t, out, "**Deleted/Missing**: 4, 5")
	assert.Contains(t, out, "**Media group duplicates skipped**: 12 messages")
	assert.Contains(t, out, "**Failed IDs**: 8")
	assert.Contains(t, out, "**Media groups processed**: 1")
	assert.NotContains(t, out, "Not in topic")
}
