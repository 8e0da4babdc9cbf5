package batch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgrelay/internal/telegram"
	"github.com/tanq16/tgrelay/internal/utils"
)

// TransferFunc moves one fetched post into the destination chat.
type TransferFunc func(ctx context.Context, msg *telegram.Message) error

// Fetcher is the part of telegram.Source the driver reads through.
type Fetcher interface {
	FetchMessage(ctx context.Context, chat string, id int) (*telegram.Message, error)
}

// Driver walks an ordered list of message IDs one at a time.
type Driver struct {
	Source   Fetcher
	Transfer TransferFunc
	Delay    time.Duration
	Sleep    func(ctx context.Context, d time.Duration) error
	// Progress, when set, is called after each ID with the running tally.
	Progress func(rng *utils.BatchRange, processed int)
}

func NewDriver(source Fetcher, transfer TransferFunc) *Driver {
	return &Driver{
		Source:   source,
		Transfer: transfer,
		Delay:    utils.BatchDelay,
		Sleep:    utils.SleepContext,
	}
}

// Interval lists every ID in [start, end].
func Interval(start, end int) []int {
	if end < start {
		return nil
	}
	ids := make([]int, 0, end-start+1)
	for id := start; id <= end; id++ {
		ids = append(ids, id)
	}
	return ids
}

// Run processes ids in order and returns the tally. A cancelled context
// stops the run at the next suspension point with Cancelled set.
func (d *Driver) Run(ctx context.Context, rng utils.BatchRange, ids []int) utils.BatchRange {
	rng.Total = len(ids)
	if rng.ProcessedGroups == nil {
		rng.ProcessedGroups = map[int64]struct{}{}
	}
	for i, id := range ids {
		if ctx.Err() != nil {
			rng.Cancelled = true
			break
		}
		if stop := d.step(ctx, &rng, id); stop {
			rng.Cancelled = true
			break
		}
		if d.Progress != nil {
			d.Progress(&rng, i+1)
		}
		if err := d.Sleep(ctx, d.Delay); err != nil {
			rng.Cancelled = true
			break
		}
	}
	log.Info().Str("op", "batch/driver").Msgf("batch %s %d-%d done: downloaded=%d skipped=%d failed=%d cancelled=%v",
		rng.ChatRef, rng.StartID, rng.EndID, rng.Downloaded, rng.Skipped, rng.Failed, rng.Cancelled)
	return rng
}

// step classifies one ID. It reports true only when the run must stop.
func (d *Driver) step(ctx context.Context, rng *utils.BatchRange, id int) bool {
	msg, err := d.Source.FetchMessage(ctx, rng.ChatRef, id)
	if err != nil && isCancel(ctx, err) {
		return true
	}
	if err != nil || msg == nil || msg.Empty {
		if err != nil {
			log.Warn().Str("op", "batch/driver").Msgf("error fetching %d: %v", id, err)
		}
		rng.Skipped++
		rng.Deleted = append(rng.Deleted, id)
		return false
	}
	if rng.TopicID != 0 && !telegram.BelongsToTopic(msg, rng.TopicID) {
		rng.Skipped++
		rng.NotInTopic = append(rng.NotInTopic, id)
		return false
	}
	if msg.GroupID != 0 {
		if _, seen := rng.ProcessedGroups[msg.GroupID]; seen {
			rng.Skipped++
			rng.DuplicateGroup = append(rng.DuplicateGroup, id)
			return false
		}
		rng.ProcessedGroups[msg.GroupID] = struct{}{}
		log.Info().Str("op", "batch/driver").Msgf("processing media group %d at message %d", msg.GroupID, id)
	}
	if !msg.HasMedia() && !msg.HasText() {
		rng.Skipped++
		rng.Empty = append(rng.Empty, id)
		return false
	}
	if err := d.Transfer(ctx, msg); err != nil {
		if isCancel(ctx, err) {
			return true
		}
		log.Error().Str("op", "batch/driver").Msgf("error transferring %d: %v", id, err)
		rng.Failed++
		rng.FailedIDs = append(rng.FailedIDs, id)
		return false
	}
	rng.Downloaded++
	return false
}

func isCancel(ctx context.Context, err error) bool {
	return errors.Is(err, context.Canceled) || ctx.Err() != nil
}

// Summary renders the completion or cancellation reply for a run.
func Summary(rng utils.BatchRange) string {
	if rng.Cancelled {
		return fmt.Sprintf("**❌ Batch canceled** after downloading `%d` posts.", rng.Downloaded)
	}
	var b strings.Builder
	b.WriteString("**✅ Batch Process Complete!**\n")
	b.WriteString("━━━━━━━━━━━━━━━━━━━\n")
	fmt.Fprintf(&b, "📥 **Downloaded** : `%d` post(s)\n", rng.Downloaded)
	fmt.Fprintf(&b, "⏭️ **Skipped** : `%d` (no content/deleted/not in topic/media group duplicates)\n", rng.Skipped)
	fmt.Fprintf(&b, "❌ **Failed** : `%d` error(s)", rng.Failed)
	if rng.TopicID != 0 {
		fmt.Fprintf(&b, "\n📁 **Forum Topic**: %d", rng.TopicID)
		fmt.Fprintf(&b, "\n🎯 **Processed %d topic messages**", rng.Total)
	}
	if len(rng.NotInTopic) > 0 {
		fmt.Fprintf(&b, "\n🚫 **Not in topic**: %s", utils.FormatIDs(rng.NotInTopic, "messages"))
	}
	if len(rng.DuplicateGroup) > 0 {
		fmt.Fprintf(&b, "\n📁 **Media group duplicates skipped**: %s", utils.FormatIDs(rng.DuplicateGroup, "messages"))
	}
	if len(rng.Deleted) > 0 {
		fmt.Fprintf(&b, "\n🗑️ **Deleted/Missing**: %s", utils.FormatIDs(rng.Deleted, "messages"))
	}
	if len(rng.FailedIDs) > 0 {
		fmt.Fprintf(&b, "\n⚠️ **Failed IDs**: %s", utils.FormatIDs(rng.FailedIDs, "messages"))
	}
	if len(rng.ProcessedGroups) > 0 {
		fmt.Fprintf(&b, "\n📦 **Media groups processed**: %d", len(rng.ProcessedGroups))
	}
	return b.String()
}
