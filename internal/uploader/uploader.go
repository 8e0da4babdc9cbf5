package uploader

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgrelay/internal/media"
	"github.com/tanq16/tgrelay/internal/telegram"
	"github.com/tanq16/tgrelay/internal/utils"
)

const extractHint = "Extract all parts to get the video."

// Toolkit is the slice of media.Toolkit the coordinator needs.
type Toolkit interface {
	Probe(ctx context.Context, path string) (media.Info, error)
	Thumbnail(ctx context.Context, video string, duration int) (string, error)
}

type UploadOutcome struct {
	Path string
	Err  error
}

// GroupItem is one member of a media group awaiting upload.
type GroupItem struct {
	Artifact utils.LocalArtifact
	Caption  string
}

// Coordinator turns local files into native platform sends and always
// removes what it was handed afterwards.
type Coordinator struct {
	sender   telegram.Sender
	kit      Toolkit
	progress utils.ProgressFunc
	Sleep    func(ctx context.Context, d time.Duration) error
}

func New(sender telegram.Sender, kit Toolkit) *Coordinator {
	return &Coordinator{
		sender: sender,
		kit:    kit,
		Sleep:  utils.SleepContext,
	}
}

// WithProgress returns a copy that reports upload progress to fn.
func (c *Coordinator) WithProgress(fn utils.ProgressFunc) *Coordinator {
	cp := *c
	cp.progress = fn
	return &cp
}

// Describe builds the send parameters for an artifact. The returned cleanup
// removes any thumbnail created along the way.
func (c *Coordinator) Describe(ctx context.Context, artifact utils.LocalArtifact, caption string) (utils.UploadDescriptor, func()) {
	kind := artifact.Kind
	if kind == utils.KindUnknown {
		kind = media.Classify(artifact.Path)
	}
	desc := utils.UploadDescriptor{
		Kind:     kind,
		Path:     artifact.Path,
		Caption:  caption,
		FileName: filepath.Base(artifact.Path),
	}
	cleanup := func() {}
	switch kind {
	case utils.KindVideo:
		if info, err := c.kit.Probe(ctx, artifact.Path); err == nil {
			desc.Duration = info.Duration
		} else {
			log.Debug().Str("op", "uploader/uploader").Msgf("probe failed for %s: %v", artifact.Path, err)
		}
		desc.Width, desc.Height = utils.FallbackThumbWidth, utils.FallbackThumbHeight
		thumb, err := c.kit.Thumbnail(ctx, artifact.Path, desc.Duration)
		if err != nil {
			log.Warn().Str("op", "uploader/uploader").Msgf("no thumbnail for %s: %v", desc.FileName, err)
			break
		}
		desc.ThumbPath = thumb
		cleanup = func() { utils.RemoveQuietly(thumb) }
		if w, h, err := media.Dimensions(thumb); err == nil && w > 0 && h > 0 {
			desc.Width, desc.Height = w, h
		}
	case utils.KindAudio:
		if info, err := c.kit.Probe(ctx, artifact.Path); err == nil {
			desc.Duration = info.Duration
			desc.Performer = info.Artist
			desc.Title = info.Title
		}
	}
	return desc, cleanup
}

// UploadOne sends a single artifact as its native kind. The artifact and any
// thumbnail are removed whether or not the send succeeds.
func (c *Coordinator) UploadOne(ctx context.Context, dest int64, artifact utils.LocalArtifact, caption string) error {
	defer artifact.Remove()
	desc, cleanup := c.Describe(ctx, artifact, caption)
	defer cleanup()
	log.Info().Str("op", "uploader/uploader").Msgf("uploading %s as %s", desc.FileName, desc.Kind)
	if err := c.sender.SendMedia(ctx, dest, desc, c.progress); err != nil {
		return fmt.Errorf("error uploading %s: %w", desc.FileName, err)
	}
	return nil
}

// PartCaption labels part i (1-based) of n.
func PartCaption(base string, i, n int) string {
	return fmt.Sprintf("%s\n**Part %d of %d**", base, i, n)
}

// ArchiveCaption labels an archive volume and notes that every volume is
// needed to restore the file.
func ArchiveCaption(base, label string, i, n int) string {
	if label == "" {
		label = "Archive Part"
	}
	return fmt.Sprintf("%s\n**%s %d/%d**\n%s", base, label, i, n, extractHint)
}

// UploadParts sends every part of a plan in order, captioned by captionFor.
// A failed part does not stop the remaining ones.
func (c *Coordinator) UploadParts(ctx context.Context, dest int64, plan utils.SplitPlan, captionFor func(i, n int) string) []UploadOutcome {
	outcomes := make([]UploadOutcome, 0, len(plan.Parts))
	n := len(plan.Parts)
	for i, part := range plan.Parts {
		if err := ctx.Err(); err != nil {
			for _, rest := range plan.Parts[i:] {
				rest.Remove()
				outcomes = append(outcomes, UploadOutcome{Path: rest.Path, Err: err})
			}
			break
		}
		if plan.Strategy == utils.StrategyArchive {
			part.Kind = utils.KindDocument
		}
		err := c.UploadOne(ctx, dest, part, captionFor(i+1, n))
		if err != nil {
			log.Error().Str("op", "uploader/uploader").Msgf("part %d/%d failed: %v", i+1, n, err)
		}
		outcomes = append(outcomes, UploadOutcome{Path: part.Path, Err: err})
	}
	return outcomes
}

// Captions picks the usual caption style for a plan: part numbers for
// stream-copied video, archive labels otherwise.
func Captions(base string, strategy utils.SplitStrategy, archiveLabel string) func(i, n int) string {
	if strategy == utils.StrategyArchive {
		return func(i, n int) string { return ArchiveCaption(base, archiveLabel, i, n) }
	}
	return func(i, n int) string { return PartCaption(base, i, n) }
}

// UploadGroup sends items as albums of at most ten. A rejected album is
// retried item by item. Every artifact and thumbnail is removed at the end.
func (c *Coordinator) UploadGroup(ctx context.Context, dest int64, items []GroupItem) []UploadOutcome {
	descs := make([]utils.UploadDescriptor, len(items))
	var cleanups []func()
	defer func() {
		for _, fn := range cleanups {
			fn()
		}
		for _, item := range items {
			item.Artifact.Remove()
		}
	}()
	for i, item := range items {
		desc, cleanup := c.Describe(ctx, item.Artifact, item.Caption)
		descs[i] = desc
		cleanups = append(cleanups, cleanup)
	}

	outcomes := make([]UploadOutcome, 0, len(items))
	for start := 0; start < len(descs); start += utils.MaxAlbumSize {
		if start > 0 {
			if err := c.Sleep(ctx, utils.AlbumPause); err != nil {
				return failRest(outcomes, descs[start:], err)
			}
		}
		chunk := descs[start:min(start+utils.MaxAlbumSize, len(descs))]
		var err error
		if len(chunk) == 1 {
			err = c.sender.SendMedia(ctx, dest, chunk[0], c.progress)
		} else {
			err = c.sender.SendAlbum(ctx, dest, chunk)
		}
		if err == nil {
			for _, d := range chunk {
				outcomes = append(outcomes, UploadOutcome{Path: d.Path})
			}
			continue
		}
		log.Warn().Str("op", "uploader/uploader").Msgf("album send failed, sending %d items individually: %v", len(chunk), err)
		for i, d := range chunk {
			if i > 0 {
				if sleepErr := c.Sleep(ctx, utils.SingleSendPause); sleepErr != nil {
					return failRest(outcomes, descs[start+i:], sleepErr)
				}
			}
			sendErr := c.sender.SendMedia(ctx, dest, d, nil)
			if sendErr != nil {
				log.Error().Str("op", "uploader/uploader").Msgf("error sending %s: %v", d.FileName, sendErr)
			}
			outcomes = append(outcomes, UploadOutcome{Path: d.Path, Err: sendErr})
		}
	}
	return outcomes
}

func failRest(outcomes []UploadOutcome, rest []utils.UploadDescriptor, err error) []UploadOutcome {
	for _, d := range rest {
		outcomes = append(outcomes, UploadOutcome{Path: d.Path, Err: err})
	}
	return outcomes
}

// Failed counts outcomes that carry an error.
func Failed(outcomes []UploadOutcome) int {
	n := 0
	for _, o := range outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}
