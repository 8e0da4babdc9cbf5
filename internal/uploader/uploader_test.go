package uploader

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanq16/tgrelay/internal/media"
	"github.com/tanq16/tgrelay/internal/telegram/telegramtest"
	"github.com/tanq16/tgrelay/internal/utils"
)

type fakeKit struct {
	dir      string
	info     media.Info
	probeErr error
	thumbErr error
	thumbs   []string
}

func (k *fakeKit) Probe(context.Context, string) (media.Info, error) {
	return k.info, k.probeErr
}

func (k *fakeKit) Thumbnail(_ context.Context, _ string, _ int) (string, error) {
	if k.thumbErr != nil {
		return "", k.thumbErr
	}
	path := filepath.Join(k.dir, fmt.Sprintf("thumb_%d.jpg", len(k.thumbs)))
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := jpeg.Encode(f, image.NewRGBA(image.Rect(0, 0, 320, 180)), nil); err != nil {
		return "", err
	}
	k.thumbs = append(k.thumbs, path)
	return path, nil
}

func writeFile(t *testing.T, dir, name string) utils.LocalArtifact {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("data"), 0644))
	return utils.LocalArtifact{Path: path, Size: 4}
}

func newCoordinator(sender *telegramtest.Sender, kit *fakeKit) (*Coordinator, *[]time.Duration) {
	c := New(sender, kit)
	var slept []time.Duration
	c.Sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestDescribeVideo(t *testing.T) {
	dir := t.TempDir()
	kit := &fakeKit{dir: dir, info: media.Info{Duration: 120}}
	c, _ := newCoordinator(telegramtest.NewSender(), kit)
	art := writeFile(t, dir, "clip.mp4")

	desc, cleanup := c.Describe(context.Background(), art, "cap")
	assert.Equal(t, utils.KindVideo, desc.Kind)
	assert.Equal(t, 120, desc.Duration)
	assert.Equal(t, 320, desc.Width)
	assert.Equal(t, 180, desc.Height)
	require.NotEmpty(t, desc.ThumbPath)
	assert.FileExists(t, desc.ThumbPath)
	cleanup()
	assert.NoFileExists(t, desc.ThumbPath)
}

func TestDescribeVideoWithoutThumbnail(t *testing.T) {
	dir := t.TempDir()
	kit := &fakeKit{dir: dir, thumbErr: errors.New("ffmpeg missing"), probeErr: errors.New("no probe")}
	c, _ := newCoordinator(telegramtest.NewSender(), kit)

	desc, cleanup := c.Describe(context.Background(), writeFile(t, dir, "clip.mkv"), "")
	defer cleanup()
	assert.Empty(t, desc.ThumbPath)
	assert.Equal(t, utils.FallbackThumbWidth, desc.Width)
	assert.Equal(t, utils.FallbackThumbHeight, desc.Height)
	assert.Zero(t, desc.Duration)
}

func TestDescribeAudio(t *testing.T) {
	dir := t.TempDir()
	kit := &fakeKit{dir: dir, info: media.Info{Duration: 200, Artist: "Band", Title: "Song"}}
	c, _ := newCoordinator(telegramtest.NewSender(), kit)

	desc, _ := c.Describe(context.Background(), writeFile(t, dir, "track.mp3"), "")
	assert.Equal(t, utils.KindAudio, desc.Kind)
	assert.Equal(t, 200, desc.Duration)
	assert.Equal(t, "Band", desc.Performer)
	assert.Equal(t, "Song", desc.Title)
	assert.Empty(t, kit.thumbs)
}

func TestUploadOneCleansUpOnSuccessAndFailure(t *testing.T) {
	for _, fail := range []bool{false, true} {
		t.Run(fmt.Sprintf("fail=%v", fail), func(t *testing.T) {
			dir := t.TempDir()
			sender := telegramtest.NewSender()
			if fail {
				sender.MediaErr = func(utils.UploadDescriptor) error { return errors.New("FILE_PARTS_INVALID") }
			}
			kit := &fakeKit{dir: dir, info: media.Info{Duration: 10}}
			c, _ := newCoordinator(sender, kit)
			art := writeFile(t, dir, "clip.mp4")

			err := c.UploadOne(context.Background(), 1, art, "cap")
			if fail {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			require.Len(t, sender.Media, 1)
			assert.True(t, sender.Media[0].Existed)
			assert.NoFileExists(t, art.Path)
			require.Len(t, kit.thumbs, 1)
			assert.NoFileExists(t, kit.thumbs[0])
		})
	}
}

func TestCaptions(t *testing.T) {
	assert.Equal(t, "cap\n**Part 2 of 3**", PartCaption("cap", 2, 3))
	assert.Equal(t, "**f.zip**\n**Archive Part 1/2**\nExtract all parts to get the video.",
		ArchiveCaption("**f.zip**", "", 1, 2))
	assert.Contains(t, Captions("x", utils.StrategyArchive, "Video Archive Part")(1, 2), "**Video Archive Part 1/2**")
	assert.Equal(t, "x\n**Part 1 of 2**", Captions("x", utils.StrategyStreamCopy, "")(1, 2))
}

func TestUploadPartsInOrder(t *testing.T) {
	dir := t.TempDir()
	sender := telegramtest.NewSender()
	sender.MediaErr = func(d utils.UploadDescriptor) error {
		if filepath.Base(d.Path) == "v_part2.mp4" {
			return errors.New("boom")
		}
		return nil
	}
	c, _ := newCoordinator(sender, &fakeKit{dir: dir})
	plan := utils.SplitPlan{Strategy: utils.StrategyStreamCopy}
	for i := 1; i <= 3; i++ {
		plan.Parts = append(plan.Parts, writeFile(t, dir, fmt.Sprintf("v_part%d.mp4", i)))
	}

	outcomes := c.UploadParts(context.Background(), 1, plan, Captions("cap", plan.Strategy, ""))
	require.Len(t, outcomes, 3)
	assert.Equal(t, 1, Failed(outcomes))
	require.Len(t, sender.Media, 3)
	for i, sent := range sender.Media {
		assert.Equal(t, fmt.Sprintf("cap\n**Part %d of 3**", i+1), sent.Item.Caption)
	}
	for _, p := range plan.Parts {
		assert.NoFileExists(t, p.Path)
	}
}

func TestUploadPartsArchiveAsDocuments(t *testing.T) {
	dir := t.TempDir()
	sender := telegramtest.NewSender()
	c, _ := newCoordinator(sender, &fakeKit{dir: dir})
	plan := utils.SplitPlan{Strategy: utils.StrategyArchive, Parts: []utils.LocalArtifact{
		writeFile(t, dir, "a_part.7z.001"),
		writeFile(t, dir, "a_part.7z.002"),
	}}

	outcomes := c.UploadParts(context.Background(), 1, plan, Captions("a", plan.Strategy, ""))
	assert.Zero(t, Failed(outcomes))
	for _, sent := range sender.Media {
		assert.Equal(t, utils.KindDocument, sent.Item.Kind)
	}
}

func TestUploadGroupBatchesOfTen(t *testing.T) {
	dir := t.TempDir()
	sender := telegramtest.NewSender()
	c, slept := newCoordinator(sender, &fakeKit{dir: dir})
	var items []GroupItem
	for i := 0; i < 12; i++ {
		items = append(items, GroupItem{Artifact: writeFile(t, dir, fmt.Sprintf("p%d.jpg", i))})
	}

	outcomes := c.UploadGroup(context.Background(), 1, items)
	assert.Len(t, outcomes, 12)
	assert.Zero(t, Failed(outcomes))
	require.Len(t, sender.Albums, 2)
	assert.Len(t, sender.Albums[0], 10)
	assert.Len(t, sender.Albums[1], 2)
	assert.Len(t, sender.Media, 0)
	assert.Equal(t, []time.Duration{utils.AlbumPause}, *slept)
	for _, item := range items {
		assert.NoFileExists(t, item.Artifact.Path)
	}
}

func TestUploadGroupFallsBackToSingles(t *testing.T) {
	dir := t.TempDir()
	sender := telegramtest.NewSender()
	sender.AlbumErr = errors.New("MEDIA_INVALID")
	kit := &fakeKit{dir: dir}
	c, slept := newCoordinator(sender, kit)
	items := []GroupItem{
		{Artifact: writeFile(t, dir, "a.jpg"), Caption: "first"},
		{Artifact: writeFile(t, dir, "b.mp4")},
		{Artifact: writeFile(t, dir, "c.jpg")},
	}

	outcomes := c.UploadGroup(context.Background(), 1, items)
	assert.Zero(t, Failed(outcomes))
	require.Len(t, sender.Media, 3)
	assert.Equal(t, utils.KindPhoto, sender.Media[0].Item.Kind)
	assert.Equal(t, utils.KindVideo, sender.Media[1].Item.Kind)
	assert.Equal(t, []time.Duration{utils.SingleSendPause, utils.SingleSendPause}, *slept)
	for _, item := range items {
		assert.NoFileExists(t, item.Artifact.Path)
	}
	for _, thumb := range kit.thumbs {
		assert.NoFileExists(t, thumb)
	}
}

func TestUploadGroupSingleItemIsPlainSend(t *testing.T) {
	dir := t.TempDir()
	sender := telegramtest.NewSender()
	c, _ := newCoordinator(sender, &fakeKit{dir: dir})

	outcomes := c.UploadGroup(context.Background(), 1, []GroupItem{{Artifact: writeFile(t, dir, "only.jpg"), Caption: "c"}})
	assert.Zero(t, Failed(outcomes))
	assert.Empty(t, sender.Albums)
	require.Len(t, sender.Media, 1)
	assert.Equal(t, "c", sender.Media[0].Item.Caption)
}
