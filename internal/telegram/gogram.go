package telegram

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/amarnathcjd/gogram/telegram"
	"github.com/rs/zerolog/log"
	"github.com/tanq16/tgrelay/internal/media"
	"github.com/tanq16/tgrelay/internal/utils"
)

const repliesPageSize = 100

type ClientConfig struct {
	AppID         int32
	AppHash       string
	BotToken      string
	SessionString string
	Debug         bool
}

func newClient(cfg ClientConfig, session string) (*telegram.Client, error) {
	level := telegram.LogError
	if cfg.Debug {
		level = telegram.LogInfo
	}
	client, err := telegram.NewClient(telegram.ClientConfig{
		AppID:         cfg.AppID,
		AppHash:       cfg.AppHash,
		StringSession: session,
		MemorySession: true,
		LogLevel:      level,
	})
	if err != nil {
		return nil, fmt.Errorf("error creating telegram client: %v", err)
	}
	if _, err := client.Conn(); err != nil {
		return nil, fmt.Errorf("error connecting client: %v", err)
	}
	return client, nil
}

// peerOf turns a chat reference into what gogram resolves: numeric IDs as
// int64, usernames as strings.
func peerOf(chat string) any {
	if id, err := strconv.ParseInt(chat, 10, 64); err == nil {
		return id
	}
	return strings.TrimPrefix(chat, "@")
}

func progressManager(progress utils.ProgressFunc) *telegram.ProgressManager {
	if progress == nil {
		return nil
	}
	return telegram.NewProgressManager(5, func(total, current int64) {
		progress(current, total)
	})
}

// UserClient is the user identity. It can read chats the bot is not in.
type UserClient struct {
	client  *telegram.Client
	premium bool
}

func NewUserClient(cfg ClientConfig) (*UserClient, error) {
	if cfg.SessionString == "" {
		return nil, fmt.Errorf("user session string is required")
	}
	client, err := newClient(cfg, cfg.SessionString)
	if err != nil {
		return nil, err
	}
	u := &UserClient{client: client}
	me, err := client.GetMe()
	if err != nil {
		return nil, fmt.Errorf("error fetching user account: %v", err)
	}
	u.premium = me.Premium
	log.Info().Str("op", "telegram/gogram").Msgf("user session ready (premium: %v)", u.premium)
	return u, nil
}

func (u *UserClient) IsPremium() bool {
	return u.premium
}

func (u *UserClient) Stop() {
	if err := u.client.Stop(); err != nil {
		log.Warn().Str("op", "telegram/gogram").Err(err).Msg("error stopping user session")
	}
}

func (u *UserClient) FetchMessage(ctx context.Context, chat string, id int) (*Message, error) {
	var nm *telegram.NewMessage
	err := withFloodRetry(ctx, sleepCtx, "fetch", func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		nm, err = u.client.GetMessageByID(peerOf(chat), int32(id))
		return err
	})
	if err != nil {
		return nil, err
	}
	return fromNewMessage(nm, id), nil
}

func (u *UserClient) MediaGroup(ctx context.Context, msg *Message) ([]*Message, error) {
	nm, ok := msg.raw.(*telegram.NewMessage)
	if !ok || msg.GroupID == 0 {
		return []*Message{msg}, nil
	}
	var group []telegram.NewMessage
	err := withFloodRetry(ctx, sleepCtx, "group", func() error {
		var err error
		group, err = nm.GetMediaGroup()
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]*Message, 0, len(group))
	for i := range group {
		out = append(out, fromNewMessage(&group[i], int(group[i].ID)))
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ID < out[b].ID })
	return out, nil
}

func (u *UserClient) DownloadMedia(ctx context.Context, msg *Message, path string, progress utils.ProgressFunc) (string, error) {
	nm, ok := msg.raw.(*telegram.NewMessage)
	if !ok {
		return "", fmt.Errorf("message %d has no downloadable media", msg.ID)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	out, err := nm.Download(&telegram.DownloadOptions{
		FileName:        path,
		ProgressManager: progressManager(progress),
	})
	if err != nil {
		return "", fmt.Errorf("error downloading media: %v", err)
	}
	if err := ctx.Err(); err != nil {
		utils.RemoveQuietly(out)
		return "", err
	}
	return out, nil
}

// TopicMessageIDs pages newest-first through a forum topic and keeps the
// IDs inside [start, end], returned ascending.
func (u *UserClient) TopicMessageIDs(ctx context.Context, chat string, topic, start, end int) ([]int, error) {
	var peer telegram.InputPeer
	err := withFloodRetry(ctx, sleepCtx, "topic", func() error {
		var err error
		peer, err = u.client.ResolvePeer(peerOf(chat))
		return err
	})
	if err != nil {
		return nil, err
	}
	seen := map[int]struct{}{}
	offset := int32(end + 1)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var page telegram.MessagesMessages
		err := withFloodRetry(ctx, sleepCtx, "topic", func() error {
			var err error
			page, err = u.client.MessagesGetReplies(&telegram.MessagesGetRepliesParams{
				Peer:     peer,
				MsgID:    int32(topic),
				OffsetID: offset,
				Limit:    repliesPageSize,
				MinID:    int32(start - 1),
				MaxID:    int32(end + 1),
			})
			return err
		})
		if err != nil {
			return nil, err
		}
		ids := replyIDs(page)
		if len(ids) == 0 {
			break
		}
		lowest := offset
		for _, id := range ids {
			if id >= start && id <= end {
				seen[id] = struct{}{}
			}
			if int32(id) < lowest {
				lowest = int32(id)
			}
		}
		if lowest >= offset || int(lowest) <= start || len(ids) < repliesPageSize {
			break
		}
		offset = lowest
	}
	if topic >= start && topic <= end {
		seen[topic] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Ints(out)
	log.Debug().Str("op", "telegram/gogram").Msgf("topic %d has %d messages in range %d-%d", topic, len(out), start, end)
	return out, nil
}

func replyIDs(page telegram.MessagesMessages) []int {
	var msgs []telegram.Message
	switch p := page.(type) {
	case *telegram.MessagesChannelMessages:
		msgs = p.Messages
	case *telegram.MessagesMessagesSlice:
		msgs = p.Messages
	case *telegram.MessagesMessagesObj:
		msgs = p.Messages
	}
	ids := make([]int, 0, len(msgs))
	for _, m := range msgs {
		if obj, ok := m.(*telegram.MessageObj); ok {
			ids = append(ids, int(obj.ID))
		}
	}
	return ids
}

func fromNewMessage(nm *telegram.NewMessage, id int) *Message {
	if nm == nil || nm.Message == nil {
		return &Message{ID: id, Empty: true}
	}
	msg := &Message{
		ID:      int(nm.ID),
		ChatID:  nm.ChatID(),
		GroupID: nm.Message.GroupedID,
		raw:     nm,
	}
	if hdr, ok := nm.Message.ReplyTo.(*telegram.MessageReplyHeaderObj); ok {
		msg.ReplyToID = int(hdr.ReplyToMsgID)
		msg.ReplyToTopID = int(hdr.ReplyToTopID)
		switch {
		case hdr.ReplyToTopID != 0:
			msg.ThreadID = int(hdr.ReplyToTopID)
		case hdr.ForumTopic:
			msg.ThreadID = int(hdr.ReplyToMsgID)
		}
	}
	text := nm.Text()
	if !nm.IsMedia() {
		msg.Text = text
		return msg
	}
	msg.Caption = text
	var mime string
	switch {
	case nm.Photo() != nil:
		msg.Kind = utils.KindPhoto
	case nm.Video() != nil:
		msg.Kind = utils.KindVideo
		mime = nm.Video().MimeType
	case nm.Audio() != nil:
		msg.Kind = utils.KindAudio
		mime = nm.Audio().MimeType
	case nm.Document() != nil:
		mime = nm.Document().MimeType
		msg.Kind = documentKind(mime)
	default:
		// polls, locations and the like carry no file
		msg.Text = text
		return msg
	}
	msg.MimeType = mime
	if nm.File != nil {
		msg.FileName = nm.File.Name
		msg.FileSize = nm.File.Size
	}
	if msg.FileSize == 0 && nm.Document() != nil {
		msg.FileSize = nm.Document().Size
	}
	return msg
}

// documentKind treats documents whose mime type says video or audio as such.
func documentKind(mimeType string) utils.MediaKind {
	switch kind := media.KindFromMime(mimeType); kind {
	case utils.KindVideo, utils.KindAudio:
		return kind
	}
	return utils.KindDocument
}

// BotClient is the bot identity. It receives commands and sends replies.
type BotClient struct {
	client *telegram.Client
}

var (
	_ Source = (*UserClient)(nil)
	_ Sender = (*BotClient)(nil)
)

func NewBotClient(cfg ClientConfig) (*BotClient, error) {
	if cfg.BotToken == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	client, err := newClient(cfg, "")
	if err != nil {
		return nil, err
	}
	if err := client.LoginBot(cfg.BotToken); err != nil {
		return nil, fmt.Errorf("error logging in as bot: %v", err)
	}
	log.Info().Str("op", "telegram/gogram").Msg("bot session ready")
	return &BotClient{client: client}, nil
}

func (b *BotClient) Stop() {
	if err := b.client.Stop(); err != nil {
		log.Warn().Str("op", "telegram/gogram").Err(err).Msg("error stopping bot session")
	}
}

// OnCommand delivers every incoming text message to fn on its own goroutine.
func (b *BotClient) OnCommand(ctx context.Context, fn func(context.Context, Incoming)) {
	b.client.On(telegram.OnMessage, func(m *telegram.NewMessage) error {
		in := Incoming{
			ChatID:    m.ChatID(),
			MessageID: int(m.ID),
			SenderID:  m.SenderID(),
			Text:      m.Text(),
			Private:   m.IsPrivate(),
		}
		go fn(ctx, in)
		return nil
	})
}

var markdown = &telegram.SendOptions{ParseMode: "Markdown"}

func (b *BotClient) SendText(ctx context.Context, chat int64, text string) (int, error) {
	var sent *telegram.NewMessage
	err := withFloodRetry(ctx, sleepCtx, "send", func() error {
		var err error
		sent, err = b.client.SendMessage(chat, text, markdown)
		return err
	})
	if err != nil {
		return 0, err
	}
	return int(sent.ID), nil
}

func (b *BotClient) EditText(ctx context.Context, chat int64, msgID int, text string) error {
	_, err := b.client.EditMessage(chat, int32(msgID), text, markdown)
	if err != nil && telegram.MatchError(err, "MESSAGE_NOT_MODIFIED") {
		return nil
	}
	return err
}

func (b *BotClient) DeleteMessage(ctx context.Context, chat int64, msgID int) error {
	_, err := b.client.DeleteMessages(chat, []int32{int32(msgID)})
	if err != nil && telegram.MatchError(err, "MESSAGE_ID_INVALID") {
		return nil
	}
	return err
}

func (b *BotClient) SendMedia(ctx context.Context, chat int64, item utils.UploadDescriptor, progress utils.ProgressFunc) error {
	opts := mediaOptions(item)
	opts.ProgressManager = progressManager(progress)
	return withFloodRetry(ctx, sleepCtx, "upload", func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := b.client.SendMedia(chat, item.Path, opts)
		return err
	})
}

// SendAlbum sends up to ten items as one grouped post. Each item is uploaded
// with its own thumbnail, attributes and caption before the group is sent.
func (b *BotClient) SendAlbum(ctx context.Context, chat int64, items []utils.UploadDescriptor) error {
	if len(items) == 0 {
		return nil
	}
	album := make([]telegram.InputMedia, len(items))
	for i, item := range items {
		err := withFloodRetry(ctx, sleepCtx, "album", func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			input, err := b.client.GetSendableMedia(item.Path, mediaMetadata(item))
			album[i] = input
			return err
		})
		if err != nil {
			return fmt.Errorf("error preparing album item %s: %v", filepath.Base(item.Path), err)
		}
	}
	opts := albumOptions(items)
	return withFloodRetry(ctx, sleepCtx, "album", func() error {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := b.client.SendAlbum(chat, album, opts)
		return err
	})
}

// albumOptions carries one caption per album item, in item order.
func albumOptions(items []utils.UploadDescriptor) *telegram.MediaOptions {
	captions := make([]string, len(items))
	for i, item := range items {
		captions[i] = item.Caption
	}
	return &telegram.MediaOptions{Caption: captions, ParseMode: "Markdown"}
}

func fileName(item utils.UploadDescriptor) string {
	if item.FileName != "" {
		return item.FileName
	}
	return filepath.Base(item.Path)
}

func thumbOf(item utils.UploadDescriptor) any {
	if item.Kind == utils.KindVideo && item.ThumbPath != "" {
		return item.ThumbPath
	}
	return nil
}

func mediaAttributes(item utils.UploadDescriptor) []telegram.DocumentAttribute {
	switch item.Kind {
	case utils.KindVideo:
		return []telegram.DocumentAttribute{&telegram.DocumentAttributeVideo{
			Duration:          float64(item.Duration),
			W:                 int32(item.Width),
			H:                 int32(item.Height),
			SupportsStreaming: true,
		}}
	case utils.KindAudio:
		return []telegram.DocumentAttribute{&telegram.DocumentAttributeAudio{
			Duration:  int32(item.Duration),
			Title:     item.Title,
			Performer: item.Performer,
		}}
	}
	return nil
}

func mediaOptions(item utils.UploadDescriptor) *telegram.MediaOptions {
	return &telegram.MediaOptions{
		Caption:       item.Caption,
		ParseMode:     "Markdown",
		FileName:      fileName(item),
		Thumb:         thumbOf(item),
		Attributes:    mediaAttributes(item),
		ForceDocument: item.Kind == utils.KindDocument,
	}
}

// mediaMetadata is the upload-side counterpart of mediaOptions for album items.
func mediaMetadata(item utils.UploadDescriptor) *telegram.MediaMetadata {
	return &telegram.MediaMetadata{
		FileName:      fileName(item),
		Thumb:         thumbOf(item),
		Attributes:    mediaAttributes(item),
		ForceDocument: item.Kind == utils.KindDocument,
	}
}
