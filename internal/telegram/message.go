package telegram

import (
	"context"

	"github.com/tanq16/tgrelay/internal/utils"
)

// Message is the platform-neutral view of a fetched post.
type Message struct {
	ID           int
	ChatID       int64
	Text         string
	Caption      string
	GroupID      int64
	ThreadID     int
	ReplyToID    int
	ReplyToTopID int
	Empty        bool

	Kind     utils.MediaKind
	FileName string
	FileSize int64
	MimeType string

	raw any
}

func (m *Message) HasMedia() bool {
	return m != nil && m.Kind != utils.KindUnknown
}

func (m *Message) HasText() bool {
	return m != nil && (m.Text != "" || m.Caption != "")
}

// Body returns the caption for media posts and the text otherwise.
func (m *Message) Body() string {
	if m.Caption != "" {
		return m.Caption
	}
	return m.Text
}

// BelongsToTopic reports whether a message is the topic's starter or is
// threaded under it.
func BelongsToTopic(m *Message, topicID int) bool {
	if m == nil || m.Empty || topicID == 0 {
		return false
	}
	return m.ID == topicID ||
		m.ThreadID == topicID ||
		m.ReplyToID == topicID ||
		m.ReplyToTopID == topicID
}

// Incoming is a command message received by the bot identity.
type Incoming struct {
	ChatID    int64
	MessageID int
	SenderID  int64
	Text      string
	Private   bool
}

// Source is the user identity that reads source chats.
type Source interface {
	FetchMessage(ctx context.Context, chat string, id int) (*Message, error)
	MediaGroup(ctx context.Context, msg *Message) ([]*Message, error)
	DownloadMedia(ctx context.Context, msg *Message, path string, progress utils.ProgressFunc) (string, error)
	TopicMessageIDs(ctx context.Context, chat string, topic, start, end int) ([]int, error)
	IsPremium() bool
}

// Sender is the bot identity that replies and uploads.
type Sender interface {
	SendText(ctx context.Context, chat int64, text string) (int, error)
	EditText(ctx context.Context, chat int64, msgID int, text string) error
	DeleteMessage(ctx context.Context, chat int64, msgID int) error
	SendMedia(ctx context.Context, chat int64, item utils.UploadDescriptor, progress utils.ProgressFunc) error
	SendAlbum(ctx context.Context, chat int64, items []utils.UploadDescriptor) error
}
