// Package telegramtest provides in-memory Source and Sender fakes.
package telegramtest

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/tanq16/tgrelay/internal/telegram"
	"github.com/tanq16/tgrelay/internal/utils"
)

type Source struct {
	mu sync.Mutex

	Messages  map[int]*telegram.Message
	FetchErr  map[int]error
	Groups    map[int64][]*telegram.Message
	Content   map[int][]byte
	TopicIDs  []int
	Premium   bool
	Fetched   []int
	Download  func(msg *telegram.Message, path string) error
	OnFetched func(id int)
}

func NewSource() *Source {
	return &Source{
		Messages: map[int]*telegram.Message{},
		FetchErr: map[int]error{},
		Groups:   map[int64][]*telegram.Message{},
		Content:  map[int][]byte{},
	}
}

func (s *Source) Add(msgs ...*telegram.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range msgs {
		s.Messages[m.ID] = m
		if m.GroupID != 0 {
			s.Groups[m.GroupID] = append(s.Groups[m.GroupID], m)
		}
	}
}

func (s *Source) FetchMessage(ctx context.Context, chat string, id int) (*telegram.Message, error) {
	s.mu.Lock()
	s.Fetched = append(s.Fetched, id)
	hook := s.OnFetched
	err := s.FetchErr[id]
	msg, ok := s.Messages[id]
	s.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	if err != nil {
		return nil, err
	}
	if !ok {
		return &telegram.Message{ID: id, Empty: true}, nil
	}
	return msg, nil
}

func (s *Source) MediaGroup(ctx context.Context, msg *telegram.Message) ([]*telegram.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if group, ok := s.Groups[msg.GroupID]; ok && msg.GroupID != 0 {
		return group, nil
	}
	return []*telegram.Message{msg}, nil
}

func (s *Source) DownloadMedia(ctx context.Context, msg *telegram.Message, path string, progress utils.ProgressFunc) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if s.Download != nil {
		if err := s.Download(msg, path); err != nil {
			return "", err
		}
		return path, nil
	}
	s.mu.Lock()
	data, ok := s.Content[msg.ID]
	s.mu.Unlock()
	if !ok {
		data = []byte(fmt.Sprintf("media-%d", msg.ID))
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	if progress != nil {
		progress(int64(len(data)), int64(len(data)))
	}
	return path, nil
}

func (s *Source) TopicMessageIDs(ctx context.Context, chat string, topic, start, end int) ([]int, error) {
	var out []int
	for _, id := range s.TopicIDs {
		if id >= start && id <= end {
			out = append(out, id)
		}
	}
	return out, nil
}

func (s *Source) IsPremium() bool {
	return s.Premium
}

// Sent records one media send. Existed tells whether the file was still on
// disk at send time.
type Sent struct {
	Chat    int64
	Item    utils.UploadDescriptor
	Existed bool
}

type Sender struct {
	mu sync.Mutex

	Texts   []string
	Edits   []string
	Deleted []int
	Media   []Sent
	Albums  [][]utils.UploadDescriptor

	MediaErr func(item utils.UploadDescriptor) error
	AlbumErr error
	nextID   int
}

func NewSender() *Sender {
	return &Sender{nextID: 1000}
}

func (s *Sender) SendText(ctx context.Context, chat int64, text string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Texts = append(s.Texts, text)
	s.nextID++
	return s.nextID, nil
}

func (s *Sender) EditText(ctx context.Context, chat int64, msgID int, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Edits = append(s.Edits, text)
	return nil
}

func (s *Sender) DeleteMessage(ctx context.Context, chat int64, msgID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Deleted = append(s.Deleted, msgID)
	return nil
}

func (s *Sender) SendMedia(ctx context.Context, chat int64, item utils.UploadDescriptor, progress utils.ProgressFunc) error {
	_, statErr := os.Stat(item.Path)
	s.mu.Lock()
	s.Media = append(s.Media, Sent{Chat: chat, Item: item, Existed: statErr == nil})
	fn := s.MediaErr
	s.mu.Unlock()
	if fn != nil {
		return fn(item)
	}
	return nil
}

func (s *Sender) SendAlbum(ctx context.Context, chat int64, items []utils.UploadDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Albums = append(s.Albums, items)
	return s.AlbumErr
}

// LastText returns the most recent reply or edit.
func (s *Sender) LastText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Texts) == 0 {
		return ""
	}
	return s.Texts[len(s.Texts)-1]
}

func (s *Sender) AllText() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string{}, s.Texts...)
	return append(out, s.Edits...)
}
