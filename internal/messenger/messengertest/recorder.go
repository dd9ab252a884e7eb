// Package messengertest provides an in-memory Messenger for tests.
package messengertest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/Skotchmaster/laptop_shop/internal/messenger"
)

var ErrBlocked = errors.New("forbidden: bot was blocked by the user")

type Edit struct {
	ChatID    int64
	MessageID int
	Text      string
	Inline    [][]messenger.Button
}

type Recorder struct {
	mu      sync.Mutex
	nextID  int
	Sent    []messenger.Message
	Media   []messenger.Media
	Edits   []Edit
	Answers []string
	Uploads []string

	// Fail makes every delivery to these chats return ErrBlocked.
	Fail map[int64]bool
	// Files maps file ids to URLs returned by FileURL.
	Files map[string]string
}

func New() *Recorder {
	return &Recorder{Fail: map[int64]bool{}, Files: map[string]string{}}
}

func (r *Recorder) Send(_ context.Context, msg messenger.Message) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail[msg.ChatID] {
		return 0, ErrBlocked
	}
	r.nextID++
	r.Sent = append(r.Sent, msg)
	return r.nextID, nil
}

func (r *Recorder) Edit(_ context.Context, chatID int64, messageID int, text string, inline [][]messenger.Button) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail[chatID] {
		return ErrBlocked
	}
	r.Edits = append(r.Edits, Edit{ChatID: chatID, MessageID: messageID, Text: text, Inline: inline})
	return nil
}

func (r *Recorder) SendMedia(_ context.Context, m messenger.Media) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Fail[m.ChatID] {
		return 0, ErrBlocked
	}
	r.nextID++
	r.Media = append(r.Media, m)
	return r.nextID, nil
}

func (r *Recorder) AnswerCallback(_ context.Context, callbackID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Answers = append(r.Answers, callbackID+":"+text)
	return nil
}

func (r *Recorder) FileURL(_ context.Context, fileID string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.Files[fileID]
	if !ok {
		return "", fmt.Errorf("file %q not found", fileID)
	}
	return u, nil
}

func (r *Recorder) Upload(_ context.Context, kind messenger.MediaKind, name string, rd io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, rd); err != nil {
		return "", err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	id := fmt.Sprintf("%s-%s-%d", kind, name, len(r.Uploads)+1)
	r.Uploads = append(r.Uploads, id)
	return id, nil
}

// To returns the messages sent to chatID in order.
func (r *Recorder) To(chatID int64) []messenger.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []messenger.Message
	for _, m := range r.Sent {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out
}

// Last returns the last message sent to chatID.
func (r *Recorder) Last(chatID int64) (messenger.Message, bool) {
	msgs := r.To(chatID)
	if len(msgs) == 0 {
		return messenger.Message{}, false
	}
	return msgs[len(msgs)-1], true
}

func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Sent)
}

// Buttons flattens the inline keyboard of msg into callback data values.
func Buttons(msg messenger.Message) []string {
	var out []string
	for _, row := range msg.Inline {
		for _, b := range row {
			out = append(out, b.Data)
		}
	}
	return out
}
