// Package messenger describes outbound chat messages independently of the chat platform.
package messenger

import (
	"context"
	"io"
)

type Button struct {
	Text string
	Data string
	URL  string
}

type ReplyButton struct {
	Text           string
	RequestContact bool
}

// Message carries at most one keyboard. Inline wins over Reply, and Reply over RemoveReply.
// Reply keyboards hide themselves after one use.
type Message struct {
	ChatID      int64
	Text        string
	Inline      [][]Button
	Reply       [][]ReplyButton
	RemoveReply bool
}

type MediaKind string

const (
	Photo MediaKind = "photo"
	Video MediaKind = "video"
)

type Media struct {
	ChatID  int64
	Kind    MediaKind
	FileID  string
	Caption string
	Inline  [][]Button
}

type Messenger interface {
	Send(ctx context.Context, msg Message) (int, error)
	// Edit replaces text and inline buttons of a sent message. Edits that change nothing succeed.
	Edit(ctx context.Context, chatID int64, messageID int, text string, inline [][]Button) error
	SendMedia(ctx context.Context, m Media) (int, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
	// FileURL resolves an opaque file reference to a downloadable URL.
	FileURL(ctx context.Context, fileID string) (string, error)
	// Upload re-hosts a file on the platform and returns its reference.
	Upload(ctx context.Context, kind MediaKind, name string, r io.Reader) (string, error)
}

// Row is a shorthand for a single-row inline keyboard.
func Row(buttons ...Button) []Button { return buttons }

func Inline(rows ...[]Button) [][]Button { return rows }
