// Package telegram connects the shop to the Telegram Bot API: it adapts
// outbound messages to tgbotapi and routes inbound updates to the shop flows.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Skotchmaster/laptop_shop/internal/messenger"
)

// Bot implements messenger.Messenger on top of the Bot API. Every text is sent as HTML.
type Bot struct {
	API *tgbotapi.BotAPI
	// StorageChatID receives uploads that are re-hosted to obtain a file id.
	StorageChatID int64
}

var errNoStorageChat = errors.New("telegram: STORAGE_CHAT_ID is not configured")

func NewBot(token string, storageChatID int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect: %w", err)
	}
	return &Bot{API: api, StorageChatID: storageChatID}, nil
}

func (b *Bot) Send(_ context.Context, m messenger.Message) (int, error) {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if markup := replyMarkup(m); markup != nil {
		msg.ReplyMarkup = markup
	}
	sent, err := b.API.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (b *Bot) Edit(_ context.Context, chatID int64, messageID int, text string, inline [][]messenger.Button) error {
	var edit tgbotapi.EditMessageTextConfig
	if len(inline) > 0 {
		edit = tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, inlineMarkup(inline))
	} else {
		edit = tgbotapi.NewEditMessageText(chatID, messageID, text)
	}
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.API.Request(edit); err != nil && !isNotModified(err) {
		return err
	}
	return nil
}

func (b *Bot) SendMedia(_ context.Context, m messenger.Media) (int, error) {
	var c tgbotapi.Chattable
	switch m.Kind {
	case messenger.Video:
		v := tgbotapi.NewVideo(m.ChatID, tgbotapi.FileID(m.FileID))
		v.Caption, v.ParseMode = m.Caption, tgbotapi.ModeHTML
		if len(m.Inline) > 0 {
			v.ReplyMarkup = inlineMarkup(m.Inline)
		}
		c = v
	default:
		p := tgbotapi.NewPhoto(m.ChatID, tgbotapi.FileID(m.FileID))
		p.Caption, p.ParseMode = m.Caption, tgbotapi.ModeHTML
		if len(m.Inline) > 0 {
			p.ReplyMarkup = inlineMarkup(m.Inline)
		}
		c = p
	}
	sent, err := b.API.Send(c)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (b *Bot) AnswerCallback(_ context.Context, callbackID, text string) error {
	_, err := b.API.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

func (b *Bot) FileURL(_ context.Context, fileID string) (string, error) {
	return b.API.GetFileDirectURL(fileID)
}

// Upload posts the file to the storage chat and returns the file id Telegram assigned.
func (b *Bot) Upload(_ context.Context, kind messenger.MediaKind, name string, r io.Reader) (string, error) {
	if b.StorageChatID == 0 {
		return "", errNoStorageChat
	}
	file := tgbotapi.FileReader{Name: name, Reader: r}

	if kind == messenger.Video {
		sent, err := b.API.Send(tgbotapi.NewVideo(b.StorageChatID, file))
		if err != nil {
			return "", err
		}
		if sent.Video == nil {
			return "", errors.New("telegram: upload returned no video")
		}
		return sent.Video.FileID, nil
	}

	sent, err := b.API.Send(tgbotapi.NewPhoto(b.StorageChatID, file))
	if err != nil {
		return "", err
	}
	if len(sent.Photo) == 0 {
		return "", errors.New("telegram: upload returned no photo")
	}
	return sent.Photo[len(sent.Photo)-1].FileID, nil
}

// Updates starts long polling. The channel closes after Stop.
func (b *Bot) Updates() tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "callback_query"}
	return b.API.GetUpdatesChan(u)
}

func (b *Bot) Stop() { b.API.StopReceivingUpdates() }

func replyMarkup(m messenger.Message) any {
	switch {
	case len(m.Inline) > 0:
		return inlineMarkup(m.Inline)
	case len(m.Reply) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(m.Reply))
		for _, row := range m.Reply {
			buttons := make([]tgbotapi.KeyboardButton, 0, len(row))
			for _, rb := range row {
				if rb.RequestContact {
					buttons = append(buttons, tgbotapi.NewKeyboardButtonContact(rb.Text))
				} else {
					buttons = append(buttons, tgbotapi.NewKeyboardButton(rb.Text))
				}
			}
			rows = append(rows, buttons)
		}
		kb := tgbotapi.NewReplyKeyboard(rows...)
		kb.OneTimeKeyboard = true
		kb.ResizeKeyboard = true
		return kb
	case m.RemoveReply:
		return tgbotapi.NewRemoveKeyboard(true)
	}
	return nil
}

func inlineMarkup(rows [][]messenger.Button) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			if btn.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(btn.Text, btn.URL))
				continue
			}
			buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(btn.Text, btn.Data))
		}
		out = append(out, buttons)
	}
	return tgbotapi.NewInlineKeyboardMarkup(out...)
}

func isNotModified(err error) bool {
	return err != nil && strings.Contains(err.Error(), "message is not modified")
}
