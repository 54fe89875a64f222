package notify

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	tele "gopkg.in/telebot.v3"
)

const (
	maxTelegramMsgLen     = 4000 // safety margin below 4096
	maxTelegramCaptionLen = 1000 // below 1024
)

type TelegramNotifier struct {
	bot         *tele.Bot
	defaultChat int64
}

// NewTelegramNotifier builds a send-only bot; it never polls for updates.
// apiURL is empty in production and points at a fake server in tests.
func NewTelegramNotifier(token string, defaultChat int64, apiURL string) (*TelegramNotifier, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:   token,
		URL:     apiURL,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: b, defaultChat: defaultChat}, nil
}

func (n *TelegramNotifier) recipient(chatID string) (tele.Recipient, error) {
	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		if n.defaultChat == 0 {
			return nil, fmt.Errorf("telegram: no chat configured")
		}
		return tele.ChatID(n.defaultChat), nil
	}
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("telegram: invalid chat id %q: %w", chatID, err)
	}
	return tele.ChatID(id), nil
}

func (n *TelegramNotifier) SendText(ctx context.Context, chatID, text string) error {
	to, err := n.recipient(chatID)
	if err != nil {
		return err
	}
	text = truncateUTF8(text, maxTelegramMsgLen)
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = n.bot.Send(to, text)
	return err
}

func (n *TelegramNotifier) SendPhoto(ctx context.Context, chatID string, photo []byte, caption string) error {
	to, err := n.recipient(chatID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = n.bot.Send(to, &tele.Photo{
		File:    tele.FromReader(bytes.NewReader(photo)),
		Caption: truncateUTF8(caption, maxTelegramCaptionLen),
	})
	return err
}

func (n *TelegramNotifier) SendLocation(ctx context.Context, chatID string, lat, lng float64) error {
	to, err := n.recipient(chatID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err = n.bot.Send(to, &tele.Location{Lat: float32(lat), Lng: float32(lng)})
	return err
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune; Telegram rejects invalid UTF-8.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
