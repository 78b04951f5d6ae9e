// Package bot runs the Telegram bot that hands users the Mini App button.
package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"
)

const pollTimeout = 60

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
	MakeRequest(endpoint string, params tgbotapi.Params) (*tgbotapi.APIResponse, error)
}

// The keyboard types of telegram-bot-api v5.5.1 have no web_app field, so
// the markup is spelled out here.
type webAppInfo struct {
	URL string `json:"url"`
}

type webAppButton struct {
	Text   string     `json:"text"`
	WebApp webAppInfo `json:"web_app"`
}

type inlineKeyboardMarkup struct {
	InlineKeyboard [][]webAppButton `json:"inline_keyboard"`
}

type Bot struct {
	api       API
	webAppURL string
	log       logrus.FieldLogger
}

func New(api API, webAppURL string, log logrus.FieldLogger) *Bot {
	return &Bot{
		api:       api,
		webAppURL: webAppURL,
		log:       log.WithField("component", "bot"),
	}
}

// Run long-polls for updates until ctx is cancelled or the update stream closes.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout

	updates := b.api.GetUpdatesChan(u)
	b.log.WithField("webapp_url", b.webAppURL).Info("bot polling started")

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.log.Info("bot polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || !msg.IsCommand() {
		return
	}

	var err error
	switch msg.Command() {
	case "start":
		err = b.sendStart(msg)
	case "shop":
		err = b.send(msg.Chat.ID, shopText, b.keyboard(shopButton))
	case "help":
		err = b.send(msg.Chat.ID, helpText, nil)
	default:
		return
	}
	if err != nil {
		b.log.WithError(err).WithFields(logrus.Fields{
			"chat_id": msg.Chat.ID,
			"command": msg.Command(),
		}).Error("failed to send reply")
	}
}

func (b *Bot) sendStart(msg *tgbotapi.Message) error {
	name := ""
	if msg.From != nil {
		name = msg.From.FirstName
	}
	text := fmt.Sprintf(startTemplate, html.EscapeString(name))
	return b.send(msg.Chat.ID, text, b.keyboard(startButton))
}

func (b *Bot) keyboard(label string) *inlineKeyboardMarkup {
	return &inlineKeyboardMarkup{
		InlineKeyboard: [][]webAppButton{{
			{Text: label, WebApp: webAppInfo{URL: b.webAppURL}},
		}},
	}
}

func (b *Bot) send(chatID int64, text string, markup *inlineKeyboardMarkup) error {
	params := tgbotapi.Params{
		"chat_id":    strconv.FormatInt(chatID, 10),
		"text":       text,
		"parse_mode": tgbotapi.ModeHTML,
	}
	if markup != nil {
		if err := params.AddInterface("reply_markup", markup); err != nil {
			return fmt.Errorf("encode reply markup: %w", err)
		}
	}

	resp, err := b.api.MakeRequest("sendMessage", params)
	if err != nil {
		return fmt.Errorf("sendMessage: %w", err)
	}
	if resp != nil && !resp.Ok {
		return fmt.Errorf("sendMessage: %s", resp.Description)
	}
	return nil
}
