package publisher

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"sjsage522/promoworker/logger"
	"sjsage522/promoworker/pkg/errors"
)

const (
	// MaxCaptionLength is the longest photo caption Telegram accepts
	MaxCaptionLength = 1024

	// DefaultMaxRetryAfter bounds the flood wait honored before giving up
	DefaultMaxRetryAfter = 30 * time.Second
)

// TelegramPublisher posts promotions to a Telegram chat or channel
type TelegramPublisher struct {
	bot           *tgbotapi.BotAPI
	chatID        int64
	channel       string
	maxRetryAfter time.Duration
	log           *logger.Logger
}

// NewTelegramPublisher authenticates the bot against the public API
func NewTelegramPublisher(token, chatID string) (*TelegramPublisher, error) {
	return NewTelegramPublisherWithEndpoint(token, chatID, tgbotapi.APIEndpoint, &http.Client{Timeout: 30 * time.Second})
}

// NewTelegramPublisherWithEndpoint authenticates the bot against endpoint,
// a format string taking the token and the method name
func NewTelegramPublisherWithEndpoint(token, chatID, endpoint string, client *http.Client) (*TelegramPublisher, error) {
	p := &TelegramPublisher{
		maxRetryAfter: DefaultMaxRetryAfter,
		log:           logger.ForPublisher(PublisherNameTelegram),
	}

	chatID = strings.TrimSpace(chatID)
	if chatID == "" {
		return nil, errors.NewConfiguration("telegram chat id is empty", nil)
	}
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		p.chatID = id
	} else {
		p.channel = "@" + strings.TrimPrefix(chatID, "@")
	}

	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, classifyTelegramError(err)
	}
	p.bot = bot

	p.log.Info().Str("bot", bot.Self.UserName).Msg("Telegram bot authorized")
	return p, nil
}

// Send posts the message. Messages with an image go out as a photo with the
// text as caption, unless the caption is too long or the photo is rejected.
// A flood wait of up to maxRetryAfter is honored once.
func (p *TelegramPublisher) Send(ctx context.Context, msg Message) error {
	err := p.sendOnce(ctx, msg)
	if err == nil || !errors.Is(err, errors.ErrorTypeRateLimit) {
		return err
	}

	wait := errors.RetryAfterOf(err)
	if wait <= 0 || wait > p.maxRetryAfter {
		return err
	}

	p.log.Warn().Dur("retry_after", wait).Msg("Telegram flood wait, retrying once")
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.NewPublisher(PublisherNameTelegram, "send cancelled", ctx.Err())
	case <-timer.C:
	}

	return p.sendOnce(ctx, msg)
}

func (p *TelegramPublisher) sendOnce(ctx context.Context, msg Message) error {
	if err := ctx.Err(); err != nil {
		return errors.NewPublisher(PublisherNameTelegram, "send cancelled", err)
	}

	if msg.ImageURL != "" && utf8.RuneCountInString(msg.Text) <= MaxCaptionLength {
		_, err := p.bot.Send(p.photo(msg))
		if err == nil {
			return nil
		}
		var tgErr *tgbotapi.Error
		if !stderrors.As(err, &tgErr) || tgErr.Code != http.StatusBadRequest {
			return classifyTelegramError(err)
		}
		p.log.Warn().Err(err).Str("image", msg.ImageURL).Msg("Photo rejected, sending text only")
	}

	if _, err := p.bot.Send(p.text(msg)); err != nil {
		return classifyTelegramError(err)
	}
	return nil
}

func (p *TelegramPublisher) photo(msg Message) tgbotapi.PhotoConfig {
	var photo tgbotapi.PhotoConfig
	if p.channel != "" {
		photo = tgbotapi.NewPhotoToChannel(p.channel, tgbotapi.FileURL(msg.ImageURL))
	} else {
		photo = tgbotapi.NewPhoto(p.chatID, tgbotapi.FileURL(msg.ImageURL))
	}
	photo.Caption = msg.Text
	photo.ParseMode = tgbotapi.ModeMarkdown
	return photo
}

func (p *TelegramPublisher) text(msg Message) tgbotapi.MessageConfig {
	var m tgbotapi.MessageConfig
	if p.channel != "" {
		m = tgbotapi.NewMessageToChannel(p.channel, msg.Text)
	} else {
		m = tgbotapi.NewMessage(p.chatID, msg.Text)
	}
	m.ParseMode = tgbotapi.ModeMarkdown
	return m
}

// Close is a no-op; the bot holds no connections of its own
func (p *TelegramPublisher) Close() error {
	return nil
}

func classifyTelegramError(err error) error {
	var tgErr *tgbotapi.Error
	if stderrors.As(err, &tgErr) {
		if tgErr.Code == http.StatusTooManyRequests {
			return errors.NewRateLimit(PublisherNameTelegram, time.Duration(tgErr.RetryAfter)*time.Second)
		}
		return errors.NewPublisher(PublisherNameTelegram, fmt.Sprintf("api error %d", tgErr.Code), err)
	}
	return errors.NewNetwork(PublisherNameTelegram, "request failed", err)
}
