package notifier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

// TelegramNotifier sends messages via the Telegram Bot API.
type TelegramNotifier struct {
	Bot     *tgbotapi.BotAPI
	ChatID  int64
	Limiter *rate.Limiter
	// RetryInterval is the first backoff delay of SendWithRetry.
	RetryInterval time.Duration

	log zerolog.Logger
}

// NewTelegramNotifier creates a notifier with optional proxy support.
func NewTelegramNotifier(botToken string, chatID int64, proxyURL string, log zerolog.Logger) (*TelegramNotifier, error) {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	client := &http.Client{Timeout: 75 * time.Second, Transport: transport}
	return NewTelegramNotifierWithEndpoint(botToken, chatID, tgbotapi.APIEndpoint, client, log)
}

// NewTelegramNotifierWithEndpoint lets callers point the bot at another
// API server. endpoint has the form "https://host/bot%s/%s".
func NewTelegramNotifierWithEndpoint(botToken string, chatID int64, endpoint string, client *http.Client, log zerolog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(botToken, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	log.Info().Str("username", bot.Self.UserName).Msg("authorized on telegram")
	return &TelegramNotifier{
		Bot:           bot,
		ChatID:        chatID,
		Limiter:       rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
		RetryInterval: time.Second,
		log:           log,
	}, nil
}

// Send sends an HTML message to the configured chat.
func (t *TelegramNotifier) Send(ctx context.Context, text string) error {
	if err := t.Limiter.Wait(ctx); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(t.ChatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true
	if _, err := t.Bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// SendWithRetry sends a message with exponential backoff retry. Rejections
// other than rate limiting and server errors are not retried.
func (t *TelegramNotifier) SendWithRetry(ctx context.Context, text string, maxRetries int) error {
	attempt := 0
	op := func() error {
		attempt++
		err := t.Send(ctx, text)
		if err == nil {
			return nil
		}
		var apiErr *tgbotapi.Error
		if errors.As(err, &apiErr) && apiErr.Code != http.StatusTooManyRequests && apiErr.Code < 500 {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		t.log.Warn().Err(err).Int("attempt", attempt).Int("max", maxRetries+1).Msg("telegram send failed")
		return err
	}
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = t.RetryInterval
	bo.MaxElapsedTime = 0
	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, uint64(maxRetries)), ctx)); err != nil {
		return fmt.Errorf("telegram send after %d attempt(s): %w", attempt, err)
	}
	return nil
}
