package notify

import (
	"context"
	"fmt"
	"sync"

	tgbot "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"funding_bot/internal/runner/sessions"
)

// Telegram - уведомления в один чат + команды /status, /history.
type Telegram struct {
	bot    *tgbot.BotAPI
	chatID int64
	log    *zap.Logger

	mu sync.Mutex
	s  *sessions.Session
}

func NewTelegram(token string, chatID int64, log *zap.Logger) (*Telegram, error) {
	b, err := tgbot.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("NewTelegram: %w", err)
	}
	return &Telegram{
		bot:    b,
		chatID: chatID,
		log:    log.Named("telegram"),
	}, nil
}

func (t *Telegram) Send(msg string) {
	if t == nil || t.bot == nil || t.chatID == 0 {
		return
	}
	if _, err := t.bot.Send(tgbot.NewMessage(t.chatID, msg)); err != nil {
		t.log.Warn("[TG] сообщение не отправлено", zap.Error(err))
	}
}

func (t *Telegram) Sendf(format string, args ...any) { t.Send(fmt.Sprintf(format, args...)) }

// Critical дублирует сообщение в лог, даже если Telegram недоступен.
func (t *Telegram) Critical(msg string) {
	if t.log != nil {
		t.log.Error("[TG] critical", zap.String("msg", msg), zap.String("severity", "FATAL_MANUAL"))
	}
	t.Send(msg)
}

// Start: long-polling команд из своего чата.
func (t *Telegram) Start(ctx context.Context, s *sessions.Session) error {
	if t == nil || t.bot == nil {
		return nil
	}
	t.mu.Lock()
	t.s = s
	t.mu.Unlock()

	u := tgbot.NewUpdate(0)
	u.Timeout = 30
	u.AllowedUpdates = []string{"message"}

	updates := t.bot.GetUpdatesChan(u)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case upd, ok := <-updates:
				if !ok {
					return
				}
				if upd.Message == nil || upd.Message.Chat == nil ||
					upd.Message.Chat.ID != t.chatID || !upd.Message.IsCommand() {
					continue
				}
				t.Send(t.reply(upd.Message.Command()))
			}
		}
	}()
	return nil
}

func (t *Telegram) Stop() {
	if t == nil || t.bot == nil {
		return
	}
	t.bot.StopReceivingUpdates()
}

func (t *Telegram) reply(cmd string) string {
	t.mu.Lock()
	s := t.s
	t.mu.Unlock()
	if s == nil {
		return "❗️ Сессия ещё не запущена"
	}
	return Reply(cmd, s)
}

// Stdout - уведомления только в лог.
type Stdout struct {
	log *zap.Logger
}

func NewStdout(log *zap.Logger) *Stdout { return &Stdout{log: log.Named("notify")} }

func (s *Stdout) Send(msg string)                  { s.log.Info(msg) }
func (s *Stdout) Sendf(format string, args ...any) { s.log.Info(fmt.Sprintf(format, args...)) }
func (s *Stdout) Critical(msg string) {
	s.log.Error(msg, zap.String("severity", "FATAL_MANUAL"))
}
