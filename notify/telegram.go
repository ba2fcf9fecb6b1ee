package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/rustyeddy/platinum/session"
	"github.com/rustyeddy/platinum/strategy"
	"github.com/rustyeddy/platinum/trade"
)

// Telegram sends markdown messages to a chat via the Bot API.
type Telegram struct {
	url    string
	chatID string
	client *http.Client
	log    *slog.Logger
}

func NewTelegram(token, chatID string, log *slog.Logger) *Telegram {
	return &Telegram{
		url:    fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", token),
		chatID: chatID,
		client: &http.Client{Timeout: 5 * time.Second},
		log:    log,
	}
}

func (n *Telegram) send(text string) {
	payload, err := json.Marshal(map[string]string{
		"chat_id":    n.chatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		n.log.Warn("telegram marshal failed", "err", err)
		return
	}

	resp, err := n.client.Post(n.url, "application/json", bytes.NewReader(payload))
	if err != nil {
		n.log.Warn("telegram send failed", "err", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		n.log.Warn("telegram send failed", "status", resp.StatusCode)
	}
}

func (n *Telegram) TradeOpened(sess session.Config, t trade.Trade) {
	n.send(fmt.Sprintf("*%s* (%s)\nEntry: `%.2f` | TP: `%.2f` | SL: `%.2f`",
		t.Direction, sess.Name, t.EntryPrice, t.TargetPrice, t.StopPrice))
}

func (n *Telegram) TradeClosed(sess session.Config, t trade.Trade) {
	n.send(fmt.Sprintf("*%s* - %s %s\nEntry: `%.2f` -> Exit reason: `%s`",
		t.Status, sess.Name, t.Direction, t.EntryPrice, t.ExitReason))
}

func (n *Telegram) SessionArmed(sess session.Config, r strategy.Range) {
	n.send(fmt.Sprintf("*%s Ready*\nHigh: `%.2f` | Low: `%.2f`", sess.Name, r.High, r.Low))
}

func (n *Telegram) SessionSkipped(sess session.Config, reason string) {
	n.send(fmt.Sprintf("*%s Skipped*\n%s", sess.Name, reason))
}

func (n *Telegram) DailyReset(date string) {
	n.send(fmt.Sprintf("*New Trading Day* (%s) - All settings reset", date))
}

func (n *Telegram) Error(msg string) {
	n.send(fmt.Sprintf("*Bot Error*: %s", msg))
}
