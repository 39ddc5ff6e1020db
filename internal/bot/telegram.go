package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"price-oracle-dashboard/internal/domain"
	"price-oracle-dashboard/internal/logger"
)

type Dashboard interface {
	View() *domain.DashboardView
	Price(symbol string) (domain.ViewPrice, bool)
}

// EventNotifier is implemented by events.Feed.
type EventNotifier interface {
	OnEvent(fn func(domain.ThresholdEvent))
}

var commands = []string{"/ping", "/price", "/prices", "/threshold", "/events", "/market"}

type Bot struct {
	dashboard Dashboard
	log       *logger.Entry
}

func New(dashboard Dashboard) *Bot {
	return &Bot{dashboard: dashboard, log: logger.L().WithComponent("telegram")}
}

// StartTelegramBot runs the bot until ctx is cancelled. An empty token
// disables it. When alertChatID is set, every new threshold event is pushed
// to that chat.
func StartTelegramBot(ctx context.Context, token string, alertChatID int64, dashboard Dashboard, notifier EventNotifier) error {
	b := New(dashboard)
	if token == "" {
		b.log.Info("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	tb, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return fmt.Errorf("create telegram bot: %w", err)
	}

	for _, cmd := range commands {
		tb.Handle(cmd, func(c tele.Context) error {
			return c.Send(b.Respond(cmd, c.Args()))
		})
	}

	if alertChatID != 0 && notifier != nil {
		chat := tele.ChatID(alertChatID)
		notifier.OnEvent(func(ev domain.ThresholdEvent) {
			if _, err := tb.Send(chat, FormatEvent(ev)); err != nil {
				b.log.WithError(err).Warn("threshold alert not delivered")
			}
		})
	}

	go func() {
		<-ctx.Done()
		tb.Stop()
	}()
	go tb.Start()
	b.log.Info("telegram bot started")
	return nil
}

// Respond builds the reply for a command.
func (b *Bot) Respond(command string, args []string) string {
	view := b.dashboard.View()
	switch command {
	case "/ping":
		return "pong"
	case "/price":
		if len(args) == 0 {
			return "Usage: /price ETH\nKnown: " + strings.Join(symbols(view), ", ")
		}
		symbol := strings.ToUpper(strings.TrimSpace(args[0]))
		if p, ok := b.dashboard.Price(symbol); ok {
			return FormatPrice(p)
		}
		return fmt.Sprintf("Unknown symbol: %s\nKnown: %s", symbol, strings.Join(symbols(view), ", "))
	case "/prices":
		return FormatPrices(view)
	case "/threshold":
		return FormatThreshold(view)
	case "/events":
		return FormatEvents(view.Events)
	case "/market":
		return FormatMarket(view)
	}
	return "Commands: " + strings.Join(commands, " ")
}

func symbols(view *domain.DashboardView) []string {
	out := make([]string, 0, len(view.Prices))
	for _, p := range view.Prices {
		out = append(out, p.Symbol)
	}
	return out
}

func FormatPrice(p domain.ViewPrice) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (%s)\nPrice: %s\nSource: %s", p.Symbol, p.Pair, p.Price, p.Source)
	if p.OraclePrice != "" && p.MarketPrice != "" {
		fmt.Fprintf(&sb, "\nOracle: %s | Market: %s", p.OraclePrice, p.MarketPrice)
	}
	if p.HighThreshold != "" || p.LowThreshold != "" {
		fmt.Fprintf(&sb, "\nThresholds: high %s, low %s", p.HighThreshold, p.LowThreshold)
		if p.AlertHigh() {
			sb.WriteString(" (above high)")
		}
		if p.AlertLow() {
			sb.WriteString(" (below low)")
		}
	}
	if p.Stale {
		sb.WriteString("\nstale")
	}
	return sb.String()
}

func FormatPrices(view *domain.DashboardView) string {
	if len(view.Prices) == 0 {
		return "No prices yet."
	}
	var sb strings.Builder
	for i, p := range view.Prices {
		if i > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%-5s %12s  %s", p.Symbol, p.Price, p.Source)
	}
	if view.OracleDegraded {
		sb.WriteString("\noracle degraded: " + view.OracleDegradedReason)
	}
	return sb.String()
}

func FormatThreshold(view *domain.DashboardView) string {
	state := "inactive"
	if view.Threshold.Active {
		state = "active"
	}
	mint := "not allowed"
	if view.MintAllowed {
		mint = "allowed"
	}
	price := domain.ZeroPrice
	if p, ok := view.Price(view.MintSymbol); ok {
		price = p.Price
	}
	return fmt.Sprintf("%s mint threshold: %s (%s)\n%s price: %s\nMint: %s",
		view.MintSymbol, view.Threshold.Value, state, view.MintSymbol, price, mint)
}

func FormatEvents(evs []domain.ThresholdEvent) string {
	if len(evs) == 0 {
		return "No threshold events yet."
	}
	lines := make([]string, len(evs))
	for i, ev := range evs {
		lines[i] = FormatEvent(ev)
	}
	return strings.Join(lines, "\n")
}

func FormatEvent(ev domain.ThresholdEvent) string {
	direction := "crossed"
	switch {
	case ev.CrossedHigh:
		direction = "crossed above high threshold"
	case ev.CrossedLow:
		direction = "crossed below low threshold"
	}
	return fmt.Sprintf("%s %s at %s (block %d)", ev.Symbol, direction, ev.Price, ev.BlockNumber)
}

func FormatMarket(view *domain.DashboardView) string {
	if len(view.Market) == 0 {
		return "No market data yet."
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Top volume (%s):", strings.ToUpper(view.MarketCurrency))
	for _, e := range view.Rankings.TopVolume {
		fmt.Fprintf(&sb, "\n%s %s vol %s", e.Symbol, e.LastPrice, e.Volume)
	}
	if e := view.Rankings.BiggestIncrease; e != nil {
		fmt.Fprintf(&sb, "\nBiggest increase: %s %+.2f%%", e.Symbol, e.Change)
	}
	if e := view.Rankings.BiggestDecrease; e != nil {
		fmt.Fprintf(&sb, "\nBiggest decrease: %s %+.2f%%", e.Symbol, e.Change)
	}
	return sb.String()
}
