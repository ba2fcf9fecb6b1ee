package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/platinum/broker"
	"github.com/rustyeddy/platinum/broker/dxlink"
	"github.com/rustyeddy/platinum/broker/sim"
	"github.com/rustyeddy/platinum/config"
	"github.com/rustyeddy/platinum/engine"
	"github.com/rustyeddy/platinum/journal"
	"github.com/rustyeddy/platinum/metrics"
	"github.com/rustyeddy/platinum/notify"
	"github.com/rustyeddy/platinum/session"
	"github.com/rustyeddy/platinum/state"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the bot against the configured sessions",
	Long: `Run the bot: authenticate, stream 1-minute candles, and trade the
configured session breakouts until interrupted.

Credentials come from the environment (or a .env file):
  DXLINK_USERNAME, DXLINK_PASSWORD   broker login (not needed with --paper)
  TELEGRAM_TOKEN, TELEGRAM_CHAT_ID   optional chat notifications`,
	RunE: runRun,
}

var (
	runPaper bool
	runDemo  bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runPaper, "paper", false, "use the in-memory paper broker (no real orders)")
	runCmd.Flags().BoolVar(&runDemo, "demo", false, "trade against the broker's demo environment")
}

func newLogger(level string) *slog.Logger {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: l}))
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	creds, err := config.LoadCredentials(runPaper)
	if err != nil {
		return err
	}

	log := newLogger(cfg.LogLevel)
	slog.SetDefault(log)

	cal, err := session.NewCalendar(cfg.Timezone, cfg.Sessions)
	if err != nil {
		return fmt.Errorf("session calendar: %w", err)
	}

	var brk broker.Broker
	if runPaper {
		brk = sim.New()
		log.Info("paper mode: orders stay in-process")
	} else {
		brk = dxlink.NewClient(dxlink.Options{
			Username: creds.BrokerUsername,
			Password: creds.BrokerPassword,
			Demo:     runDemo,
		})
	}

	var jrnl journal.Journal = journal.Nop{}
	if cfg.JournalPath != "" {
		sj, err := journal.NewSQLite(cfg.JournalPath)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer sj.Close()
		jrnl = sj
	}

	var ntf notify.Notifier = notify.Log{L: log}
	if creds.TelegramToken != "" {
		ntf = notify.Multi{
			notify.Log{L: log},
			notify.NewTelegram(creds.TelegramToken, creds.TelegramChatID, log),
		}
	}

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(cfg.MetricsAddr); err != nil {
				log.Warn("metrics server stopped", "err", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting platinum", "symbol", cfg.Symbol, "sessions", len(cfg.Sessions))

	e := engine.New(engine.Params{
		Config:   cfg,
		Calendar: cal,
		Broker:   brk,
		Store:    state.NewStore(cfg.StatePath),
		Journal:  jrnl,
		Notifier: ntf,
		Logger:   log,
	})
	return e.Run(ctx)
}
