package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/spf13/cobra"

	"github.com/fjod/miniapp/internal/bot"
	"github.com/fjod/miniapp/internal/config"
	"github.com/fjod/miniapp/internal/logging"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Start the Telegram bot",
	Long: `Start the Telegram bot that answers /start, /shop and /help with a
button opening the Mini App.

Requires TELEGRAM_BOT_TOKEN and WEBAPP_URL.`,
	RunE: runBot,
}

func init() {
	rootCmd.AddCommand(botCmd)
}

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if err := cfg.ValidateBot(); err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	if err := tgbotapi.SetLogger(log); err != nil {
		return fmt.Errorf("set bot logger: %w", err)
	}

	api, err := tgbotapi.NewBotAPI(cfg.Bot.Token)
	if err != nil {
		return fmt.Errorf("failed to connect to telegram: %w", err)
	}
	api.Debug = cfg.Bot.Debug
	log.WithField("username", api.Self.UserName).Info("authorized on telegram")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return bot.New(api, cfg.Bot.WebAppURL, log).Run(ctx)
}
