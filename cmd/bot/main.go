package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"nutri-bot/config"
	"nutri-bot/internal/bot"
	"nutri-bot/internal/gpt"
	"nutri-bot/internal/server"
	"nutri-bot/pkg/logger"
)

var (
	configPath string
	dev        bool
)

var rootCmd = &cobra.Command{
	Use:   "nutri-bot",
	Short: "NutriAI Telegram bot",
	Long: `NutriAI onboards users through a short profile wizard and then gives them
an AI nutrition assistant that understands text, meal photos and voice notes.`,
	SilenceUsage: true,
	RunE:         run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file (default: search ./config.yaml, ./config, $HOME/.nutri-bot)")
	rootCmd.PersistentFlags().BoolVar(&dev, "dev", false, "Development mode: console logging and gin debug output")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, _ []string) error {
	l := logger.New()
	if dev {
		l = logger.NewDevelopment()
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	defer func() { _ = l.Sync() }()

	l.Info("Starting NutriAI bot...")

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	provider, err := gpt.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create AI provider: %w", err)
	}
	l.Infow("AI provider ready", "provider", cfg.AI.Provider, "model", cfg.AI.Model)

	telegramBot, err := bot.NewTelegramBot(cfg, provider, l.Named("bot"))
	if err != nil {
		return err
	}
	if err := telegramBot.Start(ctx); err != nil {
		return fmt.Errorf("start telegram bot: %w", err)
	}
	l.Info("Telegram bot started successfully")

	httpServer := server.NewServer(cfg.Server.Port, telegramBot, l.Named("http"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		l.Info("Shutting down bot...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		var errs error
		if err := httpServer.Stop(shutdownCtx); err != nil {
			errs = errors.Join(errs, fmt.Errorf("http shutdown: %w", err))
		}
		if err := telegramBot.Stop(shutdownCtx); err != nil {
			errs = errors.Join(errs, fmt.Errorf("bot shutdown: %w", err))
		}
		return errs
	})

	err = g.Wait()
	if err == nil {
		l.Info("Bot stopped successfully")
	}
	return err
}
