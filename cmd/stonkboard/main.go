package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nanzhong/stonkboard/config"
	"github.com/nanzhong/stonkboard/dashboard"
	"github.com/nanzhong/stonkboard/favorites"
	"github.com/nanzhong/stonkboard/logging"
	"github.com/nanzhong/stonkboard/market"
	"github.com/nanzhong/stonkboard/slack"
	"github.com/nanzhong/stonkboard/web"
	slackgo "github.com/slack-go/slack"
)

var (
	configFiles        string
	addr               string
	slackBotToken      string
	slackSigningSecret string
)

func main() {
	flag.StringVar(&configFiles, "config", envOrString("STONKBOARD_CONFIG", ""), "Comma separated config files (.toml or .yaml), later files win.")
	flag.StringVar(&addr, "addr", "", "Address to listen on.")
	flag.StringVar(&slackBotToken, "slack-bot-token", "", "Slack token to use.")
	flag.StringVar(&slackSigningSecret, "slack-signing-secret", "", "Slack signing secret for requests events.")
	flag.Parse()

	var paths []string
	if configFiles != "" {
		paths = strings.Split(configFiles, ",")
	}
	cfg, err := config.LoadFromFiles(paths...)
	if err != nil {
		logging.New("info", "text", os.Stderr).Fatal().Err(err).Msg("Loading config failed")
	}
	config.ApplyFlagOverrides(cfg, addr, slackBotToken, slackSigningSecret)

	logger := logging.New(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
	if issues := cfg.Validate(); len(issues) > 0 {
		logger.Fatal().Strs("issues", issues).Msg("Invalid config")
	}

	var backend market.Backend = market.NewYahooBackend(
		market.WithLogger(logger),
		market.WithTimeout(cfg.Market.TimeoutDuration()),
	)
	if cfg.Market.Cache.Enabled {
		backend = market.NewCachedBackend(backend, cfg.Market.Cache.TTLDuration(), cfg.Market.Cache.MaxEntries, logger)
	}
	dash := dashboard.New(backend, logger)

	var store favorites.Store = favorites.NewMemoryStore()
	if cfg.Storage.Bolt.Path != "" {
		boltStore, err := favorites.OpenBoltStore(cfg.Storage.Bolt.Path)
		if err != nil {
			logger.Fatal().Err(err).Str("path", cfg.Storage.Bolt.Path).Msg("Opening favorites store failed")
		}
		store = boltStore
	}
	defer store.Close()

	opts := []web.Option{
		web.WithFavoritesStore(store),
		web.WithDefaultStart(cfg.Market.DefaultStartDate()),
	}
	if cfg.Slack.BotToken != "" {
		opts = append(opts, web.WithSlack(slack.NewEventHandler(
			slackgo.New(cfg.Slack.BotToken, slackgo.OptionDebug(cfg.Slack.Debug)),
			cfg.Slack.SigningSecret,
			dash,
			store,
			logger,
		)))
	}

	server := http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           web.NewHandler(dash, logger, opts...),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Bool("slack", cfg.Slack.BotToken != "").Bool("cache", cfg.Market.Cache.Enabled).Msg("Starting http server...")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("Http server listen failed")
		}
	}()

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	sig := <-done
	logger.Info().Str("signal", sig.String()).Msg("Got signal")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Http server shutdown failed")
	}
}

func envOrString(envKey, defaultValue string) string {
	value, defined := os.LookupEnv(envKey)
	if defined {
		return value
	}
	return defaultValue
}
