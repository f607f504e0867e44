package cmd

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/candlepulse/candle-pusher/candle"
	"github.com/candlepulse/candle-pusher/candle/gecko"
	"github.com/candlepulse/candle-pusher/config"
	"github.com/candlepulse/candle-pusher/gateway"
	"github.com/candlepulse/candle-pusher/pkg/cache"
	v1 "github.com/candlepulse/candle-pusher/router/v1"
)

const (
	logLevelJSON = "json"
	logLevelText = "text"

	flagLogLevel  = "log-level"
	flagLogFormat = "log-format"

	envVariablePass = "CANDLE_PUSHER_PASS"
)

var rootCmd = &cobra.Command{
	Use:   "candle-pusher [config-file]",
	Args:  cobra.MaximumNArgs(1),
	Short: "candle-pusher is a websocket server pushing OHLCV candles from CEX and DEX venues",
	Long: `candle-pusher is a websocket server that multiplexes many subscribers
onto per-market candle streams, polling centralized exchanges and
GeckoTerminal pools once per minute and fanning the results out.`,
	RunE: candlePusherCmdHandler,
}

func init() {
	rootCmd.PersistentFlags().String(flagLogLevel, zerolog.InfoLevel.String(), "logging level")
	rootCmd.PersistentFlags().String(flagLogFormat, logLevelText, "logging format; must be either json or text")

	rootCmd.AddCommand(getVersionCmd())
	rootCmd.AddCommand(getSymbolsCmd())
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func candlePusherCmdHandler(cmd *cobra.Command, args []string) error {
	logger, err := getCmdLogger(cmd)
	if err != nil {
		return err
	}

	configPath := ""
	if len(args) > 0 {
		configPath = args[0]
	}
	cfg, err := config.ParseConfig(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	g, ctx := errgroup.WithContext(ctx)

	// listen for and trap any OS signal to gracefully shutdown and exit
	trapSignal(cancel, logger)

	adapterTimeout, err := time.ParseDuration(cfg.Adapter.Timeout)
	if err != nil {
		return fmt.Errorf("failed to parse adapter timeout: %w", err)
	}
	heartbeatInterval, err := time.ParseDuration(cfg.Heartbeat.Interval)
	if err != nil {
		return fmt.Errorf("failed to parse heartbeat interval: %w", err)
	}
	heartbeatWindow, err := time.ParseDuration(cfg.Heartbeat.Window)
	if err != nil {
		return fmt.Errorf("failed to parse heartbeat window: %w", err)
	}

	catalog, err := gecko.LoadCatalog(cfg.Adapter.GeckoNetworks)
	if err != nil {
		return fmt.Errorf("failed to load gecko network catalog: %w", err)
	}
	logger.Info().Int("networks", len(catalog)).Msg("loaded gecko network catalog")

	hosts := cfg.HostOverrides()
	manager := candle.NewManager(logger, candle.Factories{
		CEX: candle.NewHTTPCexBuilder(logger, adapterTimeout, hosts),
		DEX: candle.NewGeckoDexBuilder(logger, catalog, adapterTimeout),
	})

	var redisCache *cache.Cache
	if cfg.Redis.Enabled {
		password := cfg.Redis.Password
		if password == "" {
			password = os.Getenv(envVariablePass)
		}
		redisCache = cache.Dial(cfg.Redis.Addr, password, cfg.Redis.DB)
	}
	symbols := candle.NewSymbolCatalog(logger, adapterTimeout, hosts, redisCache)

	gw := gateway.NewServer(logger, manager, gateway.Options{
		HeartbeatInterval: heartbeatInterval,
		HeartbeatWindow:   heartbeatWindow,
	})

	g.Go(func() error {
		gw.Heartbeat(ctx)
		return nil
	})
	g.Go(func() error {
		gw.BroadcastLoop(ctx)
		return nil
	})
	g.Go(func() error {
		return startServer(ctx, logger, cfg, manager, symbols, gw)
	})
	g.Go(func() error {
		<-ctx.Done()
		gw.CloseAll()
		return nil
	})

	return g.Wait()
}

func startServer(
	ctx context.Context,
	logger zerolog.Logger,
	cfg config.Config,
	manager *candle.Manager,
	symbols *candle.SymbolCatalog,
	gw *gateway.Server,
) error {
	rtr := mux.NewRouter()
	v1Router := v1.New(logger, cfg, symbols, manager, gw)
	v1Router.RegisterRoutes(rtr, v1.APIPathPrefix)

	writeTimeout, err := time.ParseDuration(cfg.Server.WriteTimeout)
	if err != nil {
		return fmt.Errorf("failed to parse write timeout: %w", err)
	}
	readTimeout, err := time.ParseDuration(cfg.Server.ReadTimeout)
	if err != nil {
		return fmt.Errorf("failed to parse read timeout: %w", err)
	}

	srv := &http.Server{
		Handler:           rtr,
		Addr:              cfg.Server.ListenAddr,
		WriteTimeout:      writeTimeout,
		ReadHeaderTimeout: readTimeout,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info().Str("listen_addr", cfg.Server.ListenAddr).Msg("starting candle-pusher server")
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		return err
	}
	return nil
}

func getCmdLogger(cmd *cobra.Command) (zerolog.Logger, error) {
	logLvlStr, err := cmd.Flags().GetString(flagLogLevel)
	if err != nil {
		return zerolog.Logger{}, err
	}
	logLvl, err := zerolog.ParseLevel(logLvlStr)
	if err != nil {
		return zerolog.Logger{}, err
	}

	logFormatStr, err := cmd.Flags().GetString(flagLogFormat)
	if err != nil {
		return zerolog.Logger{}, err
	}

	var logWriter io.Writer
	switch strings.ToLower(logFormatStr) {
	case logLevelJSON:
		logWriter = os.Stderr

	case logLevelText:
		logWriter = zerolog.ConsoleWriter{Out: os.Stderr}

	default:
		return zerolog.Logger{}, fmt.Errorf("invalid logging format: %s", logFormatStr)
	}

	return zerolog.New(logWriter).Level(logLvl).With().Timestamp().Logger(), nil
}

// trapSignal will listen for any OS signal and invoke Done on the main
// WaitGroup allowing the main process to gracefully exit.
func trapSignal(cancel context.CancelFunc, logger zerolog.Logger) {
	sigCh := make(chan os.Signal, 1)

	signal.Notify(sigCh, syscall.SIGTERM)
	signal.Notify(sigCh, syscall.SIGINT)

	go func() {
		sig := <-sigCh
		logger.Info().Str("signal", sig.String()).Msg("received signal; shutting down...")
		cancel()
	}()
}
