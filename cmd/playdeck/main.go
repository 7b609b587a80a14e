// Package main provides the Playdeck CLI application entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"playdeck/internal/core"
	"playdeck/internal/devices"
	httpserver "playdeck/internal/http"
	"playdeck/internal/library"
	"playdeck/internal/player"
	"playdeck/internal/session"
	"playdeck/internal/spotify"
	"playdeck/internal/store"
)

const (
	defaultServerHost = "0.0.0.0"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "playdeck",
	Short: "Playdeck - Headless Spotify Playback Controller",
	Long: `Playdeck is a daemon that drives a local Spotify Connect player, reconciles its
state against the Spotify Web API, and exposes the resulting playback snapshot
over HTTP along with library browsing and liked-track management.`,
	RunE: runPlaydeck,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().String("spotify-redirect-url", "", "OAuth redirect URL")
	rootCmd.PersistentFlags().String("spotify-token-path", "", "OAuth token storage path")
	rootCmd.PersistentFlags().Int("spotify-min-request-interval-ms", 100, "Minimum spacing between Web API requests in milliseconds")
	rootCmd.PersistentFlags().Int("spotify-request-timeout-secs", 10, "Per-request timeout in seconds")
	rootCmd.PersistentFlags().Int("spotify-max-retries", 3, "Maximum retry attempts for retryable Web API failures")
	rootCmd.PersistentFlags().String("player-daemon-url", "http://localhost:3678", "Base URL of the local player daemon")
	rootCmd.PersistentFlags().String("player-device-name", "Playdeck", "Device name announced to Spotify Connect")
	rootCmd.PersistentFlags().Float64("player-volume", 0.5, "Initial playback volume (0.0-1.0)")
	rootCmd.PersistentFlags().Int("session-active-poll-secs", 2, "Remote state poll interval while playback is active, in seconds")
	rootCmd.PersistentFlags().Int("session-idle-poll-secs", 8, "Remote state poll interval while idle, in seconds")
	rootCmd.PersistentFlags().Int("session-max-liked-tracks", 200, "Maximum liked tracks loaded into the local set")
	rootCmd.PersistentFlags().Int("library-cache-ttl-mins", 5, "Library cache TTL in minutes")
	rootCmd.PersistentFlags().String("server-host", defaultServerHost, "HTTP server host")
	rootCmd.PersistentFlags().Int("server-port", 8080, "HTTP server port")
	rootCmd.PersistentFlags().Bool("generate-env-example", false, "Generate .env.example file from current configuration and exit")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}
}

func initConfig() {
	// Load .env file explicitly using gotenv
	envFile := ".env"
	if cfgFile != "" {
		envFile = cfgFile
	}

	if err := gotenv.Load(envFile); err != nil {
		// Don't exit if .env file doesn't exist, just warn
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Error loading .env file: %v\n", err)
		}
	}

	viper.SetEnvPrefix("PLAYDECK")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	configureSpotify(cfg)
	configurePlayer(cfg)
	configureSession(cfg)
	configureServer(cfg)

	return cfg
}

func configureSpotify(cfg *core.Config) {
	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	if v := viper.GetString("spotify-token-path"); v != "" {
		cfg.Spotify.TokenPath = v
	}
	if v := viper.GetInt("spotify-min-request-interval-ms"); v > 0 {
		cfg.Spotify.MinRequestInterval = time.Duration(v) * time.Millisecond
	}
	if v := viper.GetInt("spotify-request-timeout-secs"); v > 0 {
		cfg.Spotify.RequestTimeout = time.Duration(v) * time.Second
	}
	if v := viper.GetInt("spotify-max-retries"); v >= 0 {
		cfg.Spotify.MaxRetries = v
	}

	// Build default redirect URL based on server configuration if not
	// explicitly set
	cfg.Spotify.RedirectURL = viper.GetString("spotify-redirect-url")
	if cfg.Spotify.RedirectURL == "" {
		serverHost := cfg.Server.Host
		if serverHost == defaultServerHost {
			serverHost = "127.0.0.1" // Use localhost for OAuth callback
		}
		cfg.Spotify.RedirectURL = fmt.Sprintf("http://%s:%d/callback", serverHost, cfg.Server.Port)
	}
}

func configurePlayer(cfg *core.Config) {
	if v := viper.GetString("player-daemon-url"); v != "" {
		cfg.Player.DaemonURL = v
	}
	if v := viper.GetString("player-device-name"); v != "" {
		cfg.Player.DeviceName = v
	}
	if v := viper.GetFloat64("player-volume"); v >= 0 && v <= 1 {
		cfg.Player.Volume = v
	}
}

func configureSession(cfg *core.Config) {
	if v := viper.GetInt("session-active-poll-secs"); v > 0 {
		cfg.Session.ActivePollInterval = time.Duration(v) * time.Second
	}
	if v := viper.GetInt("session-idle-poll-secs"); v > 0 {
		cfg.Session.IdlePollInterval = time.Duration(v) * time.Second
	}
	if v := viper.GetInt("session-max-liked-tracks"); v > 0 {
		cfg.Session.MaxLikedTracks = v
	}
	if v := viper.GetInt("library-cache-ttl-mins"); v > 0 {
		cfg.Session.CacheTTL = time.Duration(v) * time.Minute
	}
}

func configureServer(cfg *core.Config) {
	cfg.Server.Host = viper.GetString("server-host")
	if cfg.Server.Host == "" {
		cfg.Server.Host = defaultServerHost
	}
	cfg.Server.Port = viper.GetInt("server-port")
	cfg.Log.Level = viper.GetString("log-level")
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func runPlaydeck(cmd *cobra.Command, _ []string) error {
	// Handle generate-env-example flag
	if viper.GetBool("generate-env-example") {
		return generateEnvExample(cmd)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("Starting Playdeck",
		zap.String("version", "1.0.0"),
		zap.String("player_daemon", config.Player.DaemonURL),
		zap.String("device_name", config.Player.DeviceName))

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	services, err := initializeServices(ctx)
	if err != nil {
		return err
	}

	return runServices(ctx, services)
}

type services struct {
	spotify    *spotify.Client
	registry   *devices.Registry
	library    *library.Library
	session    *session.Session
	httpServer *httpserver.Server
}

func initializeServices(ctx context.Context) (*services, error) {
	spotifyClient := spotify.NewClient(&config.Spotify, logger.Named("spotify"))
	if authErr := spotifyClient.Authenticate(ctx); authErr != nil {
		return nil, fmt.Errorf("failed to authenticate with Spotify: %w", authErr)
	}

	liked := store.NewLikedStore(10000, 0.001)
	registry := devices.NewRegistry(spotifyClient, logger.Named("devices"))
	lib := library.New(spotifyClient, &config.Session, logger.Named("library"))
	localPlayer := player.NewDaemon(&config.Player, logger.Named("player"))

	sess := session.New(&config.Session, spotifyClient, localPlayer, registry, liked,
		logger.Named("session"))
	sess.SetLikedInvalidator(lib.InvalidateLiked)

	if err := sess.LoadLiked(ctx); err != nil {
		logger.Warn("Failed to load liked tracks", zap.Error(err))
	}

	httpServer := httpserver.NewServer(&config.Server, httpserver.Deps{
		Provider:   sess,
		Controller: sess,
		Library:    lib,
		Devices:    registry,
		Ready:      spotifyClient.Authenticated,
	}, logger.Named("http"))
	sess.SetMetrics(httpServer)

	return &services{
		spotify:    spotifyClient,
		registry:   registry,
		library:    lib,
		session:    sess,
		httpServer: httpServer,
	}, nil
}

func runServices(ctx context.Context, svcs *services) error {
	svcs.session.Connect(ctx)
	defer svcs.session.Close()

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return svcs.httpServer.Start(gCtx)
	})

	g.Go(func() error {
		return svcs.session.Run(gCtx)
	})

	g.Go(func() error {
		snapshots, unsubscribe := svcs.session.Subscribe()
		defer unsubscribe()

		for {
			select {
			case <-gCtx.Done():
				return nil
			case snap, ok := <-snapshots:
				if !ok {
					return nil
				}
				svcs.httpServer.ObserveSnapshot(snap, len(svcs.session.LikedTrackIDs()))
			}
		}
	})

	logger.Info("Playdeck started successfully",
		zap.String("http_addr", fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)))

	if err := g.Wait(); err != nil {
		logger.Error("Playdeck stopped with error", zap.Error(err))
		return err
	}

	logger.Info("Playdeck stopped gracefully")
	return nil
}

func validateConfig() error {
	if config.Spotify.ClientID == "" {
		return fmt.Errorf("spotify client ID is required")
	}

	if config.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify client secret is required")
	}

	if config.Player.DaemonURL == "" {
		return fmt.Errorf("player daemon URL is required")
	}

	if config.Player.Volume < 0 || config.Player.Volume > 1 {
		return fmt.Errorf("player volume must be between 0.0 and 1.0, got %f", config.Player.Volume)
	}

	return nil
}

func generateEnvExample(cmd *cobra.Command) error {
	fmt.Println("Generating .env.example file from current configuration...")

	content := generateEnvExampleContent(cmd)

	if err := os.WriteFile(".env.example", []byte(content), 0600); err != nil {
		return fmt.Errorf("failed to write .env.example: %w", err)
	}

	fmt.Println("✅ Successfully generated .env.example file")
	return nil
}

func generateEnvExampleContent(cmd *cobra.Command) string {
	var content strings.Builder

	// Header
	content.WriteString("# =============================================================================\n")
	content.WriteString("# Playdeck Configuration\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("#\n")
	content.WriteString("# Copy this file to .env and update with your values\n")
	content.WriteString("# All environment variables have CLI flag equivalents (use --help to see them)\n")
	content.WriteString("#\n")
	content.WriteString("# Format: PLAYDECK_<SECTION>_<SETTING>=value\n")
	content.WriteString("# CLI equivalent: --<section>-<setting>\n")
	content.WriteString("#\n")

	generateSpotifySection(&content, cmd)
	generatePlayerSection(&content, cmd)
	generateSessionSection(&content, cmd)
	generateServerSection(&content, cmd)
	generateLoggingSection(&content, cmd)
	generateQuickSetupGuide(&content)

	return content.String()
}

func flagToEnvVar(flagName string) string {
	return "PLAYDECK_" + strings.ToUpper(strings.ReplaceAll(flagName, "-", "_"))
}

func getDefaultValueString(cmd *cobra.Command, flagName string) string {
	if f := cmd.PersistentFlags().Lookup(flagName); f != nil {
		return f.DefValue
	}
	return ""
}

func generateSpotifySection(content *strings.Builder, cmd *cobra.Command) {
	content.WriteString("# =============================================================================\n")
	content.WriteString("# SPOTIFY CONFIGURATION - Required\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("# Get these from https://developer.spotify.com/dashboard\n")
	content.WriteString("# CLI: --spotify-client-id, --spotify-client-secret\n")
	content.WriteString("\n")

	fmt.Fprintf(content, "%s=your_spotify_client_id_here          # Spotify app client ID\n",
		flagToEnvVar("spotify-client-id"))
	fmt.Fprintf(content, "%s=your_spotify_client_secret_here  # Spotify app client secret\n",
		flagToEnvVar("spotify-client-secret"))
	fmt.Fprintf(content, "%s=http://127.0.0.1:8080/callback    # OAuth callback URL (default: auto-generated)\n",
		flagToEnvVar("spotify-redirect-url"))
	fmt.Fprintf(content, "%s=./spotify_token.json                # Token storage path (default: \"./spotify_token.json\")\n",
		flagToEnvVar("spotify-token-path"))
	content.WriteString("\n")
	content.WriteString("# Web API pacing and retries\n")
	content.WriteString("# CLI: --spotify-min-request-interval-ms, --spotify-request-timeout-secs, --spotify-max-retries\n")

	intervalDefault := getDefaultValueString(cmd, "spotify-min-request-interval-ms")
	timeoutDefault := getDefaultValueString(cmd, "spotify-request-timeout-secs")
	retriesDefault := getDefaultValueString(cmd, "spotify-max-retries")

	fmt.Fprintf(content, "%s=%s       # Minimum spacing between requests in ms (default: %s)\n",
		flagToEnvVar("spotify-min-request-interval-ms"), intervalDefault, intervalDefault)
	fmt.Fprintf(content, "%s=%s           # Per-request timeout in seconds (default: %s)\n",
		flagToEnvVar("spotify-request-timeout-secs"), timeoutDefault, timeoutDefault)
	fmt.Fprintf(content, "%s=%s                      # Max retry attempts (default: %s)\n",
		flagToEnvVar("spotify-max-retries"), retriesDefault, retriesDefault)
	content.WriteString("\n")
}

func generatePlayerSection(content *strings.Builder, cmd *cobra.Command) {
	content.WriteString("# =============================================================================\n")
	content.WriteString("# LOCAL PLAYER CONFIGURATION\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("# Playdeck drives a go-librespot daemon for local playback\n")
	content.WriteString("# CLI: --player-daemon-url, --player-device-name, --player-volume\n")

	urlDefault := getDefaultValueString(cmd, "player-daemon-url")
	nameDefault := getDefaultValueString(cmd, "player-device-name")
	volumeDefault := getDefaultValueString(cmd, "player-volume")

	fmt.Fprintf(content, "%s=%s          # Player daemon base URL (default: %s)\n",
		flagToEnvVar("player-daemon-url"), urlDefault, urlDefault)
	fmt.Fprintf(content, "%s=\"%s\"                  # Device name shown in Spotify Connect (default: \"%s\")\n",
		flagToEnvVar("player-device-name"), nameDefault, nameDefault)
	fmt.Fprintf(content, "%s=%s                           # Initial volume 0.0-1.0 (default: %s)\n",
		flagToEnvVar("player-volume"), volumeDefault, volumeDefault)
	content.WriteString("\n")
}

func generateSessionSection(content *strings.Builder, cmd *cobra.Command) {
	content.WriteString("# -----------------------------------------------------------------------------\n")
	content.WriteString("# Playback Session and Library\n")
	content.WriteString("# -----------------------------------------------------------------------------\n")
	content.WriteString("# CLI: --session-active-poll-secs, --session-idle-poll-secs, etc.\n")

	activeDefault := getDefaultValueString(cmd, "session-active-poll-secs")
	idleDefault := getDefaultValueString(cmd, "session-idle-poll-secs")
	likedDefault := getDefaultValueString(cmd, "session-max-liked-tracks")
	ttlDefault := getDefaultValueString(cmd, "library-cache-ttl-mins")

	fmt.Fprintf(content, "%s=%s              # Poll interval while playing, in seconds (default: %s)\n",
		flagToEnvVar("session-active-poll-secs"), activeDefault, activeDefault)
	fmt.Fprintf(content, "%s=%s                # Poll interval while idle, in seconds (default: %s)\n",
		flagToEnvVar("session-idle-poll-secs"), idleDefault, idleDefault)
	fmt.Fprintf(content, "%s=%s            # Max liked tracks kept locally (default: %s)\n",
		flagToEnvVar("session-max-liked-tracks"), likedDefault, likedDefault)
	fmt.Fprintf(content, "%s=%s                 # Library cache TTL in minutes (default: %s)\n",
		flagToEnvVar("library-cache-ttl-mins"), ttlDefault, ttlDefault)
	content.WriteString("\n")
}

func generateServerSection(content *strings.Builder, cmd *cobra.Command) {
	content.WriteString("# -----------------------------------------------------------------------------\n")
	content.WriteString("# HTTP Server Configuration\n")
	content.WriteString("# -----------------------------------------------------------------------------\n")
	content.WriteString("# CLI: --server-host, --server-port\n")

	hostDefault := getDefaultValueString(cmd, "server-host")
	portDefault := getDefaultValueString(cmd, "server-port")

	fmt.Fprintf(content, "%s=%s                         # Server bind address (default: %s)\n",
		flagToEnvVar("server-host"), "127.0.0.1", hostDefault)
	fmt.Fprintf(content, "%s=%s                              # Server port (default: %s)\n",
		flagToEnvVar("server-port"), portDefault, portDefault)
	content.WriteString("\n")
}

func generateLoggingSection(content *strings.Builder, cmd *cobra.Command) {
	content.WriteString("# -----------------------------------------------------------------------------\n")
	content.WriteString("# Logging Configuration\n")
	content.WriteString("# -----------------------------------------------------------------------------\n")
	content.WriteString("# CLI: --log-level\n")

	logDefault := getDefaultValueString(cmd, "log-level")

	fmt.Fprintf(content, "%s=%s                                # Log level: debug, info, warn, error (default: %s)\n",
		flagToEnvVar("log-level"), logDefault, logDefault)
	content.WriteString("\n")
}

func generateQuickSetupGuide(content *strings.Builder) {
	content.WriteString("# =============================================================================\n")
	content.WriteString("# QUICK SETUP GUIDE\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("\n")
	content.WriteString("# 1. SPOTIFY SETUP (Required):\n")
	content.WriteString("#    - Go to https://developer.spotify.com/dashboard\n")
	content.WriteString("#    - Create new app with name \"Playdeck\"\n")
	content.WriteString("#    - Add redirect URI: http://127.0.0.1:8080/callback\n")
	content.WriteString("#    - Copy Client ID and Secret to config above\n")
	content.WriteString("#    - A Spotify Premium account is required for playback control\n")
	content.WriteString("\n")
	content.WriteString("# 2. LOCAL PLAYER SETUP (Required for local playback):\n")
	content.WriteString("#    - Install go-librespot and run it in API mode\n")
	content.WriteString("#    - Point PLAYDECK_PLAYER_DAEMON_URL at its API address\n")
	content.WriteString("#    - Without a local player, remote devices can still be controlled\n")
	content.WriteString("\n")
	content.WriteString("# 3. TEST CONFIGURATION:\n")
	content.WriteString("#    go run ./cmd/playdeck --help                        # See all CLI options\n")
	content.WriteString("#    go run ./cmd/playdeck --log-level=debug            # Run with debug logging\n")
	content.WriteString("#    make build && ./bin/playdeck                       # Build and run\n")
	content.WriteString("\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("# TROUBLESHOOTING\n")
	content.WriteString("# =============================================================================\n")
	content.WriteString("\n")
	content.WriteString("# Issue: \"Spotify authentication fails\"\n")
	content.WriteString("# - Verify redirect URL in Spotify app matches PLAYDECK_SPOTIFY_REDIRECT_URL\n")
	content.WriteString("# - Check client ID and secret are correct\n")
	content.WriteString("# - Delete the token file and re-authenticate if scopes changed\n")
	content.WriteString("\n")
	content.WriteString("# Issue: \"Local player never appears as a device\"\n")
	content.WriteString("# - Check the daemon is running: curl <daemon-url>/status\n")
	content.WriteString("# - Watch logs with PLAYDECK_LOG_LEVEL=debug for connect errors\n")
	content.WriteString("\n")
	content.WriteString("# Issue: \"Playback commands return rate limit errors\"\n")
	content.WriteString("# - Raise PLAYDECK_SPOTIFY_MIN_REQUEST_INTERVAL_MS\n")
	content.WriteString("# - The client honors Retry-After automatically; persistent 429s mean\n")
	content.WriteString("#   another app shares the same client ID quota\n")
}
