package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	tomlcache "github.com/bnema/tale-cli/internal/adapters/cache/toml"
	"github.com/bnema/tale-cli/internal/adapters/gateway"
	sessionsrender "github.com/bnema/tale-cli/internal/adapters/render/sessions"
	"github.com/bnema/tale-cli/internal/adapters/token"
	"github.com/bnema/tale-cli/internal/application"
	"github.com/bnema/tale-cli/internal/domain"
	"github.com/bnema/tale-cli/internal/ports"
)

const (
	configDirName  = ".tale"
	configName     = "config"
	configType     = "toml"
	tokenFileName  = "token"
	cacheFileName  = "media-urls.toml"
	tokenEnvKey    = "TALE_TOKEN"
	defaultBaseURL = "http://localhost:8000/api"
)

type app struct {
	service     *application.Service
	coordinator *application.Coordinator
	tokenFile   *token.FileProvider
	renderer    func([]domain.Adventure, sessionsrender.RenderOptions) (string, error)
	now         func() time.Time
}

func wireApp() (*app, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve home directory: %w", err)
	}
	configDir := filepath.Join(homeDir, configDirName)

	cfg, err := loadConfig(configDir)
	if err != nil {
		return nil, err
	}

	clock := ports.SystemClock{}
	sleeper := ports.SystemSleeper{}

	tokenFile := token.NewFileProvider(filepath.Join(configDir, tokenFileName))
	tokens := token.NewChain(token.EnvProvider{Key: tokenEnvKey}, tokenFile)

	client := &gateway.Client{
		BaseURL:        cfg.GetString("gateway.base_url"),
		HTTPClient:     http.DefaultClient,
		Tokens:         tokens,
		RequestTimeout: cfg.GetDuration("gateway.timeout"),
	}

	cache, err := tomlcache.NewCache(cfg.GetString("cache.path"), cfg.GetDuration("cache.ttl"), clock)
	if err != nil {
		return nil, fmt.Errorf("wire media url cache: %w", err)
	}

	store := application.NewSessionStore()
	policy := application.DefaultBackoffPolicy(gateway.IsColdStart)
	poller := application.NewPoller(client, cache, store, policy, clock, sleeper)
	coordinator := application.NewCoordinator(store, poller, client, sleeper, application.CoordinatorConfig{
		BatchSize:     cfg.GetInt("poll.batch_size"),
		BatchPause:    cfg.GetDuration("poll.batch_pause"),
		SweepInterval: cfg.GetDuration("poll.sweep_interval"),
		PollMaxWait:   cfg.GetDuration("poll.max_wait"),
		PollInterval:  cfg.GetDuration("poll.interval"),
	})
	pipeline := application.NewExchangePipeline(client, store, clock, cfg.GetBool("chat.block_while_media_pending"))

	return &app{
		service:     application.NewService(store, pipeline, coordinator, client, clock),
		coordinator: coordinator,
		tokenFile:   tokenFile,
		renderer:    sessionsrender.Render,
		now:         time.Now,
	}, nil
}

func loadConfig(configDir string) (*viper.Viper, error) {
	cfg := viper.New()
	cfg.SetConfigName(configName)
	cfg.SetConfigType(configType)
	cfg.AddConfigPath(configDir)
	cfg.SetEnvPrefix("TALE")
	cfg.AutomaticEnv()

	cfg.SetDefault("gateway.base_url", envOrDefault("TALE_BASE_URL", defaultBaseURL))
	cfg.SetDefault("gateway.timeout", 30*time.Second)
	cfg.SetDefault("poll.interval", 2*time.Second)
	cfg.SetDefault("poll.max_wait", 5*time.Minute)
	cfg.SetDefault("poll.sweep_interval", 30*time.Second)
	cfg.SetDefault("poll.batch_size", 3)
	cfg.SetDefault("poll.batch_pause", 500*time.Millisecond)
	cfg.SetDefault("cache.path", filepath.Join(configDir, cacheFileName))
	cfg.SetDefault("cache.ttl", tomlcache.DefaultTTL)
	cfg.SetDefault("chat.block_while_media_pending", true)

	if err := cfg.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
