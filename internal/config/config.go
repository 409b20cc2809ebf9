package config

import (
	"context"
	"log/slog"
	"os"
	"time"

	infisical "github.com/infisical/go-sdk"
	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	ChainName       string
	RPCURLMainnet   string
	RPCURLTestnet   string
	IndexerURL      string
	IndexerFallback string
	CoingeckoKey    string
	DatabaseURL     string
	RedisURL        string
	RedisPassword   string
	TelegramToken   string
	TelegramChatID  string
	FrontendOrigin  string
}

func Load() Config {
	// A local .env is a development convenience; absence is not an error.
	_ = godotenv.Load()

	cfg := Config{
		Port:            envOr("PORT", "8080"),
		ChainName:       envOr("CONFIG_CHAIN", "testnet"),
		RPCURLMainnet:   os.Getenv("RPC_URL_MAINNET"),
		RPCURLTestnet:   os.Getenv("RPC_URL_TESTNET"),
		IndexerURL:      envOr("INDEXER_URL", "https://indexer.juicedollar.com/graphql"),
		IndexerFallback: os.Getenv("INDEXER_FALLBACK_URL"),
		CoingeckoKey:    os.Getenv("COINGECKO_API_KEY"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		TelegramToken:   os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramChatID:  os.Getenv("TELEGRAM_CHAT_ID"),
		FrontendOrigin:  envOr("FRONTEND_ORIGIN", "*"),
	}

	// If Infisical credentials are available, fetch secrets from Infisical
	clientID := os.Getenv("INFISICAL_CLIENT_ID")
	clientSecret := os.Getenv("INFISICAL_CLIENT_SECRET")
	if clientID != "" && clientSecret != "" {
		loadFromInfisical(&cfg, clientID, clientSecret)
	}

	return cfg
}

func loadFromInfisical(cfg *Config, clientID, clientSecret string) {
	siteURL := envOr("INFISICAL_SITE_URL", "https://app.infisical.com")
	projectID := os.Getenv("INFISICAL_PROJECT_ID")
	envSlug := envOr("INFISICAL_ENV", "prod")

	if projectID == "" {
		slog.Warn("INFISICAL_PROJECT_ID not set, skipping Infisical")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := infisical.NewInfisicalClient(ctx, infisical.Config{
		SiteUrl:          siteURL,
		AutoTokenRefresh: false,
	})

	_, err := client.Auth().UniversalAuthLogin(clientID, clientSecret)
	if err != nil {
		slog.Error("infisical auth failed", "error", err)
		return
	}

	secrets := map[string]*string{
		"COINGECKO_API_KEY":  &cfg.CoingeckoKey,
		"TELEGRAM_BOT_TOKEN": &cfg.TelegramToken,
		"REDIS_PASSWORD":     &cfg.RedisPassword,
	}

	for key, target := range secrets {
		if *target != "" {
			continue // env var already set, skip
		}
		secret, err := client.Secrets().Retrieve(infisical.RetrieveSecretOptions{
			SecretKey:   key,
			Environment: envSlug,
			ProjectID:   projectID,
			SecretPath:  "/",
		})
		if err != nil {
			slog.Warn("failed to retrieve secret from infisical", "key", key, "error", err)
			continue
		}
		*target = secret.SecretValue
		slog.Info("loaded secret from infisical", "key", key)
	}
}

// RPCURL returns the RPC endpoint for the configured chain.
func (c Config) RPCURL() string {
	if c.ChainName == "mainnet" {
		return c.RPCURLMainnet
	}
	return c.RPCURLTestnet
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
