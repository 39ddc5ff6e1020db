package config

import (
	"os"
	"strconv"
	"strings"

	"price-oracle-dashboard/internal/domain"
	"price-oracle-dashboard/internal/logger"
)

type Config struct {
	RPCURL          string
	ChainID         int64
	ContractAddress string
	Pairs           []domain.Pair
	PriceDecimals   uint8
	DisplayDecimals uint8
	OraclePollSecs  int

	MarketPollSecs   int
	MarketCurrency   string
	MarketPageSize   int
	CoinGeckoBaseURL string
	SymbolMapping    map[string]string

	SignerKind           string
	SignerPrivateKey     string
	SignerEndpoint       string
	TxConfirmTimeoutSecs int
	PriceFeeds           map[domain.Pair]string
	BootstrapFeeds       bool
	EventPollSecs        int

	TelegramBotToken    string
	TelegramAlertChatID int64
	DatabaseURL         string
	RedisURL            string
	APIKey              string
	HTTPPort            int

	SSHPort           int
	SSHHostKeyPath    string
	SSHAuthorizedKeys []string

	MCPTransport string
	MCPHTTPBind  string
	MCPHTTPPort  int

	LogLevel      string
	LogFormat     string
	LogFile       string
	LogMaxAgeDays int
}

func Load() *Config {
	log := logger.L().WithComponent("config")

	cfg := &Config{
		RPCURL:           envString("RPC_URL", "https://sepolia.base.org"),
		ContractAddress:  envString("CONTRACT_ADDRESS", "0xa176cC9450730Ae5D8C2b426291C86f84468aD55"),
		CoinGeckoBaseURL: envString("COINGECKO_BASE_URL", "https://api.coingecko.com/api/v3"),
		SignerPrivateKey: os.Getenv("SIGNER_PRIVATE_KEY"),
		SignerEndpoint:   strings.TrimSpace(os.Getenv("SIGNER_ENDPOINT")),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		APIKey:           os.Getenv("API_KEY"),
		SSHHostKeyPath:   envString("SSH_HOST_KEY_PATH", ".ssh/dashboard_ed25519"),
		MCPHTTPBind:      envString("MCP_HTTP_BIND", "127.0.0.1"),
		LogLevel:         envString("LOG_LEVEL", "info"),
		LogFormat:        envString("LOG_FORMAT", "json"),
		LogFile:          strings.TrimSpace(os.Getenv("LOG_FILE")),
	}

	cfg.ChainID = int64(envInt("CHAIN_ID", 84532))
	cfg.OraclePollSecs = envInt("ORACLE_POLL_SECS", 30)
	cfg.MarketPollSecs = envInt("MARKET_POLL_SECS", 300)
	cfg.MarketPageSize = envInt("MARKET_PAGE_SIZE", 20)
	cfg.TxConfirmTimeoutSecs = envInt("TX_CONFIRM_TIMEOUT_SECS", 120)
	cfg.EventPollSecs = envInt("EVENT_POLL_SECS", 15)
	cfg.HTTPPort = envInt("HTTP_PORT", 8080)
	cfg.SSHPort = envInt("SSH_PORT", 2222)
	cfg.MCPHTTPPort = envInt("MCP_HTTP_PORT", 8090)
	cfg.LogMaxAgeDays = envInt("LOG_MAX_AGE_DAYS", 7)

	cfg.PriceDecimals = 8
	if v := strings.TrimSpace(os.Getenv("ORACLE_PRICE_DECIMALS")); v != "" {
		if n, err := strconv.ParseUint(v, 10, 8); err == nil && n <= 36 {
			cfg.PriceDecimals = uint8(n)
		} else {
			log.Warnf("invalid ORACLE_PRICE_DECIMALS=%q, defaulting to 8", v)
		}
	}
	cfg.DisplayDecimals = 2
	if v := strings.TrimSpace(os.Getenv("ORACLE_DISPLAY_DECIMALS")); v != "" {
		if n, err := strconv.ParseUint(v, 10, 8); err == nil && n <= 36 {
			cfg.DisplayDecimals = uint8(n)
		} else {
			log.Warnf("invalid ORACLE_DISPLAY_DECIMALS=%q, defaulting to 2", v)
		}
	}

	cfg.Pairs = domain.DefaultPairs
	if v := strings.TrimSpace(os.Getenv("ORACLE_PAIRS")); v != "" {
		if pairs := domain.ParsePairs(v); len(pairs) > 0 {
			cfg.Pairs = pairs
		} else {
			log.Warnf("ORACLE_PAIRS=%q has no valid pairs, using defaults", v)
		}
	}

	cfg.MarketCurrency = strings.ToLower(envString("MARKET_CURRENCY", "aud"))

	cfg.SymbolMapping = make(map[string]string, len(domain.DefaultSymbolMapping))
	for k, v := range domain.DefaultSymbolMapping {
		cfg.SymbolMapping[k] = v
	}
	for k, v := range parseKeyValues(os.Getenv("SYMBOL_MAP")) {
		cfg.SymbolMapping[strings.ToUpper(k)] = strings.ToUpper(v)
	}

	cfg.PriceFeeds = make(map[domain.Pair]string, len(domain.DefaultPriceFeeds))
	for p, addr := range domain.DefaultPriceFeeds {
		cfg.PriceFeeds[p] = addr
	}
	for k, v := range parseKeyValues(os.Getenv("PRICE_FEEDS")) {
		cfg.PriceFeeds[domain.Pair(strings.ToUpper(k))] = v
	}
	cfg.BootstrapFeeds = strings.EqualFold(strings.TrimSpace(os.Getenv("BOOTSTRAP_FEEDS")), "true")

	cfg.SignerKind = strings.ToLower(envString("SIGNER_KIND", "none"))
	switch cfg.SignerKind {
	case "none":
		log.Warn("SIGNER_KIND=none, write actions will be rejected")
	case "key":
		if cfg.SignerPrivateKey == "" {
			log.Warn("SIGNER_KIND=key but SIGNER_PRIVATE_KEY not set, disabling signer")
			cfg.SignerKind = "none"
		}
	case "external":
		if cfg.SignerEndpoint == "" {
			log.Warn("SIGNER_KIND=external but SIGNER_ENDPOINT not set, disabling signer")
			cfg.SignerKind = "none"
		}
	default:
		log.Warnf("unsupported SIGNER_KIND=%q, defaulting to none", cfg.SignerKind)
		cfg.SignerKind = "none"
	}

	if v := strings.TrimSpace(os.Getenv("TELEGRAM_ALERT_CHAT_ID")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TelegramAlertChatID = n
		} else {
			log.Warnf("invalid TELEGRAM_ALERT_CHAT_ID=%q, alerts disabled", v)
		}
	}

	for _, fp := range strings.Split(os.Getenv("SSH_AUTHORIZED_KEYS"), ",") {
		if fp = strings.TrimSpace(fp); fp != "" {
			cfg.SSHAuthorizedKeys = append(cfg.SSHAuthorizedKeys, fp)
		}
	}

	cfg.MCPTransport = strings.ToLower(envString("MCP_TRANSPORT", "stdio"))
	if cfg.MCPTransport != "stdio" && cfg.MCPTransport != "http" {
		log.Warnf("unsupported MCP_TRANSPORT=%q, defaulting to stdio", cfg.MCPTransport)
		cfg.MCPTransport = "stdio"
	}

	if cfg.TelegramBotToken == "" {
		log.Warn("TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, intents and events kept in memory")
	}
	if cfg.RedisURL == "" {
		log.Warn("REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.APIKey == "" {
		log.Warn("API_KEY not set, write endpoints are unauthenticated")
	}

	return cfg
}

func envString(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// envInt returns a positive integer from key, or def when unset or invalid.
func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		logger.L().WithComponent("config").Warnf("invalid %s=%q, defaulting to %d", key, v, def)
		return def
	}
	return n
}

// parseKeyValues parses "A=B,C=D" lists.
func parseKeyValues(raw string) map[string]string {
	out := make(map[string]string)
	for _, part := range strings.Split(raw, ",") {
		k, v, ok := strings.Cut(part, "=")
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if !ok || k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}
