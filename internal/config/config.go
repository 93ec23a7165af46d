package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server   ServerConfig
	Log      LogConfig
	AI       AIConfig
	Vonage   VonageConfig
	Airtable AirtableConfig
	Store    StoreConfig
	Audience AudienceConfig
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	store, err := loadStoreConfig()
	if err != nil {
		return nil, err
	}

	audience, err := loadAudienceConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:   server,
		Log:      logCfg,
		AI:       ai,
		Vonage:   loadVonageConfig(),
		Airtable: loadAirtableConfig(),
		Store:    store,
		Audience: audience,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "3000"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":3000" 或 "127.0.0.1:3000"。
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// LogConfig 描述日志级别与输出格式。
type LogConfig struct {
	Level string
	JSON  bool
}

func loadLogConfig() (LogConfig, error) {
	asJSON, err := parseBoolEnv("LOG_JSON", false)
	if err != nil {
		return LogConfig{}, err
	}
	return LogConfig{
		Level: getEnvOrDefault("LOG_LEVEL", "info"),
		JSON:  asJSON,
	}, nil
}

// AIConfig 描述出题所用的大模型配置。
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
	Timeout     time.Duration
}

// Enabled 表示是否提供了必需的密钥。
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel 使用配置创建一个模型实例。
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: provide ARK_API_KEY + Model or an AK/SK pair")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	var timeout *time.Duration
	if c.Timeout > 0 {
		val := c.Timeout
		timeout = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
		Timeout:     timeout,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}
	if temperature == nil {
		// 默认较高温度，让每局题目有所不同
		val := 1.5
		temperature = &val
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout := 30 * time.Second
	if override, err := parseOptionalIntEnv("AI_TIMEOUT_SECONDS"); err != nil {
		return AIConfig{}, err
	} else if override != nil && *override > 0 {
		timeout = time.Duration(*override) * time.Second
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("Model")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
		Timeout:     timeout,
	}, nil
}

// VonageConfig 描述短信与语音服务配置。
type VonageConfig struct {
	APIKey        string
	APISecret     string
	ApplicationID string
	// PrivateKey 可以是 PEM 文件路径，也可以是 PEM 内容本身
	PrivateKey string
	FromNumber string
	APIURL     string
	RESTURL    string
}

// Enabled 表示是否提供了应用凭证。
func (c VonageConfig) Enabled() bool {
	return c.APIKey != "" && c.APISecret != "" && c.ApplicationID != "" && c.PrivateKey != ""
}

func loadVonageConfig() VonageConfig {
	return VonageConfig{
		APIKey:        strings.TrimSpace(os.Getenv("VONAGE_API_KEY")),
		APISecret:     strings.TrimSpace(os.Getenv("VONAGE_API_SECRET")),
		ApplicationID: strings.TrimSpace(os.Getenv("VONAGE_APPLICATION_ID")),
		PrivateKey:    strings.TrimSpace(os.Getenv("VONAGE_PRIVATE_KEY")),
		FromNumber:    strings.TrimSpace(os.Getenv("FROM_NUMBER")),
		APIURL:        getEnvOrDefault("VONAGE_API_URL", "https://api.nexmo.com"),
		RESTURL:       getEnvOrDefault("VONAGE_REST_URL", "https://rest.nexmo.com"),
	}
}

// AirtableConfig 指向作为报名名单的 Airtable 表。
type AirtableConfig struct {
	Token   string
	BaseID  string
	TableID string
	APIURL  string
}

// Enabled 表示名单是否可查询。
func (c AirtableConfig) Enabled() bool {
	return c.Token != "" && c.BaseID != "" && c.TableID != ""
}

func loadAirtableConfig() AirtableConfig {
	return AirtableConfig{
		Token:   strings.TrimSpace(os.Getenv("AIRTABLE_TOKEN")),
		BaseID:  strings.TrimSpace(os.Getenv("AT_BASE_ID")),
		TableID: strings.TrimSpace(os.Getenv("AT_TABLE_ID")),
		APIURL:  getEnvOrDefault("AIRTABLE_API_URL", "https://api.airtable.com/v0"),
	}
}

// StoreKind 游戏存储后端类型。
type StoreKind string

const (
	StoreFile  StoreKind = "file"
	StoreRedis StoreKind = "redis"
	StoreMongo StoreKind = "mongo"
)

// StoreConfig 描述游戏存储的类型与地址。
type StoreConfig struct {
	Kind          StoreKind
	GamesFile     string
	RedisURI      string
	MongoURI      string
	MongoDatabase string
}

func loadStoreConfig() (StoreConfig, error) {
	kind := StoreKind(strings.ToLower(getEnvOrDefault("GAME_STORE", string(StoreFile))))
	switch kind {
	case StoreFile, StoreRedis, StoreMongo:
	default:
		return StoreConfig{}, fmt.Errorf("invalid GAME_STORE value %q", kind)
	}

	return StoreConfig{
		Kind:          kind,
		GamesFile:     getEnvOrDefault("GAMES_FILE", "games.json"),
		RedisURI:      getEnvOrDefault("REDIS_URI", "localhost:6379"),
		MongoURI:      getEnvOrDefault("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnvOrDefault("MONGO_DATABASE", "millionaire"),
	}, nil
}

// AudienceConfig 描述观众投票日志位置与轮询间隔。
type AudienceConfig struct {
	ResponsesFile string
	PollInterval  time.Duration
}

func loadAudienceConfig() (AudienceConfig, error) {
	interval := time.Second
	if override, err := parseOptionalIntEnv("POLL_INTERVAL_MS"); err != nil {
		return AudienceConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return AudienceConfig{}, fmt.Errorf("invalid POLL_INTERVAL_MS value %d: must be positive", *override)
		}
		interval = time.Duration(*override) * time.Millisecond
	}

	return AudienceConfig{
		ResponsesFile: getEnvOrDefault("RESPONSES_FILE", "participants.txt"),
		PollInterval:  interval,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
