package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Twilio   TwilioConfig   `mapstructure:"twilio"`
	Alert    AlertConfig    `mapstructure:"alert"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
}

type TelegramConfig struct {
	Token string `mapstructure:"token"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	UseInMemory bool   `mapstructure:"use_in_memory"`
}

type LLMConfig struct {
	APIKey    string `mapstructure:"api_key"`
	BaseURL   string `mapstructure:"base_url"`
	Model     string `mapstructure:"model"`
	MaxTokens int    `mapstructure:"max_tokens"`
	// CrewMode enables the multi-agent pipeline tier ahead of the
	// single-call classifier.
	CrewMode bool `mapstructure:"crew_mode"`
}

type TwilioConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
}

type AlertConfig struct {
	PhoneNumber string `mapstructure:"phone_number"`
}

type PipelineConfig struct {
	MaxMessages          int  `mapstructure:"max_messages"`
	CheckIntervalMinutes int  `mapstructure:"check_interval_minutes"`
	PolicyCacheTTLSec    int  `mapstructure:"policy_cache_ttl_seconds"`
	DemoMode             bool `mapstructure:"demo_mode"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.use_in_memory", false)
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.model", "openai/gpt-4o-mini")
	v.SetDefault("llm.max_tokens", 100)
	v.SetDefault("llm.crew_mode", true)
	v.SetDefault("pipeline.max_messages", 10)
	v.SetDefault("pipeline.check_interval_minutes", 5)
	v.SetDefault("pipeline.policy_cache_ttl_seconds", 30)
	v.SetDefault("pipeline.demo_mode", false)

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("TELEGRAM_TOKEN"); token != "" {
		config.Telegram.Token = token
	}

	if apiKey := v.GetString("OPENAI_API_KEY"); apiKey != "" {
		config.LLM.APIKey = apiKey
	}

	if authToken := v.GetString("TWILIO_AUTH_TOKEN"); authToken != "" {
		config.Twilio.AuthToken = authToken
	}

	if phone := v.GetString("ALERT_PHONE_NUMBER"); phone != "" {
		config.Alert.PhoneNumber = phone
	}

	return &config, nil
}
