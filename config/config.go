package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	PaperTags PaperTagsConfig `yaml:"papertags"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host              string `yaml:"host"`
	Port              int    `yaml:"port"`
	TagFoundTopicName string `yaml:"tag_found_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type PaperTagsConfig struct {
	HTTPAddr string `yaml:"http_addr"`
	// BaseURL is used to build the claimable links embedded in API
	// responses and owner emails, e.g. "https://papertags.example.com".
	BaseURL string `yaml:"base_url"`

	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	AuthTokenSecret     string `yaml:"auth_token_secret"`
	AuthTokenTTLSeconds int    `yaml:"auth_token_ttl_seconds"`

	AdminBootstrapEmail    string `yaml:"admin_bootstrap_email"`
	AdminBootstrapPassword string `yaml:"admin_bootstrap_password"`
	AdminBootstrapName     string `yaml:"admin_bootstrap_name"`

	GeoProviderBaseURL string `yaml:"geo_provider_base_url"`
	GeoTimeoutMillis   int    `yaml:"geo_timeout_millis"`
	GeoCacheTTLSeconds int    `yaml:"geo_cache_ttl_seconds"`

	ScanRateLimitPerMinute int `yaml:"scan_rate_limit_per_minute"`
	ScanWorkerConcurrency  int `yaml:"scan_worker_concurrency"`

	// NotifierTransport selects how owner emails leave the system:
	// "none" (log only), "resend" (provider API), "smtp" (direct).
	NotifierTransport string `yaml:"notifier_transport"`
	NotifierHTTPAddr  string `yaml:"notifier_http_addr"`

	ResendAPIKey string `yaml:"resend_api_key"`

	SMTPHost     string `yaml:"smtp_host"`
	SMTPPort     int    `yaml:"smtp_port"`
	SMTPUsername string `yaml:"smtp_username"`
	SMTPPassword string `yaml:"smtp_password"`

	FromAddress string `yaml:"from_address"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
