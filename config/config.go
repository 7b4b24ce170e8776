package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "ACCEPTANCE"

type Config struct {
	Frontend    FrontendConfig    `mapstructure:"frontend"`
	API         APIConfig         `mapstructure:"api"`
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Browser     BrowserConfig     `mapstructure:"browser"`
	Media       MediaConfig       `mapstructure:"media"`
	Reports     ReportsConfig     `mapstructure:"reports"`
	Log         LogConfig         `mapstructure:"log"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Publish     PublishConfig     `mapstructure:"publish"`
}

type FrontendConfig struct {
	URL string `mapstructure:"url"`
}

type APIConfig struct {
	AuthURL   string `mapstructure:"auth_url"`
	VideosURL string `mapstructure:"videos_url"`
	JWTSecret string `mapstructure:"jwt_secret"`
	Timeout   int    `mapstructure:"timeout"`
	Suite     string `mapstructure:"suite"`
}

type CredentialsConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

type BrowserConfig struct {
	Headless    bool   `mapstructure:"headless"`
	WaitTimeout int    `mapstructure:"wait_timeout"`
	Width       int    `mapstructure:"width"`
	Height      int    `mapstructure:"height"`
	Args        string `mapstructure:"args"`
	ExecPath    string `mapstructure:"exec_path"`
	DownloadDir string `mapstructure:"download_dir"`
	// DownloadTimeout bounds the wait for a downloaded file.
	DownloadTimeout int `mapstructure:"download_timeout"`
}

type MediaConfig struct {
	Video       string `mapstructure:"video"`
	WrongFormat string `mapstructure:"wrong_format"`
}

type ReportsConfig struct {
	Dir         string `mapstructure:"dir"`
	JSON        bool   `mapstructure:"json"`
	Chart       bool   `mapstructure:"chart"`
	DetailLimit int    `mapstructure:"detail_limit"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	// Output is stderr, stdout or a file path.
	Output string `mapstructure:"output"`
}

type MetricsConfig struct {
	// Path of the Prometheus textfile; empty disables metrics output.
	Path string `mapstructure:"path"`
}

type PublishConfig struct {
	S3       S3Config       `mapstructure:"s3"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Prefix    string `mapstructure:"prefix"`
	Region    string `mapstructure:"region"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	PathStyle bool   `mapstructure:"path_style"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// Load reads defaults, then the YAML file at path (or acceptance.yaml in
// ./config or the working directory), then ACCEPTANCE_* variables.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("acceptance")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("frontend.url", "http://localhost:3000")

	v.SetDefault("api.auth_url", "http://127.0.0.1:5000")
	v.SetDefault("api.videos_url", "http://localhost:5001")
	v.SetDefault("api.jwt_secret", "")
	v.SetDefault("api.timeout", 15)
	v.SetDefault("api.suite", "")

	// Credentials are never defaulted.
	v.SetDefault("credentials.email", "")
	v.SetDefault("credentials.password", "")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.wait_timeout", 10)
	v.SetDefault("browser.width", 1366)
	v.SetDefault("browser.height", 900)
	v.SetDefault("browser.args", "")
	v.SetDefault("browser.exec_path", "")
	v.SetDefault("browser.download_dir", "downloads")
	v.SetDefault("browser.download_timeout", 30)

	v.SetDefault("media.video", "")
	v.SetDefault("media.wrong_format", "")

	v.SetDefault("reports.dir", "reports")
	v.SetDefault("reports.json", false)
	v.SetDefault("reports.chart", true)
	v.SetDefault("reports.detail_limit", 50)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stderr")

	v.SetDefault("metrics.path", "")

	v.SetDefault("publish.s3.bucket", "")
	v.SetDefault("publish.s3.prefix", "")
	v.SetDefault("publish.s3.region", "us-east-1")
	v.SetDefault("publish.s3.endpoint", "")
	v.SetDefault("publish.s3.access_key", "")
	v.SetDefault("publish.s3.secret_key", "")
	v.SetDefault("publish.s3.path_style", false)
	v.SetDefault("publish.kafka.brokers", []string{})
	v.SetDefault("publish.kafka.topic", "acceptance-runs")
	v.SetDefault("publish.postgres.dsn", "")
}

func (c *Config) Validate() error {
	for name, raw := range map[string]string{
		"frontend.url":   c.Frontend.URL,
		"api.auth_url":   c.API.AuthURL,
		"api.videos_url": c.API.VideosURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config %s must be an absolute URL, got %q", name, raw)
		}
	}
	if c.Browser.WaitTimeout <= 0 {
		return fmt.Errorf("config browser.wait_timeout must be positive")
	}
	return nil
}

// RequireCredentials fails when the login account is not configured.
func (c *Config) RequireCredentials() error {
	if strings.TrimSpace(c.Credentials.Email) == "" || c.Credentials.Password == "" {
		return fmt.Errorf("credentials.email and credentials.password must be set (%s_CREDENTIALS_EMAIL, %s_CREDENTIALS_PASSWORD)", EnvPrefix, EnvPrefix)
	}
	return nil
}

func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.Timeout) * time.Second
}

func (c *Config) WaitTimeout() time.Duration {
	return time.Duration(c.Browser.WaitTimeout) * time.Second
}

func (c *Config) DownloadTimeout() time.Duration {
	return time.Duration(c.Browser.DownloadTimeout) * time.Second
}

// FrontendPage joins a route onto the frontend base URL.
func (c *Config) FrontendPage(route string) string {
	return strings.TrimRight(c.Frontend.URL, "/") + "/" + strings.TrimLeft(route, "/")
}
