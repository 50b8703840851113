package config

import (
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Server    ServerConfig
	Device    DeviceConfig
	Storage   StorageConfig
	Local     LocalConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Printer   PrinterConfig
}

type AppConfig struct {
	Name  string
	Env   string
	Debug bool
}

// ServerConfig points the terminal at the POS server.
type ServerConfig struct {
	URL           string
	FeedURL       string
	HTTPTimeout   time.Duration
	ProbeTimeout  time.Duration
	ProbeInterval time.Duration
}

// DeviceConfig names this terminal for first-run registration.
type DeviceConfig struct {
	Name       string
	LocationID int64
}

type StorageConfig struct {
	Path string
}

// LocalConfig configures the loopback API the register UI talks to.
type LocalConfig struct {
	Port        string
	Secret      string
	TokenExpiry time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

type PrinterConfig struct {
	Type    string
	USBPath string
	Address string
	Width   int
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables: %v", err)
	}

	// Set defaults
	viper.SetDefault("APP_NAME", "opentill-terminal")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_DEBUG", false)
	viper.SetDefault("SERVER_URL", "http://localhost:8080")
	viper.SetDefault("SERVER_FEED_URL", "")
	viper.SetDefault("SERVER_HTTP_TIMEOUT_SECONDS", 10)
	viper.SetDefault("SERVER_PROBE_TIMEOUT_SECONDS", 3)
	viper.SetDefault("SERVER_PROBE_INTERVAL_SECONDS", 60)
	viper.SetDefault("DEVICE_NAME", "terminal-1")
	viper.SetDefault("DEVICE_LOCATION_ID", 1)
	viper.SetDefault("STORAGE_PATH", "./data/terminal.db")
	viper.SetDefault("LOCAL_PORT", "9480")
	viper.SetDefault("LOCAL_SECRET", "change-this-secret-in-production")
	viper.SetDefault("LOCAL_TOKEN_EXPIRY_HOURS", 12)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:9481")
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)
	viper.SetDefault("PRINTER_TYPE", "none")
	viper.SetDefault("PRINTER_USB_PATH", "")
	viper.SetDefault("PRINTER_ADDRESS", "")
	viper.SetDefault("PRINTER_WIDTH", 48)

	cfg := &Config{
		App: AppConfig{
			Name:  viper.GetString("APP_NAME"),
			Env:   viper.GetString("APP_ENV"),
			Debug: viper.GetBool("APP_DEBUG"),
		},
		Server: ServerConfig{
			URL:           strings.TrimRight(viper.GetString("SERVER_URL"), "/"),
			FeedURL:       viper.GetString("SERVER_FEED_URL"),
			HTTPTimeout:   time.Duration(viper.GetInt("SERVER_HTTP_TIMEOUT_SECONDS")) * time.Second,
			ProbeTimeout:  time.Duration(viper.GetInt("SERVER_PROBE_TIMEOUT_SECONDS")) * time.Second,
			ProbeInterval: time.Duration(viper.GetInt("SERVER_PROBE_INTERVAL_SECONDS")) * time.Second,
		},
		Device: DeviceConfig{
			Name:       viper.GetString("DEVICE_NAME"),
			LocationID: viper.GetInt64("DEVICE_LOCATION_ID"),
		},
		Storage: StorageConfig{
			Path: viper.GetString("STORAGE_PATH"),
		},
		Local: LocalConfig{
			Port:        viper.GetString("LOCAL_PORT"),
			Secret:      viper.GetString("LOCAL_SECRET"),
			TokenExpiry: time.Duration(viper.GetInt("LOCAL_TOKEN_EXPIRY_HOURS")) * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitAndTrim(viper.GetString("CORS_ALLOWED_ORIGINS")),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetInt("RATE_LIMIT_DURATION"),
		},
		Printer: PrinterConfig{
			Type:    viper.GetString("PRINTER_TYPE"),
			USBPath: viper.GetString("PRINTER_USB_PATH"),
			Address: viper.GetString("PRINTER_ADDRESS"),
			Width:   viper.GetInt("PRINTER_WIDTH"),
		},
	}

	// Derive the websocket endpoint from the server URL when not set
	// explicitly.
	if cfg.Server.FeedURL == "" {
		feed := cfg.Server.URL
		feed = strings.Replace(feed, "https://", "wss://", 1)
		feed = strings.Replace(feed, "http://", "ws://", 1)
		cfg.Server.FeedURL = feed + "/feed"
	}

	return cfg
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
