package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App      App      `mapstructure:"app"`
	Server   Server   `mapstructure:"server"`
	Gemini   Gemini   `mapstructure:"gemini"`
	NER      NER      `mapstructure:"ner"`
	Pipeline Pipeline `mapstructure:"pipeline"`
}

// App holds general application configuration.
type App struct {
	Env    string `mapstructure:"env"`     // "production" selects the /tmp DB fallback
	DBPath string `mapstructure:"db_path"` // Filesystem path for the sqlite store
}

// Server holds HTTP server configuration.
type Server struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Gemini holds the generative model configuration used by the labeler and
// the embedder.
type Gemini struct {
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	EmbeddingModel string        `mapstructure:"embedding_model"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

// NER holds the token-classification service configuration. The extractor is
// optional; an unreachable endpoint disables it for the process lifetime.
type NER struct {
	Endpoint string        `mapstructure:"endpoint"`
	Model    string        `mapstructure:"model"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Pipeline holds analysis pipeline tuning.
type Pipeline struct {
	Schedule        string `mapstructure:"schedule"`         // Cron expression for periodic runs
	RefinerSchedule string `mapstructure:"refiner_schedule"` // Optional independent refiner schedule
	SelectLimit     int    `mapstructure:"select_limit"`
	MaxAgeHours     int    `mapstructure:"max_age_hours"`
}

var globalConfig *Config

// Load loads the configuration from .env, config file, and environment.
func Load(configFile string) (*Config, error) {
	if globalConfig != nil {
		return globalConfig, nil
	}

	// Load .env file if it exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			fmt.Printf("Warning: Error loading .env file: %v\n", err)
		}
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
		viper.SetConfigName(".manthan")
		viper.SetConfigType("yaml")
	}

	setDefaults()
	bindEnvironmentVariables()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Production deployments run on a read-only image; the only writable
	// location is /tmp.
	if config.App.Env == "production" && config.App.DBPath == "" {
		config.App.DBPath = "/tmp/manthan.db"
	}

	globalConfig = config
	return config, nil
}

// Get returns the global configuration, loading it if necessary.
func Get() *Config {
	if globalConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("Failed to load configuration: %v", err))
		}
		return config
	}
	return globalConfig
}

// Reset clears the cached configuration. Used by tests.
func Reset() {
	globalConfig = nil
	viper.Reset()
}

func setDefaults() {
	viper.SetDefault("app.env", "development")
	// Empty means the store's own default location, data/manthan.db.
	viper.SetDefault("app.db_path", "")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 3001)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 60*time.Second)

	viper.SetDefault("gemini.model", "gemini-flash-lite-latest")
	viper.SetDefault("gemini.embedding_model", "gemini-embedding-001")
	viper.SetDefault("gemini.timeout", 20*time.Second)

	viper.SetDefault("ner.endpoint", "http://localhost:8089")
	viper.SetDefault("ner.model", "bert-base-ner")
	viper.SetDefault("ner.timeout", 15*time.Second)

	viper.SetDefault("pipeline.schedule", "*/30 * * * *")
	viper.SetDefault("pipeline.refiner_schedule", "")
	viper.SetDefault("pipeline.select_limit", 50)
	viper.SetDefault("pipeline.max_age_hours", 72)
}

func bindEnvironmentVariables() {
	_ = viper.BindEnv("app.env", "APP_ENV")
	_ = viper.BindEnv("app.db_path", "DB_PATH")
	_ = viper.BindEnv("server.port", "PORT")
	_ = viper.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	_ = viper.BindEnv("ner.endpoint", "NER_ENDPOINT")
}
