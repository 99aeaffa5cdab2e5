// internal/config/config.go
package config

import (
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig
	App    AppConfig
	Log    LogConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type AppConfig struct {
	ConfigDir          string
	OutputDir          string
	MaxConcurrentDrops int
}

type LogConfig struct {
	Level string
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		// Set default values
		viper.SetDefault("SERVER_PORT", "8080")
		viper.SetDefault("SERVER_MODE", "debug")
		viper.SetDefault("SERVER_READ_TIMEOUT", 300)
		viper.SetDefault("SERVER_WRITE_TIMEOUT", 300)
		viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
		viper.SetDefault("APP_CONFIG_DIR", "")
		viper.SetDefault("APP_OUTPUT_DIR", "")
		viper.SetDefault("APP_MAX_CONCURRENT_DROPS", 4)
		viper.SetDefault("LOG_LEVEL", "info")

		// Read from environment variables
		viper.AutomaticEnv()

		configDir := viper.GetString("APP_CONFIG_DIR")
		if configDir == "" {
			configDir = defaultConfigDir()
		}
		outputDir := viper.GetString("APP_OUTPUT_DIR")
		if outputDir == "" {
			outputDir = defaultOutputDir()
		}

		// Ensure config and output directories exist
		ensureDir(configDir, 0o700)
		ensureDir(outputDir, 0o755)

		instance = &Config{
			Server: ServerConfig{
				Port:           viper.GetString("SERVER_PORT"),
				Mode:           viper.GetString("SERVER_MODE"),
				ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
				WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
				AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			},
			App: AppConfig{
				ConfigDir:          configDir,
				OutputDir:          outputDir,
				MaxConcurrentDrops: viper.GetInt("APP_MAX_CONCURRENT_DROPS"),
			},
			Log: LogConfig{
				Level: viper.GetString("LOG_LEVEL"),
			},
		}
	})

	return instance
}

// defaultConfigDir places credentials and settings under the platform config
// directory, e.g. ~/.config/droplink on Linux.
func defaultConfigDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "./.droplink"
	}
	return filepath.Join(base, "droplink")
}

// defaultOutputDir is where artifacts land when the caller does not pick a
// directory.
func defaultOutputDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./droplink-drops"
	}
	return filepath.Join(home, "Downloads", "droplink")
}

func ensureDir(dir string, perm os.FileMode) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, perm); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
