package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port                string              `mapstructure:"port"`
	AIEndpoint          string              `mapstructure:"ai_endpoint"`
	Model               string              `mapstructure:"model"`
	OpenAIAPIKey        string              `mapstructure:"OPENAI_API_KEY"`
	GeminiAPIKeys       string              `mapstructure:"GEMINI_API_KEYS"`
	UploadDir           string              `mapstructure:"upload_dir"`
	ScratchDir          string              `mapstructure:"scratch_dir"`
	PostgresDSN         string              `mapstructure:"POSTGRES_DSN"`
	SearchAPIKey        string              `mapstructure:"GOOGLE_SEARCH_API_KEY"`
	SearchEngineID      string              `mapstructure:"search_engine_id"`
	WeaviateStoreConfig WeaviateStoreConfig `mapstructure:"weaviate_store_config"`
}

type WeaviateStoreConfig struct {
	Host         string       `mapstructure:"host"`
	APIKey       string       `mapstructure:"WEAVIATE_APIKEY"`
	Text2Vec     string       `mapstructure:"text2vec"`
	ModuleConfig ModuleConfig `mapstructure:"module_config"`
}

type ModuleConfig map[string]interface{}

func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Secrets always come from the environment, never the yaml file.
	v.BindEnv("OPENAI_API_KEY")
	v.BindEnv("GEMINI_API_KEYS")
	v.BindEnv("POSTGRES_DSN")
	v.BindEnv("GOOGLE_SEARCH_API_KEY")
	v.BindEnv("WEAVIATE_APIKEY")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.UploadDir == "" {
		config.UploadDir = "uploads"
	}
	if config.ScratchDir == "" {
		config.ScratchDir = "temp_extraction"
	}

	return &config, nil
}

// GeminiKeys splits the comma separated GEMINI_API_KEYS value.
func (c *Config) GeminiKeys() []string {
	if strings.TrimSpace(c.GeminiAPIKeys) == "" {
		return nil
	}
	parts := strings.Split(c.GeminiAPIKeys, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}
