package commands

import (
	"fmt"

	"restaurant-booking-be/internal/config"

	"github.com/spf13/viper"
)

// ConfigFile is bound to the root --config flag.
var ConfigFile string

// loadConfig reads the environment, then lets the optional YAML file win.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if ConfigFile == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(ConfigFile)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read %s: %w", ConfigFile, err)
	}
	applyOverrides(cfg, v)
	return cfg, nil
}

// applyOverrides copies every key present in v onto cfg.
func applyOverrides(cfg *config.Config, v *viper.Viper) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	str("llm.provider", &cfg.LLM.Provider)
	str("llm.model", &cfg.LLM.Model)
	str("llm.base_url", &cfg.LLM.BaseURL)
	str("llm.api_key", &cfg.LLM.APIKey)
	str("restaurant.base_url", &cfg.Restaurant.BaseURL)
	str("restaurant.token", &cfg.Restaurant.Token)
	str("restaurant.name", &cfg.Restaurant.Name)
	str("agent.store_backend", &cfg.Agent.StoreBackend)
	str("app.redis_url", &cfg.App.RedisURL)
	str("database.connection", &cfg.Database.Connection)
	str("app.jwt_secret", &cfg.App.JwtSecret)

	if v.IsSet("restaurant.timeout") {
		cfg.Restaurant.Timeout = v.GetDuration("restaurant.timeout")
	}
	if v.IsSet("agent.max_search_days") {
		cfg.Agent.MaxSearchDays = v.GetInt("agent.max_search_days")
	}
	if v.IsSet("agent.llm_responses") {
		cfg.Agent.UseLLMResponses = v.GetBool("agent.llm_responses")
	}
	if v.IsSet("agent.interpret_timeout") {
		cfg.Agent.InterpretTimeout = v.GetDuration("agent.interpret_timeout")
	}
}
