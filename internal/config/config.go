package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// GlobalFlags are the command-line overrides shared by the serve and gateway
// commands. Flags win over environment, environment over file, file over
// defaults.
type GlobalFlags struct {
	ConfigPath string
	Port       int
	Timeout    string
	Retries    int
	RPCURL     string
}

type Settings struct {
	Port      int
	APISecret string

	Timeout time.Duration
	Retries int

	RateLimitPerSecond float64
	RateLimitBurst     int

	RPCURL string

	LiFiAPIKey  string
	LiFiBaseURL string

	ModelBaseURL string
	ModelAPIKey  string
	ModelID      string

	AgentURL    string
	AgentAPIKey string

	ThreadStoreEnabled bool
	ThreadStorePath    string
	ThreadLockPath     string
}

type fileConfig struct {
	Port    *int   `yaml:"port"`
	Secret  string `yaml:"secret"`
	Timeout string `yaml:"timeout"`
	Retries *int   `yaml:"retries"`
	Rate    struct {
		PerSecond *float64 `yaml:"per_second"`
		Burst     *int     `yaml:"burst"`
	} `yaml:"rate"`
	Chain struct {
		RPCURL string `yaml:"rpc_url"`
	} `yaml:"chain"`
	LiFi struct {
		APIKey    string `yaml:"api_key"`
		APIKeyEnv string `yaml:"api_key_env"`
		BaseURL   string `yaml:"base_url"`
	} `yaml:"lifi"`
	Model struct {
		BaseURL   string `yaml:"base_url"`
		APIKey    string `yaml:"api_key"`
		APIKeyEnv string `yaml:"api_key_env"`
		ID        string `yaml:"id"`
	} `yaml:"model"`
	Gateway struct {
		AgentURL    string `yaml:"agent_url"`
		AgentKey    string `yaml:"agent_key"`
		AgentKeyEnv string `yaml:"agent_key_env"`
	} `yaml:"gateway"`
	Threads struct {
		Enabled  *bool  `yaml:"enabled"`
		Path     string `yaml:"path"`
		LockPath string `yaml:"lock_path"`
	} `yaml:"threads"`
}

func Load(flags GlobalFlags) (Settings, error) {
	settings, err := defaultSettings()
	if err != nil {
		return Settings{}, err
	}

	cfgPath, err := resolveConfigPath(flags.ConfigPath)
	if err != nil {
		return Settings{}, err
	}
	if err := applyFileConfig(cfgPath, &settings); err != nil {
		return Settings{}, err
	}

	applyEnv(&settings)

	if err := applyFlags(flags, &settings); err != nil {
		return Settings{}, err
	}

	if settings.Port <= 0 {
		settings.Port = 8000
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 30 * time.Second
	}
	if settings.Retries < 0 {
		settings.Retries = 0
	}
	if settings.RateLimitPerSecond <= 0 {
		settings.RateLimitPerSecond = 5
	}
	if settings.RateLimitBurst <= 0 {
		settings.RateLimitBurst = 10
	}

	return settings, nil
}

func defaultSettings() (Settings, error) {
	storePath, lockPath, err := defaultThreadPaths()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		Port:               8000,
		Timeout:            30 * time.Second,
		Retries:            2,
		RateLimitPerSecond: 5,
		RateLimitBurst:     10,
		ModelID:            "us.meta.llama3-1-8b-instruct-v1:0",
		ThreadStorePath:    storePath,
		ThreadLockPath:     lockPath,
	}, nil
}

func resolveConfigPath(input string) (string, error) {
	if strings.TrimSpace(input) != "" {
		return input, nil
	}
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "loanify", "config.yaml"), nil
}

func defaultThreadPaths() (string, string, error) {
	base := os.Getenv("XDG_CACHE_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", "", err
		}
		base = filepath.Join(home, ".cache")
	}
	dir := filepath.Join(base, "loanify")
	return filepath.Join(dir, "threads.db"), filepath.Join(dir, "threads.lock"), nil
}

func applyFileConfig(path string, settings *Settings) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return fmt.Errorf("parse config yaml: %w", err)
	}

	if cfg.Port != nil {
		settings.Port = *cfg.Port
	}
	if cfg.Secret != "" {
		settings.APISecret = cfg.Secret
	}
	if cfg.Timeout != "" {
		d, err := time.ParseDuration(cfg.Timeout)
		if err != nil {
			return fmt.Errorf("config timeout: %w", err)
		}
		settings.Timeout = d
	}
	if cfg.Retries != nil {
		settings.Retries = *cfg.Retries
	}
	if cfg.Rate.PerSecond != nil {
		settings.RateLimitPerSecond = *cfg.Rate.PerSecond
	}
	if cfg.Rate.Burst != nil {
		settings.RateLimitBurst = *cfg.Rate.Burst
	}
	if cfg.Chain.RPCURL != "" {
		settings.RPCURL = cfg.Chain.RPCURL
	}
	if cfg.LiFi.APIKey != "" {
		settings.LiFiAPIKey = cfg.LiFi.APIKey
	}
	if cfg.LiFi.APIKeyEnv != "" {
		settings.LiFiAPIKey = os.Getenv(cfg.LiFi.APIKeyEnv)
	}
	if cfg.LiFi.BaseURL != "" {
		settings.LiFiBaseURL = cfg.LiFi.BaseURL
	}
	if cfg.Model.BaseURL != "" {
		settings.ModelBaseURL = cfg.Model.BaseURL
	}
	if cfg.Model.APIKey != "" {
		settings.ModelAPIKey = cfg.Model.APIKey
	}
	if cfg.Model.APIKeyEnv != "" {
		settings.ModelAPIKey = os.Getenv(cfg.Model.APIKeyEnv)
	}
	if cfg.Model.ID != "" {
		settings.ModelID = cfg.Model.ID
	}
	if cfg.Gateway.AgentURL != "" {
		settings.AgentURL = cfg.Gateway.AgentURL
	}
	if cfg.Gateway.AgentKey != "" {
		settings.AgentAPIKey = cfg.Gateway.AgentKey
	}
	if cfg.Gateway.AgentKeyEnv != "" {
		settings.AgentAPIKey = os.Getenv(cfg.Gateway.AgentKeyEnv)
	}
	if cfg.Threads.Enabled != nil {
		settings.ThreadStoreEnabled = *cfg.Threads.Enabled
	}
	if cfg.Threads.Path != "" {
		settings.ThreadStorePath = cfg.Threads.Path
	}
	if cfg.Threads.LockPath != "" {
		settings.ThreadLockPath = cfg.Threads.LockPath
	}
	return nil
}

func applyEnv(settings *Settings) {
	if v := os.Getenv("PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Port = n
		}
	}
	if v := os.Getenv("AI_URL_API_KEY"); v != "" {
		settings.APISecret = v
	}
	if v := os.Getenv("LOANIFY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			settings.Timeout = d
		}
	}
	if v := os.Getenv("LOANIFY_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.Retries = n
		}
	}
	if v := os.Getenv("LOANIFY_RATE_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			settings.RateLimitPerSecond = f
		}
	}
	if v := os.Getenv("LOANIFY_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			settings.RateLimitBurst = n
		}
	}
	if v := os.Getenv("LOANIFY_RPC_URL"); v != "" {
		settings.RPCURL = v
	}
	if v := os.Getenv("LIFI_API_KEY"); v != "" {
		settings.LiFiAPIKey = v
	}
	if v := os.Getenv("LOANIFY_LIFI_BASE_URL"); v != "" {
		settings.LiFiBaseURL = v
	}
	if v := os.Getenv("LOANIFY_MODEL_BASE_URL"); v != "" {
		settings.ModelBaseURL = v
	}
	if v := os.Getenv("LOANIFY_MODEL_API_KEY"); v != "" {
		settings.ModelAPIKey = v
	}
	if v := os.Getenv("LOANIFY_MODEL_ID"); v != "" {
		settings.ModelID = v
	}
	if v := os.Getenv("AI_URL"); v != "" {
		settings.AgentURL = v
	}
	if v := os.Getenv("LOANIFY_AGENT_KEY"); v != "" {
		settings.AgentAPIKey = v
	}
	if v := os.Getenv("LOANIFY_THREADS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			settings.ThreadStoreEnabled = b
		}
	}
	if v := os.Getenv("LOANIFY_THREADS_PATH"); v != "" {
		settings.ThreadStorePath = v
	}
	if v := os.Getenv("LOANIFY_THREADS_LOCK_PATH"); v != "" {
		settings.ThreadLockPath = v
	}
}

func applyFlags(flags GlobalFlags, settings *Settings) error {
	if flags.Port > 0 {
		settings.Port = flags.Port
	}
	if strings.TrimSpace(flags.Timeout) != "" {
		d, err := time.ParseDuration(flags.Timeout)
		if err != nil {
			return fmt.Errorf("invalid --timeout: %w", err)
		}
		settings.Timeout = d
	}
	if flags.Retries > 0 {
		settings.Retries = flags.Retries
	}
	if strings.TrimSpace(flags.RPCURL) != "" {
		settings.RPCURL = flags.RPCURL
	}
	return nil
}
