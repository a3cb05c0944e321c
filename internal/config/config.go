package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ProviderEntry describes one scraping provider in the fallback chain.
// Entries override or extend the built-in descriptor table.
type ProviderEntry struct {
	ID        string              `yaml:"id"`
	Kind      string              `yaml:"kind"`       // apify or brightdata
	Actor     string              `yaml:"actor"`      // apify actor id, e.g. apify~instagram-profile-scraper
	DatasetID string              `yaml:"dataset_id"` // brightdata dataset id
	BaseURL   string              `yaml:"base_url"`
	Token     string              `yaml:"token"`
	Input     interface{}         `yaml:"input"`  // request body template, {{handle}} is substituted
	Fields    map[string][]string `yaml:"fields"` // canonical field -> candidate source fields
}

// AdapterConfig configures one logging adapter
type AdapterConfig struct {
	Name    string                 `yaml:"name"`
	Type    string                 `yaml:"type"`
	Enabled bool                   `yaml:"enabled"`
	Options map[string]interface{} `yaml:"options"`
}

// Config represents the application configuration
type Config struct {
	Server struct {
		Port           int           `yaml:"port"`
		Host           string        `yaml:"host"`
		ReadTimeout    time.Duration `yaml:"read_timeout"`
		WriteTimeout   time.Duration `yaml:"write_timeout"`
		IdleTimeout    time.Duration `yaml:"idle_timeout"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"server"`

	GRPC struct {
		Enabled        bool `yaml:"enabled"`
		MaxMessageSize int  `yaml:"max_message_size"`
	} `yaml:"grpc"`

	Providers struct {
		Order            []string        `yaml:"order"`
		ApifyToken       string          `yaml:"apify_token"`
		ApifyBaseURL     string          `yaml:"apify_base_url"`
		BrightDataAPIKey string          `yaml:"brightdata_api_key"`
		BrightDataURL    string          `yaml:"brightdata_base_url"`
		StartTimeout     time.Duration   `yaml:"start_timeout"`
		PollInterval     time.Duration   `yaml:"poll_interval"`
		PollTimeout      time.Duration   `yaml:"poll_timeout"`
		MaxRetries       int             `yaml:"max_retries"`
		RateLimit        int             `yaml:"rate_limit"` // job starts per minute per provider
		Burst            int             `yaml:"burst"`
		BreakerThreshold int             `yaml:"breaker_threshold"`
		BreakerReset     time.Duration   `yaml:"breaker_reset"`
		Entries          []ProviderEntry `yaml:"entries"`
	} `yaml:"providers"`

	Images struct {
		Enabled  bool          `yaml:"enabled"`
		Timeout  time.Duration `yaml:"timeout"`
		MaxBytes int64         `yaml:"max_bytes"`
	} `yaml:"images"`

	BackgroundTasks struct {
		MaxConcurrentTasks int           `yaml:"max_concurrent_tasks"`
		QueueSize          int           `yaml:"queue_size"`
		TaskTimeout        time.Duration `yaml:"task_timeout"`
		CleanupInterval    time.Duration `yaml:"cleanup_interval"`
		MaxTaskAge         time.Duration `yaml:"max_task_age"`
		Store              string        `yaml:"store"` // memory or redis
	} `yaml:"background_tasks"`

	Callback struct {
		ServerAddress string        `yaml:"server_address"`
		Timeout       time.Duration `yaml:"timeout"`
		MaxRetries    int           `yaml:"max_retries"`
	} `yaml:"callback"`

	Cache struct {
		Enabled bool          `yaml:"enabled"`
		TTL     time.Duration `yaml:"ttl"`
	} `yaml:"cache"`

	Redis struct {
		URL      string        `yaml:"url"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		Timeout  time.Duration `yaml:"timeout"`
	} `yaml:"redis"`

	Logging struct {
		Level    string          `yaml:"level"`
		Format   string          `yaml:"format"`
		Adapters []AdapterConfig `yaml:"adapters"`
	} `yaml:"logging"`
}

var (
	bracedEnvPattern = regexp.MustCompile(`\$\{([^}]+)\}`)
	bareEnvPattern   = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
)

// expandEnvVars expands ${VAR} and $VAR references, leaving unknown variables untouched
func expandEnvVars(s string) string {
	s = bracedEnvPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})

	return bareEnvPattern.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[1:]); val != "" {
			return val
		}
		return match
	})
}

// Default returns a configuration populated with built-in defaults only
func Default() *Config {
	config := &Config{}

	config.Server.Port = 8080
	config.Server.Host = "0.0.0.0"
	config.Server.ReadTimeout = 30 * time.Second
	config.Server.WriteTimeout = 10 * time.Minute
	config.Server.IdleTimeout = 60 * time.Second
	config.Server.RequestTimeout = 6 * time.Minute

	config.GRPC.Enabled = true
	config.GRPC.MaxMessageSize = 16 * 1024 * 1024

	config.Providers.Order = []string{"apify-profile", "apify-scraper", "brightdata-profile"}
	config.Providers.ApifyBaseURL = "https://api.apify.com"
	config.Providers.BrightDataURL = "https://api.brightdata.com"
	config.Providers.StartTimeout = 30 * time.Second
	config.Providers.PollInterval = 2 * time.Second
	config.Providers.PollTimeout = 90 * time.Second
	config.Providers.MaxRetries = 2
	config.Providers.RateLimit = 30
	config.Providers.Burst = 5
	config.Providers.BreakerThreshold = 5
	config.Providers.BreakerReset = 60 * time.Second

	config.Images.Enabled = true
	config.Images.Timeout = 10 * time.Second
	config.Images.MaxBytes = 5 * 1024 * 1024

	config.BackgroundTasks.MaxConcurrentTasks = 10
	config.BackgroundTasks.QueueSize = 100
	config.BackgroundTasks.TaskTimeout = 6 * time.Minute
	config.BackgroundTasks.CleanupInterval = 1 * time.Hour
	config.BackgroundTasks.MaxTaskAge = 24 * time.Hour
	config.BackgroundTasks.Store = "memory"

	config.Callback.Timeout = 30 * time.Second
	config.Callback.MaxRetries = 3

	config.Cache.Enabled = false
	config.Cache.TTL = 6 * time.Hour

	config.Redis.URL = "redis://localhost:6379"
	config.Redis.Timeout = 5 * time.Second

	config.Logging.Level = "info"
	config.Logging.Format = "json"

	return config
}

// LoadConfig loads configuration from file and environment variables.
// A missing file is not an error; defaults and environment still apply.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := Default()

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config %s: %w", configPath, err)
		}
		if err == nil {
			if err := yaml.Unmarshal([]byte(expandEnvVars(string(data))), config); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", configPath, err)
			}
		}
	}

	config.loadFromEnv()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate rejects configurations the pipeline cannot run with
func (c *Config) Validate() error {
	if len(c.Providers.Order) == 0 {
		return fmt.Errorf("providers.order must list at least one provider")
	}
	seen := make(map[string]bool, len(c.Providers.Order))
	for _, id := range c.Providers.Order {
		if id == "" {
			return fmt.Errorf("providers.order contains an empty provider id")
		}
		if seen[id] {
			return fmt.Errorf("providers.order lists %q more than once", id)
		}
		seen[id] = true
	}
	if c.Providers.PollInterval <= 0 {
		return fmt.Errorf("providers.poll_interval must be positive")
	}
	if c.Providers.PollTimeout < c.Providers.PollInterval {
		return fmt.Errorf("providers.poll_timeout (%s) must not be shorter than poll_interval (%s)",
			c.Providers.PollTimeout, c.Providers.PollInterval)
	}
	if c.Providers.MaxRetries < 0 {
		return fmt.Errorf("providers.max_retries must not be negative")
	}
	for i, entry := range c.Providers.Entries {
		if entry.ID == "" {
			return fmt.Errorf("providers.entries[%d] has no id", i)
		}
		switch entry.Kind {
		case "", "apify", "brightdata":
		default:
			return fmt.Errorf("providers.entries[%d] (%s): unknown kind %q", i, entry.ID, entry.Kind)
		}
	}
	if c.Images.Enabled {
		if c.Images.Timeout <= 0 {
			return fmt.Errorf("images.timeout must be positive")
		}
		if c.Images.MaxBytes <= 0 {
			return fmt.Errorf("images.max_bytes must be positive")
		}
	}
	switch c.BackgroundTasks.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("background_tasks.store must be memory or redis, got %q", c.BackgroundTasks.Store)
	}
	return nil
}

// loadFromEnv loads configuration from environment variables
func (c *Config) loadFromEnv() {
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			c.Server.Port = p
		}
	}

	if host := os.Getenv("HOST"); host != "" {
		c.Server.Host = host
	}

	if logLevel := os.Getenv("LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	if logFormat := os.Getenv("LOG_FORMAT"); logFormat != "" {
		c.Logging.Format = logFormat
	}

	if order := os.Getenv("PROVIDER_ORDER"); order != "" {
		c.Providers.Order = splitList(order)
	}

	if token := os.Getenv("APIFY_TOKEN"); token != "" {
		c.Providers.ApifyToken = token
	}

	if baseURL := os.Getenv("APIFY_BASE_URL"); baseURL != "" {
		c.Providers.ApifyBaseURL = baseURL
	}

	if apiKey := os.Getenv("BRIGHTDATA_API_KEY"); apiKey != "" {
		c.Providers.BrightDataAPIKey = apiKey
	}

	if baseURL := os.Getenv("BRIGHTDATA_BASE_URL"); baseURL != "" {
		c.Providers.BrightDataURL = baseURL
	}

	if interval := os.Getenv("PROVIDER_POLL_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			c.Providers.PollInterval = d
		}
	}

	if timeout := os.Getenv("PROVIDER_POLL_TIMEOUT"); timeout != "" {
		if d, err := time.ParseDuration(timeout); err == nil {
			c.Providers.PollTimeout = d
		}
	}

	if rateLimit := os.Getenv("PROVIDER_RATE_LIMIT"); rateLimit != "" {
		if n, err := strconv.Atoi(rateLimit); err == nil {
			c.Providers.RateLimit = n
		}
	}

	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		c.Redis.URL = redisURL
	}

	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		c.Redis.Password = redisPassword
	}

	if redisDB := os.Getenv("REDIS_DB"); redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			c.Redis.DB = db
		}
	}

	if cacheEnabled := os.Getenv("CACHE_ENABLED"); cacheEnabled != "" {
		c.Cache.Enabled = cacheEnabled == "true" || cacheEnabled == "1"
	}

	if store := os.Getenv("TASK_STORE"); store != "" {
		c.BackgroundTasks.Store = store
	}

	if callbackAddr := os.Getenv("CALLBACK_SERVER_ADDRESS"); callbackAddr != "" {
		c.Callback.ServerAddress = callbackAddr
	}

	if grpcEnabled := os.Getenv("GRPC_ENABLED"); grpcEnabled != "" {
		c.GRPC.Enabled = grpcEnabled == "true" || grpcEnabled == "1"
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
