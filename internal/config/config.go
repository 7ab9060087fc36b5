package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type ImageProvider string

const (
	ImageStability ImageProvider = "stability"
	ImageOpenAI    ImageProvider = "openai"
	ImageNone      ImageProvider = "none"
)

type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Population and scheduling
	TargetRatio   float64       `env:"TARGET_RATIO" envDefault:"1.5"`
	SeedBatchSize int           `env:"SEED_BATCH_SIZE" envDefault:"5"`
	CycleInterval time.Duration `env:"CYCLE_INTERVAL" envDefault:"45s"`

	// Activity windows
	ProfilePosts      int `env:"PROFILE_POSTS" envDefault:"5"`
	ProfileReplies    int `env:"PROFILE_REPLIES" envDefault:"3"`
	ProfileLikes      int `env:"PROFILE_LIKES" envDefault:"3"`
	RecentPostsWindow int `env:"RECENT_POSTS_WINDOW" envDefault:"10"`
	RecentActiveLimit int `env:"RECENT_ACTIVE_LIMIT" envDefault:"10"`
	AuthorPoolSize    int `env:"AUTHOR_POOL_SIZE" envDefault:"5"`

	// Keyword extraction
	KeywordsURL      string `env:"KEYWORDS_URL" envDefault:"https://portal.ayfie.com/api/keyword"`
	KeywordsAPIKey   string `env:"AYFIE_API_KEY"`
	KeywordsTopN     int    `env:"KEYWORDS_TOP_N" envDefault:"5"`
	KeywordsNgramMin int    `env:"KEYWORDS_NGRAM_MIN" envDefault:"1"`
	KeywordsNgramMax int    `env:"KEYWORDS_NGRAM_MAX" envDefault:"1"`

	// Probabilities
	ProfileImageProb      float64 `env:"PROFILE_IMAGE_PROB" envDefault:"0.6"`
	BackgroundImageProb   float64 `env:"BACKGROUND_IMAGE_PROB" envDefault:"0.15"`
	BadgeProb             float64 `env:"BADGE_PROB" envDefault:"0.2"`
	PostImageProb         float64 `env:"POST_IMAGE_PROB" envDefault:"0.25"`
	PartitionCollapseProb float64 `env:"PARTITION_COLLAPSE_PROB" envDefault:"0.5"`

	// Transport
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"60s"`
	HTTPMaxRetries int           `env:"HTTP_MAX_RETRIES" envDefault:"3"`

	// LLM settings
	LLMProvider       LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey      string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string      `env:"OPENAI_BASE_URL"`
	OpenAIModel       string      `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	OpenAIVisionModel string      `env:"OPENAI_VISION_MODEL" envDefault:"gpt-4o-mini"`
	YandexOAuthToken  string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID    string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Image generation and publishing
	ImageProvider   ImageProvider `env:"IMAGE_PROVIDER" envDefault:"stability"`
	StabilityAPIKey string        `env:"SD_API_KEY"`
	StabilityURL    string        `env:"STABILITY_URL" envDefault:"https://api.stability.ai/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image"`
	ImageDir        string        `env:"IMAGE_DIR" envDefault:"data/images"`
	ImageBaseURL    string        `env:"IMAGE_BASE_URL" envDefault:"http://localhost:9090/images"`
	ImageMaxSide    int           `env:"IMAGE_MAX_SIDE" envDefault:"1024"`
	ImageModel      string        `env:"OPENAI_IMAGE_MODEL" envDefault:"dall-e-3"`

	// Storage
	StoreDriver     string `env:"STORE_DRIVER" envDefault:"sqlite"`
	DatabaseURL     string `env:"DATABASE_URL" envDefault:"file:data/synthpop.db"`
	StoreInitSchema bool   `env:"STORE_INIT_SCHEMA" envDefault:"true"`
	RedisURL        string `env:"REDIS_URL"`
	JournalPath     string `env:"JOURNAL_PATH" envDefault:"logs/journal.jsonl"`

	// Prompts
	PromptsPath string `env:"PROMPTS_PATH"`

	// Operator surfaces
	AdminAddr        string `env:"ADMIN_ADDR" envDefault:":9090"`
	TelegramBotToken string `env:"TELEGRAM_BOT_TOKEN"`
	AdminChatID      int64  `env:"ADMIN_CHAT_ID"`
	ReportCron       string `env:"REPORT_CRON" envDefault:"0 21 * * *"`
}

// LoadEnv reads .env files into the process environment when present.
func LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// New parses the environment and validates the result.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.TargetRatio <= 0 {
		errs = append(errs, fmt.Errorf("TARGET_RATIO must be positive, got %v", c.TargetRatio))
	}
	counts := []struct {
		name string
		v    int
	}{
		{"SEED_BATCH_SIZE", c.SeedBatchSize},
		{"RECENT_POSTS_WINDOW", c.RecentPostsWindow},
		{"RECENT_ACTIVE_LIMIT", c.RecentActiveLimit},
		{"AUTHOR_POOL_SIZE", c.AuthorPoolSize},
		{"KEYWORDS_TOP_N", c.KeywordsTopN},
		{"KEYWORDS_NGRAM_MIN", c.KeywordsNgramMin},
		{"PROFILE_POSTS", c.ProfilePosts},
		{"PROFILE_REPLIES", c.ProfileReplies},
		{"PROFILE_LIKES", c.ProfileLikes},
	}
	for _, n := range counts {
		if n.v <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", n.name, n.v))
		}
	}
	if c.KeywordsNgramMax < c.KeywordsNgramMin {
		errs = append(errs, fmt.Errorf("KEYWORDS_NGRAM_MAX %d is below KEYWORDS_NGRAM_MIN %d", c.KeywordsNgramMax, c.KeywordsNgramMin))
	}
	if c.CycleInterval < 0 {
		errs = append(errs, fmt.Errorf("CYCLE_INTERVAL must not be negative, got %s", c.CycleInterval))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", c.RequestTimeout))
	}
	probs := []struct {
		name string
		v    float64
	}{
		{"PROFILE_IMAGE_PROB", c.ProfileImageProb},
		{"BACKGROUND_IMAGE_PROB", c.BackgroundImageProb},
		{"BADGE_PROB", c.BadgeProb},
		{"POST_IMAGE_PROB", c.PostImageProb},
		{"PARTITION_COLLAPSE_PROB", c.PartitionCollapseProb},
	}
	for _, p := range probs {
		if p.v < 0 || p.v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0,1], got %v", p.name, p.v))
		}
	}
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderYandex:
	default:
		errs = append(errs, fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider))
	}
	switch c.ImageProvider {
	case ImageStability, ImageOpenAI, ImageNone:
	default:
		errs = append(errs, fmt.Errorf("unknown IMAGE_PROVIDER %q", c.ImageProvider))
	}
	switch c.StoreDriver {
	case "memory", "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	return errors.Join(errs...)
}
