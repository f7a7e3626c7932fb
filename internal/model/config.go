package model

import "time"

// Config is the complete testament configuration
type Config struct {
	Template string       `yaml:"template" mapstructure:"template"`
	Stages   StagesConfig `yaml:"stages" mapstructure:"stages"`
	LLM      LLMConfig    `yaml:"llm" mapstructure:"llm"`
	Store    StoreConfig  `yaml:"store" mapstructure:"store"`
	Cache    CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Saver    SaverConfig  `yaml:"saver" mapstructure:"saver"`
	Server   ServerConfig `yaml:"server" mapstructure:"server"`
	Output   OutputConfig `yaml:"output" mapstructure:"output"`
}

// StagesConfig tunes stage completion predicates
type StagesConfig struct {
	// Information stage is considered complete after this many transcript messages
	MessageThreshold int `yaml:"message_threshold" mapstructure:"message_threshold"`

	// Phrases in an assistant reply that signal the information stage is done
	CompletionPhrases []string `yaml:"completion_phrases" mapstructure:"completion_phrases"`

	// Contact roles that must be present and reachable
	RequiredRoles []string `yaml:"required_roles" mapstructure:"required_roles"`
}

// LLMConfig configures the optional conversational model
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (offline)
	Model             string  `yaml:"model" mapstructure:"model"`
	APIKey            string  `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL           string  `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout           int     `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	HTTPProxy         string  `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy        string  `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// StoreConfig selects the persistence backend
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // file, memory, postgres
	Dir    string `yaml:"dir" mapstructure:"dir"`
	DSN    string `yaml:"dsn,omitempty" mapstructure:"dsn"`
}

// CacheConfig configures the model reply cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// SaverConfig configures background persistence
type SaverConfig struct {
	Workers           int           `yaml:"workers" mapstructure:"workers"`
	Interval          time.Duration `yaml:"interval" mapstructure:"interval"`
	MaxRetries        int           `yaml:"max_retries" mapstructure:"max_retries"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr           string `yaml:"addr" mapstructure:"addr"`
	APIKey         string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	MaxUploadBytes int64  `yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`
}

// OutputConfig controls CLI output
type OutputConfig struct {
	Verbose bool   `yaml:"verbose" mapstructure:"verbose"`
	Format  string `yaml:"format" mapstructure:"format"` // text, markdown, html, docx
}

// DefaultCompletionPhrases are assistant phrases that end the information stage
var DefaultCompletionPhrases = []string{
	"i have all the information",
	"we have everything we need",
	"that covers everything",
	"move on to the contacts",
	"move to the next step",
	"ready to proceed to the next stage",
	"information gathering is complete",
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Template: string(TemplateTraditional),
		Stages: StagesConfig{
			MessageThreshold:  12,
			CompletionPhrases: append([]string(nil), DefaultCompletionPhrases...),
			RequiredRoles:     []string{"Executor"},
		},
		LLM: LLMConfig{
			Provider:          "", // Offline by default
			Timeout:           30,
			MaxTokens:         600,
			RequestsPerSecond: 1,
		},
		Store: StoreConfig{
			Driver: "file",
			Dir:    ".testament/wills",
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".testament/cache",
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Saver: SaverConfig{
			Workers:           2,
			Interval:          2 * time.Second,
			MaxRetries:        3,
			RequestsPerSecond: 2,
			Burst:             4,
		},
		Server: ServerConfig{
			Addr:           ":8095",
			MaxUploadBytes: 25 << 20,
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}
