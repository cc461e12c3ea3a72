package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Config holds the synchronization server settings.
type Config struct {
	Port string

	// Credential. Hash takes precedence over Secret.
	Salt   string
	Hash   string
	Secret string

	// Lease is the presenter idle lease; zero disables it.
	Lease time.Duration

	AuthWorkers    int
	AllowedOrigins []string

	NATSURL     string
	NATSSubject string

	LogLevel zerolog.Level

	Values []ValueDecl
}

// ValueDecl declares one replicated value.
type ValueDecl struct {
	Name    string      `yaml:"name"`
	Kind    string      `yaml:"kind"`
	Initial interface{} `yaml:"initial"`
}

// InitialJSON encodes the initial value, or nil when none is declared.
func (d ValueDecl) InitialJSON() (json.RawMessage, error) {
	if d.Initial == nil {
		return nil, nil
	}
	b, err := json.Marshal(d.Initial)
	if err != nil {
		return nil, fmt.Errorf("encode initial value of %q: %w", d.Name, err)
	}
	return b, nil
}

type valuesFile struct {
	Values []ValueDecl `yaml:"values"`
}

// DefaultValues are the values the showcase pages use.
func DefaultValues() []ValueDecl {
	return []ValueDecl{
		{Name: "route", Kind: "string"},
		{Name: "light", Kind: "string", Initial: "a"},
	}
}

// NewConfigFromEnv reads PRESENTER_* environment variables (with defaults).
func NewConfigFromEnv() (Config, error) {
	lease, err := time.ParseDuration(getEnv("PRESENTER_LEASE", "0s"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid PRESENTER_LEASE: %w", err)
	}

	level, err := zerolog.ParseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	cfg := Config{
		Port:           getEnv("PRESENTER_PORT", "3000"),
		Salt:           os.Getenv("PRESENTER_SALT"),
		Hash:           os.Getenv("PRESENTER_HASH"),
		Secret:         os.Getenv("PRESENTER_SECRET"),
		Lease:          lease,
		AuthWorkers:    getEnvAsInt("PRESENTER_AUTH_WORKERS", 4),
		AllowedOrigins: splitList(getEnv("PRESENTER_ALLOWED_ORIGINS", "*")),
		NATSURL:        os.Getenv("NATS_URL"),
		NATSSubject:    getEnv("NATS_SUBJECT", "presenter.events"),
		LogLevel:       level,
		Values:         DefaultValues(),
	}

	if path := os.Getenv("PRESENTER_VALUES_FILE"); path != "" {
		values, err := LoadValues(path)
		if err != nil {
			return Config{}, err
		}
		cfg.Values = values
	}

	return cfg, nil
}

// LoadValues reads value declarations from a YAML file.
func LoadValues(path string) ([]ValueDecl, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read values file: %w", err)
	}

	var f valuesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse values file: %w", err)
	}
	if len(f.Values) == 0 {
		return nil, fmt.Errorf("values file %s declares no values", path)
	}
	return f.Values, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
