package core

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/jo-hoe/goregister/internal/backend/commands"
	"github.com/jo-hoe/goregister/internal/backend/commandstructure"
	"github.com/jo-hoe/goregister/internal/backend/database"
)

// CommandConfig represents a generic command configuration
type CommandConfig struct {
	Name   string         `yaml:"name"`
	Params map[string]any `yaml:",inline"`
}

type Database struct {
	Type string `yaml:"type"`
	// ConnectionString is used as is. For postgres it is built from the discrete fields
	// when empty or when any PG* environment variable is set.
	ConnectionString string `yaml:"connectionString"`
	Host             string `yaml:"host"`
	Port             int    `yaml:"port"`
	Name             string `yaml:"name"`
	User             string `yaml:"user"`
	Password         string `yaml:"password"`
	SSLMode          string `yaml:"sslMode"`
}

type Uploads struct {
	Directory    string `yaml:"directory"`
	MaxSizeBytes int64  `yaml:"maxSizeBytes"`
}

type Thumbnail struct {
	Width int `yaml:"width"`
	// Commands replaces the default pipeline (pngconverter, pixelscale to Width).
	Commands []CommandConfig `yaml:"commands"`
}

type ServiceConfig struct {
	Port      int       `yaml:"port"`
	LogLevel  string    `yaml:"logLevel"`
	Database  Database  `yaml:"database"`
	Uploads   Uploads   `yaml:"uploads"`
	Thumbnail Thumbnail `yaml:"thumbnail"`
}

const (
	defaultPort           = 8080
	defaultLogLevel       = "info"
	defaultSQLiteFile     = "registrations.db"
	defaultPostgresPort   = 5432
	defaultSSLMode        = "disable"
	defaultUploadsDir     = "uploads"
	defaultThumbnailWidth = 50
)

// ConfigPath returns $CONFIG_PATH or config.yaml in the working directory.
func ConfigPath() (string, error) {
	if configPath := os.Getenv("CONFIG_PATH"); configPath != "" {
		return configPath, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to resolve working directory: %w", err)
	}
	return filepath.Join(cwd, "config.yaml"), nil
}

// DefaultConfig is used when no configuration file exists.
func DefaultConfig() *ServiceConfig {
	config := &ServiceConfig{}
	applyDefaults(config)
	return config
}

// LoadConfig loads configuration from the specified YAML file. A missing file yields the
// defaults. PG* environment variables are applied on top.
func LoadConfig(configPath string) (*ServiceConfig, error) {
	var config ServiceConfig

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		slog.Info("config file not found, using defaults", "path", configPath)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
		}
	}

	applyDefaults(&config)
	config.ApplyEnvironment(os.Getenv)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func applyDefaults(config *ServiceConfig) {
	if config.Port == 0 {
		config.Port = defaultPort
	}
	if config.LogLevel == "" {
		config.LogLevel = defaultLogLevel
	}
	if config.Database.Type == "" {
		config.Database.Type = database.TypeSQLite
	}
	if config.Database.Type == database.TypeSQLite && config.Database.ConnectionString == "" {
		config.Database.ConnectionString = defaultSQLiteFile
	}
	if config.Database.Port == 0 {
		config.Database.Port = defaultPostgresPort
	}
	if config.Database.SSLMode == "" {
		config.Database.SSLMode = defaultSSLMode
	}
	if config.Uploads.Directory == "" {
		config.Uploads.Directory = defaultUploadsDir
	}
	if config.Uploads.MaxSizeBytes == 0 {
		config.Uploads.MaxSizeBytes = commands.DefaultMaxImageBytes
	}
	if config.Thumbnail.Width == 0 {
		config.Thumbnail.Width = defaultThumbnailWidth
	}
}

// ApplyEnvironment overrides the database section with PGHOST, PGPORT, PGDATABASE,
// PGUSER and PGPASSWORD. Setting any of them selects postgres.
func (config *ServiceConfig) ApplyEnvironment(getenv func(string) string) {
	overridden := false
	set := func(key string, target *string) {
		if value := getenv(key); value != "" {
			*target = value
			overridden = true
		}
	}

	set("PGHOST", &config.Database.Host)
	set("PGDATABASE", &config.Database.Name)
	set("PGUSER", &config.Database.User)
	set("PGPASSWORD", &config.Database.Password)
	if value := getenv("PGPORT"); value != "" {
		if port, err := strconv.Atoi(value); err == nil {
			config.Database.Port = port
			overridden = true
		} else {
			slog.Warn("ignoring invalid PGPORT", "value", value, "error", err)
		}
	}

	if overridden {
		config.Database.Type = database.TypePostgres
		config.Database.ConnectionString = ""
	}
}

// DSN returns the driver connection string for the configured database.
func (d Database) DSN() string {
	if d.Type != database.TypePostgres || d.ConnectionString != "" {
		return d.ConnectionString
	}

	host := d.Host
	if host == "" {
		host = "localhost"
	}
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(host, strconv.Itoa(d.Port)),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": []string{d.SSLMode}}.Encode(),
	}
	if d.User != "" {
		if d.Password != "" {
			u.User = url.UserPassword(d.User, d.Password)
		} else {
			u.User = url.User(d.User)
		}
	}
	return u.String()
}

// SlogLevel maps LogLevel to a slog level; unknown values mean info.
func (config *ServiceConfig) SlogLevel() slog.Level {
	switch strings.ToLower(config.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ThumbnailCommands returns the configured pipeline or the default one.
func (config *ServiceConfig) ThumbnailCommands() []commandstructure.CommandConfig {
	if len(config.Thumbnail.Commands) == 0 {
		return []commandstructure.CommandConfig{
			{Name: commands.PngConverterCommandName, Params: map[string]any{}},
			{Name: commands.PixelScaleCommandName, Params: map[string]any{"width": config.Thumbnail.Width}},
		}
	}

	result := make([]commandstructure.CommandConfig, 0, len(config.Thumbnail.Commands))
	for _, cmd := range config.Thumbnail.Commands {
		result = append(result, commandstructure.CommandConfig{Name: cmd.Name, Params: cmd.Params})
	}
	return result
}

// multipart headers and the text fields of the form
const formOverheadBytes = 1 << 20

// MaxRequestBytes bounds a whole form submission: the largest accepted image plus the
// rest of the form.
func (config *ServiceConfig) MaxRequestBytes() int64 {
	return config.Uploads.MaxSizeBytes + formOverheadBytes
}

func (config *ServiceConfig) Validate() error {
	switch config.Database.Type {
	case database.TypeSQLite, database.TypePostgres:
	default:
		return fmt.Errorf("unsupported database type: %s", config.Database.Type)
	}
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("invalid port: %d", config.Port)
	}
	if config.Uploads.MaxSizeBytes < 0 {
		return fmt.Errorf("uploads.maxSizeBytes must be positive, got %d", config.Uploads.MaxSizeBytes)
	}
	if config.Thumbnail.Width < 0 {
		return fmt.Errorf("thumbnail.width must be positive, got %d", config.Thumbnail.Width)
	}
	if err := validateCommands(config.Thumbnail.Commands); err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}
	return nil
}

// validateCommands ensures all command configurations have required fields
func validateCommands(commands []CommandConfig) error {
	seenNames := make(map[string]bool)

	for i, cmd := range commands {
		if cmd.Name == "" {
			return fmt.Errorf("command at index %d has empty name", i)
		}
		if !commandstructure.DefaultRegistry.IsRegistered(cmd.Name) {
			return fmt.Errorf("unknown command: %s (available: %s)", cmd.Name, strings.Join(commandstructure.DefaultRegistry.GetRegisteredNames(), ", "))
		}
		if seenNames[cmd.Name] {
			return fmt.Errorf("duplicate command name: %s", cmd.Name)
		}
		seenNames[cmd.Name] = true
	}

	return nil
}
