package core

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jo-hoe/goregister/internal/backend/commands"
	"github.com/jo-hoe/goregister/internal/backend/database"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func clearPGEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PGHOST", "PGPORT", "PGDATABASE", "PGUSER", "PGPASSWORD"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	clearPGEnv(t)
	config, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if config.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", config.Port)
	}
	if config.Database.Type != database.TypeSQLite || config.Database.ConnectionString != "registrations.db" {
		t.Fatalf("unexpected default database: %+v", config.Database)
	}
	if config.Uploads.Directory != "uploads" || config.Uploads.MaxSizeBytes != commands.DefaultMaxImageBytes {
		t.Fatalf("unexpected default uploads: %+v", config.Uploads)
	}
}

func TestLoadConfig_ParsesFile(t *testing.T) {
	clearPGEnv(t)
	path := writeConfig(t, `
port: 9090
logLevel: debug
database:
  type: sqlite
  connectionString: ":memory:"
uploads:
  directory: /tmp/regs
  maxSizeBytes: 1000
thumbnail:
  width: 64
  commands:
    - name: PngConverterCommand
    - name: PixelScaleCommand
      height: 32
`)
	config, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if config.Port != 9090 || config.SlogLevel() != slog.LevelDebug {
		t.Fatalf("unexpected port/log level: %d %v", config.Port, config.SlogLevel())
	}
	if config.Uploads.MaxSizeBytes != 1000 || config.Uploads.Directory != "/tmp/regs" {
		t.Fatalf("unexpected uploads: %+v", config.Uploads)
	}
	cmds := config.ThumbnailCommands()
	if len(cmds) != 2 || cmds[1].Name != "PixelScaleCommand" {
		t.Fatalf("unexpected commands: %+v", cmds)
	}
	if cmds[1].Params["height"] != 32 {
		t.Fatalf("expected inline height param 32, got %v", cmds[1].Params["height"])
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	clearPGEnv(t)
	path := writeConfig(t, "port: [unterminated")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadConfig_RejectsInvalidCommands(t *testing.T) {
	clearPGEnv(t)
	tests := map[string]string{
		"empty name": "thumbnail:\n  commands:\n    - name: \"\"\n",
		"duplicate":  "thumbnail:\n  commands:\n    - name: PngConverterCommand\n    - name: PngConverterCommand\n",
		"unknown":    "thumbnail:\n  commands:\n    - name: SharpenCommand\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := LoadConfig(writeConfig(t, content)); err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestLoadConfig_UnknownCommandListsAvailable(t *testing.T) {
	clearPGEnv(t)
	_, err := LoadConfig(writeConfig(t, "thumbnail:\n  commands:\n    - name: SharpenCommand\n"))
	if err == nil {
		t.Fatalf("expected error for unknown command")
	}
	for _, name := range []string{"SharpenCommand", commands.PngConverterCommandName, commands.PixelScaleCommandName} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("expected %q in error, got %v", name, err)
		}
	}
}

func TestMaxRequestBytes(t *testing.T) {
	config := DefaultConfig()
	config.Uploads.MaxSizeBytes = 5000000
	if got := config.MaxRequestBytes(); got != 5000000+1<<20 {
		t.Fatalf("expected %d, got %d", 5000000+1<<20, got)
	}
}

func TestLoadConfig_RejectsUnknownDatabaseType(t *testing.T) {
	clearPGEnv(t)
	path := writeConfig(t, "database:\n  type: oracle\n")
	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected error for unsupported database type")
	}
}

func TestApplyEnvironment_SelectsPostgres(t *testing.T) {
	config := DefaultConfig()
	env := map[string]string{
		"PGHOST":     "db.internal",
		"PGPORT":     "6543",
		"PGDATABASE": "registrations",
		"PGUSER":     "app",
		"PGPASSWORD": "p@ss word",
	}
	config.ApplyEnvironment(func(key string) string { return env[key] })

	if config.Database.Type != database.TypePostgres {
		t.Fatalf("expected postgres, got %s", config.Database.Type)
	}
	dsn := config.Database.DSN()
	if !strings.HasPrefix(dsn, "postgres://app:") || !strings.Contains(dsn, "@db.internal:6543/registrations?sslmode=disable") {
		t.Fatalf("unexpected dsn: %s", dsn)
	}
	if strings.Contains(dsn, "p@ss word") {
		t.Fatalf("expected password to be escaped in %s", dsn)
	}
}

func TestApplyEnvironment_NoVariablesKeepsConfig(t *testing.T) {
	config := DefaultConfig()
	config.ApplyEnvironment(func(string) string { return "" })
	if config.Database.Type != database.TypeSQLite || config.Database.DSN() != "registrations.db" {
		t.Fatalf("expected sqlite defaults to be kept, got %+v", config.Database)
	}
}

func TestDatabaseDSN_ExplicitPostgresConnectionString(t *testing.T) {
	db := Database{Type: database.TypePostgres, ConnectionString: "postgres://u@h:1/d"}
	if db.DSN() != "postgres://u@h:1/d" {
		t.Fatalf("expected explicit connection string, got %s", db.DSN())
	}
}

func TestThumbnailCommands_Default(t *testing.T) {
	config := DefaultConfig()
	cmds := config.ThumbnailCommands()
	if len(cmds) != 2 {
		t.Fatalf("expected 2 default commands, got %d", len(cmds))
	}
	if cmds[0].Name != commands.PngConverterCommandName || cmds[1].Name != commands.PixelScaleCommandName {
		t.Fatalf("unexpected default pipeline: %+v", cmds)
	}
	if cmds[1].Params["width"] != config.Thumbnail.Width {
		t.Fatalf("expected width %d, got %v", config.Thumbnail.Width, cmds[1].Params["width"])
	}
}
