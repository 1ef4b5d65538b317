package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, expected sqlite", cfg.Database.Driver)
	}
	if cfg.Invitation.TTLHours != 168 {
		t.Errorf("Invitation.TTLHours = %d, expected 168 (7 days)", cfg.Invitation.TTLHours)
	}
	if cfg.Redis.Enabled {
		t.Error("Redis should be disabled by default")
	}
	if cfg.Calendar.Country != "US" {
		t.Errorf("Calendar.Country = %q, expected US", cfg.Calendar.Country)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, expected 8080", cfg.Server.Port)
	}
	if GlobalConfig != cfg {
		t.Error("Load should set GlobalConfig")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  port: \"9090\"\ninvitation:\n  ttl_hours: 24\n"
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("Server.Port = %q, expected 9090", cfg.Server.Port)
	}
	if cfg.Invitation.TTLHours != 24 {
		t.Errorf("Invitation.TTLHours = %d, expected 24", cfg.Invitation.TTLHours)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("Database.Driver = %q, default should survive", cfg.Database.Driver)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("server: [unclosed"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error for invalid yaml")
	}
}

func TestOverrideFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "postgres")
	t.Setenv("DB_DSN", "host=db user=md")
	t.Setenv("INVITATION_TTL_HOURS", "48")
	t.Setenv("CALENDAR_COUNTRY", "gb")
	t.Setenv("LDAP_ENABLED", "true")

	cfg := DefaultConfig()
	cfg.overrideFromEnv()

	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver = %q", cfg.Database.Driver)
	}
	if cfg.Database.DSN != "host=db user=md" {
		t.Errorf("Database.DSN = %q", cfg.Database.DSN)
	}
	if cfg.Invitation.TTLHours != 48 {
		t.Errorf("Invitation.TTLHours = %d", cfg.Invitation.TTLHours)
	}
	if cfg.Calendar.Country != "GB" {
		t.Errorf("Calendar.Country = %q", cfg.Calendar.Country)
	}
	if !cfg.LDAP.Enabled {
		t.Error("LDAP should be enabled from env")
	}
}

func TestOverrideFromEnv_IgnoresInvalidTTL(t *testing.T) {
	t.Setenv("INVITATION_TTL_HOURS", "-3")

	cfg := DefaultConfig()
	cfg.overrideFromEnv()

	if cfg.Invitation.TTLHours != 168 {
		t.Errorf("invalid TTL should be ignored, got %d", cfg.Invitation.TTLHours)
	}
}

func TestParseRedisURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		addr     string
		password string
		db       int
	}{
		{"host only", "redis://localhost:6379", "localhost:6379", "", 0},
		{"with password and db", "redis://:s3cret@cache:6380/2", "cache:6380", "s3cret", 2},
		{"user and password", "redis://user:pw@cache:6379/0", "cache:6379", "pw", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Redis.Password = ""
			cfg.parseRedisURL(tt.url)
			if cfg.Redis.Addr != tt.addr {
				t.Errorf("Addr = %q, expected %q", cfg.Redis.Addr, tt.addr)
			}
			if cfg.Redis.Password != tt.password {
				t.Errorf("Password = %q, expected %q", cfg.Redis.Password, tt.password)
			}
			if cfg.Redis.DB != tt.db {
				t.Errorf("DB = %d, expected %d", cfg.Redis.DB, tt.db)
			}
		})
	}
}

func TestSave_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultConfig()
	cfg.Server.Port = "7070"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Server.Port != "7070" {
		t.Errorf("Server.Port = %q after round trip", loaded.Server.Port)
	}
}
