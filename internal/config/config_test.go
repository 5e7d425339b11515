package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// isolate points config lookups at an empty dir and clears env overrides.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(configDirEnvKey, dir)
	t.Setenv(trustProjectConfigEnvKey, "")
	t.Setenv(dbPathEnvKey, "")
	t.Setenv(listenAddrEnvKey, "")
	t.Setenv(attachmentsRootEnvKey, "")
	return dir
}

func chdir(t *testing.T, dir string) {
	t.Helper()
	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	t.Cleanup(func() {
		_ = os.Chdir(oldWD)
	})
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.ListenAddr != DefaultListenAddr {
		t.Fatalf("expected default listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.DBPath != "" {
		t.Fatalf("expected empty db path, got %q", cfg.DBPath)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.LogLevel)
	}
	if cfg.Attachments.MaxUploadBytes != DefaultAttachmentMaxUploadBytes {
		t.Fatalf("expected attachment max upload default %d, got %d", DefaultAttachmentMaxUploadBytes, cfg.Attachments.MaxUploadBytes)
	}
	if cfg.Attachments.StagingTTL.Duration != 24*time.Hour {
		t.Fatalf("expected staging ttl 24h, got %s", cfg.Attachments.StagingTTL)
	}
	if cfg.Auth.SessionTTL.Duration != time.Hour {
		t.Fatalf("expected session ttl 1h, got %s", cfg.Auth.SessionTTL)
	}
	if cfg.Auth.AdminRole != "Admin" {
		t.Fatalf("expected admin role 'Admin', got %q", cfg.Auth.AdminRole)
	}
	if cfg.Policy.ForeignDepartment != "allow" || cfg.Policy.LookupDelete != "orphan" {
		t.Fatalf("unexpected policy defaults %+v", cfg.Policy)
	}
	if cfg.Tasks.PageSize != 5 {
		t.Fatalf("expected page size 5, got %d", cfg.Tasks.PageSize)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(`listen_addr = "0.0.0.0:9999"
log_level = "warn"

[attachments]
root = "/srv/files"
staging_ttl = "90m"

[auth]
session_ttl = "15m"
secure_cookie = true

[policy]
lookup_delete = "restrict"
`), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:9999" {
		t.Fatalf("expected listen_addr override, got %q", cfg.ListenAddr)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected log_level 'warn', got %q", cfg.LogLevel)
	}
	if cfg.Attachments.Root != "/srv/files" {
		t.Fatalf("expected attachments root, got %q", cfg.Attachments.Root)
	}
	if cfg.Attachments.StagingTTL.Duration != 90*time.Minute {
		t.Fatalf("expected staging ttl 90m, got %s", cfg.Attachments.StagingTTL)
	}
	if cfg.Auth.SessionTTL.Duration != 15*time.Minute || !cfg.Auth.SecureCookie {
		t.Fatalf("unexpected auth config %+v", cfg.Auth)
	}
	if cfg.Policy.LookupDelete != "restrict" {
		t.Fatalf("expected restrict, got %q", cfg.Policy.LookupDelete)
	}
	if cfg.Tasks.PageSize != DefaultPageSize {
		t.Fatalf("expected untouched page size, got %d", cfg.Tasks.PageSize)
	}
}

func TestLoadFileMissing(t *testing.T) {
	cfg := Default()
	if err := loadFile("/nonexistent/path/.tasktrack.toml", &cfg); err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Fatalf("defaults should be preserved")
	}
}

func TestLoadFileInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte("[auth]\nsession_ttl = \"soon\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg := Default()
	if err := loadFile(path, &cfg); err == nil {
		t.Fatal("expected parse error for invalid duration")
	}
}

func TestIsAllowedKey(t *testing.T) {
	for _, key := range []string{
		"listen_addr",
		"db_path",
		"log_level",
		"attachments.root",
		"attachments.staging_ttl",
		"attachments.verify_signature",
		"auth.session_ttl",
		"policy.lookup_delete",
		"tasks.page_size",
	} {
		if !IsAllowedKey(key) {
			t.Fatalf("expected %q to be allowed", key)
		}
	}
	if IsAllowedKey("invalid") {
		t.Fatal("expected 'invalid' to not be allowed")
	}
}

func TestGetKey(t *testing.T) {
	cfg := Default()
	cfg.DBPath = "/tmp/test.db"
	cfg.Attachments.MaxUploadBytes = 123
	cfg.Policy.ForeignDepartment = "reject"
	cfg.Tasks.PageSize = 25

	tests := map[string]string{
		"listen_addr":                  DefaultListenAddr,
		"db_path":                      "/tmp/test.db",
		"attachments.max_upload_bytes": "123",
		"attachments.staging_ttl":      "24h0m0s",
		"attachments.verify_signature": "false",
		"auth.admin_role":              "Admin",
		"policy.foreign_department":    "reject",
		"tasks.page_size":              "25",
	}
	for key, want := range tests {
		got, err := cfg.Get(key)
		if err != nil || got != want {
			t.Fatalf("Get(%q) = %q (err: %v), want %q", key, got, err, want)
		}
	}
	for _, key := range AllowedKeys() {
		if _, err := cfg.Get(key); err != nil {
			t.Fatalf("allowed key %q has no getter: %v", key, err)
		}
	}
	if _, err := cfg.Get("invalid"); err == nil {
		t.Fatal("expected error for invalid key")
	}
}

func TestSetKeyCreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "new.toml")
	if err := SetKey(path, "listen_addr", "127.0.0.1:8000"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:8000" {
		t.Fatalf("expected listen addr, got %q", cfg.ListenAddr)
	}
}

func TestSetKeyUpdatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "existing.toml")
	if err := os.WriteFile(path, []byte("log_level = \"debug\"\ndb_path = \"/keep.db\"\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := SetKey(path, "log_level", "error"); err != nil {
		t.Fatalf("set: %v", err)
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != "error" {
		t.Fatalf("expected 'error', got %q", cfg.LogLevel)
	}
	if cfg.DBPath != "/keep.db" {
		t.Fatalf("expected preserved db_path, got %q", cfg.DBPath)
	}
}

func TestSetNestedKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested.toml")
	for key, value := range map[string]string{
		"attachments.staging_ttl": "2h",
		"auth.secure_cookie":      "true",
		"policy.lookup_delete":    "Cascade",
		"tasks.page_size":         "20",
	} {
		if err := SetKey(path, key, value); err != nil {
			t.Fatalf("set %s: %v", key, err)
		}
	}

	cfg := Default()
	if err := loadFile(path, &cfg); err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Attachments.StagingTTL.Duration != 2*time.Hour {
		t.Fatalf("expected staging ttl 2h, got %s", cfg.Attachments.StagingTTL)
	}
	if !cfg.Auth.SecureCookie {
		t.Fatal("expected secure cookie")
	}
	if cfg.Policy.LookupDelete != "cascade" {
		t.Fatalf("expected normalized cascade, got %q", cfg.Policy.LookupDelete)
	}
	if cfg.Tasks.PageSize != 20 {
		t.Fatalf("expected page size 20, got %d", cfg.Tasks.PageSize)
	}
}

func TestSetKeyRejectsInvalidValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.toml")
	cases := map[string]string{
		"invalid_key":                  "value",
		"tasks.page_size":              "500",
		"auth.session_ttl":             "-1h",
		"auth.secure_cookie":           "maybe",
		"policy.foreign_department":    "sometimes",
		"attachments.max_upload_bytes": "0",
	}
	for key, value := range cases {
		if err := SetKey(path, key, value); err == nil {
			t.Fatalf("expected error for %s=%s", key, value)
		}
	}
}

func TestConfigDirOverridePaths(t *testing.T) {
	dir := isolate(t)

	globalPath, err := GlobalPath()
	if err != nil {
		t.Fatalf("global path: %v", err)
	}
	if globalPath != filepath.Join(dir, FileName) {
		t.Fatalf("unexpected global path: %s", globalPath)
	}

	projectPath, err := ProjectPath()
	if err != nil {
		t.Fatalf("project path: %v", err)
	}
	if projectPath != filepath.Join(dir, FileName) {
		t.Fatalf("unexpected project path: %s", projectPath)
	}
}

func TestLoadResolvesRelativePaths(t *testing.T) {
	isolate(t)
	workspace := t.TempDir()
	chdir(t, workspace)
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DBPath != filepath.Join(wd, DefaultDBFileName) {
		t.Fatalf("expected workspace db path, got %q", cfg.DBPath)
	}
	if cfg.Attachments.Root != filepath.Join(wd, DefaultAttachmentsDirName) {
		t.Fatalf("expected workspace attachments root, got %q", cfg.Attachments.Root)
	}
	if cfg.Attachments.StagingDir != "" {
		t.Fatalf("expected staging dir left to the attachment store, got %q", cfg.Attachments.StagingDir)
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(listenAddrEnvKey, "0.0.0.0:8080")
	t.Setenv(dbPathEnvKey, "/tmp/override.db")
	t.Setenv(attachmentsRootEnvKey, "/tmp/override-files")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:8080" {
		t.Fatalf("expected env override for listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.DBPath != "/tmp/override.db" {
		t.Fatalf("expected env override for DB path, got %q", cfg.DBPath)
	}
	if cfg.Attachments.Root != "/tmp/override-files" {
		t.Fatalf("expected env override for attachments root, got %q", cfg.Attachments.Root)
	}
}

func TestLoadFallsBackToDefaultsWhenConfiguredEmpty(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("log_level = \"\"\n[tasks]\npage_size = 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.LogLevel != DefaultLogLevel {
		t.Fatalf("expected default log level, got %q", cfg.LogLevel)
	}
	if cfg.Tasks.PageSize != DefaultPageSize {
		t.Fatalf("expected default page size, got %d", cfg.Tasks.PageSize)
	}
}

func TestLoadRejectsUnknownPolicy(t *testing.T) {
	dir := isolate(t)
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("[policy]\nlookup_delete = \"explode\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(); err == nil {
		t.Fatal("expected invalid policy to fail load")
	}
}

func TestLoadIgnoresProjectConfigByDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(configDirEnvKey, "")
	t.Setenv(trustProjectConfigEnvKey, "")
	t.Setenv(listenAddrEnvKey, "")

	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, FileName), []byte("listen_addr = \"0.0.0.0:1\"\n"), 0o644); err != nil {
		t.Fatalf("write workspace config: %v", err)
	}
	chdir(t, workspace)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Fatalf("expected project config ignored, got %q", cfg.ListenAddr)
	}
	if cfg.TrustedProjectConfigPath != "" {
		t.Fatalf("expected no trusted project path, got %q", cfg.TrustedProjectConfigPath)
	}
}

func TestLoadAppliesProjectConfigWhenTrusted(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(configDirEnvKey, "")
	t.Setenv(trustProjectConfigEnvKey, "true")
	t.Setenv(listenAddrEnvKey, "")

	if err := os.WriteFile(filepath.Join(home, FileName), []byte("listen_addr = \"0.0.0.0:2\"\nlog_level = \"warn\"\n"), 0o644); err != nil {
		t.Fatalf("write home config: %v", err)
	}
	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, FileName), []byte("listen_addr = \"0.0.0.0:3\"\n"), 0o644); err != nil {
		t.Fatalf("write workspace config: %v", err)
	}
	chdir(t, workspace)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != "0.0.0.0:3" {
		t.Fatalf("expected project override, got %q", cfg.ListenAddr)
	}
	if cfg.LogLevel != "warn" {
		t.Fatalf("expected home value kept, got %q", cfg.LogLevel)
	}
	if cfg.TrustedProjectConfigPath == "" {
		t.Fatal("expected trusted project path recorded")
	}
}

func TestLoadDoesNotTrustProjectConfigOnInvalidEnvValue(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(configDirEnvKey, "")
	t.Setenv(trustProjectConfigEnvKey, "definitely")
	t.Setenv(listenAddrEnvKey, "")

	workspace := t.TempDir()
	if err := os.WriteFile(filepath.Join(workspace, FileName), []byte("listen_addr = \"0.0.0.0:4\"\n"), 0o644); err != nil {
		t.Fatalf("write workspace config: %v", err)
	}
	chdir(t, workspace)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddr != DefaultListenAddr {
		t.Fatalf("expected project config ignored, got %q", cfg.ListenAddr)
	}
}
