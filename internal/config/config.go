package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultListenAddr = "127.0.0.1:7380"
	DefaultDBFileName = ".tasktrack.db"
	DefaultLogLevel   = "info"
	FileName          = ".tasktrack.toml"

	DefaultAttachmentsDirName                = "attachments"
	DefaultAttachmentMaxUploadBytes    int64 = 20 * 1024 * 1024
	DefaultAttachmentMultipartMemory   int64 = 8 * 1024 * 1024
	DefaultAttachmentStagingTTL              = 24 * time.Hour
	DefaultAttachmentSweepSchedule           = "@every 1h"
	DefaultSessionTTL                        = time.Hour
	DefaultAdminRole                         = "Admin"
	DefaultForeignDepartment                 = "allow"
	DefaultLookupDelete                      = "orphan"
	DefaultPageSize                          = 5
	MaxPageSize                              = 100

	configDirEnvKey          = "TASKTRACK_CONFIG_DIR"
	trustProjectConfigEnvKey = "TASKTRACK_TRUST_PROJECT_CONFIG"
	dbPathEnvKey             = "TASKTRACK_DB"
	listenAddrEnvKey         = "TASKTRACK_LISTEN_ADDR"
	attachmentsRootEnvKey    = "TASKTRACK_ATTACHMENTS_ROOT"
)

// AttachmentConfig defines where uploads are staged and kept.
type AttachmentConfig struct {
	Root               string   `toml:"root"`
	StagingDir         string   `toml:"staging_dir"`
	MaxUploadBytes     int64    `toml:"max_upload_bytes"`
	MultipartMaxMemory int64    `toml:"multipart_max_memory"`
	StagingTTL         Duration `toml:"staging_ttl"`
	SweepSchedule      string   `toml:"sweep_schedule"`
	VerifySignature    bool     `toml:"verify_signature"`
}

// AuthConfig defines session and role settings.
type AuthConfig struct {
	SessionTTL   Duration `toml:"session_ttl"`
	AdminRole    string   `toml:"admin_role"`
	SecureCookie bool     `toml:"secure_cookie"`
}

// PolicyConfig holds the department and lookup deletion rules.
type PolicyConfig struct {
	ForeignDepartment string `toml:"foreign_department"`
	LookupDelete      string `toml:"lookup_delete"`
}

// TasksConfig holds task listing settings.
type TasksConfig struct {
	PageSize int `toml:"page_size"`
}

// Config defines runtime configuration for tasktrack.
type Config struct {
	ListenAddr               string           `toml:"listen_addr"`
	DBPath                   string           `toml:"db_path"`
	LogLevel                 string           `toml:"log_level"`
	Attachments              AttachmentConfig `toml:"attachments"`
	Auth                     AuthConfig       `toml:"auth"`
	Policy                   PolicyConfig     `toml:"policy"`
	Tasks                    TasksConfig      `toml:"tasks"`
	TrustedProjectConfigPath string           `toml:"-"`
}

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns default configuration values.
func Default() Config {
	return Config{
		ListenAddr: DefaultListenAddr,
		LogLevel:   DefaultLogLevel,
		Attachments: AttachmentConfig{
			MaxUploadBytes:     DefaultAttachmentMaxUploadBytes,
			MultipartMaxMemory: DefaultAttachmentMultipartMemory,
			StagingTTL:         Duration{DefaultAttachmentStagingTTL},
			SweepSchedule:      DefaultAttachmentSweepSchedule,
		},
		Auth: AuthConfig{
			SessionTTL: Duration{DefaultSessionTTL},
			AdminRole:  DefaultAdminRole,
		},
		Policy: PolicyConfig{
			ForeignDepartment: DefaultForeignDepartment,
			LookupDelete:      DefaultLookupDelete,
		},
		Tasks: TasksConfig{PageSize: DefaultPageSize},
	}
}

// loadFile decodes path over cfg. A missing file or a directory is skipped.
func loadFile(path string, cfg *Config) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil
	case err != nil:
		return err
	case info.IsDir():
		return nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

// sources lists the config files Load reads, lowest precedence first, and
// which of them is a trusted project file.
func sources() (paths []string, project string) {
	if dir := strings.TrimSpace(os.Getenv(configDirEnvKey)); dir != "" {
		return []string{filepath.Join(dir, FileName)}, ""
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, FileName))
	}
	if trusted, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv(trustProjectConfigEnvKey))); trusted {
		if cwd, err := os.Getwd(); err == nil {
			project = filepath.Join(cwd, FileName)
			paths = append(paths, project)
		}
	}
	return paths, project
}

// GlobalPath returns the config file written by "config set".
func GlobalPath() (string, error) {
	return configPath(os.UserHomeDir)
}

// ProjectPath returns the config file written by "config set --project".
func ProjectPath() (string, error) {
	return configPath(os.Getwd)
}

func configPath(base func() (string, error)) (string, error) {
	if dir := strings.TrimSpace(os.Getenv(configDirEnvKey)); dir != "" {
		return filepath.Join(dir, FileName), nil
	}
	dir, err := base()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load layers the home config, the project config when
// TASKTRACK_TRUST_PROJECT_CONFIG is set, and env overrides over Default.
func Load() (*Config, error) {
	cfg := Default()

	paths, project := sources()
	for _, path := range paths {
		if err := loadFile(path, &cfg); err != nil {
			return nil, err
		}
		if path == project {
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				cfg.TrustedProjectConfigPath = path
			}
		}
	}

	for env, dst := range map[string]*string{
		listenAddrEnvKey:      &cfg.ListenAddr,
		dbPathEnvKey:          &cfg.DBPath,
		attachmentsRootEnvKey: &cfg.Attachments.Root,
	} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			*dst = v
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// normalize fills empty values with defaults and resolves paths against cwd.
func (c *Config) normalize() error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	def := Default()

	fillString(&c.ListenAddr, def.ListenAddr)
	fillString(&c.LogLevel, def.LogLevel)
	fillString(&c.DBPath, DefaultDBFileName)
	fillString(&c.Attachments.Root, DefaultAttachmentsDirName)
	fillString(&c.Attachments.SweepSchedule, def.Attachments.SweepSchedule)
	fillString(&c.Auth.AdminRole, def.Auth.AdminRole)
	fillString(&c.Policy.ForeignDepartment, def.Policy.ForeignDepartment)
	fillString(&c.Policy.LookupDelete, def.Policy.LookupDelete)

	c.DBPath = absFrom(cwd, c.DBPath)
	c.Attachments.Root = absFrom(cwd, c.Attachments.Root)
	if c.Attachments.StagingDir != "" {
		c.Attachments.StagingDir = absFrom(cwd, c.Attachments.StagingDir)
	}

	if c.Attachments.MaxUploadBytes <= 0 {
		c.Attachments.MaxUploadBytes = def.Attachments.MaxUploadBytes
	}
	if c.Attachments.MultipartMaxMemory <= 0 {
		c.Attachments.MultipartMaxMemory = def.Attachments.MultipartMaxMemory
	}
	if c.Attachments.StagingTTL.Duration <= 0 {
		c.Attachments.StagingTTL = def.Attachments.StagingTTL
	}
	if c.Auth.SessionTTL.Duration <= 0 {
		c.Auth.SessionTTL = def.Auth.SessionTTL
	}
	c.Tasks.PageSize = min(max(c.Tasks.PageSize, 0), MaxPageSize)
	if c.Tasks.PageSize == 0 {
		c.Tasks.PageSize = def.Tasks.PageSize
	}

	if c.Policy.ForeignDepartment, err = oneOf(c.Policy.ForeignDepartment, foreignDepartmentModes); err != nil {
		return fmt.Errorf("policy.foreign_department %w", err)
	}
	if c.Policy.LookupDelete, err = oneOf(c.Policy.LookupDelete, lookupDeleteModes); err != nil {
		return fmt.Errorf("policy.lookup_delete %w", err)
	}
	return nil
}

func fillString(dst *string, fallback string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = fallback
	}
}

func absFrom(base, path string) string {
	if filepath.IsAbs(path) {
		return filepath.Clean(path)
	}
	return filepath.Join(base, path)
}
