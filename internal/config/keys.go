package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

var (
	foreignDepartmentModes = []string{"allow", "reject"}
	lookupDeleteModes      = []string{"orphan", "restrict", "cascade"}
)

// key binds a dotted TOML path to its getter and the parser used by SetKey.
type key struct {
	name  string
	get   func(*Config) string
	parse func(string) (any, error)
}

var keys = []key{
	{"listen_addr", func(c *Config) string { return c.ListenAddr }, asString},
	{"db_path", func(c *Config) string { return c.DBPath }, asString},
	{"log_level", func(c *Config) string { return c.LogLevel }, asString},
	{"attachments.root", func(c *Config) string { return c.Attachments.Root }, asString},
	{"attachments.staging_dir", func(c *Config) string { return c.Attachments.StagingDir }, asString},
	{"attachments.max_upload_bytes", func(c *Config) string { return strconv.FormatInt(c.Attachments.MaxUploadBytes, 10) }, asPositiveInt64},
	{"attachments.multipart_max_memory", func(c *Config) string { return strconv.FormatInt(c.Attachments.MultipartMaxMemory, 10) }, asPositiveInt64},
	{"attachments.staging_ttl", func(c *Config) string { return c.Attachments.StagingTTL.String() }, asDuration},
	{"attachments.sweep_schedule", func(c *Config) string { return c.Attachments.SweepSchedule }, asString},
	{"attachments.verify_signature", func(c *Config) string { return strconv.FormatBool(c.Attachments.VerifySignature) }, asBool},
	{"auth.session_ttl", func(c *Config) string { return c.Auth.SessionTTL.String() }, asDuration},
	{"auth.admin_role", func(c *Config) string { return c.Auth.AdminRole }, asString},
	{"auth.secure_cookie", func(c *Config) string { return strconv.FormatBool(c.Auth.SecureCookie) }, asBool},
	{"policy.foreign_department", func(c *Config) string { return c.Policy.ForeignDepartment }, asChoice(foreignDepartmentModes)},
	{"policy.lookup_delete", func(c *Config) string { return c.Policy.LookupDelete }, asChoice(lookupDeleteModes)},
	{"tasks.page_size", func(c *Config) string { return strconv.Itoa(c.Tasks.PageSize) }, asPageSize},
}

func findKey(name string) (key, bool) {
	i := slices.IndexFunc(keys, func(k key) bool { return k.name == name })
	if i < 0 {
		return key{}, false
	}
	return keys[i], true
}

// AllowedKeys lists every key accepted by Get and SetKey.
func AllowedKeys() []string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.name
	}
	return names
}

func IsAllowedKey(name string) bool {
	_, ok := findKey(name)
	return ok
}

// Get returns the effective value of key as text.
func (c *Config) Get(name string) (string, error) {
	k, ok := findKey(name)
	if !ok {
		return "", fmt.Errorf("unknown key: %s", name)
	}
	return k.get(c), nil
}

// SetKey validates value for key and writes it into the TOML file at path,
// keeping every other setting in the file.
func SetKey(path, name, value string) error {
	k, ok := findKey(name)
	if !ok {
		return fmt.Errorf("unknown key: %s", name)
	}
	parsed, err := k.parse(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("%s %w", name, err)
	}

	doc := map[string]any{}
	if _, err := toml.DecodeFile(path, &doc); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	table := doc
	parts := strings.Split(name, ".")
	for _, part := range parts[:len(parts)-1] {
		switch child := table[part].(type) {
		case nil:
			next := map[string]any{}
			table[part] = next
			table = next
		case map[string]any:
			table = child
		default:
			return fmt.Errorf("cannot set %q: %s is not a table", name, part)
		}
	}
	table[parts[len(parts)-1]] = parsed

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := toml.NewEncoder(f).Encode(doc); err != nil {
		return errors.Join(err, f.Close())
	}
	return f.Close()
}

func asString(v string) (any, error) { return v, nil }

func asPositiveInt64(v string) (any, error) {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return nil, errors.New("must be a positive integer")
	}
	return n, nil
}

func asPageSize(v string) (any, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > MaxPageSize {
		return nil, fmt.Errorf("must be an integer between 1 and %d", MaxPageSize)
	}
	return n, nil
}

func asBool(v string) (any, error) {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, errors.New("must be true or false")
	}
	return b, nil
}

func asDuration(v string) (any, error) {
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return nil, errors.New("must be a positive duration like 30m or 24h")
	}
	return d.String(), nil
}

func asChoice(allowed []string) func(string) (any, error) {
	return func(v string) (any, error) {
		return oneOf(v, allowed)
	}
}

// oneOf lowercases v and checks it against allowed.
func oneOf(v string, allowed []string) (string, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	if slices.Contains(allowed, v) {
		return v, nil
	}
	return "", fmt.Errorf("must be one of: %s", strings.Join(allowed, ", "))
}
