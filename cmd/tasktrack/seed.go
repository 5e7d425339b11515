package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"tasktrack/internal/config"
	"tasktrack/internal/server"
	"tasktrack/internal/store"
)

// seedFile is the YAML layout accepted by "tasktrack seed".
type seedFile struct {
	Departments []string   `yaml:"departments"`
	Roles       []string   `yaml:"roles"`
	Statuses    []string   `yaml:"statuses"`
	Users       []seedUser `yaml:"users"`
}

type seedUser struct {
	Username           string `yaml:"username"`
	Password           string `yaml:"password"`
	FirstName          string `yaml:"first_name"`
	LastName           string `yaml:"last_name"`
	Role               string `yaml:"role"`
	Department         string `yaml:"department"`
	MustChangePassword *bool  `yaml:"must_change_password"`
}

type seedResult struct {
	Created map[string]int `json:"created"`
	Skipped map[string]int `json:"skipped"`
}

func newSeedCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create departments, roles, statuses and users from a YAML file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(path) == "" {
				return fmt.Errorf("-f is required")
			}
			seed, err := readSeedFile(path)
			if err != nil {
				return err
			}

			return withStore(cfg, func(st *store.Store) error {
				auth := server.NewAuthService(st, cfg.Auth.SessionTTL.Duration, cfg.Auth.AdminRole)
				result, err := applySeed(cmd.Context(), st, auth, seed)
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(result)
				}
				for _, kind := range []string{"department", "role", "status", "user"} {
					if err := writePlain("%s: %d created, %d existing\n", kind, result.Created[kind], result.Skipped[kind]); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&path, "file", "f", "", "seed YAML file")
	return cmd
}

func readSeedFile(path string) (seedFile, error) {
	var seed seedFile
	data, err := os.ReadFile(path)
	if err != nil {
		return seed, err
	}
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return seed, fmt.Errorf("parse %s: %w", path, err)
	}
	return seed, nil
}

// applySeed creates whatever is missing, matching lookups by name and users
// by username. Existing rows are left untouched.
func applySeed(ctx context.Context, st *store.Store, auth *server.AuthService, seed seedFile) (seedResult, error) {
	result := seedResult{Created: map[string]int{}, Skipped: map[string]int{}}

	lookups := []struct {
		repo  store.Lookups
		names []string
	}{
		{store.Departments(), seed.Departments},
		{store.Roles(), seed.Roles},
		{store.TaskStatuses(), seed.Statuses},
	}
	for _, l := range lookups {
		kind := string(l.repo.Kind)
		for _, name := range l.names {
			existing, err := l.repo.GetByName(ctx, st.DB(), name)
			if err != nil {
				return result, err
			}
			if existing != nil {
				result.Skipped[kind]++
				continue
			}
			if _, err := l.repo.Create(ctx, st.DB(), name); err != nil {
				return result, err
			}
			result.Created[kind]++
		}
	}

	for _, u := range seed.Users {
		existing, err := store.Users{}.GetByUsername(ctx, st.DB(), u.Username)
		if err != nil {
			return result, err
		}
		if existing != nil {
			result.Skipped["user"]++
			continue
		}
		roleID, err := lookupIDByName(ctx, st, store.Roles(), u.Role)
		if err != nil {
			return result, err
		}
		departmentID, err := lookupIDByName(ctx, st, store.Departments(), u.Department)
		if err != nil {
			return result, err
		}
		// Seeded passwords live in a file, so they must be changed unless
		// the file says otherwise.
		mustChange := true
		if u.MustChangePassword != nil {
			mustChange = *u.MustChangePassword
		}
		if _, err := auth.CreateUser(ctx, server.NewUserInput{
			Username:           u.Username,
			Password:           u.Password,
			FirstName:          u.FirstName,
			LastName:           u.LastName,
			DepartmentID:       departmentID,
			RoleID:             roleID,
			MustChangePassword: mustChange,
		}); err != nil {
			return result, fmt.Errorf("seed user %q: %w", u.Username, err)
		}
		result.Created["user"]++
	}
	return result, nil
}
