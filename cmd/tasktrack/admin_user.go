package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	internalauth "tasktrack/internal/auth"
	"tasktrack/internal/config"
	"tasktrack/internal/server"
	"tasktrack/internal/store"
)

func newAdminUserCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}
	cmd.AddCommand(newAdminUserAddCmd(cfg, jsonOutput))
	cmd.AddCommand(newAdminUserListCmd(cfg, jsonOutput))
	cmd.AddCommand(newAdminUserDeleteCmd(cfg, jsonOutput))
	cmd.AddCommand(newAdminUserResetPasswordCmd(cfg))
	return cmd
}

func newAdminUserAddCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	var (
		passwordStdin bool
		role          string
		department    string
		firstName     string
		lastName      string
		mustChange    bool
	)

	cmd := &cobra.Command{
		Use:   "add <username>",
		Short: "Create one user account",
		Args:  exactArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := readPassword(cmd, passwordStdin)
			if err != nil {
				return err
			}

			return withStore(cfg, func(st *store.Store) error {
				ctx := cmd.Context()
				roleID, err := lookupIDByName(ctx, st, store.Roles(), role)
				if err != nil {
					return err
				}
				departmentID, err := lookupIDByName(ctx, st, store.Departments(), department)
				if err != nil {
					return err
				}

				auth := server.NewAuthService(st, cfg.Auth.SessionTTL.Duration, cfg.Auth.AdminRole)
				created, err := auth.CreateUser(ctx, server.NewUserInput{
					Username:           args[0],
					Password:           password,
					FirstName:          firstName,
					LastName:           lastName,
					DepartmentID:       departmentID,
					RoleID:             roleID,
					MustChangePassword: mustChange,
				})
				if err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(created)
				}
				return writePlain("created user %s (%d)\n", created.Username, created.ID)
			})
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	cmd.Flags().StringVar(&role, "role", "", "role name, e.g. Admin")
	cmd.Flags().StringVar(&department, "department", "", "department name")
	cmd.Flags().StringVar(&firstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&lastName, "last-name", "", "last name")
	cmd.Flags().BoolVar(&mustChange, "must-change-password", false, "require a password change on first sign-in")
	return cmd
}

func newAdminUserListCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List user accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cfg, func(st *store.Store) error {
				users, err := store.Users{}.List(cmd.Context(), st.DB())
				if err != nil {
					return err
				}
				if *jsonOutput {
					return writeJSON(map[string]any{"count": len(users), "users": users})
				}
				if len(users) == 0 {
					return writePlain("no users configured\n")
				}
				if err := writePlain("USERNAME\tNAME\tROLE\tID\n"); err != nil {
					return err
				}
				for _, user := range users {
					role := user.RoleName
					if role == "" {
						role = "-"
					}
					if err := writePlain("%s\t%s\t%s\t%d\n", user.Username, user.ScreenName(), role, user.ID); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}
}

func newAdminUserDeleteCmd(cfg *config.Config, jsonOutput *bool) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <username>",
		Aliases: []string{"rm"},
		Short:   "Delete one user account and its sessions",
		Args:    exactArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}

			return withStore(cfg, func(st *store.Store) error {
				ctx := cmd.Context()
				user, err := store.Users{}.GetByUsername(ctx, st.DB(), username)
				if err != nil {
					return err
				}
				if user == nil {
					return fmt.Errorf("user %q not found", username)
				}
				if err := (store.Users{}).Delete(ctx, st.DB(), user.ID); err != nil {
					return err
				}

				if *jsonOutput {
					return writeJSON(map[string]any{"id": user.ID, "username": user.Username, "deleted": true})
				}
				return writePlain("deleted user %s\n", user.Username)
			})
		},
	}
}

func newAdminUserResetPasswordCmd(cfg *config.Config) *cobra.Command {
	var passwordStdin bool

	cmd := &cobra.Command{
		Use:   "reset-password <username>",
		Short: "Set a temporary password that must be changed at next sign-in",
		Args:  exactArgs(1, "username is required"),
		RunE: func(cmd *cobra.Command, args []string) error {
			username, err := internalauth.NormalizeUsername(args[0])
			if err != nil {
				return err
			}
			password, err := readPassword(cmd, passwordStdin)
			if err != nil {
				return err
			}

			return withStore(cfg, func(st *store.Store) error {
				ctx := cmd.Context()
				user, err := store.Users{}.GetByUsername(ctx, st.DB(), username)
				if err != nil {
					return err
				}
				if user == nil {
					return fmt.Errorf("user %q not found", username)
				}
				auth := server.NewAuthService(st, cfg.Auth.SessionTTL.Duration, cfg.Auth.AdminRole)
				if err := auth.ResetPassword(ctx, user.ID, password); err != nil {
					return err
				}
				return writePlain("reset password for %s; sessions revoked\n", user.Username)
			})
		},
	}

	cmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read password from stdin")
	return cmd
}

func readPassword(cmd *cobra.Command, fromStdin bool) (string, error) {
	if !fromStdin {
		return "", fmt.Errorf("--password-stdin is required")
	}
	raw, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return "", err
	}
	password := strings.TrimRight(string(raw), "\r\n")
	if password == "" {
		return "", fmt.Errorf("password is empty")
	}
	return password, nil
}

// lookupIDByName resolves an optional lookup name. An empty name is nil.
func lookupIDByName(ctx context.Context, st *store.Store, repo store.Lookups, name string) (*int64, error) {
	if strings.TrimSpace(name) == "" {
		return nil, nil
	}
	item, err := repo.GetByName(ctx, st.DB(), name)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%s %q not found", repo.Kind, strings.TrimSpace(name))
	}
	return &item.ID, nil
}
