package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/vitrin-cms/server/internal/audit"
	"github.com/vitrin-cms/server/internal/auth"
	"github.com/vitrin-cms/server/internal/config"
	"github.com/vitrin-cms/server/internal/domain/users"
	"github.com/vitrin-cms/server/internal/storage/postgres"
)

var (
	adminUsername      string
	adminEmail         string
	adminRole          string
	adminPasswordStdin bool
)

var adminCmd = &cobra.Command{
	Use:   "admin",
	Short: "Administrative tasks",
}

var adminCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an active user account",
	Long: `Create a user that can sign in immediately, without an invitation.

The password is read from the first line of stdin.

Examples:
  echo "$PASSWORD" | server admin create --username alice --email alice@example.com --password-stdin
  echo "$PASSWORD" | server admin create --username bob --email bob@example.com --role editor --password-stdin`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !adminPasswordStdin {
			return fmt.Errorf("--password-stdin is required")
		}
		password, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}

		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("config error: %w", err)
		}
		logger := config.NewLogger(cfg.Logging)

		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		pool, err := postgres.NewPool(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("database connection failed: %w", err)
		}
		defer pool.Close()
		repo, err := postgres.NewRepository(pool)
		if err != nil {
			return err
		}

		jwt := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, "vitrin")
		svc := users.NewService(repo.Users(), nil, jwt, audit.NewLogger(logger), cfg.Server.BaseURL, logger)

		user, err := svc.CreateActive(ctx, users.CreateInput{
			Username: adminUsername,
			Email:    adminEmail,
			Role:     adminRole,
		}, password)
		if err != nil {
			return fmt.Errorf("create user: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s) with role %s\n", user.Username, user.ID, user.Role)
		return nil
	},
}

func init() {
	adminCreateCmd.Flags().StringVar(&adminUsername, "username", "", "username (required)")
	adminCreateCmd.Flags().StringVar(&adminEmail, "email", "", "email address (required)")
	adminCreateCmd.Flags().StringVar(&adminRole, "role", string(auth.RoleAdmin), "role: admin, editor or viewer")
	adminCreateCmd.Flags().BoolVar(&adminPasswordStdin, "password-stdin", false, "read the password from stdin")
	_ = adminCreateCmd.MarkFlagRequired("username")
	_ = adminCreateCmd.MarkFlagRequired("email")

	adminCmd.AddCommand(adminCreateCmd)
}

func readPassword(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", fmt.Errorf("password is empty")
	}
	return password, nil
}
