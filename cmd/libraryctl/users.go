package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/term"

	usermodel "library-backend/internal/domains/user/model"
)

var (
	flagEmail    string
	flagUsername string
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage accounts",
}

var usersCreateAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an administrator account (password is prompted)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := promptNewPassword()
		if err != nil {
			return err
		}

		req := usermodel.CreateUserRequest{
			Email:    flagEmail,
			Username: flagUsername,
			Password: password,
			IsAdmin:  true,
		}
		req.Normalize()
		if err := req.Validate(); err != nil {
			return err
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash password: %w", err)
		}

		id := uuid.New()
		return withDB(cmd.Context(), func(db *sqlx.DB) error {
			_, err := db.ExecContext(cmd.Context(), `
				INSERT INTO users (id, email, username, password_hash, is_admin, token_version, borrowed_books, created_at, updated_at)
				VALUES ($1, $2, $3, $4, TRUE, 0, '{}', NOW(), NOW())
			`, id.String(), req.Email, req.Username, string(hash))

			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == "23505" {
				return fmt.Errorf("%s: %s", usermodel.ErrEmailAlreadyExists.Msg, req.Email)
			}
			if err != nil {
				return fmt.Errorf("insert user: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", req.Email, id)
			return nil
		})
	},
}

func init() {
	usersCreateAdminCmd.Flags().StringVar(&flagEmail, "email", "", "account email")
	usersCreateAdminCmd.Flags().StringVar(&flagUsername, "username", "", "display name")
	_ = usersCreateAdminCmd.MarkFlagRequired("email")
	_ = usersCreateAdminCmd.MarkFlagRequired("username")

	usersCmd.AddCommand(usersCreateAdminCmd)
}

// promptNewPassword reads the password twice with echo disabled.
func promptNewPassword() (string, error) {
	first, err := readPassword("Password: ")
	if err != nil {
		return "", err
	}
	second, err := readPassword("Confirm password: ")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}

func readPassword(prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", errors.New("password prompt needs an interactive terminal")
	}

	fmt.Fprint(os.Stderr, prompt)
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
