package main

import (
	"errors"
	"fmt"
	"strings"

	"inquiryflow/internal/domain"
	"inquiryflow/internal/util"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

type staffOptions struct {
	username string
	email    string
	password string
	fullName string
	role     string
}

func createStaffCmd(e *env) *cobra.Command {
	opts := &staffOptions{}
	cmd := &cobra.Command{
		Use:   "create-staff",
		Short: "Create a staff, admin or volunteer account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			user, err := buildStaffUser(opts)
			if err != nil {
				return err
			}
			db := e.app.DB.WithContext(cmd.Context())

			var existing domain.User
			err = db.Where("username = ? OR email = ?", user.Username, user.Email).First(&existing).Error
			if err == nil {
				return fmt.Errorf("an account with username %q or email %q already exists", user.Username, user.Email)
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}

			if err := db.Create(user).Error; err != nil {
				return fmt.Errorf("failed to create account: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s account %q\n", user.Role, user.Username)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.username, "username", "u", "", "Login name (required)")
	cmd.Flags().StringVarP(&opts.email, "email", "e", "", "Email address (required)")
	cmd.Flags().StringVarP(&opts.password, "password", "p", "", "Initial password (required)")
	cmd.Flags().StringVar(&opts.fullName, "full-name", "", "Display name")
	cmd.Flags().StringVar(&opts.role, "role", string(domain.RoleStaff), "staff, admin or volunteer")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

// buildStaffUser validates the options and hashes the password
func buildStaffUser(opts *staffOptions) (*domain.User, error) {
	username := strings.TrimSpace(opts.username)
	email := strings.ToLower(strings.TrimSpace(opts.email))
	if username == "" || email == "" {
		return nil, errors.New("username and email are required")
	}
	if len(opts.password) < 8 {
		return nil, errors.New("password must be at least 8 characters")
	}

	role := domain.Role(opts.role)
	user := &domain.User{Username: username, Email: email, Role: role, IsActive: true}
	switch role {
	case domain.RoleAdmin:
		user.IsAdmin = true
		user.IsStaff = true
	case domain.RoleStaff:
		user.IsStaff = true
	case domain.RoleVolunteer:
	default:
		return nil, fmt.Errorf("unknown role %q", opts.role)
	}
	if name := strings.TrimSpace(opts.fullName); name != "" {
		user.FullName = &name
	}

	hashed, err := util.HashPassword(opts.password)
	if err != nil {
		return nil, err
	}
	user.HashedPassword = hashed
	return user, nil
}
