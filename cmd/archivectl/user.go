package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mailgallery/backend/internal/auth"
)

func newCreateUserCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "create-user",
		Short: "Register a login account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := openEnv()
			if err != nil {
				return err
			}
			defer rt.Close()

			user, err := auth.NewService(rt.store, rt.store).Register(cmd.Context(), auth.RegisterInput{
				Email:    email,
				Password: password,
			})
			if errors.Is(err, auth.ErrEmailExists) {
				return fmt.Errorf("user %s already exists", email)
			}
			if err != nil {
				return fmt.Errorf("failed to create user: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d)\n", user.Email, user.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "login email address")
	cmd.Flags().StringVar(&password, "password", "", "login password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}
