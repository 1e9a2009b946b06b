package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/mkravets/filevault"
	"github.com/mkravets/filevault/auth"
	"github.com/mkravets/filevault/database"
)

var adduserCmd = &cobra.Command{
	Use:   "adduser",
	Short: "Create a user account interactively",
	RunE:  runAddUser,
}

func init() {
	rootCmd.AddCommand(adduserCmd)
}

func runAddUser(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	setupLogging(cmd, cfg.Log.Level)

	db, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer func() { _ = db.Close() }()

	if err := db.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	usernamePrompt := promptui.Prompt{
		Label: "Username",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("username cannot be empty")
			}
			return nil
		},
	}
	username, err := usernamePrompt.Run()
	if err != nil {
		return promptErr(err)
	}

	passwordPrompt := promptui.Prompt{
		Label: "Password",
		Mask:  '*',
		Validate: func(s string) error {
			if s == "" {
				return errors.New("password cannot be empty")
			}
			return nil
		},
	}
	password, err := passwordPrompt.Run()
	if err != nil {
		return promptErr(err)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	user, err := db.Users().Create(ctx, filevault.User{
		Username:     strings.TrimSpace(username),
		PasswordHash: hash,
	})
	if err != nil {
		if errors.Is(err, filevault.ErrConflict) {
			return fmt.Errorf("username %q is already taken", strings.TrimSpace(username))
		}
		return fmt.Errorf("create user: %w", err)
	}

	fmt.Printf("Created user %s (id %d)\n", user.Username, user.ID)
	return nil
}

func promptErr(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return errors.New("cancelled")
	}
	return err
}
