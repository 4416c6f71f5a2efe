package main

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"precisionworks/internal/config"
	"precisionworks/internal/database"
	"precisionworks/internal/domain"
	"precisionworks/internal/util"
)

var (
	username string
	email    string
	password string
	fullName string
)

var rootCmd = &cobra.Command{
	Use:   "create_admin",
	Short: "Create the first administrator account",
	Long: `Create an active administrator with staff access so the triage
board and user management can be reached. Does nothing when the user
already exists.`,
	RunE: runCreateAdmin,
}

func init() {
	rootCmd.Flags().StringVarP(&username, "username", "u", "admin", "admin username")
	rootCmd.Flags().StringVarP(&email, "email", "e", "admin@precisionworks.com", "admin email address")
	rootCmd.Flags().StringVarP(&password, "password", "p", "", "admin password (at least 8 characters)")
	rootCmd.Flags().StringVar(&fullName, "full-name", "System Administrator", "display name")
	_ = rootCmd.MarkFlagRequired("password")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runCreateAdmin(cmd *cobra.Command, args []string) error {
	if _, err := config.Load(); err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := database.Init(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	db := database.GetDB()

	var existing domain.User
	err := db.Where("username = ?", username).First(&existing).Error
	if err == nil {
		fmt.Fprintf(cmd.OutOrStdout(), "User %q already exists\n", username)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	hashed, err := util.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := domain.User{
		Username:       username,
		Email:          email,
		HashedPassword: hashed,
		FullName:       &fullName,
		IsActive:       true,
		IsAdmin:        true,
		IsStaff:        true,
	}
	if err := db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Printf("[AUTH] admin user created: username=%s, id=%d", admin.Username, admin.ID)
	fmt.Fprintf(cmd.OutOrStdout(), "Admin user %q created\n", admin.Username)
	return nil
}
