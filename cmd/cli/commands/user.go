package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"restaurant-booking-be/internal/dto"
	"restaurant-booking-be/internal/pkg/logger"
	"restaurant-booking-be/internal/repository/unitofwork"
	"restaurant-booking-be/internal/service"
	"restaurant-booking-be/pkg/database"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	userFullName string
	userEmail    string
	userPassword string
)

var UserCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage local accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Register an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := authService()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		res, err := auth.Register(ctx, &dto.RegisterRequest{
			FullName: userFullName,
			Email:    userEmail,
			Password: userPassword,
		})
		if errors.Is(err, service.ErrEmailTaken) {
			color.Yellow("%s is already registered", userEmail)
			return nil
		}
		if err != nil {
			return err
		}
		color.Green("Created %s (%s)", res.Email, res.Id)
		return nil
	},
}

var userTokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Log in and print a bearer token",
	RunE: func(cmd *cobra.Command, args []string) error {
		auth, err := authService()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		res, err := auth.Login(ctx, &dto.LoginRequest{Email: userEmail, Password: userPassword})
		if err != nil {
			return err
		}
		fmt.Println(res.AccessToken)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{userCreateCmd, userTokenCmd} {
		c.Flags().StringVar(&userEmail, "email", "", "account email")
		c.Flags().StringVar(&userPassword, "password", "", "account password")
		_ = c.MarkFlagRequired("email")
		_ = c.MarkFlagRequired("password")
	}
	userCreateCmd.Flags().StringVar(&userFullName, "name", "", "full name")
	_ = userCreateCmd.MarkFlagRequired("name")

	UserCmd.AddCommand(userCreateCmd)
	UserCmd.AddCommand(userTokenCmd)
}

func authService() (service.IAuthService, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.App.JwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	db, err := database.NewGormDBFromDSN(cfg.Database.Connection)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return service.NewAuthService(unitofwork.NewRepositoryFactory(db), cfg.App.JwtSecret, logger.NewNopLogger()), nil
}
