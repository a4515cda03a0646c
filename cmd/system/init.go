package system

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Alijeyrad/destek_backend/config"
	"github.com/Alijeyrad/destek_backend/internal/model"
	"github.com/Alijeyrad/destek_backend/internal/repo/gormrepo"
	"github.com/Alijeyrad/destek_backend/internal/service/audit"
	"github.com/Alijeyrad/destek_backend/internal/service/notification"
	"github.com/Alijeyrad/destek_backend/internal/service/user"
	"github.com/Alijeyrad/destek_backend/pkg/constants"
	"github.com/Alijeyrad/destek_backend/pkg/database"
	"github.com/Alijeyrad/destek_backend/pkg/dispatch"
	"github.com/Alijeyrad/destek_backend/pkg/email"
	"github.com/Alijeyrad/destek_backend/pkg/util/password"
)

func NewInitCommand() *cobra.Command {
	var (
		adminEmail string
		adminName  string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the databases and optionally the first administrator",
		Long: `Create the application and casbin databases when they are missing.

With --admin-email an administrator account is provisioned after the
databases exist. Run "system migrate" in between on a fresh install. The
generated password is printed once and, when mail is configured, sent to
the new administrator.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			fmt.Println("Initializing databases...")
			if err := database.InitializeDatabases(cfg); err != nil {
				return fmt.Errorf("failed to initialize databases: %w", err)
			}
			fmt.Println("Databases initialized successfully.")

			if adminEmail == "" {
				return nil
			}
			return provisionAdmin(cmd.Context(), cfg, adminEmail, adminName)
		},
	}

	cmd.Flags().StringVar(&adminEmail, "admin-email", "", "Provision an administrator with this email")
	cmd.Flags().StringVar(&adminName, "admin-name", "Yonetim", "First name of the provisioned administrator")

	return cmd
}

func provisionAdmin(ctx context.Context, cfg *config.Config, addr, name string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(cfg.Server.TimeoutSeconds)*time.Second)
	defer cancel()

	db, err := database.NewGorm(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close(db)

	mail, err := email.NewFromCentral(cfg.Email)
	if err != nil {
		return fmt.Errorf("failed to create mail client: %w", err)
	}

	// No worker pool here: side effects run before the command exits.
	client := gormrepo.NewClient(db)
	notify := notification.New(notification.Deps{
		DB:       client,
		Dispatch: dispatch.Inline{},
		Mail:     mail,
	})
	users := user.New(
		client,
		password.NewHasher(password.FromCentralConfig(cfg.Password)),
		audit.New(client, dispatch.Inline{}),
		notify,
		user.Config{
			AppName:        constants.AppName,
			PhoneRegion:    cfg.Tickets.PhoneRegion,
			PasswordLength: cfg.Authentication.DefaultPasswordLength,
		},
	)

	res, err := users.Provision(ctx, model.System, user.ProvisionRequest{
		Email:     addr,
		FirstName: name,
		Role:      string(model.RoleAdmin),
	})
	if errors.Is(err, user.ErrEmailAlreadyExists) {
		fmt.Printf("Administrator %s already exists.\n", addr)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to provision administrator: %w", err)
	}

	fmt.Printf("Administrator %s created with password: %s\n", res.Profile.Email, res.Password)
	return nil
}
