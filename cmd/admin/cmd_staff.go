package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/woreda-portal/compliance-service/internal/repository"
	"github.com/woreda-portal/compliance-service/internal/service"
)

var staffCreateInput service.CreateUserInput

// staffCmd groups staff account commands.
var staffCmd = &cobra.Command{
	Use:   "staff",
	Short: "Manage staff accounts",
}

// staffCreateCmd bootstraps an account without going through the API.
var staffCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a staff account",
	Long: `Create a staff account directly in the database.

The password may be passed with --password or through the
ADMIN_STAFF_PASSWORD environment variable.`,
	RunE: runStaffCreate,
}

func init() {
	flags := staffCreateCmd.Flags()
	flags.StringVar(&staffCreateInput.Email, "email", "", "Account email")
	flags.StringVar(&staffCreateInput.Name, "name", "", "Display name")
	flags.StringVar(&staffCreateInput.Role, "role", "STAFF", "ADMIN, STAFF or MODERATOR")
	flags.StringVar(&staffCreateInput.Status, "status", "ACTIVE", "ACTIVE, PENDING or SUSPENDED")
	flags.StringVar(&staffCreateInput.Password, "password", "", "Initial password")
	_ = staffCreateCmd.MarkFlagRequired("email")
	_ = staffCreateCmd.MarkFlagRequired("name")

	staffCmd.AddCommand(staffCreateCmd)
}

func runStaffCreate(cmd *cobra.Command, _ []string) error {
	input := staffCreateInput
	if input.Password == "" {
		input.Password = os.Getenv("ADMIN_STAFF_PASSWORD")
	}
	if strings.TrimSpace(input.Password) == "" {
		return errors.New("a password is required (--password or ADMIN_STAFF_PASSWORD)")
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	env, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer env.Close()

	users := service.NewUserService(*env.cfg, service.UserDependencies{
		UserRepo: repository.NewUserRepository(env.pg.PoolHandle()),
		Logger:   env.logger,
	})
	user, err := users.BootstrapUser(ctx, input)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", user.Role, user.Email, user.ID)
	return nil
}
