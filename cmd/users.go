package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/frahmantamala/billable-dashboard/internal/user"
	"github.com/frahmantamala/billable-dashboard/pkg/logger"
	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "User administration",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List users visible to the logged-in account",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		return listUsers(ctx)
	},
}

var (
	usersSearch string
	usersRoleID int64
	usersTeamID int64
	usersActive string
)

func listUsers(ctx context.Context) error {
	ctx, s, err := loginCLI(ctx)
	if err != nil {
		return err
	}
	if !s.User.Permissions().CanManageUsers {
		return fmt.Errorf("%s cannot manage users", s.User.Role)
	}

	svc := user.NewService(s.Client, user.Device{ID: s.Config.Backend.DeviceID, Type: s.Config.Backend.DeviceType}, logger.L())
	filter := user.Filter{Search: usersSearch, RoleID: usersRoleID, TeamID: usersTeamID}
	if usersActive != "" {
		active, err := strconv.ParseBool(usersActive)
		if err != nil {
			return fmt.Errorf("invalid --active value %q", usersActive)
		}
		filter.Active = &active
	}

	users, err := svc.List(ctx, filter)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tTEAM\tACTIVE")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%t\n", u.ID, u.Name, u.Email, u.Role, u.TeamName, u.IsActive)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("%d users\n", len(users))
	return nil
}

func init() {
	usersCmd.PersistentFlags().StringVar(&cliEmail, "email", "", "login email (or BILLABLE_EMAIL)")
	usersCmd.PersistentFlags().StringVar(&cliPassword, "password", "", "login password (or BILLABLE_PASSWORD)")
	usersListCmd.Flags().StringVar(&usersSearch, "search", "", "match name, email or phone")
	usersListCmd.Flags().Int64Var(&usersRoleID, "role-id", 0, "only this role")
	usersListCmd.Flags().Int64Var(&usersTeamID, "team-id", 0, "only this team")
	usersListCmd.Flags().StringVar(&usersActive, "active", "", "true or false")

	usersCmd.AddCommand(usersListCmd)
}
