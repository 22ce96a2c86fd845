package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/streamvibe/streamvibe/internal/api"
	"github.com/streamvibe/streamvibe/internal/gravatar"
	"github.com/streamvibe/streamvibe/internal/store"
	"github.com/streamvibe/streamvibe/internal/view"
)

var registerCmdFlags struct {
	Name     string
	Email    string
	Password string
	Role     string
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account",
	Long:  `Create a creator account to upload media, or a consumer account to browse, comment and rate.`,
	Example: `streamvibe register --name Ada --email ada@example.com --password secret --role creator`,
	Args:    cobra.NoArgs,
	RunE:    register,
}

var loginCmdFlags struct {
	Email    string
	Password string
}

var loginCmd = &cobra.Command{
	Use:     "login",
	Short:   "Log in to StreamVibe",
	Example: `streamvibe login --email ada@example.com --password secret`,
	Args:    cobra.NoArgs,
	RunE:    login,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out and forget the stored token",
	Args:  cobra.NoArgs,
	RunE:  logout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the logged in user",
	Args:  cobra.NoArgs,
	RunE:  whoami,
}

func init() {
	registerCmd.Flags().StringVar(&registerCmdFlags.Name, "name", "", "Display name")
	registerCmd.Flags().StringVar(&registerCmdFlags.Email, "email", "", "Email address")
	registerCmd.Flags().StringVar(&registerCmdFlags.Password, "password", "", "Password (at least 6 characters)")
	registerCmd.Flags().StringVar(&registerCmdFlags.Role, "role", string(api.RoleConsumer), "Account role (creator, consumer)")

	loginCmd.Flags().StringVar(&loginCmdFlags.Email, "email", "", "Email address")
	loginCmd.Flags().StringVar(&loginCmdFlags.Password, "password", "", "Password")

	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, whoamiCmd)
}

func register(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.session.Register(cmd.Context(), store.RegisterForm{
		Name:     registerCmdFlags.Name,
		Email:    registerCmdFlags.Email,
		Password: registerCmdFlags.Password,
		Role:     api.Role(registerCmdFlags.Role),
	}); err != nil {
		return err
	}

	user := a.session.Snapshot().User
	fmt.Fprintln(cmd.OutOrStdout(), view.Success(fmt.Sprintf("Welcome %s! You are registered as a %s.", user.Name, user.Role)))
	return nil
}

func login(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.session.Login(cmd.Context(), store.LoginForm{
		Email:    loginCmdFlags.Email,
		Password: loginCmdFlags.Password,
	}); err != nil {
		return err
	}

	user := a.session.Snapshot().User
	fmt.Fprintln(cmd.OutOrStdout(), view.Success("Logged in as "+user.Name))
	return nil
}

func logout(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	a.session.Logout(cmd.Context())
	fmt.Fprintln(cmd.OutOrStdout(), view.Success("Logged out"))
	return nil
}

func whoami(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.requireLogin(cmd.Context()); err != nil {
		return err
	}

	state := a.session.Snapshot()
	fmt.Fprint(cmd.OutOrStdout(), view.Whoami(state, gravatar.AvatarURL(state.User, a.cfg.Gravatar)))
	return nil
}
