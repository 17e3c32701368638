package main

import (
	"fmt"

	"github.com/TobiSchelling/conduit/internal/model"
	"github.com/TobiSchelling/conduit/internal/render"
	"github.com/spf13/cobra"
)

var (
	loginEmail       string
	registerEmail    string
	registerUsername string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and remember the session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		email := loginEmail
		if email == "" {
			if email, err = readLine("Email"); err != nil {
				return err
			}
		}
		password, err := readPassword("Password")
		if err != nil {
			return err
		}

		if err := a.sess.Login(cmd.Context(), email, password); err != nil {
			return describe(err)
		}
		fmt.Printf("Logged in as %s\n", a.sess.Viewer())
		return nil
	},
}

var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create an account and sign in",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		username := registerUsername
		if username == "" {
			if username, err = readLine("Username"); err != nil {
				return err
			}
		}
		email := registerEmail
		if email == "" {
			if email, err = readLine("Email"); err != nil {
				return err
			}
		}
		password, err := readPassword("Password")
		if err != nil {
			return err
		}
		confirm, err := readPassword("Confirm password")
		if err != nil {
			return err
		}
		if password != confirm {
			return fmt.Errorf("passwords do not match")
		}

		if err := a.sess.Register(cmd.Context(), email, username, password); err != nil {
			return describe(err)
		}
		fmt.Printf("Welcome, %s\n", a.sess.Viewer())
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		a.sess.Logout()
		fmt.Println("Logged out.")
		return nil
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		s, ok := a.sess.Session()
		if !ok {
			fmt.Println("Not logged in.")
			return nil
		}
		render.Profile(cmd.OutOrStdout(), s.User.Profile())
		fmt.Printf("  email: %s\n", s.User.Email)
		fmt.Printf("  server: %s\n", a.client.BaseURL())
		return nil
	},
}

var (
	settingsImage    string
	settingsUsername string
	settingsBio      string
	settingsEmail    string
	settingsPassword bool
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Update your profile and account",
	Long:  "Only the flags you pass are sent; everything else stays as it is.",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireLogin(); err != nil {
			return err
		}

		var upd model.UserUpdate
		flags := cmd.Flags()
		if flags.Changed("image") {
			upd.Image = &settingsImage
		}
		if flags.Changed("username") {
			upd.Username = &settingsUsername
		}
		if flags.Changed("bio") {
			upd.Bio = &settingsBio
		}
		if flags.Changed("email") {
			upd.Email = &settingsEmail
		}
		if settingsPassword {
			pw, err := readPassword("New password")
			if err != nil {
				return err
			}
			upd.Password = &pw
		}
		if upd == (model.UserUpdate{}) {
			return fmt.Errorf("nothing to update; pass at least one flag")
		}

		if err := a.sess.UpdateProfile(cmd.Context(), upd); err != nil {
			return describe(err)
		}
		fmt.Printf("Updated settings for %s\n", a.sess.Viewer())
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginEmail, "email", "", "Account email")

	registerCmd.Flags().StringVar(&registerEmail, "email", "", "Account email")
	registerCmd.Flags().StringVar(&registerUsername, "username", "", "Username")

	settingsCmd.Flags().StringVar(&settingsImage, "image", "", "Profile picture URL")
	settingsCmd.Flags().StringVar(&settingsUsername, "username", "", "New username")
	settingsCmd.Flags().StringVar(&settingsBio, "bio", "", "Short bio")
	settingsCmd.Flags().StringVar(&settingsEmail, "email", "", "New email")
	settingsCmd.Flags().BoolVar(&settingsPassword, "password", false, "Prompt for a new password")
}
