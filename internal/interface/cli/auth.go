package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	loginUsername string
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in to the chat service",
	Long: `Sign in and store the session token locally.

The password is read from the terminal without echo, or from stdin when
piped.

Examples:
  chatify login
  chatify login --username alice
  echo "$PASSWORD" | chatify login -u alice`,
	RunE: runLogin,
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	RunE:  runSignup,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored session token",
	RunE:  runLogout,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the backend and sign-in state",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, statusCmd)
	loginCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username (prompted if omitted)")
	signupCmd.Flags().StringVarP(&loginUsername, "username", "u", "", "Username (prompted if omitted)")
}

func readCredentials() (string, string, error) {
	username := loginUsername
	if username == "" {
		var err error
		username, err = promptLine("Username: ")
		if err != nil {
			return "", "", err
		}
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return "", "", err
	}
	if username == "" || password == "" {
		return "", "", errors.New("username and password are required")
	}
	return username, password, nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	username, password, err := readCredentials()
	if err != nil {
		return err
	}

	if err := ws.Login(context.Background(), username, password); err != nil {
		return handle(err)
	}

	fmt.Printf("Signed in as %s (%d conversation(s))\n", username, len(ws.History.Summaries()))
	return nil
}

func runSignup(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	username, password, err := readCredentials()
	if err != nil {
		return err
	}

	msg, err := ws.Signup(context.Background(), username, password)
	if err != nil {
		return handle(err)
	}
	if msg != "" {
		fmt.Println(msg)
	}
	fmt.Printf("Signed in as %s\n", username)
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	if err := ws.Logout(); err != nil {
		return err
	}
	fmt.Println("Signed out")
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	ws, err := openWorkspace()
	if err != nil {
		return err
	}
	defer func() { _ = ws.Close() }()

	fmt.Printf("Backend:  %s\n", cfg.BaseURL)
	fmt.Printf("Database: %s\n", cfg.DBPath)
	if ws.Authenticated() {
		fmt.Println("Status:   signed in")
	} else {
		fmt.Println("Status:   signed out")
	}
	return nil
}
