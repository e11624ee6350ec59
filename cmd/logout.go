package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Logout-specific flags
var logoutID string

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out of a connection",
	Long: `Log out of a connection.

Without flags this logs out of the most recently registered connection.
The connection's provider is invalidated (cached tokens are discarded and
the portal session is closed) and the connection is deactivated.

Examples:
  ssohub logout
  ssohub logout --id "sso;eu-west-1;https://acme.awsapps.com/start"`,
	RunE: runLogout,
}

func init() {
	logoutCmd.Flags().StringVar(&logoutID, "id", "", "Connection identity to log out of")
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	conns := a.manager.ListConnections()
	if len(conns) == 0 {
		fmt.Println("No connections registered.")
		return nil
	}

	target := conns[len(conns)-1]
	if logoutID != "" {
		found, ok := a.registry.Get(logoutID)
		if !ok {
			return fmt.Errorf("no connection with id %q", logoutID)
		}
		target = found
	}

	done := false
	a.logout.Logout(target, nil, func() { done = true })
	if !done {
		return fmt.Errorf("logout did not complete")
	}

	fmt.Printf("Logged out: %s\n", target.Label())
	return nil
}
