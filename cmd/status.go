package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Status-specific flags
var statusID string

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the authorization state of a connection",
	Long: `Show the authorization state of a connection's token provider:
authorized, needs-refresh, or not-authenticated.

Examples:
  ssohub status --id "sso;eu-west-1;https://acme.awsapps.com/start"`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusID, "id", "", "Connection identity to inspect")
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	for _, conn := range conns {
		if statusID != "" && conn.ID() != statusID {
			continue
		}
		prov, err := a.factory.ProviderFor(conn)
		if err != nil {
			return err
		}
		fmt.Printf("%s\n", conn.Label())
		fmt.Printf("  ID:     %s\n", conn.ID())
		fmt.Printf("  State:  %s\n", prov.State())
	}
	return nil
}
