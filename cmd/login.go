package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"ssohub/internal/auth"
)

// Login-specific flags
var (
	loginStartURL string
	loginRegion   string
	loginScopes   []string
	loginSource   string
	loginSourceID string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to an SSO start URL",
	Long: `Log in to an SSO start URL.

An existing connection for the same start URL and region is reused when
its token is still authorized and covers the requested scopes, silently
refreshed when possible, and interactively reauthorized otherwise. When
the requested scopes exceed the granted ones, the connection is replaced
by one carrying the scope union and reauthorized.

Examples:
  ssohub login --start-url https://acme.awsapps.com/start --region eu-west-1
  ssohub login --start-url ... --region ... --scope sso:account:access --scope codewhisperer:completions`,
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&loginStartURL, "start-url", "", "SSO start URL (required)")
	loginCmd.Flags().StringVar(&loginRegion, "region", "", "SSO region (required)")
	loginCmd.Flags().StringArrayVar(&loginScopes, "scope", []string{"sso:account:access"}, "Requested scope (repeatable)")
	loginCmd.Flags().StringVar(&loginSource, "source", "", "Telemetry source (optional)")
	loginCmd.Flags().StringVar(&loginSourceID, "source-id", "", "Telemetry credential source ID (optional)")
	_ = loginCmd.MarkFlagRequired("start-url")
	_ = loginCmd.MarkFlagRequired("region")
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	var md *auth.Metadata
	if loginSource != "" || loginSourceID != "" {
		md = &auth.Metadata{SourceID: loginSourceID, Source: loginSource}
	}

	task := a.login.LoginSso(cmd.Context(), loginStartURL, loginRegion, loginScopes, md)
	conn, err := task.Wait(cmd.Context())
	if err != nil {
		return err
	}

	if err := a.saveState(); err != nil {
		return err
	}

	fmt.Printf("Logged in: %s\n", conn.Label())
	return nil
}
