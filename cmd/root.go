package cmd

import (
	"errors"
	"os"

	"github.com/spf13/cobra"

	"ssohub/internal/auth"
	"ssohub/pkg/logging"
)

// Exit codes for CLI commands.
const (
	// ExitCodeSuccess indicates successful execution.
	ExitCodeSuccess = 0
	// ExitCodeError indicates a general error (command failed, invalid arguments).
	ExitCodeError = 1
	// ExitCodeAuthRequired indicates authentication is required but not available.
	ExitCodeAuthRequired = 2
	// ExitCodeAuthFailed indicates the authorization flow failed.
	ExitCodeAuthFailed = 3
)

var verbose bool

// rootCmd represents the base command for the ssohub application.
var rootCmd = &cobra.Command{
	Use:   "ssohub",
	Short: "Manage federated SSO bearer-token connections",
	Long: `ssohub maintains a deduplicated registry of SSO connections
(identified by start URL, region, and optional session name), decides on
every login whether an existing connection can be reused, silently
refreshed, or must be reauthorized interactively, and tracks the single
active connection used by the rest of the application.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := logging.LevelInfo
		if verbose {
			level = logging.LevelDebug
		}
		logging.Init(level, os.Stderr)
	},
}

// SetVersion sets the version for the root command.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application.
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "ssohub version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(getExitCode(err))
	}
}

// getExitCode maps authentication failures to semantic exit codes for
// scripting.
func getExitCode(err error) int {
	var authErr *auth.Error
	if errors.As(err, &authErr) {
		if authErr.Kind == auth.KindInvalidGrant {
			return ExitCodeAuthRequired
		}
		return ExitCodeAuthFailed
	}
	return ExitCodeError
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
}
