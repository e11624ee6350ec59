package cmd

import (
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

// listCmd represents the list command
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered connections",
	Long: `List all registered connections in registration order.

Identity fields only; tokens and credential settings are never part of
the registry and never shown.`,
	RunE: runList,
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	conns := a.manager.ListConnections()

	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.AppendHeader(table.Row{"ID", "TYPE", "REGION", "START URL", "SESSION", "SCOPES"})
	for _, conn := range conns {
		session := conn.SessionName()
		if session == "" {
			session = "-"
		}
		t.AppendRow(table.Row{
			conn.ID(),
			string(conn.Kind()),
			conn.Region(),
			conn.StartURL(),
			session,
			strings.Join(conn.Scopes(), ", "),
		})
	}
	t.SetStyle(table.StyleLight)
	t.Render()
	return nil
}
