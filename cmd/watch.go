package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"ssohub/internal/config"
	"ssohub/internal/events"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the session file and mirror it into the registry",
	Long: `Watch the sso-session file for changes and keep the connection
registry synchronized until interrupted. Each addition, modification, or
removal is applied to the registry and logged.`,
	RunE: runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	unsubscribe := a.bus.SubscribeSessionChanges(func(ev events.SessionChange) {
		fmt.Printf("session %s: %s (%d connections)\n",
			ev.Op, ev.Profile.SessionName, len(a.manager.ListConnections()))
		if err := a.saveState(); err != nil {
			fmt.Fprintf(os.Stderr, "could not persist state: %v\n", err)
		}
	})
	defer unsubscribe()

	watcher, err := config.NewWatcher(a.sessionsPath(), a.bus)
	if err != nil {
		return err
	}
	defer watcher.Close()
	watcher.Start()

	fmt.Printf("Watching %s\n", a.sessionsPath())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sig:
	case <-cmd.Context().Done():
	}
	return nil
}
