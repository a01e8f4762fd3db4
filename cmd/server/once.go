package main

import (
	"encoding/json"
	"log/slog"

	"github.com/spf13/cobra"

	"realtime-listings/internal/listing"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single poll cycle and print the new posts as JSON",
	RunE:  onceAction,
}

func onceAction(cmd *cobra.Command, _ []string) error {
	a, err := newApp(configPath)
	if err != nil {
		return err
	}
	defer a.Close()

	fresh, err := a.poller.RunOnce(cmd.Context())
	if err != nil && !listing.IsUnchanged(err) {
		return err
	}
	if fresh == nil {
		fresh = []listing.Listing{}
	}

	slog.Info("Poll cycle complete", "new", len(fresh))
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(fresh)
}
