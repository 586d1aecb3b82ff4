package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/watch"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/logger"
)

var watchCmd = &cobra.Command{
	Use:   "watch [inbox-dir]",
	Short: "Ingest documents dropped into an inbox directory",
	Long: `Watch an inbox directory and add every new document to your
organization's shared knowledge base. Requires the admin role.

Ingested files move to <inbox>/processed. Rejected files move to
<inbox>/failed with a .reason file explaining why.

The inbox defaults to ~/.docqa/inbox.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

var watchSettle time.Duration

func init() {
	watchCmd.Flags().DurationVar(&watchSettle, "settle", watch.DefaultSettle, "Quiet period before a new file is ingested")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	logger.SetTimestamps(true)
	svcs, err := requireServices(cmd)
	if err != nil {
		return err
	}
	id, err := currentIdentity(svcs)
	if err != nil {
		return err
	}
	dir := svcs.InboxDir
	if len(args) == 1 {
		dir = args[0]
	}

	w := watch.New(dir, id, svcs.Collections,
		watch.WithSettle(watchSettle),
		watch.WithResultHandler(func(r watch.Result) {
			if r.Err != nil {
				cmd.PrintErrf("Failed %d files: %s\n", len(r.Files), domain.Reason(r.Err))
				return
			}
			cmd.Printf("Ingested %d files\n", len(r.Files))
			printReport(cmd, r.Report)
		}),
	)
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", dir)
	return w.Run(commandContext(cmd))
}
