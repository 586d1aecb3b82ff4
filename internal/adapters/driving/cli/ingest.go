package cli

import (
	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Add documents to your organization's shared knowledge base",
	Long: `Add documents to the shared knowledge base of your organization.

Only organization admins can ingest. Documents are appended to the
existing knowledge base; files already indexed are not duplicated.

Example:
  docqa --user ops@acme.com --role admin ingest handbook.pdf policies.docx`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	svcs, err := requireServices(cmd)
	if err != nil {
		return err
	}
	id, err := currentIdentity(svcs)
	if err != nil {
		return err
	}
	files, closeFiles, err := openUploads(args)
	if err != nil {
		return err
	}
	defer closeFiles()

	report, err := svcs.Collections.Add(commandContext(cmd), id, files)
	printReport(cmd, report)
	if err != nil {
		return failure(err)
	}
	return nil
}
