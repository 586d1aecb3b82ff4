package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/httpapi"
	"github.com/custodia-labs/docqa/internal/logger"
)

// APIKeyEnv supplies the HTTP API key when --api-key is not given.
const APIKeyEnv = "DOCQA_API_KEY"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the docqa HTTP API.

Every /api request names its caller with the X-Docqa-User header and,
for organization admins, X-Docqa-Role: admin. Set --api-key (or
$DOCQA_API_KEY) to also require "Authorization: Bearer <key>".

Routes:
  GET    /health
  GET    /api/chats
  POST   /api/chats
  GET    /api/chats/{id}
  PATCH  /api/chats/{id}          {"title": "..."}
  DELETE /api/chats/{id}
  POST   /api/chats/{id}/files    multipart "files"
  POST   /api/chats/{id}/ask      {"question": "..."}
  POST   /api/ingest              multipart "files" (admins)`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var (
	serveAddr   string
	serveAPIKey string
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8080", "Listen address")
	serveCmd.Flags().StringVar(&serveAPIKey, "api-key", "", "Bearer key required on /api routes (default $DOCQA_API_KEY)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger.SetTimestamps(true)
	svcs, err := requireServices(cmd)
	if err != nil {
		return err
	}

	server := httpapi.NewServer(httpapi.Ports{
		Identity:    svcs.Identity,
		Sessions:    svcs.Session,
		Collections: svcs.Collections,
	}, httpapi.WithAPIKey(firstNonEmpty(serveAPIKey, os.Getenv(APIKeyEnv))))

	cmd.Printf("docqa API listening on %s\n", serveAddr)
	return server.ListenAndServe(commandContext(cmd), serveAddr)
}
