package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about the documents in a chat",
	Long: `Ask a question about the documents uploaded to a chat.

The answer uses only passages from the chat's knowledge base and lists the
documents it drew on. The question and answer are added to the chat.

Examples:
  docqa ask "What is the refund window?"
  docqa ask --chat chat_20260504_101500 "Who signs off on returns?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var askChat string

func init() {
	askCmd.Flags().StringVarP(&askChat, "chat", "c", "", "Chat id (default: most recent)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	svcs, err := requireServices(cmd)
	if err != nil {
		return err
	}
	id, err := currentIdentity(svcs)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)
	m := svcs.NewSession(id)
	if err := openSession(ctx, cmd, m, askChat); err != nil {
		return failure(err)
	}

	answer, err := m.Ask(ctx, strings.Join(args, " "))
	if err != nil {
		return failure(err)
	}
	printAnswer(cmd, answer)
	return nil
}
