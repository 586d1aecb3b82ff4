package cli

import (
	"fmt"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driving/tui"
	"github.com/custodia-labs/docqa/internal/logger"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Chat with your documents in the terminal",
	Long: `Open the interactive interface.

The menu leads to a new chat, stored chats, uploads and settings. In a
chat, type a question and press Enter. Ctrl+U uploads documents, Ctrl+N
starts over and Esc returns to the menu. In the chat list, r renames and
d deletes the selected chat.`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, _ []string) (err error) {
	// Bubbletea restores the terminal before a panic reaches here.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tui crashed: %v\n%s", r, debug.Stack())
		}
	}()

	svcs, err := requireServices(cmd)
	if err != nil {
		return err
	}
	id, err := currentIdentity(svcs)
	if err != nil {
		return err
	}

	settings, err := requireSettings()
	if err != nil {
		logger.Debug("tui without settings: %v", err)
	}

	app, err := tui.NewApp(tui.NewPorts(svcs.Session(id), settings))
	if err != nil {
		return err
	}
	return app.WithContext(commandContext(cmd)).Run()
}
