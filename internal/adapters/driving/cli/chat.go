package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Manage chats",
	Long: `Start, list, rename and delete chats.

Each chat has its own conversation and knowledge base reference. Starting a
new chat discards the private knowledge base of your previous chat.`,
}

var chatNewCmd = &cobra.Command{
	Use:   "new [files...]",
	Short: "Start a new chat, optionally uploading documents",
	RunE:  runChatNew,
}

var chatUploadCmd = &cobra.Command{
	Use:   "upload [files...]",
	Short: "Upload documents to a chat and index them",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runChatUpload,
}

var chatListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your chats, most recent first",
	Args:  cobra.NoArgs,
	RunE:  runChatList,
}

var chatShowCmd = &cobra.Command{
	Use:   "show [chat-id]",
	Short: "Print a chat's conversation",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runChatShow,
}

var chatRenameCmd = &cobra.Command{
	Use:   "rename [chat-id] [title]",
	Short: "Rename a chat",
	Args:  cobra.ExactArgs(2),
	RunE:  runChatRename,
}

var chatDeleteCmd = &cobra.Command{
	Use:   "delete [chat-id]",
	Short: "Delete a chat",
	Args:  cobra.ExactArgs(1),
	RunE:  runChatDelete,
}

// chatSession is the --chat flag shared by commands acting on one chat.
var chatSession string

func init() {
	chatUploadCmd.Flags().StringVarP(&chatSession, "chat", "c", "", "Chat id (default: most recent)")
	chatShowCmd.Flags().StringVarP(&chatSession, "chat", "c", "", "Chat id (default: most recent)")

	chatCmd.AddCommand(chatNewCmd)
	chatCmd.AddCommand(chatUploadCmd)
	chatCmd.AddCommand(chatListCmd)
	chatCmd.AddCommand(chatShowCmd)
	chatCmd.AddCommand(chatRenameCmd)
	chatCmd.AddCommand(chatDeleteCmd)
	rootCmd.AddCommand(chatCmd)
}

func runChatNew(cmd *cobra.Command, args []string) error {
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

	// Reopen the previous chat so its private knowledge base is released.
	if chats, err := m.List(ctx); err == nil && len(chats) > 0 {
		if _, err := m.Load(ctx, chats[0].ID); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return failure(err)
		}
	}

	session, err := m.NewChat(ctx)
	if err != nil {
		return failure(err)
	}
	cmd.Printf("Started chat %s\n", session.ID)

	if len(args) == 0 {
		cmd.Println("Upload documents with 'docqa chat upload <files>'.")
		return nil
	}
	return uploadAndProcess(cmd, m, args)
}

func runChatUpload(cmd *cobra.Command, args []string) error {
	svcs, err := requireServices(cmd)
	if err != nil {
		return err
	}
	id, err := currentIdentity(svcs)
	if err != nil {
		return err
	}
	m := svcs.NewSession(id)
	if err := openSession(commandContext(cmd), cmd, m, chatSession); err != nil {
		return failure(err)
	}
	return uploadAndProcess(cmd, m, args)
}

func uploadAndProcess(cmd *cobra.Command, m driving.SessionManager, paths []string) error {
	ctx := commandContext(cmd)
	files, closeFiles, err := openUploads(paths)
	if err != nil {
		return err
	}
	defer closeFiles()

	approved, rejected, err := m.Upload(ctx, files)
	printRejections(cmd, rejected)
	if err != nil {
		return failure(err)
	}
	if len(approved) == 0 {
		return errors.New("no documents were accepted")
	}
	cmd.Printf("Processing %d documents...\n", len(approved))

	report, err := m.Process(ctx)
	if err != nil {
		printReport(cmd, report)
		return failure(err)
	}
	printReport(cmd, report)
	cmd.Println("Ready. Ask questions with 'docqa ask <question>'.")
	return nil
}

func runChatList(cmd *cobra.Command, _ []string) error {
	svcs, err := requireServices(cmd)
	if err != nil {
		return err
	}
	id, err := currentIdentity(svcs)
	if err != nil {
		return err
	}
	chats, err := svcs.NewSession(id).List(commandContext(cmd))
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		cmd.Println("No chats yet.")
		return nil
	}
	for _, c := range chats {
		cmd.Printf("%s  %s  %-40s  %d messages\n", c.ID, c.UpdatedAt.Format("2006-01-02 15:04"), c.Title, c.Messages)
	}
	return nil
}

func runChatShow(cmd *cobra.Command, args []string) error {
	svcs, err := requireServices(cmd)
	if err != nil {
		return err
	}
	id, err := currentIdentity(svcs)
	if err != nil {
		return err
	}
	target := chatSession
	if len(args) == 1 {
		target = args[0]
	}
	m := svcs.NewSession(id)
	if err := openSession(commandContext(cmd), cmd, m, target); err != nil {
		return failure(err)
	}
	s := m.Current()
	cmd.Printf("%s (%s)\n\n", s.DisplayTitle(), s.ID)
	for _, msg := range s.Messages {
		cmd.Printf("%s: %s\n\n", msg.Role, msg.Content)
	}
	if len(s.ApprovedFiles) > 0 {
		cmd.Println("Documents:")
		for _, f := range s.ApprovedFiles {
			cmd.Printf("  %s\n", f.Name)
		}
	}
	return nil
}

func runChatRename(cmd *cobra.Command, args []string) error {
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
	if err := openSession(ctx, cmd, m, args[0]); err != nil {
		return failure(err)
	}
	if err := m.Rename(ctx, args[1]); err != nil {
		return err
	}
	cmd.Printf("Renamed chat %s to %q\n", args[0], args[1])
	return nil
}

func runChatDelete(cmd *cobra.Command, args []string) error {
	svcs, err := requireServices(cmd)
	if err != nil {
		return err
	}
	id, err := currentIdentity(svcs)
	if err != nil {
		return err
	}
	if err := svcs.NewSession(id).Delete(commandContext(cmd), args[0]); err != nil {
		return fmt.Errorf("deleting chat: %w", err)
	}
	cmd.Printf("Deleted chat %s\n", args[0])
	return nil
}
