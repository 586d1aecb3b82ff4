package cli

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Inspect knowledge bases",
}

var kbInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show the knowledge base of a chat, or your organization's as admin",
	Args:  cobra.NoArgs,
	RunE:  runKBInfo,
}

var kbDestroyCmd = &cobra.Command{
	Use:   "destroy",
	Short: "Delete your organization's shared knowledge base",
	Long: `Delete the shared knowledge base of your organization.

This removes every indexed document for the whole organization and cannot
be undone. Requires the admin role and --yes.`,
	Args: cobra.NoArgs,
	RunE: runKBDestroy,
}

var (
	kbChat    string
	kbConfirm bool
)

func init() {
	kbInfoCmd.Flags().StringVarP(&kbChat, "chat", "c", "", "Chat id (default: most recent, or the shared base for admins)")
	kbDestroyCmd.Flags().BoolVar(&kbConfirm, "yes", false, "Confirm deletion")
	kbCmd.AddCommand(kbInfoCmd)
	kbCmd.AddCommand(kbDestroyCmd)
	rootCmd.AddCommand(kbCmd)
}

func runKBInfo(cmd *cobra.Command, _ []string) error {
	svcs, err := requireServices(cmd)
	if err != nil {
		return err
	}
	id, err := currentIdentity(svcs)
	if err != nil {
		return err
	}
	ctx := commandContext(cmd)

	var handle domain.KnowledgeBaseHandle
	if id.TenantKey().IsShared() && kbChat == "" {
		handle, err = svcs.KnowledgeBases.GetOrCreate(ctx, id.TenantKey())
		if err != nil {
			return failure(err)
		}
	} else {
		m := svcs.NewSession(id)
		if err := openSession(ctx, cmd, m, kbChat); err != nil {
			return failure(err)
		}
		handle, err = svcs.KnowledgeBases.Resolve(ctx, m.Current().KnowledgeBaseRef)
		if err != nil {
			return failure(err)
		}
	}

	info, err := svcs.KnowledgeBases.Info(ctx, handle)
	if err != nil {
		return failure(err)
	}
	cmd.Printf("Knowledge base: %s\n", info.Handle.Ref())
	cmd.Printf("  Tenant: %s\n", handle.Tenant)
	cmd.Printf("  Embedding model: %s\n", info.EmbeddingModel)
	cmd.Printf("  Passages: %d\n", info.ChunkCount)
	if len(info.Sources) == 0 {
		cmd.Println("  Documents: (none)")
	} else {
		cmd.Printf("  Documents: %s\n", strings.Join(info.Sources, ", "))
	}
	return nil
}

func runKBDestroy(cmd *cobra.Command, _ []string) error {
	if !kbConfirm {
		return errors.New("refusing to delete without --yes")
	}
	svcs, err := requireServices(cmd)
	if err != nil {
		return err
	}
	id, err := currentIdentity(svcs)
	if err != nil {
		return err
	}
	tenant := id.TenantKey()
	if !tenant.IsShared() {
		return errors.New("only organization admins can delete a shared knowledge base")
	}
	ctx := commandContext(cmd)
	handle, err := svcs.KnowledgeBases.Resolve(ctx, domain.KnowledgeBaseHandle{Tenant: tenant}.Ref())
	if err != nil {
		return failure(err)
	}
	if err := svcs.KnowledgeBases.Destroy(ctx, handle); err != nil {
		return err
	}
	cmd.Printf("Deleted knowledge base %s\n", handle.Ref())
	return nil
}
