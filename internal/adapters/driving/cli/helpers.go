package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
)

// openUploads opens paths for upload. The returned func closes them.
func openUploads(paths []string) ([]domain.UploadFile, func(), error) {
	var files []*os.File
	closeAll := func() {
		for _, f := range files {
			f.Close()
		}
	}

	uploads := make([]domain.UploadFile, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		files = append(files, f)
		info, err := f.Stat()
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		if info.IsDir() {
			closeAll()
			return nil, nil, fmt.Errorf("%s is a directory", p)
		}
		uploads = append(uploads, domain.UploadFile{
			Name:    filepath.Base(p),
			Size:    info.Size(),
			Content: f,
		})
	}
	return uploads, closeAll, nil
}

// openSession loads id, or the most recent chat when id is empty.
func openSession(ctx context.Context, cmd *cobra.Command, m driving.SessionManager, id string) error {
	if id == "" {
		chats, err := m.List(ctx)
		if err != nil {
			return err
		}
		if len(chats) == 0 {
			return fmt.Errorf("no chats yet: run 'docqa chat new' first: %w", domain.ErrNoActiveSession)
		}
		id = chats[0].ID
	}
	warning, err := m.Load(ctx, id)
	if err != nil {
		return err
	}
	if warning != "" {
		cmd.PrintErrf("Warning: %s\n", warning)
	}
	return nil
}

func printRejections(cmd *cobra.Command, rejected []driving.Rejection) {
	for _, r := range rejected {
		cmd.Printf("  rejected %s: %s\n", r.Name, r.Reason)
	}
}

func printReport(cmd *cobra.Command, report *driving.IngestReport) {
	if report == nil {
		return
	}
	names := make([]string, 0, len(report.Methods))
	for name := range report.Methods {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd.Printf("  %s: %s\n", name, report.Methods[name])
	}
	printRejections(cmd, report.Rejected)
	cmd.Printf("Indexed %d new passages from %d documents.\n", report.Indexed, report.Documents)
}

func printAnswer(cmd *cobra.Command, answer domain.Answer) {
	cmd.Println(answer.Text)
	if len(answer.Sources) > 0 {
		cmd.Printf("\nSources: %s\n", strings.Join(answer.Sources, ", "))
	}
}

// failure renders err for users.
func failure(err error) error {
	if reason := domain.Reason(err); reason != "" && reason != err.Error() {
		return errors.New(reason)
	}
	return err
}
