// Package cli implements the docqa command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/docqa/internal/core/domain"
	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

// UserEnv and RoleEnv supply the identity when the flags are not given.
const (
	UserEnv = "DOCQA_USER"
	RoleEnv = "DOCQA_ROLE"
)

// version is set at build time with -ldflags "-X ...cli.version=v1.2.3".
var version = "dev"

// Services are the driving ports the commands work with.
type Services struct {
	Identity       driving.IdentityService
	KnowledgeBases driving.KnowledgeBaseService
	Collections    driving.CollectionService

	// NewSession returns a fresh manager for one command invocation.
	NewSession func(domain.Identity) driving.SessionManager

	// Session returns a manager shared for the life of the process.
	Session func(domain.Identity) driving.SessionManager

	// InboxDir is watched by 'docqa watch' when no directory is given.
	InboxDir string

	// Warnings are shown once before the command runs.
	Warnings []string

	// Close releases long-lived sessions and models.
	Close func(context.Context) error
}

// ServicesLoader builds Services on demand.
type ServicesLoader func(ctx context.Context, home string) (*Services, error)

// SettingsLoader builds the settings service for a data directory.
type SettingsLoader func(home string) (driving.SettingsService, error)

var (
	settingsService driving.SettingsService
	settingsLoader  SettingsLoader
	servicesLoader  ServicesLoader
	loaded          *Services

	verbose  bool
	homeDir  string
	userFlag string
	roleFlag string
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Ask questions about your documents",
	Long: `docqa answers questions from the documents you upload.

Upload PDFs, Word files or scans, and docqa extracts their text (falling
back to OCR for scanned pages), indexes it into a knowledge base and
answers questions with the sources it used.

Organization admins maintain a shared knowledge base for their
organization; everyone else gets a private knowledge base per chat.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return file.LoadEnv()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show pipeline diagnostics")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "Data directory (default $DOCQA_HOME or ~/.docqa)")
	rootCmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "User email (default $DOCQA_USER)")
	rootCmd.PersistentFlags().StringVar(&roleFlag, "role", "", "Role: user or admin (default $DOCQA_ROLE or user)")
}

// SetSettingsService sets the settings service used by 'docqa settings'.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// SetSettingsLoader sets how the settings service is built once --home is known.
func SetSettingsLoader(l SettingsLoader) {
	settingsLoader = l
	settingsService = nil
}

// SetServicesLoader sets how the pipeline is built for commands that need it.
func SetServicesLoader(l ServicesLoader) {
	servicesLoader = l
	loaded = nil
}

// Execute runs the root command.
func Execute(ctx context.Context) error {
	defer closeServices(ctx)
	return rootCmd.ExecuteContext(ctx)
}

// Home returns the --home flag value.
func Home() string {
	return homeDir
}

// requireServices builds the pipeline once per process.
func requireServices(cmd *cobra.Command) (*Services, error) {
	if loaded != nil {
		return loaded, nil
	}
	if servicesLoader == nil {
		return nil, errors.New("services not configured")
	}
	svcs, err := servicesLoader(commandContext(cmd), homeDir)
	if err != nil {
		return nil, err
	}
	for _, w := range svcs.Warnings {
		cmd.PrintErrf("Warning: %s\n", w)
	}
	loaded = svcs
	return svcs, nil
}

func closeServices(ctx context.Context) {
	if loaded == nil || loaded.Close == nil {
		return
	}
	if err := loaded.Close(ctx); err != nil {
		logger.Warn("shutdown: %v", err)
	}
	loaded = nil
}

// currentIdentity resolves --user and --role against the organization directory.
func currentIdentity(svcs *Services) (domain.Identity, error) {
	email := firstNonEmpty(userFlag, os.Getenv(UserEnv))
	if email == "" {
		email = localUser()
	}
	role := domain.Role(strings.ToLower(firstNonEmpty(roleFlag, os.Getenv(RoleEnv))))
	id, err := svcs.Identity.Resolve(email, role)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w (set --user and --role)", err)
	}
	return id, nil
}

func localUser() string {
	name := "local"
	if u, err := user.Current(); err == nil && u.Username != "" {
		name = u.Username
	}
	return name + "@localhost"
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
