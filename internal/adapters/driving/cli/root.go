// Package cli is the cobra command tree for docent.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docent/internal/core/ports/driving"
	"github.com/custodia-labs/docent/internal/logger"
)

var version = "dev"

var verbose bool

// settingsService is set at start-up; settings commands need nothing else.
var settingsService driving.SettingsService

// Services are the AI-backed driving ports. They are built on first use so
// that settings and version work before any provider is configured.
type Services struct {
	Chat     driving.ChatService
	Site     driving.SiteService
	Meeting  driving.MeetingService
	Quiz     driving.QuizService
	Research driving.ResearchService
	Cache    driving.CacheService

	// Close releases stores and clients; may be nil.
	Close func() error
}

// Builder constructs Services from the current settings.
type Builder func(ctx context.Context) (*Services, error)

var (
	servicesBuilder Builder
	services        *Services
)

var rootCmd = &cobra.Command{
	Use:   "docent",
	Short: "Ask questions about documents, websites, recordings, and markets",
	Long: `docent answers questions grounded in your own material.

  docent chat notes.md            chat with a document
  docent site URL/sitemap.xml     ask a website
  docent meeting call.mp4         transcribe and summarise a recording
  docent quiz --wiki Photosynthesis
  docent invest "Should I buy Cloudflare?"`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log progress to stderr")
}

// SetVersion sets the version printed by 'docent version'.
func SetVersion(v string) {
	version = v
}

// SetSettingsService sets the settings port.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// SetBuilder sets how Services are constructed on first use.
func SetBuilder(b Builder) {
	servicesBuilder = b
	services = nil
}

// Execute runs the command tree and releases any services it built.
func Execute(ctx context.Context) error {
	defer closeServices()
	return rootCmd.ExecuteContext(ctx)
}

func loadServices(ctx context.Context) (*Services, error) {
	if services != nil {
		return services, nil
	}
	if servicesBuilder == nil {
		return nil, errors.New("services not configured")
	}
	s, err := servicesBuilder(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w\nRun 'docent settings' to check your configuration.", err)
	}
	services = s
	return s, nil
}

func closeServices() {
	if services == nil || services.Close == nil {
		return
	}
	if err := services.Close(); err != nil {
		logger.Warn("close: %v", err)
	}
	services = nil
}
