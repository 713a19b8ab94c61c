package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/config"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/logging"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/store"
	"github.com/ThomasSchneider-94/Karuta-Project-sub000/internal/transport"
)

var verbose bool

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "karuta",
	Short: "Client-side catalog for karuta card decks",
	Long: `Karuta maintains a local catalog of card decks, synchronizes it against
a remote deck server, and manages the on-disk cache of cover, visual and
audio assets shared between decks.`,
	SilenceUsage: true,
}

func init() {
	RootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return RootCmd.Execute()
}

// environment bundles the collaborators every command constructs from
// the config file. One operation runs per process invocation, so the
// single-writer contract on the store holds by construction.
type environment struct {
	cfg    *config.Config
	store  *store.Store
	client *transport.Client
	logger *zap.Logger
}

func newEnvironment() (*environment, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("error loading config: %v", err)
	}
	return &environment{
		cfg:    cfg,
		store:  store.New(cfg.ResolvedDataDir(), store.OSFilesystem{}),
		client: transport.NewClient(cfg.ServerURL, cfg.Timeout()),
		logger: logging.NewLogger(verbose),
	}, nil
}

func (e *environment) close() {
	_ = e.logger.Sync()
}
