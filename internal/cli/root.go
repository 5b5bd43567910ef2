package cli

import (
	"fmt"

	"github.com/PuniCore/Puni/internal/branding"
	"github.com/PuniCore/Puni/internal/compat"
	"github.com/PuniCore/Puni/internal/config"
	"github.com/PuniCore/Puni/internal/logging"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

// logger is rebuilt from the loaded settings before every command.
var logger = logging.NewNop()

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` discovers plugin packages, loads their capabilities, hot-reloads
them on change and routes chat events to the commands they register.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Load()
		s := config.Current()
		l, err := logging.New(logging.Config{
			Level:       s.LogLevel,
			Development: s.LogDev,
			OutputPaths: []string{"stderr"},
		})
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// Execute runs the root command with build info injected via ldflags.
func Execute(version, commit, date string) error {
	buildVersion = version
	buildCommit = commit
	buildDate = date
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return err
	}
	return nil
}

// settings returns the loaded settings with the engine version defaulted to
// the build version when the config leaves it unset.
func settings() config.Settings {
	s := config.Current()
	if s.EngineVersion == config.DefaultEngineVersion && compat.Valid(buildVersion) {
		s.EngineVersion = buildVersion
	}
	logger.Debug("settings loaded",
		zap.String("plugins", s.PluginsDir),
		zap.String("engine", s.EngineVersion),
	)
	return s
}
