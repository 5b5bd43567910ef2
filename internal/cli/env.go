package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/PuniCore/Puni/internal/platform"
	"github.com/PuniCore/Puni/internal/userdata"
	"github.com/spf13/cobra"
)

var (
	envShowNoRedact bool
	envSync         bool
)

func init() {
	envShowCmd.Flags().BoolVar(&envShowNoRedact, "no-redact", false, "Show values without redaction")
	envListCmd.Flags().BoolVar(&envSync, "sync", false, "Append declarations of discovered plugins before listing")

	envCmd.AddCommand(envListCmd)
	envCmd.AddCommand(envEditCmd)
	envCmd.AddCommand(envShowCmd)
	rootCmd.AddCommand(envCmd)
}

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage the plugin environment file",
	Long: `Manage the .env file that collects environment declarations of plugin
packages. Declarations are appended on every full load; existing keys are
never overwritten.`,
}

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "List declared environment keys",
	RunE: func(cmd *cobra.Command, args []string) error {
		s := settings()
		if envSync {
			h, err := newHost(s, false)
			if err != nil {
				return err
			}
			if err := h.manager.SyncEnv(cmd.Context()); err != nil {
				return fmt.Errorf("collecting env declarations: %w", err)
			}
		}

		entries, err := readEnv(s.EnvFile)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "No keys declared in %s.\n", s.EnvFile)
			return nil
		}
		for _, e := range entries {
			if e.Comment != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t# %s\n", e.Key, e.Comment)
				continue
			}
			fmt.Fprintln(cmd.OutOrStdout(), e.Key)
		}
		return nil
	},
}

// Template comments for a newly created env file.
const envFileTemplate = `# Environment variables for plugins
# Add KEY=VALUE pairs below. Lines starting with # are comments.
`

var envEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Open the env file in an editor",
	Long:  `Open the env file in your preferred editor ($EDITOR, defaults to vi).`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := settings().EnvFile

		if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
			dir := filepath.Dir(path)
			if err := os.MkdirAll(dir, userdata.DirPermNormal); err != nil {
				return fmt.Errorf("creating directory %s: %w", dir, err)
			}
			if err := os.WriteFile(path, []byte(envFileTemplate), userdata.FilePermSecure); err != nil {
				return fmt.Errorf("creating env file %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s\n", path)
		}

		if err := userdata.OpenEditor(path); err != nil {
			return err
		}

		platform.Chmod(path, userdata.FilePermSecure)
		return nil
	},
}

var envShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print env file contents (redacted by default)",
	Long: `Print the contents of the env file with sensitive values redacted.
Use --no-redact to show actual values.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := settings().EnvFile
		entries, err := readEnv(path)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "(empty)")
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "# %s\n", path)
		for _, e := range entries {
			value := e.Value
			if !envShowNoRedact {
				value = userdata.RedactValue(e.Key, e.Value)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s=%s\n", e.Key, value)
		}
		return nil
	},
}

// readEnv parses path, treating a missing file as empty.
func readEnv(path string) ([]userdata.EnvEntry, error) {
	entries, err := userdata.ParseEnvFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	return entries, err
}
