package cli

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/PuniCore/Puni/internal/branding"
	"github.com/PuniCore/Puni/internal/discovery"
	"github.com/PuniCore/Puni/internal/installer"
	"github.com/PuniCore/Puni/internal/scaffold"
	"github.com/spf13/cobra"
)

var (
	pluginsType  string
	pluginsJSON  bool
	pluginsForce bool
	installName  string
	newKind      string
)

func init() {
	for _, c := range []*cobra.Command{pluginsListCmd, pluginsInfoCmd} {
		c.Flags().StringVar(&pluginsType, "type", string(discovery.FilterAll), "Filter by provenance (all, app, git, npm)")
		c.Flags().BoolVar(&pluginsJSON, "json", false, "Output in JSON format")
	}
	pluginsListCmd.Flags().BoolVar(&pluginsForce, "force", false, "Bypass the discovery cache")
	pluginsNewCmd.Flags().StringVar(&newKind, "kind", string(discovery.KindApp), "Package layout to generate (app, git)")
	pluginsInstallCmd.Flags().StringVar(&installName, "name", "", "Directory name under the plugin root (defaults to the repository name)")

	pluginsCmd.AddCommand(pluginsListCmd)
	pluginsCmd.AddCommand(pluginsInfoCmd)
	pluginsCmd.AddCommand(pluginsCheckCmd)
	pluginsCmd.AddCommand(pluginsNewCmd)
	pluginsCmd.AddCommand(pluginsInstallCmd)
	pluginsCmd.AddCommand(pluginsUpdateCmd)
	rootCmd.AddCommand(pluginsCmd)
}

var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Inspect, check and install plugin packages",
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List discovered plugin packages",
	RunE:  runPluginsList,
}

var pluginsInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show descriptors of discovered plugin packages",
	RunE:  runPluginsInfo,
}

var pluginsCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a full load cycle and print the issue report",
	Long: `Discover and load every plugin package once, then print registry counts
and every discovery, load and definition issue. Exits non-zero when any
issue was recorded.`,
	Args: cobra.NoArgs,
	RunE: runPluginsCheck,
}

var pluginsNewCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Scaffold a new plugin under the plugin root",
	Long: `Generate a plugin from built-in templates. An app plugin is a single folder
of Go files; a git plugin adds a manifest, an entry module with an Init hook
and an apps directory.

  ` + branding.CLIName() + ` plugins new ` + branding.PluginPrefix() + `weather
  ` + branding.CLIName() + ` plugins new ` + branding.PluginPrefix() + `weather --kind git`,
	Args: cobra.ExactArgs(1),
	RunE: runPluginsNew,
}

var pluginsInstallCmd = &cobra.Command{
	Use:   "install <git-url|path>",
	Short: "Install a plugin by cloning a git repository or copying a directory",
	Long: `Install a plugin into the plugin root. A git URL is cloned with depth 1;
an existing local directory is copied. The target name must start with
"` + branding.PluginPrefix() + `".

  ` + branding.CLIName() + ` plugins install https://github.com/acme/` + branding.PluginPrefix() + `weather.git
  ` + branding.CLIName() + ` plugins install ./my-plugin --name ` + branding.PluginPrefix() + `mine`,
	Args: cobra.ExactArgs(1),
	RunE: runPluginsInstall,
}

var pluginsUpdateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Fast-forward a git-installed plugin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		in := newInstaller(settings())
		if err := in.Pull(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Updated %s\n", args[0])
		return nil
	},
}

func runPluginsList(cmd *cobra.Command, args []string) error {
	filter, err := discovery.ParseFilter(pluginsType)
	if err != nil {
		return err
	}
	h, err := newHost(settings(), false)
	if err != nil {
		return err
	}

	names, err := h.manager.ListPackages(cmd.Context(), filter, pluginsForce)
	if err != nil {
		return fmt.Errorf("listing plugins: %w", err)
	}

	if pluginsJSON {
		return printJSON(cmd, names)
	}
	if len(names) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No plugins found.")
		return nil
	}
	for _, name := range names {
		fmt.Fprintln(cmd.OutOrStdout(), name)
	}
	return nil
}

func runPluginsInfo(cmd *cobra.Command, args []string) error {
	filter, err := discovery.ParseFilter(pluginsType)
	if err != nil {
		return err
	}
	h, err := newHost(settings(), false)
	if err != nil {
		return err
	}

	descs, err := h.manager.ListPackageDetails(cmd.Context(), filter, true)
	if err != nil {
		return fmt.Errorf("describing plugins: %w", err)
	}

	if pluginsJSON {
		return printJSON(cmd, descs)
	}
	if len(descs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No plugins found.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "KIND\tNAME\tAPPS\tDIR")
	for _, d := range descs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", d.Kind, d.Name, len(d.Apps), d.Dir)
	}
	return w.Flush()
}

func runPluginsCheck(cmd *cobra.Command, args []string) error {
	h, err := newHost(settings(), false)
	if err != nil {
		return err
	}

	rep, err := h.manager.LoadAll(cmd.Context())
	if err != nil {
		return fmt.Errorf("loading plugins: %w", err)
	}

	out := cmd.OutOrStdout()
	snap := h.manager.Snapshot()
	c := snap.Counts
	fmt.Fprintf(out, "packages: %d\n", c.Packages)
	fmt.Fprintf(out, "command: %d  accept: %d  task: %d  button: %d  handler.key: %d  handler.fnc: %d\n",
		c.Commands, c.Accepts, c.Tasks, c.Buttons, c.HandlerKeys, c.HandlerFncs)
	for _, pkg := range slices.Sorted(maps.Keys(snap.Missing)) {
		fmt.Fprintf(out, "missing dependency in %s: %s\n", pkg, snap.Missing[pkg])
	}
	rep.Print(out)

	if n := rep.Len(); n > 0 {
		return fmt.Errorf("%d plugin issue(s) found", n)
	}
	return nil
}

func runPluginsNew(cmd *cobra.Command, args []string) error {
	s := settings()
	data, err := scaffold.NewData(args[0], s.EngineVersion)
	if err != nil {
		return err
	}

	outDir := filepath.Join(s.PluginsDir, data.Name)
	result, err := scaffold.Generate(discovery.Kind(newKind), data, outDir)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "✓ Created %s plugin %s\n", newKind, result.OutputDir)
	for _, f := range result.Files {
		fmt.Fprintf(out, "  %s\n", f)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(out, "  ⚠ %s\n", w)
	}
	return nil
}

func runPluginsInstall(cmd *cobra.Command, args []string) error {
	src := args[0]
	name := installName
	if name == "" {
		name = installer.NameFromURL(src)
	}

	in := newInstaller(settings())
	var (
		dir string
		err error
	)
	if isLocalDir(src) {
		dir, err = in.CopyLocal(src, name)
	} else {
		dir, err = in.Clone(cmd.Context(), src, name)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Installed %s into %s\n", name, dir)
	fmt.Fprintf(cmd.OutOrStdout(), "  Run '%s plugins check' to verify it loads.\n", branding.CLIName())
	return nil
}

// isLocalDir reports whether src names an existing directory rather than a
// remote repository.
func isLocalDir(src string) bool {
	if strings.Contains(src, "://") || strings.HasPrefix(src, "git@") {
		return false
	}
	info, err := os.Stat(src)
	return err == nil && info.IsDir()
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling output: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
