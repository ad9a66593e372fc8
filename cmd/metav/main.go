// Command metav runs the metaprogramming preprocessor over a top Verilog
// module: parse, run any embedded scripts, and rewrite the source files
// those scripts touched — everything else survives byte-for-byte.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/madappgang/metav/internal/config"
	"github.com/madappgang/metav/internal/driver"
	"github.com/madappgang/metav/internal/metaverr"
	"github.com/madappgang/metav/internal/metavlog"
	"github.com/madappgang/metav/internal/script"
	"github.com/madappgang/metav/internal/ui"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		includeDirs  []string
		modPaths     []string
		noop         bool
		configPath   string
		verbose      bool
		sourceMapOut string
	)

	cmd := &cobra.Command{
		Use:   "metav [top_module]",
		Short: "Run embedded metav scripts over a Verilog module hierarchy and rewrite the touched sources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			topModule := args[0]
			log := metavlog.New(verbose)

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			cfg = config.Overlay{
				IncludePaths: includeDirs,
				ModulePaths:  modPaths,
				NoWrite:      &noop,
			}.Apply(cfg)

			if err := cfg.Validate(topModule); err != nil {
				return err
			}

			log.Stage("driver").Infof("running top module %s", topModule)

			d := driver.New(driver.Config{
				IncludePaths: cfg.IncludePaths,
				ModulePaths:  cfg.ModulePaths,
				Defines:      cfg.Defines,
			}, noopExecutor{})

			outs, err := d.Run(topModule, cfg.NoWrite)
			if err != nil {
				return reportError(err, cfg.Diagnostics.Style == "color")
			}
			if sourceMapOut != "" {
				if err := writeSourceMap(d, topModule, sourceMapOut); err != nil {
					return err
				}
			}
			fmt.Println(ui.RenderSummary(len(outs), cfg.NoWrite))
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&includeDirs, "include", "I", nil, "`include search directory (repeatable)")
	cmd.Flags().StringSliceVarP(&modPaths, "modpath", "y", nil, "module search directory (repeatable)")
	cmd.Flags().BoolVarP(&noop, "noop", "n", false, "compute the edit plan but do not write any files")
	cmd.Flags().StringVar(&configPath, "config", "", "path to a metav.toml configuration file")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().StringVar(&sourceMapOut, "emit-sourcemap", "", "write a combined Source Map v3 document describing macro/include expansion provenance to this path")
	return cmd
}

// writeSourceMap encodes every source map the driver built this run into a
// single JSON document, keyed by the file whose annotated stream it maps,
// and writes it to path.
func writeSourceMap(d *driver.Driver, topModule, path string) error {
	combined := map[string]json.RawMessage{}
	for file, sm := range d.AllSourceMaps() {
		encoded, err := sm.Encode()
		if err != nil {
			return fmt.Errorf("encoding source map for %s: %w", file, err)
		}
		combined[file] = encoded
	}
	out, err := json.MarshalIndent(combined, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling source maps for %s: %w", topModule, err)
	}
	return os.WriteFile(path, out, 0644)
}

func reportError(err error, colorize bool) error {
	if diags, ok := err.(*metaverr.Diagnostics); ok {
		for _, e := range diags.All() {
			fmt.Fprintln(os.Stderr, ui.RenderDiagnostic(e, colorize))
		}
		return err
	}
	if me, ok := err.(*metaverr.MetavError); ok {
		fmt.Fprintln(os.Stderr, ui.RenderDiagnostic(me, colorize))
		return err
	}
	fmt.Fprintln(os.Stderr, err)
	return err
}

// noopExecutor is the default script.Executor wired when no embedding
// host is configured: any metav block encountered is a hard error rather
// than silently ignored, so a user invoking the bare CLI on a file that
// does have scripts gets a clear ScriptError instead of unexplained
// missing edits.
type noopExecutor struct{}

func (noopExecutor) Run(source string, caps script.Capabilities) error {
	return fmt.Errorf("no script host configured: metav was built without an embedded script executor")
}
