package cmd

import (
	"context"
	"fmt"

	"amalgam/pkg/amalgam"
	"amalgam/pkg/logging"
	"amalgam/pkg/version"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// logger is built from the persistent flags before any command runs.
var logger = zap.NewNop()

// flags holds the raw flag values shared by the root and merge commands.
var flags struct {
	debug      bool
	configPath string
	args       amalgam.Arguments
	pragmaOnce string
	check      bool
	watch      bool
	debounce   string
}

// RootCmd is the base command; without a subcommand it runs a merge.
var RootCmd = &cobra.Command{
	Use:   "amalgam",
	Short: "Amalgam flattens a header tree into a single file",
	Long: `Amalgam follows the local #include "..." directives of an entry header and
writes every reachable fragment, once each and in include order, into one
self-contained header suitable for single-file distribution.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := logging.New(flags.debug, "amalgam", version.Get().Version)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	RunE: runMerge,
}

// Logger returns the logger configured for the current invocation.
func Logger() *zap.Logger {
	return logger
}

func init() {
	defaults := amalgam.DefaultArguments()
	pf := RootCmd.PersistentFlags()

	pf.BoolVar(&flags.debug, "debug", false, "Enable debug logging")
	pf.StringVarP(&flags.configPath, "config", "c", "", "Path to a YAML config file")
	pf.StringVarP(&flags.args.DevFolder, "dev", "d", defaults.DevFolder, "Development folder holding the entry fragment")
	pf.StringVarP(&flags.args.Entry, "entry", "e", defaults.Entry, "Entry fragment, relative to the development folder")
	pf.StringVarP(&flags.args.Output, "output", "o", defaults.Output, "Destination of the amalgamated file")
	pf.StringVarP(&flags.args.Tree, "tree", "t", "", "Optional destination of the include tree report")
	pf.StringVar(&flags.pragmaOnce, "pragma-once", string(defaults.PragmaOnce), "Guard retention: elide-all or keep-first")
	pf.BoolVar(&flags.args.SeparateFragments, "separate", false, "Emit one blank line before each inlined fragment")
	pf.BoolVar(&flags.args.Annotate, "annotate", false, "Emit an '// inlined' comment before each inlined fragment")
	pf.StringSliceVarP(&flags.args.Passthrough, "passthrough", "p", nil, "Include patterns written through instead of inlined")
	pf.StringVar(&flags.args.IgnoreFile, "ignore-file", defaults.IgnoreFile, "Passthrough pattern file, relative to the development folder")
	pf.BoolVar(&flags.check, "check", false, "Fail if the existing output differs from a fresh merge")
	pf.BoolVarP(&flags.watch, "watch", "w", false, "Rebuild whenever a fragment changes")
	pf.StringVar(&flags.debounce, "debounce", amalgam.DefaultDebounce.String(), "Quiet period before a watch rebuild")
}

// Execute runs the root command; ctx cancels merges and watch loops.
func Execute(ctx context.Context) error {
	err := RootCmd.ExecuteContext(ctx)
	if err != nil && !logger.Core().Enabled(zap.ErrorLevel) {
		// Flag errors surface before PersistentPreRunE has built the logger.
		if l, logErr := logging.New(flags.debug, "amalgam", version.Get().Version); logErr == nil {
			logger = l
		}
	}
	return err
}

// resolveArguments layers defaults, the optional config file and explicitly set flags.
func resolveArguments(cmd *cobra.Command) (amalgam.Arguments, error) {
	args := amalgam.DefaultArguments()

	if flags.configPath != "" {
		loaded, err := amalgam.LoadConfigFile(flags.configPath, args)
		if err != nil {
			return args, err
		}
		args = loaded
		logger.Debug("Loaded config file", zap.String("path", flags.configPath))
	}

	changed := cmd.Flags().Changed
	if changed("dev") {
		args.DevFolder = flags.args.DevFolder
	}
	if changed("entry") {
		args.Entry = flags.args.Entry
	}
	if changed("output") {
		args.Output = flags.args.Output
	}
	if changed("tree") {
		args.Tree = flags.args.Tree
	}
	if changed("pragma-once") {
		policy, err := amalgam.ParsePragmaPolicy(flags.pragmaOnce)
		if err != nil {
			return args, err
		}
		args.PragmaOnce = policy
	}
	if changed("separate") {
		args.SeparateFragments = flags.args.SeparateFragments
	}
	if changed("annotate") {
		args.Annotate = flags.args.Annotate
	}
	if changed("passthrough") {
		args.Passthrough = append(args.Passthrough, flags.args.Passthrough...)
	}
	if changed("ignore-file") {
		args.IgnoreFile = flags.args.IgnoreFile
	}

	return args, args.Validate()
}
