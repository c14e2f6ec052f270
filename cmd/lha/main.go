// Command lha reads, queries and rewrites Les Houches Accord files.
//
// Usage:
//
//	lha fmt [file]                        Re-emit a file in canonical form
//	lha get <file> <block> [key]          Print a block or one keyed value
//	lha decay <file> <pdgid>              Print a decay table
//	lha br <file> <pdgid> <id1> <id2>     Print a two-body branching ratio
//	lha check <file>...                   Parse files concurrently
//	lha hash [file]                       Print document fingerprints
//	lha frame <file>...                   Wrap documents in stream frames
//	lha unframe [file]                    Unwrap stream frames into LHA text
//	lha watch <file>                      Re-parse a file whenever it changes
//	lha shell <file>                      Interactive query prompt
//	lha version                           Show version
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Neumenon/lha/internal/config"
	"github.com/Neumenon/lha/lha"
)

const version = "0.1.0"

// app carries state shared by all subcommands once the root pre-run has
// loaded configuration.
type app struct {
	configPath string
	verbose    bool
	trace      bool
	precision  int

	cfg    *config.Config
	logger *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "lha: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "lha",
		Short: "Les Houches Accord file tool",
		Long: `lha parses, queries and re-emits Les Houches Accord (SLHA) files.

Configuration is read from .lha.yaml in the working directory (or --config).
LHA_TRACE, LHA_LOG_LEVEL and LHA_LOG_FORMAT override the file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", config.DefaultFileName, "config file path")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")
	pf.BoolVar(&a.trace, "trace", false, "log every classified line")
	pf.IntVar(&a.precision, "precision", 0, "float digits after the point (overrides config)")

	root.AddCommand(
		newFmtCmd(a),
		newGetCmd(a),
		newDecayCmd(a),
		newBRCmd(a),
		newCheckCmd(a),
		newHashCmd(a),
		newFrameCmd(a),
		newUnframeCmd(a),
		newWatchCmd(a),
		newShellCmd(a),
		newVersionCmd(),
	)
	return root
}

// setup loads configuration, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.trace {
		cfg.Trace = true
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	if cmd.Flags().Changed("precision") {
		cfg.Emit.Precision = a.precision
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := cfg.NewLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) parseOptions() lha.ParseOptions {
	return a.cfg.ParseOptions(a.logger)
}

// readDocument parses path, or stdin when path is "" or "-".
func (a *app) readDocument(cmd *cobra.Command, path string) (*lha.Document, error) {
	var r io.Reader = cmd.InOrStdin()
	name := "<stdin>"
	if path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
		name = path
	}

	doc, err := lha.ParseReader(r, a.parseOptions())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	a.logger.Debug("parsed document",
		zap.String("file", name),
		zap.Int("blocks", len(doc.Blocks())),
		zap.Int("decays", len(doc.Decays())))
	return doc, nil
}

func optionalArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Args:  cobra.NoArgs,
		// No config needed.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lha version %s\n", version)
		},
	}
}
