package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Neumenon/lha/lha"
	"github.com/Neumenon/lha/stream"
)

// ============================================================
// fmt
// ============================================================

func newFmtCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "fmt [file]",
		Short: "Re-emit a file in canonical form",
		Long: `Parses an LHA file (or stdin) and writes it back with tab separators and
fixed-precision exponential floats. Comments on headers and entries are kept;
comment lines outside any block are dropped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			doc, err := a.readDocument(cmd, optionalArg(args))
			if err != nil {
				return err
			}
			w, closeFn, err := openOutput(cmd, output)
			if err != nil {
				return err
			}
			defer closeOutput(closeFn, &err)
			_, err = lha.WriteLines(w, lha.EmitWithOptions(doc, a.cfg.EmitOptions()))
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

// openOutput returns stdout or a created file. The returned close
// function reports the file's close error.
func openOutput(cmd *cobra.Command, path string) (io.Writer, func() error, error) {
	if path == "" || path == "-" {
		return cmd.OutOrStdout(), func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, f.Close, nil
}

// closeOutput runs closeFn and keeps its error when *err is still nil.
func closeOutput(closeFn func() error, err *error) {
	if cerr := closeFn(); *err == nil {
		*err = cerr
	}
}

// ============================================================
// get / decay / br
// ============================================================

func newGetCmd(a *app) *cobra.Command {
	var index int
	cmd := &cobra.Command{
		Use:   "get <file> <block> [key]",
		Short: "Print a block or one keyed value",
		Long: `Without a key, prints the whole block. With a key, prints the value of the
first two-value entry whose first value equals the key. Keys are classified
like entry tokens, so "1" and "1.0E+00" match the same entry.`,
		Example: `  lha get spectrum.slha MASS 25
  lha get spectrum.slha SPINFO 1
  lha get spectrum.slha NMIX --index 0`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			block, err := doc.Block(args[1])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			switch {
			case len(args) == 3:
				key, err := lha.ParseValue(args[2])
				if err != nil {
					return err
				}
				v, err := block.EntryByKey(key)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, v)
			case cmd.Flags().Changed("index"):
				e, err := block.EntryByIndex(index)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, strings.TrimPrefix(e.String(), "\t"))
			default:
				sub := lha.NewDocument()
				if err := sub.AddBlock(block); err != nil {
					return err
				}
				_, err = lha.WriteLines(out, lha.EmitWithOptions(sub, a.cfg.EmitOptions()))
				return err
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&index, "index", 0, "print the entry at this position")
	return cmd
}

func newDecayCmd(a *app) *cobra.Command {
	var widthOnly bool
	cmd := &cobra.Command{
		Use:   "decay <file> <pdgid>",
		Short: "Print a decay table",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pdgid, err := parsePDGID(args[1])
			if err != nil {
				return err
			}
			doc, err := a.readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			dec, err := doc.Decay(pdgid)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if widthOnly {
				fmt.Fprintln(out, formatFloat(dec.Width(), a.cfg.Emit.Precision))
				return nil
			}
			sub := lha.NewDocument()
			sub.AddDecay(dec)
			_, err = lha.WriteLines(out, lha.EmitWithOptions(sub, a.cfg.EmitOptions()))
			return err
		},
	}
	cmd.Flags().BoolVar(&widthOnly, "width", false, "print only the total width")
	return cmd
}

func newBRCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "br <file> <pdgid> <id1> <id2>",
		Short: "Print a two-body branching ratio",
		Long: `Prints the branching ratio of the first channel in the decay table of
<pdgid> whose daughters are exactly <id1> <id2>, in that order.`,
		Example: `  lha br spectrum.slha 25 5 -5`,
		Args:    cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 3)
			for i, s := range args[1:] {
				id, err := parsePDGID(s)
				if err != nil {
					return err
				}
				ids[i] = id
			}
			doc, err := a.readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			dec, err := doc.Decay(ids[0])
			if err != nil {
				return err
			}
			br, err := dec.BranchingRatio(ids[1], ids[2])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatFloat(br, a.cfg.Emit.Precision))
			return nil
		},
	}
}

func parsePDGID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid PDG id %q", s)
	}
	return id, nil
}

func formatFloat(f float64, precision int) string {
	return strconv.FormatFloat(f, 'e', precision, 64)
}

// ============================================================
// check
// ============================================================

type checkResult struct {
	path   string
	blocks int
	decays int
	err    error
}

func newCheckCmd(a *app) *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "check <file>...",
		Short: "Parse files concurrently and report errors",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := a.checkFiles(cmd, args, jobs)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, r := range results {
				if r.err != nil {
					failed++
					fmt.Fprintf(out, "FAIL\t%s\t%v\n", r.path, r.err)
					continue
				}
				fmt.Fprintf(out, "ok\t%s\t%d blocks\t%d decays\n", r.path, r.blocks, r.decays)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(results))
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.GOMAXPROCS(0), "files parsed in parallel")
	return cmd
}

// checkFiles parses every path with bounded concurrency. Per-file
// failures are recorded in the results; only cancellation aborts.
func (a *app) checkFiles(cmd *cobra.Command, paths []string, jobs int) ([]checkResult, error) {
	results := make([]checkResult, len(paths))
	g, ctx := errgroup.WithContext(cmd.Context())
	if jobs > 0 {
		g.SetLimit(jobs)
	}

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r := checkResult{path: path}
			f, err := os.Open(path)
			if err != nil {
				r.err = err
				results[i] = r
				return nil
			}
			defer f.Close()

			doc, err := lha.ParseReader(f, a.parseOptions())
			if err != nil {
				a.logger.Debug("check failed", zap.String("file", path), zap.Error(err))
				r.err = err
			} else {
				r.blocks = len(doc.Blocks())
				r.decays = len(doc.Decays())
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ============================================================
// hash
// ============================================================

func newHashCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hash [file]",
		Short: "Print document fingerprints",
		Long: `Prints the xxhash64 fingerprint and the SHA-256 of the canonical text.
Two files that re-emit to the same text share both hashes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readDocument(cmd, optionalArg(args))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "xxh64\t%016x\n", doc.Fingerprint())
			fmt.Fprintf(out, "sha256\t%s\n", stream.HashToHex(stream.StateHash(doc)))
			return nil
		},
	}
}

// ============================================================
// frame / unframe
// ============================================================

func newFrameCmd(a *app) *cobra.Command {
	var (
		sid      uint64
		output   string
		crc      bool
		compress bool
		noFinal  bool
	)
	cmd := &cobra.Command{
		Use:   "frame <file>...",
		Short: "Wrap documents in stream frames",
		Long: `Writes each file as one doc frame on stream <sid>, numbered from seq 0,
followed by a final frame. CRC and compression default to the config.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			if !cmd.Flags().Changed("crc") {
				crc = a.cfg.Frame.CRC
			}
			if !cmd.Flags().Changed("compress") {
				compress = a.cfg.Frame.Compress
			}

			w, closeFn, err := openOutput(cmd, output)
			if err != nil {
				return err
			}
			defer closeOutput(closeFn, &err)

			opts := []stream.WriterOption{stream.WithEmitOptions(a.cfg.EmitOptions())}
			if crc {
				opts = append(opts, stream.WithCRC())
			}
			if compress {
				opts = append(opts, stream.WithCompression())
			}
			sw := stream.NewWriter(w, opts...)

			var seq uint64
			for _, path := range args {
				doc, err := a.readDocument(cmd, path)
				if err != nil {
					return err
				}
				if err := sw.WriteDocument(sid, seq, doc); err != nil {
					return err
				}
				a.logger.Debug("wrote frame", zap.String("file", path), zap.Uint64("sid", sid), zap.Uint64("seq", seq))
				seq++
			}
			if noFinal {
				return nil
			}
			return sw.WriteFinal(sid, seq)
		},
	}
	f := cmd.Flags()
	f.Uint64Var(&sid, "sid", 1, "stream id")
	f.StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	f.BoolVar(&crc, "crc", true, "add CRC-32 to each frame")
	f.BoolVar(&compress, "compress", false, "zstd-compress payloads")
	f.BoolVar(&noFinal, "no-final", false, "omit the closing final frame")
	return cmd
}

func newUnframeCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "unframe [file]",
		Short: "Unwrap stream frames into LHA text",
		Long: `Reads frames until EOF, or until every stream seen has sent a final frame,
and writes each document payload as LHA text. Error frames, duplicates and
reordered frames are logged and skipped.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			var in io.Reader = cmd.InOrStdin()
			if path := optionalArg(args); path != "" && path != "-" {
				f, err := os.Open(path)
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}
			w, closeFn, err := openOutput(cmd, output)
			if err != nil {
				return err
			}
			defer closeOutput(closeFn, &err)

			return a.unframe(in, w)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to file instead of stdout")
	return cmd
}

// unframe copies every accepted document in the frame stream to w. It
// stops at EOF or once every stream seen so far has sent its final frame.
func (a *app) unframe(in io.Reader, w io.Writer) error {
	r := stream.NewReader(in,
		stream.WithMaxPayload(a.cfg.Frame.MaxPayload),
		stream.WithParseOptions(a.parseOptions()))
	cursor := stream.NewCursor()

	for !cursor.AllFinal() {
		frame, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}

		gap, err := cursor.Observe(frame)
		if err != nil {
			a.logger.Warn("skipping frame", zap.Error(err))
			continue
		}
		if gap {
			a.logger.Warn("sequence gap", zap.Uint64("sid", frame.SID), zap.Uint64("seq", frame.Seq))
		}

		switch frame.Kind {
		case stream.KindDoc:
			doc, err := r.Document(frame)
			if err != nil {
				return err
			}
			cursor.SetDocument(frame.SID, doc)
			if _, err := lha.WriteLines(w, lha.EmitWithOptions(doc, a.cfg.EmitOptions())); err != nil {
				return err
			}
		case stream.KindErr:
			a.logger.Warn("error frame",
				zap.Uint64("sid", frame.SID),
				zap.Uint64("seq", frame.Seq),
				zap.ByteString("message", frame.Payload))
		}
	}

	for _, sid := range cursor.SIDs() {
		state, _ := cursor.Lookup(sid)
		a.logger.Debug("stream done",
			zap.Uint64("sid", sid),
			zap.Int("docs", state.Docs),
			zap.Int("gaps", state.Gaps),
			zap.Int("rejected", state.Rejected),
			zap.Bool("final", state.Final))
	}
	return nil
}
