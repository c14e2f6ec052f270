package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/Neumenon/lha/lha"
)

var shellCompleter = readline.NewPrefixCompleter(
	readline.PcItem("help"),
	readline.PcItem("blocks"),
	readline.PcItem("decays"),
	readline.PcItem("block"),
	readline.PcItem("get"),
	readline.PcItem("index"),
	readline.PcItem("decay"),
	readline.PcItem("width"),
	readline.PcItem("br"),
	readline.PcItem("hash"),
	readline.PcItem("reload"),
	readline.PcItem("exit"),
)

const shellHelp = `Commands:
  blocks                 - List block titles
  decays                 - List decaying particles and widths
  block NAME             - Print a block
  get NAME KEY           - Print the value keyed by KEY in block NAME
  index NAME N           - Print entry N of block NAME
  decay PDGID            - Print a decay table
  width PDGID            - Print a total width
  br PDGID ID1 ID2       - Print a two-body branching ratio
  hash                   - Print the document fingerprint
  reload                 - Re-read the file
  exit                   - Leave the shell
`

func newShellCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "shell <file>",
		Short: "Interactive query prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.readDocument(cmd, args[0])
			if err != nil {
				return err
			}
			sh := &shell{app: a, path: args[0], doc: doc, out: cmd.OutOrStdout()}
			return sh.run()
		},
	}
}

// shell holds one interactive session over a parsed file.
type shell struct {
	app  *app
	path string
	doc  *lha.Document
	out  io.Writer
}

var errQuit = errors.New("quit")

func (s *shell) run() error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          fmt.Sprintf("lha:%s> ", filepath.Base(s.path)),
		HistoryFile:     filepath.Join(os.TempDir(), ".lha_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		AutoComplete:    shellCompleter,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize readline: %w", err)
	}
	defer rl.Close()

	fmt.Fprintln(s.out, "Enter help for usage hints.")
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) == 0 {
				return nil
			}
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		if err := s.exec(line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
	}
}

// exec runs one shell command line. It returns errQuit on exit.
func (s *shell) exec(line string) error {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return nil
	}
	cmd, args := strings.ToLower(parts[0]), parts[1:]

	need := func(n int, usage string) error {
		if len(args) != n {
			return fmt.Errorf("usage: %s", usage)
		}
		return nil
	}
	precision := s.app.cfg.Emit.Precision

	switch cmd {
	case "help", ".help":
		fmt.Fprint(s.out, shellHelp)

	case "exit", "quit", ".exit":
		return errQuit

	case "blocks":
		for _, b := range s.doc.Blocks() {
			fmt.Fprintf(s.out, "%s\t%d entries\n", b.Title(), b.Len())
		}

	case "decays":
		for _, d := range s.doc.Decays() {
			fmt.Fprintf(s.out, "%d\t%s\t%d channels\n", d.PDGID(), formatFloat(d.Width(), precision), d.Len())
		}

	case "block":
		if err := need(1, "block NAME"); err != nil {
			return err
		}
		b, err := s.doc.Block(args[0])
		if err != nil {
			return err
		}
		sub := lha.NewDocument()
		if err := sub.AddBlock(b); err != nil {
			return err
		}
		_, err = lha.WriteLines(s.out, lha.EmitWithOptions(sub, s.app.cfg.EmitOptions()))
		return err

	case "get":
		if err := need(2, "get NAME KEY"); err != nil {
			return err
		}
		b, err := s.doc.Block(args[0])
		if err != nil {
			return err
		}
		key, err := lha.ParseValue(args[1])
		if err != nil {
			return err
		}
		v, err := b.EntryByKey(key)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, v)

	case "index":
		if err := need(2, "index NAME N"); err != nil {
			return err
		}
		b, err := s.doc.Block(args[0])
		if err != nil {
			return err
		}
		i, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid index %q", args[1])
		}
		e, err := b.EntryByIndex(i)
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, strings.TrimPrefix(e.String(), "\t"))

	case "decay", "width":
		if err := need(1, cmd+" PDGID"); err != nil {
			return err
		}
		id, err := parsePDGID(args[0])
		if err != nil {
			return err
		}
		d, err := s.doc.Decay(id)
		if err != nil {
			return err
		}
		if cmd == "width" {
			fmt.Fprintln(s.out, formatFloat(d.Width(), precision))
			return nil
		}
		sub := lha.NewDocument()
		sub.AddDecay(d)
		_, err = lha.WriteLines(s.out, lha.EmitWithOptions(sub, s.app.cfg.EmitOptions()))
		return err

	case "br":
		if err := need(3, "br PDGID ID1 ID2"); err != nil {
			return err
		}
		ids := make([]int64, 3)
		for i, a := range args {
			id, err := parsePDGID(a)
			if err != nil {
				return err
			}
			ids[i] = id
		}
		d, err := s.doc.Decay(ids[0])
		if err != nil {
			return err
		}
		br, err := d.BranchingRatio(ids[1], ids[2])
		if err != nil {
			return err
		}
		fmt.Fprintln(s.out, formatFloat(br, precision))

	case "hash":
		fmt.Fprintf(s.out, "%016x\n", s.doc.Fingerprint())

	case "reload":
		f, err := os.Open(s.path)
		if err != nil {
			return err
		}
		defer f.Close()
		doc, err := lha.ParseReader(f, s.app.parseOptions())
		if err != nil {
			return err
		}
		s.doc = doc
		fmt.Fprintf(s.out, "reloaded %s\n", s.path)

	default:
		return fmt.Errorf("unknown command %q (try help)", parts[0])
	}
	return nil
}
