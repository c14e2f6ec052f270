package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Neumenon/lha/lha"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch <file>",
		Short: "Re-parse a file whenever it changes",
		Long: `Parses the file once, then again after every write, create or rename in
its directory that touches it. Each parse prints a summary line or the parse
error. Stops on SIGINT or SIGTERM.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			return a.watchFile(ctx, args[0], func(doc *lha.Document, err error) {
				if err != nil {
					fmt.Fprintf(out, "FAIL\t%s\t%v\n", args[0], err)
					return
				}
				fmt.Fprintf(out, "ok\t%s\t%d blocks\t%d decays\t%016x\n",
					args[0], len(doc.Blocks()), len(doc.Decays()), doc.Fingerprint())
			})
		},
	}
}

// watchFile calls onParse with the result of parsing path, first right
// after the watch is installed and then after each change. The directory
// is watched rather than the file so editors that replace the file on
// save are still seen.
func (a *app) watchFile(ctx context.Context, path string, onParse func(*lha.Document, error)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	a.logger.Info("watching", zap.String("file", abs))

	parse := func() {
		f, err := os.Open(abs)
		if err != nil {
			onParse(nil, err)
			return
		}
		defer f.Close()
		onParse(lha.ParseReader(f, a.parseOptions()))
	}
	parse()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			a.logger.Debug("file changed", zap.String("file", abs), zap.Stringer("op", event.Op))
			parse()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("watch error", zap.Error(err))
		}
	}
}
