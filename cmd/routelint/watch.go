package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"os"
	"os/signal"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch [flags] [dir]",
	Short: "Re-analyze packages whenever their Go files change",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().Bool("publish", false, "publish reports to the configured message broker")
	watchCmd.Flags().Int("jobs", 0, "max packages analyzed in parallel (0=auto)")
	watchCmd.Flags().Duration("debounce", 200*time.Millisecond,
		"quiet period after a change before analyzing")
}

func runWatch(cmd *cobra.Command, args []string) error {
	log, conf, err := setup(cmd)
	if err != nil {
		return err
	}
	publish, err := cmd.Flags().GetBool("publish")
	if err != nil {
		return fmt.Errorf("failed to get publish flag: %w", err)
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	debounce, err := cmd.Flags().GetDuration("debounce")
	if err != nil {
		return fmt.Errorf("failed to get debounce flag: %w", err)
	}
	root := "."
	if len(args) > 0 {
		root = args[0]
	}
	if root, err = filepath.Abs(root); err != nil {
		return err
	}

	p, err := newPipeline(log, conf, true, publish)
	if err != nil {
		return err
	}
	defer p.close()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() {
		if err := w.Close(); err != nil {
			log.Error("closing watcher", slog.Any("err", err))
		}
	}()
	if err := watchTree(w, root); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer cancel()

	wr := &watchRun{log: log, p: p, root: root, jobs: jobs}
	wr.check(ctx, []string{"./..."})

	timer := time.NewTimer(debounce)
	timer.Stop()
	dirty := map[string]struct{}{}
	for {
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error("watching files", slog.Any("err", err))
		case e, ok := <-w.Events:
			if !ok {
				return nil
			}
			if e.Has(fsnotify.Create) {
				if st, err := os.Stat(e.Name); err == nil && st.IsDir() {
					if err := watchTree(w, e.Name); err != nil {
						log.Warn("watching new directory",
							slog.String("dir", e.Name), slog.Any("err", err))
					}
					continue
				}
			}
			if !isGoSource(e.Name) || e.Op == fsnotify.Chmod {
				continue
			}
			log.Debug("change", slog.String("file", e.Name), slog.String("op", e.Op.String()))
			dirty[filepath.Dir(e.Name)] = struct{}{}
			timer.Reset(debounce)
		case <-timer.C:
			patterns := packagePatterns(root, slices.Sorted(maps.Keys(dirty)))
			clear(dirty)
			if len(patterns) > 0 {
				wr.check(ctx, patterns)
			}
		}
	}
}

type watchRun struct {
	log  *slog.Logger
	p    *pipeline
	root string
	jobs int
}

func (wr *watchRun) check(ctx context.Context, patterns []string) {
	fmt.Fprintf(os.Stdout, "%s %s\n",
		colorCode.Sprint(time.Now().Format(time.TimeOnly)),
		colorPos.Sprint(strings.Join(patterns, " ")))
	results, err := wr.p.run(ctx, wr.root, patterns, wr.jobs)
	if err != nil {
		wr.log.Error("analyzing", slog.Any("err", err))
		return
	}
	pr := newPrinter(os.Stdout)
	for _, r := range results {
		pr.result(r)
	}
	pr.summary(results, wr.p.conf.FailOn.Severity())
	if err := wr.p.publish(ctx, results); err != nil {
		wr.log.Error("publishing reports", slog.Any("err", err))
	}
}

// watchTree adds dir and its subdirectories to w. Hidden directories,
// vendor and testdata are skipped.
func watchTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

func skipDir(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_") ||
		name == "vendor" || name == "testdata" || name == "node_modules"
}

func isGoSource(name string) bool {
	return strings.HasSuffix(name, ".go") && !strings.HasSuffix(name, "_test.go")
}

// packagePatterns converts directories under root to
// package patterns relative to root.
func packagePatterns(root string, dirs []string) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		rel, err := filepath.Rel(root, d)
		if err != nil || strings.HasPrefix(rel, "..") {
			continue
		}
		if rel == "." {
			out = append(out, ".")
			continue
		}
		out = append(out, "./"+filepath.ToSlash(rel))
	}
	return out
}
