package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/chazu/spar/pkg/preset"
	"github.com/chazu/spar/pkg/project"
	"github.com/chazu/spar/pkg/store"
	"github.com/chazu/spar/pkg/xmldoc"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

func newStoreCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "store",
		Short: "Keep named designs in the local database",
	}
	var dbPath string
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "database path (default from config)")

	withStore := func(cmd *cobra.Command, fn func(ctx context.Context, s *store.Store) error) error {
		path := dbPath
		if path == "" {
			path = e.cfg.Store.Path
		}
		s, err := store.Open(path)
		if err != nil {
			return err
		}
		defer s.Close()
		return fn(cmd.Context(), s)
	}

	put := &cobra.Command{
		Use:   "put NAME",
		Short: "Store --file under NAME",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := e.open()
			if err != nil {
				return err
			}
			defer p.Close()
			doc, err := p.Marshal()
			if err != nil {
				return err
			}
			holder := xmldoc.New(preset.ElemVarPresets + "Doc")
			p.Presets.Encode(holder)
			presets, err := xmldoc.Marshal(holder)
			if err != nil {
				return err
			}
			return withStore(cmd, func(ctx context.Context, s *store.Store) error {
				if err := s.PutDesign(ctx, args[0], doc); err != nil {
					return err
				}
				if err := s.PutPresets(ctx, args[0], presets); err != nil {
					return err
				}
				e.log.Info("design stored", "name", args[0], "bytes", len(doc), "db", s.Path())
				return nil
			})
		},
	}

	var presetsFrom string
	get := &cobra.Command{
		Use:   "get NAME",
		Short: "Write the stored design NAME to --file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *store.Store) error {
				doc, err := s.GetDesign(ctx, args[0])
				if err != nil {
					return err
				}
				p, warns, err := project.Unmarshal(doc, e.options()...)
				if err != nil {
					return err
				}
				defer p.Close()
				if presetsFrom != "" {
					more, err := loadPresets(ctx, s, p, presetsFrom)
					if err != nil {
						return err
					}
					warns = append(warns, more...)
				}
				for _, w := range warns {
					fmt.Fprintln(cmd.ErrOrStderr(), w)
				}
				return e.save(p)
			})
		},
	}
	get.Flags().StringVar(&presetsFrom, "presets-from", "", "replace the presets with those stored for another design")

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List stored designs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *store.Store) error {
				entries, err := s.ListDesigns(ctx)
				if err != nil {
					return err
				}
				for _, en := range entries {
					fmt.Fprintf(cmd.OutOrStdout(), "%-24s %8d %s\n", en.Name, en.Size, en.Updated.Format(time.RFC3339))
				}
				return nil
			})
		},
	}

	rm := &cobra.Command{
		Use:   "rm NAME",
		Short: "Delete a stored design",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, func(ctx context.Context, s *store.Store) error {
				return s.DeleteDesign(ctx, args[0])
			})
		},
	}

	cmd.AddCommand(put, get, ls, rm)
	return cmd
}

// loadPresets replaces the presets of p with those stored for design.
// Parms missing from p are dropped with a warning.
func loadPresets(ctx context.Context, s *store.Store, p *project.Project, design string) ([]string, error) {
	data, err := s.GetPresets(ctx, design)
	if err != nil {
		return nil, err
	}
	holder, err := xmldoc.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("presets of %s: %w", design, err)
	}
	return p.Presets.Decode(holder.Child(preset.ElemVarPresets), nil), nil
}

func newWatchCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload and summarize --file whenever it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return watch(ctx, e, cmd)
		},
	}
}

func watch(ctx context.Context, e *env, cmd *cobra.Command) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(e.file)
	if err != nil {
		return err
	}
	// Editors replace files by rename, so watch the directory.
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	summarize(e, cmd)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Name != abs || !ev.Op.Has(fsnotify.Write) && !ev.Op.Has(fsnotify.Create) {
				continue
			}
			summarize(e, cmd)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.log.Warn("watch error", "error", err)
		}
	}
}

// summarize prints one line per reload. Load failures are only logged.
func summarize(e *env, cmd *cobra.Command) {
	data, err := os.ReadFile(e.file)
	if err != nil {
		e.log.Warn("reload failed", "file", e.file, "error", err)
		return
	}
	p, warns, err := project.Load(bytes.NewReader(data), e.options()...)
	if err != nil {
		e.log.Warn("reload failed", "file", e.file, "error", err)
		return
	}
	defer p.Close()
	fmt.Fprintf(cmd.OutOrStdout(), "%s geoms=%d links=%d scripts=%d warnings=%d problems=%d\n",
		time.Now().Format(time.TimeOnly), p.Model.Len(), p.Links.Len(), len(p.AdvLinks.Links()), len(warns), len(p.Check()))
}
