package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/chazu/spar/internal/config"
	"github.com/chazu/spar/pkg/metrics"
	"github.com/chazu/spar/pkg/parm"
	"github.com/chazu/spar/pkg/project"
	"github.com/spf13/cobra"
)

// env is the state shared by every subcommand.
type env struct {
	configPath string
	file       string

	cfg config.Config
	log *slog.Logger
	met *metrics.Metrics
}

func newRootCmd() *cobra.Command {
	e := &env{}
	root := &cobra.Command{
		Use:           "spar",
		Short:         "Parametric geometry projects: build, link, update and inspect",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Path(e.configPath))
			if err != nil {
				return err
			}
			e.cfg = cfg
			e.log = cfg.Logger(cmd.ErrOrStderr())
			return nil
		},
	}
	root.PersistentFlags().StringVar(&e.configPath, "config", "", "config file (default $"+config.EnvPath+")")
	root.PersistentFlags().StringVarP(&e.file, "file", "f", "spar.xml", "project document")

	root.AddCommand(
		newDemoCmd(e),
		newShowCmd(e),
		newSetCmd(e),
		newUpdateCmd(e),
		newRenderCmd(e),
		newSolidCmd(e),
		newCheckCmd(e),
		newLinkCmd(e),
		newScriptCmd(e),
		newPresetCmd(e),
		newStoreCmd(e),
		newWatchCmd(e),
	)
	return root
}

func (e *env) options() []project.Option {
	opts := []project.Option{
		project.WithLogger(e.log),
		project.WithFullUpdate(e.cfg.Update.Full),
		project.WithImmediateUpdate(e.cfg.Update.Immediate),
		project.WithScriptTimeout(e.cfg.Script.Timeout),
		project.WithUndoDepth(e.cfg.Undo.Depth),
		project.WithTess(e.cfg.Tess.U, e.cfg.Tess.W),
	}
	if e.met != nil {
		opts = append(opts, project.WithMetrics(e.met))
	}
	return opts
}

// open loads the project document.
func (e *env) open() (*project.Project, error) {
	f, err := os.Open(e.file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	p, warns, err := project.Load(f, e.options()...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.file, err)
	}
	if len(warns) > 0 {
		e.log.Info("project loaded with warnings", "file", e.file, "warnings", len(warns))
	}
	return p, nil
}

// save writes p back to the project document.
func (e *env) save(p *project.Project) (err error) {
	f, err := os.Create(e.file)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return p.Save(f)
}

// edit opens the project, runs fn and saves the result.
func (e *env) edit(fn func(p *project.Project) error) error {
	p, err := e.open()
	if err != nil {
		return err
	}
	defer p.Close()
	if err := fn(p); err != nil {
		return err
	}
	return e.save(p)
}

var errParmPath = errors.New("parm path must be Owner:Group:Name")

// lookup resolves an Owner:Group:Name path.
func lookup(p *project.Project, path string) (*parm.Parm, error) {
	parts := strings.Split(path, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("%q: %w", path, errParmPath)
	}
	return p.FindParm(parts[0], parts[1], parts[2])
}

// parmPath is the inverse of lookup.
func parmPath(p *project.Project, id parm.ID) string {
	pm := p.Registry.Parm(id)
	if pm == nil {
		return string(id)
	}
	owner := "?"
	if c := pm.Container(); c != nil {
		owner = c.Name()
	}
	return owner + ":" + pm.Group() + ":" + pm.Name()
}
