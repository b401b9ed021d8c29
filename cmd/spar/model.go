package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chazu/spar/pkg/geom"
	"github.com/chazu/spar/pkg/parm"
	"github.com/chazu/spar/pkg/project"
	"github.com/spf13/cobra"
)

func newDemoCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "demo",
		Short: "Write a sample glider project to --file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := buildDemo(e)
			if err != nil {
				return err
			}
			defer p.Close()
			if err := e.save(p); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d geoms)\n", e.file, p.Model.Len())
			return nil
		},
	}
}

// buildDemo assembles a fuselage pod with a mirrored wing and ground
// plane. The wing span follows a user parm through a link.
func buildDemo(e *env) (*project.Project, error) {
	p := project.New(e.options()...)
	pod, err := p.Add("Pod", "")
	if err != nil {
		return nil, err
	}
	pod.SetName("Fuselage")
	wing, err := p.Add("Wing", pod.ID())
	if err != nil {
		return nil, err
	}
	wing.SetName("MainWing")
	wing.SymPlanar.Set(geom.SymXZ)
	wing.TransAttach.Set(geom.AttachUV)
	wing.ULoc.Set(0.35)
	ground, err := p.Add("Ground", "")
	if err != nil {
		return nil, err
	}
	ground.SetName("Ground")

	span, err := p.Links.UserParms().Add("Span", "", 12, 1, 100)
	if err != nil {
		return nil, err
	}
	wingSpan := wing.FindParmInGroup(geom.GroupDesign, "Span")
	if _, err := p.Links.Add(span.ID(), wingSpan.ID(), false); err != nil {
		return nil, err
	}
	p.Update()
	return p, nil
}

func newShowCmd(e *env) *cobra.Command {
	var parms bool
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the geometry tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := e.open()
			if err != nil {
				return err
			}
			defer p.Close()
			w := cmd.OutOrStdout()
			for _, id := range p.Model.TopLevel() {
				printTree(w, p.Model, id, 0, parms)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&parms, "parms", "p", false, "also print every parm")
	return cmd
}

func printTree(w io.Writer, m *geom.Model, id parm.ID, depth int, parms bool) {
	g := m.Get(id)
	if g == nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	fmt.Fprintf(w, "%s%s [%s] %s copies=%d\n", indent, g.Name(), g.TypeName(), g.ID(), g.NumSymmCopies())
	if parms {
		for _, group := range g.GroupNames() {
			for _, pm := range g.GroupParms(group) {
				fmt.Fprintf(w, "%s  %s:%s = %s\n", indent, group, pm.Name(), strconv.FormatFloat(pm.Get(), 'g', 6, 64))
			}
		}
	}
	for _, c := range g.Children() {
		printTree(w, m, c, depth+1, parms)
	}
}

func newSetCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "set Owner:Group:Name value",
		Short: "Commit a parm value as an interactive edit",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("value %q: %w", args[1], err)
			}
			return e.edit(func(p *project.Project) error {
				pm, err := lookup(p, args[0])
				if err != nil {
					return err
				}
				got, err := p.Edit(pm.ID(), v)
				if err != nil {
					return err
				}
				p.Update()
				fmt.Fprintf(cmd.OutOrStdout(), "%s = %g\n", args[0], got)
				return nil
			})
		},
	}
}

func newUpdateCmd(e *env) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "update",
		Short: "Recompute every dirty geom and save",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.edit(func(p *project.Project) error {
				var n int
				if force {
					n = p.Model.ForceUpdate(geom.DirtyAll)
				} else {
					n = p.Update()
				}
				fmt.Fprintf(cmd.OutOrStdout(), "updated %d geoms\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "mark every geom dirty first")
	return cmd
}

func newCheckCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the geometry tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := e.open()
			if err != nil {
				return err
			}
			defer p.Close()
			errs := p.Check()
			for _, ve := range errs {
				fmt.Fprintln(cmd.OutOrStdout(), ve.Error())
			}
			if geom.HasErrors(errs) {
				return fmt.Errorf("%s: %d problems", e.file, len(errs))
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok")
			return nil
		},
	}
}
