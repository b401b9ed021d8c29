package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/chazu/spar/pkg/parm"
	"github.com/chazu/spar/pkg/project"
	"github.com/spf13/cobra"
)

func newLinkCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Manage parm-to-parm links",
	}

	var (
		keep   bool
		offset float64
		scale  float64
	)
	add := &cobra.Command{
		Use:   "add A B",
		Short: "Drive parm B from parm A",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.edit(func(p *project.Project) error {
				a, err := lookup(p, args[0])
				if err != nil {
					return err
				}
				b, err := lookup(p, args[1])
				if err != nil {
					return err
				}
				l, err := p.Links.Add(a.ID(), b.ID(), keep)
				if err != nil {
					return err
				}
				if cmd.Flags().Changed("scale") {
					l.ScaleFlag.SetBool(true)
					l.Scale.Set(scale)
				}
				if cmd.Flags().Changed("offset") {
					l.OffsetFlag.SetBool(true)
					l.Offset.Set(offset)
				}
				p.Update()
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s\n", l.ID(), args[0], args[1])
				return nil
			})
		},
	}
	add.Flags().BoolVar(&keep, "init", false, "set offset and scale so B keeps its value")
	add.Flags().Float64Var(&offset, "offset", 0, "offset added to A")
	add.Flags().Float64Var(&scale, "scale", 1, "factor applied to A")

	rm := &cobra.Command{
		Use:   "rm ID",
		Short: "Remove a link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.edit(func(p *project.Project) error {
				return p.Links.Remove(parm.ID(args[0]))
			})
		},
	}

	var userOnly bool
	ls := &cobra.Command{
		Use:   "ls",
		Short: "List links and user parms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := e.open()
			if err != nil {
				return err
			}
			defer p.Close()
			w := cmd.OutOrStdout()
			for _, u := range p.Links.UserParms().All() {
				fmt.Fprintf(w, "user %s = %g [%g, %g]\n", parmPath(p, u.ID()), u.Get(), u.Lower(), u.Upper())
			}
			if userOnly {
				return nil
			}
			for _, l := range p.Links.Links() {
				fmt.Fprintf(w, "%s %s -> %s", l.ID(), parmPath(p, l.ParmA()), parmPath(p, l.ParmB()))
				if l.ScaleFlag.GetBool() {
					fmt.Fprintf(w, " scale=%g", l.Scale.Get())
				}
				if l.OffsetFlag.GetBool() {
					fmt.Fprintf(w, " offset=%g", l.Offset.Get())
				}
				fmt.Fprintln(w)
			}
			return nil
		},
	}
	ls.Flags().BoolVar(&userOnly, "user", false, "only list user parms")

	var group string
	var lower, upper float64
	user := &cobra.Command{
		Use:   "user NAME VALUE",
		Short: "Add a user parm",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var v float64
			if _, err := fmt.Sscan(args[1], &v); err != nil {
				return fmt.Errorf("value %q: %w", args[1], err)
			}
			return e.edit(func(p *project.Project) error {
				u, err := p.Links.UserParms().Add(args[0], group, v, lower, upper)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), parmPath(p, u.ID()))
				return nil
			})
		},
	}
	user.Flags().StringVar(&group, "group", "", "parm group")
	user.Flags().Float64Var(&lower, "min", -1e6, "lower limit")
	user.Flags().Float64Var(&upper, "max", 1e6, "upper limit")

	cmd.AddCommand(add, rm, ls, user)
	return cmd
}

func newScriptCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "script",
		Short: "Manage scripted links",
	}

	var (
		ins, outs []string
		expr, src string
	)
	add := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a scripted link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := expr
			if src != "" {
				data, err := os.ReadFile(src)
				if err != nil {
					return err
				}
				code = string(data)
			}
			return e.edit(func(p *project.Project) error {
				l, err := p.AdvLinks.Add(args[0])
				if err != nil {
					return err
				}
				for _, b := range ins {
					name, id, err := binding(p, b)
					if err != nil {
						return err
					}
					if err := p.AdvLinks.AddInput(l, id, name); err != nil {
						return err
					}
				}
				for _, b := range outs {
					name, id, err := binding(p, b)
					if err != nil {
						return err
					}
					if err := p.AdvLinks.AddOutput(l, id, name); err != nil {
						return err
					}
				}
				evalErrs, err := p.AdvLinks.SetScript(l, code)
				if err != nil {
					return err
				}
				for _, ee := range evalErrs {
					fmt.Fprintln(cmd.ErrOrStderr(), ee.Error())
				}
				p.Update()
				return nil
			})
		},
	}
	add.Flags().StringArrayVar(&ins, "in", nil, "input binding var=Owner:Group:Name")
	add.Flags().StringArrayVar(&outs, "out", nil, "output binding var=Owner:Group:Name")
	add.Flags().StringVarP(&expr, "expr", "e", "", "script source")
	add.Flags().StringVar(&src, "src", "", "read the script from a file")

	rm := &cobra.Command{
		Use:   "rm NAME",
		Short: "Remove a scripted link",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.edit(func(p *project.Project) error {
				return p.AdvLinks.Remove(args[0])
			})
		},
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List scripted links",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := e.open()
			if err != nil {
				return err
			}
			defer p.Close()
			w := cmd.OutOrStdout()
			for _, l := range p.AdvLinks.Links() {
				fmt.Fprintf(w, "%s\n", l.Name())
				for _, v := range l.Inputs() {
					fmt.Fprintf(w, "  in  %s = %s\n", v.Name, parmPath(p, v.ParmID))
				}
				for _, v := range l.Outputs() {
					fmt.Fprintf(w, "  out %s = %s\n", v.Name, parmPath(p, v.ParmID))
				}
				for _, ee := range l.LastErrors {
					fmt.Fprintf(w, "  error %s\n", ee.Error())
				}
			}
			return nil
		},
	}

	cmd.AddCommand(add, rm, ls)
	return cmd
}

// binding splits var=Owner:Group:Name.
func binding(p *project.Project, s string) (string, parm.ID, error) {
	name, path, ok := strings.Cut(s, "=")
	if !ok {
		return "", "", fmt.Errorf("binding %q: want var=Owner:Group:Name", s)
	}
	pm, err := lookup(p, path)
	if err != nil {
		return "", "", err
	}
	return name, pm.ID(), nil
}

func newPresetCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "preset",
		Short: "Manage named parm settings",
	}

	var parms []string
	save := &cobra.Command{
		Use:   "save GROUP SETTING",
		Short: "Capture the current values of a group",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.edit(func(p *project.Project) error {
				if p.Presets.Group(args[0]) == nil {
					if _, err := p.Presets.AddGroup(args[0]); err != nil {
						return err
					}
				}
				for _, path := range parms {
					pm, err := lookup(p, path)
					if err != nil {
						return err
					}
					if err := p.Presets.AddParm(args[0], pm.ID()); err != nil {
						return err
					}
				}
				_, err := p.Presets.SaveSetting(args[0], args[1])
				return err
			})
		},
	}
	save.Flags().StringArrayVarP(&parms, "parm", "p", nil, "add Owner:Group:Name to the group")

	apply := &cobra.Command{
		Use:   "apply GROUP SETTING",
		Short: "Apply a saved setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.edit(func(p *project.Project) error {
				n, err := p.Presets.Apply(args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s/%s to %d parms\n", args[0], args[1], n)
				return nil
			})
		},
	}

	ls := &cobra.Command{
		Use:   "ls",
		Short: "List preset groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := e.open()
			if err != nil {
				return err
			}
			defer p.Close()
			w := cmd.OutOrStdout()
			for _, g := range p.Presets.Groups() {
				fmt.Fprintln(w, g.Name())
				for _, id := range g.ParmIDs() {
					fmt.Fprintf(w, "  parm %s\n", parmPath(p, id))
				}
				for _, s := range g.Settings() {
					mark := ""
					if p.Presets.Matches(g.Name(), s.Name()) {
						mark = " *"
					}
					fmt.Fprintf(w, "  %s %v%s\n", s.Name(), s.Values(), mark)
				}
			}
			return nil
		},
	}

	cmd.AddCommand(save, apply, ls)
	return cmd
}
