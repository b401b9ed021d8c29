package main

import (
	"encoding/json"
	"fmt"

	"github.com/chazu/spar/pkg/kernel/sdfx"
	"github.com/chazu/spar/pkg/metrics"
	"github.com/spf13/cobra"
)

// colorPalette assigns distinct colors to geoms.
var colorPalette = []string{
	"#4A90D9", "#E67E22", "#2ECC71", "#9B59B6",
	"#E74C3C", "#1ABC9C", "#F39C12", "#3498DB",
}

// MeshData is one tessellated replica in the JSON output.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Replica  int       `json:"replica"`
	Flip     bool      `json:"flip"`
	Color    string    `json:"color"`
}

// RenderResult is the JSON document written by render --json.
type RenderResult struct {
	Meshes []MeshData `json:"meshes"`
	Errors []string   `json:"errors,omitempty"`
}

func newRenderCmd(e *env) *cobra.Command {
	var asJSON, withMetrics bool
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Tessellate every geom and print its primitives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if withMetrics {
				e.met = metrics.New()
			}
			p, err := e.open()
			if err != nil {
				return err
			}
			defer p.Close()
			p.Model.Update(true)

			w := cmd.OutOrStdout()
			var result RenderResult
			for i, g := range p.Model.Geoms() {
				color := colorPalette[i%len(colorPalette)]
				prims := p.Model.RenderPrimitives(g.ID())
				if !asJSON {
					tris := 0
					for _, pr := range prims {
						if pr.Mesh != nil {
							tris += pr.Mesh.TriangleCount()
						}
					}
					fmt.Fprintf(w, "%s [%s] replicas=%d triangles=%d\n", g.Name(), g.TypeName(), len(prims), tris)
					continue
				}
				for _, pr := range prims {
					if pr.Mesh == nil || pr.Mesh.IsEmpty() {
						continue
					}
					result.Meshes = append(result.Meshes, MeshData{
						Vertices: pr.Mesh.Vertices,
						Normals:  pr.Mesh.Normals,
						Indices:  pr.Mesh.Indices,
						PartName: pr.Name,
						Replica:  pr.Replica,
						Flip:     pr.Flip,
						Color:    color,
					})
				}
			}
			if asJSON {
				for _, ve := range p.Check() {
					result.Errors = append(result.Errors, ve.Error())
				}
				enc := json.NewEncoder(w)
				if err := enc.Encode(result); err != nil {
					return err
				}
			}
			if withMetrics {
				return e.met.WriteText(cmd.ErrOrStderr())
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "write meshes as JSON")
	cmd.Flags().BoolVar(&withMetrics, "metrics", false, "print update metrics to stderr")
	return cmd
}

func newSolidCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "solid [NAME]",
		Short: "Mesh the solid preview of each geom",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := e.open()
			if err != nil {
				return err
			}
			defer p.Close()
			k := sdfx.NewWithCells(e.cfg.Kernel.Cells)
			w := cmd.OutOrStdout()
			for _, g := range p.Model.Geoms() {
				if len(args) == 1 && g.Name() != args[0] {
					continue
				}
				solids, err := p.Model.Solids(g.ID(), k)
				if err != nil {
					return fmt.Errorf("%s: %w", g.Name(), err)
				}
				for i, s := range solids {
					m, err := k.ToMesh(s)
					if err != nil {
						return fmt.Errorf("%s replica %d: %w", g.Name(), i, err)
					}
					lo, hi := m.Bounds()
					fmt.Fprintf(w, "%s[%d] triangles=%d min=%.3g max=%.3g\n", g.Name(), i, m.TriangleCount(), lo, hi)
				}
			}
			return nil
		},
	}
}
