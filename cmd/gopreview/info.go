package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/philipparndt/gopreview/internal/preview"
	"github.com/philipparndt/gopreview/pkg/analysis"
	"github.com/philipparndt/gopreview/pkg/loader"
)

var infoCmd = &cobra.Command{
	Use:   "info [file]",
	Short: "Display information about a model file",
	Long:  "Show mesh and material counts, dimensions, surface area, edge statistics and the preview framing of a model.",
	Args:  cobra.ExactArgs(1),
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

func runInfo(cmd *cobra.Command, args []string) error {
	filename := args[0]

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Load.Timeout)
	defer cancel()

	root, err := loader.NewRegistry(logger).Load(ctx, loader.NewFileSource(filename))
	if err != nil {
		return err
	}

	r := analysis.AnalyzeAsset(root, preview.Framing)
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "Model Information")
	fmt.Fprintln(out, "=================")
	fmt.Fprintf(out, "Name: %s\n", r.Name)
	fmt.Fprintf(out, "File: %s\n\n", filename)

	fmt.Fprintln(out, "Statistics:")
	fmt.Fprintf(out, "  Meshes: %d\n", r.Meshes)
	fmt.Fprintf(out, "  Triangles: %d\n", r.Triangles)
	fmt.Fprintf(out, "  Vertices: %d\n", r.Vertices)
	fmt.Fprintf(out, "  Textured meshes: %d\n", r.Textured)
	fmt.Fprintf(out, "  Materials: %s\n", r.MaterialSummary())
	fmt.Fprintf(out, "  Surface Area: %s\n\n", analysis.FormatMeasurement(r.SurfaceArea, "square units"))

	if r.BoundingBox.IsEmpty() {
		fmt.Fprintln(out, "Bounding Box: empty")
		return nil
	}

	fmt.Fprintln(out, "Bounding Box:")
	fmt.Fprintf(out, "  Min: %s\n", analysis.FormatVector(r.BoundingBox.Min))
	fmt.Fprintf(out, "  Max: %s\n", analysis.FormatVector(r.BoundingBox.Max))
	fmt.Fprintf(out, "  Center: %s\n\n", analysis.FormatVector(r.BoundingBox.Center()))

	fmt.Fprintln(out, "Dimensions:")
	fmt.Fprintf(out, "  Width (X): %s\n", analysis.FormatMeasurement(r.Dimensions.X, ""))
	fmt.Fprintf(out, "  Height (Y): %s\n", analysis.FormatMeasurement(r.Dimensions.Y, ""))
	fmt.Fprintf(out, "  Depth (Z): %s\n", analysis.FormatMeasurement(r.Dimensions.Z, ""))
	fmt.Fprintf(out, "  Diagonal: %s\n\n", analysis.FormatMeasurement(r.BoundingBox.Diagonal(), ""))

	fmt.Fprintln(out, "Edge Lengths:")
	fmt.Fprintf(out, "  Minimum: %s\n", analysis.FormatMeasurement(r.MinEdgeLength, ""))
	fmt.Fprintf(out, "  Maximum: %s\n", analysis.FormatMeasurement(r.MaxEdgeLength, ""))
	fmt.Fprintf(out, "  Average: %s\n\n", analysis.FormatMeasurement(r.AvgEdgeLength, ""))

	fmt.Fprintln(out, "Preview:")
	fmt.Fprintf(out, "  Scale: %.6f\n", r.Scale)
	fmt.Fprintf(out, "  Camera distance: %.6f\n", r.FramingDistance)
	return nil
}
