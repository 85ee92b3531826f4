package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/born-ml/tiled/internal/axes"
	"github.com/born-ml/tiled/internal/runner"
	"github.com/born-ml/tiled/internal/tiling"
)

// addJobFlags registers the flags shared by predict and plan.
func addJobFlags(f *pflag.FlagSet) {
	d := runner.DefaultConfig()
	f.String(runner.KeyInput, "", "input array (.safetensors or .zarr)")
	f.String(runner.KeyAxes, "", "axes of the input, e.g. XYC; default from the file or its rank")
	f.String(runner.KeyTransform, d.Transform, "transform to run")
	f.StringArray(runner.KeyParam, nil, "transform parameter key=value (repeatable)")
	f.Int(runner.KeyTiles, d.Tiles, "number of tiles along the split dimension")
	f.Int(runner.KeyBlockMultiple, d.BlockMultiple, "tile width multiple; -1 takes it from the model metadata")
	f.Int(runner.KeyOverlap, d.Overlap, "overlap on each side of a tile; -1 takes it from the model metadata")
	f.String(runner.KeyMeta, "", "model meta.json")
	f.Int(runner.KeyMaxElements, 0, "element budget per tile, 0 for unlimited")
}

func (a *app) predictCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Run a transform over an array tile by tile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := a.logger()
			if err != nil {
				return err
			}
			cfg := runner.FromViper(a.v)
			progress := tiling.WithProgress(func(done, total int) {
				logger.Info("tile finished", "done", done, "total", total)
			})
			out, err := runner.Run(cmd.Context(), cfg, a.registry, logger,
				tiling.WithWorkers(cfg.Workers), progress)
			if err != nil {
				logger.Error("prediction failed", "error", err)
				return err
			}
			logger.Info("prediction done", "output", out.String(), "path", cfg.Output)
			return nil
		},
	}
	f := cmd.Flags()
	addJobFlags(f)
	d := runner.DefaultConfig()
	f.String(runner.KeyOutput, "", "output array (.safetensors or .zarr)")
	f.Int(runner.KeyWorkers, d.Workers, "tiles processed at once")
	f.Int(runner.KeyMaxTiles, d.MaxTiles, "upper bound for tile doubling on resource exhaustion")
	f.IntSlice(runner.KeyChunks, nil, "zarr output chunk shape")
	f.String(runner.KeyCompressor, "", "zarr output compressor: gzip or zstd")
	return cmd
}

func (a *app) planCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the axis mapping and partition without running",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := a.logger()
			if err != nil {
				return err
			}
			j, err := runner.Prepare(runner.FromViper(a.v), a.registry, logger)
			if err != nil {
				return err
			}
			plan, err := j.Plan()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "input:     %s\n", j.Image)
			fmt.Fprintf(w, "mapping:   %s\n", j.Mapping)
			if len(j.Fixed) > 0 {
				fmt.Fprintf(w, "fixed:     %s\n", axes.String(j.Fixed))
			}
			fmt.Fprintf(w, "split:     %s (dim %d)\n", j.Image.Axes[plan.SplitDim], plan.SplitDim)
			fmt.Fprintf(w, "plan:      %s\n", plan)
			for _, t := range plan.Tiles() {
				fmt.Fprintf(w, "tile %-4d %s\n", t.Index, t.Interval)
			}
			return nil
		},
	}
	addJobFlags(cmd.Flags())
	return cmd
}

func (a *app) transformsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "transforms",
		Short: "List the available transforms",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(a.registry.Names(), "\n"))
		},
	}
}
