package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/tanq16/tgrelay/internal/config"
	"github.com/tanq16/tgrelay/internal/media"
	"github.com/tanq16/tgrelay/internal/output"
	"github.com/tanq16/tgrelay/internal/splitter"
	"github.com/tanq16/tgrelay/internal/tools"
	"github.com/tanq16/tgrelay/internal/utils"
)

func localSplitter(cfg *config.Config, volumeMB int) *splitter.Splitter {
	runner := tools.NewExec(cfg.Tools.Binaries())
	if volumeMB <= 0 {
		volumeMB = cfg.Limits.VolumeSizeMB
	}
	return splitter.New(runner, afero.NewOsFs(), media.NewToolkit(runner, os.TempDir()), volumeMB)
}

func newSplitCmd() *cobra.Command {
	var ceilingMB int64
	var volumeMB int

	cmd := &cobra.Command{
		Use:   "split [FILE]",
		Short: "Split a file the way oversized uploads are split",
		Long: `Split a local file into upload-sized parts. Videos are cut into stream-copied
segments with ffmpeg and fall back to 7z volumes; other files become 7z volumes.
The original file is left in place.

Examples:
  tgrelay split movie.mkv
  tgrelay split backup.tar --ceiling 500 --volume 450`,
		Args: cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			path := args[0]
			info, err := os.Stat(path)
			if err != nil || info.IsDir() {
				output.PrintError(fmt.Sprintf("Not a file: %s", path))
				os.Exit(1)
			}
			ceiling := cfg.Limits.SizeCeiling
			if ceilingMB > 0 {
				ceiling = ceilingMB * 1024 * 1024
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			art := utils.LocalArtifact{Path: path, Size: info.Size(), Kind: media.Classify(path)}
			plan, err := localSplitter(cfg, volumeMB).Split(ctx, art, ceiling)
			if err != nil {
				output.PrintError(fmt.Sprintf("Split failed: %v", err))
				os.Exit(1)
			}
			if plan.Empty() {
				output.PrintInfo(fmt.Sprintf("%s fits within %s, nothing to split",
					filepath.Base(path), utils.FormatBytes(uint64(ceiling))))
				return
			}
			output.PrintHeader(fmt.Sprintf("%s split into %d parts (%s)", filepath.Base(path), len(plan.Parts), plan.Strategy))
			for i, part := range plan.Parts {
				output.PrintDetail(fmt.Sprintf("%d. %s (%s)", i+1, part.Path, utils.FormatBytes(uint64(part.Size))))
			}
			output.PrintSuccess("Done")
		},
	}

	cmd.Flags().Int64Var(&ceilingMB, "ceiling", 0, "Largest part size in MiB (default from config)")
	cmd.Flags().IntVar(&volumeMB, "volume", 0, "7z volume size in MiB (default from config)")
	return cmd
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "extract [FIRST_VOLUME] [OUTPUT_DIR]",
		Short: "Rebuild a file from its 7z volumes",
		Args:  cobra.RangeArgs(1, 2),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			outDir := "."
			if len(args) == 2 {
				outDir = args[1]
			}
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			extracted, err := localSplitter(cfg, 0).ExtractVolumes(ctx, args[0], outDir)
			if err != nil {
				output.PrintError(fmt.Sprintf("Extraction failed: %v", err))
				os.Exit(1)
			}
			output.PrintSuccess(fmt.Sprintf("Extracted %s", extracted))
		},
	}
}
