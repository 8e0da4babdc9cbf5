package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/tanq16/tgrelay/internal/janitor"
	"github.com/tanq16/tgrelay/internal/output"
	"github.com/tanq16/tgrelay/internal/utils"
)

func newCleanCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale scratch files from the download and thumbnail directories",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			maxAge := cfg.Janitor.MaxAge
			if all {
				maxAge = 0
			}
			sweeper := janitor.New(afero.NewOsFs(), maxAge,
				janitor.Target{Dir: cfg.Paths.DownloadDir},
				janitor.Target{Dir: cfg.Paths.ThumbDir, Pattern: "*.jpg"},
			)
			report, err := sweeper.Sweep()
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			output.PrintSuccess(fmt.Sprintf("Removed %d files (%s) and %d directories",
				report.Files, utils.FormatBytes(uint64(report.Bytes)), report.Dirs))
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Remove every scratch file regardless of age")
	return cmd
}
