package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/tanq16/tgrelay/internal/cookies"
	"github.com/tanq16/tgrelay/internal/output"
)

func newCookiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cookies [COOKIES_FILE]",
		Short: "Import a Netscape cookies.txt into the shared cookie jar",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := loadConfig()
			data, err := os.ReadFile(args[0])
			if err != nil {
				output.PrintError(fmt.Sprintf("Error reading cookie file: %v", err))
				os.Exit(1)
			}
			jar := cookies.NewJar(afero.NewOsFs(), cfg.Paths.CookiesFile)
			if err := jar.Save(string(data)); err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			records, err := jar.Load()
			if err != nil {
				output.PrintError(err.Error())
				os.Exit(1)
			}
			domains := map[string]int{}
			for _, r := range records {
				domains[r.Domain]++
			}
			output.PrintSuccess(fmt.Sprintf("Saved %d cookies to %s", len(records), jar.Path()))
			for domain, n := range domains {
				output.PrintDetail(fmt.Sprintf("%s: %d", domain, n))
			}
		},
	}
}
