package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type rootFlags struct {
	dataDir    string
	configPath string
	rulesPath  string
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	root := &cobra.Command{
		Use:           "jobyaari-engine",
		Short:         "Scrape jobyaari.com postings into a categorized knowledge base",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	dataDir := os.Getenv("JOBYAARI_DATA_DIR")
	if dataDir == "" {
		dataDir = "."
	}
	root.PersistentFlags().StringVar(&f.dataDir, "data-dir", dataDir, "directory for config, knowledge base and history")
	root.PersistentFlags().StringVarP(&f.configPath, "config", "c", "config/config.yml", "default config copied into the data dir on first run")
	root.PersistentFlags().StringVar(&f.rulesPath, "rules", "config/rules.yml", "extraction rules overlay")

	root.AddCommand(
		newScrapeCmd(f),
		newServeCmd(f),
		newKBCmd(f),
		newRunsCmd(f),
		newConfigCmd(f),
		newTokenCmd(),
	)
	return root
}
