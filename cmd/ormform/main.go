// Command ormform derives forms from catalog-declared models and renders,
// fills or serves them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	cfgFile     string
	catalogPath string
	logLevel    string
)

var rootCmd = &cobra.Command{
	Use:           "ormform",
	Short:         "Derive HTML forms from mapped models",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	Long: `ormform converts the models of a catalog file into form schemas.

Reference rows come from the catalog itself or from the database named in
the configuration file.

Examples:
  ormform describe --catalog school.yaml
  ormform render Student --id 1 --catalog school.yaml
  ormform fill Student --format json
  ormform serve --config ormform.yaml`,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "ormform.yaml", "path to configuration file")
	flags.StringVar(&catalogPath, "catalog", "", "catalog file (overrides configuration)")
	flags.StringVar(&logLevel, "log-level", "", "log level (overrides configuration)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
