// gdstash searches every character and shared stash of a Grim Dawn
// installation for items by name.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

const (
	cliName        = "gdstash"
	cliDescription = "search Grim Dawn characters and stashes for items"
	envLogLevel    = "GDSTASH_LOG_LEVEL"
)

type globalFlags struct {
	configPath  string
	logLevel    string
	lenient     bool
	noCache     bool
	concurrency int
}

func (g *globalFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "path to the configuration file")
	fs.StringVar(&g.logLevel, "log-level", os.Getenv(envLogLevel), "log level (debug, info, warn, error)")
	fs.BoolVar(&g.lenient, "lenient", false, "warn about malformed save blocks instead of failing")
	fs.BoolVar(&g.noCache, "no-cache", false, "always decode the game databases")
	fs.IntVar(&g.concurrency, "concurrency", 0, "number of files decoded in parallel")
}

// logger builds the logger shared by every subcommand.
func (g *globalFlags) logger() (*logrus.Logger, error) {
	log := logrus.New()
	log.SetOutput(os.Stderr)

	level, err := parseLevel(g.logLevel)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)
	return log, nil
}

func parseLevel(s string) (logrus.Level, error) {
	if s == "" {
		return logrus.WarnLevel, nil
	}
	level, err := logrus.ParseLevel(s)
	if err != nil {
		return 0, errors.Wrap(err, "--log-level")
	}
	return level, nil
}

func newRootCommand() *cobra.Command {
	flags := new(globalFlags)
	cmd := &cobra.Command{
		Use:           cliName + " [flags] <search terms...>",
		Short:         cliDescription,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, flags, searchTerm(args))
		},
	}
	flags.register(cmd.PersistentFlags())

	cmd.AddCommand(
		newInspectCommand(flags),
		newCacheCommand(flags),
	)
	return cmd
}

// searchTerm joins the arguments the way they were typed.
func searchTerm(args []string) string {
	return strings.ToLower(strings.Join(args, " "))
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%s error: %s\n", cliName, err)
		os.Exit(1)
	}
}
