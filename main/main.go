package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"bivgen"
)

var (
	dataDir    string
	configFile string
	quiet      bool
)

func main() {
	root := &cobra.Command{
		Use:   "bivgen",
		Short: "Generate a synthetic biventricular cardiac data set",
		Long: "bivgen generates a labeled biventricular ellipsoid mesh, " +
			"rule-based fiber orientations, and a fractal conduction " +
			"tree per ventricle. Stages are checkpointed through files " +
			"in the data directory; delete a file to regenerate it.",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(
		&dataDir, "dir", "data", "data directory the stages write into",
	)
	root.PersistentFlags().StringVar(
		&configFile, "config", "", "gcfg configuration file",
	)
	root.PersistentFlags().BoolVar(
		&quiet, "quiet", false, "suppress progress logging",
	)

	root.AddCommand(
		stageCommand("run", "Run every stage in order",
			(*bivgen.Pipeline).Run),
		stageCommand("mesh", "Generate the biventricular mesh",
			(*bivgen.Pipeline).Mesh),
		stageCommand("fibers", "Compute fiber orientations",
			(*bivgen.Pipeline).Fibers),
		stageCommand("trees", "Grow the conduction trees",
			(*bivgen.Pipeline).Trees),
		exampleConfigCommand(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func stageCommand(
	use, short string, stage func(*bivgen.Pipeline) error,
) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline()
			if err != nil {
				return err
			}
			return stage(p)
		},
	}
}

func exampleConfigCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "example-config",
		Short: "Print an example configuration file",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(bivgen.ExampleConfigFile)
		},
	}
}

func newPipeline() (*bivgen.Pipeline, error) {
	con := bivgen.DefaultConfig()
	if configFile != "" {
		var err error
		if con, err = bivgen.ReadConfig(configFile); err != nil {
			return nil, err
		}
	}

	var log *zap.Logger
	if !quiet {
		var err error
		if log, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}
	return bivgen.New(dataDir, con, log), nil
}
