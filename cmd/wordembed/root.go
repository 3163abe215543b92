package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/Aleph-Alpha/wordembed/internal/config"
)

type rootOptions struct {
	configFile   string
	envFile      string
	model        string
	serveMetrics bool

	app *app
}

// execute runs the command line argv and releases the shared components
// afterwards, also when the command fails.
func execute(ctx context.Context, argv []string, stdin io.Reader, stdout io.Writer) error {
	opts := &rootOptions{}
	cmd := newRootCmd(opts)
	cmd.SetArgs(argv)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	defer func() {
		if opts.app != nil {
			opts.app.close()
		}
	}()
	return cmd.ExecuteContext(ctx)
}

func newRootCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:          "wordembed",
		Short:        "Train and query subword embedding models",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.envFile, opts.configFile)
			if err != nil {
				return err
			}
			if opts.model != "" {
				cfg.FastText.ModelPath = opts.model
			}
			opts.app, err = newApp(cfg, opts.serveMetrics)
			return err
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configFile, "config", "", "YAML configuration file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded into the environment if it exists")
	flags.StringVarP(&opts.model, "model", "m", "", "model file (overrides FASTTEXT_MODEL_PATH)")
	flags.BoolVar(&opts.serveMetrics, "serve-metrics", false, "serve Prometheus metrics while the command runs")

	cmd.AddCommand(
		newTrainCmd(opts),
		newNNCmd(opts),
		newAnalogyCmd(opts),
		newSentenceVectorCmd(opts),
		newPredictCmd(opts),
		newQuantizeCmd(opts),
		newExportCmd(opts),
		newFetchCmd(opts),
		newPushCmd(opts),
		newListCmd(opts),
	)
	return cmd
}
