package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext"
	"github.com/Aleph-Alpha/wordembed/v1/fasttext/args"
)

type trainOptions struct {
	input   string
	output  string
	options map[string]string
	push    bool
}

func newTrainCmd(root *rootOptions) *cobra.Command {
	opts := &trainOptions{}
	cmd := &cobra.Command{
		Use:       "train <supervised|skipgram|cbow>",
		Short:     "Train a model from a text corpus",
		Long:      "Train a model. Training parameters use their fastText names, e.g. --opt dim=100 --opt epoch=5 --opt wordNgrams=2.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"supervised", "skipgram", "cbow"},
		RunE: func(cmd *cobra.Command, argv []string) error {
			c, err := root.app.client(opts.input)
			if err != nil {
				return err
			}
			defer c.Close()

			params := make(map[string]string, len(opts.options)+2)
			for k, v := range opts.options {
				params[k] = v
			}
			params[args.CommandKey] = argv[0]
			if opts.output != "" {
				params["output"] = opts.output
			}

			res := <-c.TrainAsync(cmd.Context(), params)
			if res.Err != nil {
				return res.Err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "trained %s model on %d tokens, loss %s\n",
				argv[0], res.Value.Tokens, formatFloat(res.Value.Loss))

			if opts.push {
				if opts.output == "" {
					return fmt.Errorf("%w: --push requires --output", fasttext.ErrInvalidOption)
				}
				s, err := root.app.store()
				if err != nil {
					return err
				}
				keys, err := s.UploadModel(cmd.Context(), opts.output)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", strings.Join(keys, ", "))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "training corpus (defaults to the model path)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "write <output>.bin and <output>.vec")
	cmd.Flags().StringToStringVar(&opts.options, "opt", nil, "training parameter as name=value")
	cmd.Flags().BoolVar(&opts.push, "push", false, "upload the output files to the model store")
	return cmd
}
