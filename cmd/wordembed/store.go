package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext"
)

type quantizeOptions struct {
	output string
	dsub   int32
	qnorm  bool
	qout   bool
}

func newQuantizeCmd(root *rootOptions) *cobra.Command {
	opts := &quantizeOptions{}
	cmd := &cobra.Command{
		Use:   "quantize",
		Short: "Compress a supervised model with product quantization",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := root.app.client("")
			if err != nil {
				return err
			}
			defer c.Close()

			err = c.Quantize(cmd.Context(), fasttext.QuantizeOptions{
				DSub:  opts.dsub,
				QNorm: opts.qnorm,
				QOut:  opts.qout,
			})
			if err != nil {
				return err
			}
			out := opts.output
			if out == "" {
				out = strings.TrimSuffix(c.Engine().Path(), filepath.Ext(c.Engine().Path())) + ".ftz"
			}
			if err := c.Engine().SaveModel(out); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "quantized model file (defaults to the model path with .ftz)")
	cmd.Flags().Int32Var(&opts.dsub, "dsub", 2, "sub-vector size")
	cmd.Flags().BoolVar(&opts.qnorm, "qnorm", false, "quantize vector norms separately")
	cmd.Flags().BoolVar(&opts.qout, "qout", false, "also quantize the output matrix")
	return cmd
}

func newExportCmd(root *rootOptions) *cobra.Command {
	var fromStore bool
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Upsert the word vectors of the model into Qdrant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := openClient(cmd, root, fromStore)
			if err != nil {
				return err
			}
			defer c.Close()
			if err := c.Load(cmd.Context()); err != nil {
				return err
			}

			exp, err := root.app.exporter()
			if err != nil {
				return err
			}
			defer exp.Close()

			n, err := exp.Export(cmd.Context(), c.Engine())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d vectors to %s\n", n, root.app.cfg.VectorExport.Collection)
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromStore, "from-store", false, "stream the model from the model store instead of local disk")
	return cmd
}

func newFetchCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "fetch <name> [local-path]",
		Short: "Download a model file from the model store",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.app.store()
			if err != nil {
				return err
			}
			local := filepath.Base(args[0])
			if len(args) == 2 {
				local = args[1]
			}
			n, err := s.Fetch(cmd.Context(), args[0], local)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fetched %s (%d bytes)\n", local, n)
			return nil
		},
	}
}

func newPushCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "push <output-prefix>",
		Short: "Upload <output-prefix>.bin and <output-prefix>.vec to the model store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := root.app.store()
			if err != nil {
				return err
			}
			keys, err := s.UploadModel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), k)
			}
			return nil
		},
	}
}

func newListCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the model files in the model store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := root.app.store()
			if err != nil {
				return err
			}
			names, err := s.List(cmd.Context())
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}
