package main

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aleph-Alpha/wordembed/v1/fasttext"
)

type queryOptions struct {
	k         int
	fromStore bool
}

func (q *queryOptions) register(cmd *cobra.Command, defaultK int) {
	cmd.Flags().IntVarP(&q.k, "top-k", "k", defaultK, "number of results")
	cmd.Flags().BoolVar(&q.fromStore, "from-store", false, "stream the model from the model store instead of local disk")
}

// openClient returns a client for the configured model, optionally reading
// the model file from the object store.
func openClient(cmd *cobra.Command, root *rootOptions, fromStore bool) (*fasttext.Client, error) {
	c, err := root.app.client("")
	if err != nil {
		return nil, err
	}
	if fromStore {
		s, err := root.app.store()
		if err != nil {
			return nil, err
		}
		c.Engine().WithFileOpener(s.Opener(cmd.Context()))
	}
	return c, nil
}

func newNNCmd(root *rootOptions) *cobra.Command {
	q := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "nn <word>",
		Short: "Print the nearest neighbors of a word",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient(cmd, root, q.fromStore)
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.Nn(cmd.Context(), args[0], q.k)
			if err != nil {
				return err
			}
			printPredictions(cmd.OutOrStdout(), res)
			return nil
		},
	}
	q.register(cmd, 10)
	return cmd
}

func newAnalogyCmd(root *rootOptions) *cobra.Command {
	q := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "analogy <a> <b> <c>",
		Short: "Print the words closest to a - b + c",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient(cmd, root, q.fromStore)
			if err != nil {
				return err
			}
			defer c.Close()

			res, err := c.Analogy(cmd.Context(), args[0], args[1], args[2], q.k)
			if err != nil {
				return err
			}
			printPredictions(cmd.OutOrStdout(), res)
			return nil
		},
	}
	q.register(cmd, 10)
	return cmd
}

func newSentenceVectorCmd(root *rootOptions) *cobra.Command {
	q := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "sentence-vector [text...]",
		Short: "Print the sentence vector of the arguments, or of every stdin line",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient(cmd, root, q.fromStore)
			if err != nil {
				return err
			}
			defer c.Close()

			return eachInput(cmd, args, func(text string) error {
				vec, err := c.SentenceVector(cmd.Context(), text)
				if err != nil {
					return err
				}
				printVector(cmd.OutOrStdout(), vec)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&q.fromStore, "from-store", false, "stream the model from the model store instead of local disk")
	return cmd
}

func newPredictCmd(root *rootOptions) *cobra.Command {
	q := &queryOptions{}
	cmd := &cobra.Command{
		Use:   "predict [text...]",
		Short: "Print the most likely labels of the arguments, or of every stdin line",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := openClient(cmd, root, q.fromStore)
			if err != nil {
				return err
			}
			defer c.Close()

			return eachInput(cmd, args, func(text string) error {
				res, err := c.Predict(cmd.Context(), text, q.k)
				if err != nil {
					return err
				}
				parts := make([]string, 0, 2*len(res))
				for _, p := range res {
					parts = append(parts, p.Label, formatFloat(p.Value))
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(parts, " "))
				return nil
			})
		},
	}
	q.register(cmd, 1)
	return cmd
}

// eachInput calls fn once with the joined arguments, or once per stdin line
// when there are none.
func eachInput(cmd *cobra.Command, args []string, fn func(string) error) error {
	if len(args) > 0 {
		return fn(strings.Join(args, " "))
	}
	sc := bufio.NewScanner(cmd.InOrStdin())
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if err := cmd.Context().Err(); err != nil {
			return err
		}
		if err := fn(sc.Text()); err != nil {
			return err
		}
	}
	return sc.Err()
}

func printPredictions(w io.Writer, res []fasttext.Prediction) {
	for _, p := range res {
		fmt.Fprintf(w, "%s %s\n", p.Label, formatFloat(p.Value))
	}
}

func printVector(w io.Writer, vec []float64) {
	parts := make([]string, len(vec))
	for i, x := range vec {
		parts[i] = formatFloat(x)
	}
	fmt.Fprintln(w, strings.Join(parts, " "))
}

func formatFloat(x float64) string {
	return strconv.FormatFloat(x, 'g', 5, 64)
}
