package cmd

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/readlevel/internal/readability"
	"github.com/abhisek/readlevel/internal/ui/components"
)

var predictCmd = &cobra.Command{
	Use:   "predict [text...]",
	Short: "Predict the difficulty of passages",
	Long: `Predicts the difficulty of each argument. With no arguments, reads one
passage per line from standard input.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		texts := args
		if len(texts) == 0 {
			var err error
			if texts, err = readLines(cmd.InOrStdin()); err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
		}
		if len(texts) == 0 {
			return errors.New("no text to predict")
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		p, err := openPredictor(ctx, modelLocation(cmd), st)
		if err != nil {
			return err
		}
		preds, err := p.Predict(ctx, texts)
		if err != nil {
			return fmt.Errorf("predict: %w", err)
		}

		withReadability, _ := cmd.Flags().GetBool("readability")
		asJSON, _ := cmd.Flags().GetBool("json")
		w := cmd.OutOrStdout()

		if asJSON {
			type output struct {
				Text        string              `json:"text"`
				Label       string              `json:"label"`
				Votes       map[string]int      `json:"votes"`
				Readability *readability.Result `json:"readability,omitempty"`
			}
			enc := json.NewEncoder(w)
			for _, pr := range preds {
				o := output{Text: pr.Text, Label: pr.Label, Votes: pr.Votes}
				if withReadability {
					o.Readability, _ = readability.Analyze(pr.Text)
				}
				if err := enc.Encode(o); err != nil {
					return err
				}
			}
			return nil
		}

		for i, pr := range preds {
			if i > 0 {
				fmt.Fprintln(w)
			}
			fmt.Fprintln(w, excerpt(pr.Text, 72))
			fmt.Fprintln(w, components.Prediction(pr.Label, pr.Votes, p.Classes()))
			if withReadability {
				r, err := readability.Analyze(pr.Text)
				switch {
				case errors.Is(err, readability.ErrTextTooShort):
					fmt.Fprintln(w, "(too short for readability statistics)")
				case err != nil:
					return err
				default:
					fmt.Fprintln(w, components.Readability(r))
				}
			}
		}
		return nil
	},
}

func readLines(r io.Reader) ([]string, error) {
	var out []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			out = append(out, line)
		}
	}
	return out, sc.Err()
}

func init() {
	predictCmd.Flags().StringP("model", "m", "", "Model location: file path or azblob://<key>")
	predictCmd.Flags().BoolP("readability", "r", false, "Also show readability statistics")
	predictCmd.Flags().Bool("json", false, "Print one JSON object per passage")
}
