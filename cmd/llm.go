package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/readlevel/internal/llm"
	"github.com/abhisek/readlevel/internal/store"
)

var llmCmd = &cobra.Command{
	Use:   "llm",
	Short: "Inspect logged LLM requests and their cost",
}

var llmListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent LLM requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		f := cmd.Flags()
		opts := store.QueryOpts{}
		opts.Limit, _ = f.GetInt("limit")
		opts.Purpose, _ = f.GetString("purpose")
		if since, _ := f.GetDuration("since"); since > 0 {
			opts.From = time.Now().Add(-since)
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		events, err := st.EventRepo().QueryLLMEvents(cmd.Context(), opts)
		if err != nil {
			return fmt.Errorf("query llm events: %w", err)
		}
		w := cmd.OutOrStdout()
		if len(events) == 0 {
			fmt.Fprintln(w, "No LLM requests logged.")
			return nil
		}

		rows := make([][]string, len(events))
		for i, e := range events {
			status := "ok"
			if !e.Success {
				status = "failed"
			}
			rows[i] = []string{
				itoa(e.ID),
				e.Timestamp.Local().Format(time.DateTime),
				e.Purpose,
				truncate(e.Model, 28),
				itoa(e.InputTokens),
				itoa(e.OutputTokens),
				itoa(int(e.LatencyMs)),
				status,
			}
		}
		printTable(w, []string{"ID", "Time", "Purpose", "Model", "In", "Out", "Ms", "Status"}, rows)
		return nil
	},
}

var llmViewCmd = &cobra.Command{
	Use:   "view <id>",
	Short: "Print the prompt and reply of one logged request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("event id %q is not a number", args[0])
		}

		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		e, err := st.EventRepo().GetLLMEvent(cmd.Context(), id)
		if err != nil {
			return fmt.Errorf("get llm event: %w", err)
		}
		if e == nil {
			return fmt.Errorf("llm event %d not found", id)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "#%d  %s  %s/%s  purpose=%s\n", e.ID, e.Timestamp.Local().Format(time.DateTime), e.Provider, e.Model, e.Purpose)
		fmt.Fprintf(w, "tokens %d in, %d out  latency %dms\n", e.InputTokens, e.OutputTokens, e.LatencyMs)
		if !e.Success {
			fmt.Fprintf(w, "error: %s\n", e.ErrorMessage)
		}
		printSection(w, "Request", e.RequestBody)
		printSection(w, "Response", e.ResponseBody)
		return nil
	},
}

func printSection(w io.Writer, title, body string) {
	if body == "" {
		body = "(empty)"
	}
	fmt.Fprintf(w, "\n── %s %s\n%s\n", title, strings.Repeat("─", 56-len(title)), strings.TrimRight(body, "\n"))
}

var llmStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize token usage by purpose and estimated cost by model",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer st.Close()

		ctx := cmd.Context()
		byPurpose, err := st.EventRepo().LLMUsageByPurpose(ctx)
		if err != nil {
			return fmt.Errorf("usage by purpose: %w", err)
		}
		byModel, err := st.EventRepo().LLMUsageByModel(ctx)
		if err != nil {
			return fmt.Errorf("usage by model: %w", err)
		}

		w := cmd.OutOrStdout()
		if len(byPurpose) == 0 {
			fmt.Fprintln(w, "No LLM usage recorded yet.")
			return nil
		}

		var calls, in, out int
		rows := make([][]string, 0, len(byPurpose)+1)
		for _, u := range byPurpose {
			rows = append(rows, []string{u.Purpose, itoa(u.Calls), itoa(u.InputTokens), itoa(u.OutputTokens), itoa(int(u.AvgLatencyMs))})
			calls += u.Calls
			in += u.InputTokens
			out += u.OutputTokens
		}
		rows = append(rows, []string{"total", itoa(calls), itoa(in), itoa(out), ""})
		printTable(w, []string{"Purpose", "Calls", "Input", "Output", "Avg ms"}, rows)

		fmt.Fprintln(w)
		var total float64
		var unpriced []string
		rows = rows[:0]
		for _, u := range byModel {
			price := "?"
			if c := llm.LookupCost(u.Model); c != nil {
				usd := c.Cost(u.InputTokens, u.OutputTokens)
				total += usd
				price = formatCost(usd)
			} else {
				unpriced = append(unpriced, u.Model)
			}
			rows = append(rows, []string{truncate(u.Model, 32), itoa(u.Calls), itoa(u.InputTokens), itoa(u.OutputTokens), price})
		}
		label := "total"
		if len(unpriced) > 0 {
			label = "total (partial)"
		}
		rows = append(rows, []string{label, "", "", "", formatCost(total)})
		printTable(w, []string{"Model", "Calls", "Input", "Output", "USD"}, rows)

		if len(unpriced) > 0 {
			fmt.Fprintf(w, "\nNo pricing for: %s\n", strings.Join(unpriced, ", "))
		}
		return nil
	},
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func formatCost(usd float64) string {
	if usd > 0 && usd < 0.01 {
		return fmt.Sprintf("$%.4f", usd)
	}
	return fmt.Sprintf("$%.2f", usd)
}

func init() {
	llmListCmd.Flags().IntP("limit", "n", 20, "Number of requests to show")
	llmListCmd.Flags().StringP("purpose", "p", "", "Only requests with this purpose, e.g. label")
	llmListCmd.Flags().Duration("since", 0, "Only requests newer than this, e.g. 24h")

	llmCmd.AddCommand(llmListCmd, llmViewCmd, llmStatsCmd)
}
