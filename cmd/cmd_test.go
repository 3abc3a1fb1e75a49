package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the CLI with args and returns stdout. Flag values left over
// from earlier invocations are reset first.
func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	var out, errOut bytes.Buffer
	rootCmd.SetArgs(args)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	t.Cleanup(func() {
		rootCmd.SetIn(nil)
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
	})

	// Subcommands keep the context from their first execution; point them
	// at this test's context so a previous test's cancellation doesn't leak.
	setContext(rootCmd, t.Context())
	err := rootCmd.ExecuteContext(t.Context())
	if err != nil {
		t.Logf("stderr: %s", errOut.String())
	}
	return out.String(), err
}

func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Changed {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func setContext(c *cobra.Command, ctx context.Context) {
	c.SetContext(ctx)
	for _, sub := range c.Commands() {
		setContext(sub, ctx)
	}
}

func isolateEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	for _, k := range []string{"OPENAI_API_KEY", "GEMINI_API_KEY", "READLEVEL_EMBED_PROVIDER", "READLEVEL_CONFIG", "READLEVEL_MODEL"} {
		t.Setenv(k, "")
	}
	t.Setenv("READLEVEL_DB", filepath.Join(dir, "readlevel.db"))
	t.Chdir(dir)
	return dir
}

func writeStories(t *testing.T, path string) {
	t.Helper()
	vocab := map[string][]string{
		"easy":   {"cat", "dog", "sun", "ball", "hat", "red"},
		"medium": {"river", "forest", "journey", "village", "lantern", "harvest"},
		"hard":   {"photosynthesis", "constitution", "metamorphosis", "equilibrium", "hypothesis", "civilization"},
	}
	var b strings.Builder
	b.WriteString("id,text,final_difficulty\n")
	id := 0
	for _, label := range []string{"easy", "medium", "hard"} {
		words := vocab[label]
		for i := range 10 {
			text := fmt.Sprintf("The %s and the %s near the %s.", words[i%6], words[(i+1)%6], words[(i+2)%6])
			fmt.Fprintf(&b, "%d,%q,%s\n", id, text, label)
			id++
		}
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
}

func TestAnalyze(t *testing.T) {
	isolateEnv(t)

	out, err := execute(t, "", "analyze", "--json", "The cat sat on the mat. The dog ran.")
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 1.0, got["reading_level"])

	out, err = execute(t, "The cat sat on the mat. The dog ran.", "analyze")
	require.NoError(t, err)
	assert.Contains(t, out, "grade 1")

	_, err = execute(t, "", "analyze", "Hi.")
	assert.Error(t, err)
}

func TestTrainPredictRuns(t *testing.T) {
	dir := isolateEnv(t)
	data := filepath.Join(dir, "stories.csv")
	model := filepath.Join(dir, "models", "svm_model.json")
	writeStories(t, data)

	out, err := execute(t, "", "train", "--data", data, "-o", model, "--embed-provider", "hash", "--embed-dimension", "128")
	require.NoError(t, err)
	assert.Contains(t, out, "Accuracy:")
	assert.Contains(t, out, "Classification Report:")
	assert.Contains(t, out, "24 train / 6 test")
	assert.Contains(t, out, "Model saved to "+model)
	assert.FileExists(t, model)

	out, err = execute(t, "", "predict", "-m", model, "--json", "The cat and the dog near the sun.")
	require.NoError(t, err)
	var pred struct {
		Label string         `json:"label"`
		Votes map[string]int `json:"votes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &pred))
	assert.Contains(t, []string{"easy", "medium", "hard"}, pred.Label)
	assert.Len(t, pred.Votes, 3)

	out, err = execute(t, "first passage here\n\nsecond passage here\n", "predict", "-m", model, "--json")
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(strings.TrimSpace(out), "\n")+1)

	out, err = execute(t, "", "evaluate", "-m", model, "--data", data)
	require.NoError(t, err)
	assert.Contains(t, out, "30 labelled rows")

	out, err = execute(t, "", "runs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "succeeded")
	assert.Contains(t, out, "hash/")

	out, err = execute(t, "", "cache", "stats")
	require.NoError(t, err)
	assert.Contains(t, out, "Embedding cache is empty.")
}

func TestTrain_FailedRunIsRecorded(t *testing.T) {
	dir := isolateEnv(t)
	data := filepath.Join(dir, "one.csv")
	require.NoError(t, os.WriteFile(data, []byte("text,final_difficulty\na b c,easy\nd e f,easy\n"), 0o644))

	_, err := execute(t, "", "train", "--data", data, "--no-save", "--embed-provider", "hash")
	require.Error(t, err)

	out, err := execute(t, "", "runs", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "failed")
}

func TestLabeledPath(t *testing.T) {
	assert.Equal(t, "data/stories.labeled.csv", labeledPath("data/stories.csv"))
	assert.Equal(t, "stories.labeled", labeledPath("stories"))
}

func TestExcerpt(t *testing.T) {
	assert.Equal(t, "a b c", excerpt("a\n b   c", 10))
	assert.Equal(t, "abcdefg...", excerpt("abcdefghijklmnop", 10))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KiB", formatBytes(1536))
	assert.Equal(t, "2.0 MiB", formatBytes(2<<20))
}
