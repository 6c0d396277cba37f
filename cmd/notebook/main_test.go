package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pbaille/notebook/internal/domain"
	"github.com/pbaille/notebook/internal/enrich"
)

type cliTestEnv struct {
	configPath string
	dataDir    string
	calls      atomic.Int32
}

// setupCLITestEnv writes a config pointing at a temp data dir and a fake
// Messages API that answers by prompt kind.
func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()
	base := t.TempDir()
	t.Setenv("HOME", base)
	t.Setenv("NOTEBOOK_DATA_DIR", "")

	env := &cliTestEnv{dataDir: filepath.Join(base, "data")}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env.calls.Add(1)
		var req struct {
			Messages []struct {
				Content string `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		prompt := req.Messages[len(req.Messages)-1].Content
		reply := "Roth conversions move pre-tax savings into a Roth IRA."
		switch {
		case strings.Contains(prompt, "Suggest tags"):
			reply = `{"tags": ["Roth IRA", "retirement", "tax-planning"]}`
		case strings.Contains(prompt, "classifying an entry"):
			reply = `{"category": "procedure", "confidence": 0.8, "rationale": "Lists steps."}`
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content":     []map[string]string{{"type": "text", "text": reply}},
			"stop_reason": "end_turn",
		})
	}))
	t.Cleanup(srv.Close)

	env.configPath = filepath.Join(base, "config.toml")
	cfg := fmt.Sprintf(`[paths]
data_dir = %q

[llm]
api_key = "test"
base_url = %q
retry_attempts = 1

[logging]
format = "json"
level = "error"
`, env.dataDir, srv.URL)
	require.NoError(t, os.WriteFile(env.configPath, []byte(cfg), 0o600))
	return env
}

func (env *cliTestEnv) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestCLIEntryLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "add", "--title", "Roth conversion", "Steps to convert a traditional IRA.")
	require.NoError(t, err)
	assert.Contains(t, out, "Added entry 1")
	assert.Contains(t, out, "Summary:  Roth conversions move pre-tax savings into a Roth IRA.")
	assert.Contains(t, out, "Tags:     roth ira, retirement, tax planning")
	assert.Contains(t, out, "Category: procedure (auto)")
	assert.EqualValues(t, 3, env.calls.Load())

	out, _, err = env.run(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Roth conversion")
	assert.Contains(t, out, "Page 1 of 1 (1 entries)")

	out, _, err = env.run(t, "summarize", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Kept existing value")
	assert.EqualValues(t, 3, env.calls.Load(), "populated summary is not regenerated")

	out, _, err = env.run(t, "tag", "1", "--force")
	require.NoError(t, err)
	assert.NotContains(t, out, "Kept existing value")
	assert.EqualValues(t, 4, env.calls.Load())

	out, _, err = env.run(t, "edit", "1", "--content", "Updated steps.")
	require.NoError(t, err)
	assert.Contains(t, out, "Updated entry 1")

	out, _, err = env.run(t, "tags")
	require.NoError(t, err)
	assert.Contains(t, out, "roth ira")

	out, _, err = env.run(t, "search", "roth")
	require.NoError(t, err)
	assert.Contains(t, out, "[1] Roth conversion")

	out, _, err = env.run(t, "reindex")
	require.NoError(t, err)
	assert.Contains(t, out, "Indexed 1 entries")

	out, _, err = env.run(t, "delete", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted entry 1")

	_, _, err = env.run(t, "show", "1")
	assert.ErrorIs(t, err, enrich.ErrNotFound)
}

func TestCLIReviewWorkflow(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := env.run(t, "add", "--title", "Standard deduction", "Amounts for 2026.")
	require.NoError(t, err)

	out, _, err := env.run(t, "review", "override", "1", "Deductions", "&", "Credits", "--reason", "not a procedure")
	require.NoError(t, err)
	assert.Contains(t, out, "Entry 1: Deductions & Credits (overridden)")

	_, _, err = env.run(t, "review", "mark", "1")
	assert.ErrorIs(t, err, enrich.ErrOverrideActive)

	_, _, err = env.run(t, "review", "override", "1", "Nonsense")
	assert.ErrorIs(t, err, enrich.ErrInvalidOverride)

	out, _, err = env.run(t, "review", "clear", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Entry 1: procedure (auto)")

	out, _, err = env.run(t, "--json", "review", "mark", "1")
	require.NoError(t, err)
	var entry domain.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.Equal(t, domain.ReviewReviewed, entry.Review.Status)
	assert.Equal(t, "procedure", entry.EffectiveCategory())

	out, _, err = env.run(t, "review", "labels")
	require.NoError(t, err)
	assert.Contains(t, out, "Retirement")
}

func TestCLIAddWithoutEnrichment(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := env.run(t, "--json", "add", "--no-enrich", "First line title\nmore body")
	require.NoError(t, err)
	var entry domain.Entry
	require.NoError(t, json.Unmarshal([]byte(out), &entry))
	assert.Equal(t, "First line title", entry.Title)
	assert.Nil(t, entry.Summary)
	assert.Zero(t, env.calls.Load())

	out, _, err = env.run(t, "categorize", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "procedure (confidence 0.80)")

	_, _, err = env.run(t, "show", "abc")
	assert.ErrorContains(t, err, "invalid entry id")

	_, _, err = env.run(t, "add", "--no-enrich", "")
	assert.Error(t, err)
}

func TestCLIConfigInit(t *testing.T) {
	base := t.TempDir()
	t.Setenv("HOME", base)
	target := filepath.Join(base, "nested", "config.toml")

	cmd := newRootCommand()
	var stdout bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"config", "init", "--path", target})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "Wrote sample configuration")
	assert.FileExists(t, target)

	cmd = newRootCommand()
	cmd.SetArgs([]string{"config", "init", "--path", target})
	assert.ErrorContains(t, cmd.Execute(), "already exists")

	cmd = newRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"config", "init", "--path", target, "--overwrite"})
	require.NoError(t, cmd.Execute())

	cmd = newRootCommand()
	stdout.Reset()
	cmd.SetOut(&stdout)
	cmd.SetArgs([]string{"--config", target, "config", "validate"})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, stdout.String(), "is valid")
}
