package checker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thalo-lang/thalo/parser"
	"github.com/thalo-lang/thalo/workspace"
)

func newTestWorkspace(t *testing.T, files map[string]string) *workspace.Workspace {
	t.Helper()
	ws := workspace.New()
	for uri, src := range files {
		_, err := ws.AddDocument(uri, []byte(src), parser.FileTypeThalo)
		require.NoError(t, err)
	}
	return ws
}

func diagnosticRuleIDs(diags []Diagnostic) []string {
	ids := make([]string, len(diags))
	for i, d := range diags {
		ids[i] = d.RuleID
	}
	return ids
}

func TestCheckMissingRequiredFieldAndUnresolvedLink(t *testing.T) {
	ws := newTestWorkspace(t, map[string]string{
		"schema.thalo": "2026-01-01T00:00 define-entity person\n" +
			"  # Metadata\n" +
			"    role: string\n",
		"data.thalo": "2026-01-05T09:00 create person \"Ada\" ^ada\n" +
			"  mentor: ^turing\n",
	})

	diags := Check(ws, Config{})
	ids := diagnosticRuleIDs(diags)
	assert.Contains(t, ids, "missing-required-field")
	assert.Contains(t, ids, "unresolved-link")

	for _, d := range diags {
		assert.Equal(t, "data.thalo", d.URI, "diagnostic %q should be attributed to the file its entry lives in", d.RuleID)
	}
}

func TestCheckRuleCanBeDisabledViaConfig(t *testing.T) {
	ws := newTestWorkspace(t, map[string]string{
		"schema.thalo": "2026-01-01T00:00 define-entity person\n" +
			"  # Metadata\n" +
			"    role: string\n",
		"data.thalo": "2026-01-05T09:00 create person \"Ada\" ^ada\n" +
			"  mentor: ^turing\n",
	})

	cfg, err := LoadConfig([]byte("rules:\n  unresolved-link: off\n"))
	require.NoError(t, err)

	diags := Check(ws, cfg)
	assert.NotContains(t, diagnosticRuleIDs(diags), "unresolved-link")
}

func TestCheckDuplicateLinkIDAcrossFiles(t *testing.T) {
	ws := newTestWorkspace(t, map[string]string{
		"a.thalo": "2026-01-01T00:00 create note \"First\" ^shared\n",
		"b.thalo": "2026-01-02T00:00 create note \"Second\" ^shared\n",
	})

	diags := Check(ws, Config{})
	count := 0
	for _, d := range diags {
		if d.RuleID == "duplicate-link-id" {
			count++
		}
	}
	assert.Equal(t, 2, count, "both entries sharing ^shared should each get a diagnostic")
}

func TestCheckCleanWorkspaceProducesNoDiagnostics(t *testing.T) {
	ws := newTestWorkspace(t, map[string]string{
		"schema.thalo": "2026-01-01T00:00 define-entity person\n" +
			"  # Metadata\n" +
			"    role: string\n",
		"data.thalo": "2026-01-05T09:00 create person \"Ada\" ^ada\n" +
			"  role: \"mathematician\"\n",
	})

	diags := Check(ws, Config{})
	assert.Empty(t, diags)
}
