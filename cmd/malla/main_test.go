package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notegood/malla/internal/config"
	"github.com/notegood/malla/internal/model"
	"github.com/notegood/malla/internal/view"
)

const testCatalog = "testdata/psico.json"

func setupHome(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	return dir
}

func runCLI(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := runCLI(t, "", args...)
	require.NoError(t, err, "malla %s", strings.Join(args, " "))
	return out
}

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := config.DefaultConfigPath()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestProgressPersistsInDatabase(t *testing.T) {
	setupHome(t)

	out := mustRun(t, "--catalog", testCatalog, "approve", "1001", "1002")
	assert.Contains(t, out, "approved 1001 (Introducción a la Psicología)")
	assert.Contains(t, out, "approved 1002 (Historia de la Psicología)")

	assert.Equal(t, "No pending prerequisites.\n", mustRun(t, "--catalog", testCatalog, "missing", "1005"))
	assert.Equal(t, "Estadística I\n", mustRun(t, "--catalog", testCatalog, "missing", "1004"))

	detail := mustRun(t, "--catalog", testCatalog, "status", "1003")
	assert.Contains(t, detail, "Status: unlocked")
	assert.Contains(t, detail, "Unlocks: Estadística II")

	summary := mustRun(t, "--catalog", testCatalog, "status")
	assert.Contains(t, summary, "Completion: 2/7 approved (29%)")

	_, err := os.Stat(config.DefaultDBPath())
	assert.NoError(t, err)
}

func TestUnknownCourseIsAnError(t *testing.T) {
	setupHome(t)
	_, err := runCLI(t, "", "--catalog", testCatalog, "approve", "9999")
	require.Error(t, err)
	assert.ErrorIs(t, err, view.ErrUnknownCourse)

	_, err = runCLI(t, "", "--catalog", testCatalog, "missing", "9999")
	assert.ErrorIs(t, err, view.ErrUnknownCourse)
}

func TestIDsAreNormalized(t *testing.T) {
	setupHome(t)
	out := mustRun(t, "--catalog", testCatalog, "take", "  OPT   1 ")
	assert.Contains(t, out, "taking opt-1 (Optativa Libre)")
}

func TestConfigPolicyAndFlagOverride(t *testing.T) {
	setupHome(t)
	writeConfig(t, "[gating]\npolicy = \"approved-or-taking\"\n")

	mustRun(t, "--catalog", testCatalog, "take", "1001")
	assert.Equal(t, "No pending prerequisites.\n", mustRun(t, "--catalog", testCatalog, "missing", "1003"))
	assert.Equal(t, "Introducción a la Psicología\n",
		mustRun(t, "--catalog", testCatalog, "--policy", "approved", "missing", "1003"))
}

func TestConfigCatalogPath(t *testing.T) {
	setupHome(t)
	abs, err := filepath.Abs(testCatalog)
	require.NoError(t, err)
	writeConfig(t, "[catalog]\npath = \""+filepath.ToSlash(abs)+"\"\n")

	assert.Contains(t, mustRun(t, "check"), "9 courses, 3 areas")
}

func TestInvalidSettings(t *testing.T) {
	setupHome(t)
	_, err := runCLI(t, "", "--catalog", testCatalog, "--policy", "bogus", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--policy")

	writeConfig(t, "[gating]\nmode = \"strict\"\n")
	_, err = runCLI(t, "", "--catalog", testCatalog, "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown config key")
}

func TestMissingCatalogHint(t *testing.T) {
	setupHome(t)
	_, err := runCLI(t, "", "status")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pass --catalog")
}

func TestExportImportRoundTrip(t *testing.T) {
	dir := setupHome(t)
	state := filepath.Join(dir, "progress.json")
	base := []string{"--catalog", testCatalog, "--state", state}
	run := func(args ...string) string {
		return mustRun(t, append(append([]string{}, base...), args...)...)
	}

	run("approve", "1001")
	run("take", "1003")
	exported := filepath.Join(dir, "out", "avance.json")
	assert.Contains(t, run("export", exported), "Exported progress to")

	run("reset", "--yes")
	assert.Contains(t, run("status"), "Completion: 0/7 approved (0%)")

	assert.Equal(t, "Imported 1 approved, 1 taking.\n", run("import", exported))

	var doc struct {
		Approved []string `json:"aprobadas"`
		Taking   []string `json:"cursando"`
	}
	require.NoError(t, json.Unmarshal([]byte(run("export")), &doc))
	assert.Equal(t, []string{"1001"}, doc.Approved)
	assert.Equal(t, []string{"1003"}, doc.Taking)
}

func TestImportFromStdinRejectsGarbage(t *testing.T) {
	setupHome(t)
	mustRun(t, "--catalog", testCatalog, "approve", "1001")

	_, err := runCLI(t, "not json", "--catalog", testCatalog, "import", "-")
	require.Error(t, err)
	assert.Contains(t, mustRun(t, "--catalog", testCatalog, "status"), "1/7")

	out, err := runCLI(t, `{"approved":["1002"]}`, "--catalog", testCatalog, "import", "-")
	require.NoError(t, err)
	assert.Equal(t, "Imported 1 approved, 0 taking.\n", out)
}

func TestResetPrompt(t *testing.T) {
	setupHome(t)
	mustRun(t, "--catalog", testCatalog, "approve", "1001")

	out, err := runCLI(t, "n\n", "--catalog", testCatalog, "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Nothing changed.")
	assert.Contains(t, mustRun(t, "--catalog", testCatalog, "status"), "1/7")

	out, err = runCLI(t, "s\n", "--catalog", testCatalog, "reset")
	require.NoError(t, err)
	assert.Contains(t, out, "Progress reset.")
	assert.Contains(t, mustRun(t, "--catalog", testCatalog, "status"), "0/7")
}

func TestListFilters(t *testing.T) {
	setupHome(t)
	mustRun(t, "--catalog", testCatalog, "approve", "1001")

	out := mustRun(t, "--catalog", testCatalog, "list", "--semester", "2")
	assert.Contains(t, out, "2º semestre (1)")
	assert.Contains(t, out, "[ ] 1003")
	assert.NotContains(t, out, "1001")

	out = mustRun(t, "--catalog", testCatalog, "list", "--status", "locked")
	assert.Contains(t, out, "[-] 1004")
	assert.NotContains(t, out, "1003")

	out = mustRun(t, "--catalog", testCatalog, "list", "--semester", "9")
	assert.Contains(t, out, "Extras / Optativas / Prácticas (2)")

	assert.Equal(t, "No courses found.\n", mustRun(t, "--catalog", testCatalog, "list", "--query", "zzz"))

	_, err := runCLI(t, "", "--catalog", testCatalog, "list", "--status", "done")
	assert.Error(t, err)
}

func TestStatsCommand(t *testing.T) {
	setupHome(t)
	mustRun(t, "--catalog", testCatalog, "approve", "1001")

	out := mustRun(t, "--catalog", testCatalog, "stats")
	assert.Contains(t, out, "By semester")
	assert.Contains(t, out, "By area")
	assert.Contains(t, out, "Metodología")

	out = mustRun(t, "--catalog", testCatalog, "stats", "--areas=false")
	assert.NotContains(t, out, "By area")

	out = mustRun(t, "--catalog", testCatalog, "--include-extra", "status")
	assert.Contains(t, out, "1/8 approved")
}

func TestCheckReportsProblems(t *testing.T) {
	dir := setupHome(t)
	assert.Contains(t, mustRun(t, "--catalog", testCatalog, "check"), "OK")

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte(`
- codigo: A
  nombre: Uno
  previaturas: [B]
- codigo: B
  nombre: Dos
  previaturas: [A, Z]
`), 0o644))
	out, err := runCLI(t, "", "--catalog", bad, "check")
	require.Error(t, err)
	assert.Contains(t, out, "prerequisite cycle")
	assert.Contains(t, out, `prerequisite "z" is not in the catalog`)
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	setupHome(t)
	writeConfig(t, defaultConfigTemplate())

	cfg, err := config.LoadConfig(config.DefaultConfigPath())
	require.NoError(t, err)
	assert.Nil(t, cfg.Catalog.Path)
	assert.Nil(t, cfg.Gating.Policy)

	uncommented := strings.ReplaceAll(defaultConfigTemplate(), "# policy", "policy")
	writeConfig(t, uncommented)
	cfg, err = config.LoadConfig(config.DefaultConfigPath())
	require.NoError(t, err)
	require.NotNil(t, cfg.Gating.Policy)
	assert.Equal(t, string(model.PolicyApproved), *cfg.Gating.Policy)
}

func TestApplyConfigRespectsChangedFlags(t *testing.T) {
	cmd := newRootCmd()
	require.NoError(t, cmd.ParseFlags([]string{"--policy", "approved"}))

	fromFile := "approved-or-taking"
	applyStringConfig(cmd, "policy", &policyName, &fromFile)
	assert.Equal(t, "approved", policyName)

	yes := true
	applyBoolConfig(cmd, "include-extra", &includeExtra, &yes)
	assert.True(t, includeExtra)

	applyBoolConfig(cmd, "include-zero-credit", &includeZeroCredit, nil)
	assert.False(t, includeZeroCredit)
}

func TestValidateSettings(t *testing.T) {
	ok := model.Settings{CatalogPath: "c.json", DBPath: "m.db", Policy: model.PolicyApprovedOrTaking}
	assert.NoError(t, validateSettings(ok))

	noDB := ok
	noDB.DBPath = ""
	assert.Error(t, validateSettings(noDB))
	noDB.StatePath = "p.json"
	assert.NoError(t, validateSettings(noDB))

	noCatalog := ok
	noCatalog.CatalogPath = " "
	assert.Error(t, validateSettings(noCatalog))
}
