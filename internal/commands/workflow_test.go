package commands_test

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initWorkspace(t *testing.T, args ...string) string {
	t.Helper()
	dir := t.TempDir()
	out, err := runSubscan(t, append([]string{"init", dir, "--user", "alice"}, args...)...)
	require.NoError(t, err, out)
	return dir
}

func copyFixture(t *testing.T, name, dst string) {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "..", "testdata", name))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dst, data, 0o644))
}

type candidateJSON struct {
	ID            int64  `json:"id"`
	MerchantKey   string `json:"merchant_key"`
	AvgAmount     string `json:"avg_amount"`
	CadenceGuess  string `json:"cadence_guess"`
	NextPredicted string `json:"next_predicted"`
	Status        string `json:"status"`
}

func listCandidates(t *testing.T, dir string, extra ...string) []candidateJSON {
	t.Helper()
	out, err := subscanCommand(append([]string{"candidates", "list", "--json", "--repo", dir}, extra...)...).Output()
	require.NoError(t, err)
	var cands []candidateJSON
	require.NoError(t, json.Unmarshal(out, &cands), string(out))
	return cands
}

func TestImport_FromImportDir(t *testing.T) {
	dir := initWorkspace(t)
	copyFixture(t, "spotify.csv", filepath.Join(dir, "import", "spotify.csv"))
	copyFixture(t, "checking_export.csv", filepath.Join(dir, "import", "checking.csv"))

	out, err := runSubscan(t, "import", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "spotify.csv: 5 rows added, 0 skipped, 1 candidates created, 0 updated")
	assert.Contains(t, out, "checking.csv: 8 rows added, 2 skipped, 1 candidates created, 0 updated")

	importFiles, err := filepath.Glob(filepath.Join(dir, "import", "*.csv"))
	require.NoError(t, err)
	assert.Empty(t, importFiles, "no CSVs should remain in import/")
	processed, err := filepath.Glob(filepath.Join(dir, "import", "processed", "*.csv"))
	require.NoError(t, err)
	assert.Len(t, processed, 2)

	cands := listCandidates(t, dir)
	require.Len(t, cands, 2)
	keys := []string{cands[0].MerchantKey, cands[1].MerchantKey}
	assert.ElementsMatch(t, []string{"SPOTIFY", "NETFLIX COM CA"}, keys)

	out, err = runSubscan(t, "import", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "No CSV files to import.")
}

func TestImport_ExplicitFilesAndReimport(t *testing.T) {
	dir := initWorkspace(t)
	csv := filepath.Join(t.TempDir(), "spotify.csv")
	copyFixture(t, "spotify.csv", csv)

	out, err := runSubscan(t, "import", csv, "--repo", dir)
	require.NoError(t, err, out)
	_, err = os.Stat(csv)
	require.NoError(t, err, "explicit files are not moved")

	out, err = runSubscan(t, "import", csv, "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "0 candidates created, 1 updated")

	cands := listCandidates(t, dir)
	require.Len(t, cands, 1)
	assert.Equal(t, "SPOTIFY", cands[0].MerchantKey)
	assert.Equal(t, "12.99", cands[0].AvgAmount)
	assert.Equal(t, "monthly", cands[0].CadenceGuess)
	assert.Equal(t, "2026-05-31", cands[0].NextPredicted)
}

func TestImport_RequiresUser(t *testing.T) {
	dir := t.TempDir()
	out, err := runSubscan(t, "init", dir)
	require.NoError(t, err, out)

	out, err = runSubscan(t, "import", "--repo", dir)
	require.Error(t, err)
	assert.Contains(t, out, "no user")
}

func TestCandidates_ConfirmFlow(t *testing.T) {
	dir := initWorkspace(t)
	csv := filepath.Join(t.TempDir(), "spotify.csv")
	copyFixture(t, "spotify.csv", csv)
	out, err := runSubscan(t, "import", csv, "--repo", dir)
	require.NoError(t, err, out)

	cands := listCandidates(t, dir)
	require.Len(t, cands, 1)
	id := fmt.Sprint(cands[0].ID)

	out, err = runSubscan(t, "candidates", "confirm", id, "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "as subscription")
	assert.Contains(t, out, "12.99 monthly")

	out, err = runSubscan(t, "candidates", "confirm", id, "--repo", dir)
	require.Error(t, err)
	assert.Contains(t, out, "candidate is not pending")

	assert.Empty(t, listCandidates(t, dir))
	confirmed := listCandidates(t, dir, "--status", "confirmed")
	require.Len(t, confirmed, 1)

	out, err = runSubscan(t, "subscriptions", "list", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "SPOTIFY")
	assert.Contains(t, out, "active")

	out, err = runSubscan(t, "dashboard", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Active subscriptions:")
	assert.Contains(t, out, "12.99")
	assert.Contains(t, out, "155.88")

	out, err = runSubscan(t, "log", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "confirm")
	assert.Contains(t, out, "import")
}

func TestCandidates_IgnoreAndDelete(t *testing.T) {
	dir := initWorkspace(t)
	csv := filepath.Join(t.TempDir(), "spotify.csv")
	copyFixture(t, "spotify.csv", csv)
	out, err := runSubscan(t, "import", csv, "--repo", dir)
	require.NoError(t, err, out)
	id := fmt.Sprint(listCandidates(t, dir)[0].ID)

	out, err = runSubscan(t, "candidates", "ignore", id, "--repo", dir)
	require.NoError(t, err, out)
	assert.Len(t, listCandidates(t, dir, "--status", "ignored"), 1)

	out, err = runSubscan(t, "candidates", "delete", id, "--repo", dir)
	require.NoError(t, err, out)
	assert.Empty(t, listCandidates(t, dir, "--status", "all"))

	out, err = runSubscan(t, "candidates", "delete", "abc", "--repo", dir)
	require.Error(t, err)
	assert.Contains(t, out, `invalid id "abc"`)

	out, err = runSubscan(t, "candidates", "list", "--status", "maybe", "--repo", dir)
	require.Error(t, err)
	assert.Contains(t, out, "unknown candidate status")
}

func TestSubscriptions_AddExportRestore(t *testing.T) {
	dir := initWorkspace(t)

	out, err := runSubscan(t, "subscriptions", "add", "--repo", dir,
		"--name", "Gym", "--amount", "40", "--cadence", "monthly", "--next-due", "2030-01-15", "--category", "Health")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Added subscription 1 (Gym, 40.00 monthly)")

	out, err = runSubscan(t, "subscriptions", "add", "--repo", dir,
		"--name", "Cloud", "--amount", "120", "--cadence", "yearly", "--next-due", "2030-06-01")
	require.NoError(t, err, out)

	out, err = runSubscan(t, "subscriptions", "cancel", "2", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Canceled subscription 2")

	exported := filepath.Join(t.TempDir(), "subs.csv")
	out, err = runSubscan(t, "subscriptions", "export", "-o", exported, "--repo", dir)
	require.NoError(t, err, out)
	data, err := os.ReadFile(exported)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3, "header + 2 subscriptions")

	other := initWorkspace(t)
	out, err = runSubscan(t, "subscriptions", "import", exported, "--repo", other, "--user", "bob")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Restored 2 subscriptions")

	out, err = runSubscan(t, "subscriptions", "list", "--status", "canceled", "--repo", other, "--user", "bob")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Cloud")
	assert.NotContains(t, out, "Gym")

	out, err = runSubscan(t, "subscriptions", "add", "--repo", dir,
		"--name", "Bad", "--amount", "0", "--next-due", "2030-01-01")
	require.Error(t, err)
	assert.Contains(t, out, "amount must be greater than 0")
}

func TestEnvFileOverridesUser(t *testing.T) {
	dir := initWorkspace(t)
	envFile := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("SUBSCAN_USER=carol\n"), 0o644))

	out, err := runSubscan(t, "subscriptions", "add", "--repo", dir, "--env-file", envFile,
		"--name", "Hulu", "--amount", "8", "--next-due", "2030-01-01")
	require.NoError(t, err, out)

	out, err = runSubscan(t, "subscriptions", "list", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "No subscriptions.", "alice sees nothing")

	out, err = runSubscan(t, "subscriptions", "list", "--repo", dir, "--user", "carol")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Hulu")
}

func TestSnapshot_CommitsExports(t *testing.T) {
	requireGit(t)
	dir := initWorkspace(t, "--git")
	out, err := runSubscan(t, "subscriptions", "add", "--repo", dir,
		"--name", "Gym", "--amount", "40", "--next-due", "2030-01-15")
	require.NoError(t, err, out)

	out, err = runSubscan(t, "snapshot", "--repo", dir, "-m", "snapshot: first")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Committed")

	data, err := os.ReadFile(filepath.Join(dir, "exports", "alice", "subscriptions.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Gym")

	log, err := exec.Command("git", "-C", dir, "log", "--format=%s", "-1").Output()
	require.NoError(t, err)
	assert.Contains(t, string(log), "snapshot: first")

	out, err = runSubscan(t, "snapshot", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Nothing changed since the last snapshot")
}

func TestSnapshot_WithoutGit(t *testing.T) {
	dir := initWorkspace(t)
	out, err := runSubscan(t, "snapshot", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Wrote 0 candidates and 0 subscriptions")
	assert.NotContains(t, out, "Committed")

	_, err = os.Stat(filepath.Join(dir, "exports", "alice", "candidates.csv"))
	assert.NoError(t, err)
}

func TestCandidates_Edit(t *testing.T) {
	dir := initWorkspace(t)
	spotify := filepath.Join(t.TempDir(), "spotify.csv")
	copyFixture(t, "spotify.csv", spotify)
	checking := filepath.Join(t.TempDir(), "checking.csv")
	copyFixture(t, "checking_export.csv", checking)
	out, err := runSubscan(t, "import", spotify, checking, "--repo", dir)
	require.NoError(t, err, out)

	var netflix candidateJSON
	for _, c := range listCandidates(t, dir) {
		if c.MerchantKey == "NETFLIX COM CA" {
			netflix = c
		}
	}
	require.NotZero(t, netflix.ID)
	id := fmt.Sprint(netflix.ID)

	out, err = runSubscan(t, "candidates", "edit", id, "--name", "Spotify", "--repo", dir)
	require.Error(t, err)
	assert.Contains(t, out, "another pending candidate already has this merchant")

	out, err = runSubscan(t, "candidates", "edit", id, "--repo", dir)
	require.Error(t, err)
	assert.Contains(t, out, "nothing to change")

	out, err = runSubscan(t, "candidates", "edit", id, "--amount=-2", "--repo", dir)
	require.Error(t, err)
	assert.Contains(t, out, "amount must be greater than 0")

	out, err = runSubscan(t, "candidates", "edit", id, "--name", "Netflix", "--amount", "17.25", "--cadence", "yearly", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Updated candidate "+id+" (Netflix, 17.25 yearly)")

	var edited candidateJSON
	for _, c := range listCandidates(t, dir) {
		if c.ID == netflix.ID {
			edited = c
		}
	}
	assert.Equal(t, "NETFLIX", edited.MerchantKey)
	assert.Equal(t, "17.25", edited.AvgAmount)
	assert.Equal(t, "yearly", edited.CadenceGuess)

	out, err = runSubscan(t, "log", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "edit")
}

func TestSubscriptions_Edit(t *testing.T) {
	dir := initWorkspace(t)
	out, err := runSubscan(t, "subscriptions", "add", "--repo", dir,
		"--name", "Gym", "--amount", "40", "--next-due", "2030-01-15", "--category", "Health")
	require.NoError(t, err, out)

	out, err = runSubscan(t, "subscriptions", "edit", "1", "--repo", dir,
		"--name", "Gym Plus", "--amount", "45", "--next-due", "2030-02-01", "--category", "")
	require.NoError(t, err, out)
	assert.Contains(t, out, "Updated subscription 1 (Gym Plus, 45.00 monthly, next due 2030-02-01)")

	out, err = runSubscan(t, "subscriptions", "list", "--repo", dir)
	require.NoError(t, err, out)
	assert.Contains(t, out, "Gym Plus")
	assert.NotContains(t, out, "Health")

	out, err = runSubscan(t, "subscriptions", "edit", "1", "--cadence", "daily", "--repo", dir)
	require.Error(t, err)
	assert.Contains(t, out, "unknown cadence")

	out, err = runSubscan(t, "subscriptions", "edit", "1", "--next-due", "someday", "--repo", dir)
	require.Error(t, err)
	assert.Contains(t, out, "invalid --next-due")

	out, err = runSubscan(t, "subscriptions", "edit", "9", "--notes", "x", "--repo", dir)
	require.Error(t, err)
	assert.Contains(t, out, "not found")
}
