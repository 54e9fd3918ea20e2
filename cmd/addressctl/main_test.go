package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"addrstore/config"
	domainerrors "addrstore/internal/domain/errors"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestAppGraphIsValid(t *testing.T) {
	cfg := &config.Config{}
	cfg.Storage.Driver = config.DriverPebble
	cfg.Storage.InMemory = true

	require.NoError(t, fx.ValidateApp(appOptions(cfg, io.Discard)...))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "nil", err: nil, want: exitOK},
		{name: "plain", err: errors.New("boom"), want: exitFailure},
		{name: "not found", err: domainerrors.ErrNotFound, want: exitNotFound},
		{name: "snapshot not found", err: domainerrors.ErrSnapshotNotFound.WithDetails("x"), want: exitNotFound},
		{name: "duplicate", err: errors.Wrap(domainerrors.ErrDuplicateKey, "create"), want: exitDuplicate},
		{name: "format", err: domainerrors.ErrInvalidFormat, want: exitInvalidFormat},
		{name: "missing id", err: domainerrors.ErrMissingIdentifier, want: exitInvalidInput},
		{name: "argument", err: domainerrors.ErrInvalidArgument, want: exitInvalidInput},
		{name: "storage", err: domainerrors.NewStorageError(errors.New("io"), "read"), want: exitUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

type cli struct {
	t         *testing.T
	configDir string
	dataDir   string
}

func newCLI(t *testing.T) *cli {
	t.Helper()

	dir := t.TempDir()
	dataDir := filepath.Join(dir, "data")
	yaml := "env:\n  log:\n    level: error\nstorage:\n  driver: pebble\n  path: " + filepath.Join(dataDir, "addresses") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600))

	return &cli{t: t, configDir: dir, dataDir: dataDir}
}

func (c *cli) run(stdin string, args ...string) (string, error) {
	c.t.Helper()

	var stdout bytes.Buffer
	cmd := newRootCmd(&rootOptions{logWriter: io.Discard})
	cmd.SetArgs(append([]string{"--config-dir", c.configDir}, args...))
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()

	return stdout.String(), err
}

func (c *cli) mustRun(args ...string) string {
	c.t.Helper()

	out, err := c.run("", args...)
	require.NoError(c.t, err, "addressctl %v", args)

	return out
}

func decode[T any](t *testing.T, out string) T {
	t.Helper()

	var v T
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)

	return v
}

type addressOut struct {
	ID               uint64   `json:"id"`
	ZipCode          string   `json:"zipCode"`
	FormattedZipCode string   `json:"formattedZipCode"`
	City             string   `json:"city"`
	Aliases          []string `json:"aliases"`
	Active           bool     `json:"active"`
}

func TestCommands_Lifecycle(t *testing.T) {
	c := newCLI(t)

	created := decode[addressOut](t, c.mustRun("create", "--zip", "01001000", "--street", "Praça da Sé", "--state", "SP", "--alias", "Marco Zero"))
	assert.Equal(t, uint64(1), created.ID)
	assert.Equal(t, "01001-000", created.FormattedZipCode)
	assert.True(t, created.Active)

	_, err := c.run("", "create", "--zip", "01001000", "--street", "Other", "--state", "SP")
	assert.Equal(t, exitDuplicate, exitCode(err))

	byAlias := decode[[]addressOut](t, c.mustRun("find", "--alias", "marco zero"))
	require.Len(t, byAlias, 1)
	assert.Equal(t, uint64(1), byAlias[0].ID)

	out, err := c.run(`[{"zipCode":"02002000","street":"B","state":"SP"},{"street":"x"}]`, "import", "-")
	require.NoError(t, err)
	report := decode[struct {
		Imported     int `json:"imported"`
		SkippedCount int `json:"skippedCount"`
	}](t, out)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 1, report.SkippedCount)

	assert.Equal(t, "2\n", c.mustRun("count"))

	page := decode[struct {
		Items      []addressOut `json:"items"`
		TotalPages int          `json:"totalPages"`
	}](t, c.mustRun("list", "--page", "2", "--size", "1"))
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "02002000", page.Items[0].ZipCode)

	updated := decode[addressOut](t, c.mustRun("update", "1", "--city", "São Paulo", "--inactive"))
	assert.Equal(t, "São Paulo", updated.City)
	assert.False(t, updated.Active)
	assert.Equal(t, []string{"Marco Zero"}, updated.Aliases)

	require.NoError(t, func() error { _, err := c.run("", "delete", "2"); return err }())
	assert.Equal(t, "1\n", c.mustRun("count"))

	_, err = c.run("", "get", "2")
	assert.Equal(t, exitNotFound, exitCode(err))

	_, err = c.run("", "get", "abc")
	assert.Equal(t, exitInvalidInput, exitCode(err))
}

func TestCommands_ImportRejectsMalformedPayload(t *testing.T) {
	c := newCLI(t)

	_, err := c.run(`{"zipCode":"01001000"}`, "import", "-")
	assert.Equal(t, exitInvalidFormat, exitCode(err))
	assert.Equal(t, "0\n", c.mustRun("count"))
}

func TestCommands_ExportToFile(t *testing.T) {
	c := newCLI(t)
	c.mustRun("create", "--zip", "01001000", "--street", "A", "--state", "SP")

	target := filepath.Join(t.TempDir(), "addresses.json")
	c.mustRun("export", target)

	payload, err := os.ReadFile(target)
	require.NoError(t, err)
	exported := decode[[]addressOut](t, string(payload))
	require.Len(t, exported, 1)
	assert.Equal(t, "01001000", exported[0].ZipCode)
}

func TestCommands_BackupAndRestore(t *testing.T) {
	c := newCLI(t)
	c.mustRun("create", "--zip", "01001000", "--street", "A", "--state", "SP")

	assert.Equal(t, "nightly.json\n", c.mustRun("backup", "nightly.json"))
	assert.FileExists(t, filepath.Join(c.dataDir, "snapshots", "backups", "nightly.json"))

	snapshots := decode[[]struct {
		Key string `json:"key"`
	}](t, c.mustRun("snapshots"))
	require.Len(t, snapshots, 1)
	assert.Equal(t, "nightly.json", snapshots[0].Key)

	// Every zip code in the snapshot is still stored.
	_, err := c.run("", "restore")
	assert.Equal(t, exitDuplicate, exitCode(err))

	c.mustRun("delete", "1")
	restored := decode[struct {
		Imported int `json:"imported"`
	}](t, c.mustRun("restore", "nightly.json"))
	assert.Equal(t, 1, restored.Imported)

	_, err = c.run("", "restore", "missing.json")
	assert.Equal(t, exitNotFound, exitCode(err))
}

func TestCommands_MetricsTextfile(t *testing.T) {
	c := newCLI(t)
	metrics := filepath.Join(t.TempDir(), "addrstore.prom")

	c.mustRun("--metrics-textfile", metrics, "create", "--zip", "01001000", "--street", "A", "--state", "SP")

	payload, err := os.ReadFile(metrics)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "addrstore_index_manager_entry_writes_total")
}
