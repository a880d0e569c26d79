package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "sqldb", cmd.Use)
	assert.Contains(t, cmd.Long, "single-writer")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	commands := []string{"query", "exec", "insert", "bench"}

	for _, cmdName := range commands {
		t.Run(cmdName, func(t *testing.T) {
			subCmd, _, err := cmd.Find([]string{cmdName})
			require.NoError(t, err, "Command %s should exist", cmdName)
			require.NotNil(t, subCmd)
			assert.Equal(t, cmdName, subCmd.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	verboseFlag := cmd.PersistentFlags().Lookup("verbose")
	require.NotNil(t, verboseFlag)
	assert.Equal(t, "v", verboseFlag.Shorthand)
	assert.Equal(t, "false", verboseFlag.DefValue)

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	dbFlag := cmd.PersistentFlags().Lookup("db")
	require.NotNil(t, dbFlag)
	assert.Equal(t, "", dbFlag.DefValue)

	configFlag := cmd.PersistentFlags().Lookup("config")
	require.NotNil(t, configFlag)
	assert.Equal(t, "c", configFlag.Shorthand)
}

func TestInsertCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	insertCmd, _, err := cmd.Find([]string{"insert"})
	require.NoError(t, err)

	conflictFlag := insertCmd.Flags().Lookup("on-conflict")
	require.NotNil(t, conflictFlag)
	assert.Equal(t, "none", conflictFlag.DefValue)

	require.NotNil(t, insertCmd.Flags().Lookup("null-column"))
}

func TestBenchCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	benchCmd, _, err := cmd.Find([]string{"bench"})
	require.NoError(t, err)

	for flag, def := range map[string]string{"writers": "4", "rows": "100", "readers": "1"} {
		f := benchCmd.Flags().Lookup(flag)
		require.NotNil(t, f, flag)
		assert.Equal(t, def, f.DefValue, flag)
	}
}

func TestInvalidFormat(t *testing.T) {
	_, err := runCLI(t, "--format", "xml", "query", "--db", filepath.Join(t.TempDir(), "x.db"), "SELECT 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "sqldb.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
path: ./from-config.db
busy_timeout: 2s
callbacks:
  executor: pool
  pool_size: 2
`), 0o644))

	t.Run("config file", func(t *testing.T) {
		cfg, err := loadConfig(&RootOptions{Config: cfgPath})
		require.NoError(t, err)
		assert.Equal(t, "./from-config.db", cfg.Path)
		assert.Equal(t, 2*time.Second, cfg.BusyTimeout)
		assert.Equal(t, "pool", cfg.Callbacks.Executor)
	})

	t.Run("db flag overrides path", func(t *testing.T) {
		cfg, err := loadConfig(&RootOptions{Config: cfgPath, Database: "other.db"})
		require.NoError(t, err)
		assert.Equal(t, "other.db", cfg.Path)
		assert.Equal(t, 2, cfg.Callbacks.PoolSize)
	})

	t.Run("no database", func(t *testing.T) {
		_, err := loadConfig(&RootOptions{})
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})

	t.Run("missing config file", func(t *testing.T) {
		_, err := loadConfig(&RootOptions{Config: filepath.Join(dir, "nope.yaml")})
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	})
}

func TestParseArg(t *testing.T) {
	tests := []struct {
		in   string
		want any
	}{
		{"42", int64(42)},
		{"-7", int64(-7)},
		{"1.5", 1.5},
		{"NULL", nil},
		{"hello", "hello"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, parseArg(tt.in))
		})
	}
}

func TestParseAssignments(t *testing.T) {
	values, err := parseAssignments([]string{"body=a=b", "n=3", "owner="})
	require.NoError(t, err)
	assert.Equal(t, []string{"body", "n", "owner"}, values.Keys())

	v, _ := values.Get("body")
	assert.Equal(t, "a=b", v)
	v, _ = values.Get("n")
	assert.Equal(t, int64(3), v)

	_, err = parseAssignments([]string{"nobody"})
	assert.Error(t, err)
	_, err = parseAssignments([]string{"=x"})
	assert.Error(t, err)
}
