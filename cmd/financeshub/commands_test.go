package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"financeshub/internal/config"
	"financeshub/internal/pkg/errkind"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"run", "serve", "jobs", "schema"} {
		assert.True(t, names[want], "missing command %s", want)
	}
	assert.NotNil(t, runCmd.Flags().Lookup("continue-on-error"))
	assert.NotNil(t, serveCmd.Flags().Lookup("status-addr"))
}

func TestApplySinkFlag(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.Flags().String("sink", "", "")
	cfg := &config.Config{Storage: config.StorageConfig{Sink: "none"}}

	require.NoError(t, applySinkFlag(cmd, cfg))
	assert.Equal(t, "none", cfg.Storage.Sink)

	require.NoError(t, cmd.Flags().Set("sink", "File"))
	require.NoError(t, applySinkFlag(cmd, cfg))
	assert.Equal(t, "file", cfg.Storage.Sink)

	require.NoError(t, cmd.Flags().Set("sink", "ftp"))
	require.ErrorIs(t, applySinkFlag(cmd, cfg), errkind.ErrConfig)
}

func TestJobsCommandListsDeclaredJobs(t *testing.T) {
	for _, env := range []string{config.EnvConfig, config.EnvSink, config.EnvPGDSN, config.EnvJobs} {
		t.Setenv(env, "")
	}
	dir := t.TempDir()
	jobs := filepath.Join(dir, "jobs.yaml")
	require.NoError(t, os.WriteFile(jobs, []byte(`
jobs:
  - name: coingecko_btc_price
    type: coingecko_price
    coin_id: bitcoin
  - name: yfinance_sp500
    type: yahoo_close
    symbol: ^GSPC
    start_date: "2020-01-01"
`), 0o644))
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("app:\n  log_level: error\nstorage:\n  runlog_path: \""+filepath.Join(dir, "runs.db")+"\"\njobs:\n  path: \""+jobs+"\"\n"), 0o644))

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"jobs", "--config", cfgPath})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
		cfgFile = ""
	})
	require.NoError(t, rootCmd.Execute())
	assert.Equal(t, "coingecko_btc_price\nyfinance_sp500\n", out.String())
}
