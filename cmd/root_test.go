package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/donormap/internal/config"
	"github.com/sells-group/donormap/internal/model"
	"github.com/sells-group/donormap/internal/monitoring"
	"github.com/sells-group/donormap/internal/pipeline"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	for _, name := range []string{"map", "totals", "city-totals", "zips", "filter", "runs", "reference"} {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "donormap", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestMapCommand_Flags(t *testing.T) {
	for _, name := range []string{"input", "output", "policy", "concurrency", "no-ledger"} {
		assert.NotNil(t, mapCmd.Flags().Lookup(name), "map should have --%s flag", name)
	}
	assert.Equal(t, "false", mapCmd.Flags().Lookup("no-ledger").DefValue)
}

func TestFilterCommand_Flags(t *testing.T) {
	flag := filterCmd.Flags().Lookup("state")
	require.NotNil(t, flag)
	assert.Equal(t, "MT", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "stats"} {
		assert.True(t, names[name], "runs should have subcommand %q", name)
	}
}

func TestApplyMapFlags(t *testing.T) {
	c := &config.Config{
		Input:    config.InputConfig{Dir: "data/mt-filtered"},
		Output:   config.OutputConfig{Dir: "output/geojson"},
		Pipeline: config.PipelineConfig{Concurrency: 1},
	}
	require.NoError(t, mapCmd.Flags().Set("input", "in"))
	require.NoError(t, mapCmd.Flags().Set("concurrency", "4"))
	t.Cleanup(func() {
		_ = mapCmd.Flags().Set("input", "")
		_ = mapCmd.Flags().Set("concurrency", "1")
		mapCmd.Flags().Lookup("input").Changed = false
		mapCmd.Flags().Lookup("concurrency").Changed = false
	})

	applyMapFlags(mapCmd, c)
	assert.Equal(t, "in", c.Input.Dir)
	assert.Equal(t, 4, c.Pipeline.Concurrency)
	assert.Equal(t, "output/geojson", c.Output.Dir)
}

func TestFormatOutcomes(t *testing.T) {
	outcomes := []pipeline.FileOutcome{
		{
			File:     "data/prop-50-mt.csv",
			Result:   &pipeline.Result{Records: 12, Unresolved: 2},
			Duration: 1500 * time.Millisecond,
		},
		{
			File: "data/prop-51-mt.csv",
			Err:  errors.New("fetcher: open"),
		},
	}

	var buf bytes.Buffer
	formatOutcomes(&buf, outcomes)
	out := buf.String()
	assert.Contains(t, out, "FILE")
	assert.Contains(t, out, "prop-50-mt.csv")
	assert.Contains(t, out, "1.5s")
	assert.Contains(t, out, "failed")
	assert.Equal(t, 1, countFailed(outcomes))
}

func TestFormatOutcomes_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatOutcomes(&buf, nil)
	assert.Empty(t, buf.String())
}

func TestFormatRunsList(t *testing.T) {
	started := time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)
	finished := started.Add(2 * time.Second)
	runs := []model.Run{
		{
			ID:         "abc12345-6789-0000-0000-000000000000",
			File:       "prop-50-mt.csv",
			Status:     model.RunStatusComplete,
			Summary:    &model.RunSummary{Records: 40, Unresolved: 3},
			StartedAt:  started,
			FinishedAt: &finished,
		},
		{
			ID:        "def12345-6789-0000-0000-000000000000",
			File:      "a-very-long-proposition-file-name-mt.csv",
			Status:    model.RunStatusRunning,
			StartedAt: started,
		},
	}

	var buf bytes.Buffer
	formatRunsList(&buf, runs)
	out := buf.String()
	assert.Contains(t, out, "abc12345")
	assert.NotContains(t, out, "abc12345-6789")
	assert.Contains(t, out, "prop-50-mt.csv")
	assert.Contains(t, out, "complete")
	assert.Contains(t, out, "40")
	assert.Contains(t, out, "2s")
	assert.Contains(t, out, "a-very-long-proposition-fil...")
	assert.Contains(t, out, "2025-06-15 10:30")
}

func TestFormatSnapshot(t *testing.T) {
	var buf bytes.Buffer
	formatSnapshot(&buf, &monitoring.LedgerSnapshot{
		Total:    4,
		Complete: 3,
		Failed:   1,
		FailRate: 0.25,
		Records:  120,
		Amount:   12345.5,
	})
	out := buf.String()
	assert.Contains(t, out, "Total runs:")
	assert.Contains(t, out, "25.0%")
	assert.Contains(t, out, "$12,345.5")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "abc12345", truncateID("abc12345-6789"))
	assert.Equal(t, "short", truncateID("short"))
}
