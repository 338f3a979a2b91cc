package main

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"mq-pipeline-bench/pkg/common_errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMessageCount(t *testing.T) {
	n, err := parseMessageCount([]string{"1000"})
	require.NoError(t, err)
	assert.Equal(t, 1000, n)

	for _, args := range [][]string{nil, {"0"}, {"-5"}, {"ten"}, {"1", "2"}} {
		_, err := parseMessageCount(args)
		assert.True(t, errors.Is(err, common_errors.ErrInvalidMessageCount), "%v", args)
		assert.True(t, common_errors.IsStartupError(err))
	}
}

func TestSinkPath(t *testing.T) {
	FLAGS_outDir = ""
	assert.Equal(t, "valid.csv", sinkPath("valid.csv"))
	FLAGS_outDir = "/tmp/out"
	defer func() { FLAGS_outDir = "" }()
	assert.Equal(t, filepath.Join("/tmp/out", "valid.csv"), sinkPath("valid.csv"))
	assert.Equal(t, "/var/data/invalid.csv", sinkPath("/var/data/invalid.csv"))
}

func countRows(t *testing.T, path string) int {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return len(rows)
}

func TestRunInProcess(t *testing.T) {
	out := t.TempDir()
	FLAGS_outDir = out
	FLAGS_config = ""
	defer func() { FLAGS_outDir = "" }()
	t.Setenv("MQBENCH_TRANSPORT_KIND", "mem")
	t.Setenv("MQBENCH_SERDE_FORMAT", "msgp")
	t.Setenv("MQBENCH_CONSUMER_POLL_TIMEOUT", "5")
	t.Setenv("MQBENCH_WRITER_POLL_INTERVAL", "2")

	require.NoError(t, run(context.Background(), 50))
	// one header per file
	rows := countRows(t, filepath.Join(out, "valid.csv")) + countRows(t, filepath.Join(out, "invalid.csv"))
	assert.Equal(t, 52, rows)

	require.NoError(t, run(context.Background(), 10))
	rows = countRows(t, filepath.Join(out, "valid.csv")) + countRows(t, filepath.Join(out, "invalid.csv"))
	assert.Equal(t, 62, rows)
}

func TestRunRejectsBadConfig(t *testing.T) {
	FLAGS_outDir = t.TempDir()
	FLAGS_config = ""
	defer func() { FLAGS_outDir = "" }()
	t.Setenv("MQBENCH_TRANSPORT_KIND", "carrier-pigeon")
	err := run(context.Background(), 10)
	assert.True(t, common_errors.IsStartupError(err))
}
