package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFormatCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetFormat("json")
	SetLevel("info")
	t.Cleanup(func() {
		SetFormat("text")
		SetOutput(os.Stdout)
	})

	With("job", "binance_btcusdt_daily").Info("job finished", "envelopes", 3)
	Debugf("hidden %d", 1)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var rec map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &rec))
	assert.Equal(t, "job finished", rec["msg"])
	assert.Equal(t, "binance_btcusdt_daily", rec["job"])
	assert.EqualValues(t, 3, rec["envelopes"])
}

func TestSetLevelUnknownFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(os.Stdout) })

	SetLevel("verbose")
	Debugf("debug line")
	Infof("info line %s", "ok")

	assert.NotContains(t, buf.String(), "debug line")
	assert.Contains(t, buf.String(), "info line ok")
}
