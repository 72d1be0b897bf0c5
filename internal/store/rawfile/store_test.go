package rawfile

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"financeshub/internal/envelope"
	"financeshub/internal/pkg/errkind"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample(asset string) envelope.Envelope {
	return envelope.New(envelope.Fields{
		Source:        "unit",
		Endpoint:      "unit.endpoint",
		RequestParams: map[string]string{"symbol": asset},
		Asset:         asset,
		Currency:      "brl",
		Payload:       map[string]any{"note": "ação <b>&", "value": json.Number("1.50")},
	})
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		lines = append(lines, sc.Text())
	}
	require.NoError(t, sc.Err())
	return lines
}

func TestWrite_AppendsAcrossCalls(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "raw"))

	path, err := s.Write("binance", []envelope.Envelope{sample("BTC"), sample("ETH")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(s.BaseDir(), "binance", "raw.jsonl"), path)

	_, err = s.Write("binance", []envelope.Envelope{sample("SOL")})
	require.NoError(t, err)

	lines := readLines(t, path)
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"note":"ação <b>&"`)
	assert.Contains(t, lines[0], `"value":1.50`)
	assert.NotContains(t, lines[0], `\u003c`)

	last, err := envelope.Decode([]byte(lines[2]))
	require.NoError(t, err)
	assert.Equal(t, "SOL", last.Asset)
	assert.Equal(t, json.Number("1.50"), last.Payload["value"])
}

func TestWrite_EmptyCreatesFile(t *testing.T) {
	s := New(t.TempDir())
	path, err := s.Write("coingecko", nil)
	require.NoError(t, err)
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())
}

func TestWrite_RejectsPathCategories(t *testing.T) {
	s := New(t.TempDir())
	for _, c := range []string{"", "../x", "a/b", ".."} {
		_, err := s.Write(c, nil)
		assert.ErrorIs(t, err, errkind.ErrInput, c)
	}
}

func TestNew_DefaultBase(t *testing.T) {
	assert.Equal(t, DefaultBaseDir, New(" ").BaseDir())
}
