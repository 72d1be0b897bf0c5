// Package jobspec loads declarative job descriptors from a YAML file.
package jobspec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"financeshub/internal/pkg/errkind"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

const (
	TypeBinanceKlines  = "binance_klines"
	TypeBinancePrice   = "binance_price"
	TypeCoingeckoChart = "coingecko_market_chart"
	TypeCoingeckoPrice = "coingecko_price"
	TypeCoingeckoDaily = "coingecko_daily"
	TypeYahooClose     = "yahoo_close"
)

// Descriptor is one declared job. Which fields matter depends on Type.
type Descriptor struct {
	Name      string `mapstructure:"name"`
	Type      string `mapstructure:"type"`
	Symbol    string `mapstructure:"symbol"`
	CoinID    string `mapstructure:"coin_id"`
	Currency  string `mapstructure:"currency"`
	StartDate string `mapstructure:"start_date"`
	EndDate   string `mapstructure:"end_date"`
	Days      string `mapstructure:"days"`
	Asset     string `mapstructure:"asset"`
}

type fileConfig struct {
	Jobs []Descriptor `mapstructure:"jobs"`
}

var placeholder = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Load reads and validates the job file at path.
func Load(path string) ([]Descriptor, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errkind.Config("read job file %s: %v", path, err)
	}
	jobs, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return jobs, nil
}

// Parse validates a job document. ${NAME} placeholders in string values are replaced from the
// environment (unset names become empty). Any problem rejects the whole document.
func Parse(raw []byte) ([]Descriptor, error) {
	var root yaml.Node
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	if err := dec.Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errkind.Config("job file is empty")
		}
		return nil, errkind.Config("parse job file: %v", err)
	}
	doc, err := nodeValue(&root)
	if err != nil {
		return nil, errkind.Config("parse job file: %v", err)
	}
	if err := fileSchema.Validate(doc); err != nil {
		return nil, errkind.Config("job file does not match schema: %v", err)
	}

	var cfg fileConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(doc); err != nil {
		return nil, errkind.Config("decode job file: %v", err)
	}

	seen := make(map[string]struct{}, len(cfg.Jobs))
	out := make([]Descriptor, 0, len(cfg.Jobs))
	for _, d := range cfg.Jobs {
		d = normalize(d)
		if _, dup := seen[d.Name]; dup {
			return nil, errkind.Config("duplicate job name %q", d.Name)
		}
		seen[d.Name] = struct{}{}
		out = append(out, d)
	}
	return out, nil
}

func normalize(d Descriptor) Descriptor {
	d.Name = strings.TrimSpace(d.Name)
	d.Type = strings.TrimSpace(d.Type)
	d.Symbol = strings.TrimSpace(d.Symbol)
	d.CoinID = strings.TrimSpace(d.CoinID)
	d.Currency = strings.TrimSpace(d.Currency)
	d.StartDate = strings.TrimSpace(d.StartDate)
	d.EndDate = strings.TrimSpace(d.EndDate)
	d.Days = strings.TrimSpace(d.Days)
	d.Asset = strings.TrimSpace(d.Asset)
	return d
}

// nodeValue converts a YAML node into plain JSON-like values. Scalars other than numbers,
// booleans and null stay strings, so unquoted dates are not turned into timestamps.
func nodeValue(n *yaml.Node) (any, error) {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return nil, nil
		}
		return nodeValue(n.Content[0])
	case yaml.AliasNode:
		return nodeValue(n.Alias)
	case yaml.MappingNode:
		out := make(map[string]any, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			k, v := n.Content[i], n.Content[i+1]
			if k.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: mapping keys must be scalars", k.Line)
			}
			val, err := nodeValue(v)
			if err != nil {
				return nil, err
			}
			out[k.Value] = val
		}
		return out, nil
	case yaml.SequenceNode:
		out := make([]any, 0, len(n.Content))
		for _, c := range n.Content {
			val, err := nodeValue(c)
			if err != nil {
				return nil, err
			}
			out = append(out, val)
		}
		return out, nil
	case yaml.ScalarNode:
		switch n.ShortTag() {
		case "!!int", "!!float":
			if json.Valid([]byte(n.Value)) {
				return json.Number(n.Value), nil
			}
			return n.Value, nil
		case "!!bool":
			var b bool
			if err := n.Decode(&b); err != nil {
				return nil, err
			}
			return b, nil
		case "!!null":
			return nil, nil
		default:
			return expandEnv(n.Value), nil
		}
	}
	return nil, fmt.Errorf("line %d: unsupported yaml node", n.Line)
}

func expandEnv(s string) string {
	return placeholder.ReplaceAllStringFunc(s, func(m string) string {
		return os.Getenv(m[2 : len(m)-1])
	})
}
