package metrics

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestAggregateUsesMax(t *testing.T) {
	got := Aggregate(0.5, 1.0, 5.0, 2.0)

	assert.InDelta(t, 5.0, got.SieveSeconds, 1e-12)
	assert.InDelta(t, 5.5, got.TotalSeconds, 1e-12)
	assert.NotEqual(t, 9.0, got.TotalSeconds)
}

func TestAggregateRecords(t *testing.T) {
	got := AggregateRecords([]TimingRecord{
		{BuildSeconds: 0.5, SieveSeconds: 1.0},
		{BuildSeconds: 0.5, SieveSeconds: 5.0},
		{BuildSeconds: 0.5, SieveSeconds: 2.0},
	})
	assert.Equal(t, Timing{BuildSeconds: 0.5, SieveSeconds: 5.0, TotalSeconds: 5.5}, got)

	assert.Equal(t, Timing{}, AggregateRecords(nil))
}

func TestAggregateNoWorkers(t *testing.T) {
	assert.Equal(t, Timing{BuildSeconds: 1.5, TotalSeconds: 1.5}, Aggregate(1.5))
}

func TestMax(t *testing.T) {
	assert.Equal(t, 0.0, Max())
	assert.Equal(t, -1.0, Max(-3, -1, -2))
	assert.Equal(t, 7.0, Max(7))
}

func TestRecords(t *testing.T) {
	got := Records(0.25, []time.Duration{1500 * time.Millisecond, 0})
	assert.Equal(t, []TimingRecord{
		{BuildSeconds: 0.25, SieveSeconds: 1.5},
		{BuildSeconds: 0.25, SieveSeconds: 0},
	}, got)
	assert.Equal(t, Timing{BuildSeconds: 0.25, SieveSeconds: 1.5, TotalSeconds: 1.75}, AggregateRecords(got))
}

func TestReportString(t *testing.T) {
	r := NewReport("pool", 1000000, 8, Aggregate(0.0012, 0.02, 0.0314))
	r.MemoryMB = 12.345

	assert.Equal(t, "N=1000000 cores=8 build_s=0.001 sieve_s=0.031 total_s=0.033 mem_MB=12.3", r.String())

	serial := NewReport(StrategySerial, 10000000, 1, Aggregate(0, 1.23456))
	assert.Equal(t, "10000000 1.235", serial.String())
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "TEXT": FormatText, " json": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestWrite(t *testing.T) {
	r := Report{Strategy: "cluster", N: 100, Workers: 4, Primes: 25, TotalSeconds: 0.25}

	var text bytes.Buffer
	require.NoError(t, Write(&text, r, FormatText))
	assert.Equal(t, r.String()+"\n", text.String())

	var js bytes.Buffer
	require.NoError(t, Write(&js, r, FormatJSON))
	var fromJSON Report
	require.NoError(t, json.Unmarshal(js.Bytes(), &fromJSON))
	assert.Equal(t, r, fromJSON)

	var ym bytes.Buffer
	require.NoError(t, Write(&ym, r, FormatYAML))
	assert.Contains(t, ym.String(), "strategy: cluster")
	var fromYAML Report
	require.NoError(t, yaml.Unmarshal(ym.Bytes(), &fromYAML))
	assert.Equal(t, r, fromYAML)

	assert.Error(t, Write(&text, r, Format("csv")))
}
