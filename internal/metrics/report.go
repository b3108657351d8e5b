package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

const StrategySerial = "serial"

// Report is the outcome of one run.
type Report struct {
	Strategy     string  `json:"strategy" yaml:"strategy"`
	N            int     `json:"n" yaml:"n"`
	Workers      int     `json:"workers" yaml:"workers"`
	BuildSeconds float64 `json:"build_s" yaml:"build_s"`
	SieveSeconds float64 `json:"sieve_s" yaml:"sieve_s"`
	TotalSeconds float64 `json:"total_s" yaml:"total_s"`
	MemoryMB     float64 `json:"mem_mb" yaml:"mem_mb"`
	Primes       int     `json:"primes" yaml:"primes"`
	CPU          string  `json:"cpu,omitempty" yaml:"cpu,omitempty"`
}

func NewReport(strategy string, n, workers int, t Timing) Report {
	return Report{
		Strategy:     strategy,
		N:            n,
		Workers:      workers,
		BuildSeconds: t.BuildSeconds,
		SieveSeconds: t.SieveSeconds,
		TotalSeconds: t.TotalSeconds,
	}
}

// String renders the one-line report: "<N> <elapsed>" for the serial sieve,
// the key=value form otherwise.
func (r Report) String() string {
	if r.Strategy == StrategySerial {
		return fmt.Sprintf("%d %.3f", r.N, r.TotalSeconds)
	}
	return fmt.Sprintf("N=%d cores=%d build_s=%.3f sieve_s=%.3f total_s=%.3f mem_MB=%.1f",
		r.N, r.Workers, r.BuildSeconds, r.SieveSeconds, r.TotalSeconds, r.MemoryMB)
}

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown report format %q (want text, json or yaml)", s)
	}
}

func Write(w io.Writer, r Report, f Format) error {
	switch f {
	case FormatText, "":
		_, err := fmt.Fprintln(w, r.String())
		return err
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(r)
	default:
		return fmt.Errorf("unknown report format %q", f)
	}
}
