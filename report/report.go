// Package report turns a search.Result into a per-minute summary and renders
// it as plain text, JSON or a styled terminal table.
//
// The per-minute table follows the release rule of the optimizer: during
// minute m the open valves release their flow first, then the minute's action
// takes effect. Rate is therefore the rate in force during the minute and
// Released the running total including that minute.
package report

import (
	"errors"
	"fmt"
	"strings"

	"github.com/katalvlaran/pressure/search"
	"github.com/katalvlaran/pressure/valve"
)

var (
	// ErrUnknownFormat indicates an unrecognized output format name.
	ErrUnknownFormat = errors.New("report: unknown format")

	// ErrTraceMismatch indicates a trace whose replay does not reproduce the
	// reported maximum.
	ErrTraceMismatch = errors.New("report: trace does not reproduce result")
)

// Format selects a rendering.
type Format int

const (
	Text Format = iota
	JSON
	Pretty
)

// String returns the flag spelling of f.
func (f Format) String() string {
	switch f {
	case Text:
		return "text"
	case JSON:
		return "json"
	case Pretty:
		return "pretty"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

// ParseFormat maps a name to a Format; the empty name means Text.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(name) {
	case "", "text":
		return Text, nil
	case "json":
		return JSON, nil
	case "pretty":
		return Pretty, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// Step is one row of the per-minute table.
type Step struct {
	Minute   int    `json:"minute"`
	Action   string `json:"action"`
	Valve    string `json:"valve,omitempty"`
	Rate     uint64 `json:"rate"`
	Released uint64 `json:"released"`
}

// Summary is the renderable view of a solve.
type Summary struct {
	Start       string `json:"start"`
	Budget      int    `json:"budget"`
	Strategy    string `json:"strategy"`
	MaxPressure uint64 `json:"max_pressure"`
	Expanded    uint64 `json:"expanded"`
	Steps       []Step `json:"steps,omitempty"`
}

// New builds a Summary for res. When res carries a trace it is replayed
// against g and must reproduce res.MaxPressureReleased; otherwise the table
// is left empty.
func New(res search.Result, budget int, g *valve.Graph, start string) (Summary, error) {
	s := Summary{
		Start:       start,
		Budget:      budget,
		Strategy:    res.Strategy.String(),
		MaxPressure: res.MaxPressureReleased,
		Expanded:    res.Stats.Expanded,
	}
	if res.Actions == nil {
		return s, nil
	}

	total, err := search.Simulate(g, start, budget, res.Actions)
	if err != nil {
		return Summary{}, err
	}
	if total != res.MaxPressureReleased {
		return Summary{}, fmt.Errorf("%w: replay %d, reported %d", ErrTraceMismatch, total, res.MaxPressureReleased)
	}

	var released, rate uint64
	s.Steps = make([]Step, 0, len(res.Actions))
	for i, a := range res.Actions {
		released += rate
		s.Steps = append(s.Steps, Step{
			Minute:   i + 1,
			Action:   a.Kind.String(),
			Valve:    a.Valve,
			Rate:     rate,
			Released: released,
		})
		if a.Kind == search.OpenValve {
			// Simulate already vetted the action, so the lookup holds.
			v, _ := g.Lookup(a.Valve)
			rate += v.Flow
		}
	}

	return s, nil
}
