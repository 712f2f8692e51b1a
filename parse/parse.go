// Package parse reads the textual valve network format:
//
//	Valve AA has flow rate=0; tunnels lead to valves DD, II, BB
//	Valve HH has flow rate=22; tunnel leads to valve GG
//
// One record per line; blank lines are skipped. Both the plural and the
// singular tunnel phrasing are accepted. The line pattern is compiled once at
// package initialization and never mutated.
package parse

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/katalvlaran/pressure/valve"
)

// ErrMalformedLine indicates a line that does not match the record pattern.
// It wraps valve.ErrMalformedInput.
var ErrMalformedLine = fmt.Errorf("parse: malformed line: %w", valve.ErrMalformedInput)

var linePattern = regexp.MustCompile(
	`^Valve (\w+) has flow rate=(\d+); tunnels? leads? to valves? (\w+(?:, \w+)*)$`)

// ParseLine decodes a single record.
func ParseLine(line string) (valve.Row, error) {
	m := linePattern.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return valve.Row{}, fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}
	flow, err := strconv.ParseUint(m[2], 10, 64)
	if err != nil {
		return valve.Row{}, fmt.Errorf("%w: flow rate %q: %w", ErrMalformedLine, m[2], err)
	}

	return valve.Row{
		ID:      m[1],
		Flow:    flow,
		Tunnels: strings.Split(m[3], ", "),
	}, nil
}

// Parse decodes every record of r. Errors carry the 1-based line number.
func Parse(r io.Reader) ([]valve.Row, error) {
	var (
		rows []valve.Row
		n    int
	)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		n++
		line := sc.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		row, err := ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", n, err)
		}
		rows = append(rows, row)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("parse: read: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}

	return rows, nil
}

// ErrEmpty indicates that the input held no records.
var ErrEmpty = errors.New("parse: no valve records")
