package parse_test

import (
	"os"
	"strings"
	"testing"

	"github.com/katalvlaran/pressure/parse"
	"github.com/katalvlaran/pressure/valve"
	"github.com/stretchr/testify/require"
)

func TestParse_Sample(t *testing.T) {
	f, err := os.Open("testdata/sample.txt")
	require.NoError(t, err)
	defer f.Close()

	rows, err := parse.Parse(f)
	require.NoError(t, err)
	require.Len(t, rows, 10)
	require.Equal(t, valve.Row{ID: "AA", Flow: 0, Tunnels: []string{"DD", "II", "BB"}}, rows[0])
	require.Equal(t, valve.Row{ID: "HH", Flow: 22, Tunnels: []string{"GG"}}, rows[7])

	g, err := valve.Build(rows)
	require.NoError(t, err)
	require.Equal(t, uint64(81), g.TotalFlow())
}

func TestParseLine_Malformed(t *testing.T) {
	for _, line := range []string{
		"Valve AA has flow rate=; tunnels lead to valves BB",
		"Valve AA has flow rate=-3; tunnels lead to valves BB",
		"Valve AA has flow rate=x; tunnels lead to valves BB",
		"Valve AA has flow rate=3; tunnels lead to valves ",
		"Valve has flow rate=3; tunnels lead to valves BB",
		"Valve AA has flow rate=99999999999999999999999; tunnel leads to valve BB",
		"garbage",
	} {
		_, err := parse.ParseLine(line)
		require.ErrorIsf(t, err, parse.ErrMalformedLine, "%q", line)
		require.ErrorIs(t, err, valve.ErrMalformedInput)
	}
}

func TestParse_LineNumbersAndBlanks(t *testing.T) {
	in := "\nValve AA has flow rate=0; tunnel leads to valve BB\n\nbroken\n"
	_, err := parse.Parse(strings.NewReader(in))
	require.ErrorIs(t, err, parse.ErrMalformedLine)
	require.Contains(t, err.Error(), "line 4")

	rows, err := parse.Parse(strings.NewReader("\n  \nValve AA has flow rate=4; tunnel leads to valve AA\n"))
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = parse.Parse(strings.NewReader("\n\n"))
	require.ErrorIs(t, err, parse.ErrEmpty)
}
