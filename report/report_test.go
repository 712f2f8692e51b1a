package report_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/katalvlaran/pressure/distance"
	"github.com/katalvlaran/pressure/report"
	"github.com/katalvlaran/pressure/search"
	"github.com/katalvlaran/pressure/valve"
	"github.com/stretchr/testify/require"
)

func square(t *testing.T) (*valve.Graph, *distance.Matrix) {
	t.Helper()
	g, err := valve.Build([]valve.Row{
		{ID: "AA", Flow: 0, Tunnels: []string{"BB", "DD"}},
		{ID: "BB", Flow: 13, Tunnels: []string{"AA", "CC"}},
		{ID: "CC", Flow: 2, Tunnels: []string{"BB", "DD"}},
		{ID: "DD", Flow: 20, Tunnels: []string{"AA", "CC"}},
	})
	require.NoError(t, err)
	dm, err := distance.Resolve(g, distance.WithRequired("AA"))
	require.NoError(t, err)

	return g, dm
}

func solved(t *testing.T, opts ...search.Option) (report.Summary, *valve.Graph) {
	t.Helper()
	g, dm := square(t)
	res, err := search.Optimize(context.Background(), g, dm, "AA", 6, opts...)
	require.NoError(t, err)
	s, err := report.New(res, 6, g, "AA")
	require.NoError(t, err)

	return s, g
}

func TestNew_Steps(t *testing.T) {
	s, _ := solved(t, search.WithTrace())
	require.Equal(t, uint64(93), s.MaxPressure)
	require.Equal(t, "memoized", s.Strategy)
	require.Len(t, s.Steps, 6)

	require.Equal(t, report.Step{Minute: 1, Action: "move", Valve: "DD", Rate: 0, Released: 0}, s.Steps[0])
	require.Equal(t, report.Step{Minute: 3, Action: "move", Valve: "AA", Rate: 20, Released: 20}, s.Steps[2])
	require.Equal(t, report.Step{Minute: 6, Action: "wait", Rate: 33, Released: 93}, s.Steps[5])
}

func TestNew_Untraced(t *testing.T) {
	s, _ := solved(t)
	require.Equal(t, uint64(93), s.MaxPressure)
	require.Empty(t, s.Steps)
}

func TestNew_Mismatch(t *testing.T) {
	g, _ := square(t)
	res := search.Result{
		MaxPressureReleased: 100,
		Actions:             []search.Action{{Kind: search.MoveTo, Valve: "DD"}, {Kind: search.OpenValve, Valve: "DD"}},
	}
	_, err := report.New(res, 6, g, "AA")
	require.ErrorIs(t, err, report.ErrTraceMismatch)

	res.Actions = []search.Action{{Kind: search.OpenValve, Valve: "DD"}}
	_, err = report.New(res, 6, g, "AA")
	require.ErrorIs(t, err, search.ErrIllegalAction)
}

func TestRender_Text(t *testing.T) {
	s, _ := solved(t, search.WithTrace())
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, s, report.Text))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 8)
	require.Equal(t, "93", lines[0])
	require.Equal(t, []string{"minute", "action", "valve", "rate", "released"}, strings.Fields(lines[1]))
	require.Equal(t, []string{"5", "open", "BB", "20", "60"}, strings.Fields(lines[6]))
	require.Equal(t, []string{"6", "wait", "-", "33", "93"}, strings.Fields(lines[7]))

	buf.Reset()
	plain, _ := solved(t)
	require.NoError(t, report.Render(&buf, plain, report.Text))
	require.Equal(t, "93\n", buf.String())
}

func TestRender_JSON(t *testing.T) {
	s, _ := solved(t, search.WithTrace())
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, s, report.JSON))

	var back report.Summary
	require.NoError(t, json.Unmarshal(buf.Bytes(), &back))
	require.Equal(t, s, back)
	require.Contains(t, buf.String(), `"max_pressure": 93`)
}

func TestRender_Pretty(t *testing.T) {
	s, _ := solved(t, search.WithTrace())
	var buf bytes.Buffer
	require.NoError(t, report.Render(&buf, s, report.Pretty))
	out := buf.String()
	require.Contains(t, out, "total 93")
	require.Contains(t, out, "Pressure released from AA in 6 minutes")
	require.Contains(t, out, "BB")
}

func TestFormat(t *testing.T) {
	for name, want := range map[string]report.Format{"": report.Text, "TEXT": report.Text, "json": report.JSON, "pretty": report.Pretty} {
		got, err := report.ParseFormat(name)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}
	_, err := report.ParseFormat("xml")
	require.ErrorIs(t, err, report.ErrUnknownFormat)
	require.Equal(t, "Format(9)", report.Format(9).String())

	require.ErrorIs(t, report.Render(&bytes.Buffer{}, report.Summary{}, report.Format(9)), report.ErrUnknownFormat)
}
