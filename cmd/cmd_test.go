package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/ymm-sync/internal/config"
	"github.com/JakeFAU/ymm-sync/internal/extract"
	"github.com/JakeFAU/ymm-sync/internal/fitment"
)

func runCmd(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestExtractFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "product.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"id": 7, "title": "Brake Pad fits Honda Accord 2010"}`), 0o600))

	out, err := runCmd(t, "", "extract", path)
	require.NoError(t, err)

	var res extract.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, extract.PathFreeText, res.Path)
	require.Equal(t, []fitment.Tuple{{Brand: "Honda", Model: "Accord", Year: "2010"}}, res.Batch.Tuples)
}

func TestExtractHTMLFromStdin(t *testing.T) {
	html := `<table><tr><th>Make</th><th>Model</th><th>Year</th></tr><tr><td>Ford</td><td>Focus</td><td>2012</td></tr></table>`

	out, err := runCmd(t, html, "extract", "--html")
	require.NoError(t, err)

	var res extract.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, extract.PathTable, res.Path)
	require.Equal(t, []fitment.Tuple{{Brand: "Ford", Model: "Focus", Year: "2012"}}, res.Batch.Tuples)
}

func TestExtractRejectsBadJSON(t *testing.T) {
	_, err := runCmd(t, "{", "extract")
	require.ErrorContains(t, err, "decode product")
}

type fakeRunner struct{ ran bool }

func (f *fakeRunner) Run(context.Context) error {
	f.ran = true
	return nil
}

func TestServeBuildsAndRunsApp(t *testing.T) {
	t.Setenv("YMM_SERVER_PORT", "9191")
	t.Setenv("PORT", "")
	runner := &fakeRunner{}
	var got *config.Config
	prev := newApp
	newApp = func(_ context.Context, cfg *config.Config) (Runner, error) {
		got = cfg
		return runner, nil
	}
	t.Cleanup(func() { newApp = prev })

	_, err := runCmd(t, "", "serve")
	require.NoError(t, err)
	require.True(t, runner.ran)
	require.Equal(t, 9191, got.Server.Port)
}

func TestServeReportsBuildFailure(t *testing.T) {
	prev := newApp
	newApp = func(context.Context, *config.Config) (Runner, error) {
		return nil, errors.New("boom")
	}
	t.Cleanup(func() { newApp = prev })

	_, err := runCmd(t, "", "serve")
	require.ErrorContains(t, err, "boom")
}
