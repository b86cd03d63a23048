package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/ymm-sync/internal/fitment"
)

func TestExtractTablePath(t *testing.T) {
	t.Parallel()

	e := New(Options{LowConfidenceFallback: true}, zap.NewNop())
	p := fitment.Product{
		ID:    "1",
		Title: "Roof Rack",
		BodyHTML: `<table><thead><tr><th>Make</th><th>Model</th><th>Year</th></tr></thead>` +
			`<tbody><tr><td>Subaru</td><td>Outback</td><td>2006-2009</td></tr></tbody></table>`,
	}

	res := e.Extract(p)
	require.Equal(t, PathTable, res.Path)
	require.Equal(t, 0, res.TablePosition)
	require.Equal(t, fitment.KeyProductMakeModelYear, res.Batch.Policy)
	require.Equal(t, []fitment.Tuple{
		{Brand: "Subaru", Model: "Outback", Year: "2006"},
		{Brand: "Subaru", Model: "Outback", Year: "2007"},
		{Brand: "Subaru", Model: "Outback", Year: "2008"},
		{Brand: "Subaru", Model: "Outback", Year: "2009"},
	}, res.Batch.Tuples)
}

func TestExtractFreeTextPath(t *testing.T) {
	t.Parallel()

	e := New(Options{LowConfidenceFallback: true}, nil)
	res := e.Extract(fitment.Product{ID: "2", Title: "Brake Pad fits Honda Accord 2010"})

	require.Equal(t, PathFreeText, res.Path)
	require.Equal(t, -1, res.TablePosition)
	require.Equal(t, "trigger", res.Strategy)
	require.Equal(t, fitment.KeyProductYear, res.Batch.Policy)
	require.Equal(t, []fitment.Tuple{{Brand: "Honda", Model: "Accord", Year: "2010"}}, res.Batch.Tuples)
}

func TestExtractFallsThroughUnrelatedTable(t *testing.T) {
	t.Parallel()

	e := New(Options{}, nil)
	res := e.Extract(fitment.Product{
		ID:       "3",
		Title:    "Headlight",
		BodyHTML: `<table><tr><th>Part#</th><th>Price</th></tr><tr><td>HL-1</td><td>20</td></tr></table><p>Compatible for Mazda Miata 1990–1992</p>`,
		Tags:     "lighting",
	})

	require.Equal(t, PathFreeText, res.Path)
	require.Equal(t, []fitment.Tuple{
		{Brand: "Mazda", Model: "Miata", Year: "1990"},
		{Brand: "Mazda", Model: "Miata", Year: "1991"},
		{Brand: "Mazda", Model: "Miata", Year: "1992"},
	}, res.Batch.Tuples)
}

func TestExtractTableWithoutRowsFallsBackToFreeText(t *testing.T) {
	t.Parallel()

	e := New(Options{}, nil)
	res := e.Extract(fitment.Product{
		ID:       "4",
		Title:    "Mat fits Kia Soul 2015",
		BodyHTML: `<table><thead><tr><th>Year</th><th>Make</th><th>Model</th></tr></thead><tbody></tbody></table>`,
	})

	require.Equal(t, PathFreeText, res.Path)
	require.Equal(t, []fitment.Tuple{{Brand: "Kia", Model: "Soul", Year: "2015"}}, res.Batch.Tuples)
}

func TestExtractNoYearUsesSentinel(t *testing.T) {
	t.Parallel()

	e := New(Options{}, nil)
	res := e.Extract(fitment.Product{ID: "5", Title: "Universal", Vendor: " Acme "})

	require.Equal(t, PathFreeText, res.Path)
	require.Equal(t, "vendor", res.Strategy)
	require.Equal(t, []fitment.Tuple{{Brand: "Acme", Model: "", Year: ""}}, res.Batch.Tuples)
}

func TestExtractBlockElementsDoNotRunTogether(t *testing.T) {
	t.Parallel()

	e := New(Options{}, nil)
	res := e.Extract(fitment.Product{
		ID:       "6",
		BodyHTML: `<p>Fits</p><p>Jeep Wrangler</p><div>2007</div><script>var y = 1999;</script>`,
	})

	require.Equal(t, []fitment.Tuple{{Brand: "Jeep", Model: "Wrangler", Year: "2007"}}, res.Batch.Tuples)
}

func TestExtractUsesTagsForYears(t *testing.T) {
	t.Parallel()

	e := New(Options{}, nil)
	res := e.Extract(fitment.Product{ID: "7", Title: "Subaru | Impreza | 2002", Tags: "2003, wrx"})

	require.Equal(t, "pipe", res.Strategy)
	require.Equal(t, []fitment.Tuple{
		{Brand: "Subaru", Model: "Impreza", Year: "2002"},
		{Brand: "Subaru", Model: "Impreza", Year: "2003"},
	}, res.Batch.Tuples)
}
