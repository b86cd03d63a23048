package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExpandYears(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "hyphen range", in: "2006-2009", want: []string{"2006", "2007", "2008", "2009"}},
		{name: "en dash range", in: "2010 – 2012", want: []string{"2010", "2011", "2012"}},
		{name: "word range", in: "1998 to 2000", want: []string{"1998", "1999", "2000"}},
		{name: "single year", in: "2006", want: []string{"2006"}},
		{name: "reversed range returns raw tokens", in: "2009-2006", want: []string{"2009", "2006"}},
		{name: "enumerated list", in: "2004, 2006, 2008", want: []string{"2004", "2006", "2008"}},
		{name: "range uses first and last token", in: "2001-2002-2004", want: []string{"2001", "2002", "2003", "2004"}},
		{name: "empty", in: "", want: []string{}},
		{name: "no years", in: "All", want: []string{}},
		{name: "out of range century", in: "1850-1852", want: []string{}},
		{name: "toyota is not a separator", in: "2004 Toyota 2006", want: []string{"2004", "2006"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ExpandYears(tt.in))
		})
	}
}

func TestExpandYearsWideRangeIsNotCapped(t *testing.T) {
	t.Parallel()

	years := ExpandYears("1950-2020")
	require.Len(t, years, 71)
	require.Equal(t, "1950", years[0])
	require.Equal(t, "2020", years[70])
}

func TestExtractYears(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want []string
	}{
		{name: "range and single", in: "fits 2006-2008 and 2010 models", want: []string{"2006", "2007", "2008", "2010"}},
		{name: "overlapping ranges deduplicated", in: "2006–2008, 2007-2009", want: []string{"2006", "2007", "2008", "2009"}},
		{name: "reversed range keeps endpoints", in: "2009-2006", want: []string{"2006", "2009"}},
		{name: "embedded digits ignored", in: "part 120061 sku", want: []string{}},
		{name: "none", in: "Universal fit", want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, ExtractYears(tt.in))
		})
	}
}
