package extract

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPipeStrategy(t *testing.T) {
	t.Parallel()

	bm, ok := PipeStrategy.Match("Fitment: Subaru | Outback | 2006–2009 | 2.5L")
	require.True(t, ok)
	require.Equal(t, BrandModel{Brand: "Subaru", Model: "Outback"}, bm)

	_, ok = PipeStrategy.Match("Subaru Outback 2006")
	require.False(t, ok)
}

func TestTriggerStrategy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want BrandModel
	}{
		{name: "fits", in: "Brake Pad fits Honda Accord 2010", want: BrandModel{Brand: "Honda", Model: "Accord"}},
		{name: "compatible for with range", in: "compatible for Subaru Outback 2006-2009", want: BrandModel{Brand: "Subaru", Model: "Outback"}},
		{name: "compatible with", in: "Compatible with Toyota Camry 2015", want: BrandModel{Brand: "Toyota", Model: "Camry"}},
		{name: "capitalised for", in: "Mirror For Ford F-150 2018", want: BrandModel{Brand: "Ford", Model: "F-150"}},
		{name: "body style stripped", in: "fits Subaru Legacy Wagon 2010", want: BrandModel{Brand: "Subaru", Model: "Legacy"}},
		{name: "door count stripped", in: "fits Honda Civic 4-Door Sedan 2012", want: BrandModel{Brand: "Honda", Model: "Civic"}},
		{name: "series stripped", in: "for BMW 3 Series 2011", want: BrandModel{Brand: "BMW", Model: "3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := TriggerStrategy.Match(tt.in)
			require.True(t, ok)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestTriggerStrategyRequiresCapitalisedBrand(t *testing.T) {
	t.Parallel()

	_, ok := TriggerStrategy.Match("great for your daily 2010 commute")
	require.False(t, ok)
}

func TestLeadingWordsStrategy(t *testing.T) {
	t.Parallel()

	bm, ok := LeadingWordsStrategy.Match("  Bosch wiper blade set")
	require.True(t, ok)
	require.Equal(t, BrandModel{Brand: "Bosch", Model: "wiper blade"}, bm)

	bm, ok = LeadingWordsStrategy.Match("Bosch Icon")
	require.True(t, ok)
	require.Equal(t, BrandModel{Brand: "Bosch", Model: "Icon"}, bm)

	_, ok = LeadingWordsStrategy.Match("Bosch")
	require.False(t, ok)
}

func TestMatchBrandModelOrder(t *testing.T) {
	t.Parallel()

	text := "Fits Honda Civic 2012\nSubaru | Forester | 2014"
	bm, name, ok := MatchBrandModel(text, DefaultStrategies(true))
	require.True(t, ok)
	require.Equal(t, "pipe", name)
	require.Equal(t, BrandModel{Brand: "Subaru", Model: "Forester"}, bm)

	bm, name, ok = MatchBrandModel("Bosch wiper blade", DefaultStrategies(true))
	require.True(t, ok)
	require.Equal(t, "leading_words", name)
	require.Equal(t, "Bosch", bm.Brand)

	_, _, ok = MatchBrandModel("Bosch wiper blade", DefaultStrategies(false))
	require.False(t, ok)
}

func TestMatchBrandModelCustomChain(t *testing.T) {
	t.Parallel()

	always := Strategy{Name: "fixed", Match: func(string) (BrandModel, bool) {
		return BrandModel{Brand: "Jeep", Model: "Wrangler"}, true
	}}
	bm, name, ok := MatchBrandModel("anything", []Strategy{always, PipeStrategy})
	require.True(t, ok)
	require.Equal(t, "fixed", name)
	require.Equal(t, "Jeep", bm.Brand)
}
