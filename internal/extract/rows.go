package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/ymm-sync/internal/fitment"
)

// ExtractRows walks the data rows of a located table and emits one tuple per
// expanded year. Rows that echo the header or lack a make or year are skipped.
func ExtractRows(t LocatedTable) []fitment.Tuple {
	if t.Rows == nil {
		return nil
	}
	var tuples []fitment.Tuple
	t.Rows.Each(func(_ int, row *goquery.Selection) {
		cells := row.ChildrenFiltered("th, td")
		if cells.Length() <= t.Columns.maxIndex() {
			return
		}
		brand := cellText(cells.Eq(t.Columns.Make))
		model := cellText(cells.Eq(t.Columns.Model))
		yearText := cellText(cells.Eq(t.Columns.Year))
		if skipRow(brand, yearText) {
			return
		}
		for _, year := range ExpandYears(yearText) {
			tuples = append(tuples, fitment.Tuple{Brand: brand, Model: model, Year: year})
		}
	})
	return tuples
}

func skipRow(brand, yearText string) bool {
	if brand == "" || yearText == "" {
		return true
	}
	return strings.Contains(strings.ToLower(brand), "make") ||
		strings.Contains(strings.ToLower(yearText), "year")
}
