package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ColumnMap holds the column index of each fitment role in a table.
type ColumnMap struct {
	Year  int
	Make  int
	Model int
}

// complete reports whether every role resolved to its own column.
func (m ColumnMap) complete() bool {
	if m.Year < 0 || m.Make < 0 || m.Model < 0 {
		return false
	}
	return m.Year != m.Make && m.Year != m.Model && m.Make != m.Model
}

func (m ColumnMap) maxIndex() int {
	return max(m.Year, m.Make, m.Model)
}

// LocatedTable is a fitment table together with its resolved columns.
type LocatedTable struct {
	// Position is the zero-based index of the table in the document.
	Position int
	Columns  ColumnMap
	Rows     *goquery.Selection
}

// LocateTable returns the first table whose header row names Year, Make and
// Model columns. Tables are never merged; later candidates are ignored once
// one is accepted.
func LocateTable(doc *goquery.Document) (LocatedTable, bool) {
	if doc == nil {
		return LocatedTable{}, false
	}
	var (
		located LocatedTable
		found   bool
	)
	doc.Find("table").EachWithBreak(func(i int, table *goquery.Selection) bool {
		header := headerRow(table)
		if header.Length() == 0 {
			return true
		}
		columns := classifyHeader(header)
		if !columns.complete() {
			return true
		}
		located = LocatedTable{
			Position: i,
			Columns:  columns,
			Rows:     bodyRows(table),
		}
		found = true
		return false
	})
	return located, found
}

// headerRow picks the first thead row, or the first body row when the table
// has no structural header.
func headerRow(table *goquery.Selection) *goquery.Selection {
	if row := table.ChildrenFiltered("thead").First().ChildrenFiltered("tr").First(); row.Length() > 0 {
		return row
	}
	return bodyRows(table).First()
}

// bodyRows returns the table's own data rows, excluding rows of nested tables.
func bodyRows(table *goquery.Selection) *goquery.Selection {
	rows := table.ChildrenFiltered("tbody").ChildrenFiltered("tr")
	return rows.AddSelection(table.ChildrenFiltered("tr"))
}

// classifyHeader assigns roles by case-insensitive substring match. The
// first cell mentioning a keyword claims that role.
func classifyHeader(row *goquery.Selection) ColumnMap {
	columns := ColumnMap{Year: -1, Make: -1, Model: -1}
	row.ChildrenFiltered("th, td").Each(func(idx int, cell *goquery.Selection) {
		text := strings.ToLower(cellText(cell))
		if columns.Year == -1 && strings.Contains(text, "year") {
			columns.Year = idx
		}
		if columns.Make == -1 && strings.Contains(text, "make") {
			columns.Make = idx
		}
		if columns.Model == -1 && strings.Contains(text, "model") {
			columns.Model = idx
		}
	})
	return columns
}

// cellText flattens nested markup to its visible text with collapsed
// whitespace.
func cellText(cell *goquery.Selection) string {
	return strings.Join(strings.Fields(cell.Text()), " ")
}
