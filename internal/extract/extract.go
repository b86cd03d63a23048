// Package extract recovers Year/Make/Model fitments from product payloads.
//
// Extraction prefers a fitment table in the description. When no table
// resolves Year, Make and Model columns (or the table has no usable rows), an
// ordered chain of free-text heuristics runs over the title, description and
// tags instead.
package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/ymm-sync/internal/fitment"
)

// Path names the extraction route that produced a result.
type Path string

// Extraction paths.
const (
	PathTable    Path = "table"
	PathFreeText Path = "free_text"
)

// Options controls the extractor.
type Options struct {
	// LowConfidenceFallback enables the leading-words heuristic.
	LowConfidenceFallback bool
}

// Result is the outcome of extracting one product.
type Result struct {
	Path  Path          `json:"path"`
	Batch fitment.Batch `json:"batch"`
	// Strategy is the free-text heuristic that matched, "vendor" when the
	// brand fell back to the product vendor, and empty on the table path.
	Strategy string `json:"strategy,omitempty"`
	// TablePosition is the index of the accepted table, -1 when none.
	TablePosition int `json:"table_position"`
}

// Extractor turns products into fitment batches.
type Extractor struct {
	strategies []Strategy
	logger     *zap.Logger
}

// New constructs an Extractor.
func New(opts Options, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		strategies: DefaultStrategies(opts.LowConfidenceFallback),
		logger:     logger,
	}
}

// Extract runs the table path and falls back to free text.
func (e *Extractor) Extract(p fitment.Product) Result {
	doc := parseFragment(p.Description())

	if table, ok := LocateTable(doc); ok {
		tuples := ExtractRows(table)
		if len(tuples) > 0 {
			e.logger.Debug("fitment table located",
				zap.String("product_id", p.Identity()),
				zap.Int("table", table.Position),
				zap.Int("tuples", len(tuples)),
			)
			return Result{
				Path:          PathTable,
				Batch:         fitment.Batch{Policy: fitment.KeyProductMakeModelYear, Tuples: tuples},
				TablePosition: table.Position,
			}
		}
		e.logger.Debug("fitment table had no usable rows", zap.String("product_id", p.Identity()))
	}

	return e.freeText(p, doc)
}

func (e *Extractor) freeText(p fitment.Product, doc *goquery.Document) Result {
	blob := strings.Join([]string{p.Title, visibleText(doc), string(p.Tags)}, "\n")

	years := ExtractYears(blob)
	if len(years) == 0 {
		years = []string{""}
	}

	bm, strategy, ok := MatchBrandModel(blob, e.strategies)
	if !ok {
		bm = BrandModel{Brand: strings.TrimSpace(p.Vendor)}
		strategy = "vendor"
	}

	tuples := make([]fitment.Tuple, 0, len(years))
	for _, y := range years {
		tuples = append(tuples, fitment.Tuple{Brand: bm.Brand, Model: bm.Model, Year: y})
	}
	e.logger.Debug("free-text extraction",
		zap.String("product_id", p.Identity()),
		zap.String("strategy", strategy),
		zap.Int("years", len(years)),
	)
	return Result{
		Path:          PathFreeText,
		Batch:         fitment.Batch{Policy: fitment.KeyProductYear, Tuples: tuples},
		Strategy:      strategy,
		TablePosition: -1,
	}
}
