// Package fitment defines the core types shared by the extractor, the
// synchronizer and the storage backends.
package fitment

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// KeyPolicy selects the natural key used to decide whether a fitment record
// already exists.
type KeyPolicy string

// Supported key policies. They are intentionally distinct: the table path has a
// reliable make/model, the free-text path does not.
const (
	KeyProductMakeModelYear KeyPolicy = "table"
	KeyProductYear          KeyPolicy = "free_text"
)

// Action describes what the synchronizer did with a tuple.
type Action string

// Sync actions reported per tuple.
const (
	ActionInserted Action = "inserted"
	ActionUpdated  Action = "updated"
	ActionFailed   Action = "failed"
)

// Tuple is one resolved (brand, model, year) association for a product.
// An empty Year means the product has no specific year.
type Tuple struct {
	Brand string `json:"make"`
	Model string `json:"model"`
	Year  string `json:"year"`
}

// Batch groups the tuples of one product with the key policy they sync under.
type Batch struct {
	Policy KeyPolicy `json:"policy"`
	Tuples []Tuple   `json:"tuples"`
}

// Key is the natural-key lookup issued against the store.
type Key struct {
	Policy    KeyPolicy
	ProductID string
	Make      string
	Model     string
	Year      string
}

// KeyFor builds the lookup key for a tuple under the given policy.
func KeyFor(policy KeyPolicy, productID string, t Tuple) Key {
	k := Key{Policy: policy, ProductID: productID, Year: t.Year}
	if policy == KeyProductMakeModelYear {
		k.Make = t.Brand
		k.Model = t.Model
	}
	return k
}

// Meta is the product metadata copied onto every record.
type Meta struct {
	ProductID string `json:"product_id"`
	Title     string `json:"title"`
	SKU       string `json:"sku"`
	Handle    string `json:"handle"`
	Image     string `json:"image"`
}

// Record is a persisted fitment row.
type Record struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Title     string    `json:"title"`
	Make      string    `json:"make"`
	Model     string    `json:"model"`
	Year      *string   `json:"year"`
	SKU       string    `json:"sku"`
	Handle    string    `json:"handle"`
	Image     string    `json:"image"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Fields holds the columns refreshed when an existing record is synced again.
type Fields struct {
	Title     string
	Make      string
	Model     string
	SKU       string
	Handle    string
	Image     string
	UpdatedAt time.Time
}

// NullableYear maps the empty year sentinel to a NULL column value.
func NullableYear(year string) *string {
	if year == "" {
		return nil
	}
	y := year
	return &y
}

// Outcome is the per-tuple result returned to the caller.
type Outcome struct {
	Year   string `json:"year"`
	Make   string `json:"make"`
	Model  string `json:"model"`
	OK     bool   `json:"ok"`
	Action Action `json:"action"`
	ID     string `json:"id,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Product is the webhook payload as delivered by the storefront.
type Product struct {
	ID        FlexString `json:"id"`
	ProductID FlexString `json:"product_id"`
	Title     string     `json:"title"`
	BodyHTML  string     `json:"body_html"`
	Body      string     `json:"body"`
	Tags      Tags       `json:"tags"`
	Vendor    string     `json:"vendor"`
	Handle    string     `json:"handle"`
	Variants  []Variant  `json:"variants"`
	Images    []Image    `json:"images"`
	Image     *Image     `json:"image"`
}

// Variant is the subset of a product variant the service reads.
type Variant struct {
	SKU string `json:"sku"`
}

// Image is the subset of a product image the service reads.
type Image struct {
	Src string `json:"src"`
}

// Identity returns the product id, falling back to product_id.
func (p Product) Identity() string {
	if id := strings.TrimSpace(string(p.ID)); id != "" {
		return id
	}
	return strings.TrimSpace(string(p.ProductID))
}

// Description returns body_html, falling back to body.
func (p Product) Description() string {
	if p.BodyHTML != "" {
		return p.BodyHTML
	}
	return p.Body
}

// PrimarySKU returns the first variant's SKU.
func (p Product) PrimarySKU() string {
	if len(p.Variants) == 0 {
		return ""
	}
	return p.Variants[0].SKU
}

// PrimaryImage returns the first image, falling back to the featured image.
func (p Product) PrimaryImage() string {
	if len(p.Images) > 0 && p.Images[0].Src != "" {
		return p.Images[0].Src
	}
	if p.Image != nil {
		return p.Image.Src
	}
	return ""
}

// Meta projects the product onto the metadata copied into records.
func (p Product) Meta() Meta {
	return Meta{
		ProductID: p.Identity(),
		Title:     p.Title,
		SKU:       p.PrimarySKU(),
		Handle:    p.Handle,
		Image:     p.PrimaryImage(),
	}
}

// FlexString accepts either a JSON string or a JSON number.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode string id: %w", err)
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("decode numeric id: %w", err)
	}
	if i, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		*f = FlexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = FlexString(n.String())
	return nil
}

// Tags accepts the storefront's comma-separated tag string or a JSON array.
type Tags string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Tags) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*t = ""
	case len(data) > 0 && data[0] == '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("decode tag list: %w", err)
		}
		*t = Tags(strings.Join(list, ","))
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("decode tags: %w", err)
		}
		*t = Tags(s)
	}
	return nil
}
