package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	appErrors "github.com/safar/store-mcp/internal/errors"
	"github.com/safar/store-mcp/internal/models"
	"github.com/safar/store-mcp/internal/store"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	CollectionUsers     = "users"
	CollectionProducts  = "products"
	CollectionPurchases = "purchases"

	timeLayout = "2006-01-02 15:04:05"
	fileLayout = "20060102_150405"
	separator  = ';'
)

type Table struct {
	Header []string
	Rows   [][]string
}

type column[T any] struct {
	name  string
	value func(*T) string
}

func money(d decimal.Decimal) string { return d.StringFixed(2) }

func timestamp(t time.Time) string { return t.UTC().Format(timeLayout) }

var userColumns = []column[models.User]{
	{"id", func(u *models.User) string { return u.ID }},
	{"name", func(u *models.User) string { return u.Name }},
	{"email", func(u *models.User) string { return u.Email }},
	{"phone", func(u *models.User) string { return u.Phone }},
	{"age", func(u *models.User) string {
		if u.Age == nil {
			return ""
		}
		return strconv.Itoa(*u.Age)
	}},
	{"created_at", func(u *models.User) string { return timestamp(u.CreatedAt) }},
	{"updated_at", func(u *models.User) string { return timestamp(u.UpdatedAt) }},
}

var productColumns = []column[models.Product]{
	{"id", func(p *models.Product) string { return p.ID }},
	{"name", func(p *models.Product) string { return p.Name }},
	{"description", func(p *models.Product) string { return p.Description }},
	{"price", func(p *models.Product) string { return money(p.Price) }},
	{"category", func(p *models.Product) string { return p.Category }},
	{"piece_type", func(p *models.Product) string { return p.PieceType }},
	{"color", func(p *models.Product) string { return p.Color }},
	{"size", func(p *models.Product) string { return p.Size }},
	{"collection", func(p *models.Product) string { return p.Collection }},
	{"brand", func(p *models.Product) string { return p.Brand }},
	{"stock_quantity", func(p *models.Product) string { return strconv.Itoa(p.StockQuantity) }},
	{"created_at", func(p *models.Product) string { return timestamp(p.CreatedAt) }},
	{"updated_at", func(p *models.Product) string { return timestamp(p.UpdatedAt) }},
}

var purchaseColumns = []column[models.Purchase]{
	{"id", func(p *models.Purchase) string { return p.ID }},
	{"user_id", func(p *models.Purchase) string { return p.UserID }},
	{"user_name", func(p *models.Purchase) string { return p.UserName }},
	{"user_email", func(p *models.Purchase) string { return p.UserEmail }},
	{"product_id", func(p *models.Purchase) string { return p.ProductID }},
	{"product_name", func(p *models.Purchase) string { return p.ProductName }},
	{"category", func(p *models.Purchase) string { return p.Category }},
	{"color", func(p *models.Purchase) string { return p.Color }},
	{"quantity", func(p *models.Purchase) string { return strconv.Itoa(p.Quantity) }},
	{"unit_price", func(p *models.Purchase) string { return money(p.UnitPrice) }},
	{"total", func(p *models.Purchase) string { return money(p.Total) }},
	{"created_at", func(p *models.Purchase) string { return timestamp(p.CreatedAt) }},
}

// selectColumns picks the requested columns in request order, or all of
// them when fields is empty.
func selectColumns[T any](all []column[T], fields []string) ([]column[T], error) {
	if len(fields) == 0 {
		return all, nil
	}

	byName := make(map[string]column[T], len(all))
	for _, c := range all {
		byName[c.name] = c
	}

	selected := make([]column[T], 0, len(fields))
	for _, f := range fields {
		c, ok := byName[strings.ToLower(strings.TrimSpace(f))]
		if !ok {
			names := make([]string, 0, len(all))
			for _, c := range all {
				names = append(names, c.name)
			}
			sort.Strings(names)
			return nil, appErrors.AddValidationError("fields", fmt.Sprintf("unknown field %q, expected one of: %s", f, strings.Join(names, ", ")))
		}
		selected = append(selected, c)
	}
	return selected, nil
}

func buildTable[T any](items []T, all []column[T], fields []string) (*Table, error) {
	cols, err := selectColumns(all, fields)
	if err != nil {
		return nil, err
	}

	table := &Table{Header: make([]string, 0, len(cols)), Rows: make([][]string, 0, len(items))}
	for _, c := range cols {
		table.Header = append(table.Header, c.name)
	}
	for i := range items {
		row := make([]string, 0, len(cols))
		for _, c := range cols {
			row = append(row, c.value(&items[i]))
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

// Exporter turns a collection into rows and writes them as CSV files.
type Exporter struct {
	store  store.Store
	dir    string
	logger *zap.Logger
}

// NewExporter writes files under dir; with an empty dir only the CSV
// content is produced.
func NewExporter(st store.Store, dir string, logger *zap.Logger) *Exporter {
	return &Exporter{store: st, dir: dir, logger: logger}
}

// Query selects what to export. Users narrows the users collection and is
// rejected for the others.
type Query struct {
	Collection string
	Fields     []string
	Users      *store.UserFilter
}

func (q Query) userFilter() (store.UserFilter, error) {
	if q.Users == nil {
		return store.UserFilter{}, nil
	}
	f := *q.Users
	if f.MinAge != nil && f.MaxAge != nil && *f.MinAge > *f.MaxAge {
		return f, appErrors.AddValidationError("age_min", "must not exceed age_max")
	}
	return f, nil
}

// Rows reads the collection in insertion order and projects the fields.
func (e *Exporter) Rows(ctx context.Context, q Query) (*Table, error) {
	collection := strings.ToLower(strings.TrimSpace(q.Collection))
	if q.Users != nil && collection != CollectionUsers {
		return nil, appErrors.AddValidationError("filter", "is only supported for users")
	}

	switch collection {
	case CollectionUsers:
		filter, err := q.userFilter()
		if err != nil {
			return nil, err
		}
		users, err := e.store.ListUsers(ctx, filter)
		if err != nil {
			return nil, appErrors.FromStore(err, "")
		}
		return buildTable(users, userColumns, q.Fields)
	case CollectionProducts:
		products, err := e.store.ListProducts(ctx, store.ProductFilter{})
		if err != nil {
			return nil, appErrors.FromStore(err, "")
		}
		return buildTable(products, productColumns, q.Fields)
	case CollectionPurchases:
		purchases, err := e.store.ListPurchases(ctx, store.PurchaseFilter{})
		if err != nil {
			return nil, appErrors.FromStore(err, "")
		}
		return buildTable(purchases, purchaseColumns, q.Fields)
	default:
		return nil, appErrors.AddValidationError("collection_name", "must be one of: users, products, purchases")
	}
}

// Encode renders the table as ';'-separated CSV.
func Encode(table *Table) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = separator

	if err := w.Write(table.Header); err != nil {
		return "", fmt.Errorf("write csv header: %w", err)
	}
	if err := w.WriteAll(table.Rows); err != nil {
		return "", fmt.Errorf("write csv rows: %w", err)
	}

	return buf.String(), nil
}

// FileName is "<collection>_export_<YYYYmmdd_HHMMSS>.csv".
func FileName(collection string, now time.Time) string {
	return fmt.Sprintf("%s_export_%s.csv", collection, now.UTC().Format(fileLayout))
}

// WriteFile stores content under dir and returns the file path.
func WriteFile(dir, collection, content string, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	path := filepath.Join(dir, FileName(collection, now))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write export file: %w", err)
	}

	return path, nil
}

type Result struct {
	Collection string `json:"collection"`
	Records    int    `json:"records"`
	Content    string `json:"content"`
	Path       string `json:"path,omitempty"`
}

// Export builds the CSV for q and, when an export directory is configured,
// writes it to disk.
func (e *Exporter) Export(ctx context.Context, q Query, now time.Time) (*Result, error) {
	table, err := e.Rows(ctx, q)
	if err != nil {
		return nil, err
	}

	content, err := Encode(table)
	if err != nil {
		return nil, appErrors.InternalError("Failed to encode CSV").WithError(err)
	}

	collection := strings.ToLower(strings.TrimSpace(q.Collection))
	result := &Result{Collection: collection, Records: len(table.Rows), Content: content}

	if e.dir != "" {
		path, err := WriteFile(e.dir, collection, content, now)
		if err != nil {
			e.logger.Error("export write failed", zap.String("collection", collection), zap.Error(err))
			return nil, appErrors.InternalError("Failed to write export file").WithError(err)
		}
		result.Path = path
		e.logger.Info("export written", zap.String("path", path), zap.Int("records", result.Records))
	}

	return result, nil
}
