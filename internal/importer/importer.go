// Package importer loads dealer catalog exports in CSV form.
package importer

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"agrofunnel/internal/domain"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Kind is the type of rows a CSV file holds.
type Kind string

const (
	KindProducts   Kind = "products"
	KindCategories Kind = "categories"
)

type ProductWriter interface {
	Upsert(ctx context.Context, product domain.Product) (*domain.Product, error)
}

type CategoryWriter interface {
	Upsert(ctx context.Context, category domain.Category) (*domain.Category, error)
}

// CSVImporter reads dealer CSV exports and inserts or updates catalog entries.
type CSVImporter struct {
	reader       *csv.Reader
	productRepo  ProductWriter
	categoryRepo CategoryWriter
	currency     string
	logger       *zap.Logger
}

func NewCSVImporter(r io.Reader, products ProductWriter, categories CategoryWriter, currency string, logger *zap.Logger) *CSVImporter {
	csvr := csv.NewReader(r)
	csvr.FieldsPerRecord = -1 // rows may have trailing commas
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVImporter{
		reader:       csvr,
		productRepo:  products,
		categoryRepo: categories,
		currency:     currency,
		logger:       logger,
	}
}

// DetectKind peeks at the header row. The reader is consumed.
func DetectKind(r io.Reader) (Kind, error) {
	headers, err := csv.NewReader(bufio.NewReader(r)).Read()
	if err != nil {
		return "", fmt.Errorf("read headers: %w", err)
	}
	return kindOf(headerIndex(headers))
}

func kindOf(index map[string]int) (Kind, error) {
	if _, ok := index["price"]; ok {
		return KindProducts, nil
	}
	if _, ok := index["sort_order"]; ok {
		return KindCategories, nil
	}
	if _, ok := index["category"]; ok {
		return KindProducts, nil
	}
	return "", errors.New("unrecognised CSV header: expected a product or category export")
}

type productRow struct {
	product domain.Product
	price   string
	line    int
}

// Run parses the file and upserts its rows, returning how many entries were written.
func (i *CSVImporter) Run(ctx context.Context) (int, error) {
	headers, err := i.reader.Read()
	if err != nil {
		return 0, fmt.Errorf("read headers: %w", err)
	}
	index := headerIndex(headers)
	kind, err := kindOf(index)
	if err != nil {
		return 0, err
	}
	if kind == KindCategories {
		return i.runCategories(ctx, index)
	}
	return i.runProducts(ctx, index)
}

func (i *CSVImporter) runProducts(ctx context.Context, index map[string]int) (int, error) {
	if i.productRepo == nil {
		return 0, errors.New("product repository is required for a product export")
	}
	var (
		current  *productRow
		imported int
		line     = 1
	)
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}
		line++

		id := pick(record, index, "id")
		specName, specValue := pick(record, index, "spec.name"), pick(record, index, "spec.value")
		if id == "" {
			// Continuation rows carry extra specifications for the current product.
			if current != nil && specName != "" {
				current.product.Specifications[specName] = specValue
			}
			continue
		}

		if current != nil {
			if err := i.saveProduct(ctx, current); err != nil {
				return imported, err
			}
			imported++
		}
		current = i.parseProduct(record, index, line)
		if specName != "" {
			current.product.Specifications[specName] = specValue
		}
	}

	if current != nil {
		if err := i.saveProduct(ctx, current); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

func (i *CSVImporter) parseProduct(record []string, index map[string]int, line int) *productRow {
	p := domain.Product{
		ID:                 pick(record, index, "id"),
		Name:               pick(record, index, "name"),
		Category:           domain.ProductCategory(strings.ToLower(pick(record, index, "category"))),
		Brand:              pick(record, index, "brand"),
		Model:              pick(record, index, "model"),
		Description:        pick(record, index, "description"),
		Currency:           strings.ToUpper(pick(record, index, "currency")),
		ImageURL:           pick(record, index, "image_url"),
		Specifications:     map[string]interface{}{},
		Stock:              atoi(pick(record, index, "stock")),
		WarrantyMonths:     atoi(pick(record, index, "warranty_months")),
		FinancingAvailable: parseBool(pick(record, index, "financing_available")),
	}
	if raw := pick(record, index, "lead_time_days"); raw != "" {
		days := atoi(raw)
		p.LeadTimeDays = &days
	}
	if p.Currency == "" {
		p.Currency = i.currency
	}
	return &productRow{product: p, price: pick(record, index, "price"), line: line}
}

func (i *CSVImporter) saveProduct(ctx context.Context, row *productRow) error {
	p := row.product
	if p.Name == "" || row.price == "" || p.Currency == "" {
		return fmt.Errorf("line %d: invalid product row (missing required fields) for id %q", row.line, p.ID)
	}
	if !p.Category.Valid() {
		return fmt.Errorf("line %d: unknown category %q for id %q", row.line, p.Category, p.ID)
	}
	price, err := decimal.NewFromString(row.price)
	if err != nil || price.IsNegative() {
		return fmt.Errorf("line %d: invalid price %q for id %q", row.line, row.price, p.ID)
	}
	p.Price = price
	if len(p.Specifications) == 0 {
		p.Specifications = nil
	}

	if _, err := i.productRepo.Upsert(ctx, p); err != nil {
		return fmt.Errorf("upsert product %q: %w", p.ID, err)
	}
	i.logger.Debug("product imported", zap.String("product_id", p.ID), zap.String("price", price.String()))
	return nil
}

func (i *CSVImporter) runCategories(ctx context.Context, index map[string]int) (int, error) {
	if i.categoryRepo == nil {
		return 0, errors.New("category repository is required for a category export")
	}
	imported := 0
	for {
		record, err := i.reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return imported, fmt.Errorf("read row: %w", err)
		}

		id := domain.ProductCategory(strings.ToLower(pick(record, index, "id")))
		if id == "" {
			continue
		}
		if !id.Valid() {
			return imported, fmt.Errorf("unknown category %q", id)
		}
		name := pick(record, index, "name")
		if name == "" {
			name = titleCase(string(id))
		}
		c := domain.Category{
			ID:          id,
			Name:        name,
			Description: pick(record, index, "description"),
			ImageURL:    pick(record, index, "image_url"),
			SortOrder:   atoi(pick(record, index, "sort_order")),
		}
		if _, err := i.categoryRepo.Upsert(ctx, c); err != nil {
			return imported, fmt.Errorf("upsert category %q: %w", id, err)
		}
		imported++
	}
	return imported, nil
}

func headerIndex(headers []string) map[string]int {
	idx := make(map[string]int, len(headers))
	for i, h := range headers {
		idx[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	return idx
}

func pick(record []string, index map[string]int, key string) string {
	pos, ok := index[key]
	if !ok || pos >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[pos])
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func parseBool(s string) bool {
	switch strings.ToLower(s) {
	case "1", "true", "yes", "si", "sí":
		return true
	}
	return false
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
