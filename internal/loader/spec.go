package loader

import "fmt"

// TableSpec describes a loadable target table: its column set and the
// natural key used for conflict resolution.
type TableSpec struct {
	Name       string
	Columns    []string
	NaturalKey []string
}

// HasNaturalKey reports whether the table defines a conflict key.
func (s TableSpec) HasNaturalKey() bool {
	return len(s.NaturalKey) > 0
}

// Known table specs. Column order here is the insert order; the natural
// keys match the unique constraints the migration driver creates.
var tableSpecs = map[string]TableSpec{
	"items": {
		Name: "items",
		Columns: []string{
			"item_code", "item_name", "company", "pack_size",
		},
		NaturalKey: []string{"item_code"},
	},
	"current_stock": {
		Name: "current_stock",
		Columns: []string{
			"branch", "item_code", "item_name", "stock_pieces", "company",
			"pack_size", "unit_price", "stock_value",
		},
		NaturalKey: []string{"branch", "item_code", "company"},
	},
	"stock_data": {
		Name: "stock_data",
		Columns: []string{
			"branch_name", "company_name", "item_code", "item_name",
			"quantity", "expiry", "batch_number",
		},
	},
	"purchase_orders": {
		Name: "purchase_orders",
		Columns: []string{
			"company", "branch", "document_number", "document_date",
			"item_code", "item_name", "quantity", "bonus",
			"unit_price", "total_amount", "supplier_name",
		},
		NaturalKey: []string{"company", "branch", "document_number", "item_code"},
	},
	"branch_orders": {
		Name: "branch_orders",
		Columns: []string{
			"company", "source_branch", "branch", "document_number",
			"document_date", "item_code", "item_name", "quantity",
		},
		NaturalKey: []string{"company", "source_branch", "document_number", "item_code"},
	},
	"supplier_invoices": {
		Name: "supplier_invoices",
		Columns: []string{
			"company", "branch", "document_number", "document_date",
			"item_code", "item_name", "quantity", "units",
			"unit_price", "total_amount", "supplier_name",
		},
		NaturalKey: []string{"company", "branch", "document_number", "item_code"},
	},
	"grns": {
		Name: "grns",
		Columns: []string{
			"company", "branch", "document_number", "document_date",
			"item_code", "item_name", "quantity",
			"unit_price", "total_amount", "supplier_name",
		},
		NaturalKey: []string{"company", "branch", "document_number", "item_code"},
	},
	"inventory_analysis": {
		Name: "inventory_analysis",
		Columns: []string{
			"company_name", "branch_name", "item_code", "item_name",
			"total_pieces_sold", "total_sales_value", "base_amc",
			"adjusted_amc", "abc_class", "ideal_stock_pieces",
			"stock_recommendation",
		},
	},
}

// SpecFor returns the spec for a known table. Table names act as an
// allow-list: identifiers are only ever interpolated into SQL after
// passing through here.
func SpecFor(table string) (TableSpec, error) {
	spec, ok := tableSpecs[table]
	if !ok {
		return TableSpec{}, fmt.Errorf("unknown table %q", table)
	}
	return spec, nil
}

// TableNames returns the known table names in load order.
func TableNames() []string {
	return []string{
		"items", "current_stock", "stock_data", "purchase_orders",
		"branch_orders", "supplier_invoices", "grns", "inventory_analysis",
	}
}
