package loader

import "context"

// Typed wrappers for the fixed application tables. These mirror how the
// web application feeds data in: stock snapshots replace the whole
// table, transactional documents accumulate with duplicate skipping.

// InsertCurrentStock loads a stock snapshot. An empty mode defaults to
// ReplaceAll, since a snapshot supersedes everything before it; pass
// UpsertByKey to merge into the existing snapshot instead.
func (l *Loader) InsertCurrentStock(ctx context.Context, records []Record, mode Mode) (Result, error) {
	if mode == "" {
		mode = ReplaceAll
	}
	spec, err := SpecFor("current_stock")
	if err != nil {
		return Result{}, err
	}
	return l.Load(ctx, spec, records, mode)
}

// InsertPurchaseOrders appends purchase order lines, skipping documents
// already present.
func (l *Loader) InsertPurchaseOrders(ctx context.Context, records []Record) (Result, error) {
	return l.loadSkipDuplicates(ctx, "purchase_orders", records)
}

// InsertBranchOrders appends inter-branch order lines, skipping
// documents already present.
func (l *Loader) InsertBranchOrders(ctx context.Context, records []Record) (Result, error) {
	return l.loadSkipDuplicates(ctx, "branch_orders", records)
}

// InsertSupplierInvoices appends supplier invoice lines, skipping
// documents already present.
func (l *Loader) InsertSupplierInvoices(ctx context.Context, records []Record) (Result, error) {
	return l.loadSkipDuplicates(ctx, "supplier_invoices", records)
}

// InsertGoodsReceivedNotes appends GRN lines, skipping documents
// already present.
func (l *Loader) InsertGoodsReceivedNotes(ctx context.Context, records []Record) (Result, error) {
	return l.loadSkipDuplicates(ctx, "grns", records)
}

func (l *Loader) loadSkipDuplicates(ctx context.Context, table string, records []Record) (Result, error) {
	spec, err := SpecFor(table)
	if err != nil {
		return Result{}, err
	}
	return l.Load(ctx, spec, records, InsertSkipDuplicates)
}
