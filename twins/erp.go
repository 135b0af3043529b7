package twins

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"goa.design/vei/apitypes"
)

type (
	// ERPLine is one PO or invoice line. Amounts are derived from integer
	// cents so line math never drifts.
	ERPLine struct {
		LineNo    int
		ItemID    string
		Desc      string
		Qty       int
		UnitCents int
	}

	// PurchaseOrder tracks the OPEN -> PARTIALLY_RECEIVED -> RECEIVED ->
	// INVOICED progression plus the last three-way match outcome.
	PurchaseOrder struct {
		ID          string
		Vendor      string
		Currency    string
		Status      string
		Lines       []ERPLine
		TotalCents  int
		CreatedMS   int64
		UpdatedMS   int64
		ReceivedQty map[string]int
		LastMatch   map[string]any
	}

	// Invoice progresses OPEN -> PARTIALLY_PAID -> PAID.
	Invoice struct {
		ID         string
		POID       string
		Vendor     string
		Status     string
		Lines      []ERPLine
		TotalCents int
		PaidCents  int
		TimeMS     int64
		UpdatedMS  int64
	}

	// Receipt records goods received against a PO.
	Receipt struct {
		ID     string
		POID   string
		Lines  []ERPLine
		TimeMS int64
	}

	// ERP is the finance twin. errorRate injects validation_error on
	// submit_invoice and payment_rejected (at half the rate) on
	// post_payment.
	ERP struct {
		session   Session
		errorRate float64
		pos       map[string]*PurchaseOrder
		invoices  map[string]*Invoice
		receipts  map[string]*Receipt
		poOrder   []string
		invOrder  []string
		poSeq     int
		invSeq    int
		rcptSeq   int
	}
)

const defaultCurrency = "USD"

// NewERP builds the twin.
func NewERP(session Session, errorRate float64) *ERP {
	return &ERP{
		session:   session,
		errorRate: errorRate,
		pos:       make(map[string]*PurchaseOrder),
		invoices:  make(map[string]*Invoice),
		receipts:  make(map[string]*Receipt),
		poSeq:     1,
		invSeq:    1,
		rcptSeq:   1,
	}
}

// MoneyToCents converts a loose numeric amount into integer cents.
func MoneyToCents(v any) int {
	f, ok := toFloat(v)
	if !ok {
		if s, isStr := v.(string); isStr {
			var parsed float64
			if _, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &parsed); err == nil {
				f = parsed
			} else {
				return 0
			}
		} else {
			return 0
		}
	}
	return int(math.Round(f * 100))
}

// CentsToMoney renders integer cents as a float dollar amount.
func CentsToMoney(c int) float64 {
	return math.Round(float64(c)) / 100
}

// CreatePO opens a purchase order.
func (e *ERP) CreatePO(vendor, currency string, lines []map[string]any) (map[string]any, error) {
	if currency == "" {
		currency = defaultCurrency
	}
	id := fmt.Sprintf("PO-%d", e.poSeq)
	e.poSeq++
	now := e.session.ClockMS()
	po := &PurchaseOrder{
		ID:          id,
		Vendor:      vendor,
		Currency:    currency,
		Status:      "OPEN",
		CreatedMS:   now,
		UpdatedMS:   now,
		ReceivedQty: make(map[string]int),
	}
	for i, raw := range lines {
		line := ERPLine{
			LineNo:    i + 1,
			ItemID:    itemID(raw, i+1),
			Desc:      argString(raw, "desc"),
			Qty:       argInt(raw, "qty", 0),
			UnitCents: MoneyToCents(raw["unit_price"]),
		}
		po.TotalCents += line.Qty * line.UnitCents
		po.Lines = append(po.Lines, line)
		po.ReceivedQty[line.ItemID] = 0
	}
	e.pos[id] = po
	e.poOrder = append(e.poOrder, id)
	return map[string]any{"id": id, "amount": CentsToMoney(po.TotalCents), "currency": currency}, nil
}

// GetPO returns the full purchase order.
func (e *ERP) GetPO(id string) (map[string]any, error) {
	po, ok := e.pos[id]
	if !ok {
		return nil, apitypes.Errorf("unknown_po", "Unknown PO: %s", id)
	}
	return e.poPayload(po), nil
}

// ListPOs filters by vendor substring, status and currency; default order is
// created_ms descending.
func (e *ERP) ListPOs(args map[string]any) (any, error) {
	vendor := strings.ToLower(strings.TrimSpace(argString(args, "vendor")))
	status := strings.ToUpper(strings.TrimSpace(argString(args, "status")))
	currency := strings.ToUpper(strings.TrimSpace(argString(args, "currency")))
	req := pageRequest(args)

	var rows []map[string]any
	for _, id := range e.poOrder {
		po := e.pos[id]
		if vendor != "" && !strings.Contains(strings.ToLower(po.Vendor), vendor) {
			continue
		}
		if status != "" && po.Status != status {
			continue
		}
		if currency != "" && strings.ToUpper(po.Currency) != currency {
			continue
		}
		rows = append(rows, e.poPayload(po))
	}
	sortField := req.SortBy
	switch sortField {
	case "created_ms", "updated_ms", "amount", "vendor":
	default:
		sortField = "created_ms"
	}
	asc := strings.EqualFold(req.SortDir, "asc")
	sortRows(rows, sortField, asc)

	if req.Legacy || !hasPagingArgs(args, "vendor", "status", "currency") {
		if rows == nil {
			rows = []map[string]any{}
		}
		return rows, nil
	}
	offset, err := apitypes.DecodeCursor(req.Cursor, "invalid_cursor")
	if err != nil {
		return nil, err
	}
	return apitypes.Paginate(rows, offset, req.EffectiveLimit(0)).Envelope("purchase_orders"), nil
}

// ReceiveGoods records a goods receipt against a PO. Receiving more than was
// ordered or an item not on the PO is rejected before any state changes.
func (e *ERP) ReceiveGoods(poID string, lines []map[string]any) (map[string]any, error) {
	po, ok := e.pos[poID]
	if !ok {
		return nil, apitypes.Errorf("unknown_po", "Unknown PO: %s", poID)
	}
	ordered := make(map[string]int, len(po.Lines))
	for _, line := range po.Lines {
		ordered[line.ItemID] = line.Qty
	}
	received := make(map[string]int, len(po.ReceivedQty))
	for item, qty := range po.ReceivedQty {
		received[item] = qty
	}
	var rcptLines []ERPLine
	for _, raw := range lines {
		item := argString(raw, "item_id")
		qty := argInt(raw, "qty", 0)
		if _, onPO := ordered[item]; !onPO {
			return nil, apitypes.Errorf("unknown_item", "Item %s is not present on PO %s", item, poID)
		}
		total := received[item] + qty
		if total > ordered[item] {
			return nil, apitypes.Errorf("qty_exceeds_po", "Received qty for %s exceeds ordered qty on %s", item, poID)
		}
		received[item] = total
		rcptLines = append(rcptLines, ERPLine{ItemID: item, Qty: qty})
	}

	id := fmt.Sprintf("RCPT-%d", e.rcptSeq)
	e.rcptSeq++
	e.receipts[id] = &Receipt{ID: id, POID: poID, Lines: rcptLines, TimeMS: e.session.ClockMS()}

	allReceived := true
	for item, qty := range ordered {
		if received[item] < qty {
			allReceived = false
			break
		}
	}
	po.ReceivedQty = received
	if allReceived {
		po.Status = "RECEIVED"
	} else {
		po.Status = "PARTIALLY_RECEIVED"
	}
	po.UpdatedMS = e.session.ClockMS()
	return map[string]any{"id": id, "po_status": po.Status}, nil
}

// SubmitInvoice posts a vendor invoice against a PO.
func (e *ERP) SubmitInvoice(vendor, poID string, lines []map[string]any) (map[string]any, error) {
	po, ok := e.pos[poID]
	if !ok {
		return nil, apitypes.Errorf("unknown_po", "Unknown PO: %s", poID)
	}
	if !strings.EqualFold(strings.TrimSpace(po.Vendor), strings.TrimSpace(vendor)) {
		return nil, apitypes.Errorf("vendor_mismatch", "Invoice vendor %s does not match PO vendor %s", vendor, po.Vendor)
	}
	if e.errorRate > 0 && e.session.RNG().Float64() < e.errorRate {
		return nil, apitypes.NewError("validation_error", "Duplicate invoice number or invalid tax.")
	}
	id := fmt.Sprintf("INV-%d", e.invSeq)
	e.invSeq++
	now := e.session.ClockMS()
	inv := &Invoice{
		ID:        id,
		POID:      poID,
		Vendor:    vendor,
		Status:    "OPEN",
		TimeMS:    now,
		UpdatedMS: now,
	}
	for i, raw := range lines {
		line := ERPLine{
			LineNo:    i + 1,
			ItemID:    itemID(raw, i+1),
			Qty:       argInt(raw, "qty", 0),
			UnitCents: MoneyToCents(raw["unit_price"]),
		}
		inv.TotalCents += line.Qty * line.UnitCents
		inv.Lines = append(inv.Lines, line)
	}
	e.invoices[id] = inv
	e.invOrder = append(e.invOrder, id)
	po.Status = "INVOICED"
	po.UpdatedMS = now
	return map[string]any{"id": id, "amount": CentsToMoney(inv.TotalCents)}, nil
}

// GetInvoice returns the full invoice.
func (e *ERP) GetInvoice(id string) (map[string]any, error) {
	inv, ok := e.invoices[id]
	if !ok {
		return nil, apitypes.Errorf("unknown_invoice", "Unknown invoice: %s", id)
	}
	return e.invoicePayload(inv), nil
}

// ListInvoices filters by status, vendor substring and po_id; default order
// is updated_ms descending.
func (e *ERP) ListInvoices(args map[string]any) (any, error) {
	status := strings.ToUpper(strings.TrimSpace(argString(args, "status")))
	vendor := strings.ToLower(strings.TrimSpace(argString(args, "vendor")))
	poID := argString(args, "po_id")
	req := pageRequest(args)

	var rows []map[string]any
	for _, id := range e.invOrder {
		inv := e.invoices[id]
		if status != "" && inv.Status != status {
			continue
		}
		if vendor != "" && !strings.Contains(strings.ToLower(inv.Vendor), vendor) {
			continue
		}
		if poID != "" && inv.POID != poID {
			continue
		}
		rows = append(rows, e.invoicePayload(inv))
	}
	sortField := req.SortBy
	switch sortField {
	case "updated_ms", "time_ms", "amount", "vendor":
	default:
		sortField = "updated_ms"
	}
	asc := strings.EqualFold(req.SortDir, "asc")
	sortRows(rows, sortField, asc)

	if req.Legacy || !hasPagingArgs(args, "status", "vendor", "po_id") {
		if rows == nil {
			rows = []map[string]any{}
		}
		return rows, nil
	}
	offset, err := apitypes.DecodeCursor(req.Cursor, "invalid_cursor")
	if err != nil {
		return nil, err
	}
	return apitypes.Paginate(rows, offset, req.EffectiveLimit(0)).Envelope("invoices"), nil
}

// MatchThreeWay compares PO, invoice and optional receipt: amounts must agree
// within one cent, per-item quantities must be equal, and with a receipt the
// invoiced qty must not exceed the received qty.
func (e *ERP) MatchThreeWay(poID, invoiceID, receiptID string) (map[string]any, error) {
	po, okPO := e.pos[poID]
	inv, okInv := e.invoices[invoiceID]
	if !okPO || !okInv {
		return nil, apitypes.NewError("unknown_ref", "PO or Invoice not found")
	}
	var rcpt *Receipt
	if receiptID != "" {
		rcpt = e.receipts[receiptID]
	}
	poQty := qtyByItem(po.Lines)
	invQty := qtyByItem(inv.Lines)
	var rcptQty map[string]int
	if rcpt != nil {
		rcptQty = qtyByItem(rcpt.Lines)
	}

	amountOK := absInt(po.TotalCents-inv.TotalCents) <= 1

	items := make(map[string]bool)
	for item := range poQty {
		items[item] = true
	}
	for item := range invQty {
		items[item] = true
	}
	keys := make([]string, 0, len(items))
	for item := range items {
		keys = append(keys, item)
	}
	sort.Strings(keys)

	var mismatches []map[string]any
	for _, item := range keys {
		pq, iq, rq := poQty[item], invQty[item], rcptQty[item]
		if pq != iq || (rcpt != nil && iq > rq) {
			mismatches = append(mismatches, map[string]any{
				"item_id": item, "po": pq, "invoice": iq, "received": rq,
			})
		}
	}
	status := "MATCH"
	if !amountOK || len(mismatches) > 0 {
		status = "MISMATCH"
	}
	now := e.session.ClockMS()
	po.LastMatch = map[string]any{
		"invoice_id": invoiceID,
		"receipt_id": receiptID,
		"status":     status,
		"time_ms":    now,
	}
	po.UpdatedMS = now
	if mismatches == nil {
		mismatches = []map[string]any{}
	}
	return map[string]any{
		"status":         status,
		"amount_ok":      amountOK,
		"qty_mismatches": mismatches,
		"po_id":          poID,
		"invoice_id":     invoiceID,
		"receipt_id":     receiptID,
	}, nil
}

// PostPayment applies a payment; overpayment clamps to the invoice total.
func (e *ERP) PostPayment(invoiceID string, amount float64) (map[string]any, error) {
	inv, ok := e.invoices[invoiceID]
	if !ok {
		return nil, apitypes.Errorf("unknown_invoice", "Unknown invoice: %s", invoiceID)
	}
	if e.errorRate > 0 && e.session.RNG().Float64() < e.errorRate/2 {
		return nil, apitypes.NewError("payment_rejected", "Bank rejected payment.")
	}
	paid := inv.PaidCents + MoneyToCents(amount)
	if paid > inv.TotalCents {
		inv.PaidCents = inv.TotalCents
	} else {
		inv.PaidCents = paid
	}
	inv.UpdatedMS = e.session.ClockMS()
	switch {
	case paid >= inv.TotalCents:
		inv.Status = "PAID"
	case paid > 0:
		inv.Status = "PARTIALLY_PAID"
	}
	return map[string]any{"status": inv.Status, "paid_amount": CentsToMoney(inv.PaidCents)}, nil
}

// Deliver applies a scheduled ERP event such as a vendor-submitted invoice.
func (e *ERP) Deliver(payload map[string]any) (map[string]any, error) {
	op := strings.ToLower(argString(payload, "op"))
	switch op {
	case "receive_goods":
		return e.ReceiveGoods(argString(payload, "po_id"), argMaps(payload, "lines"))
	case "post_payment":
		return e.PostPayment(argString(payload, "invoice_id"), argFloat(payload, "amount", 0))
	}
	if poID := argString(payload, "po_id"); poID != "" {
		return e.SubmitInvoice(argString(payload, "vendor"), poID, argMaps(payload, "lines"))
	}
	return e.CreatePO(argString(payload, "vendor"), argString(payload, "currency"), argMaps(payload, "lines"))
}

func itemID(raw map[string]any, fallback int) string {
	if id := argString(raw, "item_id"); id != "" {
		return id
	}
	if v, ok := raw["item_id"]; ok {
		return stringify(v)
	}
	return fmt.Sprint(fallback)
}

func qtyByItem(lines []ERPLine) map[string]int {
	out := make(map[string]int, len(lines))
	for _, line := range lines {
		out[line.ItemID] = line.Qty
	}
	return out
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func (e *ERP) poPayload(po *PurchaseOrder) map[string]any {
	received := make(map[string]any, len(po.ReceivedQty))
	for item, qty := range po.ReceivedQty {
		received[item] = qty
	}
	out := map[string]any{
		"id":                   po.ID,
		"vendor":               po.Vendor,
		"currency":             po.Currency,
		"status":               po.Status,
		"lines":                linePayloads(po.Lines, true),
		"amount":               CentsToMoney(po.TotalCents),
		"created_ms":           po.CreatedMS,
		"updated_ms":           po.UpdatedMS,
		"received_qty_by_item": received,
	}
	if po.LastMatch != nil {
		out["last_three_way_match"] = po.LastMatch
	}
	return out
}

func (e *ERP) invoicePayload(inv *Invoice) map[string]any {
	return map[string]any{
		"id":          inv.ID,
		"po_id":       inv.POID,
		"vendor":      inv.Vendor,
		"status":      inv.Status,
		"lines":       linePayloads(inv.Lines, false),
		"amount":      CentsToMoney(inv.TotalCents),
		"paid_amount": CentsToMoney(inv.PaidCents),
		"time_ms":     inv.TimeMS,
		"updated_ms":  inv.UpdatedMS,
	}
}

func linePayloads(lines []ERPLine, withDesc bool) []map[string]any {
	out := make([]map[string]any, 0, len(lines))
	for _, line := range lines {
		row := map[string]any{
			"line_no":    line.LineNo,
			"item_id":    line.ItemID,
			"qty":        line.Qty,
			"unit_price": CentsToMoney(line.UnitCents),
			"amount":     CentsToMoney(line.Qty * line.UnitCents),
		}
		if withDesc {
			row["desc"] = line.Desc
		}
		out = append(out, row)
	}
	return out
}
