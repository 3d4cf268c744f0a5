package pipeline

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/jhillyerd/enmime"
	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"chandlery/internal"
	"chandlery/internal/util"
)

var ignorePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^--+$`),
	regexp.MustCompile(`(?i)^(best |kind |warm )?regards`),
	regexp.MustCompile(`(?i)^sincerely`),
	regexp.MustCompile(`(?i)^thank you`),
	regexp.MustCompile(`(?i)^tel[:\s]`),
	regexp.MustCompile(`(?i)^fax[:\s]`),
	regexp.MustCompile(`(?i)^e-?mail[:\s]`),
	regexp.MustCompile(`(?i)^http`),
	regexp.MustCompile(`^敬具$`),
	regexp.MustCompile(`^以上`),
}

var (
	reHasLetters = regexp.MustCompile(`[\p{L}]`)
	reHasDigit   = regexp.MustCompile(`\d`)
	rePOToken    = regexp.MustCompile(`(?i)\bPO-[A-Z0-9][A-Z0-9-]+`)
	rePONumber   = regexp.MustCompile(`(?i)\b(?:P\.?O\.?|PURCHASE\s+ORDER)\s*(?:NO\.?|NUMBER|#)?[\s:#-]*([A-Z0-9][A-Z0-9-]{2,})`)
)

// extractPONumber fishes a PO number out of free text, preferring a full
// "PO-XXXX" token over whatever follows a "P.O." marker. Captures without a
// digit ("P.O. Box") are rejected.
func extractPONumber(text string) string {
	folded := util.FoldWidth(text)
	if m := rePOToken.FindString(folded); m != "" && reHasDigit.MatchString(m) {
		return strings.ToUpper(m)
	}
	if m := rePONumber.FindStringSubmatch(folded); m != nil && reHasDigit.MatchString(m[1]) {
		return strings.ToUpper(m[1])
	}
	return ""
}

// ValidateWorkbookName rejects anything that is not an Excel workbook before
// a single byte is parsed.
func ValidateWorkbookName(filename string) error {
	lower := strings.ToLower(strings.TrimSpace(filename))
	if strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls") {
		return nil
	}
	return fmt.Errorf("unsupported file type: %s (expected .xlsx or .xls)", filename)
}

// ExtractOrdersFromEmailRaw pulls cruise orders out of a raw RFC-822 message.
// Workbook attachments are authoritative; HTML tables and plain-text lines
// only contribute when no attachment produced an order.
func ExtractOrdersFromEmailRaw(raw []byte) ([]internal.CruiseOrder, string, string, []string, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return nil, "", "", nil, err
	}
	subject := env.GetHeader("Subject")

	orders := make([]internal.CruiseOrder, 0)
	attachmentNames := make([]string, 0, len(env.Attachments))
	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		attachmentNames = append(attachmentNames, filename)
		lower := strings.ToLower(filename)

		if strings.HasSuffix(lower, ".xlsx") || strings.HasSuffix(lower, ".xls") {
			if extra, err := ParseOrderWorkbook(att.Content); err == nil {
				orders = append(orders, extra...)
			}
		}
		if strings.HasSuffix(lower, ".pdf") {
			if extra, err := parseOrdersPDF(att.Content, subject); err == nil {
				orders = append(orders, extra...)
			}
		}
	}

	if len(orders) == 0 && env.HTML != "" {
		orders = append(orders, parseOrdersHTML(env.HTML, subject)...)
	}
	if len(orders) == 0 && env.Text != "" {
		orders = append(orders, parseOrdersText(env.Text, subject)...)
	}

	orders = dedupeOrders(orders)
	return orders, subject, env.Text, attachmentNames, nil
}

type headerProbe struct {
	key    string
	probes []string
}

// Probe order matters: more specific labels must be tried before the
// generic ones they contain ("SHIP CODE" before "SHIP", "PORT" before
// "DELIVERY").
var headerProbes = []headerProbe{
	{key: "po", probes: []string{"PO NUMBER", "PO NO", "P.O", "PURCHASE ORDER", "ORDER NO", "発注番号", "注文番号"}},
	{key: "ship_code", probes: []string{"SHIP CODE", "VESSEL CODE", "船舶コード"}},
	{key: "ship", probes: []string{"SHIP NAME", "VESSEL", "SHIP", "船名"}},
	{key: "voyage", probes: []string{"VOYAGE", "VOY", "航海"}},
	{key: "supplier", probes: []string{"SUPPLIER", "AGENT", "CHANDLER", "納入業者"}},
	{key: "port", probes: []string{"DESTINATION PORT", "DELIVERY PORT", "DESTINATION", "PORT", "寄港地"}},
	{key: "delivery", probes: []string{"DELIVERY DATE", "DELIVERY", "ETA", "納品日"}},
	{key: "currency", probes: []string{"CURRENCY", "通貨"}},
}

var (
	nameProbes   = []string{"PRODUCT NAME", "ITEM NAME", "DESCRIPTION", "PRODUCT", "商品名", "品名"}
	qtyProbes    = []string{"QTY", "QUANTITY", "数量"}
	codeProbes   = []string{"ITEM CODE", "PRODUCT CODE", "CODE", "商品コード"}
	priceProbes  = []string{"UNIT PRICE", "単価", "PRICE"}
	amountProbes = []string{"AMOUNT", "TOTAL PRICE", "金額", "TOTAL"}
	unitExact    = []string{"UNIT", "単位", "EA UNIT"}
	poColProbes  = []string{"PO NUMBER", "PO NO", "P.O", "ORDER NO", "発注番号", "注文番号"}
)

// ParseOrderWorkbook reads a cruise order spreadsheet. A sheet whose items
// header carries its own PO column is a flat table holding one or more
// orders; otherwise the rows above the items header form a label block
// (PO/ship/port fields) describing a single order.
func ParseOrderWorkbook(content []byte) ([]internal.CruiseOrder, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := []internal.CruiseOrder{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil || len(rows) == 0 {
			continue
		}

		grid := make([][]string, 0, len(rows))
		for _, row := range rows {
			grid = append(grid, normalizeCells(row))
		}

		headerRow, columns := findItemsHeader(grid)
		if headerRow < 0 {
			continue
		}
		if poColumn(grid[headerRow]) >= 0 {
			out = append(out, parseFlatSheet(grid, headerRow)...)
			continue
		}

		labels := scanLabelBlock(grid[:headerRow])
		if order, ok := parseLabeledSheet(grid, headerRow, columns, labels); ok {
			out = append(out, order)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no orders found in workbook")
	}
	return out, nil
}

func poColumn(cells []string) int {
	norm := make([]string, 0, len(cells))
	for _, c := range cells {
		norm = append(norm, util.NormalizeName(c))
	}
	if idx := findHeaderIndex(norm, poColProbes); idx >= 0 {
		return idx
	}
	return findExactHeader(norm, []string{"PO", "P.O", "P.O."})
}

func scanLabelBlock(grid [][]string) map[string]string {
	labels := map[string]string{}
	limit := len(grid)
	if limit > 20 {
		limit = 20
	}
	for r := 0; r < limit; r++ {
		cells := grid[r]
		for c, cell := range cells {
			if cell == "" {
				continue
			}
			labelPart, inline := splitLabel(cell)
			key := labelKey(labelPart)
			if key == "" {
				continue
			}
			if _, seen := labels[key]; seen {
				continue
			}
			value := inline
			if value == "" {
				value = nextNonEmpty(cells, c+1)
			}
			if value != "" {
				labels[key] = value
			}
		}
	}
	return labels
}

func splitLabel(cell string) (string, string) {
	for _, sep := range []string{":", "："} {
		if i := strings.Index(cell, sep); i >= 0 {
			return cell[:i], strings.TrimSpace(cell[i+len(sep):])
		}
	}
	return cell, ""
}

func labelKey(text string) string {
	norm := util.NormalizeName(text)
	if norm == "" || len([]rune(norm)) > 24 {
		return ""
	}
	for _, hp := range headerProbes {
		for _, probe := range hp.probes {
			if strings.Contains(norm, util.NormalizeName(probe)) {
				return hp.key
			}
		}
	}
	return ""
}

func nextNonEmpty(cells []string, from int) string {
	for i := from; i < len(cells); i++ {
		if cells[i] != "" {
			return cells[i]
		}
	}
	return ""
}

func parseLabeledSheet(grid [][]string, headerRow int, columns itemColumns, labels map[string]string) (internal.CruiseOrder, bool) {
	currency := strings.ToUpper(strings.TrimSpace(labels["currency"]))
	if currency == "" {
		currency = "USD"
	}

	products := parseItemRows(grid[headerRow+1:], columns, currency)
	if len(products) == 0 {
		return internal.CruiseOrder{}, false
	}

	order := internal.CruiseOrder{
		PONumber:        labels["po"],
		ShipName:        labels["ship"],
		ShipCode:        labels["ship_code"],
		VoyageNumber:    labels["voyage"],
		SupplierName:    labels["supplier"],
		DestinationPort: labels["port"],
		DeliveryDate:    labels["delivery"],
		Currency:        currency,
		Source:          internal.SourceWorkbook,
		Products:        products,
	}
	if order.PONumber == "" {
		order.PONumber = "PO-UNKNOWN"
	}
	order.TotalAmount = sumProductTotals(products)
	return order, true
}

type itemColumns struct {
	name, qty, code, unit, price, amount int
}

func findItemsHeader(grid [][]string) (int, itemColumns) {
	for r, cells := range grid {
		norm := make([]string, 0, len(cells))
		for _, c := range cells {
			norm = append(norm, util.NormalizeName(c))
		}
		nameIdx := findHeaderIndex(norm, nameProbes)
		qtyIdx := findHeaderIndex(norm, qtyProbes)
		if nameIdx < 0 || qtyIdx < 0 || nameIdx == qtyIdx {
			continue
		}
		cols := itemColumns{
			name:   nameIdx,
			qty:    qtyIdx,
			code:   findHeaderIndex(norm, codeProbes),
			price:  findHeaderIndex(norm, priceProbes),
			amount: -1,
			unit:   findExactHeader(norm, unitExact),
		}
		// Amount must not collide with the unit-price column.
		for i, h := range norm {
			if i == cols.price {
				continue
			}
			for _, probe := range amountProbes {
				if strings.Contains(h, probe) {
					cols.amount = i
					break
				}
			}
			if cols.amount >= 0 {
				break
			}
		}
		return r, cols
	}
	return -1, itemColumns{}
}

func parseItemRows(rows [][]string, cols itemColumns, currency string) []internal.OrderProduct {
	out := []internal.OrderProduct{}
	for _, cells := range rows {
		name := pickCell(cells, cols.name, -1)
		if name == "" {
			break
		}
		normName := util.NormalizeName(name)
		if strings.HasPrefix(normName, "TOTAL") || strings.HasPrefix(normName, "合計") {
			break
		}

		parsed := util.ParseQty(pickCell(cells, cols.qty, -1))
		if parsed.Qty == nil || *parsed.Qty <= 0 {
			continue
		}

		p := internal.OrderProduct{
			ProductName: name,
			Quantity:    *parsed.Qty,
			Currency:    currency,
		}
		if code := pickCell(cells, cols.code, -1); code != "" {
			p.ItemCode = util.StringPtr(code)
		}
		if unit := pickCell(cells, cols.unit, -1); unit != "" {
			p.Unit = util.StringPtr(unit)
		} else if parsed.Unit != nil {
			p.Unit = parsed.Unit
		}
		if price := util.ParseMoney(pickCell(cells, cols.price, -1)); price != nil {
			p.UnitPrice = *price
		}
		if amount := util.ParseMoney(pickCell(cells, cols.amount, -1)); amount != nil {
			p.TotalPrice = *amount
		} else {
			p.TotalPrice = p.Quantity * p.UnitPrice
		}
		out = append(out, p)
	}
	return out
}

func parseFlatSheet(grid [][]string, headerRow int) []internal.CruiseOrder {
	norm := make([]string, 0, len(grid[headerRow]))
	for _, c := range grid[headerRow] {
		norm = append(norm, util.NormalizeName(c))
	}

	poIdx := poColumn(grid[headerRow])
	cols := itemColumns{
		name:   findHeaderIndex(norm, nameProbes),
		qty:    findHeaderIndex(norm, qtyProbes),
		code:   findHeaderIndex(norm, codeProbes),
		price:  findHeaderIndex(norm, priceProbes),
		amount: -1,
		unit:   findExactHeader(norm, unitExact),
	}
	for i, h := range norm {
		if i == cols.price {
			continue
		}
		for _, probe := range amountProbes {
			if strings.Contains(h, probe) {
				cols.amount = i
			}
		}
	}
	shipIdx := findHeaderIndex(norm, []string{"SHIP NAME", "VESSEL", "SHIP", "船名"})
	portIdx := findHeaderIndex(norm, []string{"DESTINATION PORT", "PORT", "DESTINATION"})
	dateIdx := findHeaderIndex(norm, []string{"DELIVERY DATE", "DELIVERY", "ETA"})
	curIdx := findHeaderIndex(norm, []string{"CURRENCY"})
	supIdx := findHeaderIndex(norm, []string{"SUPPLIER", "AGENT"})

	orderByPO := map[string]*internal.CruiseOrder{}
	poOrder := []string{}
	for _, cells := range grid[headerRow+1:] {
		po := pickCell(cells, poIdx, -1)
		name := pickCell(cells, cols.name, -1)
		if po == "" && name == "" {
			continue
		}
		if po == "" {
			po = "PO-UNKNOWN"
		}

		order, ok := orderByPO[po]
		if !ok {
			currency := strings.ToUpper(pickCell(cells, curIdx, -1))
			if currency == "" {
				currency = "USD"
			}
			order = &internal.CruiseOrder{
				PONumber:        po,
				ShipName:        pickCell(cells, shipIdx, -1),
				SupplierName:    pickCell(cells, supIdx, -1),
				DestinationPort: pickCell(cells, portIdx, -1),
				DeliveryDate:    pickCell(cells, dateIdx, -1),
				Currency:        currency,
				Source:          internal.SourceWorkbook,
			}
			orderByPO[po] = order
			poOrder = append(poOrder, po)
		}

		parsed := util.ParseQty(pickCell(cells, cols.qty, -1))
		if name == "" || parsed.Qty == nil || *parsed.Qty <= 0 {
			continue
		}
		p := internal.OrderProduct{
			ProductName: name,
			Quantity:    *parsed.Qty,
			Currency:    order.Currency,
		}
		if code := pickCell(cells, cols.code, -1); code != "" {
			p.ItemCode = util.StringPtr(code)
		}
		if unit := pickCell(cells, cols.unit, -1); unit != "" {
			p.Unit = util.StringPtr(unit)
		}
		if price := util.ParseMoney(pickCell(cells, cols.price, -1)); price != nil {
			p.UnitPrice = *price
		}
		if amount := util.ParseMoney(pickCell(cells, cols.amount, -1)); amount != nil {
			p.TotalPrice = *amount
		} else {
			p.TotalPrice = p.Quantity * p.UnitPrice
		}
		order.Products = append(order.Products, p)
	}

	out := make([]internal.CruiseOrder, 0, len(poOrder))
	for _, po := range poOrder {
		order := orderByPO[po]
		if len(order.Products) == 0 {
			continue
		}
		order.TotalAmount = sumProductTotals(order.Products)
		out = append(out, *order)
	}
	return out
}

func parseOrdersHTML(html, subject string) []internal.CruiseOrder {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	products := []internal.OrderProduct{}
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := table.Find("tr")
		if rows.Length() < 2 {
			return
		}

		headers := []string{}
		rows.First().Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			headers = append(headers, util.NormalizeName(cell.Text()))
		})

		nameIdx := findHeaderIndex(headers, nameProbes)
		qtyIdx := findHeaderIndex(headers, qtyProbes)
		codeIdx := findHeaderIndex(headers, codeProbes)
		priceIdx := findHeaderIndex(headers, priceProbes)
		unitIdx := findExactHeader(headers, unitExact)
		if nameIdx < 0 && qtyIdx < 0 {
			return
		}

		rows.Slice(1, rows.Length()).Each(func(_ int, row *goquery.Selection) {
			cells := []string{}
			row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, normalizeSpaces(cell.Text()))
			})
			if len(cells) == 0 {
				return
			}

			name := pickCell(cells, nameIdx, 0)
			qtyCell := pickCell(cells, qtyIdx, -1)
			if qtyCell == "" {
				for _, c := range cells {
					if reHasDigit.MatchString(c) {
						qtyCell = c
						break
					}
				}
			}
			parsed := util.ParseQty(qtyCell)
			if strings.TrimSpace(name) == "" || parsed.Qty == nil || *parsed.Qty <= 0 {
				return
			}

			p := internal.OrderProduct{
				ProductName: name,
				Quantity:    *parsed.Qty,
				Currency:    "USD",
			}
			if code := pickCell(cells, codeIdx, -1); code != "" {
				p.ItemCode = util.StringPtr(code)
			}
			if unit := pickCell(cells, unitIdx, -1); unit != "" {
				p.Unit = util.StringPtr(unit)
			} else if parsed.Unit != nil {
				p.Unit = parsed.Unit
			}
			if price := util.ParseMoney(pickCell(cells, priceIdx, -1)); price != nil {
				p.UnitPrice = *price
				p.TotalPrice = p.Quantity * p.UnitPrice
			}
			products = append(products, p)
		})
	})

	if len(products) == 0 {
		return nil
	}
	return []internal.CruiseOrder{synthesizeOrder(products, subject, internal.SourceHTMLTable)}
}

func parseOrdersText(text, subject string) []internal.CruiseOrder {
	products := []internal.OrderProduct{}
	for _, line := range splitLines(text) {
		p := lineToOrderProduct(line)
		if p == nil {
			continue
		}
		products = append(products, *p)
	}
	if len(products) == 0 {
		return nil
	}
	return []internal.CruiseOrder{synthesizeOrder(products, subject, internal.SourcePlainText)}
}

func parseOrdersPDF(content []byte, subject string) ([]internal.CruiseOrder, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	products := []internal.OrderProduct{}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, line := range splitLines(text) {
			item := lineToOrderProduct(line)
			if item == nil {
				continue
			}
			products = append(products, *item)
		}
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("no order lines in pdf")
	}
	return []internal.CruiseOrder{synthesizeOrder(products, subject, internal.SourcePDF)}, nil
}

// Non-workbook sources have no order header block, so a single order is
// synthesized around the extracted lines and the PO number is fished out
// of the subject when present.
func synthesizeOrder(products []internal.OrderProduct, subject string, source internal.OrderSource) internal.CruiseOrder {
	po := extractPONumber(subject)
	if po == "" {
		po = "PO-UNKNOWN"
	}
	return internal.CruiseOrder{
		PONumber:    po,
		Currency:    "USD",
		TotalAmount: sumProductTotals(products),
		Source:      source,
		Products:    products,
	}
}

func lineToOrderProduct(rawLine string) *internal.OrderProduct {
	compact := normalizeSpaces(rawLine)
	if compact == "" || isLikelyNoise(compact) {
		return nil
	}
	if !reHasLetters.MatchString(compact) {
		return nil
	}

	parsed := util.ParseQty(compact)
	if parsed.Qty == nil || *parsed.Qty <= 0 {
		return nil
	}

	name := compact
	if parsed.QtyRaw != nil {
		if idx := strings.LastIndex(name, *parsed.QtyRaw); idx >= 0 {
			name = name[:idx] + " " + name[idx+len(*parsed.QtyRaw):]
		}
	}
	name = strings.TrimRight(name, " -:xX*×")
	name = normalizeSpaces(strings.TrimLeft(name, " -:"))
	if len([]rune(name)) <= 1 {
		name = compact
	}

	p := internal.OrderProduct{
		ProductName: name,
		Quantity:    *parsed.Qty,
		Unit:        parsed.Unit,
		Currency:    "USD",
	}
	return &p
}

func sumProductTotals(products []internal.OrderProduct) float64 {
	total := 0.0
	for _, p := range products {
		total += p.TotalPrice
	}
	return total
}

func dedupeOrders(orders []internal.CruiseOrder) []internal.CruiseOrder {
	seen := map[string]struct{}{}
	out := make([]internal.CruiseOrder, 0, len(orders))
	for _, o := range orders {
		key := o.PONumber + "|" + string(o.Source) + "|" + fmt.Sprintf("%d", len(o.Products))
		if _, exists := seen[key]; exists {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, o)
	}
	return out
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func normalizeSpaces(input string) string {
	return strings.TrimSpace(regexp.MustCompile(`\s+`).ReplaceAllString(input, " "))
}

func isLikelyNoise(line string) bool {
	for _, re := range ignorePatterns {
		if re.MatchString(strings.TrimSpace(line)) {
			return true
		}
	}
	return false
}

func findHeaderIndex(headers []string, probes []string) int {
	for i, h := range headers {
		for _, probe := range probes {
			if h != "" && strings.Contains(h, util.NormalizeName(probe)) {
				return i
			}
		}
	}
	return -1
}

func findExactHeader(headers []string, probes []string) int {
	for i, h := range headers {
		for _, probe := range probes {
			if h == util.NormalizeName(probe) {
				return i
			}
		}
	}
	return -1
}

func pickCell(cells []string, idx int, fallback int) string {
	if idx >= 0 && idx < len(cells) {
		return strings.TrimSpace(cells[idx])
	}
	if fallback >= 0 && fallback < len(cells) {
		return strings.TrimSpace(cells[fallback])
	}
	return ""
}

func normalizeCells(row []string) []string {
	out := make([]string, 0, len(row))
	for _, c := range row {
		out = append(out, normalizeSpaces(c))
	}
	return out
}
