package internal

// OriginalIndex is a position in the flattened product list of an upload.
// RequestIndex is a position in a candidate request built over the selected
// subset. The two are distinct types so a request-local index can never end
// up in a persisted record.
type OriginalIndex int

type RequestIndex int

type OrderSource string

const (
	SourceWorkbook  OrderSource = "workbook"
	SourceHTMLTable OrderSource = "email_html_table"
	SourcePlainText OrderSource = "email_text"
	SourcePDF       OrderSource = "pdf"
)

type OrderProduct struct {
	ProductName string   `json:"product_name"`
	ProductID   *string  `json:"product_id,omitempty"`
	ItemCode    *string  `json:"item_code,omitempty"`
	Quantity    float64  `json:"quantity"`
	Unit        *string  `json:"unit,omitempty"`
	UnitPrice   float64  `json:"unit_price"`
	TotalPrice  float64  `json:"total_price"`
	Currency    string   `json:"currency"`
}

type CruiseOrder struct {
	PONumber        string         `json:"po_number"`
	ShipName        string         `json:"ship_name"`
	ShipCode        string         `json:"ship_code"`
	VoyageNumber    string         `json:"voyage_number"`
	SupplierName    string         `json:"supplier_name"`
	DestinationPort string         `json:"destination_port"`
	DeliveryDate    string         `json:"delivery_date"`
	Currency        string         `json:"currency"`
	TotalAmount     float64        `json:"total_amount"`
	Source          OrderSource    `json:"source,omitempty"`
	Products        []OrderProduct `json:"products"`
}

type UploadResult struct {
	UploadID      string        `json:"upload_id"`
	TotalOrders   int           `json:"total_orders"`
	TotalProducts int           `json:"total_products"`
	Orders        []CruiseOrder `json:"orders"`
}

// FlattenProducts concatenates order products in order order; the slice
// position of a product is its OriginalIndex.
func (u UploadResult) FlattenProducts() []OrderProduct {
	out := make([]OrderProduct, 0, u.TotalProducts)
	for _, o := range u.Orders {
		out = append(out, o.Products...)
	}
	return out
}

type OrderAnalysis struct {
	TotalValue       float64        `json:"total_value"`
	Currency         string         `json:"currency"`
	OrdersBySupplier map[string]int `json:"orders_by_supplier"`
}

type MatchStatus string

type MatchReason string

const (
	MatchMatched    MatchStatus = "matched"
	MatchPossible   MatchStatus = "possible_match"
	MatchNotMatched MatchStatus = "not_matched"

	ReasonCode  MatchReason = "CODE"
	ReasonName  MatchReason = "NAME"
	ReasonFuzzy MatchReason = "FUZZY"
	ReasonNone  MatchReason = "NONE"
)

type ProductRecord struct {
	ID            int
	Code          string
	Name          string
	NameJp        *string
	NameCn        *string
	PackSize      *string
	Unit          *string
	Category      *string
	PurchasePrice *float64
	Currency      *string
	AltCodes      []string
	UpdatedAt     *string
	RawJSON       string
}

type CatalogProduct struct {
	Code          string   `json:"code"`
	Name          string   `json:"name"`
	NameJp        *string  `json:"name_jp,omitempty"`
	NameCn        *string  `json:"name_cn,omitempty"`
	PackSize      *string  `json:"pack_size,omitempty"`
	Unit          *string  `json:"unit,omitempty"`
	PurchasePrice *float64 `json:"purchase_price,omitempty"`
	Currency      *string  `json:"currency,omitempty"`
}

type MatchCandidate struct {
	ID    int     `json:"id"`
	Code  string  `json:"code"`
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

type ProductMatch struct {
	Status         MatchStatus      `json:"match_status"`
	Score          float64          `json:"match_score"`
	Reason         MatchReason      `json:"match_reason"`
	CruiseProduct  OrderProduct     `json:"cruise_product"`
	MatchedProduct *CatalogProduct  `json:"matched_product"`
	Candidates     []MatchCandidate `json:"candidates,omitempty"`
}

type MatchResult struct {
	UploadID          string         `json:"upload_id"`
	Results           []ProductMatch `json:"results"`
	TotalProducts     int            `json:"total_products"`
	MatchedProducts   int            `json:"matched_products"`
	UnmatchedProducts int            `json:"unmatched_products"`
	MatchRate         float64        `json:"match_rate"`
}

type SupplierRecord struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Contact  *string `json:"contact,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	IsActive bool    `json:"is_active"`
}

type SupplierQuote struct {
	SupplierID   string   `json:"supplier_id"`
	ProductCode  string   `json:"product_code"`
	Price        float64  `json:"price"`
	Currency     string   `json:"currency"`
	IsPrimary    bool     `json:"is_primary"`
	LeadTimeDays *int     `json:"lead_time_days,omitempty"`
	MOQ          *float64 `json:"moq,omitempty"`
}

type SupplierCandidate struct {
	SupplierID   string  `json:"id"`
	Name         string  `json:"name"`
	Contact      *string `json:"contact,omitempty"`
	Email        *string `json:"email,omitempty"`
	Price        float64 `json:"price"`
	Currency     string  `json:"currency"`
	IsPrimary    bool    `json:"is_primary"`
	LeadTimeDays *int    `json:"lead_time_days,omitempty"`
}

// ProductSupplierAssignment is one checked (line x supplier) pair flattened
// out of the assignment stage. ProductIndex is the line's OriginalIndex;
// deliveryDate, shipCode, voyageNumber and poNumber are passed through from
// the first uploaded order.
type ProductSupplierAssignment struct {
	ProductIndex  OriginalIndex `json:"productIndex"`
	SupplierID    string        `json:"supplierId"`
	SupplierName  string        `json:"supplierName"`
	ProductCode   string        `json:"productCode"`
	ProductName   string        `json:"productName"`
	ProductNameJp *string       `json:"productNameJp,omitempty"`
	Quantity      float64       `json:"quantity"`
	UnitPrice     float64       `json:"unitPrice"`
	TotalPrice    float64       `json:"totalPrice"`
	Currency      string        `json:"currency"`
	DeliveryDate  string        `json:"deliveryDate"`
	ShipCode      string        `json:"shipCode"`
	VoyageNumber  string        `json:"voyageNumber"`
	PONumber      string        `json:"poNumber"`
}

type SupplierEmailInfo struct {
	SupplierID   string                      `json:"supplierId"`
	SupplierName string                      `json:"supplierName"`
	Email        string                      `json:"email"`
	Products     []ProductSupplierAssignment `json:"products"`
	TotalValue   float64                     `json:"totalValue"`
	Subject      string                      `json:"subject"`
	EmailContent string                      `json:"emailContent"`
	Sent         bool                        `json:"sent"`
}

// ExcelModification is a per-supplier overlay captured from a preview edit.
// It is kept beside the email groups, never merged into them, and applied
// when the quotation workbook is generated.
type ExcelModification struct {
	Rows []ModifiedRow `json:"rows"`
	Note string        `json:"note,omitempty"`
}

type ModifiedRow struct {
	Index     int      `json:"index"`
	Name      *string  `json:"name,omitempty"`
	Quantity  *float64 `json:"quantity,omitempty"`
	UnitPrice *float64 `json:"unitPrice,omitempty"`
	Amount    *float64 `json:"amount,omitempty"`
}

type QuotationLine struct {
	Code     string  `json:"code"`
	Name     string  `json:"name"`
	NameJp   string  `json:"name_jp,omitempty"`
	PackSize string  `json:"pack_size,omitempty"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit,omitempty"`
	Price    float64 `json:"price"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// PurchaseOrderRequest is the deterministic input to quotation workbook
// generation: one supplier's lines plus the order-level fields they ship
// under. An ExcelModification overlay, when present, supersedes Lines at
// generation time.
type PurchaseOrderRequest struct {
	SupplierID      string          `json:"supplier_id"`
	SupplierName    string          `json:"supplier_name"`
	PONumber        string          `json:"po_number"`
	ShipCode        string          `json:"ship_code"`
	VoyageNumber    string          `json:"voyage_number"`
	DeliveryDate    string          `json:"delivery_date"`
	DeliveryAddress string          `json:"delivery_address"`
	Currency        string          `json:"currency"`
	Lines           []QuotationLine `json:"lines"`
	TotalValue      float64         `json:"total_value"`
}

type EmailTemplate struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Content string `json:"content"`
}

type IntakeEmail struct {
	ID         int    `json:"id"`
	Provider   string `json:"provider"`
	MessageID  string `json:"message_id"`
	Subject    string `json:"subject"`
	Sender     string `json:"sender"`
	ReceivedAt string `json:"received_at"`
	Hash       string `json:"-"`
	Status     string `json:"status"`
	RawRef     string `json:"-"`
}

type FetchedMailMessage struct {
	Provider   string
	MessageID  string
	Subject    string
	From       string
	ReceivedAt string
	Raw        []byte
}

type SentEmailRecord struct {
	ID               int    `json:"id"`
	SupplierID       string `json:"supplier_id"`
	Recipient        string `json:"recipient"`
	Subject          string `json:"subject"`
	Provider         string `json:"provider"`
	MessageRef       string `json:"message_ref,omitempty"`
	ProductsJSON     string `json:"products_json,omitempty"`
	ModificationJSON string `json:"modification_json,omitempty"`
	SentAt           string `json:"sent_at"`
}

type MatchReportRow struct {
	LineNo          int
	PONumber        string
	Source          string
	ProductName     string
	ItemCode        *string
	Qty             float64
	Unit            *string
	MatchStatus     string
	Score           float64
	MatchReason     string
	ProductCode     *string
	CatalogName     *string
	CatalogNameJp   *string
	PackSize        *string
	PurchasePrice   *float64
	Currency        *string
	Candidate2Name  *string
	Candidate2Score *float64
}
