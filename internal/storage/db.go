package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"chandlery/internal"
)

type DB struct {
	conn *sql.DB
}

func Open(path string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	if _, err := conn.Exec(`PRAGMA journal_mode = WAL;`); err != nil {
		_ = conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.init(); err != nil {
		_ = conn.Close()
		return nil, err
	}

	return db, nil
}

func (d *DB) Close() error {
	return d.conn.Close()
}

func (d *DB) init() error {
	schema := `
CREATE TABLE IF NOT EXISTS products (
  id INTEGER PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL,
  name_jp TEXT,
  name_cn TEXT,
  pack_size TEXT,
  unit TEXT,
  category TEXT,
  purchase_price REAL,
  currency TEXT,
  altCodes TEXT,
  updatedAt TEXT,
  raw_json TEXT NOT NULL,
  lastSeenAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_products_code ON products(code);
CREATE INDEX IF NOT EXISTS idx_products_name ON products(name);

CREATE TABLE IF NOT EXISTS suppliers (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  contact TEXT,
  email TEXT,
  phone TEXT,
  isActive INTEGER NOT NULL DEFAULT 1,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS supplier_quotes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  supplierId TEXT NOT NULL,
  productCode TEXT NOT NULL,
  price REAL NOT NULL,
  currency TEXT NOT NULL DEFAULT 'USD',
  isPrimary INTEGER NOT NULL DEFAULT 0,
  leadTimeDays INTEGER,
  moq REAL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(supplierId, productCode),
  FOREIGN KEY(supplierId) REFERENCES suppliers(id)
);
CREATE INDEX IF NOT EXISTS idx_quotes_productCode ON supplier_quotes(productCode);

CREATE TABLE IF NOT EXISTS email_templates (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL UNIQUE,
  subject TEXT NOT NULL,
  content TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS intake_emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  provider TEXT NOT NULL,
  messageId TEXT NOT NULL,
  subject TEXT,
  sender TEXT,
  receivedAt TEXT,
  hash TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'fetched',
  rawRef TEXT NOT NULL,
  createdAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP,
  UNIQUE(provider, messageId)
);

CREATE TABLE IF NOT EXISTS sent_emails (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  supplierId TEXT NOT NULL,
  recipient TEXT NOT NULL,
  subject TEXT NOT NULL,
  provider TEXT NOT NULL,
  messageRef TEXT,
  productsJson TEXT,
  modificationJson TEXT,
  sentAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS metadata (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL,
  updatedAt TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	_, err := d.conn.Exec(schema)
	return err
}

func (d *DB) UpsertProducts(products []internal.ProductRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO products (
  id, code, name, name_jp, name_cn, pack_size, unit, category,
  purchase_price, currency, altCodes, updatedAt, raw_json, lastSeenAt
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET
  code=excluded.code,
  name=excluded.name,
  name_jp=excluded.name_jp,
  name_cn=excluded.name_cn,
  pack_size=excluded.pack_size,
  unit=excluded.unit,
  category=excluded.category,
  purchase_price=excluded.purchase_price,
  currency=excluded.currency,
  altCodes=excluded.altCodes,
  updatedAt=excluded.updatedAt,
  raw_json=excluded.raw_json,
  lastSeenAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range products {
		altJSON, _ := json.Marshal(p.AltCodes)
		if _, err := stmt.Exec(
			p.ID, p.Code, p.Name, p.NameJp, p.NameCn, p.PackSize, p.Unit, p.Category,
			p.PurchasePrice, p.Currency, string(altJSON), p.UpdatedAt, p.RawJSON,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

const productColumns = `id, code, name, name_jp, name_cn, pack_size, unit, category, purchase_price, currency, altCodes, updatedAt, raw_json`

func scanProduct(rows interface{ Scan(...any) error }) (internal.ProductRecord, error) {
	var p internal.ProductRecord
	var altJSON string
	err := rows.Scan(
		&p.ID, &p.Code, &p.Name, &p.NameJp, &p.NameCn, &p.PackSize, &p.Unit, &p.Category,
		&p.PurchasePrice, &p.Currency, &altJSON, &p.UpdatedAt, &p.RawJSON,
	)
	if err != nil {
		return internal.ProductRecord{}, err
	}
	_ = json.Unmarshal([]byte(altJSON), &p.AltCodes)
	return p, nil
}

func (d *DB) ListProducts() ([]internal.ProductRecord, error) {
	rows, err := d.conn.Query(`SELECT ` + productColumns + ` FROM products`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.ProductRecord
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}

	return out, rows.Err()
}

func (d *DB) SearchProducts(query string, limit, offset int) ([]internal.ProductRecord, int, error) {
	like := "%" + strings.TrimSpace(query) + "%"

	var total int
	err := d.conn.QueryRow(`
SELECT COUNT(*) FROM products
WHERE code LIKE ? OR name LIKE ? OR name_jp LIKE ? OR name_cn LIKE ?
`, like, like, like, like).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	rows, err := d.conn.Query(`
SELECT `+productColumns+` FROM products
WHERE code LIKE ? OR name LIKE ? OR name_jp LIKE ? OR name_cn LIKE ?
ORDER BY code ASC LIMIT ? OFFSET ?
`, like, like, like, like, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var out []internal.ProductRecord
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}

	return out, total, rows.Err()
}

func (d *DB) GetProductByCode(code string) (*internal.ProductRecord, error) {
	row := d.conn.QueryRow(`SELECT `+productColumns+` FROM products WHERE code = ?`, code)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (d *DB) UpsertSuppliers(suppliers []internal.SupplierRecord) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO suppliers (id, name, contact, email, phone, isActive)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
  name=excluded.name,
  contact=excluded.contact,
  email=excluded.email,
  phone=excluded.phone,
  isActive=excluded.isActive,
  updatedAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range suppliers {
		active := 0
		if s.IsActive {
			active = 1
		}
		if _, err := stmt.Exec(s.ID, s.Name, s.Contact, s.Email, s.Phone, active); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (d *DB) ListSuppliers() ([]internal.SupplierRecord, error) {
	rows, err := d.conn.Query(`SELECT id, name, contact, email, phone, isActive FROM suppliers ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SupplierRecord
	for rows.Next() {
		var s internal.SupplierRecord
		var active int
		if err := rows.Scan(&s.ID, &s.Name, &s.Contact, &s.Email, &s.Phone, &active); err != nil {
			return nil, err
		}
		s.IsActive = active != 0
		out = append(out, s)
	}
	return out, rows.Err()
}

func (d *DB) GetSupplier(id string) (*internal.SupplierRecord, error) {
	var s internal.SupplierRecord
	var active int
	err := d.conn.QueryRow(`SELECT id, name, contact, email, phone, isActive FROM suppliers WHERE id = ?`, id).
		Scan(&s.ID, &s.Name, &s.Contact, &s.Email, &s.Phone, &active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.IsActive = active != 0
	return &s, nil
}

func (d *DB) UpsertSupplierQuotes(quotes []internal.SupplierQuote) error {
	tx, err := d.conn.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
INSERT INTO supplier_quotes (supplierId, productCode, price, currency, isPrimary, leadTimeDays, moq)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(supplierId, productCode) DO UPDATE SET
  price=excluded.price,
  currency=excluded.currency,
  isPrimary=excluded.isPrimary,
  leadTimeDays=excluded.leadTimeDays,
  moq=excluded.moq,
  updatedAt=CURRENT_TIMESTAMP
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, q := range quotes {
		primary := 0
		if q.IsPrimary {
			primary = 1
		}
		if _, err := stmt.Exec(q.SupplierID, q.ProductCode, q.Price, q.Currency, primary, q.LeadTimeDays, q.MOQ); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// CandidatesByProductCodes returns active supplier quotes grouped by product
// code, primary suppliers first, then cheapest.
func (d *DB) CandidatesByProductCodes(codes []string) (map[string][]internal.SupplierCandidate, error) {
	out := map[string][]internal.SupplierCandidate{}
	if len(codes) == 0 {
		return out, nil
	}

	placeholders := strings.Repeat("?,", len(codes))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(codes))
	for _, c := range codes {
		args = append(args, c)
	}

	rows, err := d.conn.Query(`
SELECT q.productCode, s.id, s.name, s.contact, s.email, q.price, q.currency, q.isPrimary, q.leadTimeDays
FROM supplier_quotes q
JOIN suppliers s ON s.id = q.supplierId
WHERE q.productCode IN (`+placeholders+`) AND s.isActive = 1
ORDER BY q.productCode ASC, q.isPrimary DESC, q.price ASC
`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var code string
		var c internal.SupplierCandidate
		var primary int
		if err := rows.Scan(&code, &c.SupplierID, &c.Name, &c.Contact, &c.Email, &c.Price, &c.Currency, &primary, &c.LeadTimeDays); err != nil {
			return nil, err
		}
		c.IsPrimary = primary != 0
		out[code] = append(out[code], c)
	}

	return out, rows.Err()
}

func (d *DB) ListTemplates() ([]internal.EmailTemplate, error) {
	rows, err := d.conn.Query(`SELECT id, name, subject, content FROM email_templates ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.EmailTemplate
	for rows.Next() {
		var t internal.EmailTemplate
		if err := rows.Scan(&t.ID, &t.Name, &t.Subject, &t.Content); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (d *DB) GetTemplate(id int) (*internal.EmailTemplate, error) {
	var t internal.EmailTemplate
	err := d.conn.QueryRow(`SELECT id, name, subject, content FROM email_templates WHERE id = ?`, id).
		Scan(&t.ID, &t.Name, &t.Subject, &t.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *DB) GetTemplateByName(name string) (*internal.EmailTemplate, error) {
	var t internal.EmailTemplate
	err := d.conn.QueryRow(`SELECT id, name, subject, content FROM email_templates WHERE name = ?`, name).
		Scan(&t.ID, &t.Name, &t.Subject, &t.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (d *DB) CreateTemplate(t internal.EmailTemplate) (internal.EmailTemplate, error) {
	result, err := d.conn.Exec(`INSERT INTO email_templates (name, subject, content) VALUES (?, ?, ?)`, t.Name, t.Subject, t.Content)
	if err != nil {
		return internal.EmailTemplate{}, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return internal.EmailTemplate{}, err
	}
	t.ID = int(id)
	return t, nil
}

func (d *DB) UpdateTemplate(t internal.EmailTemplate) error {
	result, err := d.conn.Exec(`
UPDATE email_templates SET name = ?, subject = ?, content = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?
`, t.Name, t.Subject, t.Content, t.ID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("template not found: id=%d", t.ID)
	}
	return nil
}

func (d *DB) DeleteTemplate(id int) error {
	result, err := d.conn.Exec(`DELETE FROM email_templates WHERE id = ?`, id)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("template not found: id=%d", id)
	}
	return nil
}

func (d *DB) UpsertIntakeEmail(provider, messageID, subject, sender, receivedAt, hash, rawRef, status string) (internal.IntakeEmail, error) {
	_, err := d.conn.Exec(`
INSERT INTO intake_emails (provider, messageId, subject, sender, receivedAt, hash, status, rawRef)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(provider, messageId) DO UPDATE SET
  subject=excluded.subject,
  sender=excluded.sender,
  receivedAt=excluded.receivedAt,
  hash=excluded.hash,
  rawRef=excluded.rawRef,
  updatedAt=CURRENT_TIMESTAMP
`, provider, messageID, subject, sender, receivedAt, hash, status, rawRef)
	if err != nil {
		return internal.IntakeEmail{}, err
	}

	row, err := d.GetIntakeByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.IntakeEmail{}, err
	}
	if row == nil {
		return internal.IntakeEmail{}, errors.New("failed to upsert intake email")
	}
	return *row, nil
}

func (d *DB) GetIntakeByProviderMessageID(provider, messageID string) (*internal.IntakeEmail, error) {
	var row internal.IntakeEmail
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM intake_emails WHERE provider = ? AND messageId = ?
`, provider, messageID).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) GetIntakeByID(id int) (*internal.IntakeEmail, error) {
	var row internal.IntakeEmail
	err := d.conn.QueryRow(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM intake_emails WHERE id = ?
`, id).Scan(
		&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (d *DB) ListIntakeByStatus(status string, limit int) ([]internal.IntakeEmail, error) {
	rows, err := d.conn.Query(`
SELECT id, provider, messageId, subject, sender, receivedAt, hash, status, rawRef
FROM intake_emails WHERE status = ? ORDER BY receivedAt ASC LIMIT ?
`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.IntakeEmail
	for rows.Next() {
		var row internal.IntakeEmail
		if err := rows.Scan(&row.ID, &row.Provider, &row.MessageID, &row.Subject, &row.Sender, &row.ReceivedAt, &row.Hash, &row.Status, &row.RawRef); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (d *DB) UpdateIntakeStatus(intakeID int, status string) error {
	_, err := d.conn.Exec(`UPDATE intake_emails SET status = ?, updatedAt = CURRENT_TIMESTAMP WHERE id = ?`, status, intakeID)
	return err
}

func (d *DB) MustIntakeByProviderMessageID(provider, messageID string) (internal.IntakeEmail, error) {
	row, err := d.GetIntakeByProviderMessageID(provider, messageID)
	if err != nil {
		return internal.IntakeEmail{}, err
	}
	if row == nil {
		return internal.IntakeEmail{}, fmt.Errorf("intake email not found: provider=%s messageId=%s", provider, messageID)
	}
	return *row, nil
}

func (d *DB) InsertSentEmail(rec internal.SentEmailRecord) (int64, error) {
	result, err := d.conn.Exec(`
INSERT INTO sent_emails (supplierId, recipient, subject, provider, messageRef, productsJson, modificationJson)
VALUES (?, ?, ?, ?, ?, ?, ?)
`, rec.SupplierID, rec.Recipient, rec.Subject, rec.Provider, rec.MessageRef, rec.ProductsJSON, rec.ModificationJSON)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

func (d *DB) ListSentEmails(limit int) ([]internal.SentEmailRecord, error) {
	rows, err := d.conn.Query(`
SELECT id, supplierId, recipient, subject, provider, COALESCE(messageRef, ''), COALESCE(productsJson, ''), COALESCE(modificationJson, ''), sentAt
FROM sent_emails ORDER BY id DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.SentEmailRecord
	for rows.Next() {
		var rec internal.SentEmailRecord
		if err := rows.Scan(&rec.ID, &rec.SupplierID, &rec.Recipient, &rec.Subject, &rec.Provider, &rec.MessageRef, &rec.ProductsJSON, &rec.ModificationJSON, &rec.SentAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (d *DB) SetMetadata(key, value string) error {
	_, err := d.conn.Exec(`
INSERT INTO metadata (key, value) VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updatedAt = CURRENT_TIMESTAMP
`, key, value)
	return err
}

func (d *DB) GetMetadata(key string) (*string, error) {
	var value string
	err := d.conn.QueryRow(`SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &value, nil
}
