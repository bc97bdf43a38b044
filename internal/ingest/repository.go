package ingest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"ediaudit/internal/constants"
	pkgerrors "ediaudit/pkg/errors"
	"ediaudit/pkg/metrics"
)

type Repository interface {
	Create(ctx context.Context, invoice *Invoice) error
	GetByID(ctx context.Context, id string) (*Invoice, error)
	GetByMessageID(ctx context.Context, messageID string) (*Invoice, error)
	List(ctx context.Context, filter ListFilter) ([]Invoice, error)
}

type PostgresRepository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &PostgresRepository{db: db}
}

const invoiceColumns = `
	id, message_id, source, sender_id, receiver_id, control_number,
	transaction_type, invoice_number, invoice_date, amount, currency,
	carrier_name, segment_count, rules_applied, ingested_at
`

func (r *PostgresRepository) Create(ctx context.Context, invoice *Invoice) error {
	if invoice.IngestedAt.IsZero() {
		invoice.IngestedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	start := time.Now()
	_, err := r.db.ExecContext(ctx, query,
		invoice.ID, invoice.MessageID, invoice.Source,
		nullable(invoice.SenderID), nullable(invoice.ReceiverID), nullable(invoice.ControlNumber),
		nullable(invoice.TransactionType), nullable(invoice.InvoiceNumber), nullable(invoice.InvoiceDate),
		invoice.Amount, nullable(invoice.Currency), nullable(invoice.CarrierName),
		invoice.SegmentCount, pq.Array(invoice.RulesApplied), invoice.IngestedAt,
	)
	r.recordQuery("insert", start, err)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return pkgerrors.ErrDuplicate.WithCause(err).WithDetail("message_id", invoice.MessageID)
		}
		return fmt.Errorf("failed to insert invoice: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE id = $1`
	return r.queryOne(ctx, query, id)
}

func (r *PostgresRepository) GetByMessageID(ctx context.Context, messageID string) (*Invoice, error) {
	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE message_id = $1`
	return r.queryOne(ctx, query, messageID)
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, arg interface{}) (*Invoice, error) {
	start := time.Now()
	row := r.db.QueryRowContext(ctx, query, arg)

	invoice, err := scanInvoice(row.Scan)
	r.recordQuery("select", start, err)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrNotFound.WithCause(err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invoice: %w", err)
	}

	return invoice, nil
}

func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	limit := filter.Limit
	if limit <= 0 || limit > constants.MaxLimit {
		limit = constants.DefaultLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + invoiceColumns + ` FROM invoices WHERE 1=1`
	args := make([]interface{}, 0, 5)

	if filter.Source != "" {
		args = append(args, filter.Source)
		query += fmt.Sprintf(" AND source = $%d", len(args))
	}
	if filter.SenderID != "" {
		args = append(args, filter.SenderID)
		query += fmt.Sprintf(" AND sender_id = $%d", len(args))
	}
	if filter.Currency != "" {
		args = append(args, filter.Currency)
		query += fmt.Sprintf(" AND currency = $%d", len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY ingested_at DESC LIMIT $%d", len(args))
	args = append(args, offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	start := time.Now()
	rows, err := r.db.QueryContext(ctx, query, args...)
	r.recordQuery("select", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, *invoice)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return invoices, nil
}

func scanInvoice(scan func(dest ...interface{}) error) (*Invoice, error) {
	var (
		invoice      Invoice
		senderID     sql.NullString
		receiverID   sql.NullString
		controlNum   sql.NullString
		txType       sql.NullString
		invoiceNum   sql.NullString
		invoiceDate  sql.NullString
		amount       sql.NullFloat64
		currency     sql.NullString
		carrierName  sql.NullString
		rulesApplied pq.StringArray
	)

	err := scan(
		&invoice.ID, &invoice.MessageID, &invoice.Source,
		&senderID, &receiverID, &controlNum,
		&txType, &invoiceNum, &invoiceDate,
		&amount, &currency, &carrierName,
		&invoice.SegmentCount, &rulesApplied, &invoice.IngestedAt,
	)
	if err != nil {
		return nil, err
	}

	invoice.SenderID = senderID.String
	invoice.ReceiverID = receiverID.String
	invoice.ControlNumber = controlNum.String
	invoice.TransactionType = txType.String
	invoice.InvoiceNumber = invoiceNum.String
	invoice.InvoiceDate = invoiceDate.String
	invoice.Currency = currency.String
	invoice.CarrierName = carrierName.String
	invoice.RulesApplied = []string(rulesApplied)
	if amount.Valid {
		invoice.Amount = &amount.Float64
	}

	return &invoice, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *PostgresRepository) recordQuery(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.IncDatabaseQuery("ingest", "postgres", operation, status)
	metrics.ObserveDatabaseQueryDuration("ingest", "postgres", operation, time.Since(start))
}
