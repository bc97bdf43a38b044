package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ediaudit/internal/ingest"
	pkgerrors "ediaudit/pkg/errors"
)

func createTestInvoice(messageID, source, senderID, invoiceNumber, currency string, amount float64) *ingest.Invoice {
	return &ingest.Invoice{
		ID:              uuid.New().String(),
		MessageID:       messageID,
		Source:          source,
		SenderID:        senderID,
		ReceiverID:      "RECEIVERID",
		ControlNumber:   "000000001",
		TransactionType: "210",
		InvoiceNumber:   invoiceNumber,
		InvoiceDate:     "20231205",
		Amount:          &amount,
		Currency:        currency,
		CarrierName:     "MAERSK LINE",
		SegmentCount:    10,
		RulesApplied:    []string{"min_amount"},
	}
}

func TestInvoiceRepository_Create(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := ingest.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	invoice := createTestInvoice("msg-1", "api", "SENDERID", "INV-1", "USD", 1500.00)

	err := repo.Create(ctx, invoice)
	require.NoError(t, err)
	assert.False(t, invoice.IngestedAt.IsZero())
}

func TestInvoiceRepository_Create_DuplicateMessageID(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := ingest.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	err := repo.Create(ctx, createTestInvoice("msg-1", "api", "SENDERID", "INV-1", "USD", 1500.00))
	require.NoError(t, err)

	err = repo.Create(ctx, createTestInvoice("msg-1", "api", "SENDERID", "INV-2", "USD", 900.00))
	require.Error(t, err)
	assert.True(t, pkgerrors.IsDuplicate(err))
}

func TestInvoiceRepository_GetByID(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := ingest.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	invoice := createTestInvoice("msg-1", "api", "SENDERID", "INV-1", "USD", 1500.00)
	err := repo.Create(ctx, invoice)
	require.NoError(t, err)

	retrieved, err := repo.GetByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, invoice.ID, retrieved.ID)
	assert.Equal(t, invoice.MessageID, retrieved.MessageID)
	assert.Equal(t, "SENDERID", retrieved.SenderID)
	assert.Equal(t, "INV-1", retrieved.InvoiceNumber)
	require.NotNil(t, retrieved.Amount)
	assert.InDelta(t, 1500.00, *retrieved.Amount, 0.0001)
	assert.Equal(t, "USD", retrieved.Currency)
	assert.Equal(t, []string{"min_amount"}, retrieved.RulesApplied)
}

func TestInvoiceRepository_GetByID_NotFound(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := ingest.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	_, err := repo.GetByID(ctx, uuid.New().String())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestInvoiceRepository_GetByMessageID(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := ingest.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	invoice := createTestInvoice("msg-42", "broker", "SENDERID", "INV-42", "EUR", 320.50)
	err := repo.Create(ctx, invoice)
	require.NoError(t, err)

	retrieved, err := repo.GetByMessageID(ctx, "msg-42")
	require.NoError(t, err)
	assert.Equal(t, invoice.ID, retrieved.ID)
	assert.Equal(t, "broker", retrieved.Source)
}

func TestInvoiceRepository_Create_SparseMetadata(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := ingest.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	invoice := &ingest.Invoice{
		ID:           uuid.New().String(),
		MessageID:    "msg-sparse",
		Source:       "api",
		SegmentCount: 2,
	}

	err := repo.Create(ctx, invoice)
	require.NoError(t, err)

	retrieved, err := repo.GetByID(ctx, invoice.ID)
	require.NoError(t, err)
	assert.Empty(t, retrieved.SenderID)
	assert.Empty(t, retrieved.InvoiceNumber)
	assert.Nil(t, retrieved.Amount)
	assert.Empty(t, retrieved.Currency)
	assert.Equal(t, 2, retrieved.SegmentCount)
}

func TestInvoiceRepository_List(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := ingest.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	invoices := []*ingest.Invoice{
		createTestInvoice("msg-1", "api", "ACME", "INV-1", "USD", 100.00),
		createTestInvoice("msg-2", "broker", "ACME", "INV-2", "EUR", 200.00),
		createTestInvoice("msg-3", "api", "GLOBEX", "INV-3", "USD", 300.00),
	}

	for _, inv := range invoices {
		err := repo.Create(ctx, inv)
		require.NoError(t, err)
		time.Sleep(timestampDelay)
	}

	list, err := repo.List(ctx, ingest.ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 3)

	// Newest first.
	assert.Equal(t, "msg-3", list[0].MessageID)
	assert.Equal(t, "msg-1", list[2].MessageID)
}

func TestInvoiceRepository_List_Filtered(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := ingest.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, createTestInvoice("msg-1", "api", "ACME", "INV-1", "USD", 100.00)))
	require.NoError(t, repo.Create(ctx, createTestInvoice("msg-2", "broker", "ACME", "INV-2", "EUR", 200.00)))
	require.NoError(t, repo.Create(ctx, createTestInvoice("msg-3", "api", "GLOBEX", "INV-3", "USD", 300.00)))

	bySource, err := repo.List(ctx, ingest.ListFilter{Source: "api"})
	require.NoError(t, err)
	assert.Len(t, bySource, 2)

	bySender, err := repo.List(ctx, ingest.ListFilter{SenderID: "ACME"})
	require.NoError(t, err)
	assert.Len(t, bySender, 2)

	byCurrency, err := repo.List(ctx, ingest.ListFilter{Currency: "EUR"})
	require.NoError(t, err)
	require.Len(t, byCurrency, 1)
	assert.Equal(t, "msg-2", byCurrency[0].MessageID)

	combined, err := repo.List(ctx, ingest.ListFilter{Source: "api", SenderID: "ACME"})
	require.NoError(t, err)
	require.Len(t, combined, 1)
	assert.Equal(t, "msg-1", combined[0].MessageID)
}

func TestInvoiceRepository_List_Paging(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := ingest.NewRepository(infra.PostgresDB)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		inv := createTestInvoice(uuid.New().String(), "api", "ACME", uuid.New().String(), "USD", 100.00)
		require.NoError(t, repo.Create(ctx, inv))
		time.Sleep(timestampDelay)
	}

	page1, err := repo.List(ctx, ingest.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page1, 2)

	page2, err := repo.List(ctx, ingest.ListFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, page2, 2)
	assert.NotEqual(t, page1[0].ID, page2[0].ID)

	page3, err := repo.List(ctx, ingest.ListFilter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, page3, 1)
}
