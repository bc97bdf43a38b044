package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ediaudit/internal/archive"
	pkgerrors "ediaudit/pkg/errors"
	"ediaudit/pkg/migrations"
)

func setupArchiveRepo(t *testing.T, infra *TestInfra) archive.Repository {
	t.Helper()

	err := migrations.EnsureArchiveCollection(context.Background(), infra.MongoDB)
	require.NoError(t, err)

	return archive.NewRepository(infra.MongoDB)
}

func createTestRawMessage(messageID, invoiceID, source string) archive.RawMessage {
	return archive.RawMessage{
		MessageID:  messageID,
		InvoiceID:  invoiceID,
		Source:     source,
		Raw:        rawInvoice("SENDERID", "000000001", "INV-1", "1500.00", "USD"),
		ReceivedAt: time.Now().UTC(),
	}
}

func TestArchiveRepository_Store(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)
	repo := setupArchiveRepo(t, infra)
	ctx := context.Background()

	msg := createTestRawMessage("msg-1", "inv-1", "api")

	err := repo.Store(ctx, msg)
	require.NoError(t, err)

	stored, err := repo.GetByMessageID(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, msg.Raw, stored.Raw)
	assert.Equal(t, "inv-1", stored.InvoiceID)
	assert.False(t, stored.ArchivedAt.IsZero())
}

func TestArchiveRepository_Store_DuplicateMessageID(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)
	repo := setupArchiveRepo(t, infra)
	ctx := context.Background()

	err := repo.Store(ctx, createTestRawMessage("msg-1", "inv-1", "api"))
	require.NoError(t, err)

	// Redelivery is tolerated, the first copy stays.
	err = repo.Store(ctx, createTestRawMessage("msg-1", "inv-other", "broker"))
	require.NoError(t, err)

	stored, err := repo.GetByMessageID(ctx, "msg-1")
	require.NoError(t, err)
	assert.Equal(t, "inv-1", stored.InvoiceID)
	assert.Equal(t, "api", stored.Source)
}

func TestArchiveRepository_GetByInvoiceID(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)
	repo := setupArchiveRepo(t, infra)
	ctx := context.Background()

	err := repo.Store(ctx, createTestRawMessage("msg-1", "inv-1", "api"))
	require.NoError(t, err)

	stored, err := repo.GetByInvoiceID(ctx, "inv-1")
	require.NoError(t, err)
	assert.Equal(t, "msg-1", stored.MessageID)
}

func TestArchiveRepository_GetByMessageID_NotFound(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)
	repo := setupArchiveRepo(t, infra)
	ctx := context.Background()

	_, err := repo.GetByMessageID(ctx, "missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestArchiveRepository_ListBySource(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, true, false)
	repo := setupArchiveRepo(t, infra)
	ctx := context.Background()

	require.NoError(t, repo.Store(ctx, createTestRawMessage("msg-1", "inv-1", "api")))
	require.NoError(t, repo.Store(ctx, createTestRawMessage("msg-2", "inv-2", "api")))
	require.NoError(t, repo.Store(ctx, createTestRawMessage("msg-3", "inv-3", "broker")))

	list, err := repo.ListBySource(ctx, "api", 10)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = repo.ListBySource(ctx, "broker", 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "msg-3", list[0].MessageID)
}
