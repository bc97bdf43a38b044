package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ediaudit/internal/dedup"
)

func testInvoiceFields(senderID, controlNumber, invoiceNumber string) map[string]interface{} {
	return map[string]interface{}{
		"sender_id":      senderID,
		"control_number": controlNumber,
		"invoice_number": invoiceNumber,
	}
}

func TestDedupService_Check_Unique(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)

	ctx := context.Background()
	log := createTestLogger()

	repo := dedup.NewRepository(infra.RedisClient)
	cfg := createTestDedupConfig()
	svc := dedup.NewService(repo, cfg, log)

	isUnique, err := svc.Check(ctx, "msg-1", testInvoiceFields("SENDERID", "000000001", "INV-1"))
	require.NoError(t, err)
	assert.True(t, isUnique)
}

func TestDedupService_Check_Duplicate(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)

	ctx := context.Background()
	log := createTestLogger()

	repo := dedup.NewRepository(infra.RedisClient)
	cfg := createTestDedupConfig()
	svc := dedup.NewService(repo, cfg, log)

	fields := testInvoiceFields("SENDERID", "000000001", "INV-1")

	isUnique, err := svc.Check(ctx, "msg-1", fields)
	require.NoError(t, err)
	assert.True(t, isUnique)

	isUnique, err = svc.Check(ctx, "msg-2", fields)
	require.NoError(t, err)
	assert.False(t, isUnique)
}

func TestDedupService_Check_DifferentInterchanges(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)

	ctx := context.Background()
	log := createTestLogger()

	repo := dedup.NewRepository(infra.RedisClient)
	cfg := createTestDedupConfig()
	svc := dedup.NewService(repo, cfg, log)

	isUnique, err := svc.Check(ctx, "msg-1", testInvoiceFields("SENDERID", "000000001", "INV-1"))
	require.NoError(t, err)
	assert.True(t, isUnique)

	isUnique, err = svc.Check(ctx, "msg-2", testInvoiceFields("SENDERID", "000000002", "INV-2"))
	require.NoError(t, err)
	assert.True(t, isUnique)
}

func TestDedupService_Check_CustomFields(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)

	ctx := context.Background()
	log := createTestLogger()

	repo := dedup.NewRepository(infra.RedisClient)
	cfg := createTestDedupConfigWithFields([]string{"invoice_number"})
	svc := dedup.NewService(repo, cfg, log)

	isUnique, err := svc.Check(ctx, "msg-1", testInvoiceFields("SENDERID", "000000001", "INV-1"))
	require.NoError(t, err)
	assert.True(t, isUnique)

	// Same invoice number from a different interchange still collides.
	isUnique, err = svc.Check(ctx, "msg-2", testInvoiceFields("OTHER", "000000099", "INV-1"))
	require.NoError(t, err)
	assert.False(t, isUnique)
}

func TestDedupService_Check_SHA256Hash(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)

	ctx := context.Background()
	log := createTestLogger()

	repo := dedup.NewRepository(infra.RedisClient)
	cfg := createTestDedupConfig()
	cfg.HashAlgorithm = "sha256"
	svc := dedup.NewService(repo, cfg, log)

	fields := testInvoiceFields("SENDERID", "000000001", "INV-1")

	isUnique, err := svc.Check(ctx, "msg-1", fields)
	require.NoError(t, err)
	assert.True(t, isUnique)

	isUnique, err = svc.Check(ctx, "msg-2", fields)
	require.NoError(t, err)
	assert.False(t, isUnique)
}

func TestDedupService_Check_FallbackAllow_OnRedisError(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)

	ctx := context.Background()
	log := createTestLogger()

	infra.RedisClient.Close()

	repo := dedup.NewRepository(infra.RedisClient)
	cfg := createTestDedupConfig()
	cfg.OnRedisError = "allow"
	svc := dedup.NewService(repo, cfg, log)

	isUnique, err := svc.Check(ctx, "msg-1", testInvoiceFields("SENDERID", "000000001", "INV-1"))
	require.NoError(t, err, "Should not return error when fallback is 'allow'")
	assert.True(t, isUnique, "Message should be allowed when Redis fails and fallback is 'allow'")
}

func TestDedupService_Check_FallbackDeny_OnRedisError(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)

	ctx := context.Background()
	log := createTestLogger()

	infra.RedisClient.Close()

	repo := dedup.NewRepository(infra.RedisClient)
	cfg := createTestDedupConfig()
	cfg.OnRedisError = "deny"
	svc := dedup.NewService(repo, cfg, log)

	isUnique, err := svc.Check(ctx, "msg-1", testInvoiceFields("SENDERID", "000000001", "INV-1"))
	assert.Error(t, err, "Should return error when fallback is 'deny'")
	assert.False(t, isUnique, "Message should be denied when Redis fails and fallback is 'deny'")
	assert.Contains(t, err.Error(), "redis error")
}

func TestDedupService_UpdateFieldsToHash(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)

	log := createTestLogger()

	repo := dedup.NewRepository(infra.RedisClient)
	cfg := createTestDedupConfig()
	svc := dedup.NewService(repo, cfg, log)

	err := svc.UpdateFieldsToHash([]string{"invoice_number", "invoice_date"})
	require.NoError(t, err)

	fields := svc.GetFieldsToHash()
	assert.Equal(t, []string{"invoice_number", "invoice_date"}, fields)
}

func TestDedupService_UpdateFieldsToHash_EmptyList(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)

	log := createTestLogger()

	repo := dedup.NewRepository(infra.RedisClient)
	cfg := createTestDedupConfig()
	svc := dedup.NewService(repo, cfg, log)

	err := svc.UpdateFieldsToHash([]string{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "fields list cannot be empty")
}

func TestDedupService_Check_ContextCancellation(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)

	log := createTestLogger()

	repo := dedup.NewRepository(infra.RedisClient)
	cfg := createTestDedupConfig()
	svc := dedup.NewService(repo, cfg, log)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	isUnique, err := svc.Check(ctx, "msg-1", testInvoiceFields("SENDERID", "000000001", "INV-1"))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context canceled")
	assert.False(t, isUnique)
}

func TestDedupService_Check_TTLExpiry(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, false, false, true)

	ctx := context.Background()
	log := createTestLogger()

	repo := dedup.NewRepository(infra.RedisClient)
	cfg := createTestDedupConfig()
	cfg.TTLSeconds = 1
	svc := dedup.NewService(repo, cfg, log)

	fields := testInvoiceFields("SENDERID", "000000001", "INV-1")

	isUnique, err := svc.Check(ctx, "msg-1", fields)
	require.NoError(t, err)
	assert.True(t, isUnique)

	time.Sleep(1100 * time.Millisecond)

	isUnique, err = svc.Check(ctx, "msg-2", fields)
	require.NoError(t, err)
	assert.True(t, isUnique)
}
