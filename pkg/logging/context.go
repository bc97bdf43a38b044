package logging

import (
	"context"
)

const (
	MessageIDKey   = "message_id"
	InvoiceIDKey   = "invoice_id"
	ServiceNameKey = "service_name"
)

func WithMessageID(ctx context.Context, messageID string) context.Context {
	return context.WithValue(ctx, MessageIDKey, messageID)
}

func WithInvoiceID(ctx context.Context, invoiceID string) context.Context {
	return context.WithValue(ctx, InvoiceIDKey, invoiceID)
}

func WithServiceName(ctx context.Context, serviceName string) context.Context {
	return context.WithValue(ctx, ServiceNameKey, serviceName)
}

func GetMessageID(ctx context.Context) string {
	if messageID, ok := ctx.Value(MessageIDKey).(string); ok {
		return messageID
	}
	return ""
}

func GetInvoiceID(ctx context.Context) string {
	if invoiceID, ok := ctx.Value(InvoiceIDKey).(string); ok {
		return invoiceID
	}
	return ""
}

func GetServiceName(ctx context.Context) string {
	if serviceName, ok := ctx.Value(ServiceNameKey).(string); ok {
		return serviceName
	}
	return ""
}

func GetLogFields(ctx context.Context) []interface{} {
	fields := make([]interface{}, 0, 6)

	if messageID := GetMessageID(ctx); messageID != "" {
		fields = append(fields, "message_id", messageID)
	}

	if invoiceID := GetInvoiceID(ctx); invoiceID != "" {
		fields = append(fields, "invoice_id", invoiceID)
	}

	if serviceName := GetServiceName(ctx); serviceName != "" {
		fields = append(fields, "service_name", serviceName)
	}

	return fields
}
