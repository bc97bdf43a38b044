package integration

import (
	"fmt"
	"time"

	"ediaudit/internal/acceptance"
	"ediaudit/internal/config"
	"ediaudit/internal/constants"
	"ediaudit/internal/logger"
	"ediaudit/pkg/models"
)

const (
	containerStartupTimeout = 60
	timestampDelay          = 10 * time.Millisecond
)

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestAcceptanceConfig() config.AcceptanceConfig {
	return config.AcceptanceConfig{
		Fallback: config.FallbackConfig{
			OnError: constants.FallbackDeny,
		},
		Reload: config.ReloadConfig{
			IntervalSeconds: 60,
		},
	}
}

func createTestDedupConfig() config.DedupConfig {
	return createTestDedupConfigWithFields([]string{"sender_id", "control_number", "invoice_number"})
}

func createTestDedupConfigWithFields(fields []string) config.DedupConfig {
	return config.DedupConfig{
		HashAlgorithm: "md5",
		TTLSeconds:    300,
		OnRedisError:  constants.FallbackAllow,
		FieldsToHash:  fields,
	}
}

func createTestAcceptanceRule(name, expression string, priority int, enabled bool) *acceptance.Rule {
	return &acceptance.Rule{
		Name:       name,
		Expression: expression,
		Priority:   priority,
		Enabled:    enabled,
	}
}

// rawInvoice builds a minimal 210 interchange with the given identifiers.
// The amount is in implied cents when it carries no decimal point.
func rawInvoice(senderID, controlNumber, invoiceNumber, amount, currency string) string {
	return fmt.Sprintf(
		"ISA*00*          *00*          *ZZ*%-15s*ZZ*RECEIVERID     *231205*1000*U*00401*%s*0*P*>~"+
			"GS*IN*%s*RECEIVERID*20231205*1000*1*X*004010~"+
			"ST*210*0001~"+
			"B3*B*%s*123456789*PP*20231205*%s*%s~"+
			"N1*CA*MAERSK LINE*25*123456~"+
			"SE*6*0001~"+
			"GE*1*1~"+
			"IEA*1*%s~",
		senderID, controlNumber, senderID, invoiceNumber, amount, currency, controlNumber,
	)
}

func createTestEnvelope(id, source, raw string) models.InboundEnvelope {
	return models.InboundEnvelope{
		ID:        id,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Raw:       raw,
		Metadata:  models.Metadata{},
	}
}
