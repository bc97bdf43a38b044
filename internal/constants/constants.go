package constants

import "time"

const (
	KafkaBatchTimeout = 10 * time.Millisecond
	KafkaWriteTimeout = 10 * time.Second
)

const (
	CacheKeyPrefixInterchange = "interchange:"
)

const (
	DefaultInboundTopic = "edi_inbound"
	DefaultInvoiceTopic = "invoice_ingested"
)

const (
	DefaultMongoDBName = "ediaudit"
	ArchiveCollection  = "raw_messages"
)

const (
	ShutdownTimeout = 5 * time.Second
)

const (
	DefaultLimit = 100
	MaxLimit     = 1000
)

const (
	DefaultDedupTTLSeconds = 7 * 24 * 3600
)

const (
	FallbackAllow = "allow"
	FallbackDeny  = "deny"
)

const (
	IngestSourceAPI    = "api"
	IngestSourceBroker = "broker"
)
