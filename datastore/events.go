package datastore

import "github.com/tailored-agentic-units/datastore/observability"

// Event types emitted by FileHandler. All of them target maintainers.
const (
	EventInvalidKey        observability.EventType = "datastore.key.invalid"
	EventSerializeFailed   observability.EventType = "datastore.write.serialize_failed"
	EventWriteFailed       observability.EventType = "datastore.write.failed"
	EventReadFailed        observability.EventType = "datastore.read.failed"
	EventInvalidBlockCount observability.EventType = "datastore.read.invalid_block_count"
	EventDuplicateBlock    observability.EventType = "datastore.read.duplicate_block"
	EventMissingBlock      observability.EventType = "datastore.read.missing_block"
	EventMalformedBlock    observability.EventType = "datastore.read.malformed_block"
	EventTrailingData      observability.EventType = "datastore.read.trailing_data"
	EventPurged            observability.EventType = "datastore.read.purged"
	EventPurgeFailed       observability.EventType = "datastore.purge.failed"
	EventDeleteFailed      observability.EventType = "datastore.delete.failed"
	EventClearFailed       observability.EventType = "datastore.clear.failed"
	EventHandlerClosed     observability.EventType = "datastore.handler.closed"
	EventTaskPanic         observability.EventType = "datastore.task.panic"
)

// Diagnostic message formats.
const (
	InvalidKeyMessageFormat        = "Datastore key %q is invalid: only [A-Za-z0-9] characters are allowed"
	SerializeFailedMessage         = "Write error - Failed to serialize data for the datastore"
	WriteFailedMessageFormat       = "Write error - Failed to write data for key %q"
	ReadFailedMessageFormat        = "Read error - Failed to read file for key %q"
	InvalidBlockCountMessageFormat = "Read error - Invalid number of blocks: %d"
	DuplicateBlockMessageFormat    = "Read error - Same block appears twice in the datastore. Type: %s"
	MissingBlockMessageFormat      = "Read error - Missing block in the datastore. Type: %s"
	MalformedBlockMessageFormat    = "Read error - Malformed block in the datastore. Type: %s"
	TrailingDataMessage            = "Read error - Incomplete trailing block in the datastore"
	PurgeFailedMessageFormat       = "Purge error - Failed to delete outdated datastore file for key %q"
	DeleteFailedMessageFormat      = "Delete error - Failed to delete datastore file for key %q"
	ClearFailedMessage             = "Delete error - Failed to clear the datastore directory"
	HandlerClosedMessage           = "Datastore operation submitted after the handler was closed"
	TaskPanicMessage               = "Datastore task panicked"
)
