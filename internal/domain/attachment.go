package domain

import "time"

// TicketAttachment stores metadata for a file bound to a ticket or a
// specific response. The storage path is opaque to callers; only the
// attachment store gateway resolves it to bytes.
type TicketAttachment struct {
	ID          int64
	TicketID    int64
	ResponseID  *int64
	FileName    string
	StoragePath string
	StorageTier string
	MimeType    string
	SizeBytes   int64
	UploadedBy  int64
	CreatedAt   time.Time
}
