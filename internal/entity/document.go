package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/contract-extractor/constants"
)

// Document is an uploaded contract file; its bytes live in a BlobStore under ContentRef.
type Document struct {
	ID         uuid.UUID        `json:"id"`
	TenantID   string           `json:"tenant_id"`
	Title      string           `json:"title,omitempty"`
	Filename   string           `json:"filename"`
	MimeType   string           `json:"mime_type"`
	Format     constants.Format `json:"format"`
	ContentRef string           `json:"content_ref"`
	SizeBytes  int64            `json:"size_bytes"`
	SHA256     string           `json:"sha256,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// Contract is a pre-existing contract record that analyses may be matched against.
type Contract struct {
	ID               uuid.UUID `json:"id"`
	TenantID         string    `json:"tenant_id"`
	CounterpartyName string    `json:"counterparty_name"`
	Title            string    `json:"title,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}
