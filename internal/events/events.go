// Package events is the transactional outbox: services record document
// lifecycle events in the same transaction as the state change, and
// downstream consumers drain the table asynchronously.
package events

// Document lifecycle event types.
const (
	EventInvoiceCreated    = "invoice.created"
	EventInvoiceStatusSet  = "invoice.status_changed"
	EventInvoiceDeleted    = "invoice.deleted"
	EventEstimateCreated   = "estimate.created"
	EventEstimateStatusSet = "estimate.status_changed"
	EventEstimateConverted = "estimate.converted"
	EventOrderCreated      = "order.created"
	EventOrderStatusSet    = "order.status_changed"
)

// DocumentPayload is the common payload for document lifecycle events.
type DocumentPayload struct {
	DocumentID string `json:"document_id"`
	Number     string `json:"number"`
	CustomerID string `json:"customer_id,omitempty"`
	FromStatus string `json:"from_status,omitempty"`
	ToStatus   string `json:"to_status,omitempty"`
	// SourceID links a converted invoice back to its estimate.
	SourceID string `json:"source_id,omitempty"`
}

// ToMap converts the payload into an outbox-friendly map, dropping empty
// optional fields.
func (p DocumentPayload) ToMap() map[string]any {
	payload := map[string]any{
		"document_id": p.DocumentID,
		"number":      p.Number,
	}
	if p.CustomerID != "" {
		payload["customer_id"] = p.CustomerID
	}
	if p.FromStatus != "" {
		payload["from_status"] = p.FromStatus
	}
	if p.ToStatus != "" {
		payload["to_status"] = p.ToStatus
	}
	if p.SourceID != "" {
		payload["source_id"] = p.SourceID
	}
	return payload
}
