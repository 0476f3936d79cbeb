package reminders

import (
	"encoding/json"
	"fmt"
)

// PhysicalDeletionReminder is the canonical reminder name used by the
// deletion scheduler across entity kinds.
const PhysicalDeletionReminder = "physical-deletion"

// DeletionPayload is the canonical, versioned physical-deletion reminder
// payload. Both the scheduling site and the decode site use this one
// schema; Version lets in-flight reminders survive field additions across
// upgrades.
type DeletionPayload struct {
	Version        int    `json:"version"`
	OwnerID        string `json:"ownerId,omitempty"`
	OrganizationID string `json:"organizationId,omitempty"`
	RepositoryID   string `json:"repositoryId,omitempty"`
	BranchID       string `json:"branchId,omitempty"`
	DeleteReason   string `json:"deleteReason"`
	CorrelationID  string `json:"correlationId"`
}

// DeletionPayloadVersion is the current schema version.
const DeletionPayloadVersion = 1

// Encode serializes the payload.
func (p DeletionPayload) Encode() ([]byte, error) {
	p.Version = DeletionPayloadVersion
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encode deletion payload: %w", err)
	}
	return b, nil
}

// DecodeDeletionPayload parses a payload, accepting any version at or
// below the current one.
func DecodeDeletionPayload(b []byte) (DeletionPayload, error) {
	var p DeletionPayload
	if err := json.Unmarshal(b, &p); err != nil {
		return DeletionPayload{}, fmt.Errorf("decode deletion payload: %w", err)
	}
	if p.Version <= 0 || p.Version > DeletionPayloadVersion {
		return DeletionPayload{}, fmt.Errorf("unsupported deletion payload version %d", p.Version)
	}
	return p, nil
}
