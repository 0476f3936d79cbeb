package eventbus

import (
	"encoding/json"
	"fmt"

	"github.com/TorratDev/Grace/internal/domain"
	"github.com/TorratDev/Grace/pkg/id"
)

// Event tags carried on the wire. Stable case names; consumers switch on
// these to decode the payload.
const (
	TagOwnerEvent            = "OwnerEvent"
	TagOrganizationEvent     = "OrganizationEvent"
	TagRepositoryEvent       = "RepositoryEvent"
	TagBranchEvent           = "BranchEvent"
	TagReferenceEvent        = "ReferenceEvent"
	TagDirectoryVersionEvent = "DirectoryVersionEvent"
)

// Envelope is the wire shape of a published domain event: a discriminator
// tag, the serialized event variant, and the full metadata record.
type Envelope struct {
	Tag      string               `json:"tag"`
	EventID  string               `json:"eventId"`
	Type     string               `json:"type"`
	Event    json.RawMessage      `json:"event"`
	Metadata domain.EventMetadata `json:"metadata"`
}

// NewEnvelope serializes event into an envelope. eventType is the variant
// name inside the tagged union (for example "BranchCreated").
func NewEnvelope(tag, eventType string, event interface{}, md domain.EventMetadata) (Envelope, error) {
	raw, err := json.Marshal(event)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s event: %w", tag, err)
	}
	return Envelope{Tag: tag, Type: eventType, Event: raw, Metadata: md}, nil
}

// stamp assigns the sortable event id at publish time.
func (e *Envelope) stamp(g *id.Source) {
	if e.EventID == "" {
		e.EventID = g.Next().String()
	}
}
