package domain

// ReferenceType discriminates the kinds of reference an entity history can
// hold. The type is fixed at reference creation.
type ReferenceType string

const (
	ReferencePromotion  ReferenceType = "Promotion"
	ReferenceCommit     ReferenceType = "Commit"
	ReferenceCheckpoint ReferenceType = "Checkpoint"
	ReferenceSave       ReferenceType = "Save"
	ReferenceTag        ReferenceType = "Tag"
	ReferenceExternal   ReferenceType = "External"
	ReferenceRebase     ReferenceType = "Rebase"
)

// ReferenceTypes lists every valid reference type.
var ReferenceTypes = []ReferenceType{
	ReferencePromotion,
	ReferenceCommit,
	ReferenceCheckpoint,
	ReferenceSave,
	ReferenceTag,
	ReferenceExternal,
	ReferenceRebase,
}

// ParseReferenceType validates a wire string against the closed set.
func ParseReferenceType(s string) (ReferenceType, *Error) {
	for _, rt := range ReferenceTypes {
		if string(rt) == s {
			return rt, nil
		}
	}
	return "", NewErrorf(KindValidation, CodeInvalidReferenceType, "type %q", s)
}
