package model

// DeclarationStatus is the review state of a declaration answer
type DeclarationStatus string

const (
	StatusCreated           DeclarationStatus = "CREATED"
	StatusSentForApproval   DeclarationStatus = "SENT_FOR_APPROVAL"
	StatusActualConflict    DeclarationStatus = "ACTUAL_CONFLICT"
	StatusPerceivedConflict DeclarationStatus = "PERCEIVED_CONFLICT"
	StatusNoConflict        DeclarationStatus = "NO_CONFLICT"
	StatusApproved          DeclarationStatus = "APPROVED"
)

var transitions = map[DeclarationStatus][]DeclarationStatus{
	StatusCreated: {StatusSentForApproval},
	StatusSentForApproval: {
		StatusActualConflict,
		StatusPerceivedConflict,
		StatusNoConflict,
		StatusCreated,
	},
	StatusActualConflict:    {StatusApproved},
	StatusPerceivedConflict: {StatusApproved},
	StatusNoConflict:        {StatusApproved},
}

// Valid reports whether s is a known status
func (s DeclarationStatus) Valid() bool {
	switch s {
	case StatusCreated, StatusSentForApproval, StatusActualConflict,
		StatusPerceivedConflict, StatusNoConflict, StatusApproved:
		return true
	}
	return false
}

// Editable is true only while the declarant still owns the document
func (s DeclarationStatus) Editable() bool {
	return s == StatusCreated
}

// IsConflict reports whether the reviewer found a conflict of some kind
func (s DeclarationStatus) IsConflict() bool {
	return s == StatusActualConflict || s == StatusPerceivedConflict
}

// CanTransition checks the review workflow
func CanTransition(from, to DeclarationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
