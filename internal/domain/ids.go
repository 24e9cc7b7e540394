package domain

// UserID is the authenticated identity extracted from bearer token claims (typically "sub").
// We model it as an opaque identifier: its format is controlled by the IdP.
//
// A profile is keyed by its owner's UserID, so the same type identifies both.
type UserID string
