package profiles

import (
	"encoding/json"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
)

// Optional is a tri-state field used to distinguish:
// - unspecified (omitted): leave the stored value unchanged
// - specified as null: overwrite with null
// - specified with a value
type Optional[T any] struct {
	specified bool
	isNull    bool
	value     T
}

func Unspecified[T any]() Optional[T] { return Optional[T]{} }
func Null[T any]() Optional[T]        { return Optional[T]{specified: true, isNull: true} }
func Some[T any](v T) Optional[T]     { return Optional[T]{specified: true, value: v} }

func (o Optional[T]) IsSpecified() bool { return o.specified }
func (o Optional[T]) IsNull() bool      { return o.specified && o.isNull }
func (o Optional[T]) Value() T          { return o.value }

// ShowFlagsPatch carries one optional value per gated field group.
type ShowFlagsPatch struct {
	Name           Optional[bool]
	Email          Optional[bool]
	Phone          Optional[bool]
	LinkedIn       Optional[bool]
	Portfolio      Optional[bool]
	WorkExperience Optional[bool]
	Education      Optional[bool]
	Languages      Optional[bool]
	Skills         Optional[bool]
}

func (p ShowFlagsPatch) byGroup() map[domain.FieldGroup]Optional[bool] {
	return map[domain.FieldGroup]Optional[bool]{
		domain.FieldName:           p.Name,
		domain.FieldEmail:          p.Email,
		domain.FieldPhone:          p.Phone,
		domain.FieldLinkedIn:       p.LinkedIn,
		domain.FieldPortfolio:      p.Portfolio,
		domain.FieldWorkExperience: p.WorkExperience,
		domain.FieldEducation:      p.Education,
		domain.FieldLanguages:      p.Languages,
		domain.FieldSkills:         p.Skills,
	}
}

// CreateProfileInput is the writable subset of a profile.
//
// JSON-shaped values (phone, collections, skills, identity lists) are passed as
// raw JSON because they originate from weakly-typed clients; nil means absent.
type CreateProfileInput struct {
	ID                  domain.UserID
	FullName            string
	Email               string
	Phone               json.RawMessage
	LinkedIn            *string
	Portfolio           *string
	ProfessionalSummary string
	Availability        *string

	WorkExperience json.RawMessage
	Education      json.RawMessage
	Languages      json.RawMessage
	Skills         json.RawMessage

	// AccessLevel defaults to public; show-flags default to true.
	AccessLevel    *string
	Show           ShowFlagsPatch
	PermittedUsers json.RawMessage
	AccessRequests json.RawMessage
}

// UpdateProfileInput is a partial profile. Only specified fields are written.
type UpdateProfileInput struct {
	FullName            Optional[string] // cannot be null
	Email               Optional[string] // cannot be null
	Phone               Optional[json.RawMessage]
	LinkedIn            Optional[string]
	Portfolio           Optional[string]
	ProfessionalSummary Optional[string] // cannot be null
	Availability        Optional[string]

	WorkExperience Optional[json.RawMessage]
	Education      Optional[json.RawMessage]
	Languages      Optional[json.RawMessage]
	Skills         Optional[json.RawMessage]

	AccessLevel    Optional[string] // cannot be null
	Show           ShowFlagsPatch
	PermittedUsers Optional[json.RawMessage]
	AccessRequests Optional[json.RawMessage]
}

// UpdateSettingsInput touches only the access-control block.
// Visibility is the external name of the access level.
type UpdateSettingsInput struct {
	Visibility     Optional[string]
	Show           ShowFlagsPatch
	PermittedUsers Optional[json.RawMessage]
	AccessRequests Optional[json.RawMessage]
}
