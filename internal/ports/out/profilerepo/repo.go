package profilerepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
)

// Profile is the persistence shape used by the profile repository.
//
// JSON-shaped columns (phone, collections, skills) are stored as raw JSON and
// are never trusted on read; the application layer normalizes them. Show-flags
// are pointers so that legacy rows without a value can be told apart from false.
type Profile struct {
	ID domain.UserID

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

	AccessLevel        string
	ShowName           *bool
	ShowEmail          *bool
	ShowPhone          *bool
	ShowLinkedIn       *bool
	ShowPortfolio      *bool
	ShowWorkExperience *bool
	ShowEducation      *bool
	ShowLanguages      *bool
	ShowSkills         *bool
	PermittedUsers     []string
	AccessRequests     []string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UpdateFunc mutates a profile inside Repository.Update. Returning an error
// aborts the update and the error is returned unchanged.
type UpdateFunc func(p *Profile) error

// Repository provides access to persisted profiles.
//
// Result ordering expectations:
// - List returns profiles ordered by CreatedAt ascending, then ID, to keep behavior deterministic.
//
// Update is an atomic read-modify-write of a single record: concurrent updates of
// the same profile are serialized, and ID and CreatedAt cannot be changed by fn.
type Repository interface {
	Create(ctx context.Context, p Profile) error
	Get(ctx context.Context, id domain.UserID) (Profile, error)
	List(ctx context.Context) ([]Profile, error)
	Update(ctx context.Context, id domain.UserID, fn UpdateFunc) (Profile, error)
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	out := p
	out.Phone = cloneRaw(p.Phone)
	out.LinkedIn = cloneStringPtr(p.LinkedIn)
	out.Portfolio = cloneStringPtr(p.Portfolio)
	out.Availability = cloneStringPtr(p.Availability)
	out.WorkExperience = cloneRaw(p.WorkExperience)
	out.Education = cloneRaw(p.Education)
	out.Languages = cloneRaw(p.Languages)
	out.Skills = cloneRaw(p.Skills)
	out.ShowName = cloneBoolPtr(p.ShowName)
	out.ShowEmail = cloneBoolPtr(p.ShowEmail)
	out.ShowPhone = cloneBoolPtr(p.ShowPhone)
	out.ShowLinkedIn = cloneBoolPtr(p.ShowLinkedIn)
	out.ShowPortfolio = cloneBoolPtr(p.ShowPortfolio)
	out.ShowWorkExperience = cloneBoolPtr(p.ShowWorkExperience)
	out.ShowEducation = cloneBoolPtr(p.ShowEducation)
	out.ShowLanguages = cloneBoolPtr(p.ShowLanguages)
	out.ShowSkills = cloneBoolPtr(p.ShowSkills)
	out.PermittedUsers = cloneStrings(p.PermittedUsers)
	out.AccessRequests = cloneStrings(p.AccessRequests)
	return out
}

func cloneRaw(b json.RawMessage) json.RawMessage {
	if b == nil {
		return nil
	}
	out := make(json.RawMessage, len(b))
	copy(out, b)
	return out
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneBoolPtr(p *bool) *bool {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s))
	copy(out, s)
	return out
}
