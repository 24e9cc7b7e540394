package domain

import "time"

// Availability is a professional's current openness to new work.
type Availability string

const (
	AvailabilityAvailable   Availability = "available"
	AvailabilityOpen        Availability = "open"
	AvailabilityUnavailable Availability = "unavailable"
)

// ParseAvailability returns the Availability named by s.
func ParseAvailability(s string) (Availability, bool) {
	switch a := Availability(s); a {
	case AvailabilityAvailable, AvailabilityOpen, AvailabilityUnavailable:
		return a, true
	default:
		return "", false
	}
}

// FluencyLevel grades proficiency in a spoken language.
type FluencyLevel string

const (
	FluencyBeginner     FluencyLevel = "Beginner"
	FluencyIntermediate FluencyLevel = "Intermediate"
	FluencyAdvanced     FluencyLevel = "Advanced"
	FluencyFluent       FluencyLevel = "Fluent"
	FluencyNative       FluencyLevel = "Native"
)

func ParseFluencyLevel(s string) (FluencyLevel, bool) {
	switch f := FluencyLevel(s); f {
	case FluencyBeginner, FluencyIntermediate, FluencyAdvanced, FluencyFluent, FluencyNative:
		return f, true
	default:
		return "", false
	}
}

type WorkExperience struct {
	JobTitle         string `json:"jobTitle"`
	CompanyName      string `json:"companyName"`
	Location         string `json:"location"`
	DateFrom         string `json:"dateFrom"`
	DateTo           string `json:"dateTo"`
	Responsibilities string `json:"responsibilities"`
}

type Education struct {
	SchoolName  string `json:"schoolName"`
	Degree      string `json:"degree"`
	DateFrom    string `json:"dateFrom"`
	DateTo      string `json:"dateTo"`
	Description string `json:"description"`
}

type Language struct {
	Language     string       `json:"language"`
	FluencyLevel FluencyLevel `json:"fluencyLevel"`
}

// Skill is a single entry of a SkillCategory. A nil Skill is a placeholder
// kept so that list positions survive round-trips.
type Skill struct {
	Skill *string `json:"skill"`
}

// SkillCategory groups skills under a non-empty title.
type SkillCategory struct {
	Title  string  `json:"title"`
	Skills []Skill `json:"skills"`
}

// Profile is the domain representation of a resume-style profile.
// ID is the owner's identity.
type Profile struct {
	ID UserID

	FullName            string
	Email               string
	Phone               *Phone
	LinkedIn            *string
	Portfolio           *string
	ProfessionalSummary string
	Availability        *Availability

	WorkExperience []WorkExperience
	Education      []Education
	Languages      []Language
	Skills         []SkillCategory

	Access AccessControl

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ProfileSettings is the access-control projection of a profile.
// Visibility is the external name of the access level.
type ProfileSettings struct {
	ID             UserID
	Visibility     AccessLevel
	Show           ShowFlags
	PermittedUsers []UserID
	AccessRequests []UserID
	UpdatedAt      time.Time
}

// Settings returns the access-control projection of p.
func (p Profile) Settings() ProfileSettings {
	return ProfileSettings{
		ID:             p.ID,
		Visibility:     p.Access.Level,
		Show:           p.Access.Show,
		PermittedUsers: cloneUserIDs(p.Access.PermittedUsers),
		AccessRequests: cloneUserIDs(p.Access.AccessRequests),
		UpdatedAt:      p.UpdatedAt,
	}
}

// ProfileView is a profile together with the field groups a particular viewer may see.
// Owner is set for the unfiltered view returned to the profile's own identity.
type ProfileView struct {
	Profile Profile
	Fields  FieldSet
	Owner   bool
}

// Has reports whether field group g is disclosed by the view.
func (v ProfileView) Has(g FieldGroup) bool {
	return v.Fields.Has(g)
}

// OwnerView returns the unfiltered projection of p.
func OwnerView(p Profile) ProfileView {
	return ProfileView{Profile: p, Fields: AllFields(), Owner: true}
}

// ViewerView returns the projection of p that viewer is allowed to see.
func ViewerView(p Profile, viewer UserID) ProfileView {
	return ProfileView{Profile: p, Fields: VisibleFields(p, viewer)}
}

func cloneUserIDs(ids []UserID) []UserID {
	out := make([]UserID, len(ids))
	copy(out, ids)
	return out
}
