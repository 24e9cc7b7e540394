package httpapi

import (
	"encoding/json"
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/app/profiles"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
)

// ErrorResponse is the error envelope shared by every endpoint.
type ErrorResponse struct {
	Error struct {
		Code      string                            `json:"code"`
		Message   string                            `json:"message"`
		Details   nullable.Nullable[map[string]any] `json:"details,omitempty"`
		RequestId nullable.Nullable[string]         `json:"requestId,omitempty"`
	} `json:"error"`
}

// ShowFlagsRequest carries the optional show-flag fields of a write request.
type ShowFlagsRequest struct {
	ShowName           nullable.Nullable[bool] `json:"showName,omitempty"`
	ShowEmail          nullable.Nullable[bool] `json:"showEmail,omitempty"`
	ShowPhone          nullable.Nullable[bool] `json:"showPhone,omitempty"`
	ShowLinkedIn       nullable.Nullable[bool] `json:"showLinkedIn,omitempty"`
	ShowPortfolio      nullable.Nullable[bool] `json:"showPortfolio,omitempty"`
	ShowWorkExperience nullable.Nullable[bool] `json:"showWorkExperience,omitempty"`
	ShowEducation      nullable.Nullable[bool] `json:"showEducation,omitempty"`
	ShowLanguages      nullable.Nullable[bool] `json:"showLanguages,omitempty"`
	ShowSkills         nullable.Nullable[bool] `json:"showSkills,omitempty"`
}

type CreateProfileRequest struct {
	FullName            string              `json:"fullName"`
	Email               openapi_types.Email `json:"email"`
	Phone               json.RawMessage     `json:"phone,omitempty"`
	LinkedIn            *string             `json:"linkedin,omitempty"`
	Portfolio           *string             `json:"portfolio,omitempty"`
	ProfessionalSummary string              `json:"professionalSummary"`
	Availability        *string             `json:"availability,omitempty"`
	WorkExperience      json.RawMessage     `json:"workExperience,omitempty"`
	Education           json.RawMessage     `json:"education,omitempty"`
	Languages           json.RawMessage     `json:"languages,omitempty"`
	Skills              json.RawMessage     `json:"skills,omitempty"`
	AccessLevel         *string             `json:"accessLevel,omitempty"`
	ShowFlagsRequest
	PermittedUsers json.RawMessage `json:"permittedUsers,omitempty"`
	AccessRequests json.RawMessage `json:"accessRequests,omitempty"`
}

type UpdateProfileRequest struct {
	FullName            nullable.Nullable[string]              `json:"fullName,omitempty"`
	Email               nullable.Nullable[openapi_types.Email] `json:"email,omitempty"`
	Phone               nullable.Nullable[json.RawMessage]     `json:"phone,omitempty"`
	LinkedIn            nullable.Nullable[string]              `json:"linkedin,omitempty"`
	Portfolio           nullable.Nullable[string]              `json:"portfolio,omitempty"`
	ProfessionalSummary nullable.Nullable[string]              `json:"professionalSummary,omitempty"`
	Availability        nullable.Nullable[string]              `json:"availability,omitempty"`
	WorkExperience      nullable.Nullable[json.RawMessage]     `json:"workExperience,omitempty"`
	Education           nullable.Nullable[json.RawMessage]     `json:"education,omitempty"`
	Languages           nullable.Nullable[json.RawMessage]     `json:"languages,omitempty"`
	Skills              nullable.Nullable[json.RawMessage]     `json:"skills,omitempty"`
	AccessLevel         nullable.Nullable[string]              `json:"accessLevel,omitempty"`
	ShowFlagsRequest
	PermittedUsers nullable.Nullable[json.RawMessage] `json:"permittedUsers,omitempty"`
	AccessRequests nullable.Nullable[json.RawMessage] `json:"accessRequests,omitempty"`
}

type UpdateSettingsRequest struct {
	Visibility nullable.Nullable[string] `json:"visibility,omitempty"`
	ShowFlagsRequest
	PermittedUsers nullable.Nullable[json.RawMessage] `json:"permittedUsers,omitempty"`
	AccessRequests nullable.Nullable[json.RawMessage] `json:"accessRequests,omitempty"`
}

type DecideAccessRequest struct {
	Grant *bool `json:"grant"`
}

type CreateUserRequest struct {
	Email openapi_types.Email `json:"email"`
	Name  *string             `json:"name,omitempty"`
}

type LookupUsersRequest struct {
	UserIds []string `json:"userIds"`
}

// ProfileResponse is a projected profile. Field groups the viewer may not see
// are omitted; disclosed optional fields are present and may be null.
type ProfileResponse struct {
	ID          string `json:"id"`
	AccessLevel string `json:"accessLevel"`

	FullName            *string                         `json:"fullName,omitempty"`
	Email               *string                         `json:"email,omitempty"`
	Phone               nullable.Nullable[domain.Phone] `json:"phone,omitempty"`
	LinkedIn            nullable.Nullable[string]       `json:"linkedin,omitempty"`
	Portfolio           nullable.Nullable[string]       `json:"portfolio,omitempty"`
	ProfessionalSummary *string                         `json:"professionalSummary,omitempty"`
	Availability        nullable.Nullable[string]       `json:"availability,omitempty"`
	WorkExperience      *[]domain.WorkExperience        `json:"workExperience,omitempty"`
	Education           *[]domain.Education             `json:"education,omitempty"`
	Languages           *[]domain.Language              `json:"languages,omitempty"`
	Skills              *[]domain.SkillCategory         `json:"skills,omitempty"`
	Show                *ShowFlagsResponse              `json:"show,omitempty"`

	PermittedUsers []string  `json:"permittedUsers"`
	AccessRequests []string  `json:"accessRequests"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type ShowFlagsResponse struct {
	ShowName           bool `json:"showName"`
	ShowEmail          bool `json:"showEmail"`
	ShowPhone          bool `json:"showPhone"`
	ShowLinkedIn       bool `json:"showLinkedIn"`
	ShowPortfolio      bool `json:"showPortfolio"`
	ShowWorkExperience bool `json:"showWorkExperience"`
	ShowEducation      bool `json:"showEducation"`
	ShowLanguages      bool `json:"showLanguages"`
	ShowSkills         bool `json:"showSkills"`
}

type ProfileSettingsResponse struct {
	ID         string `json:"id"`
	Visibility string `json:"visibility"`
	ShowFlagsResponse
	PermittedUsers []string  `json:"permittedUsers"`
	AccessRequests []string  `json:"accessRequests"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type ProfileEnvelope struct {
	Profile ProfileResponse `json:"profile"`
}

type ProfileListResponse struct {
	Profiles []ProfileResponse `json:"profiles"`
}

type SettingsEnvelope struct {
	Settings ProfileSettingsResponse `json:"settings"`
}

type UserResponse struct {
	ID        string                    `json:"id"`
	Email     string                    `json:"email"`
	Name      nullable.Nullable[string] `json:"name"`
	CreatedAt time.Time                 `json:"createdAt"`
}

type UserSummaryResponse struct {
	ID       string                    `json:"id"`
	FullName nullable.Nullable[string] `json:"fullName"`
}

func profileFromView(v domain.ProfileView) ProfileResponse {
	p := v.Profile
	out := ProfileResponse{
		ID:             string(p.ID),
		AccessLevel:    string(p.Access.Level),
		PermittedUsers: userIDStrings(p.Access.PermittedUsers),
		AccessRequests: userIDStrings(p.Access.AccessRequests),
		CreatedAt:      p.CreatedAt.UTC(),
		UpdatedAt:      p.UpdatedAt.UTC(),
	}
	if v.Has(domain.FieldName) {
		out.FullName = &p.FullName
	}
	if v.Has(domain.FieldEmail) {
		out.Email = &p.Email
	}
	if v.Has(domain.FieldPhone) {
		if p.Phone != nil {
			out.Phone = nullable.NewNullableWithValue(*p.Phone)
		} else {
			out.Phone = nullable.NewNullNullable[domain.Phone]()
		}
	}
	if v.Has(domain.FieldLinkedIn) {
		out.LinkedIn = nullableOrNull(p.LinkedIn)
	}
	if v.Has(domain.FieldPortfolio) {
		out.Portfolio = nullableOrNull(p.Portfolio)
	}
	if v.Has(domain.FieldProfessionalSummary) {
		out.ProfessionalSummary = &p.ProfessionalSummary
	}
	if v.Has(domain.FieldAvailability) {
		if p.Availability != nil {
			out.Availability = nullable.NewNullableWithValue(string(*p.Availability))
		} else {
			out.Availability = nullable.NewNullNullable[string]()
		}
	}
	if v.Has(domain.FieldWorkExperience) {
		out.WorkExperience = &p.WorkExperience
	}
	if v.Has(domain.FieldEducation) {
		out.Education = &p.Education
	}
	if v.Has(domain.FieldLanguages) {
		out.Languages = &p.Languages
	}
	if v.Has(domain.FieldSkills) {
		out.Skills = &p.Skills
	}
	if v.Owner {
		show := showFlagsResponse(p.Access.Show)
		out.Show = &show
	}
	return out
}

func settingsFromDomain(s domain.ProfileSettings) ProfileSettingsResponse {
	return ProfileSettingsResponse{
		ID:                string(s.ID),
		Visibility:        string(s.Visibility),
		ShowFlagsResponse: showFlagsResponse(s.Show),
		PermittedUsers:    userIDStrings(s.PermittedUsers),
		AccessRequests:    userIDStrings(s.AccessRequests),
		UpdatedAt:         s.UpdatedAt.UTC(),
	}
}

func showFlagsResponse(f domain.ShowFlags) ShowFlagsResponse {
	return ShowFlagsResponse{
		ShowName:           f.Name,
		ShowEmail:          f.Email,
		ShowPhone:          f.Phone,
		ShowLinkedIn:       f.LinkedIn,
		ShowPortfolio:      f.Portfolio,
		ShowWorkExperience: f.WorkExperience,
		ShowEducation:      f.Education,
		ShowLanguages:      f.Languages,
		ShowSkills:         f.Skills,
	}
}

func userFromDomain(u domain.User) UserResponse {
	return UserResponse{
		ID:        string(u.ID),
		Email:     u.Email,
		Name:      nullableOrNull(u.Name),
		CreatedAt: u.CreatedAt.UTC(),
	}
}

func createProfileInputFromRequest(sub domain.UserID, b CreateProfileRequest) profiles.CreateProfileInput {
	return profiles.CreateProfileInput{
		ID:                  sub,
		FullName:            b.FullName,
		Email:               string(b.Email),
		Phone:               b.Phone,
		LinkedIn:            b.LinkedIn,
		Portfolio:           b.Portfolio,
		ProfessionalSummary: b.ProfessionalSummary,
		Availability:        b.Availability,
		WorkExperience:      b.WorkExperience,
		Education:           b.Education,
		Languages:           b.Languages,
		Skills:              b.Skills,
		AccessLevel:         b.AccessLevel,
		Show:                showFlagsPatchFromRequest(b.ShowFlagsRequest),
		PermittedUsers:      b.PermittedUsers,
		AccessRequests:      b.AccessRequests,
	}
}

func updateProfileInputFromRequest(b UpdateProfileRequest) profiles.UpdateProfileInput {
	email := profiles.Unspecified[string]()
	if b.Email.IsSpecified() {
		if b.Email.IsNull() {
			email = profiles.Null[string]()
		} else if v, err := b.Email.Get(); err == nil {
			email = profiles.Some(string(v))
		}
	}
	return profiles.UpdateProfileInput{
		FullName:            optionalFromNullable(b.FullName),
		Email:               email,
		Phone:               optionalFromNullable(b.Phone),
		LinkedIn:            optionalFromNullable(b.LinkedIn),
		Portfolio:           optionalFromNullable(b.Portfolio),
		ProfessionalSummary: optionalFromNullable(b.ProfessionalSummary),
		Availability:        optionalFromNullable(b.Availability),
		WorkExperience:      optionalFromNullable(b.WorkExperience),
		Education:           optionalFromNullable(b.Education),
		Languages:           optionalFromNullable(b.Languages),
		Skills:              optionalFromNullable(b.Skills),
		AccessLevel:         optionalFromNullable(b.AccessLevel),
		Show:                showFlagsPatchFromRequest(b.ShowFlagsRequest),
		PermittedUsers:      optionalFromNullable(b.PermittedUsers),
		AccessRequests:      optionalFromNullable(b.AccessRequests),
	}
}

func updateSettingsInputFromRequest(b UpdateSettingsRequest) profiles.UpdateSettingsInput {
	return profiles.UpdateSettingsInput{
		Visibility:     optionalFromNullable(b.Visibility),
		Show:           showFlagsPatchFromRequest(b.ShowFlagsRequest),
		PermittedUsers: optionalFromNullable(b.PermittedUsers),
		AccessRequests: optionalFromNullable(b.AccessRequests),
	}
}

func showFlagsPatchFromRequest(b ShowFlagsRequest) profiles.ShowFlagsPatch {
	return profiles.ShowFlagsPatch{
		Name:           optionalFromNullable(b.ShowName),
		Email:          optionalFromNullable(b.ShowEmail),
		Phone:          optionalFromNullable(b.ShowPhone),
		LinkedIn:       optionalFromNullable(b.ShowLinkedIn),
		Portfolio:      optionalFromNullable(b.ShowPortfolio),
		WorkExperience: optionalFromNullable(b.ShowWorkExperience),
		Education:      optionalFromNullable(b.ShowEducation),
		Languages:      optionalFromNullable(b.ShowLanguages),
		Skills:         optionalFromNullable(b.ShowSkills),
	}
}

func optionalFromNullable[T any](n nullable.Nullable[T]) profiles.Optional[T] {
	if !n.IsSpecified() {
		return profiles.Unspecified[T]()
	}
	if n.IsNull() {
		return profiles.Null[T]()
	}
	v, err := n.Get()
	if err != nil {
		return profiles.Unspecified[T]()
	}
	return profiles.Some(v)
}

func nullableOrNull(p *string) nullable.Nullable[string] {
	if p == nil {
		return nullable.NewNullNullable[string]()
	}
	return nullable.NewNullableWithValue(*p)
}

func userIDStrings(ids []domain.UserID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}
