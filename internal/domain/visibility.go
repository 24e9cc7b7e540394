package domain

import "github.com/samber/lo"

// FieldGroup names a disclosable unit of a profile.
type FieldGroup string

const (
	FieldID                  FieldGroup = "id"
	FieldAccessLevel         FieldGroup = "accessLevel"
	FieldProfessionalSummary FieldGroup = "professionalSummary"
	FieldAvailability        FieldGroup = "availability"

	FieldName           FieldGroup = "name"
	FieldEmail          FieldGroup = "email"
	FieldPhone          FieldGroup = "phone"
	FieldLinkedIn       FieldGroup = "linkedIn"
	FieldPortfolio      FieldGroup = "portfolio"
	FieldWorkExperience FieldGroup = "workExperience"
	FieldEducation      FieldGroup = "education"
	FieldLanguages      FieldGroup = "languages"
	FieldSkills         FieldGroup = "skills"
)

// GatedFieldGroups are the groups controlled by a show-flag, in display order.
var GatedFieldGroups = []FieldGroup{
	FieldName,
	FieldEmail,
	FieldPhone,
	FieldLinkedIn,
	FieldPortfolio,
	FieldWorkExperience,
	FieldEducation,
	FieldLanguages,
	FieldSkills,
}

// FieldSet is an unordered set of field groups.
type FieldSet map[FieldGroup]struct{}

func NewFieldSet(groups ...FieldGroup) FieldSet {
	s := make(FieldSet, len(groups))
	for _, g := range groups {
		s[g] = struct{}{}
	}
	return s
}

// AllFields is the owner-view field set.
func AllFields() FieldSet {
	s := NewFieldSet(FieldID, FieldAccessLevel, FieldProfessionalSummary, FieldAvailability)
	for _, g := range GatedFieldGroups {
		s[g] = struct{}{}
	}
	return s
}

func (s FieldSet) Has(g FieldGroup) bool {
	_, ok := s[g]
	return ok
}

// CanView reports whether viewer is authorized to see the profile at all.
// Public profiles are open to everyone; private and restricted profiles are
// open to the owner and to permitted users.
func CanView(p Profile, viewer UserID) bool {
	if p.Access.Level == AccessPublic {
		return true
	}
	if viewer == "" {
		return false
	}
	return viewer == p.ID || lo.Contains(p.Access.PermittedUsers, viewer)
}

// VisibleFields computes the field groups of p disclosed to viewer.
//
// Unauthorized viewers only ever get {id, accessLevel}. Authorized viewers
// additionally get professionalSummary and availability, plus each gated group
// whose show-flag is set. Show-flags apply to the owner too; the owner view is
// a separate projection (see OwnerView).
func VisibleFields(p Profile, viewer UserID) FieldSet {
	out := NewFieldSet(FieldID, FieldAccessLevel)
	if !CanView(p, viewer) {
		return out
	}
	out[FieldProfessionalSummary] = struct{}{}
	out[FieldAvailability] = struct{}{}
	for _, g := range GatedFieldGroups {
		if p.Access.Show.Enabled(g) {
			out[g] = struct{}{}
		}
	}
	return out
}
