package domain

import (
	"errors"
	"strings"

	"github.com/samber/lo"
)

// AccessLevel is the coarse visibility tier of a profile.
type AccessLevel string

const (
	AccessPublic  AccessLevel = "public"
	AccessPrivate AccessLevel = "private"
	// AccessRestricted currently uses the same permitted-user gate as AccessPrivate.
	AccessRestricted AccessLevel = "restricted"
)

func ParseAccessLevel(s string) (AccessLevel, bool) {
	switch l := AccessLevel(s); l {
	case AccessPublic, AccessPrivate, AccessRestricted:
		return l, true
	default:
		return "", false
	}
}

// ShowFlags controls disclosure of each gated field group to authorized non-owner viewers.
type ShowFlags struct {
	Name           bool
	Email          bool
	Phone          bool
	LinkedIn       bool
	Portfolio      bool
	WorkExperience bool
	Education      bool
	Languages      bool
	Skills         bool
}

// DefaultShowFlags discloses every gated group.
func DefaultShowFlags() ShowFlags {
	return ShowFlags{
		Name:           true,
		Email:          true,
		Phone:          true,
		LinkedIn:       true,
		Portfolio:      true,
		WorkExperience: true,
		Education:      true,
		Languages:      true,
		Skills:         true,
	}
}

// Enabled reports the flag for a gated field group. Ungated groups report false.
func (f ShowFlags) Enabled(g FieldGroup) bool {
	if p := f.flag(g); p != nil {
		return *p
	}
	return false
}

// Set updates the flag for a gated field group; it is a no-op for ungated groups.
func (f *ShowFlags) Set(g FieldGroup, v bool) {
	if p := f.flag(g); p != nil {
		*p = v
	}
}

func (f *ShowFlags) flag(g FieldGroup) *bool {
	switch g {
	case FieldName:
		return &f.Name
	case FieldEmail:
		return &f.Email
	case FieldPhone:
		return &f.Phone
	case FieldLinkedIn:
		return &f.LinkedIn
	case FieldPortfolio:
		return &f.Portfolio
	case FieldWorkExperience:
		return &f.WorkExperience
	case FieldEducation:
		return &f.Education
	case FieldLanguages:
		return &f.Languages
	case FieldSkills:
		return &f.Skills
	default:
		return nil
	}
}

// AccessControl is the access-control block of a profile.
//
// PermittedUsers and AccessRequests are disjoint in a well-formed state, but
// stored data may violate that and every operation here tolerates overlap.
type AccessControl struct {
	Level          AccessLevel
	Show           ShowFlags
	PermittedUsers []UserID
	AccessRequests []UserID
}

// AccessState is where a requester stands with respect to a profile.
type AccessState int

const (
	AccessNone AccessState = iota
	AccessPending
	AccessGranted
)

func (s AccessState) String() string {
	switch s {
	case AccessPending:
		return "pending"
	case AccessGranted:
		return "granted"
	default:
		return "none"
	}
}

var (
	// ErrNotOwner is returned when someone other than the profile owner decides an access request.
	ErrNotOwner = errors.New("only the profile owner may decide access requests")

	// ErrBlankRequester is returned for an empty requester identity.
	ErrBlankRequester = errors.New("requester id must be non-empty")
)

// StateOf reports the access state of id. Permission wins over a pending request.
func (a AccessControl) StateOf(id UserID) AccessState {
	switch {
	case lo.Contains(a.PermittedUsers, id):
		return AccessGranted
	case lo.Contains(a.AccessRequests, id):
		return AccessPending
	default:
		return AccessNone
	}
}

// RequestAccess records a pending request from requester on the profile owned by owner.
// It reports whether the access block changed. Requests by the owner, by already
// permitted users, and repeated requests are no-ops.
func (a AccessControl) RequestAccess(owner, requester UserID) (AccessControl, bool, error) {
	requester = UserID(strings.TrimSpace(string(requester)))
	if requester == "" {
		return a, false, ErrBlankRequester
	}
	if requester == owner || a.StateOf(requester) != AccessNone {
		return a, false, nil
	}
	out := a.clone()
	out.AccessRequests = append(out.AccessRequests, requester)
	return out, true, nil
}

// DecideAccess applies the owner's decision on requester. Granting moves the
// requester from AccessRequests into PermittedUsers; denying only removes the
// pending request. Deciding on a requester without a pending request is
// idempotent: a grant still ensures the permission exists.
func (a AccessControl) DecideAccess(owner, requester, decidedBy UserID, grant bool) (AccessControl, error) {
	if decidedBy != owner {
		return a, ErrNotOwner
	}
	requester = UserID(strings.TrimSpace(string(requester)))
	if requester == "" {
		return a, ErrBlankRequester
	}
	out := a.clone()
	out.AccessRequests = lo.Without(out.AccessRequests, requester)
	if grant && !lo.Contains(out.PermittedUsers, requester) {
		out.PermittedUsers = append(out.PermittedUsers, requester)
	}
	return out, nil
}

func (a AccessControl) clone() AccessControl {
	out := a
	out.PermittedUsers = cloneUserIDs(a.PermittedUsers)
	out.AccessRequests = cloneUserIDs(a.AccessRequests)
	return out
}
