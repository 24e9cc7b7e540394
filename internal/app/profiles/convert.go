package profiles

import (
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/profilerepo"
)

// toDomain converts a stored record, repairing legacy or partial data:
// malformed JSON columns are normalized, missing show-flags default to true,
// and an unknown access level fails closed to private.
func toDomain(log *zap.Logger, rec profilerepo.Profile) domain.Profile {
	log = log.With(zap.String("profile_id", string(rec.ID)))

	level, ok := domain.ParseAccessLevel(rec.AccessLevel)
	if !ok {
		log.Warn("stored access level is invalid, treating profile as private", zap.String("access_level", rec.AccessLevel))
		level = domain.AccessPrivate
	}

	var availability *domain.Availability
	if rec.Availability != nil {
		if a, ok := domain.ParseAvailability(*rec.Availability); ok {
			availability = &a
		} else {
			log.Warn("stored availability is invalid, ignoring", zap.String("availability", *rec.Availability))
		}
	}

	return domain.Profile{
		ID:                  rec.ID,
		FullName:            rec.FullName,
		Email:               rec.Email,
		Phone:               readPhone(log, rec.Phone),
		LinkedIn:            cloneStringPtr(rec.LinkedIn),
		Portfolio:           cloneStringPtr(rec.Portfolio),
		ProfessionalSummary: rec.ProfessionalSummary,
		Availability:        availability,
		WorkExperience:      readWorkExperience(log, rec.WorkExperience),
		Education:           readEducation(log, rec.Education),
		Languages:           readLanguages(log, rec.Languages),
		Skills:              NormalizeSkills(log, rec.Skills),
		Access: domain.AccessControl{
			Level:          level,
			Show:           showFlagsFromRecord(rec),
			PermittedUsers: stringsToUserIDs(rec.PermittedUsers),
			AccessRequests: stringsToUserIDs(rec.AccessRequests),
		},
		CreatedAt: rec.CreatedAt.UTC(),
		UpdatedAt: rec.UpdatedAt.UTC(),
	}
}

// showFlagPtrs maps each gated group to its record column.
func showFlagPtrs(rec *profilerepo.Profile) map[domain.FieldGroup]**bool {
	return map[domain.FieldGroup]**bool{
		domain.FieldName:           &rec.ShowName,
		domain.FieldEmail:          &rec.ShowEmail,
		domain.FieldPhone:          &rec.ShowPhone,
		domain.FieldLinkedIn:       &rec.ShowLinkedIn,
		domain.FieldPortfolio:      &rec.ShowPortfolio,
		domain.FieldWorkExperience: &rec.ShowWorkExperience,
		domain.FieldEducation:      &rec.ShowEducation,
		domain.FieldLanguages:      &rec.ShowLanguages,
		domain.FieldSkills:         &rec.ShowSkills,
	}
}

func showFlagsFromRecord(rec profilerepo.Profile) domain.ShowFlags {
	flags := domain.DefaultShowFlags()
	for g, p := range showFlagPtrs(&rec) {
		if *p != nil {
			flags.Set(g, **p)
		}
	}
	return flags
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func boolPtr(v bool) *bool { return &v }
