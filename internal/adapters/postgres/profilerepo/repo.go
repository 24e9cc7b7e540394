package profilerepo

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/Overland-East-Bay/profile-privacy-api/internal/adapters/postgres"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
	"github.com/Overland-East-Bay/profile-privacy-api/internal/ports/out/profilerepo"
)

// Repo is a Postgres implementation of profilerepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const selectColumns = `
	id, full_name, email, phone, linkedin, portfolio, professional_summary, availability,
	work_experience, education, languages, skills,
	access_level, show_name, show_email, show_phone, show_linkedin, show_portfolio,
	show_work_experience, show_education, show_languages, show_skills,
	permitted_users, access_requests, created_at, updated_at`

func (r *Repo) Create(ctx context.Context, p profilerepo.Profile) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO profiles (`+selectColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26)
	`, writeArgs(p)...)
	if err != nil {
		if pe, ok := postgres.AsPgError(err); ok && pe.Code == postgres.UniqueViolationCode {
			return profilerepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Get(ctx context.Context, id domain.UserID) (profilerepo.Profile, error) {
	if r.pool == nil {
		return profilerepo.Profile{}, errors.New("nil postgres pool")
	}
	row := r.pool.QueryRow(ctx, `SELECT `+selectColumns+` FROM profiles WHERE id = $1`, string(id))
	p, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return profilerepo.Profile{}, profilerepo.ErrNotFound
		}
		return profilerepo.Profile{}, err
	}
	return p, nil
}

func (r *Repo) List(ctx context.Context) ([]profilerepo.Profile, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, `SELECT `+selectColumns+` FROM profiles ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]profilerepo.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update locks the row with SELECT ... FOR UPDATE for the duration of fn.
func (r *Repo) Update(ctx context.Context, id domain.UserID, fn profilerepo.UpdateFunc) (profilerepo.Profile, error) {
	if r.pool == nil {
		return profilerepo.Profile{}, errors.New("nil postgres pool")
	}
	var out profilerepo.Profile
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `SELECT `+selectColumns+` FROM profiles WHERE id = $1 FOR UPDATE`, string(id))
		existing, err := scanProfile(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return profilerepo.ErrNotFound
			}
			return err
		}

		next := existing.Clone()
		if err := fn(&next); err != nil {
			return err
		}
		next.ID = existing.ID
		next.CreatedAt = existing.CreatedAt

		args := writeArgs(next)
		if _, err := tx.Exec(ctx, `
			UPDATE profiles SET
				full_name = $2,
				email = $3,
				phone = $4,
				linkedin = $5,
				portfolio = $6,
				professional_summary = $7,
				availability = $8,
				work_experience = $9,
				education = $10,
				languages = $11,
				skills = $12,
				access_level = $13,
				show_name = $14,
				show_email = $15,
				show_phone = $16,
				show_linkedin = $17,
				show_portfolio = $18,
				show_work_experience = $19,
				show_education = $20,
				show_languages = $21,
				show_skills = $22,
				permitted_users = $23,
				access_requests = $24,
				created_at = $25,
				updated_at = $26
			WHERE id = $1
		`, args...); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return profilerepo.Profile{}, err
	}
	return out, nil
}

func writeArgs(p profilerepo.Profile) []any {
	return []any{
		string(p.ID),
		p.FullName,
		p.Email,
		jsonArg(p.Phone),
		p.LinkedIn,
		p.Portfolio,
		p.ProfessionalSummary,
		p.Availability,
		jsonArg(p.WorkExperience),
		jsonArg(p.Education),
		jsonArg(p.Languages),
		jsonArg(p.Skills),
		p.AccessLevel,
		p.ShowName,
		p.ShowEmail,
		p.ShowPhone,
		p.ShowLinkedIn,
		p.ShowPortfolio,
		p.ShowWorkExperience,
		p.ShowEducation,
		p.ShowLanguages,
		p.ShowSkills,
		nonNilStrings(p.PermittedUsers),
		nonNilStrings(p.AccessRequests),
		p.CreatedAt.UTC(),
		p.UpdatedAt.UTC(),
	}
}

// jsonArg passes raw JSON to a JSONB column; empty means SQL NULL.
func jsonArg(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func scanProfile(row pgx.Row) (profilerepo.Profile, error) {
	var p profilerepo.Profile
	var id string
	var phone, work, education, languages, skills []byte
	err := row.Scan(
		&id,
		&p.FullName,
		&p.Email,
		&phone,
		&p.LinkedIn,
		&p.Portfolio,
		&p.ProfessionalSummary,
		&p.Availability,
		&work,
		&education,
		&languages,
		&skills,
		&p.AccessLevel,
		&p.ShowName,
		&p.ShowEmail,
		&p.ShowPhone,
		&p.ShowLinkedIn,
		&p.ShowPortfolio,
		&p.ShowWorkExperience,
		&p.ShowEducation,
		&p.ShowLanguages,
		&p.ShowSkills,
		&p.PermittedUsers,
		&p.AccessRequests,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return profilerepo.Profile{}, err
	}
	p.ID = domain.UserID(id)
	p.Phone = rawOrNil(phone)
	p.WorkExperience = rawOrNil(work)
	p.Education = rawOrNil(education)
	p.Languages = rawOrNil(languages)
	p.Skills = rawOrNil(skills)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, nil
}

func rawOrNil(b []byte) json.RawMessage {
	if len(b) == 0 {
		return nil
	}
	return json.RawMessage(b)
}
