package httpapi

import (
	"context"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
)

type subjectKey struct{}

func WithSubject(ctx context.Context, subjectID string) context.Context {
	return context.WithValue(ctx, subjectKey{}, subjectID)
}

func SubjectFromContext(ctx context.Context) (domain.UserID, bool) {
	v, ok := ctx.Value(subjectKey{}).(string)
	return domain.UserID(v), ok && v != ""
}
