package profiles

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
)

// ValidatePermittedUsers sanitizes a raw permittedUsers value from a write request.
//
// null or absent input yields an empty list. Anything other than a JSON array
// fails with a validation error, since that is a caller bug rather than storage
// drift. Array entries that are not non-blank strings are dropped with a
// warning; surviving ids are trimmed. Duplicates are kept.
func ValidatePermittedUsers(log *zap.Logger, raw []byte) ([]domain.UserID, error) {
	return validateIdentityList(log, "permittedUsers", raw)
}

// ValidateAccessRequests applies the permittedUsers rules to an accessRequests value.
func ValidateAccessRequests(log *zap.Logger, raw []byte) ([]domain.UserID, error) {
	return validateIdentityList(log, "accessRequests", raw)
}

func validateIdentityList(log *zap.Logger, field string, raw []byte) ([]domain.UserID, error) {
	out := []domain.UserID{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out, nil
	}
	if !gjson.ValidBytes(raw) {
		return nil, validationError("invalid "+field, map[string]any{field: "must be valid JSON"})
	}
	r := gjson.ParseBytes(raw)
	if r.Type == gjson.Null {
		return out, nil
	}
	if !r.IsArray() {
		return nil, validationError("invalid "+field, map[string]any{field: "must be an array of user ids"})
	}

	i := 0
	r.ForEach(func(_, v gjson.Result) bool {
		defer func() { i++ }()
		if v.Type == gjson.String {
			if id := strings.TrimSpace(v.Str); id != "" {
				out = append(out, domain.UserID(id))
				return true
			}
		}
		log.Warn("dropping invalid user id",
			zap.String("field", field),
			zap.Int("index", i),
			zap.String("type", jsonKind(v)))
		return true
	})
	return out, nil
}

func userIDsToStrings(ids []domain.UserID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

func stringsToUserIDs(ss []string) []domain.UserID {
	out := make([]domain.UserID, len(ss))
	for i, s := range ss {
		out[i] = domain.UserID(s)
	}
	return out
}
