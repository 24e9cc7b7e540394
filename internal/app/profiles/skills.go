package profiles

import (
	"bytes"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
)

// NormalizeSkills reshapes a raw skills value into skill categories.
//
// It never fails: null or absent input yields an empty list, input that is not
// a JSON array yields an empty list and a warning, non-object entries are
// dropped, a missing title defaults to "" and a missing skills list to [],
// skill entries become {skill: string|null} (array entries become null
// placeholders, other non-objects are dropped), and categories whose title is
// empty are dropped. NormalizeSkills is idempotent over its own JSON output.
func NormalizeSkills(log *zap.Logger, raw []byte) []domain.SkillCategory {
	out := []domain.SkillCategory{}
	if len(bytes.TrimSpace(raw)) == 0 {
		return out
	}
	if !gjson.ValidBytes(raw) {
		log.Warn("skills data is not valid JSON, returning empty list")
		return out
	}
	r := gjson.ParseBytes(raw)
	if r.Type == gjson.Null {
		return out
	}
	if !r.IsArray() {
		log.Warn("skills data is not in expected array format, returning empty list",
			zap.String("type", jsonKind(r)))
		return out
	}

	r.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		title := stringOrEmpty(item.Get("title"))
		if title == "" {
			return true
		}
		cat := domain.SkillCategory{Title: title, Skills: []domain.Skill{}}
		if list := item.Get("skills"); list.IsArray() {
			list.ForEach(func(_, s gjson.Result) bool {
				if !s.IsObject() && !s.IsArray() {
					return true
				}
				cat.Skills = append(cat.Skills, domain.Skill{Skill: nonEmptyString(s.Get("skill"))})
				return true
			})
		}
		out = append(out, cat)
		return true
	})
	return out
}

func stringOrEmpty(r gjson.Result) string {
	if r.Type != gjson.String {
		return ""
	}
	return r.Str
}

func nonEmptyString(r gjson.Result) *string {
	if r.Type != gjson.String || r.Str == "" {
		return nil
	}
	v := r.Str
	return &v
}

// jsonKind names the JSON kind of r for log fields.
func jsonKind(r gjson.Result) string {
	switch {
	case r.IsArray():
		return "array"
	case r.IsObject():
		return "object"
	default:
		return r.Type.String()
	}
}
