package profiles

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
)

// Read side: stored values are repaired, never rejected.

// objectEntries returns the object elements of a stored JSON array. Anything
// else is logged and skipped.
func objectEntries(log *zap.Logger, field string, raw []byte) []gjson.Result {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if !gjson.ValidBytes(raw) {
		log.Warn("stored collection is not valid JSON, ignoring", zap.String("field", field))
		return nil
	}
	r := gjson.ParseBytes(raw)
	if r.Type == gjson.Null {
		return nil
	}
	if !r.IsArray() {
		log.Warn("stored collection is not an array, ignoring",
			zap.String("field", field), zap.String("type", jsonKind(r)))
		return nil
	}
	var out []gjson.Result
	r.ForEach(func(_, v gjson.Result) bool {
		if v.IsObject() {
			out = append(out, v)
		} else {
			log.Warn("dropping malformed collection entry",
				zap.String("field", field), zap.String("type", jsonKind(v)))
		}
		return true
	})
	return out
}

func readWorkExperience(log *zap.Logger, raw []byte) []domain.WorkExperience {
	out := []domain.WorkExperience{}
	for _, v := range objectEntries(log, "workExperience", raw) {
		out = append(out, domain.WorkExperience{
			JobTitle:         v.Get("jobTitle").String(),
			CompanyName:      v.Get("companyName").String(),
			Location:         v.Get("location").String(),
			DateFrom:         v.Get("dateFrom").String(),
			DateTo:           v.Get("dateTo").String(),
			Responsibilities: v.Get("responsibilities").String(),
		})
	}
	return out
}

func readEducation(log *zap.Logger, raw []byte) []domain.Education {
	out := []domain.Education{}
	for _, v := range objectEntries(log, "education", raw) {
		out = append(out, domain.Education{
			SchoolName:  v.Get("schoolName").String(),
			Degree:      v.Get("degree").String(),
			DateFrom:    v.Get("dateFrom").String(),
			DateTo:      v.Get("dateTo").String(),
			Description: v.Get("description").String(),
		})
	}
	return out
}

func readLanguages(log *zap.Logger, raw []byte) []domain.Language {
	out := []domain.Language{}
	for _, v := range objectEntries(log, "languages", raw) {
		lang := domain.Language{Language: v.Get("language").String()}
		if f, ok := domain.ParseFluencyLevel(v.Get("fluencyLevel").String()); ok {
			lang.FluencyLevel = f
		} else {
			log.Warn("unknown stored fluency level", zap.String("language", lang.Language))
		}
		out = append(out, lang)
	}
	return out
}

func readPhone(log *zap.Logger, raw []byte) *domain.Phone {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var p domain.Phone
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Warn("stored phone is malformed, ignoring", zap.Error(err))
		return nil
	}
	if p.IsZero() {
		return nil
	}
	return &p
}

// Write side: malformed input is a caller bug and fails the call.

// writeCollection validates raw as a JSON array of T and returns its canonical
// encoding. null or absent input is stored as an empty array.
func writeCollection[T any](field string, raw []byte, check func(T) error) (json.RawMessage, error) {
	items := []T{}
	if len(bytes.TrimSpace(raw)) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if !gjson.ValidBytes(raw) || !gjson.ParseBytes(raw).IsArray() {
			return nil, validationError("invalid "+field, map[string]any{field: "must be an array of objects"})
		}
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, validationError("invalid "+field, map[string]any{field: err.Error()})
		}
	}
	if check != nil {
		for i, it := range items {
			if err := check(it); err != nil {
				return nil, validationError("invalid "+field, map[string]any{
					field: fmt.Sprintf("item %d: %v", i, err),
				})
			}
		}
	}
	return json.Marshal(items)
}

func writeWorkExperience(raw []byte) (json.RawMessage, error) {
	return writeCollection[domain.WorkExperience]("workExperience", raw, nil)
}

func writeEducation(raw []byte) (json.RawMessage, error) {
	return writeCollection[domain.Education]("education", raw, nil)
}

func writeLanguages(raw []byte) (json.RawMessage, error) {
	return writeCollection("languages", raw, func(l domain.Language) error {
		if _, ok := domain.ParseFluencyLevel(string(l.FluencyLevel)); !ok {
			return fmt.Errorf("fluencyLevel %q is not one of Beginner, Intermediate, Advanced, Fluent, Native", l.FluencyLevel)
		}
		return nil
	})
}

// writeSkills stores the normalized form of raw.
func writeSkills(log *zap.Logger, raw []byte) (json.RawMessage, error) {
	return json.Marshal(NormalizeSkills(log, raw))
}

// writePhone validates raw as a phone value. null or absent input clears the phone.
func writePhone(raw []byte) (json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}
	var p domain.Phone
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, validationError("invalid phone", map[string]any{"phone": domain.ErrInvalidPhone.Error()})
	}
	if p.IsZero() {
		return nil, nil
	}
	return json.Marshal(p)
}
