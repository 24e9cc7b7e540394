package profiles

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Overland-East-Bay/profile-privacy-api/internal/domain"
)

func strPtr(s string) *string { return &s }

func TestNormalizeSkills_EmptyInputs(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "  ", "null"} {
		got := NormalizeSkills(zap.NewNop(), []byte(raw))
		if got == nil || len(got) != 0 {
			t.Fatalf("NormalizeSkills(%q)=%#v, want empty non-nil list", raw, got)
		}
	}
}

func TestNormalizeSkills_NonArrayWarnsAndReturnsEmpty(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{`{"title":"Go"}`, `"Go"`, `42`, `[{"title":`} {
		core, logs := observer.New(zapcore.WarnLevel)
		got := NormalizeSkills(zap.New(core), []byte(raw))
		if len(got) != 0 {
			t.Fatalf("NormalizeSkills(%q)=%#v, want empty", raw, got)
		}
		if logs.Len() != 1 {
			t.Fatalf("NormalizeSkills(%q) logged %d warnings, want 1", raw, logs.Len())
		}
	}
}

func TestNormalizeSkills_RepairsEntries(t *testing.T) {
	t.Parallel()

	raw := `[
		{"title":"Go","skills":[{"skill":"pgx"},{"skill":""},{"other":1},"x",{"skill":7},[]]},
		{"title":""},
		5,
		["nested"],
		{"skills":[{"skill":"orphan"}]},
		{"title":42,"skills":[]},
		{"title":"Ops","skills":"not-a-list"}
	]`
	got := NormalizeSkills(zap.NewNop(), []byte(raw))
	want := []domain.SkillCategory{
		{Title: "Go", Skills: []domain.Skill{{Skill: strPtr("pgx")}, {}, {}, {}, {}}},
		{Title: "Ops", Skills: []domain.Skill{}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("NormalizeSkills mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeSkills_ArraySkillEntriesBecomePlaceholders(t *testing.T) {
	t.Parallel()

	got := NormalizeSkills(zap.NewNop(), []byte(`[{"title":"Go","skills":[[],{"skill":""},"x",["pgx"]]}]`))
	want := []domain.SkillCategory{
		{Title: "Go", Skills: []domain.Skill{{}, {}, {}}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("NormalizeSkills mismatch (-want +got):\n%s", diff)
	}
}

func TestNormalizeSkills_Idempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		`[{"title":"Go","skills":[{"skill":"pgx"},{"skill":null},{}]},{"title":"Ops"}]`,
		`[{"title":"Backend","skills":[{"skill":"Go"},{"skill":"SQL"}]}]`,
		`{"broken":true}`,
		`[]`,
	}
	for _, in := range inputs {
		once := NormalizeSkills(zap.NewNop(), []byte(in))
		b, err := json.Marshal(once)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		twice := NormalizeSkills(zap.NewNop(), b)
		if diff := cmp.Diff(once, twice); diff != "" {
			t.Fatalf("NormalizeSkills not idempotent for %s (-once +twice):\n%s", in, diff)
		}
	}
}
