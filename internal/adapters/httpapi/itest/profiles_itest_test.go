package itest

import (
	"net/http"
	"testing"
)

type profileBody struct {
	Profile map[string]any `json:"profile"`
}

func TestProfiles_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			srv := newTestServer(t, b)

			// Missing subject => 401
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/profiles/me", "", nil)
				requireErrorCode(t, status, body, http.StatusUnauthorized, "UNAUTHORIZED")
			}

			alice := uniqueSubject("alice")
			bob := uniqueSubject("bob")

			// No profile yet.
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/profiles/me", alice, nil)
				requireErrorCode(t, status, body, http.StatusNotFound, "PROFILE_NOT_FOUND")
			}

			{
				status, body, hdr := srv.doJSON(t, http.MethodPost, "/profiles", alice, map[string]any{
					"fullName":            "Alice Smith",
					"email":               "alice@example.com",
					"professionalSummary": "Backend engineer",
					"phone":               map[string]any{"countryCode": "US", "dialCode": "+1", "number": "5550100", "flag": "US"},
					"languages":           []any{map[string]any{"language": "English", "fluencyLevel": "Native"}},
					"accessLevel":         "private",
					"showPhone":           false,
				})
				if status != http.StatusCreated {
					t.Fatalf("status=%d want=%d body=%s", status, http.StatusCreated, string(body))
				}
				requireHeaderPresent(t, hdr, "Content-Type")
				got := mustUnmarshal[profileBody](t, body)
				if got.Profile["id"] != alice {
					t.Fatalf("id=%v want=%q", got.Profile["id"], alice)
				}
			}

			// Bob sees only the public envelope.
			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/profiles/"+alice, bob, nil)
				if status != http.StatusOK {
					t.Fatalf("status=%d body=%s", status, string(body))
				}
				got := mustUnmarshal[profileBody](t, body)
				if _, ok := got.Profile["fullName"]; ok {
					t.Fatalf("fullName disclosed to unauthorized viewer: %s", string(body))
				}
			}

			// Request, then grant.
			{
				status, body, _ := srv.doJSON(t, http.MethodPost, "/profiles/"+alice+"/access-requests", bob, nil)
				if status != http.StatusNoContent {
					t.Fatalf("request status=%d body=%s", status, string(body))
				}
				status, body, _ = srv.doJSON(t, http.MethodPut, "/profiles/"+alice+"/access-requests/"+bob, bob, map[string]any{"grant": true})
				requireErrorCode(t, status, body, http.StatusForbidden, "FORBIDDEN")

				status, body, _ = srv.doJSON(t, http.MethodPut, "/profiles/"+alice+"/access-requests/"+bob, alice, map[string]any{"grant": true})
				if status != http.StatusNoContent {
					t.Fatalf("decide status=%d body=%s", status, string(body))
				}
			}

			{
				status, body, _ := srv.doJSON(t, http.MethodGet, "/profiles/"+alice, bob, nil)
				if status != http.StatusOK {
					t.Fatalf("status=%d body=%s", status, string(body))
				}
				got := mustUnmarshal[profileBody](t, body)
				if got.Profile["fullName"] != "Alice Smith" {
					t.Fatalf("fullName=%v body=%s", got.Profile["fullName"], string(body))
				}
				if _, ok := got.Profile["phone"]; ok {
					t.Fatalf("phone disclosed despite showPhone=false: %s", string(body))
				}
				langs, _ := got.Profile["languages"].([]any)
				if len(langs) != 1 {
					t.Fatalf("languages=%v", got.Profile["languages"])
				}
			}

			// Idempotent PATCH replays and rejects key reuse.
			{
				key := uniqueSubject("key")
				patch := map[string]any{"professionalSummary": "Staff engineer", "portfolio": "https://alice.example"}
				status, first, _ := srv.doJSON(t, http.MethodPatch, "/profiles/me", alice, patch, "Idempotency-Key", key)
				if status != http.StatusOK {
					t.Fatalf("patch status=%d body=%s", status, string(first))
				}
				status, replay, _ := srv.doJSON(t, http.MethodPatch, "/profiles/me", alice, patch, "Idempotency-Key", key)
				if status != http.StatusOK || string(replay) != string(first) {
					t.Fatalf("replay status=%d body=%s want=%s", status, string(replay), string(first))
				}
				status, body, _ := srv.doJSON(t, http.MethodPatch, "/profiles/me", alice, map[string]any{"professionalSummary": "x"}, "Idempotency-Key", key)
				requireErrorCode(t, status, body, http.StatusConflict, "IDEMPOTENCY_KEY_REUSE")
			}

			// Settings projection.
			{
				status, body, _ := srv.doJSON(t, http.MethodPatch, "/profiles/me/settings", alice, map[string]any{"visibility": "public"})
				if status != http.StatusOK {
					t.Fatalf("settings status=%d body=%s", status, string(body))
				}
				got := mustUnmarshal[struct {
					Settings struct {
						Visibility     string   `json:"visibility"`
						PermittedUsers []string `json:"permittedUsers"`
					} `json:"settings"`
				}](t, body)
				if got.Settings.Visibility != "public" || len(got.Settings.PermittedUsers) != 1 || got.Settings.PermittedUsers[0] != bob {
					t.Fatalf("settings=%+v", got.Settings)
				}
			}
		})
	}
}

func TestUsers_ITest(t *testing.T) {
	for _, b := range backendsFromEnv(t) {
		t.Run(string(b), func(t *testing.T) {
			srv := newTestServer(t, b)
			admin := uniqueSubject("admin")
			email := uniqueSubject("user") + "@example.com"

			status, body, _ := srv.doJSON(t, http.MethodPost, "/users", admin, map[string]any{"email": email, "name": "Carol"})
			if status != http.StatusCreated {
				t.Fatalf("status=%d body=%s", status, string(body))
			}
			created := mustUnmarshal[struct {
				User struct {
					ID string `json:"id"`
				} `json:"user"`
			}](t, body)

			status, body, _ = srv.doJSON(t, http.MethodPost, "/users", admin, map[string]any{"email": email})
			requireErrorCode(t, status, body, http.StatusConflict, "USER_ALREADY_EXISTS")

			status, body, _ = srv.doJSON(t, http.MethodPost, "/users/lookup", admin, map[string]any{"userIds": []string{created.User.ID, "missing", created.User.ID}})
			if status != http.StatusOK {
				t.Fatalf("lookup status=%d body=%s", status, string(body))
			}
			got := mustUnmarshal[struct {
				Users []struct {
					ID       string  `json:"id"`
					FullName *string `json:"fullName"`
				} `json:"users"`
			}](t, body)
			if len(got.Users) != 1 || got.Users[0].ID != created.User.ID || got.Users[0].FullName == nil || *got.Users[0].FullName != "Carol" {
				t.Fatalf("lookup=%s", string(body))
			}
		})
	}
}
