package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/horizons-db/archive-backend/config"
	"github.com/horizons-db/archive-backend/memstore"
	"github.com/horizons-db/archive-backend/models"
	"github.com/horizons-db/archive-backend/storage"
)

const testSecret = "test-jwt-secret"

type fakeMailer struct {
	sent []string
}

func (m *fakeMailer) SendEmail(_ context.Context, subject, body string, recipients []string) error {
	m.sent = append(m.sent, recipients...)
	return nil
}

type testUser struct {
	userID uuid.UUID
	email  string
	person models.Person
	token  string
}

type apiFixture struct {
	t       *testing.T
	store   *memstore.Store
	objects *storage.Memory
	mailer  *fakeMailer
	handler http.Handler
	ada     testUser
	grace   testUser
	admin   testUser
	project *models.Project
}

func signToken(t *testing.T, secret string, sub uuid.UUID, email string, exp time.Time) string {
	t.Helper()
	claims := supabaseClaims{
		Email: email,
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub.String(),
			Audience:  jwt.ClaimStrings{supabaseAudience},
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	return signed
}

func newUser(t *testing.T, store *memstore.Store, name, email, userType string) testUser {
	t.Helper()
	userID := uuid.New()
	p := store.AddPerson(models.Person{UserID: &userID, Name: name, Email: email, UserType: userType})
	return testUser{
		userID: userID,
		email:  email,
		person: p,
		token:  signToken(t, testSecret, userID, email, time.Now().Add(time.Hour)),
	}
}

func testSettings() config.Settings {
	return config.Settings{
		Env:             config.Dev,
		JWTSecret:       testSecret,
		AcceptedOrigins: []string{"http://localhost:3000"},
		InvitePrefix:    "HZN",
		InviteTTL:       24 * time.Hour,
		EditSessionTTL:  time.Hour,
		MaxUploadMB:     5,
	}
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	store := memstore.New()
	store.AddKeywords("space", "gravity")
	store.AddGenres("Puzzle", "Action", "Strategy", "Platformer")
	objects := storage.NewMemory("https://files.test/project-images")
	mailer := &fakeMailer{}

	f := &apiFixture{t: t, store: store, objects: objects, mailer: mailer}
	f.ada = newUser(t, store, "Ada Lovelace", "ada@example.edu", models.UserTypeStudent)
	f.grace = newUser(t, store, "Grace Hopper", "grace@example.edu", models.UserTypeInstructor)
	f.admin = newUser(t, store, "Archive Admin", "admin@example.edu", models.UserTypeAdmin)

	f.project = store.AddProject(models.Project{
		Title:     "Orbit",
		Keywords:  models.NewTagSlice([]string{"space"}),
		Genres:    models.NewTagSlice([]string{"Puzzle"}),
		ImageURLs: models.NewTagSlice([]string{objects.Put("1700_0_orbit.png", []byte("png"))}),
	}, []models.Person{f.ada.person}, []models.Person{f.grace.person})

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f.handler = newRouter(testSettings(), store, objects,
		WithMailer(mailer),
		WithClock(func() time.Time { return clock }),
	)
	return f
}

// do sends body as JSON and decodes the JSON response.
func (f *apiFixture) do(method, path, token string, body any) (int, map[string]any) {
	f.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			f.t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return f.send(req, token)
}

func (f *apiFixture) send(req *http.Request, token string) (int, map[string]any) {
	f.t.Helper()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	out := map[string]any{}
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
			f.t.Fatalf("%s %s: response is not JSON: %v: %s", req.Method, req.URL.Path, err, rec.Body.String())
		}
	}
	return rec.Code, out
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	for name, data := range files {
		fw, err := mw.CreateFormFile("images", name)
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write(data)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func wantStatus(t *testing.T, got, want int, body map[string]any) {
	t.Helper()
	if got != want {
		t.Fatalf("status: got %d want %d: %v", got, want, body)
	}
}

func wantReason(t *testing.T, body map[string]any, reason string) {
	t.Helper()
	if body["reason"] != reason {
		t.Fatalf("reason: got %v want %q: %v", body["reason"], reason, body)
	}
}

func stringsOf(v any) []string {
	items, _ := v.([]any)
	out := make([]string, 0, len(items))
	for _, it := range items {
		s, _ := it.(string)
		out = append(out, s)
	}
	return out
}
