package api

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/horizons-db/archive-backend/editor"
	"github.com/horizons-db/archive-backend/memstore"
	"github.com/horizons-db/archive-backend/models"
)

func (f *apiFixture) beginEdit(token string) string {
	f.t.Helper()
	code, body := f.do(http.MethodPost, "/project/"+f.project.ID.String()+"/edit", token, nil)
	wantStatus(f.t, code, http.StatusCreated, body)
	if body["state"] != "editing" {
		f.t.Fatalf("state: got %v", body["state"])
	}
	return body["session_id"].(string)
}

func TestEditSaveFlow(t *testing.T) {
	f := newAPIFixture(t)
	id := f.beginEdit(f.ada.token)
	base := "/edit/" + id

	code, body := f.do(http.MethodPatch, base+"/fields", f.ada.token, FieldsRequest{Fields: map[string]string{
		"title": "Orbit Deluxe",
		"year":  "2023",
	}})
	wantStatus(t, code, http.StatusOK, body)

	code, body = f.do(http.MethodPost, base+"/tags/genres", f.ada.token, TagRequest{Value: "Action"})
	wantStatus(t, code, http.StatusOK, body)
	if body["tag"] != "Action" {
		t.Fatalf("tag: got %v", body["tag"])
	}

	code, body = f.do(http.MethodPost, base+"/tags/genre", f.ada.token, TagRequest{Value: "Horror"})
	wantStatus(t, code, http.StatusUnprocessableEntity, body)
	wantReason(t, body, "unknown_genre")

	code, body = f.do(http.MethodDelete, base+"/tags/keyword/space", f.ada.token, nil)
	wantStatus(t, code, http.StatusOK, body)

	code, body = f.do(http.MethodPost, base+"/save", f.ada.token, nil)
	wantStatus(t, code, http.StatusOK, body)
	if body["status"] != "saved" {
		t.Fatalf("status: got %v", body["status"])
	}

	code, body = f.do(http.MethodGet, "/project/"+f.project.ID.String(), "", nil)
	wantStatus(t, code, http.StatusOK, body)
	if body["title"] != "Orbit Deluxe" || body["year"].(float64) != 2023 {
		t.Fatalf("saved record: %v", body)
	}
	if got := stringsOf(body["genres"]); len(got) != 2 || got[1] != "Action" {
		t.Fatalf("genres: got %v", got)
	}
	if got := stringsOf(body["keywords"]); len(got) != 0 {
		t.Fatalf("keywords: got %v", got)
	}

	// The session is closed once saved.
	code, body = f.do(http.MethodGet, base, f.ada.token, nil)
	wantStatus(t, code, http.StatusNotFound, body)
}

func TestEditRequiresMembership(t *testing.T) {
	f := newAPIFixture(t)
	outsider := newUser(t, f.store, "Outsider", "out@example.edu", "student")
	code, body := f.do(http.MethodPost, "/project/"+f.project.ID.String()+"/edit", outsider.token, nil)
	wantStatus(t, code, http.StatusForbidden, body)

	// Admins may edit any project.
	f.beginEdit(f.admin.token)
}

func TestEditSessionBelongsToItsOwner(t *testing.T) {
	f := newAPIFixture(t)
	id := f.beginEdit(f.ada.token)
	code, body := f.do(http.MethodGet, "/edit/"+id, f.grace.token, nil)
	wantStatus(t, code, http.StatusNotFound, body)
}

func TestEditFieldErrors(t *testing.T) {
	f := newAPIFixture(t)
	base := "/edit/" + f.beginEdit(f.ada.token)

	code, body := f.do(http.MethodPatch, base+"/fields", f.ada.token, FieldsRequest{Fields: map[string]string{"year": "soon"}})
	wantStatus(t, code, http.StatusBadRequest, body)
	if body["field"] != "year" {
		t.Fatalf("field: got %v", body["field"])
	}

	code, body = f.do(http.MethodPatch, base+"/fields", f.ada.token, FieldsRequest{Fields: map[string]string{"genres": "Puzzle"}})
	wantStatus(t, code, http.StatusBadRequest, body)
	wantReason(t, body, "invalid_field")

	code, body = f.do(http.MethodPatch, base+"/fields", f.ada.token, FieldsRequest{Fields: map[string]string{"title": "  "}})
	wantStatus(t, code, http.StatusOK, body)
	code, body = f.do(http.MethodPost, base+"/save", f.ada.token, nil)
	wantStatus(t, code, http.StatusBadRequest, body)
	wantReason(t, body, "title_required")

	// A failed save leaves the session editing.
	code, body = f.do(http.MethodGet, base, f.ada.token, nil)
	wantStatus(t, code, http.StatusOK, body)
	if body["state"] != "editing" {
		t.Fatalf("state: got %v", body["state"])
	}
}

func TestEditNewKeywordNeedsConfirmation(t *testing.T) {
	f := newAPIFixture(t)
	base := "/edit/" + f.beginEdit(f.ada.token)

	code, body := f.do(http.MethodPost, base+"/tags/keywords", f.ada.token, TagRequest{Value: "Nebula"})
	wantStatus(t, code, http.StatusConflict, body)
	wantReason(t, body, "needs_confirmation")

	yes := true
	code, body = f.do(http.MethodPost, base+"/tags/keywords", f.ada.token, TagRequest{Value: "Nebula", Confirm: &yes})
	wantStatus(t, code, http.StatusOK, body)
	if body["tag"] != "nebula" {
		t.Fatalf("tag: got %v", body["tag"])
	}
	keywords, err := f.store.ListKeywords(context.Background())
	if err != nil {
		t.Fatalf("ListKeywords: %v", err)
	}
	for _, k := range keywords {
		if k.Keyword == "nebula" {
			if k.CreatedBy == nil || *k.CreatedBy != f.ada.userID {
				t.Fatalf("created_by: got %v want %s", k.CreatedBy, f.ada.userID)
			}
			return
		}
	}
	t.Fatalf("keyword nebula not coined: %v", keywords)
}

func TestEditImages(t *testing.T) {
	f := newAPIFixture(t)
	base := "/edit/" + f.beginEdit(f.ada.token)
	oldURL := f.project.ImageURLs[0]

	req := multipartRequest(t, http.MethodPost, base+"/images", nil, map[string][]byte{"new.png": []byte("\x89PNG\r\n\x1a\n0000")})
	code, body := f.send(req, f.ada.token)
	wantStatus(t, code, http.StatusOK, body)

	code, body = f.do(http.MethodDelete, base+"/images", f.ada.token, ImageRequest{URL: oldURL})
	wantStatus(t, code, http.StatusOK, body)

	code, body = f.do(http.MethodDelete, base+"/images", f.ada.token, ImageRequest{URL: "https://files.test/project-images/nope.png"})
	wantStatus(t, code, http.StatusBadRequest, body)
	wantReason(t, body, "unknown_image")

	code, body = f.do(http.MethodPost, base+"/save", f.ada.token, nil)
	wantStatus(t, code, http.StatusOK, body)
	urls := stringsOf(body["project"].(map[string]any)["image_urls"])
	if len(urls) != 1 || urls[0] == oldURL {
		t.Fatalf("image_urls: got %v", urls)
	}
	if f.objects.Has(f.objects.KeyFromURL(oldURL)) {
		t.Fatalf("old image still stored")
	}
	if !f.objects.Has(f.objects.KeyFromURL(urls[0])) {
		t.Fatalf("new image not stored")
	}
}

func TestEditCancel(t *testing.T) {
	f := newAPIFixture(t)
	base := "/edit/" + f.beginEdit(f.ada.token)

	code, body := f.do(http.MethodPost, base+"/cancel", f.ada.token, nil)
	wantStatus(t, code, http.StatusConflict, body)
	wantReason(t, body, "needs_confirmation")

	no, yes := false, true
	code, body = f.do(http.MethodPost, base+"/cancel", f.ada.token, CancelRequest{Confirm: &no})
	wantStatus(t, code, http.StatusOK, body)
	if body["status"] != "editing" {
		t.Fatalf("declined cancel: got %v", body["status"])
	}

	code, body = f.do(http.MethodPost, base+"/cancel", f.ada.token, CancelRequest{Confirm: &yes})
	wantStatus(t, code, http.StatusOK, body)
	if body["status"] != "cancelled" {
		t.Fatalf("cancel: got %v", body["status"])
	}
	code, body = f.do(http.MethodGet, base, f.ada.token, nil)
	wantStatus(t, code, http.StatusNotFound, body)
}

func TestEditStaleSave(t *testing.T) {
	f := newAPIFixture(t)
	first := "/edit/" + f.beginEdit(f.ada.token)
	second := "/edit/" + f.beginEdit(f.grace.token)

	code, body := f.do(http.MethodPost, first+"/save", f.ada.token, nil)
	wantStatus(t, code, http.StatusOK, body)

	code, body = f.do(http.MethodPost, second+"/save", f.grace.token, nil)
	wantStatus(t, code, http.StatusConflict, body)
	wantReason(t, body, "stale_record")
}

func TestSessionRegistryExpiresIdleSessions(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	reg := newSessionRegistry(time.Hour, func() time.Time { return now })
	store := memstore.New()
	p := store.AddProject(models.Project{Title: "Idle"}, nil, nil)
	s, err := editor.New(context.Background(), editor.Deps{Store: store}, p.ID)
	if err != nil {
		t.Fatalf("editor.New: %v", err)
	}
	owner := uuid.New()
	id := reg.open(owner, s)

	e, err := reg.acquire(id, owner)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	reg.release(e)

	now = now.Add(2 * time.Hour)
	if _, err := reg.acquire(id, owner); err == nil {
		t.Fatalf("expired session still available")
	}
	if reg.size() != 0 {
		t.Fatalf("registry size: got %d", reg.size())
	}
}
