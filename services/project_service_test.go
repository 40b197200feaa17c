package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/horizons-db/archive-backend/editor"
	"github.com/horizons-db/archive-backend/memstore"
	"github.com/horizons-db/archive-backend/models"
	"github.com/horizons-db/archive-backend/prompt"
	"github.com/horizons-db/archive-backend/relations"
	"github.com/horizons-db/archive-backend/storage"
	"github.com/horizons-db/archive-backend/taxonomy"
)

type projectFixture struct {
	store   *memstore.Store
	objects *storage.Memory
	svc     *ProjectService
	ada     models.Person
	grace   models.Person
}

func newProjectFixture(t *testing.T) *projectFixture {
	t.Helper()
	store := memstore.New()
	store.AddKeywords("space")
	store.AddGenres("Puzzle", "Action")
	ada := store.AddPerson(models.Person{Name: "Ada Lovelace", Email: "ada@example.edu"})
	grace := store.AddPerson(models.Person{Name: "Grace Hopper", Email: "grace@example.edu", UserType: models.UserTypeInstructor})
	objects := storage.NewMemory("https://files.test/project-images")
	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	svc := NewProjectService(store, taxonomy.New(store), relations.New(store), objects,
		WithClock(func() time.Time { return clock }))
	return &projectFixture{store: store, objects: objects, svc: svc, ada: ada, grace: grace}
}

func validInput() ProjectInput {
	return ProjectInput{
		Title:       "  Orbit  ",
		Year:        2024,
		Keywords:    []string{"Space", "Gravity"},
		Genres:      []string{"Puzzle"},
		TechUsed:    []string{"Godot"},
		Creators:    []string{"ada lovelace"},
		Instructors: []string{"Grace Hopper"},
	}
}

func TestCreateProject(t *testing.T) {
	f := newProjectFixture(t)
	userID := uuid.New()
	confirm := &prompt.Recorder{Answer: true}
	images := []Image{
		{Name: "title.png", ContentType: "image/png", Data: []byte("a")},
		{Name: "level.png", ContentType: "image/png", Data: []byte("b")},
	}

	res, err := f.svc.Create(context.Background(), userID, confirm, validInput(), images)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	p := res.Project
	if p.Title != "Orbit" {
		t.Fatalf("title not trimmed: %q", p.Title)
	}
	if strings.Join(p.Keywords, ",") != "space,gravity" {
		t.Fatalf("keywords: %v", p.Keywords)
	}
	if len(confirm.Asked) != 1 || !strings.Contains(confirm.Asked[0].Message, "gravity") {
		t.Fatalf("expected one prompt for gravity, got %+v", confirm.Asked)
	}
	if len(p.Creators) != 1 || p.Creators[0] != "Ada Lovelace" {
		t.Fatalf("creators: %v", p.Creators)
	}
	if len(p.Instructors) != 1 || p.Instructors[0] != "Grace Hopper" {
		t.Fatalf("instructors: %v", p.Instructors)
	}
	if p.CreatedBy == nil || *p.CreatedBy != userID {
		t.Fatalf("created_by: %v", p.CreatedBy)
	}
	want := []string{
		"https://files.test/project-images/1714564800000_0_title.png",
		"https://files.test/project-images/1714564800000_1_level.png",
	}
	if strings.Join(p.ImageURLs, " ") != strings.Join(want, " ") {
		t.Fatalf("image urls: %v", p.ImageURLs)
	}
	if !f.objects.Has("1714564800000_0_title.png") || !f.objects.Has("1714564800000_1_level.png") {
		t.Fatalf("objects: %v", f.objects.Keys())
	}
	kws, _ := f.store.ListKeywords(context.Background())
	var gravity *models.Keyword
	for i := range kws {
		if kws[i].Keyword == "gravity" {
			gravity = &kws[i]
		}
	}
	if gravity == nil || gravity.CreatedBy == nil || *gravity.CreatedBy != userID {
		t.Fatalf("new keyword not attributed: %+v", gravity)
	}
}

func TestCreateProjectRejectsBeforeUploading(t *testing.T) {
	f := newProjectFixture(t)
	in := validInput()
	images := []Image{{Name: "a.png", ContentType: "image/png", Data: []byte("a")}}

	_, err := f.svc.Create(context.Background(), uuid.Nil, prompt.Always(false), in, images)
	if !errors.Is(err, taxonomy.ErrUserDeclinedNewTerm) {
		t.Fatalf("expected declined keyword, got %v", err)
	}

	in = validInput()
	in.Genres = []string{"Puzzle", "Horror"}
	_, err = f.svc.Create(context.Background(), uuid.Nil, prompt.Always(true), in, images)
	if !errors.Is(err, taxonomy.ErrUnknownGenre) {
		t.Fatalf("expected unknown genre, got %v", err)
	}

	in = validInput()
	in.Creators = []string{"Nobody"}
	_, err = f.svc.Create(context.Background(), uuid.Nil, prompt.Always(true), in, images)
	if !errors.Is(err, taxonomy.ErrPersonNotFound) {
		t.Fatalf("expected person not found, got %v", err)
	}

	if keys := f.objects.Keys(); len(keys) != 0 {
		t.Fatalf("nothing should be uploaded: %v", keys)
	}
	if n := f.store.Calls("CreateProject"); n != 0 {
		t.Fatalf("CreateProject called %d times", n)
	}
}

func TestRejectedCreateLeavesKeywordCatalogAlone(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		name string
		edit func(*ProjectInput)
	}{
		{"unknown genre", func(in *ProjectInput) { in.Genres = []string{"Horror"} }},
		{"unknown creator", func(in *ProjectInput) { in.Creators = []string{"Nobody"} }},
		{"unknown instructor", func(in *ProjectInput) { in.Instructors = []string{"Nobody"} }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newProjectFixture(t)
			in := validInput()
			tc.edit(&in)
			confirm := &prompt.Recorder{Answer: true}
			if _, err := f.svc.Create(ctx, uuid.Nil, confirm, in, nil); !taxonomy.IsRejection(err) {
				t.Fatalf("expected rejection, got %v", err)
			}
			if len(confirm.Asked) != 0 {
				t.Fatalf("asked about keywords before the rejection: %v", confirm.Asked)
			}
			exists, err := f.store.KeywordExists(ctx, "gravity")
			if err != nil {
				t.Fatalf("KeywordExists: %v", err)
			}
			if exists {
				t.Fatalf("keyword added by a rejected create")
			}
		})
	}
}

func TestCreateProjectValidation(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()

	in := validInput()
	in.Title = " "
	if _, err := f.svc.Create(ctx, uuid.Nil, nil, in, nil); !errors.Is(err, editor.ErrTitleRequired) {
		t.Fatalf("expected title required, got %v", err)
	}
	in = validInput()
	in.Creators = []string{" "}
	if _, err := f.svc.Create(ctx, uuid.Nil, nil, in, nil); !errors.Is(err, editor.ErrCreatorRequired) {
		t.Fatalf("expected creator required, got %v", err)
	}
	images := make([]Image, models.MaxImages+1)
	if _, err := f.svc.Create(ctx, uuid.Nil, nil, validInput(), images); !errors.Is(err, editor.ErrImageLimit) {
		t.Fatalf("expected image limit, got %v", err)
	}
}

func TestCreateProjectCleansUpAfterUploadFailure(t *testing.T) {
	f := newProjectFixture(t)
	boom := errors.New("bucket offline")
	f.objects.FailUpload = func(key string) error {
		if strings.Contains(key, "_1_") {
			return boom
		}
		return nil
	}
	in := validInput()
	in.Keywords = []string{"space"}
	images := []Image{
		{Name: "a.png", ContentType: "image/png", Data: []byte("a")},
		{Name: "b.png", ContentType: "image/png", Data: []byte("b")},
	}
	_, err := f.svc.Create(context.Background(), uuid.Nil, nil, in, images)
	if !errors.Is(err, boom) {
		t.Fatalf("expected upload error, got %v", err)
	}
	if keys := f.objects.Keys(); len(keys) != 0 {
		t.Fatalf("uploaded objects should be removed: %v", keys)
	}
	if n := f.store.Calls("CreateProject"); n != 0 {
		t.Fatalf("CreateProject called %d times", n)
	}
}

func TestCreateProjectCompressesThroughPreparer(t *testing.T) {
	f := newProjectFixture(t)
	f.svc = NewProjectService(f.store, taxonomy.New(f.store), relations.New(f.store), f.objects,
		WithClock(func() time.Time { return time.UnixMilli(1000) }),
		WithImagePreparer(func(b []byte) ([]byte, string, error) { return append([]byte("jpg:"), b...), "image/jpeg", nil }))
	in := validInput()
	in.Keywords = nil
	res, err := f.svc.Create(context.Background(), uuid.Nil, nil, in, []Image{{Name: "shot.png", ContentType: "image/png", Data: []byte("x")}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(res.Project.ImageURLs) != 1 || !strings.HasSuffix(res.Project.ImageURLs[0], "/1000_0_shot.jpg") {
		t.Fatalf("image urls: %v", res.Project.ImageURLs)
	}
}

func TestDeleteProject(t *testing.T) {
	f := newProjectFixture(t)
	ctx := context.Background()
	imgA := f.objects.Put("1_0_a.png", []byte("a"))
	imgB := f.objects.Put("1_1_b.png", []byte("b"))
	p := f.store.AddProject(models.Project{
		Title:     "Orbit",
		ImageURLs: models.NewTagSlice([]string{imgA, imgB}),
	}, []models.Person{f.ada}, nil)

	stranger := editor.Actor{PersonID: f.grace.ID}
	if err := f.svc.Delete(ctx, stranger, p.ID); !errors.Is(err, editor.ErrNotAuthorized) {
		t.Fatalf("expected not authorized, got %v", err)
	}

	f.objects.FailRemove = func(key string) error {
		if key == "1_0_a.png" {
			return errors.New("transient")
		}
		return nil
	}
	if err := f.svc.Delete(ctx, editor.Actor{PersonID: f.ada.ID}, p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if f.objects.Has("1_1_b.png") {
		t.Fatalf("image b should be removed")
	}
	if _, err := f.store.GetProject(ctx, p.ID); err == nil {
		t.Fatalf("project should be gone")
	}
}

func TestListProjectsIncludesPeople(t *testing.T) {
	f := newProjectFixture(t)
	inst := f.store.AddInstitution("State University")
	f.store.AddProject(models.Project{Title: "Orbit", InstitutionID: &inst.ID}, []models.Person{f.ada}, []models.Person{f.grace})
	f.store.AddProject(models.Project{Title: "Maze"}, []models.Person{f.grace}, nil)

	views, err := f.svc.List(context.Background(), models.ProjectFilter{Creator: "ada"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(views) != 1 || views[0].Title != "Orbit" {
		t.Fatalf("views: %+v", views)
	}
	if views[0].InstitutionName != "State University" || len(views[0].Instructors) != 1 {
		t.Fatalf("view details: %+v", views[0])
	}
}
