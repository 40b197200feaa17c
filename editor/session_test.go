package editor

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/horizons-db/archive-backend/errs"
	"github.com/horizons-db/archive-backend/memstore"
	"github.com/horizons-db/archive-backend/models"
	"github.com/horizons-db/archive-backend/prompt"
	"github.com/horizons-db/archive-backend/relations"
	"github.com/horizons-db/archive-backend/storage"
	"github.com/horizons-db/archive-backend/taxonomy"
)

type fixture struct {
	store   *memstore.Store
	objects *storage.Memory
	deps    Deps
	project *models.Project
	alice   models.Person
	imgA    string
	imgB    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	objects := storage.NewMemory("https://files.test/project-images")
	store.AddKeywords("puzzle")
	store.AddGenres("Action", "Puzzle", "Horror", "Strategy")
	alice := store.AddPerson(models.Person{Name: "Alice", Email: "alice@example.edu"})
	store.AddPerson(models.Person{Name: "Bob", Email: "bob@example.edu"})

	imgA := objects.Put("1700_0_imgA.png", []byte("a"))
	imgB := objects.Put("1700_1_imgB.png", []byte("b"))
	p := store.AddProject(models.Project{
		Title:     "Orbit",
		Year:      2023,
		Keywords:  models.NewTagSlice([]string{"puzzle"}),
		Genres:    models.NewTagSlice([]string{"Puzzle"}),
		ImageURLs: models.NewTagSlice([]string{imgA, imgB}),
	}, []models.Person{alice}, nil)

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &fixture{
		store:   store,
		objects: objects,
		deps: Deps{
			Store:   store,
			Gate:    taxonomy.New(store),
			Sync:    relations.New(store),
			Objects: objects,
			Now:     func() time.Time { return clock },
		},
		project: p,
		alice:   alice,
		imgA:    imgA,
		imgB:    imgB,
	}
}

func (f *fixture) editing(t *testing.T) *Session {
	t.Helper()
	s, err := New(context.Background(), f.deps, f.project.ID)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Begin(context.Background(), Actor{PersonID: f.alice.ID}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	return s
}

func TestBeginRequiresMembershipOrAdmin(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, err := New(ctx, f.deps, f.project.ID)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := s.Begin(ctx, Actor{PersonID: uuid.New()}); !errors.Is(err, ErrNotAuthorized) {
		t.Fatalf("stranger: expected ErrNotAuthorized, got %v", err)
	}
	if s.State() != Viewing {
		t.Fatalf("state: %v", s.State())
	}
	if err := s.Begin(ctx, Actor{IsAdmin: true}); err != nil {
		t.Fatalf("admin Begin: %v", err)
	}
	if s.State() != Editing {
		t.Fatalf("state: %v", s.State())
	}
	if err := s.Begin(ctx, Actor{IsAdmin: true}); !errors.Is(err, ErrAlreadyEditing) {
		t.Fatalf("second Begin: %v", err)
	}
}

func TestBeginSeedsDraft(t *testing.T) {
	f := newFixture(t)
	s := f.editing(t)
	d := s.Draft()
	if d.Title != "Orbit" || d.Year != 2023 {
		t.Fatalf("scalars: %+v", d)
	}
	if strings.Join(d.Creators, ",") != "Alice" || strings.Join(d.Keywords, ",") != "puzzle" {
		t.Fatalf("tags: creators=%v keywords=%v", d.Creators, d.Keywords)
	}
	if len(d.ImageURLs) != 2 || len(d.ToDelete) != 0 || len(d.ToUpload) != 0 {
		t.Fatalf("images: %+v", d)
	}
}

func TestFieldsCarryStableKeys(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, _ := New(ctx, f.deps, f.project.ID)
	viewing := s.Fields()
	for _, field := range viewing {
		if field.Editable {
			t.Fatalf("%s editable while viewing", field.Key)
		}
	}
	if err := s.Begin(ctx, Actor{IsAdmin: true}); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := s.SetField(FieldTitle, "Orbit II"); err != nil {
		t.Fatalf("SetField: %v", err)
	}
	editing := s.Fields()
	if len(editing) != len(viewing) {
		t.Fatalf("field count changed: %d vs %d", len(editing), len(viewing))
	}
	for i, field := range editing {
		if field.Key != viewing[i].Key || !field.Editable {
			t.Fatalf("field %d: %+v", i, field)
		}
		if field.Key == FieldTitle && field.Value != "Orbit II" {
			t.Fatalf("title field shows %q", field.Value)
		}
	}
}

func TestSetField(t *testing.T) {
	f := newFixture(t)
	s := f.editing(t)
	if err := s.SetField(FieldYear, "20x4"); err == nil {
		t.Fatalf("SetField year: expected parse error")
	}
	if err := s.SetField(FieldYear, " 2024 "); err != nil || s.Draft().Year != 2024 {
		t.Fatalf("SetField year: %v %d", err, s.Draft().Year)
	}
	if err := s.SetField(FieldKeywords, "x"); !errors.Is(err, ErrNotScalarField) {
		t.Fatalf("SetField keywords: %v", err)
	}
	if err := s.SetField("colour", "x"); !errors.Is(err, ErrUnknownField) {
		t.Fatalf("SetField unknown: %v", err)
	}
	inst := f.store.AddInstitution("State U")
	if err := s.SetField(FieldInstitution, inst.ID.String()); err != nil {
		t.Fatalf("SetField institution: %v", err)
	}
	if err := s.SetField(FieldInstitution, ""); err != nil || s.Draft().InstitutionID != nil {
		t.Fatalf("clear institution: %v", err)
	}
}

func TestTagsGoThroughGate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.editing(t)
	if _, err := s.AdmitTag(ctx, prompt.Always(true), models.KindKeyword, "Narrative"); err != nil {
		t.Fatalf("AdmitTag: %v", err)
	}
	if _, err := s.AdmitTag(ctx, nil, models.KindKeyword, "PUZZLE"); !errors.Is(err, taxonomy.ErrDuplicateTag) {
		t.Fatalf("duplicate: %v", err)
	}
	for _, g := range []string{"Action", "Horror"} {
		if _, err := s.AdmitTag(ctx, nil, models.KindGenre, g); err != nil {
			t.Fatalf("AdmitTag %s: %v", g, err)
		}
	}
	if _, err := s.AdmitTag(ctx, nil, models.KindGenre, "Strategy"); !errors.Is(err, taxonomy.ErrGenreLimitExceeded) {
		t.Fatalf("genre limit: %v", err)
	}
	if err := s.RemoveTag(models.KindGenre, "Horror"); err != nil {
		t.Fatalf("RemoveTag: %v", err)
	}
	if _, err := s.AdmitTag(ctx, nil, models.KindInstructor, "bob"); err != nil {
		t.Fatalf("AdmitTag instructor: %v", err)
	}
	d := s.Draft()
	if strings.Join(d.Keywords, ",") != "puzzle,narrative" || strings.Join(d.Genres, ",") != "Puzzle,Action" || strings.Join(d.Instructors, ",") != "Bob" {
		t.Fatalf("draft tags: %+v", d)
	}
}

func TestCancelDeclinedStaysEditing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.editing(t)
	s.SetField(FieldTitle, "Changed")
	rec := &prompt.Recorder{Answer: false}
	discarded, err := s.Cancel(ctx, rec)
	if err != nil || discarded {
		t.Fatalf("Cancel: %v %v", discarded, err)
	}
	if s.State() != Editing || s.Draft().Title != "Changed" {
		t.Fatalf("draft lost after declined cancel")
	}
	if len(rec.Asked) != 1 || !rec.Asked[0].Destructive {
		t.Fatalf("prompt: %+v", rec.Asked)
	}
}

func TestCancelLeavesStoreUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.editing(t)
	s.SetField(FieldTitle, "Changed")
	s.StageDelete(f.imgA)
	s.StageUpload("imgC.png", "image/png", []byte("c"))

	discarded, err := s.Cancel(ctx, prompt.Always(true))
	if err != nil || !discarded {
		t.Fatalf("Cancel: %v %v", discarded, err)
	}
	if s.State() != Viewing || s.Draft() != nil {
		t.Fatalf("still editing after cancel")
	}
	stored, err := f.store.GetProject(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if stored.Title != "Orbit" || len(stored.ImageURLs) != 2 || !stored.UpdatedAt.Equal(f.project.UpdatedAt) {
		t.Fatalf("stored record changed: %+v", stored)
	}
	if f.store.Calls("UpdateProject") != 0 || !f.objects.Has("1700_0_imgA.png") {
		t.Fatalf("cancel touched the stores")
	}
	if s.Project().Title != "Orbit" {
		t.Fatalf("view not restored: %q", s.Project().Title)
	}
}

func TestSaveRejectsEmptyTitleBeforeStoreCalls(t *testing.T) {
	f := newFixture(t)
	s := f.editing(t)
	s.SetField(FieldTitle, "   ")
	s.StageDelete(f.imgA)

	if _, err := s.Save(context.Background()); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("Save: expected ErrTitleRequired, got %v", err)
	}
	if n := f.store.Calls("UpdateProject"); n != 0 {
		t.Fatalf("UpdateProject called %d times", n)
	}
	if !f.objects.Has("1700_0_imgA.png") {
		t.Fatalf("image deleted before validation")
	}
	if s.State() != Editing {
		t.Fatalf("left Editing")
	}
}

func TestSaveRequiresCreator(t *testing.T) {
	f := newFixture(t)
	s := f.editing(t)
	s.RemoveTag(models.KindCreator, "Alice")
	if _, err := s.Save(context.Background()); !errors.Is(err, ErrCreatorRequired) {
		t.Fatalf("Save: expected ErrCreatorRequired, got %v", err)
	}
}

func TestSaveAppliesImageChanges(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.editing(t)
	if err := s.StageDelete(f.imgA); err != nil {
		t.Fatalf("StageDelete: %v", err)
	}
	if err := s.StageUpload("imgC.png", "image/png", []byte("c")); err != nil {
		t.Fatalf("StageUpload: %v", err)
	}
	s.SetField(FieldTitle, "  Orbit Remastered ")

	res, err := s.Save(ctx)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if s.State() != Viewing {
		t.Fatalf("state after save: %v", s.State())
	}
	newURL := "https://files.test/project-images/1714564800000_0_imgC.png"
	got := []string(res.Project.ImageURLs)
	if len(got) != 2 || got[0] != f.imgB || got[1] != newURL {
		t.Fatalf("image_urls: %v", got)
	}
	if f.objects.Has("1700_0_imgA.png") {
		t.Fatalf("imgA still in object store")
	}
	if !f.objects.Has("1714564800000_0_imgC.png") {
		t.Fatalf("imgC not uploaded")
	}
	if res.Project.Title != "Orbit Remastered" {
		t.Fatalf("title: %q", res.Project.Title)
	}
	if names := res.Project.MemberNames(models.RoleCreator); len(names) != 1 || names[0] != "Alice" {
		t.Fatalf("creators: %v", names)
	}
	if n := f.store.Calls("UpdateProject"); n != 1 {
		t.Fatalf("UpdateProject called %d times", n)
	}
}

func TestStageUploadEnforcesImageLimit(t *testing.T) {
	f := newFixture(t)
	s := f.editing(t)
	for i := 0; i < 3; i++ {
		if err := s.StageUpload("extra.png", "image/png", []byte{byte(i)}); err != nil {
			t.Fatalf("StageUpload %d: %v", i, err)
		}
	}
	if err := s.StageUpload("sixth.png", "image/png", []byte("x")); !errors.Is(err, ErrImageLimit) {
		t.Fatalf("expected ErrImageLimit, got %v", err)
	}
	if err := s.StageDelete(f.imgB); err != nil {
		t.Fatalf("StageDelete: %v", err)
	}
	if err := s.StageUpload("sixth.png", "image/png", []byte("x")); err != nil {
		t.Fatalf("StageUpload after delete: %v", err)
	}
	if err := s.UnstageDelete(f.imgB); !errors.Is(err, ErrImageLimit) {
		t.Fatalf("UnstageDelete: expected ErrImageLimit, got %v", err)
	}
	if err := s.UnstageUpload("sixth.png"); err != nil {
		t.Fatalf("UnstageUpload: %v", err)
	}
	if len(s.Draft().ToUpload) != 3 {
		t.Fatalf("ToUpload: %d", len(s.Draft().ToUpload))
	}
}

func TestStageDeleteUnknownImage(t *testing.T) {
	f := newFixture(t)
	s := f.editing(t)
	if err := s.StageDelete("https://elsewhere.test/x.png"); !errors.Is(err, ErrUnknownImage) {
		t.Fatalf("expected ErrUnknownImage, got %v", err)
	}
}

func TestSaveUpdateFailureKeepsEditsAndUploads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.editing(t)
	s.SetField(FieldTitle, "Orbit 2")
	s.StageDelete(f.imgA)
	s.StageUpload("imgC.png", "image/png", []byte("c"))

	boom := errors.New("connection reset by peer")
	f.store.Fail("UpdateProject", boom)
	if _, err := s.Save(ctx); !errors.Is(err, boom) {
		t.Fatalf("Save: expected update failure, got %v", err)
	}
	if s.State() != Editing || s.Draft().Title != "Orbit 2" {
		t.Fatalf("edits lost after failed save")
	}
	d := s.Draft()
	if len(d.ToDelete) != 0 || len(d.ImageURLs) != 2 || d.ToUpload[0].URL == "" {
		t.Fatalf("completed image steps not folded into draft: %+v", d)
	}
	uploads := len(f.objects.Keys())

	f.store.Fail("UpdateProject", nil)
	res, err := s.Save(ctx)
	if err != nil {
		t.Fatalf("retry Save: %v", err)
	}
	if len(f.objects.Keys()) != uploads {
		t.Fatalf("retry uploaded again: %d objects, had %d", len(f.objects.Keys()), uploads)
	}
	if res.Project.Title != "Orbit 2" || len(res.Project.ImageURLs) != 2 {
		t.Fatalf("saved: %+v", res.Project)
	}
}

func TestDeletingRetriedUploadRemovesItForGood(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.editing(t)
	s.StageUpload("imgC.png", "image/png", []byte("c"))

	f.store.Fail("UpdateProject", errors.New("connection reset by peer"))
	if _, err := s.Save(ctx); err == nil {
		t.Fatalf("Save: expected update failure")
	}
	f.store.Fail("UpdateProject", nil)
	stored := s.Draft().ToUpload[0]
	if stored.URL == "" {
		t.Fatalf("upload not recorded after failed save")
	}

	if err := s.StageDelete(stored.URL); err != nil {
		t.Fatalf("StageDelete: %v", err)
	}
	res, err := s.Save(ctx)
	if err != nil {
		t.Fatalf("retry Save: %v", err)
	}
	if f.objects.Has(stored.Key) {
		t.Fatalf("object %s still stored", stored.Key)
	}
	for _, u := range res.Project.ImageURLs {
		if u == stored.URL {
			t.Fatalf("deleted image saved again: %v", res.Project.ImageURLs)
		}
	}
	if len(res.Project.ImageURLs) != 2 {
		t.Fatalf("image_urls: got %v", res.Project.ImageURLs)
	}
}

func TestUnstageStoredUploadMarksItForRemoval(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.editing(t)
	s.StageUpload("imgC.png", "image/png", []byte("c"))

	f.store.Fail("UpdateProject", errors.New("connection reset by peer"))
	if _, err := s.Save(ctx); err == nil {
		t.Fatalf("Save: expected update failure")
	}
	f.store.Fail("UpdateProject", nil)
	key := s.Draft().ToUpload[0].Key

	if err := s.UnstageUpload("imgC.png"); err != nil {
		t.Fatalf("UnstageUpload: %v", err)
	}
	res, err := s.Save(ctx)
	if err != nil {
		t.Fatalf("retry Save: %v", err)
	}
	if f.objects.Has(key) || len(res.Project.ImageURLs) != 2 {
		t.Fatalf("unstaged upload kept: object=%v urls=%v", f.objects.Has(key), res.Project.ImageURLs)
	}
}

func TestSaveStorageFailureStaysEditing(t *testing.T) {
	f := newFixture(t)
	s := f.editing(t)
	s.StageUpload("imgC.png", "image/png", []byte("c"))
	f.objects.FailUpload = func(string) error { return errors.New("bucket unavailable") }
	if _, err := s.Save(context.Background()); err == nil {
		t.Fatalf("Save: expected error")
	}
	if s.State() != Editing || f.store.Calls("UpdateProject") != 0 {
		t.Fatalf("row written despite failed upload")
	}
}

func TestSaveSyncFailureCanRetry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.editing(t)
	s.SetField(FieldTerm, "Fall")
	f.store.Fail("ReplaceProjectMembers", errors.New("deadlock detected"))
	if _, err := s.Save(ctx); err == nil {
		t.Fatalf("Save: expected sync error")
	}
	if s.State() != Editing {
		t.Fatalf("left Editing after sync failure")
	}
	f.store.Fail("ReplaceProjectMembers", nil)
	if _, err := s.Save(ctx); err != nil {
		t.Fatalf("retry Save: %v", err)
	}
}

func TestConcurrentEditorsConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	first := f.editing(t)
	second := f.editing(t)

	second.SetField(FieldTitle, "Second")
	if _, err := second.Save(ctx); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	first.SetField(FieldTitle, "First")
	_, err := first.Save(ctx)
	if !errors.Is(err, errs.ErrStaleRecord) || !errs.IsConflict(err) {
		t.Fatalf("first Save: expected stale record conflict, got %v", err)
	}
	if first.State() != Editing {
		t.Fatalf("first left Editing")
	}
	stored, _ := f.store.GetProject(ctx, f.project.ID)
	if stored.Title != "Second" {
		t.Fatalf("stale save overwrote: %q", stored.Title)
	}
}

func TestOperationsRequireEditing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, _ := New(ctx, f.deps, f.project.ID)
	if _, err := s.Save(ctx); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("Save: %v", err)
	}
	if _, err := s.Cancel(ctx, prompt.Always(true)); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("Cancel: %v", err)
	}
	if err := s.SetField(FieldTitle, "x"); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("SetField: %v", err)
	}
	if err := s.StageUpload("a.png", "image/png", nil); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("StageUpload: %v", err)
	}
}

func TestPrepareRunsAtStaging(t *testing.T) {
	f := newFixture(t)
	f.deps.Prepare = func(data []byte) ([]byte, string, error) {
		return append([]byte("jpeg:"), data...), "image/jpeg", nil
	}
	s := f.editing(t)
	if err := s.StageUpload("c.png", "image/png", []byte("c")); err != nil {
		t.Fatalf("StageUpload: %v", err)
	}
	u := s.Draft().ToUpload[0]
	if u.ContentType != "image/jpeg" || u.Size != len("jpeg:c") {
		t.Fatalf("upload not prepared: %+v", u)
	}
}
