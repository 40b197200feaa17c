package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/horizons-db/archive-backend/errs"
	"github.com/horizons-db/archive-backend/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestContainsPatternEscapesWildcards(t *testing.T) {
	cases := map[string]string{
		"space":    "%space%",
		"100%":     `%100\%%`,
		"snake_go": `%snake\_go%`,
		`a\b`:      `%a\\b%`,
	}
	for in, want := range cases {
		if got := containsPattern(in); got != want {
			t.Fatalf("containsPattern(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestTagColumn(t *testing.T) {
	for kind, want := range map[models.TagKind]string{
		models.KindKeyword: "keywords",
		models.KindGenre:   "genres",
		models.KindTech:    "techused",
	} {
		got, err := tagColumn(kind)
		if err != nil || got != want {
			t.Fatalf("tagColumn(%s) = %q, %v", kind, got, err)
		}
	}
	if _, err := tagColumn(models.KindCreator); err == nil {
		t.Fatalf("creator has no project column")
	}
}

func TestNotFoundTranslatesRecordNotFound(t *testing.T) {
	err := notFound("project", "x", gorm.ErrRecordNotFound)
	if !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("notFound: %v", err)
	}
	other := errors.New("boom")
	if got := notFound("project", "x", other); got != other {
		t.Fatalf("unrelated error rewritten: %v", got)
	}
}

// testStore opens TEST_POSTGRES_DSN, migrates and returns a Store. It skips
// when the variable is unset.
func testStore(t *testing.T) (*Store, *gorm.DB) {
	t.Helper()
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: dsn, PreferSimpleProtocol: true}), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("gorm.Open: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return New(db).Store(), db
}

func seedPerson(t *testing.T, db *gorm.DB, name string) models.Person {
	t.Helper()
	p := models.Person{Name: name, Email: fmt.Sprintf("%s@example.edu", uuid.NewString())}
	if err := db.Create(&p).Error; err != nil {
		t.Fatalf("create person: %v", err)
	}
	t.Cleanup(func() { db.Delete(&models.Person{}, "id = ?", p.ID) })
	return p
}

func seedProject(t *testing.T, s *Store, title string) *models.Project {
	t.Helper()
	p := &models.Project{Title: title, Keywords: models.NewTagSlice([]string{"space"})}
	if err := s.CreateProject(context.Background(), p); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}
	t.Cleanup(func() { _ = s.DeleteProject(context.Background(), p.ID) })
	return p
}

func TestUpdateProjectCompareAndSwap(t *testing.T) {
	s, _ := testStore(t)
	ctx := context.Background()
	p := seedProject(t, s, "Orbit "+uuid.NewString())

	loaded, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	snapshot := loaded.UpdatedAt

	first := loaded.Clone()
	first.Title = "Orbit II"
	if err := s.UpdateProject(ctx, first, snapshot); err != nil {
		t.Fatalf("UpdateProject: %v", err)
	}

	second := loaded.Clone()
	second.Title = "Orbit III"
	err = s.UpdateProject(ctx, second, snapshot)
	if !errors.Is(err, errs.ErrStaleRecord) {
		t.Fatalf("expected stale record, got %v", err)
	}

	if err := s.UpdateProject(ctx, second, first.UpdatedAt); err != nil {
		t.Fatalf("UpdateProject with fresh snapshot: %v", err)
	}

	missing := &models.Project{ID: uuid.New(), Title: "ghost"}
	if err := s.UpdateProject(ctx, missing, time.Now()); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestReplaceProjectMembersAndFilters(t *testing.T) {
	s, db := testStore(t)
	ctx := context.Background()
	title := "Nebula " + uuid.NewString()
	p := seedProject(t, s, title)
	ada := seedPerson(t, db, "Ada "+uuid.NewString()[:8])
	grace := seedPerson(t, db, "Grace "+uuid.NewString()[:8])

	err := s.ReplaceProjectMembers(ctx, p.ID, []models.PeopleProject{
		{PersonID: ada.ID, Role: models.RoleCreator},
		{PersonID: grace.ID, Role: models.RoleInstructor},
	})
	if err != nil {
		t.Fatalf("ReplaceProjectMembers: %v", err)
	}
	if err := s.ReplaceProjectMembers(ctx, p.ID, []models.PeopleProject{{PersonID: grace.ID, Role: models.RoleCreator}}); err != nil {
		t.Fatalf("ReplaceProjectMembers again: %v", err)
	}

	loaded, err := s.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if got := loaded.MemberNames(models.RoleCreator); len(got) != 1 || got[0] != grace.Name {
		t.Fatalf("creators: %v", got)
	}
	if got := loaded.MemberNames(models.RoleInstructor); len(got) != 0 {
		t.Fatalf("instructors should be cleared: %v", got)
	}

	found, err := s.ListProjects(ctx, models.ProjectFilter{Title: title, Creator: grace.Name[:5], Keywords: []string{"SPACE", "none"}})
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(found) != 1 || found[0].ID != p.ID {
		t.Fatalf("filtered projects: %d", len(found))
	}
	found, err = s.ListProjects(ctx, models.ProjectFilter{Title: title, Creator: ada.Name})
	if err != nil {
		t.Fatalf("ListProjects: %v", err)
	}
	if len(found) != 0 {
		t.Fatalf("ada is no longer a creator")
	}
}

func TestKeywordUniqueViolationIsRecognized(t *testing.T) {
	s, db := testStore(t)
	ctx := context.Background()
	kw := "kw-" + uuid.NewString()
	t.Cleanup(func() { db.Where("keyword = ?", kw).Delete(&models.Keyword{}) })

	if err := s.InsertKeyword(ctx, kw, nil); err != nil {
		t.Fatalf("InsertKeyword: %v", err)
	}
	err := s.InsertKeyword(ctx, kw, nil)
	if !errs.IsUniqueViolation(err) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if err := s.DeleteKeyword(ctx, kw); err != nil {
		t.Fatalf("DeleteKeyword: %v", err)
	}
	if err := s.DeleteKeyword(ctx, kw); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRedeemInviteOnce(t *testing.T) {
	s, db := testStore(t)
	ctx := context.Background()
	inv := &models.Invite{Code: "T-" + uuid.NewString(), Email: uuid.NewString() + "@example.edu", IsActive: true}
	if err := s.CreateInvite(ctx, inv); err != nil {
		t.Fatalf("CreateInvite: %v", err)
	}
	t.Cleanup(func() { _ = s.DeleteInvite(ctx, inv.ID) })

	person := &models.Person{Name: "Redeemer " + uuid.NewString()[:8], Email: inv.Email}
	if err := s.RedeemInvite(ctx, inv.ID, person, time.Now()); err != nil {
		t.Fatalf("RedeemInvite: %v", err)
	}
	t.Cleanup(func() { db.Delete(&models.Person{}, "id = ?", person.ID) })

	again := &models.Person{Name: "Second " + uuid.NewString()[:8], Email: uuid.NewString() + "@example.edu"}
	if err := s.RedeemInvite(ctx, inv.ID, again, time.Now()); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	stored, err := s.FindInviteByCode(ctx, inv.Code)
	if err != nil {
		t.Fatalf("FindInviteByCode: %v", err)
	}
	if stored.UsedAt == nil {
		t.Fatalf("invite not marked used")
	}
}

func TestPersonNamesAreTrimmedAndUnique(t *testing.T) {
	_, db := testStore(t)
	ctx := context.Background()
	repo := NewPersonRepo(db)
	name := "Padded " + uuid.NewString()[:8]

	first := &models.Person{Name: "  " + name + " ", Email: uuid.NewString() + "@example.edu"}
	if err := repo.Add(ctx, first); err != nil {
		t.Fatalf("Add: %v", err)
	}
	t.Cleanup(func() { db.Delete(&models.Person{}, "id = ?", first.ID) })
	found, err := repo.FindByName(ctx, name)
	if err != nil || len(found) != 1 || found[0].Name != name {
		t.Fatalf("FindByName: %v %+v", err, found)
	}

	second := &models.Person{Name: name + "  ", Email: uuid.NewString() + "@example.edu"}
	if err := repo.Add(ctx, second); !errs.IsUniqueViolation(err) {
		t.Fatalf("second Add: expected unique violation, got %v", err)
	}
}
