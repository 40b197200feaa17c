package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestModelColumnsReadsGormTags(t *testing.T) {
	cols := ModelColumns(PeopleProject{})
	want := []string{"id", "project_id", "person_id", "role"}
	if len(cols) != len(want) {
		t.Fatalf("ModelColumns: got %v want %v", cols, want)
	}
	for i := range want {
		if cols[i] != want[i] {
			t.Fatalf("ModelColumns[%d]: got %q want %q", i, cols[i], want[i])
		}
	}
}

func TestUnmappedColumns(t *testing.T) {
	got := UnmappedColumns([]string{"id", "title", "legacy"}, ModelColumns(Project{}))
	if len(got) != 1 || got[0] != "legacy" {
		t.Fatalf("UnmappedColumns: got %v", got)
	}
}

func TestProjectTagsRoundTrip(t *testing.T) {
	p := &Project{}
	if !p.SetTags(KindKeyword, []string{"puzzle"}) {
		t.Fatalf("SetTags keyword: expected true")
	}
	if p.SetTags(KindCreator, []string{"Ann"}) {
		t.Fatalf("SetTags creator: expected false")
	}
	tags := p.Tags(KindKeyword)
	tags[0] = "mutated"
	if p.Keywords[0] != "puzzle" {
		t.Fatalf("Tags returned aliased slice")
	}
}

func TestProjectNormalizeNeverNil(t *testing.T) {
	p := &Project{Title: "  Orbit  "}
	p.Normalize()
	if p.Title != "Orbit" {
		t.Fatalf("title: got %q", p.Title)
	}
	if p.Keywords == nil || p.Genres == nil || p.TechUsed == nil || p.ImageURLs == nil {
		t.Fatalf("Normalize left a nil array")
	}
}

func TestProjectMembers(t *testing.T) {
	ann := &Person{ID: uuid.New(), Name: "Ann"}
	bob := &Person{ID: uuid.New(), Name: "Bob"}
	p := &Project{Members: []PeopleProject{
		{PersonID: ann.ID, Role: RoleCreator, Person: ann},
		{PersonID: bob.ID, Role: RoleInstructor, Person: bob},
	}}
	if got := p.Tags(KindCreator); len(got) != 1 || got[0] != "Ann" {
		t.Fatalf("creators: got %v", got)
	}
	if !p.HasMember(bob.ID) || p.HasMember(uuid.New()) {
		t.Fatalf("HasMember mismatch")
	}
	c := p.Clone()
	c.Members[0].Person.Name = "Changed"
	if ann.Name != "Ann" {
		t.Fatalf("Clone shares person pointers")
	}
}

func TestInviteStatus(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Hour)
	cases := []struct {
		inv  Invite
		want string
	}{
		{Invite{IsActive: true}, "active"},
		{Invite{IsActive: false}, "inactive"},
		{Invite{IsActive: true, ExpiresAt: &past}, "expired"},
		{Invite{IsActive: true, UsedAt: &past}, "used"},
	}
	for _, tc := range cases {
		if got := tc.inv.Status(now); got != tc.want {
			t.Fatalf("Status: got %q want %q", got, tc.want)
		}
	}
}

func TestParseTagKind(t *testing.T) {
	k, err := ParseTagKind("genres")
	if err != nil || k != KindGenre {
		t.Fatalf("ParseTagKind: %v %v", k, err)
	}
	if _, err := ParseTagKind("colour"); err == nil {
		t.Fatalf("ParseTagKind: expected error")
	}
	if r, ok := KindInstructor.Role(); !ok || r != RoleInstructor {
		t.Fatalf("Role: %v %v", r, ok)
	}
}

func TestPersonNameTrimmedOnSave(t *testing.T) {
	p := &Person{Name: "  Ada Lovelace \t"}
	if err := p.BeforeSave(nil); err != nil {
		t.Fatalf("BeforeSave: %v", err)
	}
	if p.Name != "Ada Lovelace" {
		t.Fatalf("name: got %q", p.Name)
	}
}
