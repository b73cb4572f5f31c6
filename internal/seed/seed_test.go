package seed

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hitoshi/workboard/internal/database"
	"github.com/hitoshi/workboard/internal/model"
	"github.com/hitoshi/workboard/internal/repository"
)

const sampleFixture = `
users:
  - name: jim
    email: jim@example.com
  - name: Bob
    email: bob@example.com
tags:
  - Custom
  - Fancy
work_items:
  - title: Get things done
    assignee: jim
    tags: [Custom]
  - title: Make food
    description: eggs and bread
    assignee: Bob
    tags: [Fancy, Kitchen]
    state: active
`

func newTestRepos(t *testing.T) Repositories {
	t.Helper()
	url := database.SQLiteURL(filepath.Join(t.TempDir(), "seed.db"))
	if err := database.RunMigrations(url); err != nil {
		t.Fatalf("RunMigrations: %v", err)
	}
	db, err := database.Open(url)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	return Repositories{
		Tags:      repository.NewSQLTagRepo(db),
		Users:     repository.NewSQLUserRepo(db),
		WorkItems: repository.NewSQLWorkItemRepo(db),
	}
}

func TestParse_Valid(t *testing.T) {
	f, err := Parse(strings.NewReader(sampleFixture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.Users) != 2 || len(f.Tags) != 2 || len(f.WorkItems) != 2 {
		t.Fatalf("fixture = %+v", f)
	}
	if f.WorkItems[1].State != "active" || f.WorkItems[1].Assignee != "Bob" {
		t.Errorf("work_items[1] = %+v", f.WorkItems[1])
	}
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.Users) != 0 || len(f.WorkItems) != 0 {
		t.Errorf("fixture = %+v, want empty", f)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown field", "projects: []"},
		{"bad email", "users:\n  - name: jim\n    email: nope"},
		{"missing title", "work_items:\n  - assignee: jim"},
		{"unknown state", "work_items:\n  - title: x\n    state: archived"},
		{"long tag", "tags:\n  - " + strings.Repeat("t", 51)},
		{"not yaml", "users: [:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse(strings.NewReader(tt.yaml)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fixture.yaml")
	if err := os.WriteFile(path, []byte(sampleFixture), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if _, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_CreatesEntities(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	f, err := Parse(strings.NewReader(sampleFixture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	sum, err := Load(ctx, repos, f)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Summary{UsersCreated: 2, TagsCreated: 2, WorkItemsCreated: 2}
	if *sum != want {
		t.Errorf("summary = %+v, want %+v", *sum, want)
	}

	active, err := repos.WorkItems.ReadByState(ctx, model.StateActive)
	if err != nil {
		t.Fatalf("ReadByState: %v", err)
	}
	if len(active) != 1 || active[0].Title != "Make food" || active[0].AssignedToName != "Bob" {
		t.Errorf("active = %+v", active)
	}

	// work_itemsでのみ参照されたタグも作成される
	tags, err := repos.Tags.Read(ctx)
	if err != nil {
		t.Fatalf("Read tags: %v", err)
	}
	if len(tags) != 3 {
		t.Errorf("tags = %+v, want 3", tags)
	}
}

func TestLoad_SecondRunReusesUsersAndTags(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	f, err := Parse(strings.NewReader(sampleFixture))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if _, err := Load(ctx, repos, f); err != nil {
		t.Fatalf("first Load: %v", err)
	}
	sum, err := Load(ctx, repos, f)
	if err != nil {
		t.Fatalf("second Load: %v", err)
	}

	want := Summary{UsersReused: 2, TagsReused: 2, WorkItemsCreated: 2}
	if *sum != want {
		t.Errorf("summary = %+v, want %+v", *sum, want)
	}
}

func TestLoad_AssigneeFromExistingUsers(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	if _, _, err := repos.Users.Create(ctx, model.UserCreate{Name: "jim", Email: "jim@example.com"}); err != nil {
		t.Fatalf("create user: %v", err)
	}

	f := &Fixture{WorkItems: []WorkItemFixture{{Title: "Get things done", Assignee: "jim"}}}
	if _, err := Load(ctx, repos, f); err != nil {
		t.Fatalf("Load: %v", err)
	}

	f = &Fixture{WorkItems: []WorkItemFixture{{Title: "Orphan", Assignee: "nobody"}}}
	if _, err := Load(ctx, repos, f); err == nil {
		t.Error("expected error for unknown assignee")
	}
}

// failingUpdateRepo はUpdateだけを失敗させるワークアイテムリポジトリ。
type failingUpdateRepo struct {
	repository.WorkItemRepository
}

func (r failingUpdateRepo) Update(ctx context.Context, item model.WorkItemUpdate) (model.Response, error) {
	return "", errors.New("connection reset")
}

// 状態遷移に失敗した場合、Newのまま作成された項目は残らない
func TestLoad_StateFailureDiscardsCreatedItem(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)
	base := repos.WorkItems
	repos.WorkItems = failingUpdateRepo{WorkItemRepository: base}

	f := &Fixture{WorkItems: []WorkItemFixture{{Title: "Make food", State: "active"}}}
	_, err := Load(ctx, repos, f)
	if err == nil || !strings.Contains(err.Error(), "connection reset") {
		t.Fatalf("err = %v, want update failure", err)
	}

	items, err := base.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("work items = %+v, want none", items)
	}
}

// 不正な状態は作成前に検出される
func TestLoad_UnknownStateCreatesNothing(t *testing.T) {
	ctx := context.Background()
	repos := newTestRepos(t)

	f := &Fixture{WorkItems: []WorkItemFixture{{Title: "Make food", State: "archived"}}}
	if _, err := Load(ctx, repos, f); err == nil {
		t.Fatal("expected error for unknown state")
	}

	items, err := repos.WorkItems.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("work items = %+v, want none", items)
	}
}
