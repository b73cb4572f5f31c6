// Package seed はYAMLフィクスチャを読み込み、リポジトリ経由で初期データを投入する。
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hitoshi/workboard/internal/model"
	"github.com/hitoshi/workboard/internal/repository"
)

// Fixture はシードファイルの内容。
type Fixture struct {
	Users     []UserFixture     `yaml:"users"`
	Tags      []string          `yaml:"tags"`
	WorkItems []WorkItemFixture `yaml:"work_items"`
}

// UserFixture はユーザー1件分の定義。
type UserFixture struct {
	Name  string `yaml:"name"`
	Email string `yaml:"email"`
}

// WorkItemFixture はワークアイテム1件分の定義。
// Assigneeはユーザー名で指定する。Stateを省略した場合はnew。
type WorkItemFixture struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Assignee    string   `yaml:"assignee"`
	Tags        []string `yaml:"tags"`
	State       string   `yaml:"state"`
}

// Repositories はシード投入に使うリポジトリ群。
type Repositories struct {
	Tags      repository.TagRepository
	Users     repository.UserRepository
	WorkItems repository.WorkItemRepository
}

// Summary は投入結果の件数。既存の同名エンティティはReusedに数える。
type Summary struct {
	UsersCreated     int
	UsersReused      int
	TagsCreated      int
	TagsReused       int
	WorkItemsCreated int
}

// Parse はYAMLを読み込み、内容を検証したFixtureを返す。
func Parse(r io.Reader) (*Fixture, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f Fixture
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return &f, nil
		}
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFile はファイルからFixtureを読み込む。
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %s: %w", path, err)
	}
	return Parse(bytes.NewReader(data))
}

func (f *Fixture) validate() error {
	for i, u := range f.Users {
		if err := model.ValidateName(u.Name); err != nil {
			return fmt.Errorf("users[%d]: %w", i, err)
		}
		if err := model.ValidateEmail(u.Email); err != nil {
			return fmt.Errorf("users[%d]: %w", i, err)
		}
	}
	for i, name := range f.Tags {
		if err := model.ValidateName(name); err != nil {
			return fmt.Errorf("tags[%d]: %w", i, err)
		}
	}
	for i, w := range f.WorkItems {
		if err := model.ValidateTitle(w.Title); err != nil {
			return fmt.Errorf("work_items[%d]: %w", i, err)
		}
		if w.State != "" {
			if _, ok := model.ParseState(w.State); !ok {
				return fmt.Errorf("work_items[%d]: unknown state %q", i, w.State)
			}
		}
		for _, tag := range w.Tags {
			if err := model.ValidateName(tag); err != nil {
				return fmt.Errorf("work_items[%d]: tag %q: %w", i, tag, err)
			}
		}
	}
	return nil
}

// Load はFixtureの内容をユーザー、タグ、ワークアイテムの順に投入する。
// ワークアイテムは重複判定を持たないため、実行のたびに新規作成される。
func Load(ctx context.Context, repos Repositories, f *Fixture) (*Summary, error) {
	sum := &Summary{}

	userIDs, err := existingUserIDs(ctx, repos.Users)
	if err != nil {
		return nil, err
	}

	for _, u := range f.Users {
		res, id, err := repos.Users.Create(ctx, model.UserCreate{Name: u.Name, Email: u.Email})
		if err != nil {
			return nil, fmt.Errorf("failed to create user %q: %w", u.Name, err)
		}
		switch res {
		case model.ResponseCreated:
			sum.UsersCreated++
		case model.ResponseConflict:
			sum.UsersReused++
		default:
			return nil, fmt.Errorf("unexpected result %s creating user %q", res, u.Name)
		}
		userIDs[u.Name] = id
	}

	for _, name := range f.Tags {
		res, _, err := repos.Tags.Create(ctx, model.TagCreate{Name: name})
		if err != nil {
			return nil, fmt.Errorf("failed to create tag %q: %w", name, err)
		}
		if res == model.ResponseConflict {
			sum.TagsReused++
		} else {
			sum.TagsCreated++
		}
	}

	for _, w := range f.WorkItems {
		if err := loadWorkItem(ctx, repos.WorkItems, userIDs, w); err != nil {
			return nil, err
		}
		sum.WorkItemsCreated++
	}

	slog.Info("seed loaded",
		slog.Int("users_created", sum.UsersCreated),
		slog.Int("users_reused", sum.UsersReused),
		slog.Int("tags_created", sum.TagsCreated),
		slog.Int("tags_reused", sum.TagsReused),
		slog.Int("work_items_created", sum.WorkItemsCreated),
	)
	return sum, nil
}

// loadWorkItem はワークアイテムを作成し、new以外の状態が指定されていれば更新で遷移させる。
// 作成と遷移は別トランザクションになるため、遷移に失敗した場合はNewのまま残った項目を削除する。
func loadWorkItem(ctx context.Context, repo repository.WorkItemRepository, userIDs map[string]int64, w WorkItemFixture) error {
	state := model.StateNew
	if w.State != "" {
		parsed, ok := model.ParseState(w.State)
		if !ok {
			return fmt.Errorf("work item %q: unknown state %q", w.Title, w.State)
		}
		state = parsed
	}

	var assignee *int64
	if w.Assignee != "" {
		id, ok := userIDs[w.Assignee]
		if !ok {
			return fmt.Errorf("work item %q: unknown assignee %q", w.Title, w.Assignee)
		}
		assignee = &id
	}

	res, id, err := repo.Create(ctx, model.WorkItemCreate{
		Title:        w.Title,
		AssignedToID: assignee,
		Description:  w.Description,
		Tags:         w.Tags,
	})
	if err != nil {
		return fmt.Errorf("failed to create work item %q: %w", w.Title, err)
	}
	if res != model.ResponseCreated {
		return fmt.Errorf("unexpected result %s creating work item %q", res, w.Title)
	}
	if state == model.StateNew {
		return nil
	}

	res, err = repo.Update(ctx, model.WorkItemUpdate{
		ID:           id,
		Title:        w.Title,
		AssignedToID: assignee,
		Description:  w.Description,
		Tags:         w.Tags,
		State:        state,
	})
	if err == nil && res != model.ResponseUpdated {
		err = fmt.Errorf("unexpected result %s", res)
	}
	if err != nil {
		return errors.Join(
			fmt.Errorf("failed to set state of work item %q: %w", w.Title, err),
			discardWorkItem(ctx, repo, id),
		)
	}
	return nil
}

// discardWorkItem は作成直後（New状態）のワークアイテムを物理削除する。
func discardWorkItem(ctx context.Context, repo repository.WorkItemRepository, id int64) error {
	res, err := repo.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to discard work item %d: %w", id, err)
	}
	if res != model.ResponseDeleted {
		return fmt.Errorf("unexpected result %s discarding work item %d", res, id)
	}
	slog.Warn("discarded partially seeded work item", slog.Int64("id", id))
	return nil
}

func existingUserIDs(ctx context.Context, users repository.UserRepository) (map[string]int64, error) {
	list, err := users.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read users: %w", err)
	}
	ids := make(map[string]int64, len(list))
	for _, u := range list {
		ids[u.Name] = u.ID
	}
	return ids, nil
}
