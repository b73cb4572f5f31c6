package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/workboard/internal/database"
	"github.com/hitoshi/workboard/internal/model"
)

// SQLTagRepo はdatabase/sqlを使用したタグリポジトリ。
// PostgreSQLとSQLiteの両方で同じSQLを使用する。
type SQLTagRepo struct {
	db *sql.DB
}

// NewSQLTagRepo はSQLTagRepoを生成する。
func NewSQLTagRepo(db *sql.DB) *SQLTagRepo {
	return &SQLTagRepo{db: db}
}

// Create はタグを作成する。同名のタグが存在する場合はConflictと既存のIDを返す。
func (r *SQLTagRepo) Create(ctx context.Context, in model.TagCreate) (model.Response, int64, error) {
	var (
		res model.Response
		id  int64
	)

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		existingID, found, err := lookupTagID(ctx, tx, in.Name)
		if err != nil {
			return err
		}
		if found {
			res, id = model.ResponseConflict, existingID
			return nil
		}

		if err := tx.QueryRowContext(ctx,
			`INSERT INTO tags (name) VALUES ($1) RETURNING id`,
			in.Name,
		).Scan(&id); err != nil {
			return fmt.Errorf("failed to insert tag: %w", err)
		}
		res = model.ResponseCreated
		return nil
	})
	if err != nil {
		// 同名の同時作成に負けた場合は、勝った側のIDでConflictを返す
		if database.IsUniqueViolation(err) {
			existingID, found, findErr := lookupTagID(ctx, r.db, in.Name)
			if findErr != nil {
				return "", 0, findErr
			}
			if found {
				return model.ResponseConflict, existingID, nil
			}
		}
		return "", 0, err
	}

	return res, id, nil
}

// Find は指定IDのタグを取得する。見つからない場合はnilを返す。
func (r *SQLTagRepo) Find(ctx context.Context, id int64) (*model.TagDTO, error) {
	tag := &model.TagDTO{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name FROM tags WHERE id = $1`,
		id,
	).Scan(&tag.ID, &tag.Name)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find tag by ID: %w", err)
	}

	return tag, nil
}

// Read は全タグをID順で返す。
func (r *SQLTagRepo) Read(ctx context.Context) ([]model.TagDTO, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM tags ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tags: %w", err)
	}
	defer rows.Close()

	tags := make([]model.TagDTO, 0)
	for rows.Next() {
		var tag model.TagDTO
		if err := rows.Scan(&tag.ID, &tag.Name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}

	return tags, nil
}

// Update はタグ名を変更する。
func (r *SQLTagRepo) Update(ctx context.Context, in model.TagUpdate) (model.Response, error) {
	var res model.Response

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		exists, err := rowExists(ctx, tx, `SELECT 1 FROM tags WHERE id = $1`, in.ID)
		if err != nil {
			return fmt.Errorf("failed to check tag: %w", err)
		}
		if !exists {
			res = model.ResponseNotFound
			return nil
		}

		ownerID, found, err := lookupTagID(ctx, tx, in.Name)
		if err != nil {
			return err
		}
		if found && ownerID != in.ID {
			res = model.ResponseConflict
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE tags SET name = $2 WHERE id = $1`,
			in.ID, in.Name,
		); err != nil {
			return fmt.Errorf("failed to update tag: %w", err)
		}
		res = model.ResponseUpdated
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			return model.ResponseConflict, nil
		}
		return "", err
	}

	return res, nil
}

// Delete はタグを削除する。
// force時の関連解除とタグ削除は同一トランザクションで行うため、
// 途中で失敗しても削除済みタグへの参照は残らない。
func (r *SQLTagRepo) Delete(ctx context.Context, id int64, force bool) (model.Response, error) {
	var res model.Response

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		exists, err := rowExists(ctx, tx, `SELECT 1 FROM tags WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to check tag: %w", err)
		}
		if !exists {
			res = model.ResponseNotFound
			return nil
		}

		var refs int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM work_item_tags WHERE tag_id = $1`,
			id,
		).Scan(&refs); err != nil {
			return fmt.Errorf("failed to count tag references: %w", err)
		}

		if refs > 0 {
			if !force {
				res = model.ResponseConflict
				return nil
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM work_item_tags WHERE tag_id = $1`,
				id,
			); err != nil {
				return fmt.Errorf("failed to detach tag from work items: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM tags WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete tag: %w", err)
		}
		res = model.ResponseDeleted
		return nil
	})
	if err != nil {
		return "", err
	}

	return res, nil
}

// lookupTagID は名前でタグIDを検索する。
func lookupTagID(ctx context.Context, q querier, name string) (int64, bool, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM tags WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to find tag by name: %w", err)
	}
	return id, true, nil
}

// rowExists はqueryが1行以上返すかを判定する。
func rowExists(ctx context.Context, q querier, query string, args ...any) (bool, error) {
	var one int
	err := q.QueryRowContext(ctx, query, args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// compile-time interface check
var _ TagRepository = (*SQLTagRepo)(nil)
