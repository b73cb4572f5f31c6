package repository

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/hitoshi/workboard/internal/database"
	"github.com/hitoshi/workboard/internal/model"
)

// SQLUserRepo はdatabase/sqlを使用したユーザーリポジトリ。
type SQLUserRepo struct {
	db *sql.DB
}

// NewSQLUserRepo はSQLUserRepoを生成する。
func NewSQLUserRepo(db *sql.DB) *SQLUserRepo {
	return &SQLUserRepo{db: db}
}

// Create はユーザーを作成する。同名のユーザーが存在する場合はConflictと既存のIDを返す。
func (r *SQLUserRepo) Create(ctx context.Context, in model.UserCreate) (model.Response, int64, error) {
	var (
		res model.Response
		id  int64
	)

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		existingID, found, err := lookupUserID(ctx, tx, in.Name)
		if err != nil {
			return err
		}
		if found {
			res, id = model.ResponseConflict, existingID
			return nil
		}

		if err := tx.QueryRowContext(ctx,
			`INSERT INTO users (name, email) VALUES ($1, $2) RETURNING id`,
			in.Name, in.Email,
		).Scan(&id); err != nil {
			return fmt.Errorf("failed to insert user: %w", err)
		}
		res = model.ResponseCreated
		return nil
	})
	if err != nil {
		if database.IsUniqueViolation(err) {
			existingID, found, findErr := lookupUserID(ctx, r.db, in.Name)
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

// Find は指定IDのユーザーを取得する。見つからない場合はnilを返す。
func (r *SQLUserRepo) Find(ctx context.Context, id int64) (*model.UserDTO, error) {
	user := &model.UserDTO{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, email FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Name, &user.Email)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find user by ID: %w", err)
	}

	return user, nil
}

// Read は全ユーザーを名前の昇順で返す。
// 照合順序はデータベースごとに異なるため、並べ替えはバイト順でアプリケーション側で行う。
func (r *SQLUserRepo) Read(ctx context.Context) ([]model.UserDTO, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, email FROM users`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	users := make([]model.UserDTO, 0)
	for rows.Next() {
		var user model.UserDTO
		if err := rows.Scan(&user.ID, &user.Name, &user.Email); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	slices.SortStableFunc(users, func(a, b model.UserDTO) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return users, nil
}

// Update はユーザー名を変更する。メールアドレスは変更しない。
func (r *SQLUserRepo) Update(ctx context.Context, in model.UserUpdate) (model.Response, error) {
	var res model.Response

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		exists, err := rowExists(ctx, tx, `SELECT 1 FROM users WHERE id = $1`, in.ID)
		if err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if !exists {
			res = model.ResponseNotFound
			return nil
		}

		ownerID, found, err := lookupUserID(ctx, tx, in.Name)
		if err != nil {
			return err
		}
		if found && ownerID != in.ID {
			res = model.ResponseConflict
			return nil
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE users SET name = $2 WHERE id = $1`,
			in.ID, in.Name,
		); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
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

// Delete はユーザーを削除する。
// forceはTagRepositoryとの対称性のために受け取るが、担当ワークアイテムの付け替えは行わない。
// Removed状態を含め、担当しているワークアイテムが1件でもあればConflictを返す。
func (r *SQLUserRepo) Delete(ctx context.Context, id int64, _ bool) (model.Response, error) {
	var res model.Response

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		exists, err := rowExists(ctx, tx, `SELECT 1 FROM users WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to check user: %w", err)
		}
		if !exists {
			res = model.ResponseNotFound
			return nil
		}

		assigned, err := rowExists(ctx, tx,
			`SELECT 1 FROM work_items WHERE assigned_to_id = $1 LIMIT 1`, id)
		if err != nil {
			return fmt.Errorf("failed to check assigned work items: %w", err)
		}
		if assigned {
			res = model.ResponseConflict
			return nil
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		res = model.ResponseDeleted
		return nil
	})
	if err != nil {
		return "", err
	}

	return res, nil
}

// lookupUserID は名前でユーザーIDを検索する。
func lookupUserID(ctx context.Context, q querier, name string) (int64, bool, error) {
	var id int64
	err := q.QueryRowContext(ctx, `SELECT id FROM users WHERE name = $1`, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to find user by name: %w", err)
	}
	return id, true, nil
}

// compile-time interface check
var _ UserRepository = (*SQLUserRepo)(nil)
