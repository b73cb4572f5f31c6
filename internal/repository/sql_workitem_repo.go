package repository

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/hitoshi/workboard/internal/model"
)

const (
	workItemListQuery = `SELECT w.id, w.title, COALESCE(u.name, ''), w.state
		 FROM work_items w
		 LEFT JOIN users u ON u.id = w.assigned_to_id`

	workItemTagsQuery = `SELECT wt.work_item_id, t.name
		 FROM work_item_tags wt
		 JOIN tags t ON t.id = wt.tag_id
		 JOIN work_items w ON w.id = wt.work_item_id`

	filterByState = `WHERE w.state = $1`
	filterByUser  = `WHERE w.assigned_to_id = $1`
	filterByTag   = `WHERE w.id IN (
		     SELECT ft.work_item_id FROM work_item_tags ft
		     JOIN tags tf ON tf.id = ft.tag_id
		     WHERE tf.name = $1)`
	filterByID = `WHERE w.id = $1`
)

// SQLWorkItemRepo はdatabase/sqlを使用したワークアイテムリポジトリ。
// ライフサイクル状態による削除制御とタグの実体化を担う。
type SQLWorkItemRepo struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLWorkItemRepo はSQLWorkItemRepoを生成する。
func NewSQLWorkItemRepo(db *sql.DB) *SQLWorkItemRepo {
	return &SQLWorkItemRepo{
		db: db,
		now: func() time.Time {
			// PostgreSQLのTIMESTAMPTZの精度に揃える
			return time.Now().UTC().Truncate(time.Microsecond)
		},
	}
}

// Create はNew状態のワークアイテムを作成する。
// 作成日時と状態更新日時には同じ現在時刻を設定する。
// 担当者の存在確認は行わず、存在しないユーザーIDは外部キー制約違反のエラーになる。
func (r *SQLWorkItemRepo) Create(ctx context.Context, in model.WorkItemCreate) (model.Response, int64, error) {
	var id int64

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		refs, err := materializeTags(ctx, tx, in.Tags)
		if err != nil {
			return err
		}
		if err := persistTags(ctx, tx, refs); err != nil {
			return err
		}

		now := r.now()
		if err := tx.QueryRowContext(ctx,
			`INSERT INTO work_items (title, description, assigned_to_id, state, created_at, state_updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`,
			in.Title, nullString(in.Description), nullInt64(in.AssignedToID), string(model.StateNew), now, now,
		).Scan(&id); err != nil {
			return fmt.Errorf("failed to insert work item: %w", err)
		}

		return replaceWorkItemTags(ctx, tx, id, refs)
	})
	if err != nil {
		return "", 0, err
	}

	return model.ResponseCreated, id, nil
}

// Find は指定IDのワークアイテム詳細を取得する。見つからない場合はnilを返す。
func (r *SQLWorkItemRepo) Find(ctx context.Context, id int64) (*model.WorkItemDetails, error) {
	var details *model.WorkItemDetails

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var (
			d                     model.WorkItemDetails
			state                 string
			created, stateUpdated dbTime
		)
		err := tx.QueryRowContext(ctx,
			`SELECT w.id, w.title, COALESCE(w.description, ''), w.created_at,
			        COALESCE(u.name, ''), w.state, w.state_updated_at
			 FROM work_items w
			 LEFT JOIN users u ON u.id = w.assigned_to_id
			 WHERE w.id = $1`,
			id,
		).Scan(&d.ID, &d.Title, &d.Description, &created, &d.AssignedToName, &state, &stateUpdated)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to find work item by ID: %w", err)
		}

		tags, err := loadTagNames(ctx, tx, filterByID, id)
		if err != nil {
			return err
		}

		d.Created = created.Time
		d.StateUpdated = stateUpdated.Time
		d.State = model.State(state)
		d.Tags = tagsOf(tags, d.ID)
		details = &d
		return nil
	})
	if err != nil {
		return nil, err
	}

	return details, nil
}

// Read は全ワークアイテムをタイトルの昇順（バイト順、同一タイトルはID順）で返す。
func (r *SQLWorkItemRepo) Read(ctx context.Context) ([]model.WorkItemDTO, error) {
	items, err := r.list(ctx, "")
	if err != nil {
		return nil, err
	}

	slices.SortStableFunc(items, func(a, b model.WorkItemDTO) int {
		if c := strings.Compare(a.Title, b.Title); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	return items, nil
}

// ReadByState は指定状態のワークアイテムをID順で返す。
func (r *SQLWorkItemRepo) ReadByState(ctx context.Context, state model.State) ([]model.WorkItemDTO, error) {
	return r.list(ctx, filterByState, string(state))
}

// ReadByTag は指定タグ名を持つワークアイテムをID順で返す。
func (r *SQLWorkItemRepo) ReadByTag(ctx context.Context, tag string) ([]model.WorkItemDTO, error) {
	return r.list(ctx, filterByTag, tag)
}

// ReadByUser は指定ユーザーが担当するワークアイテムをID順で返す。
func (r *SQLWorkItemRepo) ReadByUser(ctx context.Context, userID int64) ([]model.WorkItemDTO, error) {
	return r.list(ctx, filterByUser, userID)
}

// ReadRemoved はRemoved状態のワークアイテムをID順で返す。
func (r *SQLWorkItemRepo) ReadRemoved(ctx context.Context) ([]model.WorkItemDTO, error) {
	return r.ReadByState(ctx, model.StateRemoved)
}

// Update はワークアイテムを全項目置き換えで更新する。
//
// 判定順:
//  1. 対象が存在しなければNotFound
//  2. 状態が5つの値のいずれでもなければBadRequest
//  3. 担当者が現在と異なり、変更先のユーザーが存在しなければBadRequest（nilへの変更を含む）
//
// 状態更新日時は状態が変わった場合のみ更新する。
func (r *SQLWorkItemRepo) Update(ctx context.Context, in model.WorkItemUpdate) (model.Response, error) {
	var res model.Response

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var (
			currentAssignee sql.NullInt64
			currentState    string
		)
		err := tx.QueryRowContext(ctx,
			`SELECT assigned_to_id, state FROM work_items WHERE id = $1`,
			in.ID,
		).Scan(&currentAssignee, &currentState)
		if errors.Is(err, sql.ErrNoRows) {
			res = model.ResponseNotFound
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load work item: %w", err)
		}

		if !in.State.IsValid() {
			res = model.ResponseBadRequest
			return nil
		}

		// 担当者が変わる場合は変更先のユーザーが存在しなければならない。nilへの変更も同様に拒否する。
		if !sameAssignee(int64Ptr(currentAssignee), in.AssignedToID) {
			if in.AssignedToID == nil {
				res = model.ResponseBadRequest
				return nil
			}
			exists, err := rowExists(ctx, tx, `SELECT 1 FROM users WHERE id = $1`, *in.AssignedToID)
			if err != nil {
				return fmt.Errorf("failed to check assignee: %w", err)
			}
			if !exists {
				res = model.ResponseBadRequest
				return nil
			}
		}

		refs, err := materializeTags(ctx, tx, in.Tags)
		if err != nil {
			return err
		}
		if err := persistTags(ctx, tx, refs); err != nil {
			return err
		}

		if model.State(currentState) != in.State {
			_, err = tx.ExecContext(ctx,
				`UPDATE work_items
				 SET title = $2, description = $3, assigned_to_id = $4, state = $5, state_updated_at = $6
				 WHERE id = $1`,
				in.ID, in.Title, nullString(in.Description), nullInt64(in.AssignedToID), string(in.State), r.now(),
			)
		} else {
			_, err = tx.ExecContext(ctx,
				`UPDATE work_items
				 SET title = $2, description = $3, assigned_to_id = $4
				 WHERE id = $1`,
				in.ID, in.Title, nullString(in.Description), nullInt64(in.AssignedToID),
			)
		}
		if err != nil {
			return fmt.Errorf("failed to update work item: %w", err)
		}

		if err := replaceWorkItemTags(ctx, tx, in.ID, refs); err != nil {
			return err
		}
		res = model.ResponseUpdated
		return nil
	})
	if err != nil {
		return "", err
	}

	return res, nil
}

// Delete は状態に応じてワークアイテムを削除する。
//
//	New                       -> 行とタグ関連を物理削除（Deleted）
//	Active                    -> Removedへ遷移（Deleted）
//	Resolved/Closed/Removed   -> 変更なし（Conflict）
func (r *SQLWorkItemRepo) Delete(ctx context.Context, id int64) (model.Response, error) {
	var res model.Response

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		var state string
		err := tx.QueryRowContext(ctx,
			`SELECT state FROM work_items WHERE id = $1`,
			id,
		).Scan(&state)
		if errors.Is(err, sql.ErrNoRows) {
			res = model.ResponseNotFound
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to load work item: %w", err)
		}

		switch model.State(state) {
		case model.StateNew:
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM work_item_tags WHERE work_item_id = $1`, id,
			); err != nil {
				return fmt.Errorf("failed to delete work item tags: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM work_items WHERE id = $1`, id,
			); err != nil {
				return fmt.Errorf("failed to delete work item: %w", err)
			}
			res = model.ResponseDeleted

		case model.StateActive:
			if _, err := tx.ExecContext(ctx,
				`UPDATE work_items SET state = $2, state_updated_at = $3 WHERE id = $1`,
				id, string(model.StateRemoved), r.now(),
			); err != nil {
				return fmt.Errorf("failed to mark work item as removed: %w", err)
			}
			res = model.ResponseDeleted

		default:
			res = model.ResponseConflict
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	return res, nil
}

// list はfilterで絞り込んだワークアイテムの一覧をID順で返す。
// 一覧とタグ名は同一トランザクション内で読み取る。
func (r *SQLWorkItemRepo) list(ctx context.Context, filter string, args ...any) ([]model.WorkItemDTO, error) {
	items := make([]model.WorkItemDTO, 0)

	err := withTx(ctx, r.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, workItemListQuery+" "+filter+" ORDER BY w.id", args...)
		if err != nil {
			return fmt.Errorf("failed to list work items: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				item  model.WorkItemDTO
				state string
			)
			if err := rows.Scan(&item.ID, &item.Title, &item.AssignedToName, &state); err != nil {
				return fmt.Errorf("failed to scan work item: %w", err)
			}
			item.State = model.State(state)
			items = append(items, item)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("failed to iterate work items: %w", err)
		}
		rows.Close()

		tags, err := loadTagNames(ctx, tx, filter, args...)
		if err != nil {
			return err
		}
		for i := range items {
			items[i].Tags = tagsOf(tags, items[i].ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return items, nil
}

// loadTagNames はfilterに一致するワークアイテムのタグ名をワークアイテムIDごとに返す。
func loadTagNames(ctx context.Context, q querier, filter string, args ...any) (map[int64][]string, error) {
	rows, err := q.QueryContext(ctx, workItemTagsQuery+" "+filter, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load work item tags: %w", err)
	}
	defer rows.Close()

	tags := make(map[int64][]string)
	for rows.Next() {
		var (
			itemID int64
			name   string
		)
		if err := rows.Scan(&itemID, &name); err != nil {
			return nil, fmt.Errorf("failed to scan work item tag: %w", err)
		}
		tags[itemID] = append(tags[itemID], name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate work item tags: %w", err)
	}

	return tags, nil
}

// tagsOf はワークアイテムのタグ名を昇順で返す。タグがない場合は空のスライス。
func tagsOf(tags map[int64][]string, itemID int64) []string {
	names := slices.Clone(tags[itemID])
	if names == nil {
		return []string{}
	}
	slices.Sort(names)
	return names
}

// compile-time interface check
var _ WorkItemRepository = (*SQLWorkItemRepo)(nil)
