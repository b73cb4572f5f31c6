package repository

import (
	"context"
	"fmt"
)

// tagRef はワークアイテムに関連付けるタグへの参照。
// IDが0のものはまだ永続化されていないプレースホルダを表す。
type tagRef struct {
	ID   int64
	Name string
}

func (t tagRef) persisted() bool {
	return t.ID != 0
}

// materializeTags はタグ名の一覧を参照に解決する。
// 既存タグは1回のIN検索でまとめて取得し、未登録の名前はプレースホルダとして返す。
// 重複した名前は最初の出現のみ残し、入力順を保つ。
func materializeTags(ctx context.Context, q querier, names []string) ([]tagRef, error) {
	unique := make([]string, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		unique = append(unique, name)
	}
	if len(unique) == 0 {
		return nil, nil
	}

	args := make([]any, len(unique))
	for i, name := range unique {
		args[i] = name
	}

	rows, err := q.QueryContext(ctx,
		`SELECT id, name FROM tags WHERE name IN (`+placeholders(1, len(unique))+`)`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to look up tags: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]int64, len(unique))
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		existing[name] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tags: %w", err)
	}

	refs := make([]tagRef, 0, len(unique))
	for _, name := range unique {
		refs = append(refs, tagRef{ID: existing[name], Name: name})
	}
	return refs, nil
}

// persistTags はプレースホルダのタグを挿入し、採番されたIDをrefsに書き戻す。
// 呼び出し側のトランザクション内で実行すること。
func persistTags(ctx context.Context, q querier, refs []tagRef) error {
	for i := range refs {
		if refs[i].persisted() {
			continue
		}
		if err := q.QueryRowContext(ctx,
			`INSERT INTO tags (name) VALUES ($1) RETURNING id`,
			refs[i].Name,
		).Scan(&refs[i].ID); err != nil {
			return fmt.Errorf("failed to insert tag %q: %w", refs[i].Name, err)
		}
	}
	return nil
}

// replaceWorkItemTags はワークアイテムのタグ関連をrefsで置き換える。
func replaceWorkItemTags(ctx context.Context, q querier, itemID int64, refs []tagRef) error {
	if _, err := q.ExecContext(ctx,
		`DELETE FROM work_item_tags WHERE work_item_id = $1`,
		itemID,
	); err != nil {
		return fmt.Errorf("failed to clear work item tags: %w", err)
	}

	for _, ref := range refs {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO work_item_tags (work_item_id, tag_id) VALUES ($1, $2)`,
			itemID, ref.ID,
		); err != nil {
			return fmt.Errorf("failed to attach tag %q: %w", ref.Name, err)
		}
	}
	return nil
}
