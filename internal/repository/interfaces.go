// Package repository はデータ永続化のインターフェースを定義する。
//
// 各公開メソッドは1つのトランザクションとして実行される。
// 業務上の結果（重複・未存在・状態による拒否など）はmodel.Responseで返し、
// errorはデータベース障害などのインフラ起因の失敗に限る。
package repository

import (
	"context"
	"database/sql"

	"github.com/hitoshi/workboard/internal/model"
)

// TagRepository はタグデータの永続化インターフェース。
type TagRepository interface {
	// Create はタグを作成する。同名のタグが存在する場合はConflictと既存のIDを返す。
	Create(ctx context.Context, tag model.TagCreate) (model.Response, int64, error)

	// Find は指定IDのタグを取得する。見つからない場合はnilを返す。
	Find(ctx context.Context, id int64) (*model.TagDTO, error)

	// Read は全タグをID順で返す。
	Read(ctx context.Context) ([]model.TagDTO, error)

	// Update はタグ名を変更する。
	// 未存在ならNotFound、他のタグが同名を持つ場合はConflictを返す。
	Update(ctx context.Context, tag model.TagUpdate) (model.Response, error)

	// Delete はタグを削除する。
	// ワークアイテムから参照されている場合、forceがfalseならConflictを返す。
	// forceがtrueなら全ワークアイテムから関連を外してから削除する。
	Delete(ctx context.Context, id int64, force bool) (model.Response, error)
}

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// Create はユーザーを作成する。同名のユーザーが存在する場合はConflictと既存のIDを返す。
	Create(ctx context.Context, user model.UserCreate) (model.Response, int64, error)

	// Find は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	Find(ctx context.Context, id int64) (*model.UserDTO, error)

	// Read は全ユーザーを名前の昇順（大文字小文字を区別するバイト順）で返す。
	Read(ctx context.Context) ([]model.UserDTO, error)

	// Update はユーザー名を変更する。
	Update(ctx context.Context, user model.UserUpdate) (model.Response, error)

	// Delete はユーザーを削除する。
	// 担当しているワークアイテムが1件でもあればforceに関わらずConflictを返す。
	Delete(ctx context.Context, id int64, force bool) (model.Response, error)
}

// WorkItemRepository はワークアイテムデータの永続化インターフェース。
// 削除はライフサイクル状態によって物理削除・Removedへの遷移・拒否に分かれる。
type WorkItemRepository interface {
	// Create はNew状態のワークアイテムを作成する。
	// 未登録のタグ名は同一トランザクション内で作成される。担当者の存在は検証しない。
	Create(ctx context.Context, item model.WorkItemCreate) (model.Response, int64, error)

	// Find は指定IDのワークアイテム詳細を取得する。見つからない場合はnilを返す。
	Find(ctx context.Context, id int64) (*model.WorkItemDetails, error)

	// Read は全ワークアイテムをタイトル順で返す。
	Read(ctx context.Context) ([]model.WorkItemDTO, error)

	// ReadByState は指定状態のワークアイテムをID順で返す。
	ReadByState(ctx context.Context, state model.State) ([]model.WorkItemDTO, error)

	// ReadByTag は指定タグ名を持つワークアイテムをID順で返す。
	ReadByTag(ctx context.Context, tag string) ([]model.WorkItemDTO, error)

	// ReadByUser は指定ユーザーが担当するワークアイテムをID順で返す。
	ReadByUser(ctx context.Context, userID int64) ([]model.WorkItemDTO, error)

	// ReadRemoved はRemoved状態のワークアイテムをID順で返す。
	ReadRemoved(ctx context.Context) ([]model.WorkItemDTO, error)

	// Update はワークアイテムを全項目置き換えで更新する。
	// 担当者を既存と異なるユーザーに変更する場合、そのユーザーが存在しなければBadRequestを返す。
	Update(ctx context.Context, item model.WorkItemUpdate) (model.Response, error)

	// Delete は状態に応じてワークアイテムを削除する。
	// New: 物理削除、Active: Removedへ遷移、それ以外: Conflict。
	Delete(ctx context.Context, id int64) (model.Response, error)
}

// TxBeginner はトランザクション開始用のインターフェース。
type TxBeginner interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// querier は*sql.DBと*sql.Txに共通するクエリ実行インターフェース。
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}
