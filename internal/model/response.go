// Package model はドメインモデルを定義する。
package model

// Response はリポジトリ操作の結果コードを表す。
// インフラ障害以外の結果はすべてこの値で返し、errorとしては扱わない。
type Response string

const (
	// ResponseCreated は新規作成に成功したことを示す。
	ResponseCreated Response = "created"
	// ResponseUpdated は更新に成功したことを示す。
	ResponseUpdated Response = "updated"
	// ResponseDeleted は削除（またはRemovedへの論理削除）に成功したことを示す。
	ResponseDeleted Response = "deleted"
	// ResponseConflict は一意制約または状態遷移ルールにより操作が拒否されたことを示す。
	ResponseConflict Response = "conflict"
	// ResponseNotFound は対象エンティティが存在しないことを示す。
	ResponseNotFound Response = "not_found"
	// ResponseBadRequest は参照先エンティティ（担当者）が存在しないなど、要求内容が不正であることを示す。
	ResponseBadRequest Response = "bad_request"
)

// String はfmt.Stringerを実装する。
func (r Response) String() string {
	return string(r)
}

// IsSuccess は作成・更新・削除のいずれかに成功した結果かどうかを返す。
func (r Response) IsSuccess() bool {
	switch r {
	case ResponseCreated, ResponseUpdated, ResponseDeleted:
		return true
	default:
		return false
	}
}
