package model

import (
	"time"
	"unicode/utf8"
)

// MaxTitleLength はワークアイテムのタイトルの最大文字数。
const MaxTitleLength = 100

// State はワークアイテムのライフサイクル状態を表す。
type State string

const (
	// StateNew は作成直後の状態。削除すると物理削除される。
	StateNew State = "new"
	// StateActive は作業中の状態。削除するとRemovedへ遷移する。
	StateActive State = "active"
	// StateResolved は解決済みの状態。削除できない。
	StateResolved State = "resolved"
	// StateClosed はクローズ済みの状態。削除できない。
	StateClosed State = "closed"
	// StateRemoved はアーカイブ済みの終端状態。削除できない。
	StateRemoved State = "removed"
)

// States は全ライフサイクル状態を定義順に返す。
func States() []State {
	return []State{StateNew, StateActive, StateResolved, StateClosed, StateRemoved}
}

// IsValid は5つの状態のいずれかであるかを返す。
func (s State) IsValid() bool {
	switch s {
	case StateNew, StateActive, StateResolved, StateClosed, StateRemoved:
		return true
	default:
		return false
	}
}

// ParseState は文字列をStateに変換する。未知の値の場合はfalseを返す。
func ParseState(v string) (State, bool) {
	s := State(v)
	if !s.IsValid() {
		return "", false
	}
	return s, true
}

// WorkItemCreate はワークアイテム作成の入力。
type WorkItemCreate struct {
	Title        string
	AssignedToID *int64
	Description  string
	Tags         []string
}

// WorkItemUpdate はワークアイテム更新の入力。全フィールドを置き換える。
type WorkItemUpdate struct {
	ID           int64
	Title        string
	AssignedToID *int64
	Description  string
	Tags         []string
	State        State
}

// WorkItemDTO は一覧取得用のワークアイテム射影。
// AssignedToNameは未割り当ての場合は空文字。Tagsは名前の昇順。
type WorkItemDTO struct {
	ID             int64
	Title          string
	AssignedToName string
	Tags           []string
	State          State
}

// WorkItemDetails は単体取得用のワークアイテム詳細。
type WorkItemDetails struct {
	ID             int64
	Title          string
	Description    string
	Created        time.Time
	AssignedToName string
	Tags           []string
	State          State
	StateUpdated   time.Time
}

// ValidateTitle はタイトルが必須かつ最大文字数以内であるかを検証する。
func ValidateTitle(title string) error {
	if title == "" {
		return NewValidationError("title is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return NewValidationError("title must be at most 100 characters")
	}
	return nil
}
