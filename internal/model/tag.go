package model

// TagDTO はタグのid/name射影。
type TagDTO struct {
	ID   int64
	Name string
}

// TagCreate はタグ作成の入力。
type TagCreate struct {
	Name string
}

// TagUpdate はタグ名変更の入力。
type TagUpdate struct {
	ID   int64
	Name string
}
