package model

import (
	"strings"
	"unicode/utf8"
)

const (
	// MaxNameLength はユーザー名・タグ名の最大文字数。
	MaxNameLength = 50
	// MaxEmailLength はメールアドレスの最大文字数。
	MaxEmailLength = 100
)

// UserDTO はユーザーのid/name/email射影。
type UserDTO struct {
	ID    int64
	Name  string
	Email string
}

// UserCreate はユーザー作成の入力。
type UserCreate struct {
	Name  string
	Email string
}

// UserUpdate はユーザー名変更の入力。
type UserUpdate struct {
	ID   int64
	Name string
}

// ValidateName はユーザー名・タグ名が必須かつ最大文字数以内であるかを検証する。
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return NewValidationError("name is required")
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return NewValidationError("name must be at most 50 characters")
	}
	return nil
}

// ValidateEmail はメールアドレスの最低限の形式を検証する。
func ValidateEmail(email string) error {
	if email == "" {
		return NewValidationError("email is required")
	}
	if utf8.RuneCountInString(email) > MaxEmailLength {
		return NewValidationError("email must be at most 100 characters")
	}
	at := strings.Index(email, "@")
	if at <= 0 || at == len(email)-1 {
		return NewValidationError("email must contain a local part and a domain")
	}
	return nil
}
