package model

import (
	"strings"
	"testing"
)

// TestParseState は5つの状態のみ受け付けることを検証する。
func TestParseState(t *testing.T) {
	tests := []struct {
		in     string
		want   State
		wantOK bool
	}{
		{"new", StateNew, true},
		{"active", StateActive, true},
		{"resolved", StateResolved, true},
		{"closed", StateClosed, true},
		{"removed", StateRemoved, true},
		{"Active", "", false},
		{"", "", false},
		{"deleted", "", false},
	}

	for _, tt := range tests {
		got, ok := ParseState(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseState(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestStates_AllValid(t *testing.T) {
	states := States()
	if len(states) != 5 {
		t.Fatalf("len(States()) = %d, want 5", len(states))
	}
	for _, s := range states {
		if !s.IsValid() {
			t.Errorf("%q should be valid", s)
		}
	}
}

func TestResponse_IsSuccess(t *testing.T) {
	success := []Response{ResponseCreated, ResponseUpdated, ResponseDeleted}
	failure := []Response{ResponseConflict, ResponseNotFound, ResponseBadRequest}

	for _, r := range success {
		if !r.IsSuccess() {
			t.Errorf("%s.IsSuccess() = false, want true", r)
		}
	}
	for _, r := range failure {
		if r.IsSuccess() {
			t.Errorf("%s.IsSuccess() = true, want false", r)
		}
	}
}

func TestValidateTitle(t *testing.T) {
	if err := ValidateTitle("Make food"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateTitle(""); err == nil {
		t.Error("expected error for empty title")
	}
	// 100文字ちょうどは許可、101文字は拒否
	if err := ValidateTitle(strings.Repeat("a", 100)); err != nil {
		t.Errorf("100 chars should be accepted: %v", err)
	}
	if err := ValidateTitle(strings.Repeat("a", 101)); err == nil {
		t.Error("expected error for 101 chars")
	}
	// マルチバイト文字は文字数で数える
	if err := ValidateTitle(strings.Repeat("あ", 100)); err != nil {
		t.Errorf("100 multibyte chars should be accepted: %v", err)
	}
}

func TestValidateName(t *testing.T) {
	if err := ValidateName("jim"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := ValidateName("   "); err == nil {
		t.Error("expected error for blank name")
	}
	if err := ValidateName(strings.Repeat("x", 51)); err == nil {
		t.Error("expected error for 51 chars")
	}
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"jim@gmail.com", "a@b"}
	invalid := []string{"", "jim", "@gmail.com", "jim@"}

	for _, e := range valid {
		if err := ValidateEmail(e); err != nil {
			t.Errorf("ValidateEmail(%q) returned error: %v", e, err)
		}
	}
	for _, e := range invalid {
		if err := ValidateEmail(e); err == nil {
			t.Errorf("ValidateEmail(%q) expected error", e)
		}
	}
}

func TestAPIError_Error(t *testing.T) {
	err := NewNotFoundError("タグ", 42)
	if !strings.HasPrefix(err.Error(), "[NOT_FOUND]") {
		t.Errorf("Error() = %q, want prefix [NOT_FOUND]", err.Error())
	}
	if !strings.Contains(err.Error(), "42") {
		t.Errorf("Error() = %q, want to contain id", err.Error())
	}
}
