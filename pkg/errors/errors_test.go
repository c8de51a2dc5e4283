package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestCodeToHTTPStatus(t *testing.T) {
	cases := []struct {
		code ErrorCode
		want int
	}{
		{CodeInvalidParam, http.StatusBadRequest},
		{CodeProjectNotFound, http.StatusNotFound},
		{CodeChapterNotFound, http.StatusNotFound},
		{CodeInvalidState, http.StatusConflict},
		{CodeConflict, http.StatusConflict},
		{CodeLLMCallFailed, http.StatusBadGateway},
		{CodeDatabaseError, http.StatusInternalServerError},
		{CodeTokenInvalid, http.StatusUnauthorized},
	}
	for _, tc := range cases {
		if got := New(tc.code, "x").HTTPStatus; got != tc.want {
			t.Errorf("code %s: got %d, want %d", tc.code, got, tc.want)
		}
	}
}

func TestAsAppErrorThroughWrapping(t *testing.T) {
	base := InvalidState("project is %s", "completed")
	wrapped := fmt.Errorf("pause: %w", base)

	if !IsAppError(wrapped) {
		t.Fatal("expected wrapped AppError to be detected")
	}
	if !IsCode(wrapped, CodeInvalidState) {
		t.Fatal("expected CodeInvalidState")
	}
	if got := AsAppError(wrapped); got != base {
		t.Fatalf("AsAppError returned a different instance: %v", got)
	}
}

func TestAsAppErrorUnknown(t *testing.T) {
	got := AsAppError(stderrors.New("boom"))
	if got.Code != CodeUnknown {
		t.Fatalf("got code %s", got.Code)
	}
	if got.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("got status %d", got.HTTPStatus)
	}
}

func TestWithDetailDoesNotMutateOriginal(t *testing.T) {
	base := New(CodeNotFound, "not found")
	d := base.WithDetail("abc")
	if base.Detail != "" {
		t.Fatal("original was mutated")
	}
	if d.Detail != "abc" {
		t.Fatalf("detail = %q", d.Detail)
	}
}

func TestUpstreamUnwraps(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Upstream(cause, "completion failed")
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause in chain")
	}
}
