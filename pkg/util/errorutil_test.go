package util

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestToDomainErrorPassthrough(t *testing.T) {
	orig := NewStoreError("ticket create", errors.New("connection refused"))
	got := ToDomainError(orig)
	if got.Code != "STORE_FAILED" || got.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("ToDomainError = %+v", got)
	}

	wrapped := fmt.Errorf("outer: %w", orig)
	if got := ToDomainError(wrapped); got.Code != "STORE_FAILED" {
		t.Fatalf("wrapped DomainError lost: %+v", got)
	}
}

func TestToDomainErrorNoRows(t *testing.T) {
	got := ToDomainError(fmt.Errorf("query ticket: %w", pgx.ErrNoRows))
	if got.Code != "NOT_FOUND" || got.HTTPStatus != http.StatusNotFound {
		t.Fatalf("ToDomainError(ErrNoRows) = %+v", got)
	}
}

func TestToDomainErrorGeneric(t *testing.T) {
	got := ToDomainError(errors.New("boom"))
	if got.Code != "INTERNAL_ERROR" || got.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("ToDomainError(generic) = %+v", got)
	}
	if got := ToDomainError(nil); got != nil {
		t.Fatalf("ToDomainError(nil) = %+v", got)
	}
}

func TestIsCode(t *testing.T) {
	err := NewClassifierError("intent", errors.New("timeout"))
	if !IsCode(err, "CLASSIFIER_FAILED") {
		t.Fatal("IsCode missed matching code")
	}
	if IsCode(err, "TRANSPORT_FAILED") {
		t.Fatal("IsCode matched wrong code")
	}
	if IsCode(errors.New("plain"), "CLASSIFIER_FAILED") {
		t.Fatal("IsCode matched non-domain error")
	}
}

func TestDomainErrorUnwrap(t *testing.T) {
	inner := errors.New("dial tcp")
	err := NewTransportError("send text", inner)
	if !errors.Is(err, inner) {
		t.Fatal("wrapped cause not reachable through errors.Is")
	}
}
