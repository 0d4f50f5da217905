package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		kind Kind
		want int
	}{
		{KindParse, http.StatusBadRequest},
		{KindSchema, http.StatusBadRequest},
		{KindBadRequest, http.StatusBadRequest},
		{KindEmptyResult, http.StatusUnprocessableEntity},
		{KindMissingKey, http.StatusUnprocessableEntity},
		{KindDegenerateBinning, http.StatusUnprocessableEntity},
		{KindNotFound, http.StatusNotFound},
		{KindInternal, http.StatusInternalServerError},
		{KindUnknown, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.kind.String(), func(t *testing.T) {
			if got := New(tc.kind, "x").HTTPStatus(); got != tc.want {
				t.Fatalf("status=%d want %d", got, tc.want)
			}
		})
	}
}

func TestIsThroughWrapping(t *testing.T) {
	err := fmt.Errorf("load: %w", Schema([]string{"Quantity"}))
	if !Is(err, KindSchema) {
		t.Fatalf("expected schema kind, got %v", GetKind(err))
	}
	if Is(err, KindParse) {
		t.Fatalf("schema error must not match parse kind")
	}
	if GetKind(errors.New("plain")) != KindUnknown {
		t.Fatalf("untyped error must be unknown")
	}
}

func TestErrorMessage(t *testing.T) {
	cause := errors.New("bare quote")
	err := Parse(cause).WithOp("decode")
	if got, want := err.Error(), "decode: cannot parse delimited text: bare quote"; got != want {
		t.Fatalf("got %q want %q", got, want)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("Unwrap must expose the cause")
	}
}

func TestDetails(t *testing.T) {
	e := Schema([]string{"InvoiceNo", "UnitPrice"})
	missing, ok := e.Details.([]string)
	if !ok || len(missing) != 2 || missing[0] != "InvoiceNo" {
		t.Fatalf("details=%v", e.Details)
	}
	if d := DegenerateBinning("recency", "edges not increasing").Details; d != "recency" {
		t.Fatalf("axis=%v", d)
	}
	if KindDegenerateBinning.String() != "degenerate_binning" || Kind(99).String() != "unknown" {
		t.Fatalf("unexpected kind names")
	}
}
