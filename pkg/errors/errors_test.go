package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		publicMsg string
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, publicMsg: "validation failed", detailsOK: true},
		{code: CodeUnauthorized, status: http.StatusUnauthorized, publicMsg: "authentication required"},
		{code: CodeForbidden, status: http.StatusForbidden, publicMsg: "access denied"},
		{code: CodeNotFound, status: http.StatusNotFound, publicMsg: "resource not found"},
		{code: CodeConflict, status: http.StatusConflict, publicMsg: "conflict detected"},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, publicMsg: "state transition disallowed", detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, publicMsg: "internal server error", retryable: true},
		{code: CodeDependency, status: http.StatusServiceUnavailable, publicMsg: "dependency unavailable", retryable: true, detailsOK: true},
		{code: CodeUpload, status: http.StatusBadGateway, publicMsg: "proof upload failed", retryable: true},
		{code: CodeInFlight, status: http.StatusConflict, publicMsg: "request still in progress", retryable: true},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage != tt.publicMsg {
			t.Fatalf("code %s expected public message %q got %q", tt.code, tt.publicMsg, meta.PublicMessage)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := New(CodeValidation, "missing foo")
	if base.Code() != CodeValidation {
		t.Fatalf("expected validation code, got %s", base.Code())
	}
	if base.Message() != "missing foo" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}

	detail := map[string]any{"field": "foo"}
	base.WithDetails(detail)
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodeConflict, cause, "ctx")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Code() != CodeConflict {
		t.Fatalf("unexpected code %s", wrapped.Code())
	}
}

func TestAsReturnsTypedError(t *testing.T) {
	err := New(CodeForbidden, "no entry")
	if got := As(err); got == nil || got.Code() != CodeForbidden {
		t.Fatalf("As failed to return typed error")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}

func TestIsCodeFollowsWrappedChain(t *testing.T) {
	inner := New(CodeStateConflict, "payment already reviewed")
	outer := fmt.Errorf("approve: %w", inner)
	if !IsCode(outer, CodeStateConflict) {
		t.Fatalf("expected wrapped code to be detected")
	}
	if IsCode(outer, CodeValidation) {
		t.Fatalf("unexpected code match")
	}
	if IsCode(nil, CodeInternal) {
		t.Fatalf("nil error should not match")
	}
}

func TestDumpCollectsChain(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("connection refused"), "insert payment")
	dump := Dump(err)
	if dump.Code != CodeDependency {
		t.Fatalf("expected dependency code, got %s", dump.Code)
	}
	if len(dump.Chain) != 2 {
		t.Fatalf("expected two chain entries, got %d", len(dump.Chain))
	}
	if dump.PGCode != "" {
		t.Fatalf("unexpected pg code %q", dump.PGCode)
	}
}

func TestDumpCarriesStepAndRetryable(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("deadlock"), "approve payment").
		WithDetails(map[string]any{"step": "update_clinic_cache"})
	dump := Dump(err)
	if dump.Step != "update_clinic_cache" {
		t.Fatalf("expected step, got %q", dump.Step)
	}
	if !dump.Retryable {
		t.Fatalf("dependency errors should be retryable")
	}
}

func TestDumpReadsPgxErrors(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "clinics_owner_user_id_key", TableName: "clinics"}
	dump := Dump(Wrap(CodeConflict, pgErr, "create clinic"))
	if dump.PGCode != "23505" || dump.PGConstraint != "clinics_owner_user_id_key" || dump.PGTable != "clinics" {
		t.Fatalf("unexpected pg fields %+v", dump)
	}
}

func TestWithStepMergesDetails(t *testing.T) {
	err := New(CodeUpload, "proof upload failed").
		WithDetails(map[string]any{"bucket": "proofs"}).
		WithStep("upload_proof")
	details, ok := err.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected map details, got %T", err.Details())
	}
	if details["bucket"] != "proofs" || details["step"] != "upload_proof" {
		t.Fatalf("unexpected details %+v", details)
	}
	wrapped := fmt.Errorf("handler: %w", err)
	if got := StepOf(wrapped); got != "upload_proof" {
		t.Fatalf("expected step through wrap, got %q", got)
	}
	if got := StepOf(stdErrors.New("plain")); got != "" {
		t.Fatalf("expected no step for plain error, got %q", got)
	}
}

func TestErrorStringIncludesCause(t *testing.T) {
	err := Wrap(CodeDependency, stdErrors.New("timeout"), "load profile")
	if got := err.Error(); got != "DEPENDENCY_ERROR: load profile: timeout" {
		t.Fatalf("unexpected error string %q", got)
	}
	if got := New(CodeNotFound, "payment not found").Error(); got != "NOT_FOUND: payment not found" {
		t.Fatalf("unexpected error string %q", got)
	}
}

func TestInternalCodesHideTheirMessage(t *testing.T) {
	for _, code := range []Code{CodeInternal, CodeDependency} {
		if MetadataFor(code).ShowMessage {
			t.Fatalf("code %s must not expose its message", code)
		}
	}
	if !MetadataFor(CodeStateConflict).ShowMessage {
		t.Fatalf("state conflicts should explain themselves")
	}
	if MetadataFor(Code("SOMETHING_NEW")).HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown codes should map to internal")
	}
}
