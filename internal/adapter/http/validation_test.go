package http

import (
	"errors"
	"strings"
	"testing"
)

func TestHex32Validation(t *testing.T) {
	type P struct {
		BorrowerID string `validate:"hex32"`
	}
	cv := NewValidator()

	// valid: 32-char lowercase hex
	ok := P{BorrowerID: strings.Repeat("a", 32)}
	if err := cv.Validate(ok); err != nil {
		t.Fatalf("expected valid hex32, got err: %v", err)
	}

	// invalid samples
	for _, s := range []string{
		"",                                  // empty
		strings.Repeat("A", 32),             // uppercase
		"deadbeef",                          // too short
		strings.Repeat("g", 32),             // non-hex char
		"3f9a6a1b3d544fbe8b3a6b3e8d6b2c8",   // 31 chars
		"3f9a6a1b3d544fbe8b3a6b3e8d6b2c88x", // 33 with extra
	} {
		bad := P{BorrowerID: s}
		err := cv.Validate(bad)
		if err == nil {
			t.Fatalf("expected error for %q", s)
		}
		fe := ToFieldErrors(err)
		found := false
		for _, e := range fe {
			if e.Field == "BorrowerID" && strings.Contains(e.Message, "32-char lowercase hex") {
				found = true
				break
			}
		}
		if !found {
			t.Fatalf("expected hex32 message for %q, got: %+v", s, fe)
		}
	}
}

func TestRequiredAndBoundsMapping(t *testing.T) {
	type P struct {
		Name     string `validate:"required"`
		Amount   int64  `validate:"gt=0"`
		TermDays int    `validate:"gte=1,lte=365"`
	}
	cv := NewValidator()

	// Intentionally violate all
	err := cv.Validate(P{
		Name:     "",  // required
		Amount:   -1,  // gt=0
		TermDays: 400, // lte=365
	})
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	fe := ToFieldErrors(err)

	if !containsFieldMsg(fe, "Name", "is required") {
		t.Fatalf("missing 'is required' for Name: %+v", fe)
	}
	if !containsFieldMsg(fe, "Amount", "greater than 0") {
		t.Fatalf("missing gt message for Amount: %+v", fe)
	}
	if !containsFieldMsg(fe, "TermDays", "less than or equal to 365") {
		t.Fatalf("missing lte message for TermDays: %+v", fe)
	}
}

func TestOneofAndDatetimeMapping(t *testing.T) {
	type P struct {
		Method string `validate:"oneof=transfer cash wallet"`
		PaidAt string `validate:"datetime=2006-01-02T15:04:05Z07:00"`
	}
	cv := NewValidator()

	if err := cv.Validate(P{Method: "transfer", PaidAt: "2026-08-30T10:00:00Z"}); err != nil {
		t.Fatalf("expected valid payload, got %v", err)
	}

	err := cv.Validate(P{Method: "crypto", PaidAt: "yesterday"})
	if err == nil {
		t.Fatalf("expected validation errors")
	}
	fe := ToFieldErrors(err)
	if !containsFieldMsg(fe, "Method", "one of: transfer cash wallet") {
		t.Fatalf("missing oneof message for Method: %+v", fe)
	}
	if !containsFieldMsg(fe, "PaidAt", "timestamp in") {
		t.Fatalf("missing datetime message for PaidAt: %+v", fe)
	}
}

func TestToFieldErrors_NonValidation(t *testing.T) {
	err := errors.New("boom")
	fe := ToFieldErrors(err)
	if len(fe) != 1 {
		t.Fatalf("expected 1 field error, got %d", len(fe))
	}
	if fe[0].Field != "_" || fe[0].Message != "boom" {
		t.Fatalf("unexpected mapping: %+v", fe[0])
	}
}
