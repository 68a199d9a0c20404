package model

import (
	"errors"
	"testing"
)

func TestParseIcon(t *testing.T) {
	tests := []struct {
		in     string
		want   Icon
		wantOK bool
	}{
		{"Utensils", "Utensils", true},
		{"utensils", "Utensils", true},
		{" Plane ", "Plane", true},
		{"Rocket", IconHelp, false},
		{"", IconHelp, false},
	}
	for _, tt := range tests {
		got, ok := ParseIcon(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ParseIcon(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestParseFrequency(t *testing.T) {
	f, err := ParseFrequency("biweekly")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if f != FrequencyBiweekly {
		t.Errorf("frequency = %q, want %q", f, FrequencyBiweekly)
	}
	if _, err := ParseFrequency("hourly"); err == nil {
		t.Error("expected error for unknown frequency")
	}
}

func TestValidationErrorUnwrap(t *testing.T) {
	err := Invalid("amount", "must not be negative")
	if !errors.Is(err, ErrValidation) {
		t.Error("expected errors.Is(err, ErrValidation)")
	}
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("expected errors.As to find *ValidationError")
	}
	if ve.Field != "amount" {
		t.Errorf("field = %q, want %q", ve.Field, "amount")
	}
	if !errors.Is(ErrInstanceNotFound, ErrNotFound) {
		t.Error("expected ErrInstanceNotFound to wrap ErrNotFound")
	}
}
