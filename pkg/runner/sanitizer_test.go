package runner

import (
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/realign/pkg/domain"
)

func TestSanitizeInput_SizeLimit(t *testing.T) {
	limit := DefaultMaxInputSize

	tests := []struct {
		name      string
		inputSize int
		wantErr   bool
	}{
		{"Under Limit", limit - 1, false},
		{"Exact Limit", limit, false},
		{"Over Limit", limit + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := strings.Repeat("a", tt.inputSize)
			_, err := SanitizeInput(input)
			if tt.wantErr {
				if !errors.Is(err, ErrInputTooLarge) {
					t.Errorf("SanitizeInput() expected ErrInputTooLarge for size %d, got %v", tt.inputSize, err)
				}
				if !errors.Is(err, domain.ErrInvalidInput) {
					t.Errorf("SanitizeInput() error should wrap ErrInvalidInput, got %v", err)
				}
			} else if err != nil {
				t.Errorf("SanitizeInput() unexpected error: %v", err)
			}
		})
	}
}

func TestSanitizeInput_ControlChars(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"Normal Text", "Stamina, Strength", "Stamina, Strength"},
		{"Safe Controls", "Line1\nLine2\tTabbed", "Line1\nLine2\tTabbed"},
		{"ANSI Code", "\x1b[31m30\x1b[0m", "[31m30[0m"},
		{"Null Byte", "Asha\x00", "Asha"},
		{"Bell", "none\x07", "none"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeInput(tt.input)
			if err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestSanitizeInput_EnvOverride(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "10")

	if _, err := SanitizeInput("12345678901"); err == nil {
		t.Error("Expected error for input > 10 when env var is set")
	}
	if _, err := SanitizeInput("12345"); err != nil {
		t.Error("Unexpected error for valid input")
	}
}

func TestSanitizeInputLimit_Explicit(t *testing.T) {
	t.Setenv(EnvMaxInputSize, "2")

	if _, err := SanitizeInputLimit("abc", 5); err != nil {
		t.Errorf("explicit limit should win over env, got %v", err)
	}
	if _, err := SanitizeInputLimit("abcdef", 5); !errors.Is(err, ErrInputTooLarge) {
		t.Errorf("Expected ErrInputTooLarge, got %v", err)
	}
}

func TestSanitizeInput_InvalidUTF8(t *testing.T) {
	input := "\xbd\xb2\x3d\xbc\x20\xe2\x8c\x98"
	_, err := SanitizeInput(input)
	if !errors.Is(err, ErrInvalidUTF8) {
		t.Errorf("Expected ErrInvalidUTF8, got %v", err)
	}
}
