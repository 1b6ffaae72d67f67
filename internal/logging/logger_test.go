package logging

import "testing"

func TestIsValidLogLevel(t *testing.T) {
	testCases := []struct {
		level    string
		expected bool
	}{
		{"DEBUG", true},
		{"INFO", true},
		{"WARN", true},
		{"ERROR", true},
		{"info", false},
		{"TRACE", false},
		{"", false},
	}

	for _, tc := range testCases {
		t.Run(tc.level, func(t *testing.T) {
			if got := IsValidLogLevel(tc.level); got != tc.expected {
				t.Errorf("IsValidLogLevel(%q) = %v, expected %v", tc.level, got, tc.expected)
			}
		})
	}
}

func TestValidateLogLevel(t *testing.T) {
	if err := ValidateLogLevel("INFO"); err != nil {
		t.Errorf("Expected no error for INFO, got %v", err)
	}

	if err := ValidateLogLevel("verbose"); err == nil {
		t.Error("Expected error for invalid level 'verbose'")
	}
}

func TestLevelWriterReportsFullLength(t *testing.T) {
	w := NewLevelWriter("DEBUG", "conda")

	input := []byte("line one\n\nline two\n")
	n, err := w.Write(input)
	if err != nil {
		t.Fatalf("Write returned error: %v", err)
	}
	if n != len(input) {
		t.Errorf("Write returned %d, expected %d", n, len(input))
	}
}

func TestDebugEnabledFollowsLevel(t *testing.T) {
	SetLevel("DEBUG")
	if !DebugEnabled() {
		t.Error("Expected DebugEnabled after SetLevel(DEBUG)")
	}

	SetLevel("INFO")
	if DebugEnabled() {
		t.Error("Expected DebugEnabled false after SetLevel(INFO)")
	}
}
