package commands

import "testing"

func TestParseEnvFlags(t *testing.T) {
	env, err := parseEnvFlags([]string{"CC=g++", "HTTPS_PROXY=http://proxy:3128", "EMPTY="})
	if err != nil {
		t.Fatalf("parseEnvFlags returned error: %v", err)
	}

	expected := map[string]string{
		"CC":          "g++",
		"HTTPS_PROXY": "http://proxy:3128",
		"EMPTY":       "",
	}
	if len(env) != len(expected) {
		t.Fatalf("Expected %d entries, got %d", len(expected), len(env))
	}
	for key, value := range expected {
		if env[key] != value {
			t.Errorf("Expected %s=%q, got %q", key, value, env[key])
		}
	}
}

func TestParseEnvFlagsEmpty(t *testing.T) {
	env, err := parseEnvFlags(nil)
	if err != nil {
		t.Fatalf("parseEnvFlags returned error: %v", err)
	}
	if env != nil {
		t.Errorf("Expected nil map for no flags, got %v", env)
	}
}

func TestParseEnvFlagsInvalid(t *testing.T) {
	for _, pair := range []string{"NOVALUE", "=value"} {
		if _, err := parseEnvFlags([]string{pair}); err == nil {
			t.Errorf("Expected error for %q", pair)
		}
	}
}
