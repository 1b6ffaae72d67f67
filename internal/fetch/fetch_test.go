package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestArchiveURL(t *testing.T) {
	testCases := []struct {
		repoURL  string
		revision string
		expected string
	}{
		{
			repoURL:  "https://github.com/johnbanq/mesh.git",
			revision: "0d876727d5184161ed085bd3ef74967441b0a0e8",
			expected: "https://codeload.github.com/johnbanq/mesh/tar.gz/0d876727d5184161ed085bd3ef74967441b0a0e8",
		},
		{
			repoURL:  "https://github.com/org/repo",
			revision: "main",
			expected: "https://codeload.github.com/org/repo/tar.gz/main",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.repoURL, func(t *testing.T) {
			if got := ArchiveURL(tc.repoURL, tc.revision); got != tc.expected {
				t.Errorf("Expected %q, got %q", tc.expected, got)
			}
		})
	}
}

func TestDownloadArchive(t *testing.T) {
	payload := []byte("tarball-bytes")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write(payload) //nolint:errcheck // test server
	}))
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "source.tar.gz")
	err := DownloadArchive(context.Background(), NewClient(), server.URL, dest)
	if err != nil {
		t.Fatalf("DownloadArchive returned error: %v", err)
	}

	data, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("failed to read downloaded file: %v", err)
	}
	if string(data) != string(payload) {
		t.Errorf("Expected %q, got %q", payload, data)
	}
}

func TestDownloadArchiveHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	client := NewClient().SetRetryCount(0)
	dest := filepath.Join(t.TempDir(), "source.tar.gz")

	err := DownloadArchive(context.Background(), client, server.URL, dest)
	if err == nil {
		t.Fatal("Expected error for 404 response")
	}
	if _, statErr := os.Stat(dest); !os.IsNotExist(statErr) {
		t.Error("Expected partial download to be removed")
	}
}
