package preflight

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"aivideodub/internal/config"
)

func TestCheckDirectoryAccess(t *testing.T) {
	dir := t.TempDir()
	if result := CheckDirectoryAccess("Staging", dir); !result.Passed {
		t.Errorf("writable dir should pass: %+v", result)
	}
	if result := CheckDirectoryAccess("Staging", filepath.Join(dir, "missing")); result.Passed {
		t.Errorf("missing dir should fail: %+v", result)
	}
	file := filepath.Join(dir, "file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if result := CheckDirectoryAccess("Staging", file); result.Passed {
		t.Errorf("plain file should fail: %+v", result)
	}
}

func TestCheckDiskSpace(t *testing.T) {
	dir := t.TempDir()
	if result := CheckDiskSpace("Disk", dir, 1); !result.Passed {
		t.Errorf("1 byte requirement should pass: %+v", result)
	}
	if result := CheckDiskSpace("Disk", dir, 1<<62); result.Passed {
		t.Errorf("absurd requirement should fail: %+v", result)
	}
	if result := CheckDiskSpace("Disk", filepath.Join(dir, "missing"), 1); result.Passed {
		t.Errorf("missing path should fail: %+v", result)
	}
}

func TestCheckSTT(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer server.Close()

	result := CheckSTT(context.Background(), config.STT{APIKey: "key", BaseURL: server.URL, Model: "whisper-1"})
	if !result.Passed {
		t.Errorf("reachable endpoint should pass: %+v", result)
	}

	result = CheckSTT(context.Background(), config.STT{BaseURL: server.URL})
	if result.Passed || result.Detail != "API key missing" {
		t.Errorf("missing key: %+v", result)
	}
}

func TestCheckTranslate(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices": [{"message": {"content": "ok"}}]}`))
	}))
	defer server.Close()

	result := CheckTranslate(context.Background(), config.Translate{APIKey: "key", BaseURL: server.URL, Model: "m"})
	if !result.Passed {
		t.Errorf("healthy endpoint should pass: %+v", result)
	}
}

func TestCheckSystemDeps(t *testing.T) {
	cfg := &config.Config{}
	cfg.Tools.FFmpeg = "clearly-not-present-binary"
	cfg.Tools.FFprobe = "also-not-present"
	cfg.Tools.YtDlp = "still-not-present"

	results := CheckSystemDeps(cfg)
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, status := range results {
		if status.Available {
			t.Errorf("%s should be unavailable", status.Name)
		}
	}
}
