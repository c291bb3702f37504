package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFixture(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.txt")
	testContent := []byte("test fixture content")

	if err := os.WriteFile(testFile, testContent, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	result := LoadFixture(t, testFile)
	if string(result) != string(testContent) {
		t.Errorf("expected %q, got %q", testContent, result)
	}
}

func TestLoadFixtureJSON(t *testing.T) {
	tmpDir := t.TempDir()
	testFile := filepath.Join(tmpDir, "test.json")
	testData := map[string]any{
		"name":  "test",
		"value": 42,
		"items": []string{"a", "b", "c"},
	}

	jsonData, err := json.Marshal(testData)
	if err != nil {
		t.Fatalf("failed to marshal test data: %v", err)
	}

	if err := os.WriteFile(testFile, jsonData, 0644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	var result map[string]any
	LoadFixtureJSON(t, testFile, &result)

	if result["name"] != "test" {
		t.Errorf("expected name=test, got %v", result["name"])
	}
	if result["value"] != float64(42) { // JSON unmarshals numbers as float64
		t.Errorf("expected value=42, got %v", result["value"])
	}
}

func TestFixturePath(t *testing.T) {
	expected := filepath.Join("testdata", "scenarios.json")
	if got := FixturePath("scenarios.json"); got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestManualClock(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := NewManualClock(start)

	if !clock.Now().Equal(start) {
		t.Fatalf("expected clock to start at %v, got %v", start, clock.Now())
	}

	clock.Advance(time.Second)
	clock.Sleep(250 * time.Millisecond)
	clock.Sleep(750 * time.Millisecond)

	if want := start.Add(2 * time.Second); !clock.Now().Equal(want) {
		t.Errorf("expected %v, got %v", want, clock.Now())
	}

	sleeps := clock.Sleeps()
	if len(sleeps) != 2 || sleeps[0] != 250*time.Millisecond || sleeps[1] != 750*time.Millisecond {
		t.Errorf("unexpected recorded sleeps: %v", sleeps)
	}

	if clock.Slept() != time.Second {
		t.Errorf("expected total sleep of 1s, got %v", clock.Slept())
	}
}
