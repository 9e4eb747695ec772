package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestNewsItemJSONFields(t *testing.T) {
	// The cache stores items as JSON, so the field names are part of the cache format
	sent := false
	newsItem := NewsItem{
		ID:       42,
		Time:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Keywords: "economy,markets",
		Text:     "Markets rally after rate decision",
		IsSent:   &sent,
	}

	data, err := json.Marshal(newsItem)
	if err != nil {
		t.Fatalf("Failed to marshal NewsItem: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}

	if result["text"] != "Markets rally after rate decision" {
		t.Errorf("Expected text field, got %v", result["text"])
	}
	if result["is_sent"] != false {
		t.Errorf("Expected is_sent to be false, got %v", result["is_sent"])
	}
	if result["id"] != float64(42) {
		t.Errorf("Expected id 42, got %v", result["id"])
	}
}

func TestNewsItemUnsetFlags(t *testing.T) {
	item := NewsItem{Text: "fresh"}

	if item.Persisted() {
		t.Error("Expected new item to have no ID")
	}
	if item.Sent() {
		t.Error("Expected unset IsSent to read as false")
	}

	data, err := json.Marshal(item)
	if err != nil {
		t.Fatalf("Failed to marshal NewsItem: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("Failed to unmarshal JSON: %v", err)
	}
	if _, ok := result["id"]; ok {
		t.Error("Expected id to be omitted before insert")
	}
	if _, ok := result["is_sent"]; ok {
		t.Error("Expected is_sent to be omitted while unset")
	}
}
