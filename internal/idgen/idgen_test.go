package idgen

import (
	"strings"
	"testing"
)

func TestNewClientID(t *testing.T) {
	id, err := NewClientID()
	if err != nil {
		t.Fatalf("NewClientID: %v", err)
	}
	if !strings.HasPrefix(id, ClientPrefix) {
		t.Errorf("id %q missing prefix %q", id, ClientPrefix)
	}
	if len(id) != len(ClientPrefix)+Length {
		t.Errorf("id %q has length %d, want %d", id, len(id), len(ClientPrefix)+Length)
	}
}

func TestNewRequestID(t *testing.T) {
	id, err := NewRequestID()
	if err != nil {
		t.Fatalf("NewRequestID: %v", err)
	}
	if !strings.HasPrefix(id, RequestPrefix) {
		t.Errorf("id %q missing prefix %q", id, RequestPrefix)
	}
}

func TestNewSessionID_Uniqueness(t *testing.T) {
	seen := make(map[string]bool)
	for range 1000 {
		id, err := NewSessionID()
		if err != nil {
			t.Fatalf("NewSessionID: %v", err)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}
}
