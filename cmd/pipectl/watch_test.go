package main

import "testing"

func TestStreamURL(t *testing.T) {
	orig := serverURL
	defer func() { serverURL = orig }()

	tests := []struct {
		server string
		want   string
	}{
		{"http://localhost:8080", "ws://localhost:8080/ws/clients?topics=pipeline.client.>"},
		{"https://pipeline.example.com", "wss://pipeline.example.com/ws/clients?topics=pipeline.client.>"},
		{"http://localhost:8080/", "ws://localhost:8080/ws/clients?topics=pipeline.client.>"},
	}
	for _, tt := range tests {
		serverURL = tt.server
		if got := streamURL(); got != tt.want {
			t.Errorf("streamURL(%q) = %q, want %q", tt.server, got, tt.want)
		}
	}
}
