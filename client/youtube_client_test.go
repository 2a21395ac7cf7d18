package client

import (
	"context"
	"testing"
)

func TestNewYouTubeDataClient(t *testing.T) {
	tests := []struct {
		name    string
		apiKey  string
		wantErr bool
	}{
		{
			name:    "valid API key",
			apiKey:  "test-api-key-12345",
			wantErr: false,
		},
		{
			name:    "empty API key",
			apiKey:  "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := NewYouTubeDataClient(tt.apiKey)

			if (err != nil) != tt.wantErr {
				t.Errorf("NewYouTubeDataClient() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr {
				if client == nil {
					t.Error("Expected non-nil client when no error")
					return
				}

				if client.apiKey != tt.apiKey {
					t.Errorf("Expected apiKey %s, got %s", tt.apiKey, client.apiKey)
				}
			}
		})
	}
}

func TestCallsRequireConnection(t *testing.T) {
	client, err := NewYouTubeDataClient("test-key")
	if err != nil {
		t.Fatalf("NewYouTubeDataClient() error = %v", err)
	}

	ctx := context.Background()

	if _, err := client.ChannelIDByUsername(ctx, "someone"); err == nil {
		t.Error("ChannelIDByUsername should fail before Connect")
	}
	if _, err := client.SearchChannelID(ctx, "@someone"); err == nil {
		t.Error("SearchChannelID should fail before Connect")
	}
	if _, err := client.UploadsPlaylistID(ctx, "UC1"); err == nil {
		t.Error("UploadsPlaylistID should fail before Connect")
	}
	if _, err := client.PlaylistPage(ctx, "UU1", ""); err == nil {
		t.Error("PlaylistPage should fail before Connect")
	}
	if _, err := client.VideoDetails(ctx, []string{"v1"}); err == nil {
		t.Error("VideoDetails should fail before Connect")
	}
}

func TestDisconnectClearsService(t *testing.T) {
	client, err := NewYouTubeDataClient("test-key")
	if err != nil {
		t.Fatalf("NewYouTubeDataClient() error = %v", err)
	}

	if err := client.Disconnect(context.Background()); err != nil {
		t.Errorf("Disconnect() error = %v", err)
	}
	if client.service != nil {
		t.Error("Expected service to be nil after Disconnect")
	}
}
