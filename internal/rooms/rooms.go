package rooms

import (
	"context"
	"strings"

	"github.com/consultbridge/backend/internal/config"
)

// JoinInfo is what a participant needs to enter a room from the frontend.
type JoinInfo struct {
	Provider   string
	MeetingURL string
	RoomName   string
	Domain     string
	Token      string
}

// Provider provisions video rooms for confirmed meetings.
type Provider interface {
	Name() string
	// CreateRoom returns a stable join URL for the given meeting title.
	CreateRoom(ctx context.Context, title string) (string, error)
	// Join issues per-participant join details for an existing room URL.
	Join(ctx context.Context, meetingURL, displayName string) (JoinInfo, error)
}

// New selects a provider from configuration. Jitsi is the default.
func New(cfg *config.Config) Provider {
	switch strings.ToLower(cfg.RoomProvider) {
	case "livekit":
		return NewLiveKit(cfg.LiveKitAPIURL, cfg.LiveKitAPIKey, cfg.LiveKitSecret)
	case "googlemeet", "google_meet", "meet":
		return NewGoogleMeet()
	default:
		return NewJitsi(cfg.JitsiDomain, cfg.JitsiAppID, cfg.JitsiAppSecret)
	}
}

// sanitizeRoomName keeps only characters safe in a room path segment.
func sanitizeRoomName(title string) string {
	var b strings.Builder
	for _, r := range title {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '_':
			b.WriteRune('-')
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		name = "Meeting"
	}
	return name
}
