package rooms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// LiveKit provisions rooms through the LiveKit server API and issues access
// tokens with video grants. Room creation failures fall back to the bare
// join URL so confirmation never blocks on the media server.
type LiveKit struct {
	apiURL     string
	apiKey     string
	apiSecret  string
	httpClient *http.Client
}

func NewLiveKit(apiURL, apiKey, apiSecret string) *LiveKit {
	return &LiveKit{
		apiURL:     apiURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (l *LiveKit) Name() string { return "livekit" }

func (l *LiveKit) CreateRoom(ctx context.Context, title string) (string, error) {
	room := fmt.Sprintf("%s-%s", sanitizeRoomName(title), uuid.New().String()[:8])
	joinURL := fmt.Sprintf("%s/rooms/%s", l.apiURL, room)

	body, err := json.Marshal(map[string]interface{}{
		"name":             room,
		"empty_timeout":    300,
		"max_participants": 10,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode room request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.apiURL+"/rooms", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build room request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(l.apiKey, l.apiSecret)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		slog.Error("livekit room create failed, using bare URL", "component", "rooms", "error", err)
		return joinURL, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		slog.Error("livekit room create rejected, using bare URL", "component", "rooms", "status", resp.StatusCode)
	}
	return joinURL, nil
}

func (l *LiveKit) Join(_ context.Context, meetingURL, displayName string) (JoinInfo, error) {
	room := roomFromURL(meetingURL)
	now := time.Now()
	claims := jwt.MapClaims{
		"iss": l.apiKey,
		"sub": displayName,
		"exp": now.Add(2 * time.Hour).Unix(),
		"nbf": now.Add(-5 * time.Minute).Unix(),
		"video": map[string]interface{}{
			"room":     room,
			"roomJoin": true,
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(l.apiSecret))
	if err != nil {
		return JoinInfo{}, fmt.Errorf("failed to sign access token: %w", err)
	}

	return JoinInfo{
		Provider:   l.Name(),
		MeetingURL: meetingURL,
		RoomName:   room,
		Token:      token,
	}, nil
}
