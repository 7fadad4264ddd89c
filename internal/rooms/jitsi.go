package rooms

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Jitsi provisions rooms on a Jitsi Meet deployment. When an app secret is
// configured, Join issues the moderated-room JWT the Jitsi web client expects.
type Jitsi struct {
	domain    string
	appID     string
	appSecret string
}

func NewJitsi(domain, appID, appSecret string) *Jitsi {
	return &Jitsi{domain: domain, appID: appID, appSecret: appSecret}
}

func (j *Jitsi) Name() string { return "jitsi" }

func (j *Jitsi) CreateRoom(_ context.Context, title string) (string, error) {
	room := fmt.Sprintf("%s-%s", sanitizeRoomName(title), uuid.New().String()[:8])
	return fmt.Sprintf("https://%s/%s", j.domain, room), nil
}

func (j *Jitsi) Join(_ context.Context, meetingURL, displayName string) (JoinInfo, error) {
	room := roomFromURL(meetingURL)
	info := JoinInfo{
		Provider:   j.Name(),
		MeetingURL: meetingURL,
		RoomName:   room,
		Domain:     j.domain,
	}

	if j.appSecret == "" {
		return info, nil
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  j.appID,
		"aud":  "jitsi",
		"sub":  j.domain,
		"room": room,
		"exp":  now.Add(2 * time.Hour).Unix(),
		"nbf":  now.Add(-5 * time.Minute).Unix(),
		"context": map[string]interface{}{
			"user": map[string]interface{}{
				"name": displayName,
			},
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(j.appSecret))
	if err != nil {
		return JoinInfo{}, fmt.Errorf("failed to sign room token: %w", err)
	}
	info.Token = token
	return info, nil
}

func roomFromURL(meetingURL string) string {
	if idx := strings.LastIndex(meetingURL, "/"); idx >= 0 {
		return meetingURL[idx+1:]
	}
	return meetingURL
}
