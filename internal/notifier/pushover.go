package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const pushoverAPI = "https://api.pushover.net/1/messages.json"

// PushoverSender delivers push messages via the Pushover message API.
type PushoverSender struct {
	Token    string
	User     string
	Device   string
	Sound    string
	Endpoint string
	Client   *http.Client
}

// NewPushoverSender creates a sender for the given application token and user key.
func NewPushoverSender(token, user, device, sound string) *PushoverSender {
	return &PushoverSender{
		Token:    token,
		User:     user,
		Device:   device,
		Sound:    sound,
		Endpoint: pushoverAPI,
		Client:   newHTTPClient(),
	}
}

func (p *PushoverSender) Name() string { return "pushover" }

type pushoverResponse struct {
	Status  int      `json:"status"`
	Request string   `json:"request"`
	Errors  []string `json:"errors"`
}

// Send posts one message. Priority follows Pushover's -2..1 range.
func (p *PushoverSender) Send(ctx context.Context, title, message string, priority int) error {
	form := url.Values{}
	form.Set("token", p.Token)
	form.Set("user", p.User)
	form.Set("title", title)
	form.Set("message", message)
	form.Set("priority", strconv.Itoa(priority))
	if p.Device != "" {
		form.Set("device", p.Device)
	}
	if p.Sound != "" {
		form.Set("sound", p.Sound)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.Client.Do(req)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	var result pushoverResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("pushover API error: status %d, body: %s", resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK || result.Status != 1 {
		return fmt.Errorf("pushover API error: status %d: %s", resp.StatusCode, strings.Join(result.Errors, "; "))
	}
	return nil
}
