package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// User is the account payload returned by the API.
type User struct {
	ID              string `json:"id,omitempty"`
	Email           string `json:"email,omitempty"`
	FirstName       string `json:"firstName,omitempty"`
	LastName        string `json:"lastName,omitempty"`
	Instrument      string `json:"instrument,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
}

// SessionPayload is returned by login and register.
type SessionPayload struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// RegisterInput is the registration request body.
type RegisterInput struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Email           string `json:"email"`
	Instrument      string `json:"instrument,omitempty"`
	ProfileImageURL string `json:"profileImageUrl,omitempty"`
	Password        string `json:"password"`
}

// APIError is a non-2xx response decoded from the server error body.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// API issues the raw HTTP calls. Requests go through the session
// Transport so the bearer header tracks the credential slot.
type API struct {
	baseURL string
	http    *http.Client
}

func NewAPI(baseURL string, httpClient *http.Client) *API {
	return &API{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

func (a *API) Login(ctx context.Context, email, password string) (*SessionPayload, error) {
	out := &SessionPayload{}
	err := a.postJSON(ctx, "/api/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, out)
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) Register(ctx context.Context, input RegisterInput) (*SessionPayload, error) {
	out := &SessionPayload{}
	if err := a.postJSON(ctx, "/api/auth/register", input, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) Me(ctx context.Context) (*User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.baseURL+"/api/auth/me", nil)
	if err != nil {
		return nil, err
	}

	out := &User{}
	if err := a.do(req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (a *API) postJSON(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	return a.do(req, out)
}

func (a *API) do(req *http.Request, out any) error {
	res, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return decodeError(res)
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

// decodeError lifts the message out of the server's error body. Bodies
// that are not the expected JSON shape fall back to the status text.
func decodeError(res *http.Response) error {
	apiErr := &APIError{StatusCode: res.StatusCode}

	data, err := io.ReadAll(io.LimitReader(res.Body, 1<<16))
	if err == nil {
		var body struct {
			Message string `json:"message"`
		}
		if jsonErr := json.Unmarshal(data, &body); jsonErr == nil {
			apiErr.Message = body.Message
		}
	}

	return apiErr
}
