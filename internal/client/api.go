// Package client talks to the timecard API and keeps the small amount of
// session state a front end needs between runs.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/hongminglow/timecard-be/internal/http/respond"
	"github.com/hongminglow/timecard-be/internal/models"
	"github.com/hongminglow/timecard-be/internal/models/dto"
)

// APIError is a non-2xx response decoded from the server's error body.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return e.Message
}

// API is a thin JSON client for the /api routes. No retries and no default
// timeout; callers bound calls with ctx.
type API struct {
	baseURL string
	http    *http.Client
}

// NewAPI returns a client for the server at baseURL (e.g. "http://localhost:5000").
// A nil httpClient uses http.DefaultClient.
func NewAPI(baseURL string, httpClient *http.Client) *API {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &API{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

func (a *API) Signup(ctx context.Context, username, email, password string) (dto.AuthResponse, error) {
	var out dto.AuthResponse
	err := a.do(ctx, http.MethodPost, "/api/signup", "", dto.SignupRequest{Username: username, Email: email, Password: password}, &out)
	return out, err
}

func (a *API) Login(ctx context.Context, email, password string) (dto.AuthResponse, error) {
	var out dto.AuthResponse
	err := a.do(ctx, http.MethodPost, "/api/login", "", dto.LoginRequest{Email: email, Password: password}, &out)
	return out, err
}

func (a *API) AddEntry(ctx context.Context, token, personName string, hours, minutes int) (models.Entry, error) {
	var out models.Entry
	err := a.do(ctx, http.MethodPost, "/api/entries", token, dto.AddEntryRequest{PersonName: personName, Hours: hours, Minutes: minutes}, &out)
	return out, err
}

// ListEntries returns the caller's entries, narrowed to personName when it is non-empty.
func (a *API) ListEntries(ctx context.Context, token, personName string) ([]models.Entry, error) {
	var out []models.Entry
	err := a.do(ctx, http.MethodGet, "/api/entries"+personQuery(personName), token, nil, &out)
	return out, err
}

func (a *API) DeleteEntries(ctx context.Context, token, personName string) (int64, error) {
	var out dto.DeleteEntriesResponse
	err := a.do(ctx, http.MethodDelete, "/api/entries"+personQuery(personName), token, nil, &out)
	return out.DeletedCount, err
}

func (a *API) DeleteEntry(ctx context.Context, token, entryID string) error {
	return a.do(ctx, http.MethodDelete, "/api/entries/"+url.PathEscape(entryID), token, nil, nil)
}

func (a *API) SavePerson(ctx context.Context, token, personName string, entries []models.SavedEntry) (models.SavedSummary, error) {
	var out models.SavedSummary
	err := a.do(ctx, http.MethodPost, "/api/save-person", token, dto.SavePersonRequest{PersonName: personName, Entries: entries}, &out)
	return out, err
}

func (a *API) SavedPersons(ctx context.Context, token string) ([]models.SavedSummary, error) {
	var out []models.SavedSummary
	err := a.do(ctx, http.MethodGet, "/api/saved-persons", token, nil, &out)
	return out, err
}

func personQuery(personName string) string {
	if personName == "" {
		return ""
	}
	return "?" + url.Values{"personName": {personName}}.Encode()
}

func (a *API) do(ctx context.Context, method, path, token string, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var eb respond.ErrorBody
		if json.NewDecoder(resp.Body).Decode(&eb) == nil {
			apiErr.Code = eb.Code
			apiErr.Message = eb.Error
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
