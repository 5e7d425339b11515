package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"tasktrack/internal/models"
)

const (
	defaultHTTPTimeout = 10 * time.Second
	httpTimeoutEnvKey  = "TASKTRACK_HTTP_TIMEOUT"
)

// Client is a session-cookie HTTP client for the tasktrack API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a new API client. Cookies set by Login are kept for
// later calls.
func NewClient(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: httpTimeoutFromEnv(), Jar: jar},
	}
}

// Ping checks whether the API server is reachable.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil, nil)
}

func (c *Client) Login(ctx context.Context, username, password string) (IdentityResponse, error) {
	var resp IdentityResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/login", nil, LoginRequest{Username: username, Password: password}, &resp)
	return resp, err
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil, nil)
}

func (c *Client) Me(ctx context.Context) (IdentityResponse, error) {
	var resp IdentityResponse
	err := c.do(ctx, http.MethodGet, "/api/auth/me", nil, nil, &resp)
	return resp, err
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) (IdentityResponse, error) {
	var resp IdentityResponse
	err := c.do(ctx, http.MethodPost, "/api/auth/change-password", nil,
		ChangePasswordRequest{CurrentPassword: current, NewPassword: next}, &resp)
	return resp, err
}

// ListLookups lists departments, roles or statuses; kind is the URL segment.
func (c *Client) ListLookups(ctx context.Context, kind string) ([]models.Lookup, error) {
	var resp []models.Lookup
	err := c.do(ctx, http.MethodGet, "/api/"+url.PathEscape(kind), nil, nil, &resp)
	return resp, err
}

func (c *Client) CreateLookup(ctx context.Context, kind, name string) (models.Lookup, error) {
	var resp models.Lookup
	err := c.do(ctx, http.MethodPost, "/api/"+url.PathEscape(kind), nil, LookupRequest{Name: name}, &resp)
	return resp, err
}

func (c *Client) CreateUser(ctx context.Context, req UserCreateRequest) (models.User, error) {
	var resp models.User
	err := c.do(ctx, http.MethodPost, "/api/users", nil, req, &resp)
	return resp, err
}

// UploadTemp stages a file and returns the handle to pass in a task request.
func (c *Client) UploadTemp(ctx context.Context, filename, contentType string, content io.Reader) (models.TempUploadedFile, error) {
	var resp models.TempUploadedFile

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return resp, err
	}
	if _, err := io.Copy(part, content); err != nil {
		return resp, err
	}
	if err := mw.Close(); err != nil {
		return resp, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/file/upload-temp", &body)
	if err != nil {
		return resp, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	err = c.send(req, &resp)
	return resp, err
}

func (c *Client) CreateTask(ctx context.Context, req TaskRequest) (TaskResponse, error) {
	var resp TaskResponse
	err := c.do(ctx, http.MethodPost, "/api/tasks", nil, req, &resp)
	return resp, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, req TaskRequest) (TaskResponse, error) {
	var resp TaskResponse
	err := c.do(ctx, http.MethodPut, taskPath(id), nil, req, &resp)
	return resp, err
}

func (c *Client) GetTask(ctx context.Context, id int64) (TaskResponse, error) {
	var resp TaskResponse
	err := c.do(ctx, http.MethodGet, taskPath(id), nil, nil, &resp)
	return resp, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil, nil)
}

func (c *Client) ListTasks(ctx context.Context, query url.Values) (models.TaskPage, error) {
	var resp models.TaskPage
	err := c.do(ctx, http.MethodGet, "/api/tasks", query, nil, &resp)
	return resp, err
}

// DownloadFile streams an attachment to w and returns its response headers.
func (c *Client) DownloadFile(ctx context.Context, fileID int64, w io.Writer) (http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/file/files/"+strconv.FormatInt(fileID, 10), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, decodeError(resp)
	}
	_, err = io.Copy(w, resp.Body)
	return resp.Header, err
}

func taskPath(id int64) string {
	return "/api/tasks/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.send(req, out)
}

func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func httpTimeoutFromEnv() time.Duration {
	value := strings.TrimSpace(os.Getenv(httpTimeoutEnvKey))
	if value == "" {
		return defaultHTTPTimeout
	}

	if duration, err := time.ParseDuration(value); err == nil && duration > 0 {
		return duration
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}

	return defaultHTTPTimeout
}
