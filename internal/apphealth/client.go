package apphealth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Erick-Marinho/Health-AI/pkg/logging"
)

const (
	defaultBaseURL = "https://back.homologacao.apphealth.com.br:9090/api-vizi"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 300
)

// APIError is a non-2xx reply from APPHealth. 4xx replies are business
// rejections (slot taken, invalid patient) and are not retried.
type APIError struct {
	Status int
	Path   string
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apphealth API returned %d on %s: %s", e.Status, e.Path, e.Body)
}

// IsDomain reports whether the error is a business rejection.
func (e *APIError) IsDomain() bool {
	return e.Status >= 400 && e.Status < 500 && e.Status != http.StatusTooManyRequests && e.Status != http.StatusUnauthorized
}

// Client wraps the APPHealth REST endpoints used for scheduling.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *logging.Logger
}

// NewClient constructs an APPHealth client. The token is sent verbatim in
// the Authorization header.
func NewClient(baseURL, token string, logger *logging.Logger) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultBaseURL
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		logger:     logger.WithComponent("apphealth"),
	}
}

func (c *Client) GetSpecialties(ctx context.Context) ([]Specialty, error) {
	var out []Specialty
	if err := c.doJSON(ctx, http.MethodGet, "/especialidades", nil, &out); err != nil {
		return nil, fmt.Errorf("get specialties: %w", err)
	}
	return out, nil
}

// GetProfessionals lists professionals, optionally filtered by specialty.
func (c *Client) GetProfessionals(ctx context.Context, specialtyID string, activeOnly bool) ([]Professional, error) {
	q := url.Values{}
	if activeOnly {
		q.Set("status", "true")
	}
	if specialtyID != "" {
		q.Set("especialidadeId", specialtyID)
	}
	path := "/profissionais"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []Professional
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("get professionals: %w", err)
	}
	return out, nil
}

func (c *Client) GetAvailableDates(ctx context.Context, professionalID string, month, year int) ([]AvailableDate, error) {
	q := url.Values{}
	q.Set("mes", fmt.Sprintf("%02d", month))
	q.Set("ano", strconv.Itoa(year))
	path := fmt.Sprintf("/agenda/profissionais/%s/datas?%s", url.PathEscape(professionalID), q.Encode())

	var out []AvailableDate
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("get available dates: %w", err)
	}
	return out, nil
}

func (c *Client) GetAvailableTimes(ctx context.Context, professionalID, date string) ([]AvailableTime, error) {
	q := url.Values{}
	q.Set("data", date)
	path := fmt.Sprintf("/agenda/profissionais/%s/horarios?%s", url.PathEscape(professionalID), q.Encode())

	var out []AvailableTime
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("get available times: %w", err)
	}
	return out, nil
}

func (c *Client) GetUnits(ctx context.Context) ([]Unit, error) {
	var out []Unit
	if err := c.doJSON(ctx, http.MethodGet, "/unidades", nil, &out); err != nil {
		return nil, fmt.Errorf("get units: %w", err)
	}
	return out, nil
}

func (c *Client) CreateAppointment(ctx context.Context, req AppointmentRequest) (*AppointmentResponse, error) {
	var resp AppointmentResponse
	if err := c.doJSON(ctx, http.MethodPost, "/agendamentos", req, &resp); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}
	if resp.ID == "" {
		return nil, errors.New("create appointment: response carried no id")
	}
	return &resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	endpoint := c.baseURL + path

	var bodyReader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := string(respBody)
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		c.logger.Warn("apphealth API non-2xx response", "status", resp.StatusCode, "path", path, "body", msg)
		return &APIError{Status: resp.StatusCode, Path: path, Body: msg}
	}

	if len(respBody) == 0 || out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
