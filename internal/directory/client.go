package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/andescare/careline/pkg/logger"
	"github.com/andescare/careline/pkg/metrics"
)

// Client talks to the patient directory over HTTP/JSON.
type Client struct {
	baseURL    string
	apiToken   string
	httpClient *http.Client
	logger     *logger.Logger
}

// NewClient creates a directory client. The timeout bounds every
// collaborator call.
func NewClient(baseURL, apiToken string, timeout time.Duration, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		apiToken:   apiToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

// LookupPatient implements Service.
func (c *Client) LookupPatient(ctx context.Context, documentID string) (*Patient, error) {
	endpoint := fmt.Sprintf("%s/patients/%s", c.baseURL, url.PathEscape(documentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("directory: build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.CollaboratorCalls.WithLabelValues("lookup_patient", "failure").Inc()
		return nil, fmt.Errorf("directory: lookup patient: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var p Patient
		if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
			metrics.CollaboratorCalls.WithLabelValues("lookup_patient", "failure").Inc()
			return nil, fmt.Errorf("directory: decode patient: %w", err)
		}
		metrics.CollaboratorCalls.WithLabelValues("lookup_patient", "found").Inc()
		return &p, nil
	case http.StatusNotFound:
		metrics.CollaboratorCalls.WithLabelValues("lookup_patient", "not_found").Inc()
		return nil, ErrNotFound
	default:
		metrics.CollaboratorCalls.WithLabelValues("lookup_patient", "failure").Inc()
		return nil, fmt.Errorf("directory: lookup patient: unexpected status %d", resp.StatusCode)
	}
}

// LookupAppointments implements Service.
func (c *Client) LookupAppointments(ctx context.Context, documentID string) ([]Appointment, error) {
	endpoint := fmt.Sprintf("%s/patients/%s/appointments", c.baseURL, url.PathEscape(documentID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("directory: build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.CollaboratorCalls.WithLabelValues("lookup_appointments", "failure").Inc()
		return nil, fmt.Errorf("directory: lookup appointments: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.CollaboratorCalls.WithLabelValues("lookup_appointments", "failure").Inc()
		return nil, fmt.Errorf("directory: lookup appointments: unexpected status %d", resp.StatusCode)
	}

	var appointments []Appointment
	if err := json.NewDecoder(resp.Body).Decode(&appointments); err != nil {
		metrics.CollaboratorCalls.WithLabelValues("lookup_appointments", "failure").Inc()
		return nil, fmt.Errorf("directory: decode appointments: %w", err)
	}
	metrics.CollaboratorCalls.WithLabelValues("lookup_appointments", "success").Inc()
	return appointments, nil
}

// CreateClinicalRecord implements Service.
func (c *Client) CreateClinicalRecord(ctx context.Context, rec ClinicalRecord) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("directory: marshal record: %w", err)
	}

	endpoint := c.baseURL + "/clinical-records"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("directory: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.CollaboratorCalls.WithLabelValues("create_record", "failure").Inc()
		return fmt.Errorf("directory: create record: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		metrics.CollaboratorCalls.WithLabelValues("create_record", "failure").Inc()
		c.logger.Warn("clinical record creation rejected",
			zap.Int("status", resp.StatusCode),
			zap.String("document_id", rec.DocumentID),
		)
		return fmt.Errorf("directory: create record: unexpected status %d", resp.StatusCode)
	}
	metrics.CollaboratorCalls.WithLabelValues("create_record", "success").Inc()
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiToken)
	}
}
