package classifier_client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a client for the Classifier service API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Sample is one observation sent for classification. Samples carry their
// timestamps so the classifier can apply its own recency weighting.
type Sample struct {
	Timestamp       time.Time `json:"timestamp"`
	MoodScore       *float64  `json:"mood_score,omitempty"`
	SleepHours      *float64  `json:"sleep_hours,omitempty"`
	SleepQuality    *float64  `json:"sleep_quality,omitempty"`
	Steps           *float64  `json:"steps,omitempty"`
	ExerciseMinutes *float64  `json:"exercise_minutes,omitempty"`
	ActivityLevel   *float64  `json:"activity_level,omitempty"`
}

// Baseline is the averaged profile the samples are compared against. Nil when
// the user has no established baseline.
type Baseline struct {
	SleepHours             float64 `json:"sleep_hours"`
	SleepQuality           float64 `json:"sleep_quality"`
	ActivityLevel          float64 `json:"activity_level"`
	AverageMoodScore       float64 `json:"average_mood_score"`
	AverageStepsPerDay     float64 `json:"average_steps_per_day"`
	ExerciseMinutesPerWeek float64 `json:"exercise_minutes_per_week"`
}

// ClassifyRequest is the scoring contract request.
type ClassifyRequest struct {
	Samples  []Sample  `json:"samples"`
	Baseline *Baseline `json:"baseline,omitempty"`
}

// ClassifyResponse is the scoring contract response.
type ClassifyResponse struct {
	Status             string   `json:"status"` // stable, declining, critical
	Confidence         float64  `json:"confidence"`
	NeedsSupport       bool     `json:"needs_support"`
	SignificantChanges []string `json:"significant_changes,omitempty"`
	ProcessingTimeMs   float64  `json:"processing_time_ms,omitempty"`
}

// HealthResponse represents health check response.
type HealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Message     string `json:"message"`
}

// NewClient creates a new Classifier service client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Classify scores a window of samples, optionally against a baseline.
func (c *Client) Classify(ctx context.Context, samples []Sample, baseline *Baseline) (*ClassifyResponse, error) {
	reqBody := ClassifyRequest{
		Samples:  samples,
		Baseline: baseline,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/v1/classify", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("classifier service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result ClassifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}

// HealthCheck checks if the classifier service is healthy.
func (c *Client) HealthCheck(ctx context.Context) (*HealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/api/v1/health", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("classifier service returned status %d: %s", resp.StatusCode, string(body))
	}

	var result HealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &result, nil
}
