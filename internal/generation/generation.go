// Package generation drives the remote ComfyUI-style image generation
// queue: submit an injected workflow, poll its history record with
// adaptive backoff until it completes or the bound timeout expires, and
// fetch the resulting image bytes.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	darkwallerrors "github.com/veighnsche/darkwall-comfyui/internal/errors"
)

const (
	// MinTimeoutSeconds and MaxTimeoutSeconds bound the configured
	// generation timeout, per spec.md §6.1.
	MinTimeoutSeconds = 1
	MaxTimeoutSeconds = 3600

	// MinPollIntervalSeconds and MaxPollIntervalSeconds bound the
	// configured poll interval.
	MinPollIntervalSeconds = 1
	MaxPollIntervalSeconds = 60

	// pollIntervalCeiling is the adaptive backoff ceiling: repeated empty
	// poll responses lengthen the interval up to this multiple of the
	// configured poll_interval.
	pollIntervalCeiling = 4.0

	// retryAttempts is the number of submit/fetch retries after the first
	// request; retryDelays lists the nominal delay before each retry,
	// mirroring the reference service's exponential backoff.
	retryAttempts = 3
)

var retryDelays = []time.Duration{2 * time.Second, 4 * time.Second, 8 * time.Second}

// Status is a point-in-time snapshot of a submission's progress, the
// states spec.md §4.7 enumerates: Submitted, Queued, Running, Succeeded,
// Fetched, Failed, TimedOut.
type Status string

const (
	StatusSubmitted Status = "submitted"
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFetched   Status = "fetched"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
)

// Driver submits workflows to a ComfyUI-compatible queue and retrieves
// the resulting image.
type Driver struct {
	baseURL      string
	httpClient   *http.Client
	clientID     string
	pollInterval time.Duration
	timeout      time.Duration

	// onQueuePosition, when set, is invoked every time a poll response
	// reports a changed queue position.
	onQueuePosition func(position int)
}

// Config configures a Driver. Timeout and PollInterval are validated
// against spec.md §6.1's ranges.
type Config struct {
	BaseURL         string
	Timeout         int // seconds, 1..=3600
	PollInterval    int // seconds, 1..=60
	OnQueuePosition func(position int)
}

// NewDriver validates cfg and builds a Driver with a pooled HTTP
// transport, mirroring the reference service's
// requests.adapters.HTTPAdapter(pool_maxsize=20) session reuse.
func NewDriver(cfg Config) (*Driver, error) {
	if cfg.Timeout < MinTimeoutSeconds || cfg.Timeout > MaxTimeoutSeconds {
		return nil, &darkwallerrors.ConfigInvalid{
			Key:    "service.timeout",
			Reason: fmt.Sprintf("must be between %d and %d seconds, got %d", MinTimeoutSeconds, MaxTimeoutSeconds, cfg.Timeout),
		}
	}
	if cfg.PollInterval < MinPollIntervalSeconds || cfg.PollInterval > MaxPollIntervalSeconds {
		return nil, &darkwallerrors.ConfigInvalid{
			Key:    "service.poll_interval",
			Reason: fmt.Sprintf("must be between %d and %d seconds, got %d", MinPollIntervalSeconds, MaxPollIntervalSeconds, cfg.PollInterval),
		}
	}

	transport := &http.Transport{
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
	}

	return &Driver{
		baseURL:         cfg.BaseURL,
		httpClient:      &http.Client{Transport: transport},
		clientID:        uuid.NewString(),
		pollInterval:    time.Duration(cfg.PollInterval) * time.Second,
		timeout:         time.Duration(cfg.Timeout) * time.Second,
		onQueuePosition: cfg.OnQueuePosition,
	}, nil
}

// Result is the outcome of a completed generation: the fetched image
// bytes plus the identifiers needed for history/gallery recording.
type Result struct {
	PromptID string
	Image    []byte
}

// Run submits the workflow document, polls until completion or timeout,
// and fetches the resulting image. It is the single entry point the
// orchestrator calls; submission, polling, and fetch happen strictly in
// that order, per spec.md §4.7.
func (d *Driver) Run(ctx context.Context, workflow map[string]any) (*Result, error) {
	deadline := time.Now().Add(d.timeout)
	ctx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	promptID, err := d.submit(ctx, workflow)
	if err != nil {
		return nil, err
	}

	outputs, err := d.pollUntilComplete(ctx, promptID, deadline)
	if err != nil {
		return nil, err
	}

	image, err := d.fetch(ctx, outputs)
	if err != nil {
		return nil, err
	}

	return &Result{PromptID: promptID, Image: image}, nil
}

type submitRequest struct {
	Prompt   map[string]any `json:"prompt"`
	ClientID string         `json:"client_id"`
}

type submitResponse struct {
	PromptID string `json:"prompt_id"`
	Error    *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (d *Driver) submit(ctx context.Context, workflow map[string]any) (string, error) {
	body, err := json.Marshal(submitRequest{Prompt: workflow, ClientID: d.clientID})
	if err != nil {
		return "", fmt.Errorf("encode submission: %w", err)
	}

	var resp submitResponse
	status, err := d.doJSONWithRetry(ctx, http.MethodPost, "/prompt", body, &resp)
	if err != nil {
		return "", err
	}
	if status >= 400 {
		reason := "rejected by service"
		if resp.Error != nil && resp.Error.Message != "" {
			reason = resp.Error.Message
		}
		return "", &darkwallerrors.SubmissionRejected{Reason: reason}
	}
	if resp.PromptID == "" {
		return "", &darkwallerrors.SubmissionRejected{Reason: "service accepted the request but returned no prompt_id"}
	}
	return resp.PromptID, nil
}

type historyOutput struct {
	Images []struct {
		Filename  string `json:"filename"`
		Subfolder string `json:"subfolder"`
		Type      string `json:"type"`
	} `json:"images"`
}

type historyRecord struct {
	Status struct {
		Completed bool                 `json:"completed"`
		Messages  [][]json.RawMessage  `json:"messages"`
	} `json:"status"`
	Outputs map[string]historyOutput `json:"outputs"`
}

// pollUntilComplete repeatedly queries /history/{promptID} until a
// completion record appears or the deadline is reached, adaptively
// lengthening the interval on repeated empty responses and resetting it
// whenever the reported queue position changes, per spec.md §4.7.
func (d *Driver) pollUntilComplete(ctx context.Context, promptID string, deadline time.Time) (map[string]historyOutput, error) {
	interval := d.pollInterval
	lastQueuePosition := -1

	for {
		if time.Now().After(deadline) {
			return nil, &darkwallerrors.GenerationTimeout{Elapsed: d.timeout.Seconds()}
		}

		records := map[string]historyRecord{}
		status, err := d.doJSONWithRetry(ctx, http.MethodGet, "/history/"+url.PathEscape(promptID), nil, &records)
		if err != nil {
			return nil, err
		}
		if status >= 400 {
			return nil, &darkwallerrors.SubmissionRejected{Reason: fmt.Sprintf("history lookup returned status %d", status)}
		}

		record, ok := records[promptID]
		if !ok || len(record.Outputs) == 0 {
			queuePos, qerr := d.queuePosition(ctx, promptID)
			if qerr == nil && queuePos != lastQueuePosition {
				lastQueuePosition = queuePos
				interval = d.pollInterval
				if d.onQueuePosition != nil {
					d.onQueuePosition(queuePos)
				}
			} else {
				interval = nextInterval(interval, d.pollInterval)
			}

			select {
			case <-ctx.Done():
				return nil, &darkwallerrors.GenerationTimeout{Elapsed: d.timeout.Seconds()}
			case <-time.After(interval):
			}
			continue
		}

		if nodeErrors := extractNodeErrors(record); len(nodeErrors) > 0 {
			return nil, &darkwallerrors.GenerationFailed{NodeErrors: nodeErrors}
		}

		return record.Outputs, nil
	}
}

// nextInterval lengthens the poll interval on an empty response, capped
// at pollIntervalCeiling times the base configured interval.
func nextInterval(current, base time.Duration) time.Duration {
	ceiling := time.Duration(float64(base) * pollIntervalCeiling)
	next := current * 2
	if next > ceiling {
		return ceiling
	}
	return next
}

type queueResponse struct {
	QueueRunning []json.RawMessage `json:"queue_running"`
	QueuePending []json.RawMessage `json:"queue_pending"`
}

// queuePosition reports promptID's position within queue_pending, or -1
// if it is running or not found. A lookup failure is non-fatal —
// callers fall back to plain adaptive backoff.
func (d *Driver) queuePosition(ctx context.Context, promptID string) (int, error) {
	var resp queueResponse
	status, err := d.doJSONWithRetry(ctx, http.MethodGet, "/queue", nil, &resp)
	if err != nil || status >= 400 {
		return -1, fmt.Errorf("queue lookup unavailable")
	}
	for i, raw := range resp.QueuePending {
		if bytes.Contains(raw, []byte(promptID)) {
			return i, nil
		}
	}
	return -1, nil
}

// extractNodeErrors scans the history record's status messages for
// execution_error entries, the reference service's mechanism for
// reporting per-node failures. Each such message is
// ["execution_error", {"node_id": "...", "exception_message": "..."}].
func extractNodeErrors(record historyRecord) map[string]string {
	errs := map[string]string{}
	for _, message := range record.Status.Messages {
		if len(message) != 2 {
			continue
		}
		var kind string
		if err := json.Unmarshal(message[0], &kind); err != nil || kind != "execution_error" {
			continue
		}
		var detail struct {
			NodeID           string `json:"node_id"`
			ExceptionMessage string `json:"exception_message"`
		}
		if err := json.Unmarshal(message[1], &detail); err != nil {
			continue
		}
		nodeID := detail.NodeID
		if nodeID == "" {
			nodeID = fmt.Sprintf("node-%d", len(errs))
		}
		errs[nodeID] = detail.ExceptionMessage
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// fetch retrieves the bytes of the first image-producing node output.
func (d *Driver) fetch(ctx context.Context, outputs map[string]historyOutput) ([]byte, error) {
	for _, output := range outputs {
		for _, img := range output.Images {
			if img.Filename == "" {
				continue
			}
			query := url.Values{}
			query.Set("filename", img.Filename)
			query.Set("subfolder", img.Subfolder)
			query.Set("type", img.Type)

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+"/view?"+query.Encode(), nil)
			if err != nil {
				return nil, &darkwallerrors.ImageFetchFailed{Filename: img.Filename, Err: err}
			}
			resp, err := d.httpClient.Do(req)
			if err != nil {
				return nil, &darkwallerrors.ImageFetchFailed{Filename: img.Filename, Err: err}
			}
			data, err := readAndClose(resp)
			if err != nil {
				return nil, &darkwallerrors.ImageFetchFailed{Filename: img.Filename, Err: err}
			}
			if resp.StatusCode >= 400 {
				return nil, &darkwallerrors.ImageFetchFailed{Filename: img.Filename, Err: fmt.Errorf("status %d", resp.StatusCode)}
			}
			return data, nil
		}
	}
	return nil, &darkwallerrors.ImageFetchFailed{Filename: "", Err: fmt.Errorf("completion record contained no image outputs")}
}

func readAndClose(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// doJSONWithRetry performs an HTTP request against the driver's
// base URL, retrying connection errors, read timeouts, and 5xx
// responses with the nominal 2s/4s/8s backoff of spec.md §4.7. A
// caller-supplied out pointer receives the decoded JSON body on a
// non-empty 2xx/4xx response.
func (d *Driver) doJSONWithRetry(ctx context.Context, method, path string, body []byte, out any) (int, error) {
	var lastErr error

	for attempt := 0; attempt <= retryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return 0, &darkwallerrors.NetworkUnreachable{BaseURL: d.baseURL, Err: ctx.Err()}
			case <-time.After(retryDelays[attempt-1]):
			}
		}

		var reqBody io.Reader
		if body != nil {
			reqBody = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, d.baseURL+path, reqBody)
		if err != nil {
			return 0, fmt.Errorf("build request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := d.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode >= 500 {
			resp.Body.Close()
			lastErr = fmt.Errorf("status %d", resp.StatusCode)
			continue
		}

		data, err := readAndClose(resp)
		if err != nil {
			lastErr = err
			continue
		}
		if out != nil && len(data) > 0 {
			if err := json.Unmarshal(data, out); err != nil {
				return resp.StatusCode, fmt.Errorf("decode response from %s: %w", path, err)
			}
		}
		return resp.StatusCode, nil
	}

	return 0, &darkwallerrors.NetworkUnreachable{BaseURL: d.baseURL, Err: lastErr}
}

// HealthCheck queries /system_stats, used by the status command to
// report service identity.
func (d *Driver) HealthCheck(ctx context.Context) (map[string]any, error) {
	var stats map[string]any
	status, err := d.doJSONWithRetry(ctx, http.MethodGet, "/system_stats", nil, &stats)
	if err != nil {
		return nil, err
	}
	if status >= 400 {
		return nil, &darkwallerrors.NetworkUnreachable{BaseURL: d.baseURL, Err: fmt.Errorf("status %d", status)}
	}
	return stats, nil
}
