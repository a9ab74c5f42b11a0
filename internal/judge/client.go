package judge

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/opencontest/contest-api/internal/logger"
)

const name = "github.com/opencontest/contest-api/internal/judge"

var tracer = otel.Tracer(name)

// ErrRateLimited surfaces remote throttling distinctly from hard failures so
// callers can back off and retry instead of marking the evaluation failed.
var ErrRateLimited = errors.New("rate limited by execution service, retry later")

const timedOutMessage = "timed out waiting for execution service result"

// Client drives the remote sandboxed code-execution service: submission
// creation (single or batched), bounded polling, and verdict classification.
// Each Run call blocks until every test case is terminal or the polling
// budget is spent; concurrency across submissions is the caller's business.
type Client struct {
	http *http.Client
	cfg  Config
}

func NewClient(cfg Config) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = cfg.RequestTimeout
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.Logger = nil
	retryClient.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
			// throttling is handled above the transport with its own backoff
			return false, nil
		}

		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}

	return &Client{
		http: retryClient.StandardClient(),
		cfg:  cfg,
	}
}

// Run executes every test case of the request and returns one result per
// test case in input order. It never blocks indefinitely: any test case
// still pending after the attempt budget is reported as errored with a
// timed-out message.
func (c *Client) Run(ctx context.Context, req *RunRequest) (*RunResult, error) {
	ctx, span := tracer.Start(ctx, "Client.Run", trace.WithAttributes(
		attribute.Int("language.id", req.LanguageID),
		attribute.Int("test_cases", len(req.TestCases)),
	))
	defer span.End()

	if len(req.TestCases) == 0 {
		return nil, errors.New("no test cases to run")
	}

	tokens, err := c.createSubmissions(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to create submissions")
		return nil, err
	}

	byToken, err := c.poll(ctx, tokens)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to poll submissions")
		return nil, err
	}

	result := &RunResult{Results: make([]TestResult, 0, len(tokens))}
	for _, token := range tokens {
		remote, ok := byToken[token]
		if !ok {
			// Attempt budget exhausted with this token still outstanding
			result.Results = append(result.Results, TestResult{
				Token:   token,
				Verdict: VerdictErrored,
				Message: timedOutMessage,
			})
			continue
		}

		testResult := c.classify(token, remote)
		if testResult.Verdict == VerdictPassed {
			result.Passed++
		}
		result.Results = append(result.Results, testResult)
	}

	span.SetAttributes(attribute.Int("passed", result.Passed))
	span.RecordError(nil)
	span.SetStatus(codes.Ok, "ran test cases")
	return result, nil
}

// Submissions are chunked to the remote batch ceiling with a short pause
// between consecutive requests to stay under the service's rate limit.
func (c *Client) createSubmissions(ctx context.Context, req *RunRequest) ([]string, error) {
	if len(req.TestCases) == 1 {
		token, err := c.createSingle(ctx, c.wireSubmission(req, req.TestCases[0]))
		if err != nil {
			return nil, err
		}
		return []string{token}, nil
	}

	tokens := make([]string, 0, len(req.TestCases))
	for start := 0; start < len(req.TestCases); start += c.cfg.BatchSize {
		if start > 0 {
			if err := sleepCtx(ctx, c.cfg.SubmissionDelay); err != nil {
				return nil, err
			}
		}

		end := min(start+c.cfg.BatchSize, len(req.TestCases))

		batch := wireBatchRequest{}
		for _, testCase := range req.TestCases[start:end] {
			batch.Submissions = append(batch.Submissions, c.wireSubmission(req, testCase))
		}

		batchTokens, err := c.createBatch(ctx, batch)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, batchTokens...)
	}

	return tokens, nil
}

func (c *Client) wireSubmission(req *RunRequest, testCase TestCase) wireSubmission {
	return wireSubmission{
		SourceCode:     c.encode(req.SourceCode),
		LanguageID:     req.LanguageID,
		Stdin:          c.encode(testCase.Stdin),
		ExpectedOutput: c.encode(testCase.ExpectedOutput),
		CPUTimeLimit:   req.CPUTimeLimitSecs,
		MemoryLimit:    req.MemoryLimitKB,
	}
}

func (c *Client) createSingle(ctx context.Context, submission wireSubmission) (string, error) {
	var token wireToken
	err := c.post(ctx, "/submissions", submission, &token)
	if err != nil {
		return "", err
	}
	if token.Token == "" {
		return "", errors.New("execution service returned no token")
	}

	return token.Token, nil
}

func (c *Client) createBatch(ctx context.Context, batch wireBatchRequest) ([]string, error) {
	var wireTokens []wireToken
	err := c.post(ctx, "/submissions/batch", batch, &wireTokens)
	if err != nil {
		return nil, err
	}
	if len(wireTokens) != len(batch.Submissions) {
		return nil, fmt.Errorf(
			"execution service returned %d tokens for %d submissions",
			len(wireTokens), len(batch.Submissions),
		)
	}

	tokens := make([]string, 0, len(wireTokens))
	for i, token := range wireTokens {
		if token.Token == "" {
			return nil, fmt.Errorf("execution service returned no token for submission %d", i)
		}
		tokens = append(tokens, token.Token)
	}

	return tokens, nil
}

// poll asks the service about every outstanding token at a fixed interval,
// removing tokens as they reach a terminal status so later polls only carry
// what remains. The attempt counter, not wall clock, bounds the wait.
func (c *Client) poll(ctx context.Context, tokens []string) (map[string]wireResult, error) {
	ctx, span := tracer.Start(ctx, "Client.poll", trace.WithAttributes(
		attribute.Int("tokens", len(tokens)),
	))
	defer span.End()

	results := make(map[string]wireResult, len(tokens))
	pending := make([]string, len(tokens))
	copy(pending, tokens)

	for attempt := 0; attempt < c.cfg.MaxPollAttempts && len(pending) > 0; attempt++ {
		if err := sleepCtx(ctx, c.cfg.PollInterval); err != nil {
			return nil, err
		}

		remotes, err := c.fetch(ctx, pending)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "failed to fetch submission statuses")
			return nil, err
		}

		stillPending := pending[:0]
		for _, token := range pending {
			remote, ok := remotes[token]
			if ok && terminal(remote.Status.ID) {
				results[token] = remote
				continue
			}
			stillPending = append(stillPending, token)
		}
		pending = stillPending
	}

	if len(pending) > 0 {
		logger.Logger.WarnContext(ctx, "polling budget exhausted with tokens outstanding",
			"outstanding", len(pending),
			"attempts", c.cfg.MaxPollAttempts,
		)
	}

	span.RecordError(nil)
	span.SetStatus(codes.Ok, "polled submissions")
	return results, nil
}

func (c *Client) fetch(ctx context.Context, tokens []string) (map[string]wireResult, error) {
	if len(tokens) == 1 {
		var remote wireResult
		err := c.get(ctx, "/submissions/"+url.PathEscape(tokens[0]), nil, &remote)
		if err != nil {
			return nil, err
		}
		if remote.Token == "" {
			remote.Token = tokens[0]
		}

		return map[string]wireResult{remote.Token: remote}, nil
	}

	var batch wireBatchResult
	query := url.Values{"tokens": []string{strings.Join(tokens, ",")}}
	err := c.get(ctx, "/submissions/batch", query, &batch)
	if err != nil {
		return nil, err
	}

	remotes := make(map[string]wireResult, len(batch.Submissions))
	for _, remote := range batch.Submissions {
		remotes[remote.Token] = remote
	}

	return remotes, nil
}

func (c *Client) classify(token string, remote wireResult) TestResult {
	verdict := VerdictFailed
	if remote.Status.ID == StatusAccepted {
		verdict = VerdictPassed
	}

	return TestResult{
		Token:             token,
		Verdict:           verdict,
		StatusID:          remote.Status.ID,
		StatusDescription: remote.Status.Description,
		Stdout:            c.decode(remote.Stdout),
		Stderr:            c.decode(remote.Stderr),
		CompileOutput:     c.decode(remote.CompileOutput),
		Time:              remote.Time,
		Memory:            remote.Memory,
		Message:           remote.Message,
	}
}

// post sends a creation request, absorbing a short burst of throttling with
// backoff before surfacing ErrRateLimited to the caller.
func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(250*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := c.do(ctx, http.MethodPost, path, nil, bytes.NewReader(body), out)
		if errors.Is(err, ErrRateLimited) {
			return retry.RetryableError(err)
		}

		return err
	})
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) do(
	ctx context.Context,
	method, path string,
	query url.Values,
	body io.Reader,
	out any,
) error {
	endpoint := strings.TrimSuffix(c.cfg.URL, "/") + path

	if query == nil {
		query = url.Values{}
	}
	query.Set("base64_encoded", fmt.Sprint(c.cfg.Base64EncodedBodies))
	endpoint += "?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("failed to construct request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.AuthToken != "" {
		req.Header.Set("X-Auth-Token", c.cfg.AuthToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach execution service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("execution service returned status %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}

	return nil
}

func (c *Client) encode(s string) string {
	if !c.cfg.Base64EncodedBodies {
		return s
	}

	return base64.StdEncoding.EncodeToString([]byte(s))
}

func (c *Client) decode(s string) string {
	if !c.cfg.Base64EncodedBodies || s == "" {
		return s
	}

	decoded, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		// the service occasionally returns plain text error bodies
		return s
	}

	return string(decoded)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
