// Package awskb is the default remote client for the knowledge base
// Retrieve API: a single SigV4-signed POST per call, with credential and
// region resolution delegated to the AWS SDK.
package awskb

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"go.uber.org/zap"

	"github.com/cloudrag/kbretrieve/internal/metrics"
	"github.com/cloudrag/kbretrieve/retrieval"
)

const signingService = "bedrock"

// The remote call is long for large result counts; retries stay at zero so
// a slow call is never doubled.
const (
	defaultConnectTimeout = 120 * time.Second
	defaultReadTimeout    = 120 * time.Second
)

// Config holds the remote knowledge base client settings.
type Config struct {
	// Region selects the service region; empty falls back to the shared
	// AWS configuration (env, profile).
	Region string
	// Profile selects a shared-config credentials profile; empty uses the
	// default credential chain.
	Profile string
	// EndpointURL overrides the service endpoint (testing, private links).
	EndpointURL string

	ConnectTimeout time.Duration
	ReadTimeout    time.Duration

	// HTTPClient overrides the default client, including its timeouts.
	HTTPClient *http.Client
	// Credentials overrides the resolved credential provider.
	Credentials aws.CredentialsProvider

	Logger *zap.Logger
}

// Client calls the knowledge base Retrieve endpoint. Safe for concurrent
// use; every call is one signed request with no retries.
type Client struct {
	http     *http.Client
	signer   *v4.Signer
	creds    aws.CredentialsProvider
	region   string
	endpoint string
	logger   *zap.Logger
}

// New resolves AWS configuration and creates a Client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Profile != "" {
		loadOpts = append(loadOpts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: load aws config: %v", retrieval.ErrClientInit, err)
	}
	if awsCfg.Region == "" {
		return nil, fmt.Errorf("%w: aws region is not configured", retrieval.ErrClientInit)
	}

	creds := cfg.Credentials
	if creds == nil {
		creds = awsCfg.Credentials
	}
	if creds == nil {
		return nil, fmt.Errorf("%w: no aws credentials resolved", retrieval.ErrClientInit)
	}

	endpoint := strings.TrimSuffix(cfg.EndpointURL, "/")
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://bedrock-agent-runtime.%s.amazonaws.com", awsCfg.Region)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		connect := cfg.ConnectTimeout
		if connect <= 0 {
			connect = defaultConnectTimeout
		}
		read := cfg.ReadTimeout
		if read <= 0 {
			read = defaultReadTimeout
		}
		httpClient = &http.Client{
			Timeout: read,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: connect}).DialContext,
				TLSHandshakeTimeout: connect,
			},
		}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		http:     httpClient,
		signer:   v4.NewSigner(),
		creds:    creds,
		region:   awsCfg.Region,
		endpoint: endpoint,
		logger:   logger,
	}, nil
}

// retrieveBody is the REST body: the knowledge base id travels in the URL
// path, the rest of the wire request in the body.
type retrieveBody struct {
	RetrievalQuery retrieval.Query            `json:"retrievalQuery"`
	Configuration  *retrieval.RetrievalConfig `json:"retrievalConfiguration,omitempty"`
}

// Retrieve implements the retrieval client contract with a single POST to
// /knowledgebases/{id}/retrieve.
func (c *Client) Retrieve(ctx context.Context, req retrieval.Request) (retrieval.Page, error) {
	kb := req.KnowledgeBaseID
	if kb == "" {
		return retrieval.Page{}, fmt.Errorf("%w: knowledge base id is required", retrieval.ErrInvalidConfig)
	}

	body, err := json.Marshal(retrieveBody{
		RetrievalQuery: req.RetrievalQuery,
		Configuration:  req.Configuration,
	})
	if err != nil {
		return retrieval.Page{}, fmt.Errorf("marshal retrieve request: %w", err)
	}

	target := fmt.Sprintf("%s/knowledgebases/%s/retrieve", c.endpoint, url.PathEscape(kb))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return retrieval.Page{}, fmt.Errorf("build retrieve request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if err := c.sign(ctx, httpReq, body); err != nil {
		metrics.RetrievalErrorsTotal.WithLabelValues(kb, "sign").Inc()
		return retrieval.Page{}, err
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues(kb, "error").Inc()
		metrics.RetrievalErrorsTotal.WithLabelValues(kb, "transport").Inc()
		return retrieval.Page{}, fmt.Errorf("knowledge base request failed: %v: %w", err, retrieval.ErrUpstream)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues(kb, "error").Inc()
		metrics.RetrievalErrorsTotal.WithLabelValues(kb, "transport").Inc()
		return retrieval.Page{}, fmt.Errorf("read retrieve response: %v: %w", err, retrieval.ErrUpstream)
	}

	if resp.StatusCode != http.StatusOK {
		metrics.RetrievalRequestsTotal.WithLabelValues(kb, "error").Inc()
		metrics.RetrievalErrorsTotal.WithLabelValues(kb, "api_error").Inc()
		c.logger.Warn("knowledge base API error",
			zap.String("knowledge_base_id", kb),
			zap.Int("status", resp.StatusCode),
		)
		return retrieval.Page{}, apiError(resp.StatusCode, payload)
	}

	var page retrieval.Page
	if err := json.Unmarshal(payload, &page); err != nil {
		metrics.RetrievalRequestsTotal.WithLabelValues(kb, "error").Inc()
		metrics.RetrievalErrorsTotal.WithLabelValues(kb, "decode").Inc()
		return retrieval.Page{}, fmt.Errorf("decode retrieve response: %v: %w", err, retrieval.ErrUpstream)
	}

	metrics.RetrievalRequestsTotal.WithLabelValues(kb, "success").Inc()
	metrics.RetrievalRequestDuration.WithLabelValues(kb).Observe(duration.Seconds())
	metrics.RetrievalResultsReturned.WithLabelValues(kb).Observe(float64(len(page.RetrievalResults)))

	return page, nil
}

func (c *Client) sign(ctx context.Context, req *http.Request, body []byte) error {
	creds, err := c.creds.Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("%w: resolve credentials: %v", retrieval.ErrClientInit, err)
	}
	sum := sha256.Sum256(body)
	if err := c.signer.SignHTTP(ctx, creds, req, hex.EncodeToString(sum[:]), signingService, c.region, time.Now()); err != nil {
		return fmt.Errorf("sign retrieve request: %w", err)
	}
	return nil
}

// apiError maps a non-2xx response to an upstream error, surfacing the
// service's message field when the body carries one.
func apiError(status int, body []byte) error {
	var parsed struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Message != "" {
		return fmt.Errorf("knowledge base API error %d: %s: %w", status, parsed.Message, retrieval.ErrUpstream)
	}
	return fmt.Errorf("knowledge base API error %d: %s: %w", status, strings.TrimSpace(string(body)), retrieval.ErrUpstream)
}
