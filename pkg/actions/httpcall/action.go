// Package httpcall forwards a workflow action to a remediation HTTP endpoint.
// The endpoint owns the real cluster side effect; the action reports its
// response back as the execution result.
package httpcall

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/kubegenie/kubegenie/pkg/protocol"
)

const defaultRequestTimeout = 30 * time.Second

func NewActionFactory() *ActionFactory {
	return &ActionFactory{}
}

type ActionFactory struct{}

func (*ActionFactory) ID() string {
	return "httpcall"
}

func (f *ActionFactory) Create(config map[string]any) (protocol.Action, error) {
	endpoint, _ := config["endpoint"].(string)
	if endpoint == "" {
		endpoint = os.Getenv("KUBEGENIE_REMEDIATION_ENDPOINT")
	}

	if endpoint == "" {
		return nil, fmt.Errorf("httpcall action requires an 'endpoint' parameter or KUBEGENIE_REMEDIATION_ENDPOINT")
	}

	return &Action{
		endpoint: endpoint,
		client:   &http.Client{Timeout: defaultRequestTimeout},
	}, nil
}

type Action struct {
	endpoint string
	client   *http.Client
}

func (a *Action) Execute(ctx context.Context, parameters map[string]any, logger *slog.Logger) (map[string]any, error) {
	logger.InfoContext(ctx, "Forwarding action to remediation endpoint", "endpoint", a.endpoint)

	payload, err := json.Marshal(parameters)
	if err != nil {
		return nil, fmt.Errorf("failed to encode action parameters: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create http request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remediation request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read remediation response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("remediation endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	result := map[string]any{
		"status_code": resp.StatusCode,
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err == nil {
		result["response"] = decoded
	} else if len(body) > 0 {
		result["response"] = string(body)
	}

	return result, nil
}
