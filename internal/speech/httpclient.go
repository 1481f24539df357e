package speech

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/asianviking/takopi-discord/internal/logging"
)

type ctxKeyCorrelation struct{}

// WithCorrelationID returns a context carrying a correlation ID which the
// clients attach to outgoing requests as X-Correlation-ID.
func WithCorrelationID(ctx context.Context, cid string) context.Context {
	return context.WithValue(ctx, ctxKeyCorrelation{}, cid)
}

// CorrelationID extracts a correlation ID previously attached with
// WithCorrelationID, or "".
func CorrelationID(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyCorrelation{}).(string); ok {
		return v
	}
	return ""
}

// postWithRetries posts body to url with retry/backoff and returns the
// response. Caller must close resp.Body.
func postWithRetries(ctx context.Context, client *http.Client, url, contentType string, body []byte, authToken string, timeout time.Duration, attempts int) (*http.Response, error) {
	if attempts <= 0 {
		attempts = 1
	}
	cid := CorrelationID(ctx)
	var lastErr error
	for i := 0; i < attempts; i++ {
		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			cancel()
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		if authToken != "" {
			req.Header.Set("Authorization", "Bearer "+authToken)
		}
		if cid != "" {
			req.Header.Set("X-Correlation-ID", cid)
		}

		resp, err := client.Do(req)
		cancel()
		if err != nil {
			lastErr = err
			logging.Debugw("speech: POST attempt failed", "url", url, "attempt", i+1, "err", err, "correlation_id", cid)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if i < attempts-1 {
				time.Sleep(time.Duration(200*(1<<i)) * time.Millisecond)
			}
			continue
		}
		if resp.StatusCode >= 500 && i < attempts-1 {
			resp.Body.Close()
			lastErr = fmt.Errorf("server error status=%d", resp.StatusCode)
			logging.Warnw("speech: server error, retrying", "url", url, "status", resp.StatusCode, "attempt", i+1, "correlation_id", cid)
			time.Sleep(time.Duration(200*(1<<i)) * time.Millisecond)
			continue
		}
		return resp, nil
	}
	return nil, lastErr
}
