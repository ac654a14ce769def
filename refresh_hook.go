package authclient

import (
	"context"
	"net/http"

	"github.com/insightify/go-authclient/transport"
)

// RefreshHook builds the renewal response hook. Every response flowing
// through the transport is observed; a 403 on a request that has not been
// retried triggers the injected refresh operation, and on success the
// original request is re-issued with the renewed credential and its result
// returned to the caller transparently. A request is retried at most once,
// and the retry flag rides on the request itself so concurrent requests are
// handled independently.
func RefreshHook(refresh func(context.Context) (string, error), logger Logger) transport.ResponseHook {
	if logger == nil {
		logger = transport.DefaultLogger()
	}

	return func(ctx context.Context, c *transport.Client, req *transport.Request, res *transport.Response, err error) (*transport.Response, error) {
		if err != nil || res == nil {
			return res, err
		}

		if res.StatusCode != http.StatusForbidden || req.Retried() {
			return res, err
		}

		req.MarkRetried()

		if _, rerr := refresh(ctx); rerr != nil {
			// Refresh failure is terminal; the manager has already torn the
			// session down. The caller gets the original authorization
			// failure, not the refresh error.
			logger.Info("token refresh failed, propagating original response: %v", rerr)
			return res, err
		}

		logger.Debug("re-issuing %s %s after token refresh", req.Method, req.Path)
		return c.Send(ctx, req)
	}
}
