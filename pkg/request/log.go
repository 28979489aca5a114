package request

import (
	"log/slog"
	"net/http"

	"tripweaver/pkg/logging"
)

// logRequest records an outbound attempt on the dedicated request log
// when one is configured, falling back to the default debug logger.
func logRequest(req *http.Request, attempt int) {
	if logging.RequestLogger != nil {
		logging.RequestLogger.Info("request",
			"method", req.Method,
			"host", req.URL.Host,
			"path", req.URL.Path,
			"attempt", attempt+1)
		return
	}
	slog.Debug("Network Request", "host", req.URL.Host, "path", req.URL.Path, "attempt", attempt+1)
}
