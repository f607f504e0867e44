package v1

import (
	"context"
	"net/http"
)

// SymbolSource defines the symbol-catalog contract that the v1 router
// depends on.
type SymbolSource interface {
	Symbols(ctx context.Context, exchangeID string) ([]string, error)
}

// Gateway defines the WebSocket surface the v1 router mounts at /ws.
type Gateway interface {
	HandleWS(w http.ResponseWriter, r *http.Request)
	SessionCount() int
}

// Registry reports the fan-out engine's live counts for health reporting.
type Registry interface {
	StreamCount() int
}
