package reward

import (
	"context"

	"github.com/ecoride/rewards/foundation/web"
)

// input is the reward request checked before any work is done.
type input struct {
	Address  string `json:"address" validate:"required,eth_addr"`
	Distance int64  `json:"distance" validate:"gte=0"`
}

// traceID returns the request trace id when the reward runs inside a web
// request.
func traceID(ctx context.Context) string {
	return web.GetTraceID(ctx)
}
