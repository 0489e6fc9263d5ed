// Package v1 contains the full set of handler functions and routes
// supported by the v1 web api.
package v1

import (
	"net/http"

	"github.com/ecoride/rewards/app/services/rewards/handlers/v1/rewardgrp"
	"github.com/ecoride/rewards/business/core/reward"
	"github.com/ecoride/rewards/business/web/mid"
	"github.com/ecoride/rewards/foundation/events"
	"github.com/ecoride/rewards/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const version = "v1"

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log        *zap.SugaredLogger
	Reward     *reward.Reward
	Evts       *events.Events
	CORSOrigin string
}

// Routes binds all the version 1 routes.
func Routes(app *web.App, cfg Config) {
	rgh := rewardgrp.Handlers{
		Log:    cfg.Log,
		Reward: cfg.Reward,
		WS: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return mid.AllowOrigin(cfg.CORSOrigin, r.Header.Get("Origin"))
			},
		},
		Evts: cfg.Evts,
	}

	app.Handle(http.MethodGet, version, "/events", rgh.Events)
	app.Handle(http.MethodPost, version, "/rewards", rgh.Submit)
	app.Handle(http.MethodGet, version, "/rewards/:txid/receipt", rgh.Receipt)
}
