// Package rewardgrp maintains the group of handlers for reward access.
package rewardgrp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ecoride/rewards/business/core/reward"
	"github.com/ecoride/rewards/business/web/errs"
	"github.com/ecoride/rewards/foundation/events"
	"github.com/ecoride/rewards/foundation/web"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Handlers manages the set of reward endpoints.
type Handlers struct {
	Log    *zap.SugaredLogger
	Reward *reward.Reward
	WS     websocket.Upgrader
	Evts   *events.Events
}

// Submit rewards the user for a verified trip and waits for the transaction
// to be verified on chain.
func (h Handlers) Submit(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	var nr NewReward
	if err := web.Decode(r, &nr); err != nil {
		return errs.NewTrusted(err, http.StatusBadRequest)
	}

	// A submitted transaction runs to verification or the polling limit
	// even if the client goes away.
	ctx = context.WithoutCancel(ctx)

	txID, err := h.Reward.TriggerSmartContract(ctx, nr.Address, nr.Distance)
	if err != nil {
		se := reward.GetStageError(err)

		switch {
		case errors.Is(err, reward.ErrValidation):
			return errs.NewTrusted(err, http.StatusBadRequest)

		case reward.OutcomeUnknown(err):
			resp := Reward{
				TxID:   se.TxID,
				Status: StatusPending,
			}
			return web.Respond(ctx, w, resp, http.StatusAccepted)

		case errors.Is(err, reward.ErrVerification):
			return errs.NewTrustedTx(err, http.StatusConflict, se.TxID)

		case reward.Retryable(err):
			return errs.NewTrusted(err, http.StatusBadGateway)
		}

		return err
	}

	resp := Reward{
		TxID:   txID,
		Status: StatusVerified,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Receipt queries the node for the receipt of a reward transaction.
func (h Handlers) Receipt(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	txID := web.Param(r, "txid")

	rcpt, err := h.Reward.Receipt(ctx, txID)
	if err != nil {
		if errors.Is(err, reward.ErrValidation) {
			return errs.NewTrusted(err, http.StatusBadRequest)
		}
		return errs.NewTrusted(err, http.StatusBadGateway)
	}

	if rcpt == nil {
		resp := Receipt{
			TxID:   txID,
			Status: StatusPending,
		}
		return web.Respond(ctx, w, resp, http.StatusOK)
	}

	status := StatusVerified
	if rcpt.Reverted {
		status = StatusReverted
	}

	resp := Receipt{
		TxID:    txID,
		Status:  status,
		GasUsed: rcpt.GasUsed,
		Receipt: rcpt.Raw,
	}

	return web.Respond(ctx, w, resp, http.StatusOK)
}

// Events handles a web socket to provide reward events to a client.
func (h Handlers) Events(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	v, err := web.GetValues(ctx)
	if err != nil {
		return web.NewShutdownError("web value missing from context")
	}

	// A failed upgrade has already replied to the client with an http error.
	c, err := h.WS.Upgrade(w, r, nil)
	if err != nil {
		h.Log.Infow("events", "traceid", v.TraceID, "status", "upgrade failed", "ERROR", err)
		return nil
	}
	defer c.Close()

	ch := h.Evts.Acquire(v.TraceID)
	defer h.Evts.Release(v.TraceID)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case ev, wd := <-ch:
			if !wd {
				return nil
			}

			// The connection is hijacked so a failed write can only mean
			// the client went away. There is no response left to send.
			if err := c.WriteMessage(websocket.TextMessage, ev.JSON()); err != nil {
				h.Log.Infow("events", "traceid", v.TraceID, "status", "client disconnected", "ERROR", err)
				return nil
			}

		case <-ticker.C:
			if err := c.WriteMessage(websocket.PingMessage, []byte("ping")); err != nil {
				h.Log.Infow("events", "traceid", v.TraceID, "status", "client disconnected", "ERROR", err)
				return nil
			}
		}
	}
}
