package rewardgrp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/ecoride/rewards/app/services/rewards/handlers/v1/rewardgrp"
	"github.com/ecoride/rewards/business/core/reward"
	"github.com/ecoride/rewards/business/web/errs"
	"github.com/ecoride/rewards/business/web/mid"
	"github.com/ecoride/rewards/foundation/blockchain/tx"
	"github.com/ecoride/rewards/foundation/events"
	"github.com/ecoride/rewards/foundation/thor"
	"github.com/ecoride/rewards/foundation/web"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap/zaptest"
)

const (
	privateKey = "fae85851bdf5c9f49923722ce38f3c1defcfd3619ef5453230a58ad805499959"
	contract   = "0x7567d83b7b8d80addcb281a71d54fc7b3364ffed"
	user       = "0x1f9090aae28b8a3dceadf281b0f12828e676c326"
	txID       = "0x4de71e5b1c3b0eb1b4a2f1e0d4c1d2ab3c4e5f60718293a4b5c6d7e8f9012345"
)

// fakeNode answers every node call in process.
type fakeNode struct {
	submitErr error
	pollErr   error
	receipt   *thor.Receipt
}

func (n fakeNode) EstimateGas(ctx context.Context, clauses []tx.Clause) (uint64, error) {
	return 36000, nil
}

func (n fakeNode) BlockRef(ctx context.Context) (tx.BlockRef, error) {
	return tx.BlockRef{0x00, 0x01, 0xe2, 0x40}, nil
}

func (n fakeNode) Submit(ctx context.Context, raw string) (string, error) {
	if n.submitErr != nil {
		return "", n.submitErr
	}
	return txID, nil
}

func (n fakeNode) Receipt(ctx context.Context, id string) (*thor.Receipt, error) {
	return n.receipt, nil
}

func (n fakeNode) PollReceipt(ctx context.Context, id string) (thor.Receipt, error) {
	if n.pollErr != nil {
		return thor.Receipt{}, n.pollErr
	}
	return thor.Receipt{ID: id}, nil
}

func newApp(t *testing.T, node reward.Node) *web.App {
	log := zaptest.NewLogger(t).Sugar()

	r, err := reward.New(reward.Config{
		Log:             log,
		Node:            node,
		ChainTag:        0x27,
		ContractAddress: contract,
		PrivateKey:      privateKey,
		ABIPath:         "testdata/contract.json",
		Registerer:      prometheus.NewRegistry(),
	})
	if err != nil {
		t.Fatalf("Should be able to construct the orchestrator: %v", err)
	}

	h := rewardgrp.Handlers{
		Log:    log,
		Reward: r,
	}

	app := web.NewApp(make(chan os.Signal, 1), mid.Errors(log))
	app.Handle(http.MethodPost, "v1", "/rewards", h.Submit)
	app.Handle(http.MethodGet, "v1", "/rewards/:txid/receipt", h.Receipt)

	return app
}

func Test_Submit(t *testing.T) {
	type table struct {
		name   string
		node   fakeNode
		body   string
		status int
		txID   string
		fields []string
	}

	tt := []table{
		{name: "verified", body: fmt.Sprintf(`{"address":%q,"distance":1250}`, user), status: http.StatusOK, txID: txID},
		{name: "pending", node: fakeNode{pollErr: thor.ErrReceiptTimeout}, body: fmt.Sprintf(`{"address":%q,"distance":1250}`, user), status: http.StatusAccepted, txID: txID},
		{name: "reverted", node: fakeNode{pollErr: thor.ErrVerification}, body: fmt.Sprintf(`{"address":%q,"distance":1250}`, user), status: http.StatusConflict, txID: txID},
		{name: "rejected", node: fakeNode{submitErr: thor.ErrSubmission}, body: fmt.Sprintf(`{"address":%q,"distance":1250}`, user), status: http.StatusBadGateway},
		{name: "badaddress", body: `{"address":"not-an-address","distance":10}`, status: http.StatusBadRequest, fields: []string{"address"}},
		{name: "negative", body: fmt.Sprintf(`{"address":%q,"distance":-1}`, user), status: http.StatusBadRequest, fields: []string{"distance"}},
		{name: "garbage", body: `{"address":`, status: http.StatusBadRequest},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			app := newApp(t, tst.node)

			w := httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/rewards", strings.NewReader(tst.body)))

			if w.Code != tst.status {
				t.Fatalf("Should get back status %d, got %d: %s", tst.status, w.Code, w.Body.String())
			}

			var resp struct {
				TxID   string            `json:"txId"`
				Status string            `json:"status"`
				Fields map[string]string `json:"fields"`
			}
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Should get back a JSON document: %v", err)
			}

			if resp.TxID != tst.txID {
				t.Fatalf("Should get back tx id %q, got %q", tst.txID, resp.TxID)
			}

			for _, name := range tst.fields {
				if _, exists := resp.Fields[name]; !exists {
					t.Fatalf("Should get back a field error for %q, got %v", name, resp.Fields)
				}
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_Receipt(t *testing.T) {
	type table struct {
		name    string
		txID    string
		receipt *thor.Receipt
		status  int
		state   string
	}

	tt := []table{
		{name: "pending", txID: txID, status: http.StatusOK, state: rewardgrp.StatusPending},
		{name: "verified", txID: txID, receipt: &thor.Receipt{ID: txID, GasUsed: 36000, Raw: json.RawMessage(`{"reverted":false}`)}, status: http.StatusOK, state: rewardgrp.StatusVerified},
		{name: "reverted", txID: txID, receipt: &thor.Receipt{ID: txID, Reverted: true, Raw: json.RawMessage(`{"reverted":true}`)}, status: http.StatusOK, state: rewardgrp.StatusReverted},
		{name: "badid", txID: "0x1234", status: http.StatusBadRequest},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			app := newApp(t, fakeNode{receipt: tst.receipt})

			w := httptest.NewRecorder()
			app.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/rewards/"+tst.txID+"/receipt", nil))

			if w.Code != tst.status {
				t.Fatalf("Should get back status %d, got %d: %s", tst.status, w.Code, w.Body.String())
			}

			if tst.state == "" {
				var resp errs.Response
				json.NewDecoder(w.Body).Decode(&resp)
				if resp.Error == "" {
					t.Fatal("Should get back an error document.")
				}
				return
			}

			var resp rewardgrp.Receipt
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("Should get back a JSON document: %v", err)
			}

			if resp.Status != tst.state || resp.TxID != tst.txID {
				t.Fatalf("Should get back status %q, got %+v", tst.state, resp)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_EventsDisconnect(t *testing.T) {
	log := zaptest.NewLogger(t).Sugar()
	evts := events.New()

	h := rewardgrp.Handlers{
		Log:  log,
		Evts: evts,
	}

	shutdown := make(chan os.Signal, 1)
	app := web.NewApp(shutdown, mid.Logger(log), mid.Errors(log), mid.Panics())
	app.Handle(http.MethodGet, "v1", "/events", h.Events)

	done := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer close(done)
		app.ServeHTTP(w, r)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Should be able to open the events socket: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for evts.Count() != 1 {
		if time.Now().After(deadline) {
			t.Fatal("Should register the client for events.")
		}
		time.Sleep(10 * time.Millisecond)
	}

	evts.Send(events.Event{Stage: "submit", TxID: txID, Message: "transaction submitted"})

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Should receive the event: %v", err)
	}

	var ev events.Event
	if err := json.Unmarshal(msg, &ev); err != nil {
		t.Fatalf("Should receive a JSON event: %v", err)
	}
	if ev.TxID != txID || ev.Stage != "submit" {
		t.Fatalf("Should receive the submitted event, got %+v", ev)
	}

	// Drop the connection without a close handshake and keep sending so
	// the handler hits a failed write.
	conn.UnderlyingConn().Close()

	timeout := time.After(10 * time.Second)
	for running := true; running; {
		select {
		case <-done:
			running = false
		case <-timeout:
			t.Fatal("Should end the events handler once the client is gone.")
		case <-time.After(10 * time.Millisecond):
			evts.Send(events.Event{Stage: "verify", TxID: txID, Message: "waiting for receipt"})
		}
	}

	select {
	case sig := <-shutdown:
		t.Fatalf("Should not shut the service down when a client disconnects, got %v.", sig)
	default:
	}

	if n := evts.Count(); n != 0 {
		t.Fatalf("Should release the client channel, got %d receivers.", n)
	}
}
