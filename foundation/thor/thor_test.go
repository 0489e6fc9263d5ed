package thor_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ecoride/rewards/foundation/blockchain/tx"
	"github.com/ecoride/rewards/foundation/thor"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap/zaptest"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

const (
	bestID = "0x0001e2403a7b0c6d3a3f1a6f7aa3e2cbb47d5b4aee0e2f3d5f1f9a1d5e1c8a7b"
	txID   = "0x4de71e5b1c3b0eb1b4a2f1e0d4c1d2ab3c4e5f60718293a4b5c6d7e8f9012345"
)

// node is a stub thor node. Each route answers with the configured status
// and body and counts the requests it receives.
type node struct {
	mu       sync.Mutex
	calls    map[string]int
	bodies   map[string][]byte
	routes   map[string]func() (int, string)
	receipts []string
}

func newNode() *node {
	return &node{
		calls:  make(map[string]int),
		bodies: make(map[string][]byte),
		routes: make(map[string]func() (int, string)),
	}
}

func (n *node) route(key string, status int, body string) {
	n.routes[key] = func() (int, string) { return status, body }
}

func (n *node) count(key string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[key]
}

func (n *node) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.mu.Lock()
	defer n.mu.Unlock()

	key := r.Method + " " + r.URL.Path
	n.calls[key]++

	body, _ := io.ReadAll(r.Body)
	n.bodies[key] = body

	// Receipts are answered in sequence with the last answer repeating.
	if r.URL.Path == "/transactions/"+txID+"/receipt" && len(n.receipts) > 0 {
		i := min(n.calls[key]-1, len(n.receipts)-1)
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, n.receipts[i])
		return
	}

	route, exists := n.routes[key]
	if !exists {
		http.NotFound(w, r)
		return
	}

	status, resp := route()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, resp)
}

func newClient(t *testing.T, n *node, clock clockwork.Clock) *thor.Client {
	srv := httptest.NewServer(n)
	t.Cleanup(srv.Close)

	client, err := thor.New(thor.Config{
		BaseURL: srv.URL,
		Clock:   clock,
		Log:     zaptest.NewLogger(t).Sugar(),
	})
	if err != nil {
		t.Fatalf("Should be able to construct a client: %v", err)
	}

	return client
}

var clause = tx.Clause{
	To:    common.HexToAddress("0x7567d83b7b8d80addcb281a71d54fc7b3364ffed"),
	Value: big.NewInt(0),
	Data:  []byte{0x01, 0x02},
}

// =============================================================================

func Test_EstimateGas(t *testing.T) {
	type table struct {
		name    string
		status  int
		body    string
		clauses []tx.Clause
		exp     uint64
		err     error
	}

	tt := []table{
		{name: "sum", status: 200, body: `[{"gasUsed":21000,"reverted":false},{"gasUsed":4000,"reverted":false}]`, clauses: []tx.Clause{clause}, exp: 25000},
		{name: "notlist", status: 200, body: `{"gasUsed":21000}`, clauses: []tx.Clause{clause}, err: thor.ErrGasEstimation},
		{name: "zero", status: 200, body: `[{"gasUsed":0}]`, clauses: []tx.Clause{clause}, err: thor.ErrGasEstimation},
		{name: "missing", status: 200, body: `[{}]`, clauses: []tx.Clause{clause}, err: thor.ErrGasEstimation},
		{name: "reverted", status: 200, body: `[{"gasUsed":100,"reverted":true,"vmError":"execution reverted"}]`, clauses: []tx.Clause{clause}, err: thor.ErrGasEstimation},
		{name: "status", status: 500, body: `boom`, clauses: []tx.Clause{clause}, err: thor.ErrGasEstimation},
		{name: "empty", status: 200, body: `[]`, err: thor.ErrGasEstimation},
	}

	t.Log("Given the need to estimate gas for clauses.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				n := newNode()
				n.route("POST /accounts/*", tst.status, tst.body)
				client := newClient(t, n, clockwork.NewFakeClock())

				gas, err := client.EstimateGas(context.Background(), tst.clauses)
				if tst.err != nil {
					if !errors.Is(err, tst.err) {
						t.Fatalf("\t%s\tTest %d:\tShould get back the right error: %v", failed, testID, err)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right error.", success, testID)
					return
				}

				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to estimate gas: %v", failed, testID, err)
				}

				if gas != tst.exp {
					t.Logf("\t%s\tTest %d:\tgot: %d", failed, testID, gas)
					t.Logf("\t%s\tTest %d:\texp: %d", failed, testID, tst.exp)
					t.Fatalf("\t%s\tTest %d:\tShould get back the summed gas.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the summed gas.", success, testID)

				var req struct {
					Clauses []map[string]string `json:"clauses"`
				}
				if err := json.Unmarshal(n.bodies["POST /accounts/*"], &req); err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould post a clauses document: %v", failed, testID, err)
				}

				exp := []map[string]string{{"to": "0x7567d83b7b8d80addcb281a71d54fc7b3364ffed", "value": "0x0", "data": "0x0102"}}
				if diff := cmp.Diff(exp, req.Clauses); diff != "" {
					t.Fatalf("\t%s\tTest %d:\tShould post the clauses in node form:\n%s", failed, testID, diff)
				}
				t.Logf("\t%s\tTest %d:\tShould post the clauses in node form.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_BlockRefCache(t *testing.T) {
	n := newNode()
	n.route("GET /blocks/best", 200, `{"id":"`+bestID+`","number":123456}`)

	clock := clockwork.NewFakeClock()
	client := newClient(t, n, clock)

	exp := tx.BlockRef{0x00, 0x01, 0xe2, 0x40, 0x3a, 0x7b, 0x0c, 0x6d}

	t.Log("Given the need to cache the block ref.")
	{
		br, err := client.BlockRef(context.Background())
		if err != nil {
			t.Fatalf("\t%s\tShould be able to get the block ref: %v", failed, err)
		}

		if br != exp {
			t.Logf("\t%s\tgot: %s", failed, br)
			t.Logf("\t%s\texp: %s", failed, exp)
			t.Fatalf("\t%s\tShould get back the first 8 bytes of the block id.", failed)
		}
		t.Logf("\t%s\tShould get back the first 8 bytes of the block id.", success)

		clock.Advance(59 * time.Second)
		if _, err := client.BlockRef(context.Background()); err != nil {
			t.Fatalf("\t%s\tShould be able to get the cached block ref: %v", failed, err)
		}

		if calls := n.count("GET /blocks/best"); calls != 1 {
			t.Fatalf("\t%s\tShould not call the node again within 60 seconds, calls %d.", failed, calls)
		}
		t.Logf("\t%s\tShould not call the node again within 60 seconds.", success)

		clock.Advance(2 * time.Second)
		if _, err := client.BlockRef(context.Background()); err != nil {
			t.Fatalf("\t%s\tShould be able to refresh the block ref: %v", failed, err)
		}

		if calls := n.count("GET /blocks/best"); calls != 2 {
			t.Fatalf("\t%s\tShould call the node again after 61 seconds, calls %d.", failed, calls)
		}
		t.Logf("\t%s\tShould call the node again after 61 seconds.", success)
	}
}

func Test_BlockRefErrors(t *testing.T) {
	type table struct {
		name   string
		status int
		body   string
	}

	tt := []table{
		{name: "missingid", status: 200, body: `{"number":1}`},
		{name: "shortid", status: 200, body: `{"id":"0x0102"}`},
		{name: "badhex", status: 200, body: `{"id":"nothex"}`},
		{name: "notjson", status: 200, body: `<html>`},
		{name: "status", status: 503, body: `unavailable`},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			n := newNode()
			n.route("GET /blocks/best", tst.status, tst.body)
			client := newClient(t, n, clockwork.NewFakeClock())

			if _, err := client.BlockRef(context.Background()); !errors.Is(err, thor.ErrNode) {
				t.Fatalf("Should get back a node error, got %v", err)
			}
		}

		t.Run(tst.name, f)
	}
}

func Test_Submit(t *testing.T) {
	type table struct {
		name   string
		status int
		body   string
		err    error
	}

	tt := []table{
		{name: "accepted", status: 200, body: `{"id":"` + txID + `"}`},
		{name: "rejected", status: 400, body: `bad tx: invalid signature`, err: thor.ErrSubmission},
		{name: "noid", status: 200, body: `{}`, err: thor.ErrSubmission},
		{name: "notjson", status: 200, body: `ok`, err: thor.ErrSubmission},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			n := newNode()
			n.route("POST /transactions", tst.status, tst.body)
			client := newClient(t, n, clockwork.NewFakeClock())

			id, err := client.Submit(context.Background(), "0xf8")
			if tst.err != nil {
				if !errors.Is(err, tst.err) {
					t.Fatalf("Should get back a submission error, got %v", err)
				}
				return
			}

			if err != nil || id != txID {
				t.Fatalf("Should get back the transaction id, got %q %v", id, err)
			}

			var req map[string]string
			json.Unmarshal(n.bodies["POST /transactions"], &req)
			if req["raw"] != "0xf8" {
				t.Fatalf("Should post the raw transaction, got %v", req)
			}
		}

		t.Run(tst.name, f)
	}
}

// poll runs PollReceipt in the background and advances the fake clock the
// expected number of pauses.
func poll(t *testing.T, client *thor.Client, clock clockwork.FakeClock, pauses int) (thor.Receipt, error) {
	type result struct {
		rcpt thor.Receipt
		err  error
	}

	ch := make(chan result, 1)
	go func() {
		rcpt, err := client.PollReceipt(context.Background(), txID)
		ch <- result{rcpt, err}
	}()

	for range pauses {
		clock.BlockUntil(1)
		clock.Advance(thor.DefaultReceiptInterval)
	}

	select {
	case res := <-ch:
		return res.rcpt, res.err
	case <-time.After(5 * time.Second):
		t.Fatalf("Should finish polling after %d pauses.", pauses)
	}

	return thor.Receipt{}, nil
}

func Test_PollReceipt(t *testing.T) {
	const receiptPath = "GET /transactions/" + txID + "/receipt"

	type table struct {
		name     string
		receipts []string
		pauses   int
		reverted bool
		err      error
	}

	tt := []table{
		{name: "first", receipts: []string{`{"reverted":false,"gasUsed":36000,"meta":{"blockNumber":10}}`}, pauses: 1},
		{name: "third", receipts: []string{`null`, `null`, `{"reverted":false,"gasUsed":36000}`}, pauses: 3},
		{name: "reverted", receipts: []string{`{"reverted":true,"gasUsed":36000}`}, pauses: 1, reverted: true, err: thor.ErrVerification},
		{name: "timeout", receipts: []string{`null`}, pauses: 10, err: thor.ErrReceiptTimeout},
	}

	t.Log("Given the need to poll for a receipt.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				n := newNode()
				n.receipts = tst.receipts

				clock := clockwork.NewFakeClock()
				client := newClient(t, n, clock)

				rcpt, err := poll(t, client, clock, tst.pauses)

				if calls := n.count(receiptPath); calls != tst.pauses {
					t.Fatalf("\t%s\tTest %d:\tShould query the node %d times, got %d.", failed, testID, tst.pauses, calls)
				}
				t.Logf("\t%s\tTest %d:\tShould query the node %d times.", success, testID, tst.pauses)

				if tst.err != nil {
					if !errors.Is(err, tst.err) {
						t.Fatalf("\t%s\tTest %d:\tShould get back the right error: %v", failed, testID, err)
					}
					if rcpt.Reverted != tst.reverted {
						t.Fatalf("\t%s\tTest %d:\tShould get back the reverted receipt.", failed, testID)
					}
					t.Logf("\t%s\tTest %d:\tShould get back the right error.", success, testID)
					return
				}

				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to get the receipt: %v", failed, testID, err)
				}

				exp := thor.Receipt{ID: txID, GasUsed: 36000}
				if diff := cmp.Diff(exp, rcpt, cmpopts.IgnoreFields(thor.Receipt{}, "Raw")); diff != "" {
					t.Fatalf("\t%s\tTest %d:\tShould get back the receipt:\n%s", failed, testID, diff)
				}
				if len(rcpt.Raw) == 0 {
					t.Fatalf("\t%s\tTest %d:\tShould keep the raw receipt.", failed, testID)
				}
				t.Logf("\t%s\tTest %d:\tShould get back the receipt.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}

func Test_PollReceiptCancel(t *testing.T) {
	n := newNode()
	client := newClient(t, n, clockwork.NewFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.PollReceipt(ctx, txID)
	if !errors.Is(err, thor.ErrReceiptTimeout) || !errors.Is(err, context.Canceled) {
		t.Fatalf("Should get back an unknown outcome on cancellation, got %v", err)
	}
}

func Test_TransactionBudget(t *testing.T) {
	type table struct {
		name string
		cfg  thor.Config
		exp  time.Duration
	}

	tt := []table{
		{name: "defaults", cfg: thor.Config{BaseURL: "http://localhost:8669"}, exp: 160 * time.Second},
		{name: "fast", cfg: thor.Config{BaseURL: "http://localhost:8669", Timeout: time.Second, ReceiptAttempts: 5, ReceiptInterval: time.Second}, exp: 13 * time.Second},
	}

	t.Log("Given the need to bound a full reward transaction.")
	{
		for testID, tst := range tt {
			f := func(t *testing.T) {
				client, err := thor.New(tst.cfg)
				if err != nil {
					t.Fatalf("\t%s\tTest %d:\tShould be able to construct a client: %v", failed, testID, err)
				}

				if got := client.TransactionBudget(); got != tst.exp {
					t.Fatalf("\t%s\tTest %d:\tShould cover every call at its timeout, got %v exp %v.", failed, testID, got, tst.exp)
				}
				t.Logf("\t%s\tTest %d:\tShould cover every call at its timeout.", success, testID)
			}

			t.Run(tst.name, f)
		}
	}
}
