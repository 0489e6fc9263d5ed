package errs_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/ecoride/rewards/business/sys/validate"
	"github.com/ecoride/rewards/business/web/errs"
	"github.com/google/go-cmp/cmp"
)

func Test_Build(t *testing.T) {
	type table struct {
		name   string
		err    error
		resp   errs.Response
		status int
	}

	fields := validate.FieldErrors{{Field: "distance", Error: "distance must be 0 or greater"}}

	tt := []table{
		{
			name:   "trusted",
			err:    errs.NewTrusted(errors.New("bad input"), http.StatusBadRequest),
			resp:   errs.Response{Error: "bad input"},
			status: http.StatusBadRequest,
		},
		{
			name:   "wrapped",
			err:    fmt.Errorf("handler: %w", errs.NewTrustedTx(errors.New("reverted"), http.StatusConflict, "0x01")),
			resp:   errs.Response{Error: "reverted", TxID: "0x01"},
			status: http.StatusConflict,
		},
		{
			name:   "fields",
			err:    fields,
			resp:   errs.Response{Error: "data validation error", Fields: map[string]string{"distance": "distance must be 0 or greater"}},
			status: http.StatusBadRequest,
		},
		{
			name:   "trustedfields",
			err:    errs.NewTrusted(fields, http.StatusUnprocessableEntity),
			resp:   errs.Response{Error: "data validation error", Fields: map[string]string{"distance": "distance must be 0 or greater"}},
			status: http.StatusUnprocessableEntity,
		},
		{
			name:   "untrusted",
			err:    errors.New("database password is hunter2"),
			resp:   errs.Response{Error: "Internal Server Error"},
			status: http.StatusInternalServerError,
		},
	}

	for _, tst := range tt {
		f := func(t *testing.T) {
			resp, status := errs.Build(tst.err)

			if status != tst.status {
				t.Fatalf("Should get back status %d, got %d", tst.status, status)
			}

			if diff := cmp.Diff(tst.resp, resp); diff != "" {
				t.Fatalf("Should get back the expected response:\n%s", diff)
			}
		}

		t.Run(tst.name, f)
	}
}
