package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"veriflow/internal/platform/metrics"
	ratelimit "veriflow/internal/ratelimit/middleware"
	ratelimitmodels "veriflow/internal/ratelimit/models"
	"veriflow/internal/ratelimit/store/bucket"
	"veriflow/internal/rules"
	"veriflow/internal/snapshot"
	"veriflow/internal/verification/handler/mocks"
	"veriflow/internal/verification/models"
	id "veriflow/pkg/domain"
	"veriflow/pkg/platform/audit/publisher"
	auditmemory "veriflow/pkg/platform/audit/store/memory"
	"veriflow/pkg/platform/middleware/request"
	"veriflow/pkg/testutil"
)

type staticSource struct{ doc snapshot.Document }

func (s staticSource) Name() string { return "static" }

func (s staticSource) Load(context.Context) (snapshot.Document, error) { return s.doc, nil }

func newTestRouter(t *testing.T, service *mocks.MockService) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	compiler, err := rules.NewCompiler(1 << 10)
	require.NoError(t, err)
	t.Cleanup(compiler.Close)

	snapshots := snapshot.NewManager(staticSource{doc: snapshot.Document{
		Vendors: []snapshot.VendorDef{{ID: "vnd_onfido", Name: "Onfido", Status: "online", Priority: 1}},
		Clients: []snapshot.ClientDef{{ID: "acme", Name: "Acme", AllowedVendors: []string{"vnd_onfido"}, WorkflowMode: "primary", AutoApprove: 0.8, ManualReview: 0.5}},
	}}, compiler, snapshot.WithLogger(logger))
	_, err = snapshots.Reload(context.Background())
	require.NoError(t, err)

	limiter := ratelimit.New(bucket.NewInMemoryBucketStore(), logger,
		ratelimit.WithLimit(ratelimitmodels.ClassIntake, ratelimitmodels.Limit{Requests: 1, Window: time.Minute}),
	)

	return newRouter(routerDeps{
		log:         logger,
		deadline:    time.Second,
		httpMetrics: metrics.NewWithRegisterer(prometheus.NewRegistry()),
		service:     service,
		snapshots:   snapshots,
		trail:       publisher.NewPublisher(auditmemory.NewInMemoryStore()),
		limiter:     limiter,
		health: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
		},
	})
}

func TestRouter(t *testing.T) {
	testutil.Given(t, "the assembled router", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		service := mocks.NewMockService(ctrl)
		router := newTestRouter(t, service)

		testutil.When(t, "calling GET /healthz", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/healthz"))

			testutil.Then(t, "it responds and echoes a request id", func(t *testing.T) {
				assert.Equal(t, http.StatusOK, rr.Code)
				assert.NotEmpty(t, rr.Header().Get(request.HeaderRequestID))
			})
		})

		testutil.When(t, "calling GET /v1/vendors", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/v1/vendors"))

			testutil.Then(t, "the versioned API answers from the snapshot", func(t *testing.T) {
				assert.Equal(t, http.StatusOK, rr.Code)
				assert.Equal(t, id.APIVersionV1.String(), rr.Header().Get("X-API-Version"))
				assert.Contains(t, rr.Body.String(), "vnd_onfido")
			})
		})

		testutil.When(t, "one caller submits twice within the intake window", func(t *testing.T) {
			service.EXPECT().Submit(gomock.Any(), gomock.Any()).
				Return(&models.VerificationRequest{ID: id.NewRequestID(), ClientID: "acme", State: models.StateReceived}, nil).
				Times(1)

			body := map[string]any{"client_id": "acme"}
			first := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/v1/verifications", body))
			second := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/v1/verifications", body))

			testutil.Then(t, "the second submission is throttled", func(t *testing.T) {
				assert.Equal(t, http.StatusCreated, first.Code)
				assert.Equal(t, http.StatusTooManyRequests, second.Code)
				assert.NotEmpty(t, second.Header().Get("Retry-After"))
			})
		})

		testutil.When(t, "calling an unknown route", func(t *testing.T) {
			rr := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/v1/no-such-route"))

			testutil.Then(t, "it responds not found", func(t *testing.T) {
				assert.Equal(t, http.StatusNotFound, rr.Code)
			})
		})
	})
}
