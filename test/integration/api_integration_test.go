package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"repairshop/internal/checkout"
	"repairshop/internal/config"
	"repairshop/internal/handler"
	"repairshop/internal/lock"
	"repairshop/internal/metrics"
	"repairshop/internal/middleware"
	"repairshop/internal/model"
	"repairshop/internal/payment"
	"repairshop/internal/repository"
	"repairshop/internal/router"
	"repairshop/internal/service"
	"repairshop/internal/storage"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/webhook"
)

const (
	testAPIKey        = "test-api-key"
	testStaffSecret   = "0123456789abcdef0123456789abcdef"
	testStaffIssuer   = "repairshop"
	testWebhookSecret = "whsec_integration"
)

type testServer struct {
	t         *testing.T
	handler   http.Handler
	gateway   *fakeGateway
	sender    *recordingSender
	orders    repository.OrderRepository
	staffAuth string
}

func setupTestServer(t *testing.T, testDB *TestDB) *testServer {
	t.Helper()

	logger := zerolog.Nop()

	stripeClient, err := payment.NewClient(config.StripeConfig{
		APIKey:        "sk_test_integration",
		WebhookSecret: testWebhookSecret,
	}, logger)
	require.NoError(t, err)
	parser := payment.NewStripeGateway(stripeClient, logger)

	gateway := newFakeGateway()
	sender := &recordingSender{}

	store := lock.NewMemoryStore()
	locker, err := lock.NewLocker(store, "it", time.Minute)
	require.NoError(t, err)
	guard, err := lock.NewIdempotencyGuard(store, time.Hour, "it", "stripe")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	orderMetrics := metrics.NewOrderMetrics(reg)

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(testDB.Pool, logger)
	catalogRepo := repository.NewCatalogRepository(testDB.Pool, logger)

	// Initialize services
	checkoutService := service.NewCheckoutService(orderRepo, catalogRepo, gateway, orderMetrics, "eur", 5*time.Second, logger)
	settlementService := service.NewSettlementService(orderRepo, guard, gateway, orderMetrics, logger)
	fulfillmentService := service.NewFulfillmentService(orderRepo, storage.NewFileStore(t.TempDir(), logger), sender, locker, orderMetrics, logger)
	orderService := service.NewOrderService(orderRepo, logger)
	sessions := checkout.NewRegistry(checkoutService, checkoutService, 5*time.Second, time.Hour, logger)

	// Create router
	h := router.New(router.Handlers{
		Orders:   handler.NewOrderHandler(orderService, logger),
		Intents:  handler.NewIntentHandler(checkoutService, logger),
		Checkout: handler.NewCheckoutHandler(sessions, logger),
		Admin:    handler.NewAdminOrderHandler(fulfillmentService, logger),
		Webhooks: handler.NewWebhookHandler(parser, settlementService, logger),
	}, router.Options{
		APIKey:      testAPIKey,
		StaffSecret: testStaffSecret,
		StaffIssuer: testStaffIssuer,
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),
	}, logger)

	token, err := middleware.MintStaffToken(testStaffSecret, testStaffIssuer, "staff-it", middleware.RoleStaff, time.Hour, time.Now())
	require.NoError(t, err)

	return &testServer{
		t:         t,
		handler:   h,
		gateway:   gateway,
		sender:    sender,
		orders:    orderRepo,
		staffAuth: "Bearer " + token,
	}
}

// storefront sends an API-key authenticated JSON request and decodes the answer into out.
func (s *testServer) storefront(method, path string, body, out any) int {
	s.t.Helper()
	req := s.request(method, path, body)
	req.Header.Set("X-API-Key", testAPIKey)
	return s.do(req, out)
}

// staff sends a staff-token authenticated JSON request.
func (s *testServer) staff(method, path string, body, out any) int {
	s.t.Helper()
	req := s.request(method, path, body)
	req.Header.Set("Authorization", s.staffAuth)
	return s.do(req, out)
}

func (s *testServer) request(method, path string, body any) *http.Request {
	s.t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func (s *testServer) do(req *http.Request, out any) int {
	s.t.Helper()
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	if out != nil && w.Body.Len() > 0 {
		require.NoError(s.t, json.Unmarshal(w.Body.Bytes(), out), w.Body.String())
	}
	return w.Code
}

// settle posts a signed gateway event for the intent and returns the HTTP status.
func (s *testServer) settle(eventID, eventType, intentID string, orderID uuid.UUID, amount int64) int {
	s.t.Helper()
	raw, err := json.Marshal(map[string]any{
		"id":          eventID,
		"object":      "event",
		"api_version": stripe.APIVersion,
		"type":        eventType,
		"data": map[string]any{"object": map[string]any{
			"id":       intentID,
			"object":   "payment_intent",
			"amount":   amount,
			"currency": "eur",
			"metadata": map[string]string{payment.MetadataOrderID: orderID.String()},
		}},
	})
	require.NoError(s.t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   raw,
		Secret:    testWebhookSecret,
		Timestamp: time.Now(),
	})
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	return s.do(req, nil)
}

// issueLabel uploads a shipping label as multipart form data.
func (s *testServer) issueLabel(orderID uuid.UUID, tracking string, out any) int {
	s.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(s.t, mw.WriteField("trackingNumber", tracking))
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="attachment"; filename="label.pdf"`)
	header.Set("Content-Type", "application/pdf")
	part, err := mw.CreatePart(header)
	require.NoError(s.t, err)
	_, err = part.Write([]byte("%PDF-1.4 shipping label"))
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/admin/orders/"+orderID.String()+"/shipping-label", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", s.staffAuth)
	return s.do(req, out)
}

func (s *testServer) order(id uuid.UUID) *model.Order {
	s.t.Helper()
	order, err := s.orders.GetByID(context.Background(), id)
	require.NoError(s.t, err)
	return order
}

var (
	screenPart = map[string]any{"id": "PART-SCREEN-X", "name": "iPhone X screen", "price": "89.99", "quantity": 1, "type": "part"}
	caseAcc    = map[string]any{"id": "ACC-CASE-01", "name": "Silicone case", "price": "9.95", "quantity": 1, "type": "accessory"}
	address    = map[string]any{
		"address": map[string]any{"name": "Ana", "line1": "Calle Mayor 1", "city": "Madrid", "postalCode": "28013", "country": "ES"},
		"email":   "ana@example.com",
	}
)

// checkoutToPayment drives a session through routing and address to the payment step.
func (s *testServer) checkoutToPayment(items []any, routing map[string]any) checkout.View {
	s.t.Helper()
	var view checkout.View
	require.Equal(s.t, http.StatusCreated, s.storefront(http.MethodPost, "/api/checkout/sessions", map[string]any{"items": items}, &view))
	base := "/api/checkout/sessions/" + view.ID.String()

	if routing != nil {
		require.Equal(s.t, http.StatusOK, s.storefront(http.MethodPut, base+"/routing", routing, &view))
	}
	require.Equal(s.t, http.StatusOK, s.storefront(http.MethodPut, base+"/address", address, &view))
	require.Equal(s.t, http.StatusOK, s.storefront(http.MethodPost, base+"/submit", nil, &view))
	require.Equal(s.t, checkout.StepPayment, view.Step)
	return view
}

func TestCheckoutAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)

	t.Run("Part and accessory shipped repair settles to succeeded", func(t *testing.T) {
		server := setupTestServer(t, testDB)
		CleanupDB(t, testDB.Pool)
		SeedCatalog(t, testDB.Pool)

		view := server.checkoutToPayment([]any{screenPart, caseAcc}, map[string]any{"repairType": "by_us", "shippingOption": "send"})
		require.NotNil(t, view.OrderID)
		assert.Equal(t, int64(9994), view.Amount)
		assert.Equal(t, "eur", view.Currency)

		intentID, err := payment.IntentIDFromSecret(view.ClientSecret)
		require.NoError(t, err)
		params, ok := server.gateway.intent(intentID)
		require.True(t, ok)
		assert.Equal(t, int64(9994), params.AmountMinor)
		assert.True(t, params.Routing.ShipsToCustomer())

		var confirmed handler.SessionConfirmResponse
		code := server.storefront(http.MethodPost, "/api/checkout/sessions/"+view.ID.String()+"/confirm",
			map[string]any{"paymentMethod": cardSucceeds}, &confirmed)
		require.Equal(t, http.StatusOK, code)
		assert.Equal(t, checkout.StepResult, confirmed.Session.Step)
		assert.Equal(t, model.OutcomeSucceeded, confirmed.Result.Outcome)

		// The browser's success is only a hint until the gateway settles.
		assert.Equal(t, model.StatusCreated, server.order(*view.OrderID).Status)

		assert.Equal(t, http.StatusOK, server.settle("evt_s1", "payment_intent.succeeded", intentID, *view.OrderID, 9994))

		var order model.Order
		require.Equal(t, http.StatusOK, server.storefront(http.MethodGet, "/api/orders/"+view.OrderID.String(), nil, &order))
		assert.Equal(t, model.StatusSucceeded, order.Status)
		assert.Equal(t, int64(9994), order.Amount)
		require.Len(t, order.Cart, 2)
	})

	t.Run("Accessory-only cart reaches payment without routing", func(t *testing.T) {
		server := setupTestServer(t, testDB)
		CleanupDB(t, testDB.Pool)
		SeedCatalog(t, testDB.Pool)

		view := server.checkoutToPayment([]any{caseAcc}, nil)
		assert.Equal(t, checkout.RoutingDone, view.PendingRouting)
		assert.Nil(t, view.RepairType)
		assert.Equal(t, int64(995), view.Amount)

		order := server.order(*view.OrderID)
		assert.Nil(t, order.RepairType)
		assert.Nil(t, order.ShippingOption)
	})

	t.Run("Part without routing cannot reach payment", func(t *testing.T) {
		server := setupTestServer(t, testDB)
		CleanupDB(t, testDB.Pool)
		SeedCatalog(t, testDB.Pool)

		var view checkout.View
		require.Equal(t, http.StatusCreated, server.storefront(http.MethodPost, "/api/checkout/sessions", map[string]any{"items": []any{screenPart}}, &view))
		base := "/api/checkout/sessions/" + view.ID.String()
		require.Equal(t, http.StatusOK, server.storefront(http.MethodPut, base+"/address", address, nil))

		var errResp model.ErrorResponse
		assert.Equal(t, http.StatusBadRequest, server.storefront(http.MethodPost, base+"/submit", nil, &errResp))
		assert.Equal(t, model.ErrCodeRoutingRequired, errResp.Error)

		require.Equal(t, http.StatusOK, server.storefront(http.MethodPut, base+"/routing", map[string]any{"repairType": "by_us"}, nil))
		assert.Equal(t, http.StatusBadRequest, server.storefront(http.MethodPost, base+"/submit", nil, &errResp))
		assert.Equal(t, model.ErrCodeShippingRequired, errResp.Error)

		var count int
		require.NoError(t, testDB.Pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM orders").Scan(&count))
		assert.Zero(t, count)
	})

	t.Run("Gateway outage creates no order", func(t *testing.T) {
		server := setupTestServer(t, testDB)
		CleanupDB(t, testDB.Pool)
		SeedCatalog(t, testDB.Pool)
		server.gateway.setFailure(errors.New("connection reset"))
		defer server.gateway.setFailure(nil)

		var view checkout.View
		require.Equal(t, http.StatusCreated, server.storefront(http.MethodPost, "/api/checkout/sessions", map[string]any{"items": []any{caseAcc}}, &view))
		base := "/api/checkout/sessions/" + view.ID.String()
		require.Equal(t, http.StatusOK, server.storefront(http.MethodPut, base+"/address", address, nil))

		assert.Equal(t, http.StatusBadGateway, server.storefront(http.MethodPost, base+"/submit", nil, nil))

		var count int
		require.NoError(t, testDB.Pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM orders").Scan(&count))
		assert.Zero(t, count)

		server.gateway.setFailure(nil)
		require.Equal(t, http.StatusOK, server.storefront(http.MethodPost, base+"/submit", nil, &view))
		assert.Equal(t, checkout.StepPayment, view.Step)
	})

	t.Run("Declined card marks order failed", func(t *testing.T) {
		server := setupTestServer(t, testDB)
		CleanupDB(t, testDB.Pool)
		SeedCatalog(t, testDB.Pool)

		view := server.checkoutToPayment([]any{caseAcc}, nil)

		var confirmed handler.SessionConfirmResponse
		require.Equal(t, http.StatusOK, server.storefront(http.MethodPost, "/api/checkout/sessions/"+view.ID.String()+"/confirm",
			map[string]any{"paymentMethod": cardDeclined}, &confirmed))
		assert.Equal(t, model.OutcomeFailed, confirmed.Result.Outcome)
		assert.Equal(t, checkout.StepResult, confirmed.Session.Step)
		assert.Equal(t, model.StatusFailed, server.order(*view.OrderID).Status)

		intentID, err := payment.IntentIDFromSecret(view.ClientSecret)
		require.NoError(t, err)
		assert.True(t, server.gateway.isCancelled(intentID), "declined intent is voided")

		// A charge that lands anyway is acknowledged but does not revive the order.
		assert.Equal(t, http.StatusOK, server.settle("evt_late", "payment_intent.succeeded", intentID, *view.OrderID, 995))
		assert.Equal(t, model.StatusFailed, server.order(*view.OrderID).Status)

		var errResp model.ErrorResponse
		assert.Equal(t, http.StatusConflict, server.storefront(http.MethodPost, "/api/checkout/sessions/"+view.ID.String()+"/back",
			map[string]any{"step": "address"}, &errResp))
		assert.Equal(t, model.ErrCodeSessionTerminal, errResp.Error)
	})

	t.Run("Requires action stays on payment", func(t *testing.T) {
		server := setupTestServer(t, testDB)
		CleanupDB(t, testDB.Pool)
		SeedCatalog(t, testDB.Pool)

		view := server.checkoutToPayment([]any{caseAcc}, nil)

		var confirmed handler.SessionConfirmResponse
		require.Equal(t, http.StatusOK, server.storefront(http.MethodPost, "/api/checkout/sessions/"+view.ID.String()+"/confirm",
			map[string]any{"paymentMethod": card3DS}, &confirmed))
		assert.Equal(t, model.OutcomeRequiresAction, confirmed.Result.Outcome)
		assert.Equal(t, checkout.StepPayment, confirmed.Session.Step)
		assert.Equal(t, model.StatusCreated, server.order(*view.OrderID).Status)
	})

	t.Run("Tampered price is rejected", func(t *testing.T) {
		server := setupTestServer(t, testDB)
		CleanupDB(t, testDB.Pool)
		SeedCatalog(t, testDB.Pool)

		cheap := map[string]any{"id": "PART-SCREEN-X", "name": "iPhone X screen", "price": "1.00", "quantity": 1, "type": "part"}
		body := map[string]any{
			"items":      []any{cheap},
			"repairType": "self",
			"email":      "ana@example.com",
			"address":    address["address"],
		}
		var errResp model.ErrorResponse
		assert.Equal(t, http.StatusConflict, server.storefront(http.MethodPost, "/api/checkout/intents", body, &errResp))
		assert.Equal(t, model.ErrCodePriceMismatch, errResp.Error)
	})
}

func TestSettlementWebhook_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)

	t.Run("Redelivered event is applied once", func(t *testing.T) {
		server := setupTestServer(t, testDB)
		CleanupDB(t, testDB.Pool)
		SeedCatalog(t, testDB.Pool)

		view := server.checkoutToPayment([]any{caseAcc}, nil)
		intentID, err := payment.IntentIDFromSecret(view.ClientSecret)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, server.settle("evt_dup", "payment_intent.succeeded", intentID, *view.OrderID, 995))
		first := server.order(*view.OrderID)
		assert.Equal(t, model.StatusSucceeded, first.Status)

		assert.Equal(t, http.StatusOK, server.settle("evt_dup", "payment_intent.succeeded", intentID, *view.OrderID, 995))
		assert.Equal(t, first.UpdatedAt, server.order(*view.OrderID).UpdatedAt)
	})

	t.Run("Amount mismatch leaves order untouched", func(t *testing.T) {
		server := setupTestServer(t, testDB)
		CleanupDB(t, testDB.Pool)
		SeedCatalog(t, testDB.Pool)

		view := server.checkoutToPayment([]any{caseAcc}, nil)
		intentID, err := payment.IntentIDFromSecret(view.ClientSecret)
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, server.settle("evt_short", "payment_intent.succeeded", intentID, *view.OrderID, 1))
		assert.Equal(t, model.StatusCreated, server.order(*view.OrderID).Status)
	})

	t.Run("Bad signature is rejected", func(t *testing.T) {
		server := setupTestServer(t, testDB)
		req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewBufferString(`{"id":"evt_x"}`))
		req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
		assert.Equal(t, http.StatusBadRequest, server.do(req, nil))
	})

	t.Run("Staff edit racing a settlement cannot settle the order", func(t *testing.T) {
		server := setupTestServer(t, testDB)
		CleanupDB(t, testDB.Pool)
		SeedCatalog(t, testDB.Pool)

		view := server.checkoutToPayment([]any{caseAcc}, nil)
		intentID, err := payment.IntentIDFromSecret(view.ClientSecret)
		require.NoError(t, err)
		orderPath := "/api/admin/orders/" + view.OrderID.String() + "/status"

		var (
			wg        sync.WaitGroup
			staffCode int
		)
		wg.Add(2)
		go func() {
			defer wg.Done()
			server.settle("evt_race", "payment_intent.succeeded", intentID, *view.OrderID, 995)
		}()
		go func() {
			defer wg.Done()
			staffCode = server.staff(http.MethodPatch, orderPath, map[string]string{"status": "paid"}, nil)
		}()
		wg.Wait()

		assert.Equal(t, http.StatusConflict, staffCode)
		assert.Equal(t, model.StatusSucceeded, server.order(*view.OrderID).Status)
	})
}

func TestFulfillmentAPI_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	testDB := SetupTestDB(t)

	settledOrder := func(t *testing.T, server *testServer) uuid.UUID {
		t.Helper()
		view := server.checkoutToPayment([]any{screenPart}, map[string]any{"repairType": "by_us", "shippingOption": "send"})
		intentID, err := payment.IntentIDFromSecret(view.ClientSecret)
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, server.settle("evt_"+view.OrderID.String(), "payment_intent.succeeded", intentID, *view.OrderID, 8999))
		require.Equal(t, model.StatusSucceeded, server.order(*view.OrderID).Status)
		return *view.OrderID
	}

	t.Run("Shipping label notifies then ships", func(t *testing.T) {
		server := setupTestServer(t, testDB)
		CleanupDB(t, testDB.Pool)
		SeedCatalog(t, testDB.Pool)
		orderID := settledOrder(t, server)
		before := len(server.sender.messages())

		var order model.Order
		require.Equal(t, http.StatusOK, server.issueLabel(orderID, "1Z999", &order))
		assert.Equal(t, model.StatusShipped, order.Status)
		require.NotNil(t, order.TrackingNumber)
		assert.Equal(t, "1Z999", *order.TrackingNumber)
		require.NotNil(t, order.LabelLocation)

		require.True(t, strings.HasPrefix(*order.LabelLocation, "file://"))
		stored, err := os.ReadFile(strings.TrimPrefix(*order.LabelLocation, "file://"))
		require.NoError(t, err)
		assert.Equal(t, "%PDF-1.4 shipping label", string(stored))

		sent := server.sender.messages()
		require.Len(t, sent, before+1)
		msg := sent[len(sent)-1]
		assert.Equal(t, "ana@example.com", msg.Recipient)
		assert.True(t, containsAll(msg.Body, "Ana", "1Z999", orderID.String()))
		require.Len(t, msg.Attachments, 1)

		var errResp model.ErrorResponse
		assert.Equal(t, http.StatusConflict, server.issueLabel(orderID, "1Z999", &errResp))
		assert.Equal(t, model.ErrCodeAlreadyShipped, errResp.Error)
	})

	t.Run("Notification failure withholds the transition", func(t *testing.T) {
		server := setupTestServer(t, testDB)
		CleanupDB(t, testDB.Pool)
		SeedCatalog(t, testDB.Pool)
		orderID := settledOrder(t, server)

		server.sender.setFailure(errors.New("sendgrid unavailable"))
		var errResp model.ErrorResponse
		assert.Equal(t, http.StatusBadGateway, server.issueLabel(orderID, "1Z999", &errResp))
		assert.Equal(t, model.ErrCodeNotificationFailed, errResp.Error)
		assert.Equal(t, model.StatusSucceeded, server.order(orderID).Status)

		server.sender.setFailure(nil)
		var order model.Order
		require.Equal(t, http.StatusOK, server.issueLabel(orderID, "1Z999", &order))
		assert.Equal(t, model.StatusShipped, order.Status)
	})

	t.Run("Staff cannot move a created order", func(t *testing.T) {
		server := setupTestServer(t, testDB)
		CleanupDB(t, testDB.Pool)
		SeedCatalog(t, testDB.Pool)
		view := server.checkoutToPayment([]any{caseAcc}, nil)
		path := "/api/admin/orders/" + view.OrderID.String() + "/status"

		for _, next := range []string{"shipped", "succeeded", "paid", "failed"} {
			var errResp model.ErrorResponse
			code := server.staff(http.MethodPatch, path, map[string]string{"status": next}, &errResp)
			assert.Equal(t, http.StatusConflict, code, next)
			assert.Equal(t, model.ErrCodeInvalidTransition, errResp.Error, next)
		}
		assert.Equal(t, model.StatusCreated, server.order(*view.OrderID).Status)
	})

	t.Run("Staff mark a declined order paid in the shop", func(t *testing.T) {
		server := setupTestServer(t, testDB)
		CleanupDB(t, testDB.Pool)
		SeedCatalog(t, testDB.Pool)
		view := server.checkoutToPayment([]any{caseAcc}, nil)
		require.Equal(t, http.StatusOK, server.storefront(http.MethodPost, "/api/checkout/sessions/"+view.ID.String()+"/confirm",
			map[string]any{"paymentMethod": cardDeclined}, nil))
		require.Equal(t, model.StatusFailed, server.order(*view.OrderID).Status)
		path := "/api/admin/orders/" + view.OrderID.String() + "/status"

		assert.Equal(t, http.StatusConflict, server.staff(http.MethodPatch, path, map[string]string{"status": "ready"}, nil))

		var order model.Order
		require.Equal(t, http.StatusOK, server.staff(http.MethodPatch, path, map[string]string{"status": "paid"}, &order))
		assert.Equal(t, model.StatusPaid, order.Status)
		require.Equal(t, http.StatusOK, server.staff(http.MethodPatch, path, map[string]string{"status": "ready"}, &order))
		assert.Equal(t, model.StatusReady, order.Status)
	})

	t.Run("Staff walk the graph and list by status", func(t *testing.T) {
		server := setupTestServer(t, testDB)
		CleanupDB(t, testDB.Pool)
		SeedCatalog(t, testDB.Pool)
		orderID := settledOrder(t, server)
		path := "/api/admin/orders/" + orderID.String() + "/status"

		for _, next := range []string{"ready", "shipped", "finished"} {
			var order model.Order
			require.Equal(t, http.StatusOK, server.staff(http.MethodPatch, path, map[string]string{"status": next}, &order), next)
			assert.Equal(t, model.Status(next), order.Status)
		}
		assert.Equal(t, http.StatusConflict, server.staff(http.MethodPatch, path, map[string]string{"status": "refunded"}, nil))

		var list handler.OrderListResponse
		require.Equal(t, http.StatusOK, server.staff(http.MethodGet, "/api/admin/orders?status=finished", nil, &list))
		require.Len(t, list.Orders, 1)
		assert.Equal(t, orderID, list.Orders[0].ID)
	})

	t.Run("Admin routes reject storefront key", func(t *testing.T) {
		server := setupTestServer(t, testDB)
		assert.Equal(t, http.StatusUnauthorized, server.storefront(http.MethodGet, "/api/admin/orders", nil, nil))
	})
}
