package integration

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"repairshop/internal/config"
	"repairshop/internal/database"
	"repairshop/internal/model"
	"repairshop/internal/notification"
	"repairshop/internal/payment"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestDB represents a test database instance.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB creates a PostgreSQL test container with the application schema.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	// Create PostgreSQL container
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	// Get connection string
	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	logger := zerolog.Nop()
	pool, err := database.NewPoolFromURL(ctx, connStr, config.DatabaseConfig{MaxConnections: 10, MinConnections: 2}, logger)
	if err != nil {
		t.Fatalf("failed to create connection pool: %v", err)
	}

	// Create schema
	if err := database.Migrate(ctx, pool, logger); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		if err := postgresContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	return &TestDB{
		Container: postgresContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
}

// SeedCatalog inserts the catalogue used by the checkout scenarios.
func SeedCatalog(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	items := []struct {
		id       string
		name     string
		price    string
		itemType string
	}{
		{"PART-SCREEN-X", "iPhone X screen", "89.99", "part"},
		{"PART-BATTERY-8", "iPhone 8 battery", "39.90", "part"},
		{"ACC-CASE-01", "Silicone case", "9.95", "accessory"},
		{"ACC-CABLE-02", "USB-C cable", "12.50", "accessory"},
	}

	for _, item := range items {
		_, err := pool.Exec(ctx,
			"INSERT INTO catalog_items (id, name, price, item_type) VALUES ($1, $2, $3::numeric, $4)",
			item.id, item.name, item.price, item.itemType,
		)
		if err != nil {
			t.Fatalf("failed to seed catalogue item %s: %v", item.id, err)
		}
	}
}

// CleanupDB cleans all data from test tables.
func CleanupDB(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()

	ctx := context.Background()

	tables := []string{"orders", "catalog_items"}
	for _, table := range tables {
		_, err := pool.Exec(ctx, fmt.Sprintf("DELETE FROM %s", table))
		if err != nil {
			t.Logf("failed to clean table %s: %v", table, err)
		}
	}
}

// Payment methods understood by fakeGateway.
const (
	cardSucceeds = "pm_card_visa"
	cardDeclined = "pm_card_chargeDeclined"
	card3DS      = "pm_card_threeDSecure2Required"
)

// fakeGateway stands in for the card network. Settlement parsing stays on
// the real Stripe signature check.
type fakeGateway struct {
	mu        sync.Mutex
	seq       atomic.Int64
	intents   map[string]payment.IntentParams
	cancelled map[string]bool
	fail      error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		intents:   make(map[string]payment.IntentParams),
		cancelled: make(map[string]bool),
	}
}

func (g *fakeGateway) CreateIntent(ctx context.Context, params payment.IntentParams) (*payment.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fail != nil {
		return nil, g.fail
	}
	id := fmt.Sprintf("pi_it%d", g.seq.Add(1))
	g.intents[id] = params
	return &payment.Intent{ID: id, ClientSecret: id + "_secret_it"}, nil
}

func (g *fakeGateway) Confirm(ctx context.Context, clientSecret string, details payment.ConfirmDetails) (*payment.ConfirmResult, error) {
	intentID, err := payment.IntentIDFromSecret(clientSecret)
	if err != nil {
		return nil, err
	}
	if g.isCancelled(intentID) {
		return nil, fmt.Errorf("payment intent %s is canceled", intentID)
	}
	result := &payment.ConfirmResult{IntentID: intentID}
	switch details.PaymentMethod {
	case cardSucceeds:
		result.Outcome = model.OutcomeSucceeded
	case cardDeclined:
		result.Outcome = model.OutcomeFailed
		result.FailureMessage = "Your card was declined."
	default:
		result.Outcome = model.OutcomeRequiresAction
		result.NextActionURL = "https://hooks.stripe.com/3ds"
	}
	return result, nil
}

func (g *fakeGateway) Cancel(ctx context.Context, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.intents[intentID]; !ok {
		return fmt.Errorf("no such payment intent %s", intentID)
	}
	g.cancelled[intentID] = true
	return nil
}

func (g *fakeGateway) isCancelled(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.cancelled[id]
}

func (g *fakeGateway) intent(id string) (payment.IntentParams, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.intents[id]
	return p, ok
}

func (g *fakeGateway) setFailure(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail = err
}

// recordingSender captures outgoing notifications and can be told to fail.
type recordingSender struct {
	mu   sync.Mutex
	sent []notification.Message
	fail error
}

func (s *recordingSender) Send(ctx context.Context, msg notification.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		return s.fail
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) setFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fail = err
}

func (s *recordingSender) messages() []notification.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification.Message(nil), s.sent...)
}

func containsAll(s string, parts ...string) bool {
	for _, p := range parts {
		if !strings.Contains(s, p) {
			return false
		}
	}
	return true
}
