//go:build integration

// Package integration runs the clinic services against real PostgreSQL and
// Redis containers started with testcontainers.
package integration

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/clinic/backend/internal/infrastructure/migration"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB is a migrated PostgreSQL database in its own container
type TestDB struct {
	DB        *gorm.DB
	SqlDB     *sql.DB
	Container testcontainers.Container
	DSN       string
	t         *testing.T
}

// NewTestDB starts a PostgreSQL container and applies every migration.
// The container is terminated when the test ends.
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("clinic_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("clinic123"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "Failed to get connection string")

	runMigrations(t, dsn)
	db, sqlDB := connectToDatabase(t, dsn)

	tdb := &TestDB{
		DB:        db,
		SqlDB:     sqlDB,
		Container: container,
		DSN:       dsn,
		t:         t,
	}
	t.Cleanup(tdb.Close)
	return tdb
}

// Close closes the connection and terminates the container
func (tdb *TestDB) Close() {
	if tdb.SqlDB != nil {
		_ = tdb.SqlDB.Close()
	}
	if tdb.Container != nil {
		if err := tdb.Container.Terminate(context.Background()); err != nil {
			tdb.t.Logf("Warning: Failed to terminate container: %v", err)
		}
	}
}

func connectToDatabase(t *testing.T, dsn string) (*gorm.DB, *sql.DB) {
	t.Helper()

	gormConfig := &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent),
		SkipDefaultTransaction: true,
	}
	if os.Getenv("TEST_DB_DEBUG") != "" {
		gormConfig.Logger = logger.Default.LogMode(logger.Info)
	}

	db, err := gorm.Open(gormpostgres.Open(dsn), gormConfig)
	require.NoError(t, err, "Failed to connect to database")

	sqlDB, err := db.DB()
	require.NoError(t, err, "Failed to get underlying SQL DB")
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	return db, sqlDB
}

// runMigrations applies migrations through the same wrapper cmd/migrate uses.
// The migrator closes its connection, so it gets one of its own.
func runMigrations(t *testing.T, dsn string) {
	t.Helper()

	dir := findMigrationsPath()
	require.NotEmpty(t, dir, "Could not find migrations directory")
	require.NoError(t, migration.Verify(dir))

	sqlDB, err := sql.Open("postgres", dsn)
	require.NoError(t, err)

	m, err := migration.New(sqlDB, dir, zap.NewNop())
	require.NoError(t, err, "Failed to create migrator")
	defer m.Close()

	require.NoError(t, m.Up(), "Failed to run migrations")
}

// findMigrationsPath walks up from this file to the repository's migrations
func findMigrationsPath() string {
	_, filename, _, ok := runtime.Caller(0)
	if !ok {
		return ""
	}
	dir := filepath.Dir(filename)
	for i := 0; i < 5; i++ {
		candidate := filepath.Join(dir, "migrations")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		dir = filepath.Dir(dir)
	}
	return ""
}

// Clinic is the seeded registry of one tenant
type Clinic struct {
	TenantID  uuid.UUID
	PatientID uuid.UUID
	VisitID   uuid.UUID
	CashierID uuid.UUID
	DoctorID  uuid.UUID
	LabDept   uuid.UUID
	XrayDept  uuid.UUID
	LabTest   uuid.UUID
	Xray      uuid.UUID
	Unpriced  uuid.UUID
}

// SeedClinic inserts a patient with a visit, two employees, a laboratory and
// an x-ray department with one priced service each, and an unpriced service.
func (tdb *TestDB) SeedClinic() Clinic {
	tdb.t.Helper()
	c := Clinic{
		TenantID:  uuid.New(),
		PatientID: uuid.New(),
		VisitID:   uuid.New(),
		CashierID: uuid.New(),
		DoctorID:  uuid.New(),
		LabDept:   uuid.New(),
		XrayDept:  uuid.New(),
		LabTest:   uuid.New(),
		Xray:      uuid.New(),
		Unpriced:  uuid.New(),
	}

	exec := func(query string, args ...any) {
		require.NoError(tdb.t, tdb.DB.Exec(query, args...).Error, query)
	}
	exec(`INSERT INTO patients (id, tenant_id, full_name) VALUES (?, ?, ?)`, c.PatientID, c.TenantID, "Dilnoza Karimova")
	exec(`INSERT INTO employees (id, tenant_id, full_name) VALUES (?, ?, ?), (?, ?, ?)`,
		c.CashierID, c.TenantID, "Front Desk", c.DoctorID, c.TenantID, "Dr. Aliev")
	exec(`INSERT INTO visits (id, tenant_id, patient_id, employee_id) VALUES (?, ?, ?, ?)`,
		c.VisitID, c.TenantID, c.PatientID, c.DoctorID)
	exec(`INSERT INTO departments (id, tenant_id, name) VALUES (?, ?, ?), (?, ?, ?)`,
		c.LabDept, c.TenantID, "laboratory", c.XrayDept, c.TenantID, "x-ray")
	exec(`INSERT INTO services (id, tenant_id, name, price, department_id) VALUES (?, ?, ?, ?, ?), (?, ?, ?, ?, ?)`,
		c.LabTest, c.TenantID, "Complete blood count", decimal.NewFromInt(50000), c.LabDept,
		c.Xray, c.TenantID, "Chest X-ray", decimal.NewFromInt(30000), c.XrayDept)
	exec(`INSERT INTO services (id, tenant_id, name) VALUES (?, ?, ?)`, c.Unpriced, c.TenantID, "Consultation")
	return c
}
