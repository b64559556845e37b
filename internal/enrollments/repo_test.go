package enrollments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/learnsphere/coursemarket-backend/pkg/db/models"
	"github.com/learnsphere/coursemarket-backend/pkg/enums"
)

func setupEnrollmentsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS enrollments (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  course_id TEXT NOT NULL,
  course_title TEXT NOT NULL,
  total_amount INTEGER NOT NULL,
  paid_amount INTEGER NOT NULL DEFAULT 0,
  payment_status TEXT NOT NULL DEFAULT 'unpaid',
  enrolled_at DATETIME NOT NULL,
  created_at DATETIME,
  updated_at DATETIME,
  UNIQUE (user_id, course_id)
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedEnrollment(t *testing.T, db *gorm.DB, userID, courseID uuid.UUID, total, paid int64) *models.Enrollment {
	t.Helper()

	enrollment := &models.Enrollment{
		ID:            uuid.New(),
		UserID:        userID,
		CourseID:      courseID,
		CourseTitle:   "Go Fundamentals",
		TotalAmount:   total,
		PaidAmount:    paid,
		PaymentStatus: enums.DeriveEnrollmentPaymentStatus(paid, total),
		EnrolledAt:    time.Now(),
	}
	require.NoError(t, db.Create(enrollment).Error)
	return enrollment
}

func TestRepositoryExists(t *testing.T) {
	db := setupEnrollmentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	courseID := uuid.New()
	seedEnrollment(t, db, userID, courseID, 100000, 100000)

	ok, err := repo.Exists(ctx, userID, courseID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Exists(ctx, userID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryExistsAny(t *testing.T) {
	db := setupEnrollmentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	owned := uuid.New()
	seedEnrollment(t, db, userID, owned, 100000, 100000)

	ok, err := repo.ExistsAny(ctx, userID, []uuid.UUID{uuid.New(), owned})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.ExistsAny(ctx, userID, []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.ExistsAny(ctx, userID, nil)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRepositoryUpdatePersistsTopUp(t *testing.T) {
	db := setupEnrollmentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	courseID := uuid.New()
	enrollment := seedEnrollment(t, db, userID, courseID, 200000, 50000)

	require.NoError(t, enrollment.AddPayment(150000))
	_, err := repo.Update(ctx, enrollment)
	require.NoError(t, err)

	reloaded, err := repo.FindByUserAndCourse(ctx, userID, courseID)
	require.NoError(t, err)
	assert.Equal(t, int64(200000), reloaded.PaidAmount)
	assert.Equal(t, enums.EnrollmentPaymentStatusPaid, reloaded.PaymentStatus)
}

func TestRepositoryUniquePairConstraint(t *testing.T) {
	db := setupEnrollmentsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	courseID := uuid.New()
	seedEnrollment(t, db, userID, courseID, 100000, 100000)

	_, err := repo.Create(ctx, &models.Enrollment{
		ID:          uuid.New(),
		UserID:      userID,
		CourseID:    courseID,
		CourseTitle: "duplicate",
		TotalAmount: 100000,
		EnrolledAt:  time.Now(),
	})
	assert.Error(t, err)
}
