package loyalty

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/longpham-dev/milktea-backend/pkg/config"
	"github.com/longpham-dev/milktea-backend/pkg/db/models"
)

func setupLoyaltyTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:loyalty_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL,
  loyalty_points INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	transactions := `
CREATE TABLE IF NOT EXISTS loyalty_transactions (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  order_id TEXT NOT NULL UNIQUE,
  points INTEGER NOT NULL,
  note TEXT,
  created_at DATETIME
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(transactions).Error)
	return db
}

func TestPointsFor(t *testing.T) {
	svc, err := NewService(config.LoyaltyConfig{AmountPerPoint: 1000})
	require.NoError(t, err)

	assert.Equal(t, int64(271), svc.PointsFor(271000))
	assert.Equal(t, int64(0), svc.PointsFor(999))
	assert.Equal(t, int64(1), svc.PointsFor(1999))
	assert.Equal(t, int64(0), svc.PointsFor(0))
	assert.Equal(t, int64(0), svc.PointsFor(-500))
}

func TestCredit(t *testing.T) {
	db := setupLoyaltyTestDB(t)
	svc, err := NewService(config.LoyaltyConfig{AmountPerPoint: 1000})
	require.NoError(t, err)

	user := models.User{ID: uuid.New(), Name: "Lan", Email: "lan@example.com"}
	require.NoError(t, db.Create(&user).Error)
	orderID := uuid.New()

	points, err := svc.Credit(context.Background(), db, user.ID, orderID, 271000)
	require.NoError(t, err)
	assert.Equal(t, int64(271), points)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, int64(271), reloaded.LoyaltyPoints)

	var entry models.LoyaltyTransaction
	require.NoError(t, db.First(&entry, "order_id = ?", orderID).Error)
	assert.Equal(t, int64(271), entry.Points)
	assert.Equal(t, user.ID, entry.UserID)
}

func TestCreditSameOrderTwiceRejected(t *testing.T) {
	db := setupLoyaltyTestDB(t)
	svc, err := NewService(config.LoyaltyConfig{AmountPerPoint: 1000})
	require.NoError(t, err)

	user := models.User{ID: uuid.New(), Name: "Minh", Email: "minh@example.com"}
	require.NoError(t, db.Create(&user).Error)
	orderID := uuid.New()

	_, err = svc.Credit(context.Background(), db, user.ID, orderID, 50000)
	require.NoError(t, err)

	_, err = svc.Credit(context.Background(), db, user.ID, orderID, 50000)
	assert.Error(t, err)

	var reloaded models.User
	require.NoError(t, db.First(&reloaded, "id = ?", user.ID).Error)
	assert.Equal(t, int64(50), reloaded.LoyaltyPoints)
}

func TestCreditSkipsSubPointAmounts(t *testing.T) {
	db := setupLoyaltyTestDB(t)
	svc, err := NewService(config.LoyaltyConfig{AmountPerPoint: 1000})
	require.NoError(t, err)

	user := models.User{ID: uuid.New(), Name: "Thao", Email: "thao@example.com"}
	require.NoError(t, db.Create(&user).Error)

	points, err := svc.Credit(context.Background(), db, user.ID, uuid.New(), 900)
	require.NoError(t, err)
	assert.Zero(t, points)

	var count int64
	require.NoError(t, db.Model(&models.LoyaltyTransaction{}).Count(&count).Error)
	assert.Zero(t, count)
}
