package audit

import (
	"net/http"
	"strings"
	"testing"

	"restopos-backend/internal/auth"
	"restopos-backend/internal/establishment"
	"restopos-backend/internal/models"
	"restopos-backend/internal/testutil"
	"restopos-backend/internal/web"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestWriteLogRollsBackWithTransaction(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "owner@example.com")
	est := testutil.CreateEstablishment(t, db, user.ID, "kafe")

	err := db.Transaction(func(tx *gorm.DB) error {
		require.NoError(t, WriteLog(tx, LogOptions{
			EstablishmentID: est.ID,
			EntityType:      "order",
			EntityID:        1,
			Action:          models.AuditActionDelete,
		}))
		return assert.AnError
	})
	require.ErrorIs(t, err, assert.AnError)

	var count int64
	require.NoError(t, db.Model(&models.AuditLog{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWriteLogSerializesSnapshots(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "owner@example.com")
	est := testutil.CreateEstablishment(t, db, user.ID, "kafe")

	require.NoError(t, WriteLog(db, LogOptions{
		EstablishmentID: est.ID,
		UserID:          &user.ID,
		EntityType:      "order",
		EntityID:        3,
		Action:          models.AuditActionStatusChange,
		Description:     strings.Repeat("ş", 300),
		Before:          map[string]string{"status": "pending"},
		After:           map[string]string{"status": "paid"},
	}))

	var l models.AuditLog
	require.NoError(t, db.First(&l).Error)
	assert.JSONEq(t, `{"status":"pending"}`, l.BeforeData)
	assert.JSONEq(t, `{"status":"paid"}`, l.AfterData)
	assert.Equal(t, 255, len([]rune(l.Description)))

	require.NoError(t, WriteLog(db, LogOptions{EstablishmentID: est.ID, EntityType: "restock_event", EntityID: 1, Action: models.AuditActionCreate}))
	var last models.AuditLog
	require.NoError(t, db.Order("id DESC").First(&last).Error)
	assert.Equal(t, "null", last.BeforeData)
}

func TestListAuditLogsHandler(t *testing.T) {
	db := testutil.NewDB(t)
	user := testutil.CreateUser(t, db, "owner@example.com")
	est := testutil.CreateEstablishment(t, db, user.ID, "kafe")
	other := testutil.CreateUser(t, db, "other@example.com")
	otherEst := testutil.CreateEstablishment(t, db, other.ID, "diger")

	for _, opts := range []LogOptions{
		{EstablishmentID: est.ID, EntityType: "order", EntityID: 1, Action: models.AuditActionCreate},
		{EstablishmentID: est.ID, EntityType: "order", EntityID: 2, Action: models.AuditActionDelete},
		{EstablishmentID: est.ID, EntityType: "restock_event", EntityID: 1, Action: models.AuditActionCreate},
		{EstablishmentID: otherEst.ID, EntityType: "order", EntityID: 9, Action: models.AuditActionCreate},
	} {
		require.NoError(t, WriteLog(db, opts))
	}

	app := web.NewApp()
	app.Get("/api/audit-logs", func(c *fiber.Ctx) error {
		c.Locals(auth.CtxUserIDKey, user.ID)
		return c.Next()
	}, establishment.Resolver(db), ListAuditLogsHandler(db))

	resp := testutil.DoJSON(t, app, http.MethodGet, "/api/audit-logs", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, testutil.DecodeJSON[[]AuditLogResponse](t, resp), 3, "başka işletmenin logları görünmemeli")

	resp = testutil.DoJSON(t, app, http.MethodGet, "/api/audit-logs?entity_type=order&entity_id=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	logs := testutil.DecodeJSON[[]AuditLogResponse](t, resp)
	require.Len(t, logs, 1)
	assert.Equal(t, models.AuditActionDelete, logs[0].Action)

	resp = testutil.DoJSON(t, app, http.MethodGet, "/api/audit-logs?entity_id=abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
