package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/matterdesk/matterdesk/internal/config"
	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// testEnv is a fully wired service graph over a private in-memory database,
// seeded with one firm and one principal of every role.
type testEnv struct {
	db          *gorm.DB
	audit       *AuditService
	notifier    *NotificationService
	identity    *IdentityService
	matters     *MatterService
	assignments *AssignmentService
	invitations *InvitationService
	documents   *DocumentService
	payments    *PaymentService
	directory   *DirectoryService
	auth        *AuthService

	firm      *models.Firm
	admin     *models.Profile
	manager   *models.Profile
	associate *models.Profile
	client    *models.Profile

	seq int
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// One connection keeps the in-memory database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(models.AllModels()...))

	env := &testEnv{db: db}
	env.audit = NewAuditService(db)
	env.notifier = NewNotificationService(db, nil, nil)
	env.identity = NewIdentityService(db)
	env.matters = NewMatterService(db, env.audit, env.notifier, NewBusinessCalendar("US"))
	env.assignments = NewAssignmentService(db, env.audit, env.notifier)
	env.invitations = NewInvitationService(db, env.audit, DefaultInvitationTTL)
	env.documents = NewDocumentService(db, env.audit, env.notifier)
	env.payments = NewPaymentService(db, env.audit, env.matters)
	env.directory = NewDirectoryService(db, env.audit)
	env.auth = NewAuthService(db, &config.JWTConfig{ExpireHour: 1, RefreshExpireHour: 24}, nil, env.audit)

	env.firm = env.addFirm(t, "Hale & Partners")
	env.admin = env.addProfile(t, &env.firm.ID, models.RoleAdminManager, "admin@hale.test")
	env.manager = env.addProfile(t, &env.firm.ID, models.RoleCaseManager, "manager@hale.test")
	env.associate = env.addProfile(t, &env.firm.ID, models.RoleAssociateLawyer, "associate@hale.test")
	env.client = env.addProfile(t, nil, models.RoleClient, "client@example.test")
	return env
}

func (e *testEnv) addFirm(t *testing.T, name string) *models.Firm {
	t.Helper()
	e.seq++
	firm := &models.Firm{Name: name, Slug: fmt.Sprintf("%s-%d", slugify(name), e.seq), Timezone: "UTC"}
	require.NoError(t, e.db.Create(firm).Error)
	return firm
}

func (e *testEnv) addProfile(t *testing.T, firmID *uint, role, email string) *models.Profile {
	t.Helper()
	p := &models.Profile{
		FirmID:    firmID,
		Email:     email,
		AuthType:  models.AuthTypeLocal,
		Role:      role,
		Status:    models.StatusActive,
		FirstName: "Test",
		LastName:  role,
	}
	require.NoError(t, e.db.Create(p).Error)
	return p
}

// raceMatterStatus rewrites a matter's status inside the caller's transaction
// right before the next update of the matters table, as a competing writer would.
func (e *testEnv) raceMatterStatus(t *testing.T, matterID uint, status models.MatterStatus) {
	t.Helper()
	fired := false
	err := e.db.Callback().Update().Before("gorm:update").Register("test:race_matter_status", func(tx *gorm.DB) {
		if fired || tx.Statement.Table != "matters" {
			return
		}
		fired = true
		if _, err := tx.Statement.ConnPool.ExecContext(tx.Statement.Context,
			"UPDATE matters SET status = ? WHERE id = ?", string(status), matterID); err != nil {
			_ = tx.AddError(err)
		}
	})
	require.NoError(t, err)
}

func actorOf(p *models.Profile) *Actor {
	return ActorFromProfile(p)
}

// fileMatter files a paid client matter, which starts firm-less in PendingReview.
func (e *testEnv) fileMatter(t *testing.T) *models.Matter {
	t.Helper()
	e.seq++
	result, err := e.payments.FileWithPayment(context.Background(), actorOf(e.client), &PaidFilingRequest{
		Title:    fmt.Sprintf("Lease dispute %d", e.seq),
		Category: models.CategoryRealEstate,
		Tier:     models.TierStandard,
		Payment: PaymentFact{
			Reference:   fmt.Sprintf("pay_%d", e.seq),
			AmountMinor: 15000,
			Currency:    "usd",
		},
	})
	require.NoError(t, err)
	return result.Matter
}

// matterInProgress drives a fresh matter through intake and assignment.
func (e *testEnv) matterInProgress(t *testing.T) *models.Matter {
	t.Helper()
	ctx := context.Background()
	m := e.fileMatter(t)
	e.transition(t, m.ID, models.MatterInReview)
	_, err := e.assignments.Assign(ctx, actorOf(e.manager), m.ID, e.associate.ID)
	require.NoError(t, err)
	return e.transition(t, m.ID, models.MatterInProgress)
}

func (e *testEnv) transition(t *testing.T, matterID uint, to models.MatterStatus) *models.Matter {
	t.Helper()
	m, err := e.matters.Transition(context.Background(), actorOf(e.manager), matterID, &TransitionRequest{To: string(to)})
	require.NoError(t, err)
	return m
}

func (e *testEnv) reloadMatter(t *testing.T, id uint) *models.Matter {
	t.Helper()
	var m models.Matter
	require.NoError(t, e.db.First(&m, id).Error)
	return &m
}

func (e *testEnv) auditRecords(t *testing.T, matterID uint, action string) []models.AuditRecord {
	t.Helper()
	var records []models.AuditRecord
	require.NoError(t, e.db.Where("matter_id = ? AND action = ?", matterID, action).Order("id").Find(&records).Error)
	return records
}

func (e *testEnv) countRows(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func decodeDetails(t *testing.T, r models.AuditRecord) map[string]interface{} {
	t.Helper()
	out := map[string]interface{}{}
	require.NoError(t, json.Unmarshal([]byte(r.Details), &out))
	return out
}
