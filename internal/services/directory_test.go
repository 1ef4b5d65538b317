package services

import (
	"context"
	"testing"
	"time"

	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryService_SuspendRevokesSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.db.Create(&models.RefreshToken{
		ProfileID: env.associate.ID,
		TokenHash: "a1",
		ExpiresAt: time.Now().Add(time.Hour),
	}).Error)

	updated, err := env.directory.ChangeStatus(ctx, actorOf(env.admin), env.associate.ID, &ChangeStatusRequest{
		Status: models.StatusSuspended,
		Reason: "conflict check pending",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuspended, updated.Status)

	assert.Zero(t, env.countRows(t, &models.RefreshToken{}, "profile_id = ? AND revoked_at IS NULL", env.associate.ID))

	var records []models.AuditRecord
	require.NoError(t, env.db.Where("action = ?", models.AuditUserStatusChanged).Find(&records).Error)
	require.Len(t, records, 1)
	d := decodeDetails(t, records[0])
	assert.Equal(t, "active", d["from"])
	assert.Equal(t, "suspended", d["to"])
	assert.Equal(t, "conflict check pending", d["reason"])

	_, err = env.identity.Resolve(ctx, env.associate.ID)
	var inactive *InactiveError
	require.ErrorAs(t, err, &inactive)
	assert.True(t, inactive.RevokesSession())
}

func TestDirectoryService_ChangeStatusRejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	otherFirm := env.addFirm(t, "Other LLP")
	outsider := env.addProfile(t, &otherFirm.ID, models.RoleCaseManager, "cm@other.test")

	tests := []struct {
		name   string
		actor  *Actor
		target uint
		status string
		kind   error
	}{
		{"case manager cannot manage staff", actorOf(env.manager), env.associate.ID, models.StatusSuspended, response.ErrForbidden},
		{"admin cannot change self", actorOf(env.admin), env.admin.ID, models.StatusSuspended, response.ErrForbidden},
		{"other firm is invisible", actorOf(env.admin), outsider.ID, models.StatusSuspended, response.ErrNotFound},
		{"clients are not staff", actorOf(env.admin), env.client.ID, models.StatusSuspended, response.ErrNotFound},
		{"unknown status", actorOf(env.admin), env.associate.ID, "banished", response.ErrBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.directory.ChangeStatus(ctx, tt.actor, tt.target, &ChangeStatusRequest{Status: tt.status})
			require.ErrorIs(t, err, tt.kind)
		})
	}
	assert.Zero(t, env.countRows(t, &models.AuditRecord{}, "action = ?", models.AuditUserStatusChanged))
}

func TestDirectoryService_UpdateFirmAuditsChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	name := "Hale & Partners"
	phone := "+1 555 0100"

	firm, err := env.directory.UpdateFirm(ctx, actorOf(env.admin), &UpdateFirmRequest{Name: &name, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, phone, firm.Phone)

	var record models.AuditRecord
	require.NoError(t, env.db.Where("action = ?", models.AuditFirmUpdated).First(&record).Error)
	d := decodeDetails(t, record)
	assert.Equal(t, phone, d["phone"])
	assert.NotContains(t, d, "name", "unchanged fields are not audited")

	_, err = env.directory.UpdateFirm(ctx, actorOf(env.admin), &UpdateFirmRequest{Phone: &phone})
	require.NoError(t, err)
	assert.EqualValues(t, 1, env.countRows(t, &models.AuditRecord{}, "action = ?", models.AuditFirmUpdated))

	empty := " "
	_, err = env.directory.UpdateFirm(ctx, actorOf(env.admin), &UpdateFirmRequest{Name: &empty})
	require.ErrorIs(t, err, response.ErrBadRequest)

	_, err = env.directory.UpdateFirm(ctx, actorOf(env.manager), &UpdateFirmRequest{Phone: &phone})
	require.ErrorIs(t, err, response.ErrForbidden)
}

func TestDirectoryService_ListStaffAndAuditLog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	staff, err := env.directory.ListStaff(ctx, actorOf(env.manager), &StaffListRequest{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, staff.Total, "admin, case manager and associate")

	associates, err := env.directory.ListStaff(ctx, actorOf(env.admin), &StaffListRequest{Role: models.RoleAssociateLawyer})
	require.NoError(t, err)
	assert.EqualValues(t, 1, associates.Total)

	_, err = env.directory.ListStaff(ctx, actorOf(env.client), &StaffListRequest{})
	require.ErrorIs(t, err, response.ErrForbidden)

	m := env.fileMatter(t)
	env.transition(t, m.ID, models.MatterInReview)

	log, err := env.directory.AuditLog(ctx, actorOf(env.admin), &AuditListRequest{})
	require.NoError(t, err)
	assert.NotZero(t, log.Total)
	for _, r := range log.Items {
		require.NotNil(t, r.FirmID)
		assert.Equal(t, env.firm.ID, *r.FirmID)
	}

	_, err = env.directory.AuditLog(ctx, actorOf(env.manager), &AuditListRequest{})
	require.ErrorIs(t, err, response.ErrForbidden)
}
