package services

import (
	"context"
	"testing"

	"github.com/matterdesk/matterdesk/internal/models"
	"github.com/matterdesk/matterdesk/pkg/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVisible(t *testing.T) {
	firmA, firmB := uint(1), uint(2)
	client := &Actor{ID: 10, Role: models.RoleClient, Status: models.StatusActive}
	staffA := &Actor{ID: 20, Role: models.RoleCaseManager, Status: models.StatusActive, FirmID: &firmA}
	staffB := &Actor{ID: 30, Role: models.RoleAssociateLawyer, Status: models.StatusActive, FirmID: &firmB}

	shared := &models.MatterDocument{ClientVisible: true}
	internal := &models.MatterDocument{ClientVisible: false}

	tests := []struct {
		name     string
		doc      *models.MatterDocument
		actor    *Actor
		firm     *uint
		expected bool
	}{
		{"client sees shared", shared, client, &firmA, true},
		{"client never sees internal", internal, client, &firmA, false},
		{"staff sees internal in own firm", internal, staffA, &firmA, true},
		{"staff blind to other firm", shared, staffB, &firmA, false},
		{"intake is open to staff", internal, staffB, nil, true},
		{"unknown role sees nothing", shared, &Actor{Role: "guest"}, &firmA, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Visible(tt.doc, tt.actor, tt.firm); got != tt.expected {
				t.Errorf("Visible() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestFilterUpdates(t *testing.T) {
	firm := uint(1)
	client := &Actor{Role: models.RoleClient, Status: models.StatusActive}
	updates := []models.MatterUpdate{
		{ID: 1, ClientVisible: true},
		{ID: 2, ClientVisible: false},
		{ID: 3, ClientVisible: true},
	}
	got := FilterUpdates(updates, client, &firm)
	if len(got) != 2 || got[0].ID != 1 || got[1].ID != 3 {
		t.Errorf("FilterUpdates() = %+v", got)
	}
}

func TestDocumentService_ClientSeesOnlySharedItems(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.fileMatter(t)
	env.transition(t, m.ID, models.MatterInReview)
	_, err := env.assignments.Assign(ctx, actorOf(env.manager), m.ID, env.associate.ID)
	require.NoError(t, err)

	memo, err := env.documents.AddDocument(ctx, actorOf(env.associate), m.ID, &AddDocumentRequest{
		StorageKey: "matters/1/memo.pdf", FileName: "memo.pdf",
	})
	require.NoError(t, err)
	assert.False(t, memo.ClientVisible)

	upload, err := env.documents.AddDocument(ctx, actorOf(env.client), m.ID, &AddDocumentRequest{
		StorageKey: "matters/1/lease.pdf", FileName: "lease.pdf",
	})
	require.NoError(t, err)
	assert.True(t, upload.ClientVisible, "a client's own upload is visible to them")

	_, err = env.documents.PostUpdate(ctx, actorOf(env.associate), m.ID, &PostUpdateRequest{Body: "Draft strategy", ClientVisible: false})
	require.NoError(t, err)
	_, err = env.documents.PostUpdate(ctx, actorOf(env.associate), m.ID, &PostUpdateRequest{Body: "Filed with the court", ClientVisible: true})
	require.NoError(t, err)

	docs, err := env.documents.ListDocuments(ctx, actorOf(env.client), m.ID)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, upload.ID, docs[0].ID)

	updates, err := env.documents.ListUpdates(ctx, actorOf(env.client), m.ID)
	require.NoError(t, err)
	require.Len(t, updates, 1)
	assert.Equal(t, "Filed with the court", updates[0].Body)

	staffDocs, err := env.documents.ListDocuments(ctx, actorOf(env.associate), m.ID)
	require.NoError(t, err)
	assert.Len(t, staffDocs, 2)

	before := env.countRows(t, &models.Notification{}, "recipient_id = ? AND event_type = ?", env.client.ID, models.EventDocumentShared)
	shared, err := env.documents.SetDocumentVisibility(ctx, actorOf(env.manager), memo.ID, true)
	require.NoError(t, err)
	assert.True(t, shared.ClientVisible)
	assert.Len(t, env.auditRecords(t, m.ID, models.AuditDocumentVisibility), 1)
	assert.Equal(t, before+1, env.countRows(t, &models.Notification{}, "recipient_id = ? AND event_type = ?", env.client.ID, models.EventDocumentShared))

	_, err = env.documents.SetDocumentVisibility(ctx, actorOf(env.manager), memo.ID, true)
	require.NoError(t, err)
	assert.Len(t, env.auditRecords(t, m.ID, models.AuditDocumentVisibility), 1, "unchanged visibility is not audited")

	docs, err = env.documents.ListDocuments(ctx, actorOf(env.client), m.ID)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	assert.EqualValues(t, 1, env.countRows(t, &models.Notification{},
		"recipient_id = ? AND event_type = ?", env.client.ID, models.EventCaseUpdate))
}

func TestDocumentService_Rejections(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	m := env.fileMatter(t)
	env.transition(t, m.ID, models.MatterInReview)

	_, err := env.documents.PostUpdate(ctx, actorOf(env.client), m.ID, &PostUpdateRequest{Body: "hi"})
	require.ErrorIs(t, err, response.ErrForbidden)

	_, err = env.documents.AddDocument(ctx, actorOf(env.associate), m.ID, &AddDocumentRequest{StorageKey: "k", FileName: "f"})
	require.ErrorIs(t, err, response.ErrNotFound, "unassigned associates cannot reach the matter")

	_, err = env.documents.PostUpdate(ctx, actorOf(env.manager), m.ID, &PostUpdateRequest{Body: "   "})
	require.ErrorIs(t, err, response.ErrBadRequest)

	_, err = env.documents.SetDocumentVisibility(ctx, actorOf(env.client), 1, true)
	require.ErrorIs(t, err, response.ErrForbidden)

	_, err = env.documents.SetDocumentVisibility(ctx, actorOf(env.manager), 4242, true)
	require.ErrorIs(t, err, response.ErrNotFound)
}
