package services

import (
	"github.com/matterdesk/matterdesk/internal/models"
	"gorm.io/gorm"
)

// Visible decides whether a document may be shown to actor. Matter-level
// visibility is checked separately; this only applies the per-item flag.
func Visible(doc *models.MatterDocument, actor *Actor, matterFirmID *uint) bool {
	return itemVisible(doc.ClientVisible, actor, matterFirmID)
}

// VisibleUpdate is Visible for matter updates.
func VisibleUpdate(update *models.MatterUpdate, actor *Actor, matterFirmID *uint) bool {
	return itemVisible(update.ClientVisible, actor, matterFirmID)
}

func itemVisible(clientVisible bool, actor *Actor, matterFirmID *uint) bool {
	switch {
	case actor.IsClient():
		return clientVisible
	case actor.IsInternal():
		// Firm-less matters are still in intake and open to any firm's staff.
		return matterFirmID == nil || actor.InFirm(matterFirmID)
	}
	return false
}

func FilterDocuments(docs []models.MatterDocument, actor *Actor, matterFirmID *uint) []models.MatterDocument {
	out := make([]models.MatterDocument, 0, len(docs))
	for i := range docs {
		if Visible(&docs[i], actor, matterFirmID) {
			out = append(out, docs[i])
		}
	}
	return out
}

func FilterUpdates(updates []models.MatterUpdate, actor *Actor, matterFirmID *uint) []models.MatterUpdate {
	out := make([]models.MatterUpdate, 0, len(updates))
	for i := range updates {
		if VisibleUpdate(&updates[i], actor, matterFirmID) {
			out = append(out, updates[i])
		}
	}
	return out
}

// scopeVisibleMatters restricts a matters query to what actor may see.
func scopeVisibleMatters(query *gorm.DB, actor *Actor) *gorm.DB {
	switch actor.Role {
	case models.RoleClient:
		return query.Where("matters.client_id = ?", actor.ID)
	case models.RoleAssociateLawyer:
		return query.Where(
			"EXISTS (SELECT 1 FROM assignments a WHERE a.matter_id = matters.id AND a.staff_id = ? AND a.superseded_at IS NULL)",
			actor.ID,
		)
	case models.RoleCaseManager:
		if actor.FirmID == nil {
			return query.Where("1 = 0")
		}
		return query.Where("(matters.firm_id = ? OR matters.firm_id IS NULL)", *actor.FirmID)
	case models.RoleAdminManager:
		if actor.FirmID == nil {
			return query.Where("1 = 0")
		}
		return query.Where("matters.firm_id = ?", *actor.FirmID)
	}
	return query.Where("1 = 0")
}

// canSeeMatter applies the same rule as scopeVisibleMatters to one loaded matter.
func canSeeMatter(db *gorm.DB, actor *Actor, matter *models.Matter) (bool, error) {
	switch actor.Role {
	case models.RoleClient:
		return matter.ClientID == actor.ID, nil
	case models.RoleCaseManager:
		return matter.FirmID == nil || actor.InFirm(matter.FirmID), nil
	case models.RoleAdminManager:
		return actor.InFirm(matter.FirmID), nil
	case models.RoleAssociateLawyer:
		var count int64
		err := db.Model(&models.Assignment{}).
			Where("matter_id = ? AND staff_id = ? AND superseded_at IS NULL", matter.ID, actor.ID).
			Count(&count).Error
		return count > 0, err
	}
	return false, nil
}
