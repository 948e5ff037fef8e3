package moderation

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/rafael-frs-a/gomemes/models"
)

// Catalog manages the denial reasons a moderator can cite. Each moderator
// owns private reasons; ownerless reasons form the shared catalog, visible to
// everyone and immutable through these flows.
type Catalog struct {
	db *gorm.DB
}

// NewCatalog returns a catalog over the given store.
func NewCatalog(db *gorm.DB) *Catalog {
	return &Catalog{db: db}
}

// reasonSortFields whitelists the fields the listing accepts, mirroring the
// "field doesn't exist" semantics: anything else is NotFound.
var reasonSortFields = map[string]bool{
	"created_at":  true,
	"description": true,
	"id":          true,
}

// List returns the moderator's own reasons plus all shared reasons. The
// default order is shared first, then case-insensitively by description; a
// sort parameter ("field" or "-field") overrides it.
func (c *Catalog) List(moderatorID uint, sort string) ([]models.PostDenialReason, error) {
	query := c.db.Where("moderator_id = ? OR moderator_id IS NULL", moderatorID)

	if sort == "" {
		query = query.Order("CASE WHEN moderator_id IS NULL THEN 0 ELSE 1 END").
			Order("LOWER(description) ASC")
	} else {
		field := sort
		direction := "ASC"
		if strings.HasPrefix(sort, "-") {
			field = sort[1:]
			direction = "DESC"
		}
		if !reasonSortFields[field] {
			return nil, ErrNotFound
		}
		if field == "description" {
			query = query.Order("LOWER(description) " + direction)
		} else {
			query = query.Order(field + " " + direction)
		}
	}

	var reasons []models.PostDenialReason
	if err := query.Find(&reasons).Error; err != nil {
		return nil, err
	}
	return reasons, nil
}

// CountOwn returns how many private reasons the moderator has.
func (c *Catalog) CountOwn(moderatorID uint) (int64, error) {
	var count int64
	err := c.db.Model(&models.PostDenialReason{}).
		Where("moderator_id = ?", moderatorID).Count(&count).Error
	return count, err
}

// Create adds a private reason for the moderator. The description must not
// collide, case-insensitively, with another of their reasons or with a shared
// one; an identical reason owned by a different moderator is fine.
func (c *Catalog) Create(moderatorID uint, description string) (*models.PostDenialReason, error) {
	description = strings.TrimSpace(description)
	reason := models.PostDenialReason{
		Description: description,
		ModeratorID: &moderatorID,
	}
	if fields := reason.Validate(); len(fields) > 0 {
		return nil, newValidationError(fields)
	}

	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := c.checkUnique(tx, moderatorID, description, 0); err != nil {
			return err
		}
		return tx.Create(&reason).Error
	})
	if err != nil {
		return nil, err
	}
	return &reason, nil
}

// Edit changes the description of one of the moderator's own reasons. Shared
// reasons and other moderators' reasons are NotFound, never Forbidden.
func (c *Catalog) Edit(moderatorID, reasonID uint, description string) (*models.PostDenialReason, error) {
	description = strings.TrimSpace(description)

	var reason models.PostDenialReason
	err := c.db.Transaction(func(tx *gorm.DB) error {
		if err := c.getOwn(tx, moderatorID, reasonID, &reason); err != nil {
			return err
		}
		reason.Description = description
		if fields := reason.Validate(); len(fields) > 0 {
			return newValidationError(fields)
		}
		if err := c.checkUnique(tx, moderatorID, description, reason.ID); err != nil {
			return err
		}
		return tx.Save(&reason).Error
	})
	if err != nil {
		return nil, err
	}
	return &reason, nil
}

// Delete removes one of the moderator's own reasons. History referencing it
// keeps its record with the reason link cleared by the store.
func (c *Catalog) Delete(moderatorID, reasonID uint) error {
	return c.db.Transaction(func(tx *gorm.DB) error {
		var reason models.PostDenialReason
		if err := c.getOwn(tx, moderatorID, reasonID, &reason); err != nil {
			return err
		}
		return tx.Delete(&models.PostDenialReason{}, reason.ID).Error
	})
}

// Get returns one of the moderator's own reasons, NotFound otherwise.
func (c *Catalog) Get(moderatorID, reasonID uint) (*models.PostDenialReason, error) {
	var reason models.PostDenialReason
	if err := c.getOwn(c.db, moderatorID, reasonID, &reason); err != nil {
		return nil, err
	}
	return &reason, nil
}

func (c *Catalog) getOwn(tx *gorm.DB, moderatorID, reasonID uint, out *models.PostDenialReason) error {
	err := tx.Where("id = ? AND moderator_id = ?", reasonID, moderatorID).First(out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// checkUnique enforces the case-insensitive uniqueness scopes: no duplicate
// among the shared reasons, no duplicate among this moderator's reasons.
// excludeID skips the record being edited.
func (c *Catalog) checkUnique(tx *gorm.DB, moderatorID uint, description string, excludeID uint) error {
	var count int64
	err := tx.Model(&models.PostDenialReason{}).
		Where("LOWER(description) = ? AND id <> ?", strings.ToLower(description), excludeID).
		Where("moderator_id = ? OR moderator_id IS NULL", moderatorID).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count > 0 {
		return fieldError("description", "a denial reason with this description already exists")
	}
	return nil
}
