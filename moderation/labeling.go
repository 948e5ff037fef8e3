package moderation

import (
	"errors"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/rafael-frs-a/gomemes/models"
	"github.com/rafael-frs-a/gomemes/utils"
)

// Labeler is the external vision service: it looks at a post's image and
// returns descriptive tags plus any text it can read out of the image.
type Labeler interface {
	Labels(post *models.Post) ([]string, error)
	Text(post *models.Post) (string, error)
}

// LabelResult reports why labelling did or did not run.
type LabelResult string

const (
	LabelSuccess         LabelResult = "success"
	LabelPostNotFound    LabelResult = "post_not_found"
	LabelPostNotApproved LabelResult = "post_not_approved"
	LabelAlreadyLabelled LabelResult = "post_already_labelled"
)

// ApplyLabels tags an approved post through the labeler. Labels are an
// approved-only artifact: the task refuses posts in any other state, skips
// posts already labelled, and stores the space-joined sorted tag list as the
// searchable label text.
func ApplyLabels(db *gorm.DB, labeler Labeler, postID uint) (LabelResult, error) {
	var post models.Post
	err := db.First(&post, postID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return LabelPostNotFound, nil
	}
	if err != nil {
		return "", err
	}

	if post.ModerationStatus != models.StatusApproved {
		return LabelPostNotApproved, nil
	}
	if post.MemeLabelled {
		return LabelAlreadyLabelled, nil
	}

	tags, err := labeler.Labels(&post)
	if err != nil {
		return "", err
	}
	text, err := labeler.Text(&post)
	if err != nil {
		return "", err
	}

	unique := map[string]bool{}
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.ToLower(tag))
		if tag != "" {
			unique[tag] = true
		}
	}
	sorted := make([]string, 0, len(unique))
	for tag := range unique {
		sorted = append(sorted, tag)
	}
	sort.Strings(sorted)

	err = db.Transaction(func(tx *gorm.DB) error {
		for _, tag := range sorted {
			if err := tx.Create(&models.PostTag{PostID: post.ID, Description: tag}).Error; err != nil {
				if isDuplicate(err) {
					continue
				}
				return err
			}
		}
		labels := strings.Join(sorted, " ")
		return tx.Model(&models.Post{}).Where("id = ?", post.ID).Updates(map[string]interface{}{
			"meme_labels":   labels,
			"meme_text":     text,
			"meme_labelled": true,
		}).Error
	})
	if err != nil {
		return "", err
	}

	if utils.Sugar != nil {
		utils.Sugar.Infow("post labelled", "post_id", post.ID, "tags", len(sorted))
	}
	return LabelSuccess, nil
}
