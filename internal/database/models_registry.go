package database

import "tagboard/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Post{},
		&models.ForumTopic{},
		&models.ForumPost{},
		&models.Dmail{},
		&models.TagAlias{},
		&models.TagImplication{},
		&models.BulkUpdateRequest{},
	}
}
