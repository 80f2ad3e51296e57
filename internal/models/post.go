// Package models contains data structures for the application's domain models.
package models

import (
	"sort"
	"strings"
	"time"
)

// Post is a tagged item. Tags are stored as a space separated string.
type Post struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UploaderID uint      `gorm:"not null;index" json:"uploader_id"`
	TagString  string    `gorm:"type:text;not null;default:''" json:"tag_string"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Tags returns the post's tag set in stored order.
func (p *Post) Tags() []string {
	return strings.Fields(p.TagString)
}

// HasTag reports whether the post carries name.
func (p *Post) HasTag(name string) bool {
	for _, t := range p.Tags() {
		if t == name {
			return true
		}
	}
	return false
}

// SetTags replaces the tag string with the sorted, de-duplicated names.
func (p *Post) SetTags(names []string) {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	sort.Strings(out)
	p.TagString = strings.Join(out, " ")
}
