package model

import (
	"errors"
	"strings"
	"time"
	"unicode/utf8"
)

const maxCategoryNameLen = 120

// Category groups catalog products (e.g., grains, pulses, oils).
type Category struct {
	ID          string    `json:"id"                    db:"id"`
	Name        string    `json:"name"                  db:"name"`
	Slug        string    `json:"slug"                  db:"slug"`
	Description *string   `json:"description,omitempty" db:"description"`
	CreatedAt   time.Time `json:"created_at"            db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"            db:"updated_at"`
}

// CreateCategoryRequest represents parameters to create a Category.
type CreateCategoryRequest struct {
	Name        string  `json:"name"`
	Slug        string  `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
}

// UpdateCategoryRequest represents parameters to update a Category.
type UpdateCategoryRequest struct {
	Name        *string `json:"name,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Slugify derives a URL-safe slug from a category name.
func Slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteByte('-')
		}
	}
	return strings.Trim(b.String(), "-")
}

// Validate validates CreateCategoryRequest and fills a missing slug.
func (r *CreateCategoryRequest) Validate() error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return errors.New("name is required and cannot be empty")
	}
	if utf8.RuneCountInString(name) > maxCategoryNameLen {
		return errors.New("name cannot exceed 120 characters")
	}
	if strings.TrimSpace(r.Slug) == "" {
		r.Slug = Slugify(name)
	}
	if r.Slug == "" {
		return errors.New("slug cannot be derived from name")
	}
	return nil
}

// Validate validates UpdateCategoryRequest.
func (r *UpdateCategoryRequest) Validate() error {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		if name == "" {
			return errors.New("name cannot be empty")
		}
		if utf8.RuneCountInString(name) > maxCategoryNameLen {
			return errors.New("name cannot exceed 120 characters")
		}
	}
	if r.Slug != nil {
		slug := strings.TrimSpace(*r.Slug)
		if slug == "" {
			return errors.New("slug cannot be empty")
		}
		if slug != Slugify(slug) {
			return errors.New("slug may only contain lowercase letters, digits, and hyphens")
		}
	}
	return nil
}

// HasUpdates reports whether any field is set in UpdateCategoryRequest.
func (r *UpdateCategoryRequest) HasUpdates() bool {
	return r.Name != nil || r.Slug != nil || r.Description != nil
}
