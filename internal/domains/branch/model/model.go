package model

import (
	"regexp"
	"strings"

	"hotel/shared/model"
)

const (
	TableName  = "branches"
	EntityName = "branch"

	FieldID       = "id"
	FieldName     = "name"
	FieldSlug     = "slug"
	FieldRating   = "rating"
	FieldAddress  = "address"
	FieldImageURL = "image_url"

	ConstraintNameKey = "branches_name_key"
	ConstraintSlugKey = "branches_slug_key"
)

var ConflictMessages = map[string]string{
	ConstraintNameKey: "a branch with this name already exists",
	ConstraintSlugKey: "a branch with a similar name already exists",
}

type Branch struct {
	ID       string  `db:"id"`
	Name     string  `db:"name"`
	Slug     string  `db:"slug"`
	Address  string  `db:"address"`
	Zipcode  string  `db:"zipcode"`
	Phone    string  `db:"phone"`
	Email    string  `db:"email"`
	Website  string  `db:"website"`
	Rating   float64 `db:"rating"`
	ImageURL string  `db:"image_url"`
	model.Metadata
}

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name and joins its alphanumeric runs with hyphens.
func Slugify(name string) string {
	slug := slugSeparators.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")

	return strings.Trim(slug, "-")
}
