// Package directory exposes the read-only collaborators the invitation core depends on:
// events, users and invitation templates. They are owned by the CRUD service; this
// package only looks them up.
package directory

import (
	"context"
)

// Event is the slice of an event record the core needs.
type Event struct {
	ID                 string   `json:"id"`
	HostID             string   `json:"host_id"`
	Title              string   `json:"title"`
	TemplateSlug       *string  `json:"template_slug,omitempty"`
	UserTemplateConfig AssetSet `json:"user_template_config"`
}

// User is the requester/guest profile.
type User struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`
}

// Template is an invitation design with ordered default assets.
type Template struct {
	Slug   string         `json:"slug"`
	Name   string         `json:"name"`
	Assets TemplateAssets `json:"assets"`
}

// IsHost reports whether userID owns the event.
func (e Event) IsHost(userID string) bool {
	return userID != "" && e.HostID == userID
}

// Events looks up events by id.
type Events interface {
	GetEvent(ctx context.Context, id string) (Event, error)
}

// Users looks up user profiles by id.
type Users interface {
	GetUser(ctx context.Context, id string) (User, error)
}

// Templates looks up templates by slug.
type Templates interface {
	GetTemplate(ctx context.Context, slug string) (Template, error)
}

// Directory bundles the three lookups.
type Directory interface {
	Events
	Users
	Templates
}
