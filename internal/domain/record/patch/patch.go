// Package patch describes partial record updates.
package patch

import (
	"fmt"

	"github.com/tripnote/tripnote/internal/domain/record"
)

// MaxTextSize is the maximum size in bytes of Description or Content.
const MaxTextSize = 163840 // 160KB

// Fields is the wire form of a patch. Nil fields are left unchanged; an
// empty string clears a text field and an empty Tags slice clears the tags.
type Fields struct {
	Title       *string   `json:"title,omitempty"`
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Content     *string   `json:"content,omitempty"`
	Location    *string   `json:"location,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
	Amount      *float64  `json:"amount,omitempty"`
	Currency    *string   `json:"currency,omitempty"`
	Date        *string   `json:"date,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Person      *string   `json:"person,omitempty"`
}

// Patch is a validated partial update.
type Patch struct {
	f Fields
}

// New validates and creates a Patch. At least one field must be provided.
func New(f Fields) (Patch, error) {
	if f == (Fields{}) {
		return Patch{}, fmt.Errorf("at least one field must be provided")
	}
	for name, v := range map[string]*string{"description": f.Description, "content": f.Content} {
		if v != nil && len(*v) > MaxTextSize {
			return Patch{}, fmt.Errorf("%s too large (max %d bytes)", name, MaxTextSize)
		}
	}
	return Patch{f: f}, nil
}

// TouchesText reports whether the patch changes a field that tags are derived from.
func (p Patch) TouchesText() bool {
	return p.f.Title != nil || p.f.Name != nil || p.f.Description != nil ||
		p.f.Content != nil || p.f.Location != nil
}

// SetsTags reports whether the patch replaces the tags.
func (p Patch) SetsTags() bool { return p.f.Tags != nil }

// Apply returns rec with the patch applied. rec is not modified.
func (p Patch) Apply(rec record.Record) record.Record {
	setString(&rec.Title, p.f.Title)
	setString(&rec.Name, p.f.Name)
	setString(&rec.Description, p.f.Description)
	setString(&rec.Content, p.f.Content)
	setString(&rec.Location, p.f.Location)
	setString(&rec.Currency, p.f.Currency)
	setString(&rec.Date, p.f.Date)
	setString(&rec.Category, p.f.Category)
	setString(&rec.Person, p.f.Person)
	if p.f.Tags != nil {
		rec.Tags = append([]string(nil), (*p.f.Tags)...)
	} else if rec.Tags != nil {
		rec.Tags = append([]string(nil), rec.Tags...)
	}
	if p.f.Amount != nil {
		v := *p.f.Amount
		rec.Amount = &v
	}
	return rec
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
