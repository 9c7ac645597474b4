package ticketform

import (
	"io/fs"

	"github.com/goliatone/go-ticketform/pkg/templates"
)

// EmbeddedTemplates exposes the built-in category templates so callers can
// copy or extend them without importing the templates package directly.
func EmbeddedTemplates() fs.FS {
	return templates.EmbeddedFS()
}
