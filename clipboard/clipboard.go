// Package clipboard provides system clipboard access.
package clipboard

import (
	"github.com/wailsapp/wails/v3/pkg/application"
)

// GetText returns the current clipboard text.
func GetText(app *application.App) (string, error) {
	return getClipboardContent(app)
}

// SetText replaces the clipboard with text.
func SetText(app *application.App, text string) error {
	return setClipboardContent(app, text)
}
