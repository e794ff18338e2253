//go:build !darwin

package clipboard

import (
	"errors"

	"github.com/wailsapp/wails/v3/pkg/application"
)

func getClipboardContent(_ *application.App) (string, error) {
	return "", errors.New("clipboard not supported on this platform")
}

func setClipboardContent(_ *application.App, _ string) error {
	return errors.New("clipboard not supported on this platform")
}
