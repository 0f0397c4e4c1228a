//go:build windows

package strongbox

import (
	"errors"

	"golang.org/x/sys/windows"
)

func platformBusy(err error) bool {
	return errors.Is(err, windows.ERROR_SHARING_VIOLATION) ||
		errors.Is(err, windows.ERROR_LOCK_VIOLATION)
}
