//go:build unix

package strongbox

import (
	"errors"

	"golang.org/x/sys/unix"
)

func platformBusy(err error) bool {
	return errors.Is(err, unix.EBUSY) || errors.Is(err, unix.ETXTBSY)
}
