//go:build !unix && !windows

package strongbox

func platformBusy(err error) bool {
	return false
}
