//go:build windows

package files

import "os"

func isWritable(path string) bool {
	f, err := os.CreateTemp(path, ".write-probe-*")
	if err != nil {
		return false
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return true
}
