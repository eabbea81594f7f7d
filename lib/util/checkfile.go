package util

import "os"

// CheckFileExists is true only for a regular file at fpath. A directory or
// anything Stat cannot reach reports false.
func CheckFileExists(fpath string) bool {
	info, err := os.Stat(fpath)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
