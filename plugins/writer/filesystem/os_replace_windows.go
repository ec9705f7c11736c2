//go:build windows

package filesystem

import "golang.org/x/sys/windows"

// osReplace 以 MoveFileEx(REPLACE_EXISTING|WRITE_THROUGH) 做尽力而为的原子替换。
func osReplace(tmpPath, dest string) error {
	from, err := windows.UTF16PtrFromString(tmpPath)
	if err != nil {
		return err
	}
	to, err := windows.UTF16PtrFromString(dest)
	if err != nil {
		return err
	}
	return windows.MoveFileEx(from, to, windows.MOVEFILE_REPLACE_EXISTING|windows.MOVEFILE_WRITE_THROUGH)
}

// syncDir 在 Windows 上为 no-op（目录无法 fsync）。
func syncDir(string) error { return nil }
