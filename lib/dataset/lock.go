// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dataset

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// fileLock is an exclusive advisory lock held on an open file for as
// long as a dataset is open for update.
type fileLock struct {
	file *os.File
}

// lockForUpdate opens path read-write and takes a non-blocking
// exclusive flock on it. Another process holding the lock makes this
// fail immediately rather than wait.
func lockForUpdate(path string) (*fileLock, error) {
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("opening %s for update: %w", path, err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s is already opened for update by another process", path)
		}
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}
	return &fileLock{file: file}, nil
}

// File returns the locked file handle.
func (l *fileLock) File() *os.File { return l.file }

// Unlock releases the lock and closes the file.
func (l *fileLock) Unlock() error {
	unlockErr := unix.Flock(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	if unlockErr != nil {
		return fmt.Errorf("unlocking %s: %w", l.file.Name(), unlockErr)
	}
	return closeErr
}
