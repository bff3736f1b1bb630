// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package dbfix repairs SQLite database files whose 16-byte header string
// was clobbered, a failure mode seen after interrupted copies of the
// collector database. The file is backed up before patching and verified
// with an integrity check afterwards.
package dbfix

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	_ "modernc.org/sqlite"
)

// headerMagic is the SQLite file header string, including the trailing NUL.
const headerMagic = "SQLite format 3\x00"

// ErrBadHeader indicates the file does not start with the SQLite magic.
var ErrBadHeader = errors.New("sqlite header magic mismatch")

// ErrTooShort indicates the file is smaller than the SQLite header.
var ErrTooShort = errors.New("file shorter than sqlite header")

// Check reports whether the file carries a valid SQLite header.
func Check(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	magic := make([]byte, len(headerMagic))
	if _, err := io.ReadFull(f, magic); err != nil {
		return fmt.Errorf("%s: %w", path, ErrTooShort)
	}
	if !bytes.Equal(magic, []byte(headerMagic)) {
		return fmt.Errorf("%s: %w", path, ErrBadHeader)
	}
	return nil
}

// Repair rewrites the header magic in place if it is damaged, creating a
// timestamped backup copy first. It returns the backup path, or an empty
// string when the header was already valid and nothing was written.
func Repair(path string) (string, error) {
	err := Check(path)
	if err == nil {
		return "", nil
	}
	if !errors.Is(err, ErrBadHeader) {
		return "", err
	}

	backup := fmt.Sprintf("%s.bak-%s", path, time.Now().Format("20060102_150405"))
	if err := copyFile(path, backup); err != nil {
		return "", fmt.Errorf("failed to back up database: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return backup, fmt.Errorf("failed to open %s for patching: %w", path, err)
	}
	defer f.Close()

	if _, err := f.WriteAt([]byte(headerMagic), 0); err != nil {
		return backup, fmt.Errorf("failed to patch header: %w", err)
	}
	return backup, nil
}

// Verify opens the database and runs PRAGMA integrity_check. A repaired
// header does not guarantee the rest of the file is sound.
func Verify(path string) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check reported: %s", result)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
