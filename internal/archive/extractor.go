// Package archive unpacks release archives, including password-protected zip and 7z files.
package archive

import (
	"archive/tar"    // For reading .tar archives
	"compress/bzip2" // For reading .bz2 compressed data
	"compress/gzip"  // For reading .gz compressed data
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/bodgit/sevenzip" // For reading .7z archives, optionally encrypted
	"github.com/xi2/xz"          // For reading .xz compressed data
	"github.com/yeka/zip"        // archive/zip fork with ZipCrypto and AES support

	"acfgen/internal/logger"
)

var (
	// ErrPassword marks a failure caused by a missing or wrong password.
	ErrPassword = errors.New("archive password rejected")
	// ErrUnsupportedFormat is returned for unknown archive suffixes.
	ErrUnsupportedFormat = errors.New("unsupported archive format")
	// ErrUnsafePath is returned for entries that would land outside the destination.
	ErrUnsafePath = errors.New("archive entry escapes destination")
)

// Result describes a successful extraction.
type Result struct {
	// UsedPassword is true when at least one entry was decrypted with the password.
	UsedPassword bool
	// Files is the number of regular files written.
	Files int
}

// Extract unpacks src into destDir. When a password is supplied and the archive
// rejects it, extraction is retried once without a password.
func Extract(src, destDir, password string) (Result, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return Result{}, fmt.Errorf("failed to create %s: %w", destDir, err)
	}

	logger.Info("[INFO] Extracting %s to %s\n", src, destDir)
	res, err := extractArchive(src, destDir, password)
	if err != nil && password != "" && IsPasswordError(err) {
		logger.Warn("[WARN] Password rejected (%v), retrying without password\n", err)
		res, err = extractArchive(src, destDir, "")
	}
	if err != nil {
		return Result{}, err
	}

	logger.Debug("[DEBUG] Extracted %d file(s), password used: %v\n", res.Files, res.UsedPassword)
	return res, nil
}

// IsPasswordError reports whether err stems from archive encryption.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrPassword) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, k := range []string{"password", "decrypt", "encrypt", "authentication failed"} {
		if strings.Contains(msg, k) {
			return true
		}
	}
	return false
}

// extractArchive routes to the appropriate extraction function based on archive type.
func extractArchive(src, dest, password string) (Result, error) {
	name := strings.ToLower(src)
	switch {
	case strings.HasSuffix(name, ".zip"):
		logger.Debug("[DEBUG] compression type is zip\n")
		return extractZip(src, dest, password)
	case strings.HasSuffix(name, ".7z"):
		logger.Debug("[DEBUG] compression type is 7z\n")
		return extract7z(src, dest, password)
	case strings.HasSuffix(name, ".tar"), strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"),
		strings.HasSuffix(name, ".tar.bz2"), strings.HasSuffix(name, ".tar.xz"):
		logger.Debug("[DEBUG] compression type is tar\n")
		return extractTarArchive(src, dest)
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, src)
	}
}

// safeJoin resolves an entry name below dest, rejecting absolute paths and "..".
func safeJoin(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	rel, err := filepath.Rel(dest, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) || filepath.IsAbs(name) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return target, nil
}

// writeEntry copies r into target, creating parent directories.
func writeEntry(target string, r io.Reader, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	if mode.Perm() == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// extractTarArchive handles tar and compressed tar variants.
func extractTarArchive(src, dest string) (Result, error) {
	f, err := os.Open(src)
	if err != nil {
		return Result{}, err
	}
	defer f.Close()

	name := strings.ToLower(src)
	var reader io.Reader = f
	switch {
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		gr, err := gzip.NewReader(f)
		if err != nil {
			return Result{}, err
		}
		defer gr.Close()
		reader = gr
	case strings.HasSuffix(name, ".tar.bz2"):
		reader = bzip2.NewReader(f)
	case strings.HasSuffix(name, ".tar.xz"):
		xzr, err := xz.NewReader(f, 0)
		if err != nil {
			return Result{}, err
		}
		reader = xzr
	}

	var res Result
	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Result{}, err
		}

		target, err := safeJoin(dest, hdr.Name)
		if err != nil {
			return Result{}, err
		}
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return Result{}, err
			}
		case tar.TypeReg:
			if err := writeEntry(target, tr, os.FileMode(hdr.Mode)); err != nil {
				return Result{}, err
			}
			res.Files++
		}
	}
	return res, nil
}

// extractZip extracts a .zip archive, decrypting entries with password when set.
func extractZip(src, dest, password string) (Result, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return Result{}, err
	}
	defer r.Close()

	var res Result
	for _, f := range r.File {
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return Result{}, err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return Result{}, err
			}
			continue
		}

		encrypted := f.IsEncrypted()
		if encrypted {
			if password == "" {
				return Result{}, fmt.Errorf("%w: %s is encrypted and no password was given", ErrPassword, f.Name)
			}
			f.SetPassword(password)
		}

		if err := extractZipEntry(f, target); err != nil {
			if encrypted {
				return Result{}, fmt.Errorf("%w: %s: %v", ErrPassword, f.Name, err)
			}
			return Result{}, err
		}
		res.Files++
		res.UsedPassword = res.UsedPassword || encrypted
	}
	return res, nil
}

func extractZipEntry(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	return writeEntry(target, rc, f.Mode())
}

// errChecksum marks a 7z entry whose data does not match its recorded CRC. With
// AES coders a missing or wrong key shows up this way rather than as a read error.
var errChecksum = errors.New("checksum mismatch")

// needsKey reports whether a 7z failure looks like encrypted content read with
// the wrong key.
func needsKey(err error) bool {
	var re *sevenzip.ReadError
	return errors.As(err, &re) && re.Encrypted || errors.Is(err, errChecksum)
}

// extract7z tries the archive without a password first, so UsedPassword is only
// set when decryption was actually required.
func extract7z(src, dest, password string) (Result, error) {
	res, err := extract7zWith(src, dest, "")
	if err == nil {
		return res, nil
	}
	if !needsKey(err) {
		return Result{}, err
	}
	if password == "" {
		return Result{}, fmt.Errorf("%w: archive is encrypted and no password was given: %v", ErrPassword, err)
	}

	logger.Debug("[DEBUG] 7z archive needs a password: %v\n", err)
	res, err = extract7zWith(src, dest, password)
	if err != nil {
		if needsKey(err) {
			return Result{}, fmt.Errorf("%w: %v", ErrPassword, err)
		}
		return Result{}, err
	}
	res.UsedPassword = true
	return res, nil
}

func extract7zWith(src, dest, password string) (Result, error) {
	var (
		r   *sevenzip.ReadCloser
		err error
	)
	if password != "" {
		r, err = sevenzip.OpenReaderWithPassword(src, password)
	} else {
		r, err = sevenzip.OpenReader(src)
	}
	if err != nil {
		return Result{}, fmt.Errorf("failed to open 7z archive: %w", err)
	}
	defer r.Close()

	var res Result
	for _, f := range r.File {
		target, err := safeJoin(dest, f.Name)
		if err != nil {
			return Result{}, err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return Result{}, err
			}
			continue
		}
		if err := extract7zEntry(f, target); err != nil {
			return Result{}, fmt.Errorf("%s: %w", f.Name, err)
		}
		res.Files++
	}
	return res, nil
}

// extract7zEntry writes one file and checks it against the recorded CRC, which
// the sevenzip reader does not verify on its own.
func extract7zEntry(f *sevenzip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	h := crc32.NewIEEE()
	if err := writeEntry(target, io.TeeReader(rc, h), f.Mode()); err != nil {
		return err
	}
	if f.CRC32 != 0 && h.Sum32() != f.CRC32 {
		return fmt.Errorf("%w: got %08x, want %08x", errChecksum, h.Sum32(), f.CRC32)
	}
	return nil
}
