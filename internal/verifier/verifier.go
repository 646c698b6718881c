// Package verifier confirms by directory scan which app ids produced a manifest.
package verifier

import (
	"fmt"
	"strings"

	"acfgen/internal/appid"
	"acfgen/internal/fsutil"
	"acfgen/internal/logger"
)

// Record is a manifest found for one requested id.
type Record struct {
	ID   string
	Path string
}

// Report summarizes one verification pass.
type Report struct {
	Requested []string
	Found     []Record
	Missing   []string
}

// Complete reports whether every requested id produced a file.
func (r Report) Complete() bool { return len(r.Missing) == 0 }

// Summary renders the "N of M found" line.
func (r Report) Summary() string {
	return fmt.Sprintf("%d of %d ACF files found", len(r.Found), len(r.Requested))
}

// FileNames lists the output names the generator may use for id.
func FileNames(id string) []string {
	return []string{"appmanifest_" + id + ".acf", id + ".acf"}
}

// Verify scans the whole tree under workingDir for each id. The generator run
// through a compatibility layer can write into nested directories, so the scan is
// always recursive. Ids with no file are listed in Missing, never in Found. An id
// that is not a run of ASCII digits is never looked up and counts as missing.
func Verify(workingDir string, ids []string) Report {
	rep := Report{Requested: ids}
	for _, id := range ids {
		if !appid.Valid(id) {
			logger.Warn("[WARN] Skipping malformed App ID %q\n", id)
			rep.Missing = append(rep.Missing, id)
			continue
		}
		p, found, err := fsutil.FindFirst(workingDir, FileNames(id)...)
		if err != nil {
			logger.Warn("[WARN] Could not scan %s for %s: %v\n", workingDir, id, err)
		}
		if found {
			rep.Found = append(rep.Found, Record{ID: id, Path: p})
		} else {
			rep.Missing = append(rep.Missing, id)
		}
	}
	return rep
}

// Log prints the report with one line per id.
func (r Report) Log() {
	for _, rec := range r.Found {
		logger.Success("[SUCCESS] %s -> %s\n", rec.ID, rec.Path)
	}
	if len(r.Missing) > 0 {
		logger.Warn("[WARN] No ACF file for: %s\n", strings.Join(r.Missing, ", "))
	}
	if r.Complete() {
		logger.Success("[SUCCESS] %s\n", r.Summary())
	} else {
		logger.Warn("[WARN] %s\n", r.Summary())
	}
}
