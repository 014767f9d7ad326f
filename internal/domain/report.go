// Package domain provides domain models used across the application.
package domain

import (
	"crypto/md5" //nolint:gosec // pid suffix derivation, not a security boundary
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
)

// Report represents one fact-check report harvested from the listing.
type Report struct {
	// Pid is the unique identifier used as the store key
	Pid string `json:"pid"`
	// Title of the report; also the human dedup key
	Title string `json:"title"`
	// Link to the report detail page
	Link string `json:"link,omitempty"`
	// Date the report was published, YYYY-M-D as found in the listing
	Date string `json:"date,omitempty"`
	// Label is the verdict classification (e.g. 錯誤, 部分錯誤)
	Label string `json:"label,omitempty"`
	// Category is the report type
	Category string `json:"category,omitempty"`
	// Summary is the short listing summary, refined from the detail page
	Summary string `json:"summary,omitempty"`
	// FullContent is the detail page body, starting at the 背景 heading
	FullContent string `json:"full_content,omitempty"`
	// Embeddings is the semantic vector for FullContent; empty when
	// there was no content to embed
	Embeddings []float32 `json:"embeddings,omitempty"`
}

// Validate reports whether the record may be submitted to the store.
func (r *Report) Validate() error {
	if strings.TrimSpace(r.Pid) == "" {
		return fmt.Errorf("report is missing a pid")
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("report is missing a title")
	}
	return nil
}

// DatePrefix returns the report date with separators removed and
// month/day zero-padded, e.g. "2024-3-7" -> "20240307".
func (r *Report) DatePrefix() string {
	parts := strings.Split(r.Date, "-")
	if len(parts) != 3 {
		return strings.ReplaceAll(r.Date, "-", "")
	}
	month := parts[1]
	if len(month) == 1 {
		month = "0" + month
	}
	day := parts[2]
	if len(day) == 1 {
		day = "0" + day
	}
	return parts[0] + month + day
}

// FallbackSerial derives a deterministic 3-digit serial from the
// report title: the last 4 hex digits of its MD5, mod 1000,
// zero-padded. The same title always yields the same serial.
func (r *Report) FallbackSerial() string {
	sum := md5.Sum([]byte(r.Title)) //nolint:gosec
	hexDigest := hex.EncodeToString(sum[:])
	n, err := strconv.ParseUint(hexDigest[len(hexDigest)-4:], 16, 32)
	if err != nil {
		// Unreachable for a hex digest; keep the record usable anyway.
		return "000"
	}
	return fmt.Sprintf("%03d", n%1000)
}

// AssignFallbackPid sets the deterministic fallback pid when none was
// assigned during extraction.
func (r *Report) AssignFallbackPid() {
	if r.Pid != "" {
		return
	}
	r.Pid = r.DatePrefix() + r.FallbackSerial()
}
