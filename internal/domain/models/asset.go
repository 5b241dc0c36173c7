package models

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// AssetType tags what kind of payload an asset holds.
type AssetType string

const (
	AssetTypeURIFile     AssetType = "uri_file"
	AssetTypeCustomModel AssetType = "custom_model"
)

var assetNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// ValidName reports whether s is usable as an asset name or version.
func ValidName(s string) bool { return assetNameRe.MatchString(s) }

// Asset is a registration request for the artifact store.
type Asset struct {
	Name        string
	Type        AssetType
	Description string
	Tags        map[string]string
	Version     string // empty: the store assigns the next integer version
	Path        string // local file holding the payload
}

// Validate checks the fields every store relies on.
func (a Asset) Validate() error {
	if !assetNameRe.MatchString(a.Name) {
		return fmt.Errorf("invalid asset name %q", a.Name)
	}
	if a.Version != "" && !assetNameRe.MatchString(a.Version) {
		return fmt.Errorf("invalid asset version %q", a.Version)
	}
	switch a.Type {
	case AssetTypeURIFile, AssetTypeCustomModel:
	default:
		return fmt.Errorf("invalid asset type %q", a.Type)
	}
	if a.Path == "" {
		return fmt.Errorf("asset path is required")
	}
	return nil
}

// AssetVersion is a registered, immutable asset version.
type AssetVersion struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Type        AssetType         `json:"type"`
	Description string            `json:"description,omitempty"`
	Tags        map[string]string `json:"tags,omitempty"`
	URI         string            `json:"uri"`
	FileName    string            `json:"file_name"`
	Size        int64             `json:"size"`
	SHA256      string            `json:"sha256"`
	CreatedAt   time.Time         `json:"created_at"`
}

// AssetRegistered is published after a successful registration.
type AssetRegistered struct {
	Asset      AssetVersion `json:"asset"`
	OccurredAt time.Time    `json:"occurred_at"`
}

// CompareVersions orders integer versions numerically and falls back to
// lexical order otherwise. Returns -1, 0 or 1.
func CompareVersions(a, b string) int {
	ai, aerr := strconv.ParseUint(a, 10, 64)
	bi, berr := strconv.ParseUint(b, 10, 64)
	switch {
	case aerr == nil && berr == nil:
		switch {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	case aerr == nil:
		return -1
	case berr == nil:
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// NextVersion returns the integer version after the highest integer version
// in existing, starting at "1".
func NextVersion(existing []string) string {
	var max uint64
	for _, v := range existing {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil && n > max {
			max = n
		}
	}
	return strconv.FormatUint(max+1, 10)
}
