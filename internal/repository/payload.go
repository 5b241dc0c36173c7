package repository

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"StockML/internal/domain/models"
	domrepo "StockML/internal/domain/repository"
)

// readPayload loads the file behind an asset registration.
func readPayload(a models.Asset) ([]byte, error) {
	if err := a.Validate(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	return data, nil
}

// describe builds the version record for a stored payload.
func describe(a models.Asset, version string, data []byte, uri string, at time.Time) models.AssetVersion {
	sum := sha256.Sum256(data)
	return models.AssetVersion{
		Name:        a.Name,
		Version:     version,
		Type:        a.Type,
		Description: a.Description,
		Tags:        a.Tags,
		URI:         uri,
		FileName:    filepath.Base(a.Path),
		Size:        int64(len(data)),
		SHA256:      hex.EncodeToString(sum[:]),
		CreatedAt:   at.UTC(),
	}
}

func sortVersions(vs []models.AssetVersion) {
	sort.Slice(vs, func(i, j int) bool {
		return models.CompareVersions(vs[i].Version, vs[j].Version) < 0
	})
}

func latestOf(name string, vs []models.AssetVersion) (models.AssetVersion, error) {
	if len(vs) == 0 {
		return models.AssetVersion{}, fmt.Errorf("%s: %w", name, domrepo.ErrAssetNotFound)
	}
	sortVersions(vs)
	return vs[len(vs)-1], nil
}
