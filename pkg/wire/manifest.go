package wire

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/luxfi/qsp/internal/ringparams"
	"github.com/luxfi/qsp/pkg/apperr"
)

// ManifestVersion is the manifest format tag written by this implementation.
const ManifestVersion = "QSP-4.0"

// Manifest is the per-lock JSON catalog produced by the Dealer and consumed
// by the Recovery Host (§6).
type Manifest struct {
	Version     string          `json:"version"`
	Threshold   int             `json:"threshold"`
	TotalShares int             `json:"total_shares"`
	PublicSeed  string          `json:"public_seed"` // hex32
	Registry    []RegistryEntry `json:"registry"`
}

// RegistryEntry binds one share index to its modulus, storage path,
// integrity fingerprint, and recipient identity.
type RegistryEntry struct {
	ShareIndex       int       `json:"share_index"`
	Modulus          int64     `json:"modulus"`
	FilePath         string    `json:"file_path"`
	ShareFingerprint string    `json:"share_fingerprint"` // hex64 (SHA-256)
	OwnerAlias       string    `json:"owner_alias"`
	OwnerPublicT     [][]int64 `json:"owner_public_t"`
}

// Validate checks structural well-formedness: threshold <= total shares
// (I6), one registry entry per share, a 32-byte hex public seed, and for
// every entry a unique share index, a modulus of at least QPixel, and a
// 64-character fingerprint.
func (m *Manifest) Validate() error {
	if m.Threshold < 1 || m.Threshold > m.TotalShares {
		return apperr.New("wire.Manifest.Validate", apperr.Param)
	}
	if len(m.Registry) != m.TotalShares {
		return apperr.New("wire.Manifest.Validate", apperr.Param)
	}
	seedBytes, err := hex.DecodeString(m.PublicSeed)
	if err != nil || len(seedBytes) != ringparams.SeedSize {
		return apperr.New("wire.Manifest.Validate", apperr.Param)
	}
	seen := make(map[int]bool, len(m.Registry))
	for _, entry := range m.Registry {
		if seen[entry.ShareIndex] {
			return apperr.New("wire.Manifest.Validate", apperr.Param)
		}
		seen[entry.ShareIndex] = true
		if entry.Modulus < ringparams.QPixel {
			return apperr.New("wire.Manifest.Validate", apperr.Param)
		}
		if len(entry.ShareFingerprint) != 64 {
			return apperr.New("wire.Manifest.Validate", apperr.Param)
		}
	}
	return nil
}

// Seed decodes PublicSeed back into a fixed-size array.
func (m *Manifest) Seed() ([ringparams.SeedSize]byte, error) {
	var out [ringparams.SeedSize]byte
	b, err := hex.DecodeString(m.PublicSeed)
	if err != nil || len(b) != ringparams.SeedSize {
		return out, fmt.Errorf("wire: invalid public_seed")
	}
	copy(out[:], b)
	return out, nil
}

// MarshalManifest renders m as indented JSON, the stable on-disk form.
func MarshalManifest(m *Manifest) ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// UnmarshalManifest parses a manifest file and validates it.
func UnmarshalManifest(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, apperr.Wrap("wire.UnmarshalManifest", apperr.Param, err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}
