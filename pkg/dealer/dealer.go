// Package dealer implements Component G: it drives the CRT splitter
// (pkg/crt), the hybrid encryptor (pkg/hybrid), and the wire codec
// (pkg/wire) to turn one secret image into n encrypted share files plus a
// manifest (§4.G).
//
// The per-recipient directory layout (out/<owner>/secure_share_<i+1>.dat,
// one manifest copy per directory) follows the original dealer's
// src/dealer/locker.py, whose distribution model survives even though its
// DCT steganographic carrier step does not (§1 Non-goals).
package dealer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/luxfi/qsp/pkg/apperr"
	"github.com/luxfi/qsp/pkg/crt"
	"github.com/luxfi/qsp/pkg/hybrid"
	"github.com/luxfi/qsp/pkg/latticekey"
	"github.com/luxfi/qsp/pkg/ring"
	"github.com/luxfi/qsp/pkg/wire"
)

// Recipient names one owner's alias and public key; pk_i encapsulates
// share i (§4.G step 2).
type Recipient struct {
	Alias string
	PK    *latticekey.PublicKey
}

// Result is what LockAndDistribute returns on success: the manifest it
// wrote plus the directory it was rooted at.
type Result struct {
	OutputDir string
	Manifest  *wire.Manifest
}

// LockAndDistribute splits img into len(recipients) CRT shares (threshold
// t), encrypts each to its recipient, writes one .dat file per owner
// directory, and emits a manifest copy into every owner directory (§4.G,
// §6). seed is the public rho embedded in the manifest; every recipient
// key must share it, since the group signature math depends on one fixed A
// (Design Note 9).
func LockAndDistribute(outputDir string, img crt.Image, recipients []Recipient, threshold int, moduli []int64, seed [32]byte) (*Result, error) {
	n := len(recipients)
	if n == 0 {
		return nil, apperr.New("dealer.LockAndDistribute", apperr.Param)
	}
	for _, r := range recipients {
		if r.PK.Rho != seed {
			return nil, apperr.New("dealer.LockAndDistribute", apperr.Param)
		}
	}

	shares, err := crt.Split(img, n, threshold, moduli)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, apperr.Wrap("dealer.LockAndDistribute", apperr.Param, err)
	}

	registry := make([]wire.RegistryEntry, n)
	for i, recipient := range recipients {
		share := shares[i]

		raw, err := wire.EncodeShare(share)
		if err != nil {
			return nil, err
		}
		fingerprint := sha256.Sum256(raw)

		blob, err := hybrid.EncryptTo(recipient.PK, raw)
		if err != nil {
			return nil, err
		}
		blobBytes, err := wire.EncodeBlob(blob)
		if err != nil {
			return nil, err
		}

		ownerDir := filepath.Join(outputDir, recipient.Alias)
		if err := os.MkdirAll(ownerDir, 0o755); err != nil {
			return nil, apperr.Wrap("dealer.LockAndDistribute", apperr.Param, err)
		}
		filePath := fmt.Sprintf("%s/secure_share_%d.dat", recipient.Alias, i+1)
		if err := os.WriteFile(filepath.Join(outputDir, filePath), blobBytes, 0o644); err != nil {
			return nil, apperr.Wrap("dealer.LockAndDistribute", apperr.Param, err)
		}

		registry[i] = wire.RegistryEntry{
			ShareIndex:       i,
			Modulus:          share.Modulus,
			FilePath:         filePath,
			ShareFingerprint: hex.EncodeToString(fingerprint[:]),
			OwnerAlias:       recipient.Alias,
			OwnerPublicT:     vectorToInts(recipient.PK.T),
		}
	}

	manifest := &wire.Manifest{
		Version:     wire.ManifestVersion,
		Threshold:   threshold,
		TotalShares: n,
		PublicSeed:  hex.EncodeToString(seed[:]),
		Registry:    registry,
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}
	manifestBytes, err := wire.MarshalManifest(manifest)
	if err != nil {
		return nil, err
	}

	for _, recipient := range recipients {
		dst := filepath.Join(outputDir, recipient.Alias, "asset_manifest.json")
		if err := os.WriteFile(dst, manifestBytes, 0o644); err != nil {
			return nil, apperr.Wrap("dealer.LockAndDistribute", apperr.Param, err)
		}
	}

	return &Result{OutputDir: outputDir, Manifest: manifest}, nil
}

func vectorToInts(v ring.Vector) [][]int64 {
	out := make([][]int64, len(v))
	for i, p := range v {
		out[i] = p.Encode()
	}
	return out
}
