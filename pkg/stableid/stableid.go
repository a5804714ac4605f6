// Copyright 2026 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

// Package stableid computes the content-free symbol identifier that survives
// re-indexing. Unlike the file and function IDs in the ingestion pipeline
// (which fold in line/column ranges so they change on every edit), a stable
// id is keyed only on the fields that define what a symbol IS, not where it
// currently sits in the file.
package stableid

import (
	"crypto/sha256"
	"encoding/hex"
)

// Of hashes kind, qualname and signature into a stable_id. Two symbols with
// identical (kind, qualname, signature) always hash identically; changing
// any one of the three changes the id. signature may be empty.
func Of(kind, qualname, signature string) string {
	h := sha256.New()
	h.Write([]byte(kind))
	h.Write([]byte{0})
	h.Write([]byte(qualname))
	h.Write([]byte{0})
	h.Write([]byte(signature))
	return hex.EncodeToString(h.Sum(nil))
}
