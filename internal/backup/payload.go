// FinTrack - Financial Tracking Service
// Copyright 2026 MreRes
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/MreRes/blackboxai-1745461143148

package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/goccy/go-json"

	"github.com/MreRes/blackboxai-1745461143148/internal/store"
)

// Payload maps collection name to the documents captured from it.
type Payload map[string][]store.Document

// Collections returns the collection names, sorted.
func (p Payload) Collections() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DocumentCount returns the number of documents across all collections.
func (p Payload) DocumentCount() int64 {
	var n int64
	for _, docs := range p {
		n += int64(len(docs))
	}
	return n
}

// Missing returns the names in required that p does not contain.
func (p Payload) Missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := p[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Encode returns the canonical bytes of p: sorted collection names, sorted
// field names, empty collections as [], field values verbatim. Equal logical
// content always encodes to the same bytes.
func (p Payload) Encode() ([]byte, error) {
	canon := make(Payload, len(p))
	for name, docs := range p {
		if docs == nil {
			docs = []store.Document{}
		}
		canon[name] = docs
	}
	data, err := store.Marshal(canon)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	return data, nil
}

// DecodePayload parses payload bytes and checks collection names.
func DecodePayload(data []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if p == nil {
		return nil, fmt.Errorf("decode payload: not a JSON object")
	}
	for name, docs := range p {
		if err := store.CheckCollection(name); err != nil {
			return nil, err
		}
		if docs == nil {
			p[name] = []store.Document{}
		}
	}
	return p, nil
}

// Checksum returns the lower-case hex SHA-256 of data.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
