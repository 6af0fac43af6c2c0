// Package decode turns raw event-log topics and signature strings into
// agent.HandlerValue fields, following the narrow, ABI-free decoding rules
// the discovery handlers rely on (see SPEC_FULL.md §4.2).
package decode

import (
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/common"
)

// CanonicalSignature strips parameter names from an event signature,
// leaving only the comma-separated type list Solidity hashes for topic0.
// "Transfer(address from, address to, uint256 value)" becomes
// "Transfer(address,address,uint256)"; an already-canonical or malformed
// signature is returned unchanged.
func CanonicalSignature(sig string) string {
	start := strings.IndexByte(sig, '(')
	end := strings.LastIndexByte(sig, ')')
	if start < 0 || end < 0 || end < start {
		return sig
	}

	name := sig[:start]
	params := strings.TrimSpace(sig[start+1 : end])
	if params == "" {
		return sig
	}

	parts := strings.Split(params, ",")
	types := make([]string, 0, len(parts))
	for _, p := range parts {
		fields := strings.Fields(strings.TrimSpace(p))
		if len(fields) == 0 {
			continue
		}
		types = append(types, fields[0])
	}
	return name + "(" + strings.Join(types, ",") + ")"
}

// Topic0 computes the keccak256 event-signature hash used as a log's first
// topic, after canonicalizing away any parameter names.
func Topic0(sig string) common.Hash {
	return crypto.Keccak256Hash([]byte(CanonicalSignature(sig)))
}

// FieldNames parses the parameter list of an event signature into one name
// per parameter, in declaration order. A parameter given only as a type
// ("uint256") yields an empty string, signalling the caller should fall
// back to an "indexed_N"-style placeholder.
func FieldNames(sig string) []string {
	start := strings.IndexByte(sig, '(')
	end := strings.LastIndexByte(sig, ')')
	if start < 0 || end < 0 || end < start {
		return nil
	}

	params := strings.TrimSpace(sig[start+1 : end])
	if params == "" {
		return nil
	}

	parts := strings.Split(params, ",")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		fields := strings.Fields(strings.TrimSpace(p))
		if len(fields) >= 2 {
			// "type [indexed] name" — the name is always the last token,
			// regardless of whether "indexed" is present.
			names = append(names, fields[len(fields)-1])
		} else {
			names = append(names, "")
		}
	}
	return names
}
