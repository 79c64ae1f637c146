package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainInputs = "servactory/inputs/v1"
	DomainInfo   = "servactory/info/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte (0x00) separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// InputsHash computes the identity of one invocation's effective inputs.
// Two invocations of the same service with canonically equal inputs hash
// equal regardless of map order or numeric kind spelling.
func InputsHash(service string, inputs map[string]any) (string, error) {
	obj := map[string]any{
		"service": service,
		"inputs":  inputs,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("InputsHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainInputs, canonical), nil
}

// InfoHash fingerprints a service description.
func InfoHash(info Info) (string, error) {
	data, err := json.Marshal(info)
	if err != nil {
		return "", fmt.Errorf("InfoHash: failed to marshal: %w", err)
	}
	tree, err := DecodeJSON(data)
	if err != nil {
		return "", fmt.Errorf("InfoHash: failed to decode: %w", err)
	}
	canonical, err := MarshalCanonical(tree)
	if err != nil {
		return "", fmt.Errorf("InfoHash: failed to canonicalize: %w", err)
	}

	return hashWithDomain(DomainInfo, canonical), nil
}

// MustInputsHash is like InputsHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustInputsHash(service string, inputs map[string]any) string {
	h, err := InputsHash(service, inputs)
	if err != nil {
		panic(err)
	}
	return h
}

// Fingerprint returns the canonical hash of the description.
func (i Info) Fingerprint() (string, error) {
	return InfoHash(i)
}
