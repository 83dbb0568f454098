package verify

import (
	"crypto/ed25519"
	"encoding/hex"
)

// Trust material is compiled into the client and never fetched remotely.
// Two keys are embedded so a publisher key rotation can roll out without a
// flag day: documents signed by either key verify until the old key is
// retired in a later release.
const (
	// publisherKey2026 is the active publisher signing key.
	publisherKey2026 = "2f8b0d60f4a1b7a1c3db59f2e6a3b4bb3d1c0afc94277e1c61b08a5328c6d174"

	// publisherKey2024 is the previous publisher key, still trusted during
	// the rotation window.
	publisherKey2024 = "8e4fa0c15d0b3b7c6a92de81f7341d0cc5a6be23391d07c4e88f16ab42d90e5b"
)

// DefaultPublicKeys returns the embedded trust anchors.
func DefaultPublicKeys() []ed25519.PublicKey {
	return []ed25519.PublicKey{
		mustDecodeKey(publisherKey2026),
		mustDecodeKey(publisherKey2024),
	}
}

// mustDecodeKey decodes a compiled-in hex key. The constants are part of
// the build; a decode failure can only come from a bad edit.
func mustDecodeKey(hexKey string) ed25519.PublicKey {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		panic("verify: invalid embedded public key: " + err.Error())
	}
	if len(raw) != ed25519.PublicKeySize {
		panic("verify: embedded public key has wrong size")
	}
	return ed25519.PublicKey(raw)
}
