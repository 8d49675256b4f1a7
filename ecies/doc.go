// Package ecies implements hybrid public-key encryption of short messages for
// a recipient identified only by a secp256k1 public key.
//
// Every encryption produces an Envelope tagged with the suite that built it.
// Decrypt dispatches on that tag, so envelopes from different suites can be
// stored side by side. Two suites are registered:
//
//   - VersionSecp256k1: ephemeral ECDH on secp256k1, HKDF-SHA256 into
//     independent encryption and MAC keys, XChaCha20 for confidentiality and
//     SHA-256(macKey || ephemeralPublicKey || salt || nonce || ciphertext) for
//     integrity. This is the default.
//   - VersionX25519: the EIP-1024 scheme used by MetaMask's eth_decrypt
//     (X25519, XSalsa20 and Poly1305 via NaCl box).
//
// All operations are stateless and safe for concurrent use.
package ecies
