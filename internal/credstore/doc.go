// Package credstore provides persistent storage for the Sketchfab OAuth2
// credential set.
//
// Supports two storage backends with different security and deployment tradeoffs:
//   - File: Local filesystem storage with atomic writes and secure permissions
//   - Keyring: OS-native credential storage (macOS Keychain, Windows Credential Manager, etc.)
//
// The credential set is always written as a whole. A load that finds no prior
// state (missing file, keyring miss, unparsable content) reports "no
// credentials" rather than an error, so a fresh install and a corrupted store
// both start from the configured seed values.
package credstore
