// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package identity protects voter identity while still allowing duplicate
votes to be detected.

# Encryption

Voter IDs are sealed with XChaCha20-Poly1305 under a random nonce:

	c, err := identity.NewCipher(key)
	ct, err := c.EncryptIdentity(userID)

Ciphertext is never used for lookups, so it does not need to be
deterministic. DecryptIdentity exists for audits; the bot never calls it.

# Commitments

	hash := identity.CommitmentHash(pollID, userID)

Hex SHA-256 over "<poll_id>:<voter_id>". The same inputs always produce
the same hash, which is what makes the vote_checks primary key enforce
one vote per voter per poll.

# Key Handling

The key is generated once (GenerateKey), stored base64 encoded
(EncodeKey/DecodeKey) in the encryption_keys table by the store, and
loaded unchanged on every start. Rotation is not supported: anyone with
the key can recover who voted, so anonymity rests on keeping it secret.
*/
package identity
