// Package cipher implements the wire payload cipher: AES-128-CTR with a
// password-derived key and a frame-id-derived IV. Encryption is optional —
// an empty password disables it entirely — and is applied to the full
// codec payload before fragmentation, and to the reassembled payload
// before decode.
package cipher

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha1"
	"encoding/binary"
)

// KeySize is the AES-128 key length in bytes.
const KeySize = 16

// DeriveKey computes the master key from a password: SHA-1(password),
// truncated to the first 16 bytes. There is no salt — identical passwords
// always yield identical keys. This is a convenience key, not an
// authenticated-protocol key; Non-goals explicitly exclude authenticated
// encryption.
func DeriveKey(password string) [KeySize]byte {
	sum := sha1.Sum([]byte(password))
	var key [KeySize]byte
	copy(key[:], sum[:KeySize])
	return key
}

// Context holds AES-128 round keys built once from a master key. It is
// immutable after construction and safe to share by value across workers.
type Context struct {
	block cipher.Block
}

// New builds a Context from a raw 16-byte key.
func New(key [KeySize]byte) (Context, error) {
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return Context{}, err
	}
	return Context{block: block}, nil
}

// NewFromPassword derives the key from password and builds a Context.
// An empty password still yields a valid (but never-used) Context —
// callers gate encryption on password != "" themselves.
func NewFromPassword(password string) (Context, error) {
	return New(DeriveKey(password))
}

// IV builds the 16-byte CTR counter for a logical frame: the first 4 bytes
// are frame_id in network (big-endian) byte order, the remaining 12 bytes
// are zero. Note the divergence from the wire header, whose fields are
// little-endian — the frame_id travels in the clear header so both sides
// can derive this identical IV without it being part of the ciphertext.
func IV(frameID uint32) [16]byte {
	var iv [16]byte
	binary.BigEndian.PutUint32(iv[:4], frameID)
	return iv
}

// Xcrypt encrypts or decrypts data in place using AES-128-CTR for the given
// frame id. CTR is symmetric, so the same operation serves both directions.
func (c Context) Xcrypt(frameID uint32, data []byte) {
	iv := IV(frameID)
	stream := cipher.NewCTR(c.block, iv[:])
	stream.XORKeyStream(data, data)
}
