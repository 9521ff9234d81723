// Package secure seals cached secret payloads in memory.
//
// It wraps memguard so payloads kept in a Store's cache are encrypted at
// rest (XSalsa20Poly1305) and only decrypted into mlocked, guard-paged
// buffers while being read:
//
//	buf, err := secure.SealString(value)
//	if err != nil {
//	    return err
//	}
//	defer buf.Destroy()
//
//	plain, err := buf.Reveal()
//
// Processes using this package should call memguard.Purge on exit, and
// memguard.CatchInterrupt at startup, to wipe every remaining enclave key.
//
// This does not protect against an attacker with access to the running
// process; it keeps plaintext out of core dumps and swap.
package secure
