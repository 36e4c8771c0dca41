package ports

// SignatureVerifier checks that a signature was produced by the claimed
// address over the exact message bytes. Malformed input verifies as false,
// never as an error.
type SignatureVerifier interface {
	Verify(message []byte, signature string, address string) bool
}
