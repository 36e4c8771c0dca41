// Package siwe renders and parses EIP-4361 "Sign-In with Ethereum" messages.
//
// Rendering is canonical: fixed field order, fixed formatting, RFC 3339 UTC
// timestamps. The text returned by Render is exactly what the wallet signs,
// and verification elsewhere always runs over the literal submitted bytes.
// Parse exists for field cross-checks, never for re-serializing what was
// signed.
package siwe

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Version is the EIP-4361 message version this package produces and accepts.
const Version = "1"

const headerSuffix = " wants you to sign in with your Ethereum account:"

// ErrMalformed is returned by Parse for any text that is not a well-formed
// sign-in message.
var ErrMalformed = errors.New("siwe: malformed message")

// Message is a structured sign-in message.
type Message struct {
	Domain         string    // authority requesting the signature
	Address        string    // EIP-55 checksummed account
	Statement      string    // optional human-readable line
	URI            string    // resource the signature applies to
	Version        string    // protocol version, always "1"
	ChainID        uint64    // EIP-155 chain id
	Nonce          string    // single-use challenge value
	IssuedAt       time.Time
	ExpirationTime time.Time // zero means no Expiration Time line
	Resources      []string
}

// Render serializes the message into its canonical text form.
func (m *Message) Render() string {
	var b strings.Builder
	b.WriteString(m.Domain)
	b.WriteString(headerSuffix)
	b.WriteString("\n")
	b.WriteString(m.Address)
	b.WriteString("\n\n")
	if m.Statement != "" {
		b.WriteString(m.Statement)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "URI: %s\n", m.URI)
	fmt.Fprintf(&b, "Version: %s\n", m.Version)
	fmt.Fprintf(&b, "Chain ID: %d\n", m.ChainID)
	fmt.Fprintf(&b, "Nonce: %s\n", m.Nonce)
	fmt.Fprintf(&b, "Issued At: %s", m.IssuedAt.UTC().Format(time.RFC3339))
	if !m.ExpirationTime.IsZero() {
		fmt.Fprintf(&b, "\nExpiration Time: %s", m.ExpirationTime.UTC().Format(time.RFC3339))
	}
	if len(m.Resources) > 0 {
		b.WriteString("\nResources:")
		for _, r := range m.Resources {
			fmt.Fprintf(&b, "\n- %s", r)
		}
	}
	return b.String()
}

// Parse reads a canonical sign-in message back into its structured form.
// It is strict: field order, formatting, and the version constant must match
// what Render produces.
func Parse(text string) (*Message, error) {
	lines := strings.Split(text, "\n")
	if len(lines) < 9 {
		return nil, fmt.Errorf("%w: too short", ErrMalformed)
	}

	m := &Message{}

	domain, ok := strings.CutSuffix(lines[0], headerSuffix)
	if !ok || domain == "" {
		return nil, fmt.Errorf("%w: bad header line", ErrMalformed)
	}
	m.Domain = domain

	if !common.IsHexAddress(lines[1]) {
		return nil, fmt.Errorf("%w: bad address line", ErrMalformed)
	}
	m.Address = lines[1]

	if lines[2] != "" {
		return nil, fmt.Errorf("%w: missing separator after address", ErrMalformed)
	}

	// Optional statement: either a blank line straight into the field block,
	// or one statement line followed by a blank line.
	i := 3
	if lines[i] != "" {
		m.Statement = lines[i]
		i++
	}
	if i >= len(lines) || lines[i] != "" {
		return nil, fmt.Errorf("%w: missing separator before fields", ErrMalformed)
	}
	i++

	var err error
	m.URI, i, err = fieldLine(lines, i, "URI: ")
	if err != nil {
		return nil, err
	}
	m.Version, i, err = fieldLine(lines, i, "Version: ")
	if err != nil {
		return nil, err
	}
	if m.Version != Version {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrMalformed, m.Version)
	}
	chain, i, err := fieldLine(lines, i, "Chain ID: ")
	if err != nil {
		return nil, err
	}
	m.ChainID, err = strconv.ParseUint(chain, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: bad chain id %q", ErrMalformed, chain)
	}
	m.Nonce, i, err = fieldLine(lines, i, "Nonce: ")
	if err != nil {
		return nil, err
	}
	issued, i, err := fieldLine(lines, i, "Issued At: ")
	if err != nil {
		return nil, err
	}
	m.IssuedAt, err = time.Parse(time.RFC3339, issued)
	if err != nil {
		return nil, fmt.Errorf("%w: bad Issued At timestamp", ErrMalformed)
	}

	if i < len(lines) && strings.HasPrefix(lines[i], "Expiration Time: ") {
		v := strings.TrimPrefix(lines[i], "Expiration Time: ")
		m.ExpirationTime, err = time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, fmt.Errorf("%w: bad Expiration Time timestamp", ErrMalformed)
		}
		i++
	}

	if i < len(lines) && lines[i] == "Resources:" {
		i++
		for ; i < len(lines); i++ {
			res, ok := strings.CutPrefix(lines[i], "- ")
			if !ok || res == "" {
				return nil, fmt.Errorf("%w: bad resource line", ErrMalformed)
			}
			m.Resources = append(m.Resources, res)
		}
	}

	if i != len(lines) {
		return nil, fmt.Errorf("%w: trailing content", ErrMalformed)
	}
	return m, nil
}

func fieldLine(lines []string, i int, prefix string) (string, int, error) {
	if i >= len(lines) {
		return "", i, fmt.Errorf("%w: missing %q field", ErrMalformed, strings.TrimSuffix(prefix, ": "))
	}
	v, ok := strings.CutPrefix(lines[i], prefix)
	if !ok || v == "" {
		return "", i, fmt.Errorf("%w: missing %q field", ErrMalformed, strings.TrimSuffix(prefix, ": "))
	}
	return v, i + 1, nil
}
