// Command janus-keygen generates a signing secret for the session service
// and prints it in the form the server reads from the environment.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"os"

	"github.com/agoradao/janus/config"
)

func main() {
	key := make([]byte, config.MinSecretLen)
	if _, err := rand.Read(key); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating random key: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("JANUS_SECRET=%s\n", base64.StdEncoding.EncodeToString(key))
}
