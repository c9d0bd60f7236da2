// Command gensecret prints a random URL-safe 256-bit value suitable for
// JWT_SECRET. Run it once, put the output in the server environment, keep
// it out of version control.
package main

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log"
)

func main() {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("generate secret: %v", err)
	}
	fmt.Println(base64.RawURLEncoding.EncodeToString(buf))
}
