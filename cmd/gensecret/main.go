// Command gensecret prints a random password and its digest in the format
// the users table stores. Handy for seeding the first admin account by hand:
//
//	INSERT INTO users (username, email, password_hash, role)
//	VALUES ('admin', 'admin@example.com', '<digest>', 'admin');
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"authgate/internal/service/auth"
)

const passwordBytesLen = 24

func main() {
	b := make([]byte, passwordBytesLen)

	_, err := rand.Read(b)
	if err != nil {
		fmt.Printf("error while generating password: %v", err)
		os.Exit(1)
	}
	password := hex.EncodeToString(b)

	digest, err := auth.BcryptHasher{}.Hash(password)
	if err != nil {
		fmt.Printf("error while hashing password: %v", err)
		os.Exit(1)
	}

	fmt.Println("password:", password)
	fmt.Println("digest:  ", digest)
}
