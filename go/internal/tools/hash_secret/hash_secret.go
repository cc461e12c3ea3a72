package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/mcdev12/podium/go/internal/presenter/credentials"
)

// Prints PRESENTER_SALT and PRESENTER_HASH lines for a .env file. The secret
// is read from stdin so it stays out of shell history.
func main() {
	salt := flag.String("salt", "", "salt to use (random when empty)")
	flag.Parse()

	fmt.Fprint(os.Stderr, "presenter secret: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintf(os.Stderr, "read secret: %v\n", err)
		os.Exit(1)
	}
	secret := strings.TrimRight(line, "\r\n")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "secret is empty")
		os.Exit(1)
	}

	if *salt == "" {
		*salt, err = credentials.NewSalt()
		if err != nil {
			fmt.Fprintf(os.Stderr, "generate salt: %v\n", err)
			os.Exit(1)
		}
	}

	fmt.Printf("PRESENTER_SALT=%s\n", *salt)
	fmt.Printf("PRESENTER_HASH=%s\n", credentials.Hash(secret, *salt))
}
