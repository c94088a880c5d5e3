// Command hash-generator produces bcrypt hashes for seeding user rows
// in development databases.
package main

import (
	"flag"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	cost := flag.Int("cost", bcrypt.DefaultCost, "bcrypt cost factor")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: hash-generator [-cost N] <password> [password...]")
		os.Exit(2)
	}

	for _, password := range flag.Args() {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), *cost)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to hash password: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(hash))
	}
}
