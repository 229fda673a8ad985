package cmd

import (
	"errors"
	"fmt"

	"github.com/anicoll/winix-integration/pkg/hasher"
	"github.com/urfave/cli/v2"
)

const generatedKeyLength = 32

// HashKeyCommand prints the bcrypt hash of the key given as its argument,
// suitable for --api-key-hash.
func HashKeyCommand(ctx *cli.Context) error {
	key := ctx.Args().First()
	if key == "" {
		return errors.New("a key argument is required")
	}
	hash, err := hasher.HashKey([]byte(key))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(ctx.App.Writer, hash)
	return err
}

// GenerateKeyCommand prints a fresh random API key and its hash.
func GenerateKeyCommand(ctx *cli.Context) error {
	key, err := hasher.GenerateKey(generatedKeyLength)
	if err != nil {
		return err
	}
	hash, err := hasher.HashKey([]byte(key))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(ctx.App.Writer, "key:  %s\nhash: %s\n", key, hash)
	return err
}
