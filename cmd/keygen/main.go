// keygen prints a fresh set of auth key material as environment variables.
// The RSA pair signs access and delegated tokens; the two secrets sign
// refresh and database access tokens.
package main

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"

	"github.com/aussiebroadwan/tally/pkg/cryptox"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	var bits int
	var export bool

	flagSet := pflag.NewFlagSet("keygen", pflag.ContinueOnError)
	flagSet.IntVar(&bits, "bits", 2048, "RSA key size in bits")
	flagSet.BoolVar(&export, "export", false, "prefix each line with \"export\" for shell sourcing")

	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	pair, err := cryptox.GenerateRSAKeyPair(bits)
	if err != nil {
		return err
	}
	refresh, err := cryptox.GenerateSecret(cryptox.SecretSize)
	if err != nil {
		return err
	}
	dbAccess, err := cryptox.GenerateSecret(cryptox.SecretSize)
	if err != nil {
		return err
	}

	prefix := ""
	if export {
		prefix = "export "
	}

	vars := []struct{ name, value string }{
		{"AUTH_PRIVATE_KEY", base64.StdEncoding.EncodeToString(pair.Private)},
		{"AUTH_PUBLIC_KEY", base64.StdEncoding.EncodeToString(pair.Public)},
		{"AUTH_REFRESH_SECRET", refresh},
		{"AUTH_DB_ACCESS_SECRET", dbAccess},
	}
	for _, v := range vars {
		if _, err := fmt.Fprintf(out, "%s%s=%s\n", prefix, v.name, v.value); err != nil {
			return err
		}
	}
	return nil
}
