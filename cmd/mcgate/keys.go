package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	jwtx "github.com/dropDatabas3/mcgate/internal/jwt"
	"github.com/dropDatabas3/mcgate/internal/registry"
	"github.com/dropDatabas3/mcgate/internal/security/secret"
)

// readPassword se reemplaza en tests.
var readPassword = term.ReadPassword

var isTerminal = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

// readSecret lee sin eco si stdin es una terminal; si no, la primera línea.
func readSecret(in io.Reader, w io.Writer) (string, error) {
	if !isTerminal() {
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	fmt.Fprint(w, "Client secret: ")
	b, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func hashSecretCmd() *cobra.Command {
	var alg string
	cmd := &cobra.Command{
		Use:   "hash-secret",
		Short: "Genera el secret_hash de un cliente para el registry YAML",
		Long:  "Lee el secreto de la terminal (sin eco) o de stdin y lo imprime hasheado.",
		RunE: func(cmd *cobra.Command, args []string) error {
			plain, err := readSecret(cmd.InOrStdin(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			if plain == "" {
				return fmt.Errorf("secreto vacío")
			}
			h, err := registry.HashSecret(plain, secret.Algorithm(alg))
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), h)
			return nil
		},
	}
	cmd.Flags().StringVar(&alg, "alg", string(secret.Bcrypt), "sha256 | bcrypt | argon2id")
	return cmd
}

func keygenCmd() *cobra.Command {
	var kid string
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Genera una clave Ed25519 para jwt.signing_key",
		RunE: func(cmd *cobra.Command, args []string) error {
			ks, seed, err := jwtx.GenerateEd25519(kid)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "MCGATE_JWT_ALG=%s\n", ks.Alg)
			fmt.Fprintf(out, "MCGATE_JWT_KID=%s\n", ks.KID)
			fmt.Fprintf(out, "MCGATE_JWT_SIGNING_KEY=%s\n", seed)
			return nil
		},
	}
	cmd.Flags().StringVar(&kid, "kid", "", "key id (default mcgate-1)")
	return cmd
}
