package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

type client struct {
	BaseURL   string
	OutFormat string // "json" | "text"
	HTTP      *http.Client
	out       io.Writer
}

func (c *client) post(path string, payload any) (int, []byte, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, err
	}
	u := strings.TrimRight(c.BaseURL, "/") + path
	req, err := http.NewRequest(http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, body, nil
}

func (c *client) print(status int, body []byte) {
	if c.OutFormat == "json" {
		var v any
		if json.Unmarshal(body, &v) == nil {
			p, _ := json.MarshalIndent(v, "", "  ")
			fmt.Fprintln(c.out, string(p))
			return
		}
	}
	if len(body) > 0 {
		fmt.Fprintln(c.out, string(body))
	} else {
		fmt.Fprintf(c.out, "status=%d\n", status)
	}
}

// call hace POST y falla con el código de la API si no es 2xx.
func (c *client) call(path string, payload any) error {
	status, body, err := c.post(path, payload)
	if err != nil {
		return err
	}
	if status/100 != 2 {
		var e struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &e) == nil && e.Code != "" {
			return fmt.Errorf("%s: %s (status=%d)", e.Code, e.Message, status)
		}
		return fmt.Errorf("status=%d body=%s", status, string(body))
	}
	c.print(status, body)
	return nil
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func newRoot(cl *client) *cobra.Command {
	root := &cobra.Command{
		Use:           "mcgate",
		Short:         "CLI para el gateway de admisión (tokens, revocación, claves)",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := url.Parse(cl.BaseURL); err != nil {
				return fmt.Errorf("--url inválida: %w", err)
			}
			cl.out = cmd.OutOrStdout()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&cl.BaseURL, "url", cl.BaseURL, "URL base del servicio (env MCGATE_URL)")
	root.PersistentFlags().StringVar(&cl.OutFormat, "out", cl.OutFormat, "Formato de salida: json|text")

	root.AddCommand(
		tokenCmd(cl),
		refreshCmd(cl),
		revokeCmd(cl),
		verifyCmd(cl),
		hashSecretCmd(),
		keygenCmd(),
	)
	return root
}

func tokenCmd(cl *client) *cobra.Command {
	var id, secret, scope string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Pide un par de tokens con client_credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			if id == "" || secret == "" {
				return fmt.Errorf("--client-id y --client-secret son requeridos")
			}
			return cl.call("/v1/auth/token", map[string]string{
				"grant_type":    "client_credentials",
				"client_id":     id,
				"client_secret": secret,
				"scope":         scope,
			})
		},
	}
	cmd.Flags().StringVar(&id, "client-id", os.Getenv("MCGATE_CLIENT_ID"), "client_id (env MCGATE_CLIENT_ID)")
	cmd.Flags().StringVar(&secret, "client-secret", os.Getenv("MCGATE_CLIENT_SECRET"), "client_secret (env MCGATE_CLIENT_SECRET)")
	cmd.Flags().StringVar(&scope, "scope", "", "scopes pedidos, separados por espacio")
	return cmd
}

func refreshCmd(cl *client) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <refresh_token>",
		Short: "Rota un refresh token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("/v1/auth/refresh", map[string]string{
				"grant_type":    "refresh_token",
				"refresh_token": args[0],
			})
		},
	}
}

func revokeCmd(cl *client) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "revoke <refresh_token>",
		Short: "Revoca la familia del token (o todas las del cliente con --all)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cl.call("/v1/auth/revoke", map[string]any{
				"refresh_token": args[0],
				"revoke_all":    all,
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "revocar todas las familias del cliente")
	return cmd
}

func verifyCmd(cl *client) *cobra.Command {
	var hint string
	cmd := &cobra.Command{
		Use:   "verify <token>",
		Short: "Introspección de un access o refresh token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			payload := map[string]string{"token": args[0]}
			if hint != "" {
				payload["token_type_hint"] = hint
			}
			return cl.call("/v1/auth/verify", payload)
		},
	}
	cmd.Flags().StringVar(&hint, "hint", "", "access_token | refresh_token")
	return cmd
}

func main() {
	cl := &client{
		BaseURL:   envOr("MCGATE_URL", "http://localhost:8080"),
		OutFormat: envOr("MCGATE_OUT", "text"),
		HTTP:      &http.Client{Timeout: 30 * time.Second},
		out:       os.Stdout,
	}
	if err := newRoot(cl).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
