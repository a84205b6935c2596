// Command token mints a bearer token for a caller address using the server's
// signing configuration. Intended for local development.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	jwttoken "carbonmint/internal/jwt_token"
	"carbonmint/internal/platform/config"
	"carbonmint/pkg/domain"
)

func main() {
	caller := flag.String("caller", "", "caller address (0x-prefixed, 20 bytes)")
	role := flag.String("role", "", "configured role to mint for: admin, verifier, gateway or factory")
	ttl := flag.Duration("ttl", 0, "token lifetime; defaults to JWT_TOKEN_TTL")
	flag.Parse()

	if err := run(*caller, *role, *ttl); err != nil {
		fmt.Fprintln(os.Stderr, "token:", err)
		os.Exit(1)
	}
}

func run(rawCaller, role string, ttl time.Duration) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	addr, err := resolve(cfg.Identities, rawCaller, role)
	if err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = cfg.Auth.TokenTTL
	}
	token, err := jwttoken.NewJWTService(cfg.Auth.JWTSigningKey, cfg.Auth.JWTIssuer).GenerateAccessToken(addr, ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func resolve(ids config.Identities, rawCaller, role string) (domain.Address, error) {
	switch role {
	case "":
	case "admin":
		return ids.Admin, nil
	case "verifier":
		return ids.Verifier, nil
	case "gateway":
		return ids.Gateway, nil
	case "factory":
		return ids.Factory, nil
	default:
		return domain.Address{}, fmt.Errorf("unknown role %q", role)
	}
	if rawCaller == "" {
		return domain.Address{}, fmt.Errorf("one of -caller or -role is required")
	}
	return domain.ParseAddress(rawCaller)
}
