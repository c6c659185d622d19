// Command issue-token signs an access and refresh token pair with the
// configured JWT secret, for local testing against an authenticated server.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/ericfitz/storefront/internal/config"
	"github.com/ericfitz/storefront/internal/identity"
	"github.com/ericfitz/storefront/internal/models"
)

func main() {
	var (
		configFile = flag.String("config", "", "Path to YAML configuration file")
		subject    = flag.String("subject", "", "User id placed in the sub claim (required)")
		roleName   = flag.String("role", string(models.RoleUser), "Role claim, USER or ADMIN")
	)
	flag.Parse()

	if *subject == "" {
		fmt.Fprintln(os.Stderr, "Error: -subject is required")
		flag.Usage()
		os.Exit(2)
	}

	role, err := models.ParseRole(*roleName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	creds, err := identity.NewService(identity.Config{
		Secret:     cfg.Auth.JWT.Secret,
		Issuer:     cfg.Auth.JWT.Issuer,
		AccessTTL:  cfg.GetAccessTTL(),
		RefreshTTL: cfg.GetRefreshTTL(),
		BcryptCost: cfg.Auth.BcryptCost,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	pair, err := creds.IssueTokens(*subject, role)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error signing tokens: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(pair); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
