// Command stafftoken mints a signed bearer token for the admin API.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"repairshop/internal/config"
	"repairshop/internal/middleware"
)

func main() {
	subject := flag.String("subject", "", "staff member identifier (required)")
	role := flag.String("role", middleware.RoleStaff, "token role: staff or admin")
	ttl := flag.Duration("ttl", 12*time.Hour, "token lifetime")
	flag.Parse()

	if err := run(*subject, *role, *ttl); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(subject, role string, ttl time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	token, err := middleware.MintStaffToken(cfg.Auth.StaffSecret, cfg.Auth.StaffIssuer, subject, role, ttl, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mint token: %w", err)
	}

	fmt.Println(token)
	return nil
}
