// Package main (cmd/admin) is the operator CLI for UniVio account and
// verification state.
//
// It reads the same environment as the API server (including a .env file)
// and talks to the configured backends directly.
//
// Commands:
//
//	repair     - Re-run the idempotent provisioning steps for an existing account
//	             and confirm its email (--confirm-email=false to skip)
//	cleanup    - Sweep expired verification codes and stale issuance history once
//	purge      - Drop all verification state for one address
//	mail-show  - Print one archived outbound mail from MAIL_ARCHIVE_BUCKET
//	migrate    - Apply pending catalog migrations to DATABASE_URL
//
// Example:
//
//	admin repair --email=ana@state.edu
//	admin purge --email=ana@state.edu
//	admin mail-show --key=mail/2026/03/02/welcome/01HQ3V5W8X9Y0Z1A2B3C4D5E6F.json
package main
