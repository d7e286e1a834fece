// Package email normalizes addresses and applies the per-role format rules.
package email

import (
	"fmt"
	"strings"

	"github.com/univio-api/internal/domain"
)

// Normalize trims and lower-cases an address. Every store key derives from it.
func Normalize(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// Domain returns the part after the last '@', or "" when there is none.
func Domain(addr string) string {
	at := strings.LastIndexByte(addr, '@')
	if at < 0 || at == len(addr)-1 {
		return ""
	}
	return Normalize(addr[at+1:])
}

// IsEducational reports whether the address belongs to an academic domain:
// *.edu, *.edu.<cc>, *.ac.<cc> or *.k12.<state>.us style hosts.
func IsEducational(addr string) bool {
	d := Domain(addr)
	if d == "" {
		return false
	}
	labels := strings.Split(d, ".")
	if len(labels) < 2 {
		return false
	}
	if labels[len(labels)-1] == "edu" {
		return true
	}
	// Only look at suffix labels so hosts like "edu.example.com" don't qualify.
	for _, l := range labels[1 : len(labels)-1] {
		switch l {
		case "edu", "ac", "k12":
			return true
		}
	}
	return false
}

// CheckRole enforces that institutional addresses are academic and personal
// addresses are not.
func CheckRole(addr string, role domain.Role) error {
	switch role {
	case domain.RoleInstitutional:
		if !IsEducational(addr) {
			return fmt.Errorf("institutional email must use an educational domain: %w", domain.ErrBadRequest)
		}
	case domain.RolePersonal:
		if IsEducational(addr) {
			return fmt.Errorf("personal email must not use an educational domain: %w", domain.ErrBadRequest)
		}
	default:
		return fmt.Errorf("unknown role %q: %w", role, domain.ErrBadRequest)
	}
	return nil
}
