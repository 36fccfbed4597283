package validate

import (
	"fmt"
	"strings"
)

// Descriptions and terms are stored whole on the ledger; keep them bounded.
const (
	maxPtrLen         = 1024
	maxDescriptionLen = 4096
	maxTermsLen       = 64 * 1024
)

func NonEmpty(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return fmt.Errorf("%s is required", field)
	}
	return nil
}

func MaxLen(field string, v *string, limit int) error {
	if v == nil {
		return nil
	}
	if len(*v) > limit {
		return fmt.Errorf("%s exceeds %d characters", field, limit)
	}
	return nil
}

// CreateTitle validates input for a title transaction.
func CreateTitle(ptr, origin, signature string, description *string) error {
	if err := NonEmpty("ptr", ptr); err != nil {
		return err
	}
	if err := MaxLen("ptr", &ptr, maxPtrLen); err != nil {
		return err
	}
	if err := NonEmpty("origin", origin); err != nil {
		return err
	}
	if err := NonEmpty("signature", signature); err != nil {
		return err
	}
	return MaxLen("description", description, maxDescriptionLen)
}

// CreateLicense validates input for a title plus license pair.
func CreateLicense(ptr, origin, terms, signature string, description *string) error {
	if err := CreateTitle(ptr, origin, signature, description); err != nil {
		return err
	}
	if err := NonEmpty("terms", terms); err != nil {
		return err
	}
	return MaxLen("terms", &terms, maxTermsLen)
}
