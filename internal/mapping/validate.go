// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package mapping

import (
	"errors"
	"fmt"

	"github.com/tomtom215/leadledger/internal/models"
	"github.com/tomtom215/leadledger/internal/validation"
)

// ErrInvalidPermit is wrapped by every error returned from Validate.
var ErrInvalidPermit = errors.New("invalid permit")

// Validate checks the NormalizedPermit invariants: a source and key are
// present, and at least one of address or permit number is set.
func Validate(p *models.NormalizedPermit) error {
	err := validation.Struct(p)
	if err == nil {
		return nil
	}
	var verr *validation.Error
	if errors.As(err, &verr) && verr.Has("permit_number", "required_without") {
		return fmt.Errorf("%w: address or permit number is required", ErrInvalidPermit)
	}
	return fmt.Errorf("%w: %v", ErrInvalidPermit, err)
}
