// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

/*
Package validation wraps go-playground/validator v10 with one shared,
lazily built instance and readable error messages.

Field names in messages come from json tags, so a failure on
NormalizedPermit.SourceRecordID reads "source_record_id is required" and a
bad query parameter reads "limit must be less than or equal to 1000".

Usage:

	if err := validation.Struct(&q); err != nil {
	    var verr *validation.Error
	    if errors.As(err, &verr) {
	        respondError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(), nil)
	    }
	}
*/
package validation
