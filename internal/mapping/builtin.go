// LeadLedger - Municipal Permit Ingestion
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/leadledger

package mapping

import "time"

const defaultInterval = 24 * time.Hour

var builtin = []SourceSpec{
	{
		Name:      "austin",
		Kind:      "socrata",
		URL:       "https://data.austintexas.gov/resource/3syk-w9eu.json",
		DateField: "issue_date",
		City:      "Austin",
		County:    "Travis",
		Fields: map[Field][]string{
			FieldSourceRecordID:  {"permit_number"},
			FieldPermitNumber:    {"permit_number"},
			FieldIssueDate:       {"issue_date", "issued_date"},
			FieldApplicationDate: {"applieddate"},
			FieldDescription:     {"description", "work_class", "permit_type_desc"},
			FieldCategory:        {"permit_class_mapped", "permit_class"},
			FieldAddress:         {"original_address1", "permit_location"},
			FieldCity:            {"original_city"},
			FieldState:           {"original_state"},
			FieldZip:             {"original_zip"},
			FieldValuation:       {"total_job_valuation", "total_valuation_remodel"},
			FieldApplicant:       {"applicant_full_name", "applicant_org"},
			FieldContractor:      {"contractor_company_name", "contractor_full_name"},
			FieldStatus:          {"status_current"},
			FieldLatitude:        {"latitude"},
			FieldLongitude:       {"longitude"},
		},
	},
	{
		Name:      "dallas",
		Kind:      "socrata",
		URL:       "https://www.dallasopendata.com/resource/e7gq-4sah.json",
		DateField: "issued_date",
		City:      "Dallas",
		County:    "Dallas",
		Fields: map[Field][]string{
			FieldPermitNumber: {"permit_number"},
			FieldIssueDate:    {"issued_date"},
			FieldDescription:  {"work_description", "permit_type"},
			FieldCategory:     {"land_use"},
			FieldAddress:      {"street_address"},
			FieldZip:          {"zip_code"},
			FieldValuation:    {"value"},
			FieldContractor:   {"contractor"},
			FieldStatus:       {"status"},
		},
	},
	{
		Name:      "houston",
		Kind:      "arcgis",
		URL:       "https://services.arcgis.com/NummVBqZSIJKUeVR/arcgis/rest/services/Houston_Building_Permits/FeatureServer/0",
		DateField: "ISSUE_DATE",
		City:      "Houston",
		County:    "Harris",
		Fields: map[Field][]string{
			FieldSourceRecordID:  {"OBJECTID"},
			FieldPermitNumber:    {"PERMIT_NUMBER", "PROJ_NO"},
			FieldIssueDate:       {"ISSUE_DATE"},
			FieldApplicationDate: {"APPLICATION_DATE"},
			FieldDescription:     {"PROJ_DESC", "PERMIT_TYPE"},
			FieldCategory:        {"OCCUPANCY", "OCCUPANCY_TYPE"},
			FieldAddress:         {"ADDRESS", "STREET_NUM+STREET_NAME"},
			FieldZip:             {"ZIP", "ZIPCODE"},
			FieldValuation:       {"VALUATION"},
			FieldApplicant:       {"APPLICANT"},
			FieldContractor:      {"CONTRACTOR"},
			FieldStatus:          {"STATUS"},
			FieldLatitude:        {"LATITUDE", "_y"},
			FieldLongitude:       {"LONGITUDE", "_x"},
		},
	},
	{
		Name:        "harris",
		Kind:        "csv",
		URL:         "https://www.eng.hctx.net/Portals/23/permits/PermitsIssued.csv",
		DateField:   "Issue Date",
		County:      "Harris",
		DateLayouts: []string{"01/02/2006", "1/2/2006", "01/02/2006 15:04"},
		Fields: map[Field][]string{
			FieldPermitNumber:    {"Permit Number"},
			FieldIssueDate:       {"Issue Date"},
			FieldApplicationDate: {"Application Date"},
			FieldDescription:     {"Project Description", "Permit Type"},
			FieldCategory:        {"Permit Type"},
			FieldAddress:         {"Street Address", "Site Address"},
			FieldCity:            {"City"},
			FieldZip:             {"Zip Code"},
			FieldValuation:       {"Estimated Value"},
			FieldApplicant:       {"Applicant Name"},
			FieldOwner:           {"Owner Name"},
			FieldStatus:          {"Status"},
		},
	},
	{
		Name:      "fortworth",
		Kind:      "arcgis",
		URL:       "https://services5.arcgis.com/3ddLCBXe1bRt7mzj/arcgis/rest/services/Development_Permits/FeatureServer/0",
		DateField: "Status_Date",
		City:      "Fort Worth",
		County:    "Tarrant",
		Fields: map[Field][]string{
			FieldSourceRecordID: {"OBJECTID"},
			FieldPermitNumber:   {"Permit_No"},
			FieldIssueDate:      {"Status_Date", "File_Date"},
			FieldDescription:    {"B1_WORK_DESC", "Permit_SubType", "Permit_Type"},
			FieldCategory:       {"Use_Type", "Permit_Type"},
			FieldAddress:        {"Full_Street_Address", "Addr_No+Street_Name"},
			FieldZip:            {"Zip_Code"},
			FieldValuation:      {"JobValue"},
			FieldOwner:          {"Owner_Full_Name"},
			FieldContractor:     {"Contractor"},
			FieldStatus:         {"Current_Status"},
			FieldLatitude:       {"_y"},
			FieldLongitude:      {"_x"},
		},
	},
}

// Builtin returns fresh copies of the built-in source specs keyed by name.
func Builtin() map[string]SourceSpec {
	out := make(map[string]SourceSpec, len(builtin))
	for i := range builtin {
		s := builtin[i].Clone()
		s.Enabled = true
		s.Interval = defaultInterval
		out[s.Name] = s
	}
	return out
}
