// Package errors provides structured error handling for Torchlight.
package errors

import "net/http"

// Code is a machine-readable error code.
type Code string

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Request/identity errors
	CodeUnauthenticated Code = "UNAUTHENTICATED"
	CodeInvalidRequest  Code = "INVALID_REQUEST"
	CodeUnauthorized    Code = "UNAUTHORIZED"

	// Capability grant errors
	CodeGrantMissing Code = "GRANT_MISSING"
	CodeGrantInvalid Code = "GRANT_INVALID"
	CodeGrantExpired Code = "GRANT_EXPIRED"

	// Campaign errors
	CodeCampaignNameEmpty Code = "CAMPAIGN_NAME_EMPTY"

	// Team errors
	CodeTeamRoleInvalid Code = "TEAM_ROLE_INVALID"

	// Encounter errors
	CodeEncounterTitleEmpty Code = "ENCOUNTER_TITLE_EMPTY"

	// Storage errors
	CodeNotFound        Code = "NOT_FOUND"
	CodeUpstreamFailure Code = "UPSTREAM_FAILURE"
)

// HTTPStatus maps an error code to its HTTP response status.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodeUnauthorized:
		return http.StatusForbidden
	case CodeInvalidRequest, CodeCampaignNameEmpty, CodeTeamRoleInvalid, CodeEncounterTitleEmpty:
		return http.StatusBadRequest
	case CodeGrantMissing, CodeGrantInvalid, CodeGrantExpired:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
