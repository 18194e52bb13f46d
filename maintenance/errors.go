package maintenance

import (
	"github.com/goliatone/go-errors"
)

const (
	TextCodeAgentNotFound        = "AGENT_NOT_FOUND"
	TextCodeInstallationNotFound = "INSTALLATION_NOT_FOUND"
	TextCodeElementNotFound      = "ELEMENT_NOT_FOUND"
	TextCodeUnknownSector        = "UNKNOWN_SECTOR"
	TextCodeUnknownAgent         = "UNKNOWN_AGENT"
)

var ErrAgentNotFound = errors.New("agent not found", errors.CategoryNotFound).
	WithTextCode(TextCodeAgentNotFound).
	WithCode(errors.CodeNotFound)

var ErrInstallationNotFound = errors.New("installation not found", errors.CategoryNotFound).
	WithTextCode(TextCodeInstallationNotFound).
	WithCode(errors.CodeNotFound)

var ErrElementNotFound = errors.New("element not found", errors.CategoryNotFound).
	WithTextCode(TextCodeElementNotFound).
	WithCode(errors.CodeNotFound)

// ErrUnknownSector is returned for sectors outside the catalog
var ErrUnknownSector = errors.New("unknown sector", errors.CategoryValidation).
	WithTextCode(TextCodeUnknownSector).
	WithCode(errors.CodeBadRequest)

// ErrUnknownAgent is returned when an assignment names an agent that does not exist
var ErrUnknownAgent = errors.New("unknown agent", errors.CategoryValidation).
	WithTextCode(TextCodeUnknownAgent).
	WithCode(errors.CodeBadRequest)
