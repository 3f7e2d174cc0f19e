package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/robsoninsights/robsoninsights/internal/db/controller/entry"
	"github.com/robsoninsights/robsoninsights/internal/db/controller/filterconfig"
	"github.com/robsoninsights/robsoninsights/internal/db/controller/group"
	"github.com/robsoninsights/robsoninsights/internal/ingest"
	"github.com/robsoninsights/robsoninsights/internal/invite"
)

// badRequestErrs map to 400: caller input was malformed or violates a rule.
var badRequestErrs = []error{
	group.ErrNameRequired,
	group.ErrNameTooShort,
	group.ErrNameTooLong,
	group.ErrDuplicateName,
	group.ErrLastAdmin,
	group.ErrLastMembership,
	group.ErrSecondAdmin,
	filterconfig.ErrNameRequired,
	filterconfig.ErrNameTooShort,
	filterconfig.ErrNameTooLong,
	filterconfig.ErrDuplicateName,
	entry.ErrInvalidClassification,
	invite.ErrExpired,
	invite.ErrDuplicateEmails,
	invite.ErrNoEmails,
	ingest.ErrInvalidFormat,
}

// forbiddenErrs map to 403: caller is known but lacks the capability.
var forbiddenErrs = []error{
	group.ErrUnauthorized,
	filterconfig.ErrUnauthorized,
	entry.ErrUnauthorized,
	entry.ErrNoGroups,
	invite.ErrUnauthorized,
	ingest.ErrNoGroups,
}

// notFoundErrs map to 404.
var notFoundErrs = []error{
	group.ErrGroupNotFound,
	group.ErrUserNotFound,
	group.ErrMembershipNotFound,
	filterconfig.ErrFilterNotFound,
	filterconfig.ErrGroupNotFound,
	entry.ErrEntryNotFound,
	invite.ErrNotFound,
	invite.ErrUserNotFound,
}

// Err translates controller and service errors to an HTTP status and a
// JSON body. Unrecognized errors are logged and hidden behind a 500.
func Err(c *fiber.Ctx, err error) error {
	if status, ok := statusFor(err); ok {
		return c.Status(status).JSON(fiber.Map{"error": err.Error()})
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("unhandled handler error")

	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal server error"})
}

func statusFor(err error) (int, bool) {
	for _, e := range badRequestErrs {
		if errors.Is(err, e) {
			return fiber.StatusBadRequest, true
		}
	}

	for _, e := range forbiddenErrs {
		if errors.Is(err, e) {
			return fiber.StatusForbidden, true
		}
	}

	for _, e := range notFoundErrs {
		if errors.Is(err, e) {
			return fiber.StatusNotFound, true
		}
	}

	return 0, false
}
