// Package auth provides token authentication middleware for the web API.
//
// The middleware reads the Authorization header in the form
// "Token <api-token>", resolves it to a user account and stores the
// account in fiber.Locals for handlers to read via CurrentUser.
// Registration, login, invitation lookup by token and the health check
// stay reachable without a token.
package auth
