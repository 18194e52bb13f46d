// Package auth is the authentication and authorization core of the SIGMA
// maintenance backend.
//
// Sessions:
//   - TokenService issues HS256 access and refresh tokens carrying the caller's
//     matricula and role. Tokens are stateless, validity is signature plus
//     expiry. A kind claim keeps refresh tokens out of the access path.
//   - SessionResolver turns the access_token cookie into claims and fails
//     closed when the cookie is absent or does not verify.
//
// Authorization:
//   - AccessPolicy is the declarative table of operation to required roles.
//     Guard consults it for every protected route and denies operations that
//     have no entry, so a route cannot be mounted without a role declaration.
//
// Registration:
//   - RegistrationWorkflow moves a matricula from NONE to PENDING on submit
//     and from PENDING to APPROVED (a User with role AGENT) or REJECTED. The
//     approve step deletes the request and creates the user in a single
//     transaction and is safe to retry.
//
// Credentials:
//   - CredentialVerifier accepts the configured bootstrap super-admin (role
//     ADMIN, no backing record) or a stored user whose bcrypt hash matches.
package auth
