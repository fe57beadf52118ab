/*
Package medrecsdk is a Go client for the medrec HTTP API, and the home of the
wire types the server writes.

Create a Client and log in to obtain a token-carrying client:

	c := medrecsdk.NewClient("https://medrec.example.com")

	tok, err := c.Login(ctx, "clinic@example.com", "Passw0rd!")
	if err != nil {
		return err
	}
	authed := c.WithToken(tok.AccessToken)

	logs, err := authed.ListAuditLogs(ctx, medrecsdk.AuditLogQuery{Action: "login"})

# Errors

Every non-2xx response is returned as an *APIError carrying the HTTP status
and the machine-readable code from the body. Compare codes, or use
errors.Is against the predefined errors, which match on code:

	if errors.Is(err, medrecsdk.ErrRateLimitExceeded) {
		// back off
	}

A Client is safe for concurrent use. WithToken returns a copy and leaves the
receiver untouched.
*/
package medrecsdk
