/*
Package authsdk is the Go client for the tally authentication service.

The service keeps sessions in HttpOnly cookies, so the client carries a
cookie jar and every call after SignUp or SignIn is authenticated by it:

	client, err := authsdk.NewSDKClient("https://auth.tally.local")
	if err != nil {
		return err
	}

	if _, err := client.SignIn(ctx, authsdk.Credentials{Email: email, Password: pw}); err != nil {
		var apiErr *authsdk.APIError
		if errors.As(err, &apiErr) && apiErr.Code == authsdk.ErrorCodeInvalidCredentials {
			// wrong email or password
		}
		return err
	}

	db, err := client.DBCredential(ctx)

Downstream services that only need to check tokens use RemoteVerifier,
which fetches the JWKS once and verifies RS256 tokens locally:

	v := authsdk.NewRemoteVerifier(client, jwtx.Expectations{
		Issuer:   "tally",
		Audience: "tally-sync",
		Role:     "sync_user",
	})
	claims, err := v.Verify(ctx, token)
*/
package authsdk
