// Package authcore is the authentication and session-security core of the
// platform: password and social login, JWT session tokens, TOTP two-factor
// auth with one-time recovery codes, account lockout, and password reset.
//
// The engine owns no storage. The caller injects a user store, a TTL
// key-value cache (Redis in production), and a notification sender; the
// engine supplies the flow logic, the token codec, the Argon2id credential
// hasher, and the AES cipher that keeps TOTP secrets encrypted at rest under
// the account password.
//
//	engine, err := authcore.New().
//		WithConfig(cfg).
//		WithUserStore(store).
//		WithRedis(redisClient).
//		WithNotifier(mailer).
//		WithSocialProvider(authcore.ProviderGoogle, social.NewGoogle(id, secret)).
//		Build()
//
// Every operation returns a typed failure from a closed set (ErrNotFound,
// ErrUnauthorized, ErrForbidden, LoginError, ...) meant to propagate to the
// transport boundary unhandled.
package authcore
