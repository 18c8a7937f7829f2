// Package middleware contains HTTP middleware for the admin surface.
//
//   - auth: API key validation.
//   - rayid: a unique ray id per request, stored in the fiber locals and echoed in the
//     X-Ray-ID response header so log lines can be correlated.
package middleware
