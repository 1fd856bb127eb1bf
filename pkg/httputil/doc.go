// Package httputil provides the HTTP client used by every admin API call.
//
// # Overview
//
// The client merges each call's RequestConfig onto the defaults, injects the session token and
// classifies the outcome. Callers receive either the unwrapped envelope payload or an *APIError.
//
// # Requests
//
//	client := httputil.NewClient(httputil.Options{
//		BaseURL: "https://admin.example.com/api/",
//		Tokens:  secrets,
//		Logger:  logger,
//	})
//	resp, err := client.Do(ctx, httputil.RequestConfig{
//		Method: "GET",
//		URL:    "v2/admin/users",
//		Params: url.Values{"page": {"1"}, "limit": {"20"}},
//	})
//
// Every request carries:
//
//	Authorization:    Bearer TK="<token>"
//	Content-Type:     application/json
//	X-Requested-With: XMLHttpRequest
//	X-Request-ID:     <uuid>
//
// # Response Classification
//
//	blob / arraybuffer / ExtractData=false   returned raw
//	204                                      success, empty payload
//	JSON object with "code"                  envelope unwrapped into Response.Data
//	other 2xx body                           KindForeign
//	context canceled                         KindCanceled
//	network error or timeout                 KindFault
//	non-2xx                                  KindServer with errno/message from the body
//
// A 401 response calls the registered ExpiryHandler once the error is built. Unless the call sets
// SilentErrorNotify or the context is marked with contextkeys.WithSilentNotify, every error is
// passed to the Notifier, which usually prints APIError.ReportMessage.
//
// # Related Packages
//
//   - pkg/api: Typed resource clients on top of Client
//   - pkg/session: Implements ExpiryHandler
//   - pkg/secret: Provides the token
package httputil
