// Package fetch performs politely retried HTTP GET requests.
//
// A Client retries a request when the server answers with a transient
// status (429, 500, 502, 503, 504) or when the transport fails. Between
// attempts it sleeps for an exponentially growing backoff interval. Any
// other non-2xx status is returned at once as an *HTTPStatusError so that
// client errors such as 404 or 403 are never mistaken for transient ones.
//
// Bodies are size-limited and decoded to UTF-8 from the charset declared by
// the server or sniffed from the document.
package fetch
