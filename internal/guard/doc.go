// Package guard gates every outgoing fetch behind two politeness checks.
//
// A RobotsPolicy decides whether a URL may be fetched at all, based on the
// robots.txt of its origin (scheme and host). Each origin's robots.txt is
// fetched once and cached for the lifetime of the policy. If it cannot be
// fetched, every path of that origin is allowed.
//
// A DomainLimiter spaces consecutive fetches to the same host by a minimum
// interval. Hosts are independent of each other. Within a host, fetches are
// serialized: a slot is held from Acquire until the returned release
// function runs, and the last-access timestamp is taken at release time.
//
// Guard composes both. The robots check comes first, so a denied URL never
// consumes a rate-limit slot.
//
// The robots cache and the limiter timestamps belong to the Guard instance.
// A process normally builds one Guard per harvesting session and shares it
// between concurrent site runs.
package guard
