package http

import (
	"time"

	"github.com/rimmartin/loom/session"
	"github.com/rimmartin/loom/session/storage"
	"github.com/rimmartin/loom/uuid"
)

// FilterHandler receives a connection-scoped Response and ±1 on every
// connection open/close. Filters never see per-request bodies; they exist
// for counters and lifecycle hooks (session cookie issuance, connection
// gauges feeding the scheduler-driven metrics tick).
type FilterHandler func(res *Response, delta int)

// UseHandler runs once per request before routing. It may only mutate req
// or res (e.g. attach a session, normalize headers); it must not itself
// send a response.
type UseHandler func(res *Response, req *Request)

// EnforceCookieFilter issues a session-identifying cookie on connection
// open if the connecting client presents none.
func EnforceCookieFilter() FilterHandler {
	return func(res *Response, delta int) {
		if delta <= 0 {
			return
		}
		cookie := Cookie{
			Name:     "SID",
			Value:    uuid.NewV4().String(),
			Secure:   true,
			HttpOnly: true,
			Path:     "/",
			SameSite: SameSiteStrictMode,
		}
		cookie.SetExpiry(365 * 24 * time.Hour)
		res.AddCookie(cookie)
	}
}

// SessionUse attaches an in-memory session (keyed by the SID cookie) to
// each request. It only mutates req/res and never sends a response of its
// own, matching the use-chain's contract.
func SessionUse(store storage.SessionStore) UseHandler {
	return func(res *Response, req *Request) {
		cookie, err := req.Cookie("SID")
		if err != nil {
			return
		}
		if _, err := uuid.Parse(cookie.Value); err != nil {
			// A cookie value that isn't a UUID we ever issued; treat the
			// request as unauthenticated rather than trust it as a lookup
			// key into the session store.
			return
		}

		sess := session.NewDefaultSession(cookie.Value, "memses", make(map[string]any))
		if store.Has(cookie.Value) {
			if attrs, err := store.Get(cookie.Value); err == nil {
				sess.Replace(attrs)
			}
		}
		sess.Touch()
		store.Save(sess)

		req.session = sess
	}
}
