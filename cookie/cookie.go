package cookie

import (
	"net/http"
	"net/textproto"
	"strings"
	"time"
)

// ExpiredOffset is how far in the past the clearing cookie expires.
const ExpiredOffset = 30 * 24 * time.Hour

const headerSetCookie = "Set-Cookie"

// Template holds the static attributes shared by every cookie of one session
// configuration.
type Template struct {
	Name     string
	Path     string
	Domain   string
	Secure   bool
	HTTPOnly bool
	SameSite http.SameSite
}

// DefaultTemplate returns name with path "/", Secure, HttpOnly and SameSite=Lax.
func DefaultTemplate(name string) Template {
	return Template{
		Name:     name,
		Path:     "/",
		Secure:   true,
		HTTPOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// Cookie is a concrete cookie ready to be rendered.
type Cookie struct {
	Template
	Value   string
	Expires time.Time
}

// Live returns a cookie carrying value that expires at issuedAt+ttl.
func Live(t Template, value string, issuedAt time.Time, ttl time.Duration) Cookie {
	return Cookie{
		Template: t,
		Value:    value,
		Expires:  issuedAt.Add(ttl),
	}
}

// Expired returns an empty cookie that instructs the client to drop t.Name.
func Expired(t Template, now time.Time) Cookie {
	return Cookie{
		Template: t,
		Expires:  now.Add(-ExpiredOffset),
	}
}

// String renders c as a Set-Cookie header value. Attribute order is stable:
// Domain, Path, Expires, Secure, HttpOnly, SameSite. Unset attributes are
// omitted.
func (c Cookie) String() string {
	var b strings.Builder
	b.Grow(len(c.Name) + len(c.Value) + 96)

	b.WriteString(c.Name)
	b.WriteByte('=')
	b.WriteString(c.Value)

	if c.Domain != "" {
		b.WriteString("; Domain=")
		b.WriteString(c.Domain)
	}
	if c.Path != "" {
		b.WriteString("; Path=")
		b.WriteString(c.Path)
	}
	if !c.Expires.IsZero() {
		b.WriteString("; Expires=")
		b.WriteString(c.Expires.UTC().Format(http.TimeFormat))
	}
	if c.Secure {
		b.WriteString("; Secure")
	}
	if c.HTTPOnly {
		b.WriteString("; HttpOnly")
	}
	if s := sameSiteValue(c.SameSite); s != "" {
		b.WriteString("; SameSite=")
		b.WriteString(s)
	}

	return b.String()
}

func sameSiteValue(s http.SameSite) string {
	switch s {
	case http.SameSiteLaxMode:
		return "Lax"
	case http.SameSiteStrictMode:
		return "Strict"
	case http.SameSiteNoneMode:
		return "None"
	default:
		return ""
	}
}

// Attach sets c on h, replacing any earlier Set-Cookie line for the same name
// and keeping all others in order.
func Attach(h http.Header, c Cookie) {
	key := textproto.CanonicalMIMEHeaderKey(headerSetCookie)
	existing := h[key]

	kept := existing[:0:0]
	prefix := c.Name + "="
	for _, line := range existing {
		if strings.HasPrefix(strings.TrimSpace(line), prefix) {
			continue
		}
		kept = append(kept, line)
	}

	h[key] = append(kept, c.String())
}

// Read returns the value of the request cookie name.
func Read(r *http.Request, name string) (string, bool) {
	if r == nil {
		return "", false
	}
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}
