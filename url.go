package bulgu

import (
	"net/url"
	"strings"
)

// BaseURL normalizes a URL to "scheme://netloc". Returns an EINVALID error
// for unparseable or schemeless input.
func BaseURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", Errorf(EINVALID, "invalid URL %q: %v", raw, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", Errorf(EINVALID, "URL %q has no scheme or host", raw)
	}
	return u.Scheme + "://" + u.Host, nil
}

// Hostname returns the hostname component of a URL, or "" if unparseable.
func Hostname(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// SameRegisteredSite reports whether the last two hostname labels of the two
// URLs are equal. This is the analyzer's subdomain filter; it deliberately
// uses the last-two-labels rule rather than the public suffix list.
func SameRegisteredSite(url1, url2 string) bool {
	l1 := lastTwoLabels(Hostname(url1))
	l2 := lastTwoLabels(Hostname(url2))
	return l1 != "" && l1 == l2
}

func lastTwoLabels(host string) string {
	if host == "" {
		return ""
	}
	labels := strings.Split(host, ".")
	if len(labels) < 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// PortForScheme returns the conventional port for a URL scheme: 443 for
// https, 80 otherwise.
func PortForScheme(scheme string) int {
	if scheme == "https" {
		return 443
	}
	return 80
}
