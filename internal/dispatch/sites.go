package dispatch

import "strings"

// wellKnown resolves spoken site names that do not follow the
// www.<name>.com convention, or whose canonical host differs.
var wellKnown = map[string]string{
	"google":        "https://www.google.com",
	"youtube":       "https://www.youtube.com",
	"gmail":         "https://mail.google.com",
	"maps":          "https://maps.google.com",
	"googlemaps":    "https://maps.google.com",
	"drive":         "https://drive.google.com",
	"github":        "https://github.com",
	"wikipedia":     "https://www.wikipedia.org",
	"amazon":        "https://www.amazon.com",
	"flipkart":      "https://www.flipkart.com",
	"facebook":      "https://www.facebook.com",
	"instagram":     "https://www.instagram.com",
	"twitter":       "https://x.com",
	"x":             "https://x.com",
	"linkedin":      "https://www.linkedin.com",
	"reddit":        "https://www.reddit.com",
	"netflix":       "https://www.netflix.com",
	"stackoverflow": "https://stackoverflow.com",
	"chatgpt":       "https://chat.openai.com",
	"whatsapp":      "https://web.whatsapp.com",
	"irctc":         "https://www.irctc.co.in",
}

// ResolveURL picks the absolute address for a navigation. An explicit
// URL wins, then a schemed or domain-shaped website, then the lookup
// table, then https://www.<name>.com.
func ResolveURL(rawURL, website string) string {
	if u := strings.TrimSpace(rawURL); u != "" {
		if hasScheme(u) {
			return u
		}
		return "https://" + u
	}

	site := strings.TrimSpace(website)
	if site == "" {
		return ""
	}
	if hasScheme(site) {
		return site
	}
	if looksLikeDomain(site) {
		return "https://" + strings.ToLower(site)
	}
	name := slug(site)
	if u, ok := wellKnown[name]; ok {
		return u
	}
	return "https://www." + name + ".com"
}

func hasScheme(s string) bool {
	i := strings.Index(s, "://")
	return i > 0 && !strings.ContainsAny(s[:i], " /.")
}

func looksLikeDomain(s string) bool {
	if strings.ContainsAny(s, " \t") {
		return false
	}
	dot := strings.LastIndex(s, ".")
	return dot > 0 && dot < len(s)-1
}

// slug lowercases a spoken name and drops the characters a host cannot
// carry: "Stack Overflow" becomes "stackoverflow".
func slug(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
