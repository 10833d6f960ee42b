package orchestrator

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"

	"rankwise.app/analyst/internal/model"
)

const nichePrefix = "niche:"

// TargetSpec is a parsed, normalized analysis target.
type TargetSpec struct {
	Key  string
	Kind model.TargetKind
	// URL is the page to fetch for websites, keeping the caller's scheme.
	URL      string
	Keywords []string
}

// ParseTarget normalizes raw into a target key so that inputs naming the
// same logical target compare equal. An empty kind is inferred: keys with
// the niche: prefix are niches, everything else a website.
func ParseTarget(raw string, kind model.TargetKind) (TargetSpec, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return TargetSpec{}, invalid("empty target key")
	}

	if kind == "" {
		kind = model.TargetKindWebsite
		if hasNichePrefix(s) {
			kind = model.TargetKindNiche
		}
	}

	switch kind {
	case model.TargetKindWebsite:
		if hasNichePrefix(s) {
			return TargetSpec{}, invalid("niche key given for a website")
		}
		return parseWebsite(s)
	case model.TargetKindNiche:
		if hasNichePrefix(s) {
			s = s[len(nichePrefix):]
		}
		return parseNiche(s)
	default:
		return TargetSpec{}, invalid(fmt.Sprintf("unknown target kind %q", kind))
	}
}

func hasNichePrefix(s string) bool {
	return len(s) >= len(nichePrefix) && strings.EqualFold(s[:len(nichePrefix)], nichePrefix)
}

func parseWebsite(s string) (TargetSpec, error) {
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return TargetSpec{}, invalid(fmt.Sprintf("unparsable URL: %v", err))
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return TargetSpec{}, invalid(fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}

	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "" || strings.ContainsAny(host, " \t") {
		return TargetSpec{}, invalid("URL has no host")
	}
	port := u.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}

	hostport := host
	switch {
	case port != "":
		hostport = net.JoinHostPort(host, port)
	case strings.Contains(host, ":"):
		hostport = "[" + host + "]"
	}
	path := canonicalPath(u.Path)
	query := u.Query().Encode()

	suffix := path
	if query != "" {
		suffix += "?" + query
	}

	keyHost := hostport
	if rest, ok := strings.CutPrefix(host, "www."); ok && strings.Contains(rest, ".") {
		keyHost = strings.TrimPrefix(hostport, "www.")
	}
	if keyHost == "" || strings.HasPrefix(keyHost, ":") {
		return TargetSpec{}, invalid("URL has no host")
	}

	return TargetSpec{
		Key:  keyHost + suffix,
		Kind: model.TargetKindWebsite,
		URL:  scheme + "://" + hostport + suffix,
	}, nil
}

// canonicalPath re-escapes each decoded segment so equivalent spellings of
// one path compare equal, and drops trailing slashes.
func canonicalPath(p string) string {
	segments := strings.Split(p, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return strings.TrimRight(strings.Join(segments, "/"), "/")
}

func parseNiche(s string) (TargetSpec, error) {
	seen := map[string]bool{}
	var terms []string
	for _, part := range strings.Split(s, ",") {
		term := strings.ToLower(strings.Join(strings.Fields(part), " "))
		if term == "" || seen[term] {
			continue
		}
		seen[term] = true
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return TargetSpec{}, invalid("niche has no keywords")
	}
	sort.Strings(terms)

	return TargetSpec{
		Key:      nichePrefix + strings.Join(terms, ","),
		Kind:     model.TargetKindNiche,
		Keywords: terms,
	}, nil
}

func invalid(reason string) error {
	return newError(KindInvalidTarget, fmt.Errorf("%w: %s", ErrInvalidTarget, reason))
}
