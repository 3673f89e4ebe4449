package http

import (
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"

	applog "smartledger/internal/log"
)

// attackPatterns never appear in a path or query the dashboard serves.
var attackPatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", ".git", ".ssh",
	"eval(", "javascript:", "<script", "union select",
	"base64", "0x", "etc/passwd", "cmd.exe",
}

var scannerAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb",
	"masscan", "scanner", "crawler", "spider", "scraper",
}

var unusualMethods = []string{"TRACE", "TRACK", "DEBUG", "CONNECT"}

const maxURLLength = 2048

// detectionStats counts flagged requests. Blocked requests are also counted
// as suspicious.
type detectionStats struct {
	Suspicious int64
	Blocked    int64
}

type detector struct {
	suspicious atomic.Int64
	blocked    atomic.Int64
}

// verdict is the outcome of inspecting a request.
type verdict struct {
	reason string
	block  bool
}

// inspect flags attack patterns in the path or query, unusual methods and
// oversized URLs as blocking. Scanner user agents and long proxy chains are
// only flagged.
func (d *detector) inspect(r *http.Request) (verdict, bool) {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	if unescaped, err := url.QueryUnescape(query); err == nil {
		query = unescaped
	}
	for _, p := range attackPatterns {
		if strings.Contains(path, p) {
			return verdict{reason: "path pattern " + p, block: true}, true
		}
		if strings.Contains(query, p) {
			return verdict{reason: "query pattern " + p, block: true}, true
		}
	}
	for _, m := range unusualMethods {
		if r.Method == m {
			return verdict{reason: "method " + m, block: true}, true
		}
	}
	if len(r.URL.String()) > maxURLLength {
		return verdict{reason: "url too long", block: true}, true
	}

	ua := strings.ToLower(r.Header.Get("User-Agent"))
	for _, a := range scannerAgents {
		if strings.Contains(ua, a) {
			return verdict{reason: "user agent " + a}, true
		}
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		return verdict{reason: "forwarding chain too long"}, true
	}
	return verdict{}, false
}

func (d *detector) stats() detectionStats {
	return detectionStats{Suspicious: d.suspicious.Load(), Blocked: d.blocked.Load()}
}

// withDetection logs suspicious requests and answers blocking ones with 404
// before they reach a handler.
func (s *Server) withDetection(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v, flagged := s.detector.inspect(r)
		if !flagged {
			next.ServeHTTP(w, r)
			return
		}
		s.detector.suspicious.Add(1)
		ctx := r.Context()
		fields := []any{
			applog.FieldClientIP, extractClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			"reason", v.reason,
		}
		if !v.block {
			applog.FromContext(ctx).InfoContext(ctx, "Suspicious request", fields...)
			next.ServeHTTP(w, r)
			return
		}
		s.detector.blocked.Add(1)
		applog.FromContext(ctx).WarnContext(ctx, "Blocked suspicious request", fields...)
		http.NotFound(w, r)
	})
}
