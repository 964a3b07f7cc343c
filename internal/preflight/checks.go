package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"edgarfeed/internal/edgar"
)

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckUserAgent rejects the placeholder contact address. The archive host
// blocks clients that do not identify themselves.
func CheckUserAgent(userAgent string) Result {
	const name = "User-Agent"
	ua := strings.TrimSpace(userAgent)
	switch {
	case ua == "":
		return Result{Name: name, Detail: "missing (set archive.user_agent or EDGARFEED_USER_AGENT)"}
	case !strings.Contains(ua, "@"):
		return Result{Name: name, Detail: fmt.Sprintf("%q has no contact address", ua)}
	case strings.Contains(ua, "admin@example.com"):
		return Result{Name: name, Detail: "still the sample placeholder"}
	}
	return Result{Name: name, Passed: true, Detail: ua}
}

// CheckArchiveHost issues a HEAD for day's archive to confirm the host is
// reachable and accepts the User-Agent. A 404 still counts as reachable.
func CheckArchiveHost(ctx context.Context, baseURL, host, userAgent string, day time.Time) Result {
	const name = "Archive host"

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	url := edgar.ArchiveURL(baseURL, day)
	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, url, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	req.Header.Set("User-Agent", userAgent)
	if host != "" {
		req.Host = host
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK, resp.StatusCode == http.StatusNotFound:
		return Result{Name: name, Passed: true, Detail: fmt.Sprintf("reachable (%d)", resp.StatusCode)}
	case resp.StatusCode == http.StatusForbidden:
		return Result{Name: name, Detail: "forbidden (check the User-Agent contact)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
}
