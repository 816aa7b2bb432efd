package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	cleanhttp "github.com/hashicorp/go-cleanhttp"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/JKamsker/ztnet-cli/internal/cliutil"
	"github.com/JKamsker/ztnet-cli/internal/config"
	"github.com/JKamsker/ztnet-cli/internal/host"
	"github.com/JKamsker/ztnet-cli/internal/version"
)

// NextAuth credentials flow: fetch a csrf token, POST the credentials form
// with redirects disabled, and harvest the session cookie from Set-Cookie.
// The wire details follow what the ZTNet web UI itself does; this is best
// effort, not a stable API.

func runAuthLogin(cmd *cobra.Command, args []string) error {
	cfgPath, cfg, eff, err := resolveEffective()
	if err != nil {
		return err
	}

	if authLoginPwStdin && authLoginPassword != "" {
		return cliutil.InvalidArgumentf("cannot combine --password-stdin with --password")
	}

	password := authLoginPassword
	switch {
	case authLoginPwStdin:
		password, err = cliutil.ReadStdinTrimmed()
		if err != nil {
			return err
		}
	case password == "":
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}
	if strings.TrimSpace(password) == "" {
		return cliutil.InvalidArgumentf("password cannot be empty")
	}

	base, err := host.Normalize(eff.Host)
	if err != nil {
		return err
	}
	base = strings.TrimRight(base, "/")

	if globalOpts.DryRun {
		fmt.Printf("POST %s/api/auth/callback/credentials\n", base)
		fmt.Println("content-type: application/x-www-form-urlencoded")
		fmt.Println("(credentials omitted)")
		return cliutil.ErrDryRunPrinted
	}

	httpClient := &http.Client{
		Transport: cleanhttp.DefaultPooledTransport(),
		Timeout:   eff.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	totp := authLoginTOTP
	for {
		csrfToken, csrfCookie, err := fetchNextAuthCSRF(httpClient, base)
		if err != nil {
			return err
		}

		result, err := nextAuthCredentialsLogin(httpClient, base, csrfToken, csrfCookie, authLoginEmail, password, totp)
		if err != nil {
			return err
		}

		if result.ok {
			if result.session == "" {
				return &cliutil.HTTPStatusError{
					Status:  http.StatusUnauthorized,
					Message: "login succeeded but server did not set a session cookie",
				}
			}

			profile := cfg.ProfileMut(eff.Profile)
			profile.SessionCookie = result.session
			profile.DeviceCookie = result.device
			if err := config.Save(cfgPath, cfg); err != nil {
				return err
			}

			if !globalOpts.Quiet {
				fmt.Fprintf(os.Stderr, "Session saved to profile '%s'.\n", eff.Profile)
			}
			return nil
		}

		if result.errCode == "second-factor-required" {
			if totp != "" {
				return loginError("two-factor code required")
			}
			if authLoginPwStdin {
				return cliutil.InvalidArgumentf("two-factor code required (pass --totp when using --password-stdin)")
			}
			if globalOpts.Quiet {
				return cliutil.InvalidArgumentf("two-factor code required (pass --totp)")
			}

			totp, err = promptLine("Two-factor code: ")
			if err != nil {
				return err
			}
			if totp == "" {
				return cliutil.InvalidArgumentf("totp code cannot be empty")
			}
			continue
		}

		switch result.errCode {
		case "incorrect-username-password":
			return loginError("invalid email or password")
		case "incorrect-two-factor-code":
			return loginError("incorrect two-factor code")
		case "account-expired":
			return loginError("account expired")
		case "":
			return loginError("login failed")
		default:
			return loginError(result.errCode)
		}
	}
}

// promptPassword reads the password without echo when stdin is a terminal.
// Non-interactive callers must use --password or --password-stdin.
func promptPassword() (string, error) {
	if globalOpts.Quiet || !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", cliutil.InvalidArgumentf("missing --password (or --password-stdin)")
	}

	fmt.Fprint(os.Stderr, "Password: ")
	data, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func promptLine(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

type loginResult struct {
	ok      bool
	errCode string
	session string
	device  string
}

func fetchNextAuthCSRF(httpClient *http.Client, base string) (token, cookieHeader string, err error) {
	req, err := http.NewRequest(http.MethodGet, base+"/api/auth/csrf", nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var value struct {
		CSRFToken string `json:"csrfToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&value); err != nil || value.CSRFToken == "" {
		return "", "", &cliutil.HTTPStatusError{
			Status:  http.StatusBadGateway,
			Message: "failed to obtain csrfToken from server",
		}
	}

	return value.CSRFToken, setCookieToCookieHeader(resp.Header.Values("Set-Cookie")), nil
}

func nextAuthCredentialsLogin(httpClient *http.Client, base, csrfToken, csrfCookie, email, password, totp string) (*loginResult, error) {
	form := url.Values{}
	form.Set("csrfToken", csrfToken)
	form.Set("callbackUrl", base+"/network")
	form.Set("json", "true")
	form.Set("email", email)
	form.Set("password", password)
	form.Set("userAgent", version.UserAgent())
	if totp != "" {
		form.Set("totpCode", totp)
	}

	req, err := http.NewRequest(http.MethodPost, base+"/api/auth/callback/credentials", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if csrfCookie != "" {
		req.Header.Set("Cookie", csrfCookie)
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	setCookies := resp.Header.Values("Set-Cookie")
	session := extractCookieValue(setCookies, "next-auth.session-token")
	if session == "" {
		session = extractCookieValue(setCookies, "__Secure-next-auth.session-token")
	}
	device := extractCookieValue(setCookies, "next-auth.did-token")

	result := &loginResult{session: session, device: device}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		var value struct {
			OK    bool   `json:"ok"`
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&value)
		result.ok = value.OK
		result.errCode = strings.TrimSpace(value.Error)
		return result, nil
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		result.errCode = loginErrorFromLocation(resp.Header.Get("Location"))
		result.ok = result.errCode == "" && session != ""
		return result, nil
	default:
		return nil, &cliutil.HTTPStatusError{
			Status:  resp.StatusCode,
			Message: "login request failed",
		}
	}
}

// setCookieToCookieHeader turns Set-Cookie response headers into a Cookie
// request header, keeping only the name=value pairs.
func setCookieToCookieHeader(setCookies []string) string {
	var pairs []string
	for _, raw := range setCookies {
		pair := raw
		if idx := strings.IndexByte(raw, ';'); idx >= 0 {
			pair = raw[:idx]
		}
		pair = strings.TrimSpace(pair)
		if pair != "" {
			pairs = append(pairs, pair)
		}
	}
	return strings.Join(pairs, "; ")
}

func extractCookieValue(setCookies []string, name string) string {
	prefix := name + "="
	for _, raw := range setCookies {
		trimmed := strings.TrimSpace(raw)
		if !strings.HasPrefix(trimmed, prefix) {
			continue
		}
		value := trimmed[len(prefix):]
		if idx := strings.IndexByte(value, ';'); idx >= 0 {
			value = value[:idx]
		}
		if value = strings.TrimSpace(value); value != "" {
			return value
		}
	}
	return ""
}

// loginErrorFromLocation pulls the error code out of the redirect target's
// query string, which is where NextAuth reports credential failures.
func loginErrorFromLocation(location string) string {
	u, err := url.Parse(location)
	if err != nil {
		return ""
	}
	return u.Query().Get("error")
}

func loginError(message string) error {
	return &cliutil.HTTPStatusError{Status: http.StatusUnauthorized, Message: message}
}
