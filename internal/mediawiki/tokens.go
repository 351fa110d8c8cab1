package mediawiki

import (
	"context"
	"fmt"
	"net/url"

	engine "github.com/remiliacorporation/wikitool/internal/errs"
)

type tokenResponse struct {
	Query struct {
		Tokens map[string]string `json:"tokens"`
	} `json:"query"`
	Error *apiError `json:"error"`
}

func (c *Client) getToken(ctx context.Context, tokenType string) (string, error) {
	c.mu.RLock()
	if t, ok := c.tokens[tokenType]; ok {
		c.mu.RUnlock()
		return t, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if t, ok := c.tokens[tokenType]; ok {
		return t, nil
	}

	params := url.Values{
		"action": {"query"},
		"meta":   {"tokens"},
		"type":   {tokenType},
	}
	var resp tokenResponse
	if err := c.call(ctx, "POST", params, &resp); err != nil {
		return "", fmt.Errorf("get %s token: %w", tokenType, err)
	}
	if resp.Error != nil {
		return "", classifyAPIError(resp.Error)
	}

	key := tokenType + "token"
	token, ok := resp.Query.Tokens[key]
	if !ok {
		return "", engine.Newf(engine.KindNetwork, "", fmt.Errorf("token %q missing from response", key))
	}
	c.tokens[tokenType] = token
	return token, nil
}

func (c *Client) invalidateToken(tokenType string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tokens, tokenType)
}

// withCSRFWriteRetry runs op with a fresh CSRF token, re-logging in
// and retrying once if the server reports the token as stale —
// mirrors the VRCWiki connector's withCSRFWriteRetry/reloginIfPossible
// pair, generalized to wikitool's engine.Error classification.
func (c *Client) withCSRFWriteRetry(ctx context.Context, op func(csrf string) error) error {
	const maxAttempts = 2
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		csrf, err := c.getToken(ctx, "csrf")
		if err != nil {
			return fmt.Errorf("get csrf token: %w", err)
		}

		lastErr = op(csrf)
		if lastErr == nil {
			return nil
		}
		if !isBadToken(lastErr) {
			return lastErr
		}

		c.invalidateToken("csrf")
		if err := c.reloginIfPossible(ctx); err != nil {
			return err
		}
	}
	return lastErr
}

func (c *Client) reloginIfPossible(ctx context.Context) error {
	if c.username == "" || c.password == "" {
		return engine.Newf(engine.KindAuthRequired, "", fmt.Errorf("csrf token stale and no credentials configured to relogin"))
	}
	c.invalidateToken("login")
	if err := c.Login(ctx); err != nil {
		return fmt.Errorf("re-login after badtoken: %w", err)
	}
	return nil
}

type loginResponse struct {
	Login struct {
		Result string `json:"result"`
		Reason string `json:"reason"`
	} `json:"login"`
	Error *apiError `json:"error"`
}

// Login acquires a session using the configured username/password.
// Safe to call again after a session expires; it clears all cached
// tokens on success so the next operation fetches a fresh CSRF token.
func (c *Client) Login(ctx context.Context) error {
	if c.username == "" || c.password == "" {
		return engine.Newf(engine.KindAuthRequired, "", fmt.Errorf("username/password not configured"))
	}

	loginToken, err := c.getToken(ctx, "login")
	if err != nil {
		return fmt.Errorf("get login token: %w", err)
	}

	params := url.Values{
		"action":     {"login"},
		"lgname":     {c.username},
		"lgpassword": {c.password},
		"lgtoken":    {loginToken},
	}
	var resp loginResponse
	if err := c.call(ctx, "POST", params, &resp); err != nil {
		return fmt.Errorf("login request: %w", err)
	}
	if resp.Error != nil {
		return classifyAPIError(resp.Error)
	}
	if resp.Login.Result != "Success" {
		reason := resp.Login.Reason
		if reason == "" {
			reason = "unknown"
		}
		return engine.Newf(engine.KindAuthRequired, "", fmt.Errorf("login failed: %s", reason))
	}

	c.mu.Lock()
	c.tokens = make(map[string]string)
	c.mu.Unlock()

	c.logger.Info("wiki login succeeded", "username", c.username)
	return nil
}
