// Package fetch - browser.go provides headless browser rendering for pages
// whose content is filled in by JavaScript (player profiles).
package fetch

import (
	"context"
	"log"
	"time"

	"github.com/chromedp/chromedp"
)

// RenderSettle is how long the page gets after the wait selector appears.
const RenderSettle = 2 * time.Second

// Render loads a page in headless Chrome and returns the rendered HTML once
// waitSelector is present. It shares the client's limiter and timeout.
// Requires Chrome/Chromium to be installed on the system.
func (c *Client) Render(ctx context.Context, urlStr string, waitSelector string, verbose bool) (*Result, error) {
	if err := c.Wait(ctx); err != nil {
		return nil, &Error{URL: urlStr, Message: "rate limiter wait failed", Cause: err}
	}

	if verbose {
		log.Printf("[BROWSER] Starting headless browser for: %s", urlStr)
	}

	// Create browser context with timeout
	allocCtx, cancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", true),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.UserAgent(c.options.UserAgent),
		)...,
	)
	defer cancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	browserCtx, cancel = context.WithTimeout(browserCtx, c.options.Timeout)
	defer cancel()

	if waitSelector == "" {
		waitSelector = "body"
	}

	var html string
	err := chromedp.Run(browserCtx,
		chromedp.Navigate(urlStr),
		chromedp.WaitReady(waitSelector),
		chromedp.Sleep(RenderSettle),
		chromedp.OuterHTML("html", &html),
	)
	if err != nil {
		return nil, &Error{URL: urlStr, Message: "browser rendering failed", Cause: err}
	}

	if verbose {
		log.Printf("[BROWSER] Rendered HTML: %d bytes", len(html))
	}

	return &Result{URL: urlStr, HTML: html, StatusCode: 200}, nil
}
