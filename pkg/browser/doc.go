// Package browser manages the headless Chromium instance used to drive the
// ERP web UI.
//
// A single Manager owns the browser process for the life of the server.
// Each batch gets its own page in a fresh incognito context, so cookies
// from one operator's login never leak into the next batch. The Page and
// Element interfaces are the only surface the automation driver sees,
// which keeps go-rod out of the driver and lets tests script a fake page.
package browser
