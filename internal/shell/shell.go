// Copyright 2024 The Mothership Authors
// SPDX-License-Identifier: Apache-2.0

// Package shell serves the single-page application: the index.html shell
// with per-request substitutions, and the static asset tree. All client
// routes resolve to the same shell; navigation is owned by the browser
// router.
package shell

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/openela/mothership-console/internal/session"
)

// repoBasePlaceholder is the literal token in index.html replaced with the
// configured package repository base URL.
const repoBasePlaceholder = "REPO_BASE_URI"

// anonymousUserStmt is the shell's built-in login state; a logged-in
// request rewrites it to carry the session's username.
const anonymousUserStmt = "username = null"

// Renderer serves the SPA shell and static assets.
type Renderer struct {
	assetsDir   string
	repoBaseURL string
	index       string
	fileServer  http.Handler
}

// New loads index.html from the assets directory and prepares the
// renderer. A missing shell is a boot failure, not a per-request 500.
func New(assetsDir, repoBaseURL string) (*Renderer, error) {
	data, err := os.ReadFile(filepath.Join(assetsDir, "index.html"))
	if err != nil {
		return nil, fmt.Errorf("load SPA shell: %w", err)
	}

	return &Renderer{
		assetsDir:   assetsDir,
		repoBaseURL: repoBaseURL,
		index:       string(data),
		fileServer:  http.FileServer(http.Dir(assetsDir)),
	}, nil
}

// ServeShell renders the shell with substitutions applied. Shell responses
// are never cacheable: the body varies with login state, and a cached
// logged-in shell would leak the username across sessions.
func (rn *Renderer) ServeShell(w http.ResponseWriter, r *http.Request) {
	body := strings.ReplaceAll(rn.index, repoBasePlaceholder, rn.repoBaseURL)

	if sess := session.FromContext(r.Context()); sess != nil && sess.LoggedIn() {
		body = strings.ReplaceAll(body, anonymousUserStmt, fmt.Sprintf("username = '%s'", sess.Username))
	}

	h := w.Header()
	h.Set("Content-Type", "text/html; charset=utf-8")
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, proxy-revalidate")
	h.Set("Expires", "0")
	h.Set("Surrogate-Control", "no-store")

	fmt.Fprint(w, body)
}

// ServeFavicon serves favicon.png from the assets directory with normal
// caching.
func (rn *Renderer) ServeFavicon(w http.ResponseWriter, r *http.Request) {
	http.ServeFile(w, r, filepath.Join(rn.assetsDir, "favicon.png"))
}

// ServeAssets serves the static asset tree under /assets with normal
// caching; fingerprinted bundles are safe to cache indefinitely.
func (rn *Renderer) ServeAssets() http.Handler {
	return rn.fileServer
}
