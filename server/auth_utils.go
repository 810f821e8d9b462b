package server

import (
	"net/http"
	"net/url"
)

const (
	contentTypeHTML = "text/html; charset=utf-8"

	errorMsgParam  = "error"
	noticeMsgParam = "notice"
	emailParam     = "email"
)

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError sends the user back to path with a displayable error,
// keeping the email they typed when given.
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg, email string) {
	q := url.Values{}
	q.Set(errorMsgParam, errorMsg)
	if email != "" {
		q.Set(emailParam, email)
	}
	redirectSuccess(w, r, path+"?"+q.Encode())
}

func redirectWithNotice(w http.ResponseWriter, r *http.Request, path, notice string) {
	q := url.Values{}
	q.Set(noticeMsgParam, notice)
	redirectSuccess(w, r, path+"?"+q.Encode())
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// callbackURL is where the identity provider sends the browser back to.
func (s *Server) callbackURL() string {
	return s.config.GetBaseURL() + s.config.GetCallbackPath()
}
