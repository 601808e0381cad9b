// Package web is the HTML boundary of the lodge server: form handlers,
// per-request guards, the form-error vocabulary, and the page templates.
//
// Validation failures are never hard errors here. They travel as short codes
// in a redirect back to the originating form; only infrastructure failures
// become 500s.
package web
