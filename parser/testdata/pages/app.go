package app

import "net/http"

// PageIndex is /
type PageIndex struct{}

func (PageIndex) GET(r *http.Request) error { return nil }

// PageUser is /users/{id:length(3)}
//
// PageUser renders a user profile.
type PageUser struct{}

func (PageUser) GET(r *http.Request, path struct {
	ID string `path:"id"`
}) error {
	return nil
}

// POSTRename is /users/{id}/rename
func (PageUser) POSTRename(r *http.Request, path struct {
	ID string `path:"id"`
}) error {
	return nil
}

// PUTItem is /[controller]/{id}
func (PageUser) PUTItem(r *http.Request) error { return nil }

// PageBroken is
type PageBroken struct{}

// PageNoGap is /nogap
// This line must be separated.
type PageNoGap struct{}

type PageOrphan struct{}

func (PageOrphan) GET(r *http.Request) error { return nil }

// PATCHBad is /bad/{id}
func (PageUser) PATCHBad(r *http.Request, path struct {
	id string
}) error {
	return nil
}
