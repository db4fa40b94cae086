package app

import "net/http"

var _ = undefinedThing

func Register(mux *http.ServeMux) {
	mux.HandleFunc("/users/{id", func(w http.ResponseWriter, r *http.Request) {})
}
