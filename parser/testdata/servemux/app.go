package app

import (
	"fmt"
	"net/http"
)

const apiPrefix = "/api"

func Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /users/{id}", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, r.PathValue("id"))
	})
	mux.HandleFunc("POST /users/{id}/{name}", showUser)
	mux.Handle(apiPrefix+"/files/{path...}", http.HandlerFunc(serveFile))
	mux.HandleFunc("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
		_ = r.PathValue("order")
	})
	http.HandleFunc("example.com/health", health)
	_ = http.Header{}.Get("X-Id")
}

func showUser(w http.ResponseWriter, r *http.Request) {
	_ = r.PathValue("id")
}

func serveFile(w http.ResponseWriter, r *http.Request) {
	_ = r.PathValue("path")
}

func health(w http.ResponseWriter, r *http.Request) {}
