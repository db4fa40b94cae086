package app

import "net/http"

type Router struct{}

func (Router) Get(pattern string, h http.HandlerFunc)  {}
func (Router) Route(pattern string, fn func(r Router)) {}
func (Router) MapGet(pattern string, handler any)      {}

type Config struct{}

func (Config) Get(key string) string { return "" }

// Endpoint registers h for method and pattern.
func Endpoint(method, pattern string, h func(id string)) {}

type UserID int64

type Stamp struct{}

func (*Stamp) UnmarshalText([]byte) error { return nil }

type ItemHandler struct{}

func (ItemHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.PathValue("item")
}

func Setup(r Router, cfg Config) {
	_ = cfg.Get("/not/a/route")
	r.Route("/admin", func(r Router) {})
	r.MapGet("/users/{id:int}/{when}", func(id UserID, when Stamp, tags []string) {})
	r.MapGet("/orders/{id:itn}", func(id int) {})
	r.MapGet("/items/{slug}", func(path struct {
		Slug string `path:"slug"`
		Page int
	}) {
	})
	r.MapGet("/things/{item}", ItemHandler{})
	Endpoint("GET", "/plugin/{id}", func(id string) {})
}
