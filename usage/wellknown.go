package usage

import (
	"slices"
	"strings"
	"sync"
)

// defaultSpecial are types handed to handlers by the framework
// rather than bound from the route.
var defaultSpecial = []string{
	"context.Context",
	"*net/http.Request",
	"net/http.ResponseWriter",
	"net/http.Header",
	"*net/http.Cookie",
	"*net/url.URL",
	"net/url.Values",
	"*mime/multipart.FileHeader",
	"[]*mime/multipart.FileHeader",
	"*mime/multipart.Form",
	"mime/multipart.File",
	"io.Reader",
	"io.ReadCloser",
	"io.Writer",
	"*os.File",
	"io/fs.File",
	"*log/slog.Logger",
	"*github.com/starfederation/datastar-go/datastar.ServerSentEventGenerator",
	"*github.com/golang-jwt/jwt/v5.Token",
	"github.com/golang-jwt/jwt/v5.MapClaims",
	"github.com/golang-jwt/jwt/v5.RegisteredClaims",
}

// defaultInterfaces are interfaces whose implementers are special.
var defaultInterfaces = []string{
	"context.Context",
	"net/http.ResponseWriter",
	"io.Reader",
	"io/fs.File",
	"github.com/golang-jwt/jwt/v5.Claims",
}

// textUnmarshaler makes a named type bindable from a route value.
const textUnmarshaler = "encoding.TextUnmarshaler"

var bindableBasic = map[string]struct{}{
	"string": {}, "bool": {},
	"int": {}, "int8": {}, "int16": {}, "int32": {}, "int64": {},
	"uint": {}, "uint8": {}, "uint16": {}, "uint32": {}, "uint64": {},
	"float32": {}, "float64": {},
}

// WellKnownTypes recognizes handler parameter types that are not bound
// from the route. One instance is shared by an analysis session and is
// safe for concurrent use.
type WellKnownTypes struct {
	lock   sync.Mutex
	exact  map[string]struct{}
	ifaces []string
	memo   map[string]bool
}

// NewWellKnownTypes creates a session set extended by the given
// fully qualified type names.
func NewWellKnownTypes(extra ...string) *WellKnownTypes {
	w := &WellKnownTypes{
		exact:  make(map[string]struct{}, len(defaultSpecial)+len(extra)),
		ifaces: slices.Clone(defaultInterfaces),
		memo:   make(map[string]bool),
	}
	for _, t := range defaultSpecial {
		w.exact[t] = struct{}{}
	}
	for _, t := range extra {
		w.exact[t] = struct{}{}
	}
	return w
}

// Interfaces returns the interfaces a host adapter must check
// implementations of to fill HostParameter.Implements.
func (w *WellKnownTypes) Interfaces() []string {
	return append(slices.Clone(w.ifaces), textUnmarshaler)
}

// IsSpecial reports whether p is provided by the framework.
func (w *WellKnownTypes) IsSpecial(p HostParameter) bool {
	key := p.TypeName + "\x00" + strings.Join(p.Implements, ",")

	w.lock.Lock()
	defer w.lock.Unlock()
	if v, ok := w.memo[key]; ok {
		return v
	}
	v := w.isSpecial(p)
	w.memo[key] = v
	return v
}

func (w *WellKnownTypes) isSpecial(p HostParameter) bool {
	if _, ok := w.exact[p.TypeName]; ok {
		return true
	}
	for _, i := range p.Implements {
		if slices.Contains(w.ifaces, i) {
			return true
		}
	}
	return isSessionType(p.TypeName)
}

// IsBindable reports whether a route value can be converted to p's type.
// Unknown types are assumed bindable.
func (w *WellKnownTypes) IsBindable(p HostParameter) bool {
	if p.TypeName == "" {
		return true
	}
	if slices.Contains(p.Implements, textUnmarshaler) {
		return true
	}
	u := p.Underlying
	if u == "" {
		u = p.TypeName
	}
	u = strings.TrimPrefix(u, "*")
	_, ok := bindableBasic[u]
	return ok
}

// isSessionType matches any named type called Session.
func isSessionType(typeName string) bool {
	typeName = strings.TrimPrefix(typeName, "*")
	if i := strings.LastIndexByte(typeName, '.'); i >= 0 {
		typeName = typeName[i+1:]
	}
	return typeName == "Session"
}
