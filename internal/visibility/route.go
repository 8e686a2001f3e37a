package visibility

import "strings"

// Route selects which slice of the booking set a listing shows.
type Route int

const (
	RouteHome Route = iota
	RouteJoined
	RouteCreated
	RouteHistory
)

var routePaths = map[Route]string{
	RouteHome:    "/",
	RouteJoined:  "/joined",
	RouteCreated: "/created",
	RouteHistory: "/history",
}

func (r Route) String() string {
	if p, ok := routePaths[r]; ok {
		return p
	}
	return "unknown"
}

// RouteFromPath maps a literal page path to a Route. A trailing slash is ignored.
func RouteFromPath(path string) (Route, bool) {
	p := strings.TrimSpace(path)
	if p == "" {
		return RouteHome, true
	}
	if len(p) > 1 {
		p = strings.TrimRight(p, "/")
		if p == "" {
			p = "/"
		}
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	for r, rp := range routePaths {
		if rp == p {
			return r, true
		}
	}
	return RouteHome, false
}

// Surface is where the actions are rendered.
type Surface int

const (
	SurfaceCard Surface = iota
	SurfaceDetail
)

func (s Surface) String() string {
	if s == SurfaceDetail {
		return "detail"
	}
	return "card"
}
