package session

import (
	"net/url"
	"strings"
)

// Route names
const (
	RouteIndex           = "Index"
	RouteAuth            = "Auth"
	RouteProfileIndex    = "ProfileIndex"
	RouteProfileSettings = "ProfileSettings"
	RouteProfilePassword = "ProfilePassword"
	RouteProfileEmail    = "ProfileEmail"
	RouteNotFound        = "NotFound"
)

type Route struct {
	Name         string
	Path         string
	RequiresAuth bool
	Children     []Route
}

// Routes of the web client. Children inherit RequiresAuth from the parent.
var Routes = []Route{
	{Name: RouteIndex, Path: "/"},
	{Name: RouteAuth, Path: "/auth"},
	{
		Path:         "/profile",
		RequiresAuth: true,
		Children: []Route{
			{Name: RouteProfileIndex, Path: ""},
			{Name: RouteProfileSettings, Path: "settings"},
			{Name: RouteProfilePassword, Path: "password"},
			{Name: RouteProfileEmail, Path: "email"},
		},
	},
}

// Resolved navigation target
type Match struct {
	Name         string
	FullPath     string // path with query as requested
	RequiresAuth bool
}

// Resolve finds route for the path. Unknown paths resolve to NotFound.
func Resolve(fullPath string) Match {
	path, _, _ := strings.Cut(fullPath, "?")
	if path != "/" {
		path = strings.TrimSuffix(path, "/")
	}

	for _, r := range Routes {
		if name, requiresAuth, ok := r.match(path, false); ok {
			return Match{Name: name, FullPath: fullPath, RequiresAuth: requiresAuth}
		}
	}
	return Match{Name: RouteNotFound, FullPath: fullPath}
}

func (r Route) match(path string, parentAuth bool) (string, bool, bool) {
	requiresAuth := parentAuth || r.RequiresAuth

	if len(r.Children) == 0 {
		return r.Name, requiresAuth, path == r.Path
	}

	for _, child := range r.Children {
		childPath := r.Path
		if child.Path != "" {
			childPath = r.Path + "/" + child.Path
		}
		if path == childPath {
			return child.Name, requiresAuth || child.RequiresAuth, true
		}
	}
	return "", false, false
}

// Navigation target produced by the guard
type Location struct {
	Name  string
	Path  string
	Query url.Values
}

func (l Location) String() string {
	if len(l.Query) == 0 {
		return l.Path
	}
	return l.Path + "?" + l.Query.Encode()
}

func authLocation(redirect string) Location {
	return Location{
		Name:  RouteAuth,
		Path:  "/auth",
		Query: url.Values{"redirect": []string{redirect}},
	}
}
