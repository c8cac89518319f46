package sciencebase

import (
	"fmt"
	"strings"
)

// Environment selects which ScienceBase deployment a Client talks to
type Environment int

const (
	// Production is www.sciencebase.gov
	Production Environment = iota
	// Beta is the beta.sciencebase.gov staging deployment
	Beta
	// Dev is a catalog running on localhost
	Dev
)

// String returns the configuration name of the environment
func (e Environment) String() string {
	switch e {
	case Beta:
		return "beta"
	case Dev:
		return "dev"
	default:
		return "production"
	}
}

// ParseEnvironment maps a configuration value to an Environment.
// An empty string selects Production.
func ParseEnvironment(name string) (Environment, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "production", "prod":
		return Production, nil
	case "beta":
		return Beta, nil
	case "dev", "local":
		return Dev, nil
	default:
		return Production, fmt.Errorf("unknown environment: %s", name)
	}
}

// Endpoints holds every URL the client needs. It is computed once when the
// client is built and never changes afterwards.
type Endpoints struct {
	Catalog   string
	Directory string
	Login     string
	// UsersID is the folder holding each user's "My Items" item.
	UsersID string
}

// EndpointsFor returns the endpoints of a deployment
func EndpointsFor(env Environment) Endpoints {
	switch env {
	case Beta:
		return Endpoints{
			Catalog:   "https://beta.sciencebase.gov/catalog/",
			Directory: "https://beta.sciencebase.gov/directory/",
			Login:     "https://my-beta.usgs.gov/josso/signon/usernamePasswordLogin.do",
			UsersID:   "4f4e4772e4b07f02db47e231",
		}
	case Dev:
		return Endpoints{
			Catalog:   "http://localhost:8090/catalog/",
			Directory: "https://beta.sciencebase.gov/directory/",
			Login:     "https://my-beta.usgs.gov/josso/signon/usernamePasswordLogin.do",
		}
	default:
		return Endpoints{
			Catalog:   "https://www.sciencebase.gov/catalog/",
			Directory: "https://www.sciencebase.gov/directory/",
			Login:     "https://my.usgs.gov/josso/signon/usernamePasswordLogin.do",
			UsersID:   "4f4e4772e4b07f02db47e231",
		}
	}
}

func withSlash(s string) string {
	if s == "" || strings.HasSuffix(s, "/") {
		return s
	}
	return s + "/"
}

func (e Endpoints) normalized() Endpoints {
	e.Catalog = withSlash(e.Catalog)
	e.Directory = withSlash(e.Directory)
	return e
}

func (e Endpoints) item() string            { return e.Catalog + "item/" }
func (e Endpoints) items() string           { return e.Catalog + "items/" }
func (e Endpoints) uploadAndUpsert() string { return e.Catalog + "file/uploadAndUpsertItem/" }
func (e Endpoints) uploadTemp() string      { return e.Catalog + "file/upload/" }
func (e Endpoints) downloadFiles() string   { return e.Catalog + "file/get/" }
func (e Endpoints) move() string            { return e.items() + "move/" }
func (e Endpoints) undelete() string        { return e.item() + "undelete/" }
func (e Endpoints) addLink() string         { return e.items() + "addLink/" }
func (e Endpoints) unlink() string          { return e.items() + "unlink/" }
func (e Endpoints) person() string          { return e.Directory + "person/" }
func (e Endpoints) logout() string          { return e.Catalog + "j_spring_security_logout" }
func (e Endpoints) sessionInfo() string {
	return e.Catalog + "jossoHelper/sessionInfo?includeJossoSessionId=true"
}
