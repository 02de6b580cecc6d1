// Package stack describes the fixed set of services that make up the CRUD
// stack and resolves them against the compose project that runs them.
package stack

import (
	"errors"
	"fmt"

	"github.com/railwayapp/crudkit/internal/config"
	"github.com/railwayapp/crudkit/internal/environment"
)

// ErrUnknownService is returned when a service is not part of the stack or
// not defined by the compose file.
var ErrUnknownService = errors.New("unknown service")

// Role is the part a service plays in the stack.
type Role string

const (
	RoleApp      Role = "app"      // application
	RolePostgres Role = "postgres" // relational database, primary
	RoleMySQL    Role = "mysql"    // relational database, alternate
	RoleMongo    Role = "mongo"    // document store
)

// Roles lists every role in start order.
var Roles = []Role{RoleApp, RolePostgres, RoleMySQL, RoleMongo}

func (r Role) Description() string {
	switch r {
	case RoleApp:
		return "application"
	case RolePostgres:
		return "relational database (primary)"
	case RoleMySQL:
		return "relational database (alternate)"
	case RoleMongo:
		return "document store"
	default:
		return "unknown"
	}
}

// IsDatabase reports whether the role is one of the databases.
func (r Role) IsDatabase() bool {
	return r == RolePostgres || r == RoleMySQL || r == RoleMongo
}

// Service is one named, independently startable unit of the stack.
type Service struct {
	Role Role
	Name string // compose service name
}

// Registry maps roles to compose service names.
type Registry struct {
	services []Service
}

// NewRegistry builds the registry from configured service names.
func NewRegistry(names config.Services) *Registry {
	return &Registry{services: []Service{
		{Role: RoleApp, Name: names.App},
		{Role: RolePostgres, Name: names.Postgres},
		{Role: RoleMySQL, Name: names.MySQL},
		{Role: RoleMongo, Name: names.Mongo},
	}}
}

// All returns every service in role order.
func (r *Registry) All() []Service {
	return append([]Service(nil), r.services...)
}

// Get returns the service playing role.
func (r *Registry) Get(role Role) (Service, error) {
	for _, s := range r.services {
		if s.Role == role {
			return s, nil
		}
	}
	return Service{}, fmt.Errorf("%w: role %q", ErrUnknownService, role)
}

// App returns the application service.
func (r *Registry) App() Service {
	s, _ := r.Get(RoleApp)
	return s
}

// Relational returns the relational database selected by dbType.
func (r *Registry) Relational(dbType environment.DBType) (Service, error) {
	if !dbType.Valid() {
		return Service{}, fmt.Errorf("%w: no relational database for DB_TYPE %q", ErrUnknownService, dbType)
	}
	if dbType == environment.MySQL {
		return r.Get(RoleMySQL)
	}
	return r.Get(RolePostgres)
}
