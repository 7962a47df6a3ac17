// Package resources describes the protected resource surface of the emulated
// API: which routes exist, the permission each one requires and the rate
// category it is counted under. The CRUD behavior behind those routes is
// provided by a Handler.
package resources

import (
	"github.com/dropDatabas3/mcgate/internal/rate"
	"github.com/dropDatabas3/mcgate/internal/scope"
)

// Group es un prefijo montado en el router (ej. /contacts/v1).
type Group struct {
	Name   string
	Prefix string
	Routes []Route
}

// Route es una operación protegida dentro de un grupo.
type Route struct {
	Name     string
	Method   string
	Pattern  string
	Scope    string
	Category rate.Category
}

// Required devuelve el scope requerido como set.
func (r Route) Required() scope.Set { return scope.New(r.Scope) }

func inherit(name, method, pattern, perm string) Route {
	return Route{Name: name, Method: method, Pattern: pattern, Scope: perm, Category: rate.Inherit}
}

// Groups es la tabla completa de rutas protegidas.
var Groups = []Group{
	{
		Name:   "contacts",
		Prefix: "/contacts/v1",
		Routes: []Route{
			inherit("contacts.create", "POST", "/contacts", "contacts:write"),
			inherit("contacts.list", "GET", "/contacts", "contacts:read"),
			inherit("contacts.search", "POST", "/contacts/search", "contacts:read"),
			inherit("contacts.bulk", "POST", "/contacts/bulk", "contacts:write"),
			inherit("contacts.stats", "GET", "/contacts/stats", "contacts:read"),
			inherit("contacts.get", "GET", "/contacts/{contactKey}", "contacts:read"),
			inherit("contacts.update", "PATCH", "/contacts/{contactKey}", "contacts:write"),
			inherit("contacts.delete", "DELETE", "/contacts/{contactKey}", "contacts:write"),
		},
	},
	{
		Name:   "campaigns",
		Prefix: "/campaigns/v1",
		Routes: []Route{
			inherit("campaigns.create", "POST", "/campaigns", "campaigns:write"),
			inherit("campaigns.list", "GET", "/campaigns", "campaigns:read"),
			inherit("campaigns.summary", "GET", "/campaigns/reports/summary", "campaigns:read"),
			inherit("campaigns.get", "GET", "/campaigns/{campaignID}", "campaigns:read"),
			inherit("campaigns.update", "PATCH", "/campaigns/{campaignID}", "campaigns:write"),
			inherit("campaigns.delete", "DELETE", "/campaigns/{campaignID}", "campaigns:write"),
			inherit("campaigns.start", "POST", "/campaigns/{campaignID}/start", "campaigns:write"),
			inherit("campaigns.pause", "POST", "/campaigns/{campaignID}/pause", "campaigns:write"),
			inherit("campaigns.statistics", "GET", "/campaigns/{campaignID}/statistics", "campaigns:read"),
		},
	},
	{
		Name:   "email",
		Prefix: "/email/v1",
		Routes: []Route{
			inherit("email.create", "POST", "/definitions", "emails:write"),
			inherit("email.list", "GET", "/definitions", "emails:read"),
			inherit("email.types", "GET", "/types", "emails:read"),
			inherit("email.get", "GET", "/definitions/{definitionID}", "emails:read"),
			inherit("email.update", "PATCH", "/definitions/{definitionID}", "emails:write"),
			inherit("email.delete", "DELETE", "/definitions/{definitionID}", "emails:write"),
			inherit("email.send", "POST", "/definitions/{definitionID}/send", "emails:write"),
			inherit("email.preview", "POST", "/definitions/{definitionID}/preview", "emails:read"),
			inherit("email.validate", "POST", "/definitions/{definitionID}/validate", "emails:read"),
		},
	},
	{
		Name:   "data",
		Prefix: "/data/v1",
		Routes: []Route{
			inherit("events.create", "POST", "/events", "data_events:write"),
			inherit("events.bulk", "POST", "/events/bulk", "data_events:write"),
			inherit("events.list", "GET", "/events", "data_events:read"),
			inherit("events.analytics", "GET", "/events/analytics", "data_events:read"),
			inherit("events.funnel", "POST", "/events/funnel", "data_events:read"),
			inherit("events.types", "GET", "/events/types", "data_events:read"),
			inherit("events.by_contact", "GET", "/events/contact/{contactKey}", "data_events:read"),
			inherit("events.get", "GET", "/events/{eventID}", "data_events:read"),
		},
	},
	{
		Name:   "assets",
		Prefix: "/assets/v1",
		Routes: []Route{
			{Name: "assets.upload", Method: "POST", Pattern: "/assets", Scope: "assets:write", Category: rate.Upload},
			inherit("assets.list", "GET", "/assets", "assets:read"),
			inherit("assets.search", "POST", "/assets/search", "assets:read"),
			inherit("assets.stats", "GET", "/assets/stats", "assets:read"),
			inherit("assets.types", "GET", "/assets/types", "assets:read"),
			inherit("assets.get", "GET", "/assets/{assetID}", "assets:read"),
			inherit("assets.update", "PATCH", "/assets/{assetID}", "assets:write"),
			inherit("assets.delete", "DELETE", "/assets/{assetID}", "assets:write"),
			inherit("assets.content", "GET", "/assets/{assetID}/content", "assets:read"),
		},
	},
}
