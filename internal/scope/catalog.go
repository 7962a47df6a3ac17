package scope

// Permission describes a scope exposed by the emulated API.
type Permission struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Catalog lists every permission a client can be granted.
var Catalog = []Permission{
	{"contacts:read", "Read contact records"},
	{"contacts:write", "Create, update and delete contacts"},
	{"campaigns:read", "Read campaigns and statistics"},
	{"campaigns:write", "Create, update, start and pause campaigns"},
	{"emails:read", "Read email definitions"},
	{"emails:write", "Create, update, delete and send email definitions"},
	{"data_events:read", "Read tracked data events"},
	{"data_events:write", "Ingest data events"},
	{"assets:read", "Read and download assets"},
	{"assets:write", "Upload, update and delete assets"},
}

// All returns the full catalog as a set.
func All() Set {
	names := make([]string, 0, len(Catalog))
	for _, p := range Catalog {
		names = append(names, p.Name)
	}
	return New(names...)
}
