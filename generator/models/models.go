package models

// HostRecord is one synthesized SSH host entry
type HostRecord struct {
	Label          string
	Address        string
	User           string
	IdentityFile   string
	Environment    string
	ProxyCommand   string
	DynamicForward string

	// InstanceID is kept for diagnostics; it is not rendered
	InstanceID string
}

// Complete reports whether the record can be used for an SSH connection
func (h HostRecord) Complete() bool {
	return h.Address != "" && h.User != ""
}

// Group is an environment and its hosts, in emission order
type Group struct {
	Environment string
	Hosts       []HostRecord
}

// EnvCount is the number of hosts in one environment
type EnvCount struct {
	Environment string
	Count       int
}

// Summary counts hosts overall and per environment, in group order
type Summary struct {
	Total         int
	ByEnvironment []EnvCount
}

// Result is the outcome of one generation run
type Result struct {
	Groups  []Group
	Summary Summary
	// Dropped counts instances that produced an incomplete record
	Dropped int
}
