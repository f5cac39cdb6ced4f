package core

import (
	"errors"
	"fmt"
	"strings"
)

const (
	WorkspaceFirm     = "escritorio"
	WorkspacePersonal = "pessoal"
)

// Collection names. Personal workspaces prefix them with "personal_".
const (
	CollectionEntries    = "entries"
	CollectionCardItems  = "creditCardEntries"
	CollectionAccounts   = "accounts"
	CollectionSettings   = "settings"
	SettingsCategories   = "categories"
	SettingsInvoiceData  = "invoiceData"
	personalCollectionNS = "personal_"
)

var ErrUnknownWorkspace = errors.New("unknown workspace")

// Workspace selects the rule table and collection namespace a request
// works against. It is passed explicitly to every consumer.
type Workspace struct {
	ID               string
	Label            string
	CollectionPrefix string
	Personal         bool
}

var (
	Firm = Workspace{
		ID:    WorkspaceFirm,
		Label: "Escritório",
	}
	Personal = Workspace{
		ID:               WorkspacePersonal,
		Label:            "Pessoal",
		CollectionPrefix: personalCollectionNS,
		Personal:         true,
	}
)

// Workspaces lists the known workspaces.
func Workspaces() []Workspace {
	return []Workspace{Firm, Personal}
}

// LookupWorkspace resolves a workspace id.
func LookupWorkspace(id string) (Workspace, error) {
	for _, ws := range Workspaces() {
		if ws.ID == id {
			return ws, nil
		}
	}
	return Workspace{}, fmt.Errorf("%w: %q", ErrUnknownWorkspace, id)
}

// Collections lists the base collection names of a workspace.
func Collections() []string {
	return []string{CollectionEntries, CollectionCardItems, CollectionAccounts, CollectionSettings}
}

// SplitCollection maps a namespaced collection name back to its
// workspace and base name.
func SplitCollection(name string) (Workspace, string) {
	if base, ok := strings.CutPrefix(name, personalCollectionNS); ok {
		return Personal, base
	}
	return Firm, name
}

// Collection returns the namespaced collection name.
func (ws Workspace) Collection(name string) string {
	return ws.CollectionPrefix + name
}

func (ws Workspace) String() string {
	return ws.ID
}
